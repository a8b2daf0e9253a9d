package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/davfs/webdav-go/internal/dav"
	"github.com/davfs/webdav-go/internal/urn"
)

// formatSize renders a byte count for humans.
func formatSize(n int64) string {
	if n < 0 {
		return "?"
	}

	return humanize.IBytes(uint64(n))
}

// formatEntry renders one long-listing line: type marker, size, modified,
// name.
func formatEntry(entry dav.ResourceInfo) string {
	marker := "-"
	size := formatSize(entry.Size)

	if entry.IsDir {
		marker = "d"
		size = "-"
	}

	name := urn.New(entry.Path, entry.IsDir).Filename()
	if entry.IsDir {
		name += urn.Separator
	}

	return fmt.Sprintf("%s %10s  %-29s %s", marker, size, entry.Modified, name)
}

// printInfo renders a stat block.
func printInfo(info dav.ResourceInfo) {
	kind := "file"
	if info.IsDir {
		kind = "directory"
	}

	fmt.Printf("path:         %s\n", info.Path)
	fmt.Printf("type:         %s\n", kind)
	fmt.Printf("name:         %s\n", info.Name)
	fmt.Printf("size:         %s\n", formatSize(info.Size))
	fmt.Printf("created:      %s\n", info.Created)
	fmt.Printf("modified:     %s\n", info.Modified)
	fmt.Printf("etag:         %s\n", info.ETag)
	fmt.Printf("content-type: %s\n", info.ContentType)
}

// progressMu serializes progress lines from concurrent transfers.
var progressMu sync.Mutex

// progressPrinter returns a progress callback printing transfer state to
// the terminal, or nil when stderr is not a terminal. Progress callbacks
// may run on background goroutines, hence the lock.
func progressPrinter(name string) dav.Progress {
	if flagQuiet || !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}

	return func(current, total int64) {
		progressMu.Lock()
		defer progressMu.Unlock()

		if total == dav.TotalUnknown {
			fmt.Fprintf(os.Stderr, "\r%s: %s", name, formatSize(current))

			return
		}

		if current > total {
			current = total
		}

		fmt.Fprintf(os.Stderr, "\r%s: %s / %s", name, formatSize(current), formatSize(total))

		if current == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}
