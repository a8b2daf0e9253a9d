package dav

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/davfs/webdav-go/internal/urn"
)

// TotalUnknown is the total passed to a Progress callback when the server
// omits a content length.
const TotalUnknown = -1

// Progress is invoked at chunk boundaries during a transfer: once with
// current=0 before the first chunk and once per chunk thereafter. current
// advances by the configured chunk size, not by actual bytes moved, so the
// final call may slightly overstate progress — the contract is a monotonic
// signal, not exact byte accounting. Callbacks run on whichever goroutine
// performs the transfer and must be safe to invoke off the initiating one.
type Progress func(current, total int64)

// Download fetches a remote resource, file or directory, to a local path.
// Directory downloads destructively recreate the local subtree.
func (c *Client) Download(ctx context.Context, remotePath, localPath string, progress Progress) error {
	isDir, err := c.IsDir(ctx, remotePath)
	if err != nil {
		return err
	}

	if isDir {
		return c.DownloadDirectory(ctx, remotePath, localPath, progress)
	}

	return c.DownloadFile(ctx, remotePath, localPath, progress)
}

// validateRemoteFile rejects directory targets and missing resources
// before any GET is issued.
func (c *Client) validateRemoteFile(ctx context.Context, remotePath string, u urn.URN) error {
	isDir, err := c.IsDir(ctx, u.Path())
	if err != nil {
		return err
	}

	if isDir {
		return &OptionError{Name: "remote_path", Value: remotePath}
	}

	return c.requireExists(ctx, u.Path())
}

// streamDownload issues the GET and copies the body to w in chunks.
func (c *Client) streamDownload(ctx context.Context, u urn.URN, w io.Writer, progress Progress) error {
	resp, err := c.execute(ctx, ActionDownload, u.Quote(), nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	total := resp.ContentLength
	if total < 0 {
		total = TotalUnknown
	}

	body := limitReader(ctx, c.recvLimiter, resp.Body)

	return c.copyChunks(w, body, total, progress)
}

// DownloadTo streams a remote file into w in fixed-size chunks.
func (c *Client) DownloadTo(ctx context.Context, remotePath string, w io.Writer, progress Progress) error {
	u := urn.New(remotePath, false)

	if err := c.validateRemoteFile(ctx, remotePath, u); err != nil {
		return err
	}

	return c.streamDownload(ctx, u, w, progress)
}

// DownloadFile downloads a remote file and saves it at localPath. All
// validation happens before the local file is created.
func (c *Client) DownloadFile(ctx context.Context, remotePath, localPath string, progress Progress) error {
	if info, err := os.Stat(localPath); err == nil && info.IsDir() {
		return &OptionError{Name: "local_path", Value: localPath}
	}

	u := urn.New(remotePath, false)

	if err := c.validateRemoteFile(ctx, remotePath, u); err != nil {
		return err
	}

	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("dav: creating %s: %w", localPath, err)
	}
	defer file.Close()

	if err := c.streamDownload(ctx, u, file, progress); err != nil {
		return err
	}

	c.logger.Info("downloaded file",
		slog.String("remote", remotePath),
		slog.String("local", localPath),
	)

	return nil
}

// DownloadDirectory recreates a remote directory tree locally. Any
// pre-existing local directory is removed first, then the remote directory
// is listed non-recursively and each entry downloaded per type.
func (c *Client) DownloadDirectory(ctx context.Context, remotePath, localPath string, progress Progress) error {
	dir := urn.New(remotePath, true)

	isDir, err := c.IsDir(ctx, dir.Path())
	if err != nil {
		return err
	}

	if !isDir {
		return &OptionError{Name: "remote_path", Value: remotePath}
	}

	if err := os.RemoveAll(localPath); err != nil {
		return fmt.Errorf("dav: clearing %s: %w", localPath, err)
	}

	if err := os.MkdirAll(localPath, 0o755); err != nil {
		return fmt.Errorf("dav: creating %s: %w", localPath, err)
	}

	entries, err := c.ListInfo(ctx, dir.Path(), false)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		name := urn.New(entry.Path, entry.IsDir).Filename()
		childRemote := dir.Path() + name
		childLocal := filepath.Join(localPath, name)

		if entry.IsDir {
			if err := c.DownloadDirectory(ctx, childRemote, childLocal, progress); err != nil {
				return err
			}

			continue
		}

		if err := c.DownloadFile(ctx, childRemote, childLocal, progress); err != nil {
			return err
		}
	}

	return nil
}

// Upload sends a local resource, file or directory, to a remote path.
// Directory uploads delete and recreate the remote directory first.
func (c *Client) Upload(ctx context.Context, localPath, remotePath string, progress Progress) error {
	info, err := os.Stat(localPath)
	if err != nil {
		return &PathError{Path: localPath, Err: ErrLocalNotFound}
	}

	if info.IsDir() {
		return c.UploadDirectory(ctx, localPath, remotePath, progress)
	}

	return c.UploadFile(ctx, localPath, remotePath, progress, false)
}

// UploadFrom streams r to a remote file path. The remote parent must exist.
func (c *Client) UploadFrom(ctx context.Context, r io.Reader, remotePath string) error {
	u := urn.New(remotePath, false)

	if u.IsDir() {
		return &OptionError{Name: "remote_path", Value: remotePath}
	}

	if err := c.requireParent(ctx, u); err != nil {
		return err
	}

	body := limitReader(ctx, c.sendLimiter, r)

	resp, err := c.execute(ctx, ActionUpload, u.Quote(), body, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()

	return nil
}

// UploadFile uploads a local file. The remote parent must exist unless
// force is set, which creates missing ancestors first. Without a progress
// callback the file handle is handed to the transport whole; with one, the
// body is streamed in chunks with before/after progress calls.
func (c *Client) UploadFile(ctx context.Context, localPath, remotePath string, progress Progress, force bool) error {
	info, err := os.Stat(localPath)
	if err != nil {
		return &PathError{Path: localPath, Err: ErrLocalNotFound}
	}

	if info.IsDir() {
		return &OptionError{Name: "local_path", Value: localPath}
	}

	u := urn.New(remotePath, false)
	if u.IsDir() {
		return &OptionError{Name: "remote_path", Value: remotePath}
	}

	parentExists, err := c.Check(ctx, u.Parent())
	if err != nil {
		return err
	}

	if !parentExists {
		if !force {
			return parentNotFound(u.Path())
		}

		if err := c.MkDir(ctx, u.Parent(), true); err != nil {
			return err
		}
	}

	file, err := os.Open(localPath)
	if err != nil {
		return &PathError{Path: localPath, Err: ErrLocalNotFound}
	}
	defer file.Close()

	var body io.Reader = file
	if progress != nil {
		body = &progressReader{
			r:        file,
			chunk:    c.settings.ChunkSize,
			total:    info.Size(),
			progress: progress,
		}
	}

	body = limitReader(ctx, c.sendLimiter, body)

	resp, err := c.execute(ctx, ActionUpload, u.Quote(), body, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()

	c.logger.Info("uploaded file",
		slog.String("local", localPath),
		slog.String("remote", u.Path()),
		slog.Int64("size", info.Size()),
	)

	return nil
}

// UploadDirectory uploads a local directory tree. An existing remote
// directory is deleted, recreated, and then each local entry uploaded.
func (c *Client) UploadDirectory(ctx context.Context, localPath, remotePath string, progress Progress) error {
	dir := urn.New(remotePath, true)

	info, err := os.Stat(localPath)
	if err != nil {
		return &PathError{Path: localPath, Err: ErrLocalNotFound}
	}

	if !info.IsDir() {
		return &OptionError{Name: "local_path", Value: localPath}
	}

	exists, err := c.Check(ctx, dir.Path())
	if err != nil {
		return err
	}

	if exists {
		if err := c.Clean(ctx, dir.Path()); err != nil {
			return err
		}
	}

	if err := c.MkDir(ctx, dir.Path(), false); err != nil {
		return err
	}

	entries, err := os.ReadDir(localPath)
	if err != nil {
		return &PathError{Path: localPath, Err: ErrLocalNotFound}
	}

	for _, entry := range entries {
		childLocal := filepath.Join(localPath, entry.Name())
		childRemote := dir.Path() + entry.Name()

		if err := c.Upload(ctx, childLocal, childRemote, progress); err != nil {
			return err
		}
	}

	return nil
}

// copyChunks moves data from r to w one chunk at a time, signaling progress
// before the first chunk and after every chunk.
func (c *Client) copyChunks(w io.Writer, r io.Reader, total int64, progress Progress) error {
	if progress != nil {
		progress(0, total)
	}

	var current int64

	for {
		n, err := io.CopyN(w, r, c.settings.ChunkSize)
		if n > 0 {
			current += c.settings.ChunkSize
			if progress != nil {
				progress(current, total)
			}
		}

		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return errors.Join(ErrRequest, err)
		}
	}
}

// progressReader feeds an upload body in chunk-sized reads, invoking the
// progress callback with the same cadence as downloads.
type progressReader struct {
	r        io.Reader
	chunk    int64
	total    int64
	current  int64
	progress Progress
	started  bool
}

func (pr *progressReader) Read(p []byte) (int, error) {
	if !pr.started {
		pr.progress(0, pr.total)
		pr.started = true
	}

	if int64(len(p)) > pr.chunk {
		p = p[:pr.chunk]
	}

	n, err := pr.r.Read(p)
	if n > 0 {
		pr.current += pr.chunk
		pr.progress(pr.current, pr.total)
	}

	return n, err
}
