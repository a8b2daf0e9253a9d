// Package sync implements the bidirectional directory synchronizer: it
// recursively compares local and remote trees and drives the transfer
// engine to reconcile them, resolving per-file conflicts with a
// timestamp-based freshness decision.
package sync

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Freshness is the outcome of comparing local and remote modification times
// for one resource.
type Freshness int

const (
	// FreshnessUnknown means the comparison failed: metadata could not be
	// fetched or a timestamp was absent or unparsable. Treated as "no
	// update" to avoid clobbering on ambiguous data.
	FreshnessUnknown Freshness = iota
	// LocalNewer means the local copy is strictly more recent.
	LocalNewer
	// RemoteNewer means the remote copy is at least as recent.
	RemoteNewer
)

func (f Freshness) String() string {
	switch f {
	case LocalNewer:
		return "local-newer"
	case RemoteNewer:
		return "remote-newer"
	default:
		return "unknown"
	}
}

// modifiedFormats are the timestamp layouts tried beyond the HTTP-date
// family for getlastmodified values.
var modifiedFormats = []string{
	time.RFC3339,
	time.RFC3339Nano,
	time.RFC1123Z,
}

// parseModified parses a getlastmodified property value.
func parseModified(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}

	if t, err := http.ParseTime(value); err == nil {
		return t, true
	}

	for _, layout := range modifiedFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// IsLocalMoreRecent compares the local file's modification time against the
// remote resource's modified property, as Unix seconds. Returns
// FreshnessUnknown when the remote metadata cannot be fetched or its
// timestamp cannot be parsed. Exactly equal timestamps resolve to
// RemoteNewer, so equal copies are not re-uploaded.
func (s *Syncer) IsLocalMoreRecent(ctx context.Context, localPath, remotePath string) Freshness {
	remoteInfo, err := s.client.Info(ctx, remotePath)
	if err != nil {
		s.logger.Debug("freshness unknown: remote metadata unavailable",
			slog.String("remote", remotePath),
			slog.String("error", err.Error()),
		)

		return FreshnessUnknown
	}

	remoteModified, ok := parseModified(remoteInfo.Modified)
	if !ok {
		s.logger.Debug("freshness unknown: unparsable remote timestamp",
			slog.String("remote", remotePath),
			slog.String("modified", remoteInfo.Modified),
		)

		return FreshnessUnknown
	}

	localInfo, err := os.Stat(localPath)
	if err != nil {
		return FreshnessUnknown
	}

	if remoteModified.Unix() < localInfo.ModTime().Unix() {
		return LocalNewer
	}

	return RemoteNewer
}
