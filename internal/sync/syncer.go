package sync

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/davfs/webdav-go/internal/dav"
	"github.com/davfs/webdav-go/internal/urn"
)

// Syncer reconciles a local directory with a remote one. It is stateless
// between invocations: every run re-derives decisions from listings and
// timestamps, and results go no further than the two trees themselves.
type Syncer struct {
	client *dav.Client
	logger *slog.Logger
}

// New creates a Syncer driving the given client.
func New(client *dav.Client) *Syncer {
	return &Syncer{client: client, logger: client.Logger()}
}

// Push uploads local changes into the remote directory. Local
// subdirectories are created remotely when absent and recursed into. A
// local file is skipped when it already exists remotely and the freshness
// decision is not LocalNewer — an Unknown decision never overwrites.
// Reports whether any change was made.
func (s *Syncer) Push(ctx context.Context, remoteDir, localDir string) (bool, error) {
	dir := urn.New(remoteDir, true)

	if err := s.validateRoots(ctx, dir, localDir); err != nil {
		return false, err
	}

	remoteNames, err := s.client.List(ctx, dir.Path(), false)
	if err != nil {
		return false, err
	}

	remoteFiles := make(map[string]bool, len(remoteNames))
	for _, name := range remoteNames {
		remoteFiles[strings.TrimSuffix(name, urn.Separator)] = true
	}

	entries, err := os.ReadDir(localDir)
	if err != nil {
		return false, &dav.PathError{Path: localDir, Err: dav.ErrLocalNotFound}
	}

	updated := false

	for _, entry := range entries {
		localPath := filepath.Join(localDir, entry.Name())
		remotePath := dir.Path() + entry.Name()

		if entry.IsDir() {
			exists, checkErr := s.client.Check(ctx, remotePath)
			if checkErr != nil {
				return updated, checkErr
			}

			if !exists {
				if mkErr := s.client.MkDir(ctx, remotePath, false); mkErr != nil {
					return updated, mkErr
				}
			}

			changed, pushErr := s.Push(ctx, remotePath, localPath)
			if pushErr != nil {
				return updated, pushErr
			}

			updated = updated || changed

			continue
		}

		if remoteFiles[entry.Name()] {
			if s.IsLocalMoreRecent(ctx, localPath, remotePath) != LocalNewer {
				continue
			}
		}

		if upErr := s.client.UploadFile(ctx, localPath, remotePath, nil, false); upErr != nil {
			return updated, upErr
		}

		s.logger.Info("pushed file",
			slog.String("local", localPath),
			slog.String("remote", remotePath),
		)

		updated = true
	}

	return updated, nil
}

// Pull downloads remote changes into the local directory, mirroring Push:
// missing local directories are created and recursed into, and a remote
// file is skipped when the local copy exists and is at least as recent
// (LocalNewer). Reports whether any change was made.
func (s *Syncer) Pull(ctx context.Context, remoteDir, localDir string) (bool, error) {
	dir := urn.New(remoteDir, true)

	if err := s.validateRoots(ctx, dir, localDir); err != nil {
		return false, err
	}

	remoteEntries, err := s.client.ListInfo(ctx, dir.Path(), false)
	if err != nil {
		return false, err
	}

	localNames := make(map[string]bool)

	localEntries, err := os.ReadDir(localDir)
	if err != nil {
		return false, &dav.PathError{Path: localDir, Err: dav.ErrLocalNotFound}
	}

	for _, entry := range localEntries {
		localNames[entry.Name()] = true
	}

	updated := false

	for _, remote := range remoteEntries {
		name := urn.New(remote.Path, remote.IsDir).Filename()
		localPath := filepath.Join(localDir, name)
		remotePath := dir.Path() + name

		if remote.IsDir {
			if _, statErr := os.Stat(localPath); os.IsNotExist(statErr) {
				if mkErr := os.Mkdir(localPath, 0o755); mkErr != nil {
					return updated, mkErr
				}

				updated = true
			}

			changed, pullErr := s.Pull(ctx, remotePath+urn.Separator, localPath)
			if pullErr != nil {
				return updated, pullErr
			}

			updated = updated || changed

			continue
		}

		if localNames[name] {
			if s.IsLocalMoreRecent(ctx, localPath, remotePath) == LocalNewer {
				continue
			}
		}

		if dlErr := s.client.DownloadFile(ctx, remotePath, localPath, nil); dlErr != nil {
			return updated, dlErr
		}

		s.logger.Info("pulled file",
			slog.String("remote", remotePath),
			slog.String("local", localPath),
		)

		updated = true
	}

	return updated, nil
}

// Sync reconciles both directions: pull first, then push. A file updated on
// both sides resolves per the individual operations' freshness checks. This
// is best-effort reconciliation, not a transactional merge.
func (s *Syncer) Sync(ctx context.Context, remoteDir, localDir string) (bool, error) {
	pulled, err := s.Pull(ctx, remoteDir, localDir)
	if err != nil {
		return pulled, err
	}

	pushed, err := s.Push(ctx, remoteDir, localDir)

	return pulled || pushed, err
}

// SyncAsync runs Sync on a background goroutine, returning the task
// immediately. callback, when non-nil, runs on completion.
func (s *Syncer) SyncAsync(ctx context.Context, remoteDir, localDir string, callback func()) *dav.Task {
	return dav.Start(func() error {
		_, err := s.Sync(ctx, remoteDir, localDir)

		return err
	}, callback)
}

// validateRoots enforces the recursion preconditions: the remote root must
// exist and be a directory, and the local root must exist and be a
// directory.
func (s *Syncer) validateRoots(ctx context.Context, remote urn.URN, localDir string) error {
	isDir, err := s.client.IsDir(ctx, remote.Path())
	if err != nil {
		return err
	}

	if !isDir {
		return &dav.OptionError{Name: "remote_path", Value: remote.Path()}
	}

	info, err := os.Stat(localDir)
	if err != nil {
		return &dav.PathError{Path: localDir, Err: dav.ErrLocalNotFound}
	}

	if !info.IsDir() {
		return &dav.OptionError{Name: "local_path", Value: localDir}
	}

	return nil
}
