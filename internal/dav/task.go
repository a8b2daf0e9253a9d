package dav

import (
	"context"
	"io"
)

// Task is an in-flight asynchronous transfer. It is a one-shot future: the
// launching call returns immediately, the transfer runs on its own
// goroutine, and the outcome is observable through Done and Wait. Callers
// that never wait get fire-and-forget semantics; the failure is then simply
// never observed. There is no cancellation beyond the context passed at
// launch, and no ordering guarantee between tasks.
type Task struct {
	done chan struct{}
	err  error
}

// Start launches fn on its own goroutine and returns its Task. The optional
// callback is invoked with no arguments when fn completes, regardless of
// outcome. Packages layering on the client (the directory synchronizer) use
// Start for their own asynchronous forms.
func Start(fn func() error, callback func()) *Task {
	task := &Task{done: make(chan struct{})}

	go func() {
		defer close(task.done)

		task.err = fn()

		if callback != nil {
			callback()
		}
	}()

	return task
}

// Done returns a channel closed when the transfer completes or fails.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the transfer finishes and returns its error, if any.
func (t *Task) Wait() error {
	<-t.done

	return t.err
}

// Err returns the transfer outcome without blocking. It is only meaningful
// after Done is closed.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// DownloadAsync launches Download on a background goroutine and returns the
// task immediately. callback, when non-nil, runs on completion.
func (c *Client) DownloadAsync(ctx context.Context, remotePath, localPath string, progress Progress, callback func()) *Task {
	return Start(func() error {
		return c.Download(ctx, remotePath, localPath, progress)
	}, callback)
}

// UploadAsync launches Upload on a background goroutine and returns the
// task immediately. callback, when non-nil, runs on completion.
func (c *Client) UploadAsync(ctx context.Context, localPath, remotePath string, progress Progress, callback func()) *Task {
	return Start(func() error {
		return c.Upload(ctx, localPath, remotePath, progress)
	}, callback)
}

// DownloadToAsync launches DownloadTo on a background goroutine. The writer
// must remain valid until the task completes.
func (c *Client) DownloadToAsync(ctx context.Context, remotePath string, w io.Writer, progress Progress, callback func()) *Task {
	return Start(func() error {
		return c.DownloadTo(ctx, remotePath, w, progress)
	}, callback)
}
