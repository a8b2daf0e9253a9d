package dav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/davfs/webdav-go/internal/urn"
)

// lockBody requests an exclusive write lock.
const lockBody = `<D:lockinfo xmlns:D='DAV:'><D:lockscope><D:exclusive/></D:lockscope><D:locktype><D:write/></D:locktype></D:lockinfo>`

// LockClient is a client bound to a held exclusive write lock. Every
// request issued through it carries the Lock-Token and If headers for the
// server-issued token. It shares the transport of the client that acquired
// the lock. Release with Unlock; prefer WithLock, which guarantees release
// on every exit path.
type LockClient struct {
	*Client

	lockPath string
}

// Lock acquires an exclusive write lock on a remote path. A positive
// timeout bounds the lease duration; zero requests an infinite lease.
func (c *Client) Lock(ctx context.Context, remotePath string, timeout time.Duration) (*LockClient, error) {
	u := urn.New(remotePath, false)

	var extra http.Header
	if timeout > 0 {
		extra = http.Header{
			"Timeout": []string{fmt.Sprintf("Second-%d", int(timeout.Seconds()))},
		}
	}

	resp, err := c.execute(ctx, ActionLock, u.Quote(), strings.NewReader(lockBody), extra)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	token := resp.Header.Get("Lock-Token")
	if token == "" {
		return nil, &MethodError{Action: string(ActionLock), Server: c.settings.Hostname}
	}

	c.logger.Debug("acquired lock",
		slog.String("path", u.Path()),
		slog.String("token", token),
	)

	locked := *c
	locked.lockToken = token

	return &LockClient{Client: &locked, lockPath: u.Quote()}, nil
}

// Unlock releases the held lock.
func (lc *LockClient) Unlock(ctx context.Context) error {
	resp, err := lc.execute(ctx, ActionUnlock, lc.lockPath, nil, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()

	lc.logger.Debug("released lock", slog.String("path", lc.lockPath))

	return nil
}

// WithLock acquires an exclusive write lock on remotePath, runs fn with the
// lock-scoped client, and releases the lock whether fn succeeded, failed,
// or panicked. The unlock error is reported only when fn itself succeeded.
func (c *Client) WithLock(ctx context.Context, remotePath string, timeout time.Duration, fn func(*LockClient) error) (err error) {
	locked, err := c.Lock(ctx, remotePath, timeout)
	if err != nil {
		return err
	}

	defer func() {
		unlockErr := locked.Unlock(ctx)
		if err == nil {
			err = unlockErr
		}
	}()

	return fn(locked)
}
