package dav

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davfs/webdav-go/testutil"
)

func TestLock_ScopedRequestsCarryToken(t *testing.T) {
	fake := testutil.NewServer()
	fake.AddFile("/shared.txt", "x", time.Now())
	client := newTestClient(t, fake)

	locked, err := client.Lock(context.Background(), "/shared.txt", 30*time.Second)
	require.NoError(t, err)

	assert.Equal(t, "Second-30", fake.LastHeaders("LOCK").Get("Timeout"))

	require.NoError(t, locked.Clean(context.Background(), "/shared.txt"))
	headers := fake.LastHeaders("DELETE")
	assert.Equal(t, fake.LockToken, headers.Get("Lock-Token"))
	assert.Equal(t, "("+fake.LockToken+")", headers.Get("If"))

	require.NoError(t, locked.Unlock(context.Background()))
	assert.Equal(t, fake.LockToken, fake.LastHeaders("UNLOCK").Get("Lock-Token"))
}

func TestLock_UnscopedClientStaysClean(t *testing.T) {
	fake := testutil.NewServer()
	fake.AddFile("/shared.txt", "x", time.Now())
	client := newTestClient(t, fake)

	locked, err := client.Lock(context.Background(), "/shared.txt", 0)
	require.NoError(t, err)

	// Zero timeout requests an infinite lease: no Timeout header.
	assert.Empty(t, fake.LastHeaders("LOCK").Get("Timeout"))

	// The originating client must not inherit the token.
	exists, err := client.Check(context.Background(), "/shared.txt")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Empty(t, fake.LastHeaders("HEAD").Get("Lock-Token"))

	require.NoError(t, locked.Unlock(context.Background()))
}

func TestLock_MissingTokenInResponse(t *testing.T) {
	fake := testutil.NewServer()
	fake.AddFile("/shared.txt", "x", time.Now())
	fake.LockToken = ""
	client := newTestClient(t, fake)

	_, err := client.Lock(context.Background(), "/shared.txt", 0)
	assert.ErrorIs(t, err, ErrMethodNotSupported)
}

func TestWithLock_ReleasesOnSuccess(t *testing.T) {
	fake := testutil.NewServer()
	fake.AddFile("/shared.txt", "x", time.Now())
	client := newTestClient(t, fake)

	err := client.WithLock(context.Background(), "/shared.txt", 0, func(locked *LockClient) error {
		return locked.Clean(context.Background(), "/shared.txt")
	})
	require.NoError(t, err)

	assert.Len(t, fake.CallsFor("UNLOCK"), 1)
	assert.False(t, fake.Exists("/shared.txt"))
}

func TestWithLock_ReleasesOnError(t *testing.T) {
	fake := testutil.NewServer()
	fake.AddFile("/shared.txt", "x", time.Now())
	client := newTestClient(t, fake)

	sentinel := errors.New("work failed")

	err := client.WithLock(context.Background(), "/shared.txt", 0, func(*LockClient) error {
		return sentinel
	})

	// The work error wins; the lock is still released.
	assert.ErrorIs(t, err, sentinel)
	assert.Len(t, fake.CallsFor("UNLOCK"), 1)
}

func TestWithLock_AcquisitionFailure(t *testing.T) {
	fake := testutil.NewServer()
	client := newTestClient(t, fake)

	called := false

	err := client.WithLock(context.Background(), "/absent.txt", 0, func(*LockClient) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, called, "fn must not run when the lock was never acquired")
	assert.Empty(t, fake.CallsFor("UNLOCK"))
}
