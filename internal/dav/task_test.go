package dav

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davfs/webdav-go/testutil"
)

func TestTask_Success(t *testing.T) {
	var callbackRan atomic.Bool

	task := Start(func() error { return nil }, func() { callbackRan.Store(true) })

	require.NoError(t, task.Wait())
	assert.True(t, callbackRan.Load())

	select {
	case <-task.Done():
	default:
		t.Fatal("Done channel must be closed after Wait returns")
	}
}

func TestTask_FailureRunsCallback(t *testing.T) {
	sentinel := errors.New("boom")
	var callbackRan atomic.Bool

	task := Start(func() error { return sentinel }, func() { callbackRan.Store(true) })

	assert.ErrorIs(t, task.Wait(), sentinel)
	assert.True(t, callbackRan.Load(), "callback runs regardless of outcome")
	assert.ErrorIs(t, task.Err(), sentinel)
}

func TestTask_ErrBeforeCompletion(t *testing.T) {
	release := make(chan struct{})
	task := Start(func() error {
		<-release
		return nil
	}, nil)

	// Still running: Err must not block and must report nothing.
	assert.NoError(t, task.Err())

	close(release)
	require.NoError(t, task.Wait())
}

func TestDownloadToAsync(t *testing.T) {
	fake := testutil.NewServer()
	fake.AddFile("/async.txt", "async body", time.Now())
	client := newTestClient(t, fake)

	var buf bytes.Buffer
	task := client.DownloadToAsync(context.Background(), "/async.txt", &buf, nil, nil)

	require.NoError(t, task.Wait())
	assert.Equal(t, "async body", buf.String())
}

func TestDownloadAsync_FailureIsObservable(t *testing.T) {
	fake := testutil.NewServer()
	client := newTestClient(t, fake)

	var buf bytes.Buffer
	task := client.DownloadToAsync(context.Background(), "/absent.txt", &buf, nil, nil)

	assert.ErrorIs(t, task.Wait(), ErrNotFound)
}
