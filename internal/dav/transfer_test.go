package dav

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davfs/webdav-go/testutil"
)

// progressLog records progress callbacks for assertions.
type progressLog struct {
	calls [][2]int64
}

func (p *progressLog) record(current, total int64) {
	p.calls = append(p.calls, [2]int64{current, total})
}

func TestDownloadFile(t *testing.T) {
	fake := testutil.NewServer()
	fake.AddFile("/docs/data.bin", "abcdefghij", time.Now())
	client := newTestClient(t, fake)

	local := filepath.Join(t.TempDir(), "data.bin")
	var progress progressLog

	err := client.DownloadFile(context.Background(), "/docs/data.bin", local, progress.record)
	require.NoError(t, err)

	content, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, "abcdefghij", string(content))

	// Zero call before the first chunk, then chunk-size increments; the
	// final call may overstate, but never regress.
	require.NotEmpty(t, progress.calls)
	assert.Equal(t, [2]int64{0, 10}, progress.calls[0])

	last := int64(-1)
	for _, call := range progress.calls {
		assert.GreaterOrEqual(t, call[0], last)
		assert.Equal(t, int64(10), call[1])
		last = call[0]
	}

	assert.GreaterOrEqual(t, last, int64(10))
}

func TestDownloadFile_MissingRemoteIssuesNoGet(t *testing.T) {
	fake := testutil.NewServer()
	client := newTestClient(t, fake)

	local := filepath.Join(t.TempDir(), "out.bin")

	err := client.DownloadFile(context.Background(), "/absent.bin", local, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, fake.CallsFor("GET"))

	_, statErr := os.Stat(local)
	assert.True(t, os.IsNotExist(statErr), "no local file may be created on failure")
}

func TestDownloadFile_RejectsDirectoryTargets(t *testing.T) {
	fake := testutil.NewServer()
	fake.AddDir("/folder")
	client := newTestClient(t, fake)

	err := client.DownloadFile(context.Background(), "/folder", filepath.Join(t.TempDir(), "out"), nil)
	assert.ErrorIs(t, err, ErrInvalidOption)

	err = client.DownloadFile(context.Background(), "/folder", t.TempDir(), nil)
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestDownloadTo(t *testing.T) {
	fake := testutil.NewServer()
	fake.AddFile("/stream.txt", "streamed content", time.Now())
	client := newTestClient(t, fake)

	var buf bytes.Buffer
	err := client.DownloadTo(context.Background(), "/stream.txt", &buf, nil)
	require.NoError(t, err)
	assert.Equal(t, "streamed content", buf.String())
}

func TestDownloadDirectory(t *testing.T) {
	fake := testutil.NewServer()
	fake.AddFile("/docs/a.txt", "aaa", time.Now())
	fake.AddFile("/docs/sub/b.txt", "bbb", time.Now())
	client := newTestClient(t, fake)

	local := filepath.Join(t.TempDir(), "docs")
	require.NoError(t, os.MkdirAll(local, 0o755))
	stale := filepath.Join(local, "stale.txt")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	err := client.DownloadDirectory(context.Background(), "/docs/", local, nil)
	require.NoError(t, err)

	// Destructive recreate: stale local entries are gone, the remote tree
	// is mirrored.
	_, statErr := os.Stat(stale)
	assert.True(t, os.IsNotExist(statErr))

	content, err := os.ReadFile(filepath.Join(local, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "aaa", string(content))

	content, err = os.ReadFile(filepath.Join(local, "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "bbb", string(content))
}

func TestUploadFile(t *testing.T) {
	fake := testutil.NewServer()
	client := newTestClient(t, fake)

	local := filepath.Join(t.TempDir(), "up.txt")
	require.NoError(t, os.WriteFile(local, []byte("uploaded body"), 0o644))

	var progress progressLog
	err := client.UploadFile(context.Background(), local, "/up.txt", progress.record, false)
	require.NoError(t, err)

	assert.Equal(t, "uploaded body", fake.Content("/up.txt"))

	require.NotEmpty(t, progress.calls)
	assert.Equal(t, [2]int64{0, 13}, progress.calls[0])
	assert.GreaterOrEqual(t, progress.calls[len(progress.calls)-1][0], int64(13))
}

func TestUploadFile_ParentMissing(t *testing.T) {
	fake := testutil.NewServer()
	client := newTestClient(t, fake)

	local := filepath.Join(t.TempDir(), "up.txt")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0o644))

	err := client.UploadFile(context.Background(), local, "/a/b/up.txt", nil, false)
	assert.ErrorIs(t, err, ErrParentNotFound)
	assert.Empty(t, fake.CallsFor("PUT"))
}

func TestUploadFile_ForceCreatesAncestors(t *testing.T) {
	fake := testutil.NewServer()
	client := newTestClient(t, fake)

	local := filepath.Join(t.TempDir(), "up.txt")
	require.NoError(t, os.WriteFile(local, []byte("forced"), 0o644))

	err := client.UploadFile(context.Background(), local, "/a/b/up.txt", nil, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"MKCOL /a/", "MKCOL /a/b/"}, fake.CallsFor("MKCOL"))
	assert.Equal(t, "forced", fake.Content("/a/b/up.txt"))
}

func TestUploadFile_MissingLocal(t *testing.T) {
	fake := testutil.NewServer()
	client := newTestClient(t, fake)

	err := client.UploadFile(context.Background(), filepath.Join(t.TempDir(), "nope.txt"), "/up.txt", nil, false)
	assert.ErrorIs(t, err, ErrLocalNotFound)
}

func TestUploadFile_RejectsDirectoryRemotePath(t *testing.T) {
	fake := testutil.NewServer()
	client := newTestClient(t, fake)

	local := filepath.Join(t.TempDir(), "up.txt")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0o644))

	err := client.UploadFile(context.Background(), local, "/dir/", nil, false)
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestUploadFrom(t *testing.T) {
	fake := testutil.NewServer()
	client := newTestClient(t, fake)

	err := client.UploadFrom(context.Background(), strings.NewReader("from reader"), "/r.txt")
	require.NoError(t, err)
	assert.Equal(t, "from reader", fake.Content("/r.txt"))
}

func TestUploadDirectory_ReplacesRemote(t *testing.T) {
	fake := testutil.NewServer()
	fake.AddFile("/dst/old.txt", "old", time.Now())
	client := newTestClient(t, fake)

	local := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(local, "new.txt"), []byte("new"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(local, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(local, "nested", "deep.txt"), []byte("deep"), 0o644))

	err := client.UploadDirectory(context.Background(), local, "/dst/", nil)
	require.NoError(t, err)

	assert.False(t, fake.Exists("/dst/old.txt"))
	assert.Equal(t, "new", fake.Content("/dst/new.txt"))
	assert.Equal(t, "deep", fake.Content("/dst/nested/deep.txt"))
}
