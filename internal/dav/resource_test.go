package dav

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davfs/webdav-go/testutil"
)

func TestResource_ReadWriteRoundTrip(t *testing.T) {
	fake := testutil.NewServer()
	client := newTestClient(t, fake)

	res := client.Resource("/notes.txt")
	require.NoError(t, res.ReadFrom(context.Background(), strings.NewReader("note body")))

	var buf bytes.Buffer
	require.NoError(t, res.WriteTo(context.Background(), &buf))
	assert.Equal(t, "note body", buf.String())
}

func TestResource_RenameRebindsHandle(t *testing.T) {
	fake := testutil.NewServer()
	fake.AddFile("/docs/old.txt", "x", time.Now())
	client := newTestClient(t, fake)

	res := client.Resource("/docs/old.txt")
	require.NoError(t, res.Rename(context.Background(), "new.txt"))

	assert.Equal(t, "/docs/new.txt", res.Path())
	assert.False(t, fake.Exists("/docs/old.txt"))

	exists, err := res.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, exists)
}
