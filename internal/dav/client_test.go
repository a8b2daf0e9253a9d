package dav

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davfs/webdav-go/internal/config"
	"github.com/davfs/webdav-go/testutil"
)

// newTestClient wires a client to a fake server over a real HTTP listener.
// The small chunk size keeps progress tests readable.
func newTestClient(t *testing.T, fake *testutil.Server) *Client {
	t.Helper()

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := NewClient(testSettings(srv.URL), srv.Client(), testLogger())
	require.NoError(t, err)

	return client
}

func testSettings(hostname string) *config.Settings {
	return &config.Settings{
		Hostname:  hostname,
		Timeout:   config.Duration{Duration: 5 * time.Second},
		ChunkSize: 4,
		Parallel:  1,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_StatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{
			name:   "507 insufficient storage",
			status: 507,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrInsufficientStorage)
			},
		},
		{
			name:   "404 not found carries the path",
			status: 404,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNotFound)

				var pathErr *PathError
				require.ErrorAs(t, err, &pathErr)
				assert.Equal(t, "/target.txt", pathErr.Path)
			},
		},
		{
			name:   "423 locked",
			status: 423,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrLocked)
			},
		},
		{
			name:   "405 method not allowed",
			status: 405,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMethodNotSupported)
			},
		},
		{
			name:   "other 4xx/5xx become server errors",
			status: 500,
			check: func(t *testing.T, err error) {
				var srvErr *ServerError
				require.ErrorAs(t, err, &srvErr)
				assert.Equal(t, 500, srvErr.StatusCode)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewServer()
			fake.FailStatus = tt.status
			client := newTestClient(t, fake)

			err := client.Clean(context.Background(), "/target.txt")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClient_BasicAuth(t *testing.T) {
	fake := testutil.NewServer()
	client := newTestClient(t, fake)
	client.settings.Login = "alice"
	client.settings.Password = "secret"

	_, err := client.Check(context.Background(), "/")
	require.NoError(t, err)

	auth := fake.LastHeaders("HEAD").Get("Authorization")
	assert.True(t, len(auth) > 6 && auth[:6] == "Basic ", "expected basic auth, got %q", auth)
}

func TestClient_TokenTakesPrecedenceOverBasic(t *testing.T) {
	fake := testutil.NewServer()
	client := newTestClient(t, fake)
	client.settings.Login = "alice"
	client.settings.Password = "secret"
	client.settings.Token = "tok-123"

	_, err := client.Check(context.Background(), "/")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", fake.LastHeaders("HEAD").Get("Authorization"))
}

func TestClient_UnreachableHost(t *testing.T) {
	srv := httptest.NewServer(testutil.NewServer())
	srv.Close()

	client, err := NewClient(testSettings(srv.URL), nil, testLogger())
	require.NoError(t, err)

	_, err = client.Check(context.Background(), "/")
	assert.ErrorIs(t, err, ErrNoConnection)
}

func TestClient_RequestHeaders(t *testing.T) {
	fake := testutil.NewServer()
	fake.AddDir("/docs")
	client := newTestClient(t, fake)

	_, err := client.List(context.Background(), "/docs/", false)
	require.NoError(t, err)

	headers := fake.LastHeaders("PROPFIND")
	assert.Equal(t, "1", headers.Get("Depth"))
	assert.Equal(t, userAgent, headers.Get("User-Agent"))

	_, err = client.List(context.Background(), "/docs/", true)
	require.NoError(t, err)
	assert.Equal(t, "infinity", fake.LastHeaders("PROPFIND").Get("Depth"))
}

func TestClient_ContextCancellation(t *testing.T) {
	fake := testutil.NewServer()
	client := newTestClient(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Check(ctx, "/")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled) || errors.Is(err, ErrRequest))
}
