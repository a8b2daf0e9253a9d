package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
hostname = "https://dav.example.com"
login = "alice"
password = "secret"
timeout = "5s"
chunk_size = 1024
`)

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://dav.example.com", settings.Hostname)
	assert.Equal(t, "alice", settings.Login)
	assert.Equal(t, 5*time.Second, settings.Timeout.Duration)
	assert.Equal(t, int64(1024), settings.ChunkSize)

	// Untouched fields keep their defaults.
	assert.Equal(t, DefaultParallel, settings.Parallel)
	assert.True(t, settings.HasAuth())
}

func TestLoad_UnknownKeyIsFatal(t *testing.T) {
	path := writeConfig(t, `
hostname = "https://dav.example.com"
hostnme = "typo"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hostnme")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
hostname = "https://file.example.com"
login = "file-user"
`)

	t.Setenv("WEBDAV_HOSTNAME", "https://env.example.com")
	t.Setenv("WEBDAV_PASSWORD", "env-secret")
	t.Setenv("WEBDAV_TIMEOUT", "90s")
	t.Setenv("WEBDAV_RECV_SPEED", "1048576")

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", settings.Hostname)
	assert.Equal(t, "file-user", settings.Login)
	assert.Equal(t, "env-secret", settings.Password)
	assert.Equal(t, 90*time.Second, settings.Timeout.Duration)
	assert.Equal(t, int64(1048576), settings.RecvSpeed)
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	t.Setenv("WEBDAV_HOSTNAME", "https://env.example.com")

	settings, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", settings.Hostname)
	assert.Equal(t, DefaultTimeout, settings.Timeout.Duration)
	assert.Equal(t, int64(DefaultChunkSize), settings.ChunkSize)
}

func TestValidate(t *testing.T) {
	valid := func() *Settings {
		s := DefaultSettings()
		s.Hostname = "https://dav.example.com"

		return s
	}

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{
			name:    "missing hostname",
			mutate:  func(s *Settings) { s.Hostname = "" },
			wantErr: "hostname is required",
		},
		{
			name:    "hostname without scheme",
			mutate:  func(s *Settings) { s.Hostname = "dav.example.com" },
			wantErr: "must start with http",
		},
		{
			name:    "cert without key",
			mutate:  func(s *Settings) { s.CertPath = "/tmp/cert.pem" },
			wantErr: "must be set together",
		},
		{
			name:    "non-positive timeout",
			mutate:  func(s *Settings) { s.Timeout = Duration{} },
			wantErr: "timeout must be positive",
		},
		{
			name:    "non-positive chunk size",
			mutate:  func(s *Settings) { s.ChunkSize = 0 },
			wantErr: "chunk_size must be positive",
		},
		{
			name:    "negative speed",
			mutate:  func(s *Settings) { s.RecvSpeed = -1 },
			wantErr: "non-negative",
		},
		{
			name:    "parallel below one",
			mutate:  func(s *Settings) { s.Parallel = 0 },
			wantErr: "parallel must be at least 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)

			err := Validate(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_NormalizesRoot(t *testing.T) {
	tests := []struct {
		root string
		want string
	}{
		{"/", ""},
		{"", ""},
		{"remote.php/dav", "/remote.php/dav"},
		{"/remote.php/dav/", "/remote.php/dav"},
	}

	for _, tt := range tests {
		s := DefaultSettings()
		s.Hostname = "https://dav.example.com"
		s.Root = tt.root

		require.NoError(t, Validate(s))
		assert.Equal(t, tt.want, s.Root, "root %q", tt.root)
	}
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration)

	assert.Error(t, d.UnmarshalText([]byte("not a duration")))
}
