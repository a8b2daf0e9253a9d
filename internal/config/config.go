// Package config implements TOML configuration loading, environment
// overrides, and validation for the WebDAV client. Resolution follows a
// three-layer chain: defaults -> config file -> environment variables.
// CLI flags override on top of the resolved value at the command layer.
package config

import "time"

// Default values applied before any file or environment input.
const (
	DefaultRoot      = "/"
	DefaultTimeout   = 30 * time.Second
	DefaultChunkSize = 64 * 1024
	DefaultParallel  = 3
)

// Settings holds the resolved connection parameters for a WebDAV server.
type Settings struct {
	// Hostname is the server base URL, e.g. "https://dav.example.com".
	Hostname string `toml:"hostname"`
	// Root is the path prefix prepended to every resource path.
	Root string `toml:"root"`

	// Login and Password enable HTTP Basic authentication. Both must be
	// non-empty for the header to be sent.
	Login    string `toml:"login"`
	Password string `toml:"password"`
	// Token enables Bearer authentication and takes precedence over
	// Login/Password when set.
	Token string `toml:"token"`

	// CertPath and KeyPath configure a client TLS certificate pair.
	// Both must be set for the certificate to be attached.
	CertPath string `toml:"cert_path"`
	KeyPath  string `toml:"key_path"`

	// Timeout bounds each individual HTTP request, not whole recursive
	// operations.
	Timeout Duration `toml:"timeout"`

	// RecvSpeed and SendSpeed rate-limit downloads and uploads in bytes
	// per second. Zero means unlimited.
	RecvSpeed int64 `toml:"recv_speed"`
	SendSpeed int64 `toml:"send_speed"`

	// DisableCheck skips remote existence checks before operations, for
	// servers that reject HEAD.
	DisableCheck bool `toml:"disable_check"`

	// ChunkSize is the transfer chunk size in bytes.
	ChunkSize int64 `toml:"chunk_size"`

	// Parallel bounds concurrent transfers for multi-file CLI commands.
	Parallel int `toml:"parallel"`

	Verbose bool `toml:"verbose"`
}

// Duration wraps time.Duration so TOML files can use "30s"-style values.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}

	d.Duration = parsed

	return nil
}

// DefaultSettings returns Settings populated with all default values.
func DefaultSettings() *Settings {
	return &Settings{
		Root:      DefaultRoot,
		Timeout:   Duration{DefaultTimeout},
		ChunkSize: DefaultChunkSize,
		Parallel:  DefaultParallel,
	}
}

// HasAuth reports whether at least one authentication mode is resolvable.
func (s *Settings) HasAuth() bool {
	return s.Token != "" || (s.Login != "" && s.Password != "")
}

// HasClientCert reports whether a complete client certificate pair is
// configured.
func (s *Settings) HasClientCert() bool {
	return s.CertPath != "" && s.KeyPath != ""
}
