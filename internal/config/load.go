package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, applies environment overrides,
// validates, and returns the resulting Settings. Unknown keys are fatal —
// silently ignoring a typo in a config file leads to hard-to-debug behavior.
func Load(path string) (*Settings, error) {
	settings := DefaultSettings()

	md, err := toml.DecodeFile(path, settings)
	if err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}

		return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	applyEnv(settings)

	if err := Validate(settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// Settings built from defaults and environment variables alone. Supports
// fully env-driven use without a config file.
func LoadOrDefault(path string) (*Settings, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		settings := DefaultSettings()
		applyEnv(settings)

		if err := Validate(settings); err != nil {
			return nil, err
		}

		return settings, nil
	}

	return Load(path)
}

// applyEnv overlays WEBDAV_* environment variables onto settings.
// Environment wins over the config file, matching user expectations for
// one-off overrides.
func applyEnv(s *Settings) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	setString("WEBDAV_HOSTNAME", &s.Hostname)
	setString("WEBDAV_ROOT", &s.Root)
	setString("WEBDAV_LOGIN", &s.Login)
	setString("WEBDAV_PASSWORD", &s.Password)
	setString("WEBDAV_TOKEN", &s.Token)
	setString("WEBDAV_CERT_PATH", &s.CertPath)
	setString("WEBDAV_KEY_PATH", &s.KeyPath)

	if v, ok := os.LookupEnv("WEBDAV_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			s.Timeout = Duration{d}
		}
	}

	setInt64 := func(key string, dst *int64) {
		if v, ok := os.LookupEnv(key); ok {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				*dst = n
			}
		}
	}

	setInt64("WEBDAV_RECV_SPEED", &s.RecvSpeed)
	setInt64("WEBDAV_SEND_SPEED", &s.SendSpeed)
}

// Validate checks settings invariants and returns a descriptive error for
// the first violation found.
func Validate(s *Settings) error {
	if s.Hostname == "" {
		return errors.New("config: hostname is required (set hostname in the config file or WEBDAV_HOSTNAME)")
	}

	if !strings.HasPrefix(s.Hostname, "http://") && !strings.HasPrefix(s.Hostname, "https://") {
		return fmt.Errorf("config: hostname %q must start with http:// or https://", s.Hostname)
	}

	if (s.CertPath == "") != (s.KeyPath == "") {
		return errors.New("config: cert_path and key_path must be set together")
	}

	if s.Timeout.Duration <= 0 {
		return fmt.Errorf("config: timeout must be positive, got %s", s.Timeout.Duration)
	}

	if s.ChunkSize <= 0 {
		return fmt.Errorf("config: chunk_size must be positive, got %d", s.ChunkSize)
	}

	if s.RecvSpeed < 0 || s.SendSpeed < 0 {
		return errors.New("config: recv_speed and send_speed must be non-negative")
	}

	if s.Parallel < 1 {
		return fmt.Errorf("config: parallel must be at least 1, got %d", s.Parallel)
	}

	// Root is a path prefix concatenated between hostname and resource
	// path. Normalize so assembly can concatenate blindly: a leading slash
	// when non-empty, never a trailing one ("/" collapses to "").
	if s.Root != "" && !strings.HasPrefix(s.Root, "/") {
		s.Root = "/" + s.Root
	}

	s.Root = strings.TrimSuffix(s.Root, "/")

	return nil
}
