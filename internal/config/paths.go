package config

import (
	"os"
	"path/filepath"
)

const appDirName = "webdav-go"

// DefaultConfigPath returns the platform config file location,
// e.g. ~/.config/webdav-go/config.toml on Linux.
func DefaultConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return filepath.Join(".", appDirName, "config.toml")
		}

		base = filepath.Join(home, ".config")
	}

	return filepath.Join(base, appDirName, "config.toml")
}
