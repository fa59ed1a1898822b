package config

import (
	"os"
	"path/filepath"
)

// GetAppDir returns the root directory for gamedash configuration and state.
// It lives under the user's config directory (XDG_CONFIG_HOME on Linux).
func GetAppDir() string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "gamedash")
}

// GetStateDir returns the directory for persistent caches (installed games).
func GetStateDir() string {
	return filepath.Join(GetAppDir(), "state")
}

// GetLogsDir returns the directory for debug logs.
func GetLogsDir() string {
	return filepath.Join(GetAppDir(), "logs")
}

// GetRuntimeDir returns the directory for the instance lock.
func GetRuntimeDir() string {
	return filepath.Join(GetAppDir(), "run")
}

// EnsureDirs creates all gamedash directories.
func EnsureDirs() error {
	for _, dir := range []string{GetAppDir(), GetStateDir(), GetLogsDir(), GetRuntimeDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
