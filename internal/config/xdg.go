// Package config resolves studylog's XDG locations and reads its TOML file.
package config

import (
	"os"
	"path/filepath"
)

const appName = "studylog"

// XDGConfigHome returns $XDG_CONFIG_HOME, falling back to ~/.config.
func XDGConfigHome() string {
	return xdgHome("XDG_CONFIG_HOME", ".config")
}

// XDGDataHome returns $XDG_DATA_HOME, falling back to ~/.local/share.
func XDGDataHome() string {
	return xdgHome("XDG_DATA_HOME", ".local", "share")
}

// xdgHome reads env and otherwise joins fallback onto the home directory.
// Without a home directory the working directory is used.
func xdgHome(env string, fallback ...string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

// DefaultDataDir is where the file backend keeps <key>.json documents.
func DefaultDataDir() string {
	return filepath.Join(XDGDataHome(), appName)
}

// DefaultDBPath returns the default SQLite database path.
func DefaultDBPath() string {
	return filepath.Join(DefaultDataDir(), appName+".db")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), appName, "config.toml")
}
