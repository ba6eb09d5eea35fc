// Package where implements a cross-platform resolver for application-specific filesystem paths.
package where

import (
	"os"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/voicepages/voicepages/constant"
	"github.com/voicepages/voicepages/filesystem"
)

// EnvConfigPath is the environment variable identifier used to override the default configuration directory.
const EnvConfigPath = "VOICEPAGES_CONFIG_PATH"

func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config resolves the absolute path to the primary application configuration directory.
// It prioritizes the XDG_CONFIG_HOME specification on Linux and equivalent user profile paths on Darwin and Windows.
// The path can be overridden with the VOICEPAGES_CONFIG_PATH environment variable.
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return ensureDir(custom)
	}

	base := lo.Must(os.UserConfigDir())
	return ensureDir(filepath.Join(base, constant.App))
}

// Cache resolves the absolute path to the application's persistent cache directory.
func Cache() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = filepath.Join(".", "cache")
	}
	return ensureDir(filepath.Join(base, constant.App))
}

// Audio resolves the directory holding cached chapter audio.
func Audio() string {
	return ensureDir(filepath.Join(Cache(), "audio"))
}

// Logs resolves the absolute path to the directory used for application diagnostic logs.
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}

// History resolves the path to the local listening history file.
func History() string {
	return filepath.Join(Config(), "history.json")
}

// Queries resolves the absolute path to the book suggestion registry.
func Queries() string {
	return filepath.Join(Cache(), "queries.json")
}

// Temp resolves the directory for transient playback sources.
func Temp() string {
	return ensureDir(filepath.Join(os.TempDir(), constant.App))
}

// Preferences resolves the path to the file remembering playback speed and volume.
func Preferences() string {
	return filepath.Join(Config(), "playback.json")
}

// PendingBookmarks resolves the path to the bookmarks that could not be saved on the server.
func PendingBookmarks() string {
	return filepath.Join(Config(), "pending_bookmarks.json")
}
