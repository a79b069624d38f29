package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	appName      = "unipkg"
	configFile   = "config.toml"
	historyFile  = "history.db"
	settingsFile = "settings.db"
	ignoredFile  = "ignored-updates.yaml"
)

// HomeEnv, when set, holds both the configuration and the data of unipkg.
const HomeEnv = "UNIPKG_HOME"

// ConfigDir returns the configuration directory:
// $UNIPKG_HOME, %APPDATA%\unipkg, ~/Library/Application Support/unipkg
// or $XDG_CONFIG_HOME/unipkg (default ~/.config/unipkg).
func ConfigDir() string {
	return appDir("APPDATA", "XDG_CONFIG_HOME", ".config")
}

// DataDir returns the directory of the settings, history and ignored-updates
// stores. It follows ConfigDir with %LOCALAPPDATA% and $XDG_DATA_HOME.
func DataDir() string {
	return appDir("LOCALAPPDATA", "XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func appDir(windowsEnv, xdgEnv, fallback string) string {
	if home := os.Getenv(HomeEnv); home != "" {
		return home
	}
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv(windowsEnv), appName)
	case "darwin":
		home, _ := os.UserHomeDir() //nolint:errcheck
		return filepath.Join(home, "Library", "Application Support", appName)
	}
	if xdg := os.Getenv(xdgEnv); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, _ := os.UserHomeDir() //nolint:errcheck
	return filepath.Join(home, fallback, appName)
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), configFile)
}

// HistoryPath returns the full path to the history database.
func HistoryPath() string {
	return filepath.Join(DataDir(), historyFile)
}

// SettingsPath returns the full path to the settings database.
func SettingsPath() string {
	return filepath.Join(DataDir(), settingsFile)
}

// IgnoredUpdatesPath returns the full path to the ignored-updates document.
func IgnoredUpdatesPath() string {
	return filepath.Join(DataDir(), ignoredFile)
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0755)
}
