package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestDefaultDirs(t *testing.T) {
	t.Setenv(HomeEnv, "")

	for name, dir := range map[string]string{"config": ConfigDir(), "data": DataDir()} {
		if !strings.HasSuffix(dir, appName) {
			t.Errorf("%s dir should end with %q: %s", name, appName, dir)
		}
	}

	switch runtime.GOOS {
	case "windows":
		if !strings.Contains(strings.ToLower(ConfigDir()), "appdata") {
			t.Errorf("ConfigDir() should be in APPDATA: %s", ConfigDir())
		}
	case "darwin":
		if !strings.Contains(ConfigDir(), filepath.Join("Library", "Application Support")) {
			t.Errorf("ConfigDir() should be in Application Support: %s", ConfigDir())
		}
	}
}

func TestHomeOverride(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)

	tests := []struct {
		name string
		path string
		want string
	}{
		{"config", ConfigPath(), filepath.Join(home, "config.toml")},
		{"history", HistoryPath(), filepath.Join(home, "history.db")},
		{"settings", SettingsPath(), filepath.Join(home, "settings.db")},
		{"ignored", IgnoredUpdatesPath(), filepath.Join(home, "ignored-updates.yaml")},
	}
	for _, tt := range tests {
		if tt.path != tt.want {
			t.Errorf("%s path = %s, want %s", tt.name, tt.path, tt.want)
		}
	}
}

func TestXDGDirs(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG not used on this platform")
	}
	tmp := t.TempDir()
	t.Setenv(HomeEnv, "")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmp, "data"))

	if got := ConfigDir(); got != filepath.Join(tmp, "config", appName) {
		t.Errorf("ConfigDir() = %s", got)
	}
	if got := DataDir(); got != filepath.Join(tmp, "data", appName) {
		t.Errorf("DataDir() = %s", got)
	}

	t.Setenv("XDG_DATA_HOME", "")
	if got := DataDir(); !strings.HasSuffix(got, filepath.Join(".local", "share", appName)) {
		t.Errorf("DataDir() without XDG_DATA_HOME = %s", got)
	}
}

func TestEnsureDataDir(t *testing.T) {
	home := filepath.Join(t.TempDir(), "nested")
	t.Setenv(HomeEnv, home)

	if err := EnsureDataDir(); err != nil {
		t.Fatalf("EnsureDataDir() error: %v", err)
	}
	info, err := os.Stat(home)
	if err != nil || !info.IsDir() {
		t.Fatalf("data directory not created: %v", err)
	}
}
