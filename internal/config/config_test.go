package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.General.MaxAttempts != 4 {
		t.Errorf("expected MaxAttempts 4, got %d", cfg.General.MaxAttempts)
	}
	if cfg.SourceRetention() != 15*time.Second {
		t.Errorf("expected source retention 15s, got %v", cfg.SourceRetention())
	}
	if cfg.ListingRetention() != 5*time.Second {
		t.Errorf("expected listing retention 5s, got %v", cfg.ListingRetention())
	}
	if len(cfg.General.ManagerOrder) != 0 {
		t.Errorf("expected empty manager order, got %v", cfg.General.ManagerOrder)
	}

	if !cfg.Output.Color {
		t.Error("expected Color to be true by default")
	}
	if cfg.Output.Verbose {
		t.Error("expected Verbose to be false by default")
	}
	if cfg.General.AutoConfirm {
		t.Error("expected AutoConfirm to be false by default")
	}
	if cfg.General.AutoUpdate {
		t.Error("expected AutoUpdate to be false by default")
	}
}

func TestMaxAttempts(t *testing.T) {
	tests := []struct {
		configured int
		expected   int
	}{
		{0, 1},
		{-3, 1},
		{1, 1},
		{6, 6},
	}

	for _, tt := range tests {
		cfg := &Config{General: GeneralConfig{MaxAttempts: tt.configured}}
		if got := cfg.MaxAttempts(); got != tt.expected {
			t.Errorf("MaxAttempts() with %d = %d, want %d", tt.configured, got, tt.expected)
		}
	}
}

func TestResolveAlias(t *testing.T) {
	cfg := &Config{
		Aliases: map[string]string{
			"vim":  "neovim",
			"code": "Microsoft.VisualStudioCode",
		},
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"vim", "neovim"},
		{"code", "Microsoft.VisualStudioCode"},
		{"git", "git"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := cfg.ResolveAlias(tt.input); result != tt.expected {
				t.Errorf("ResolveAlias(%s) = %s, want %s", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGetManagerConfig(t *testing.T) {
	cfg := &Config{
		Managers: map[string]ManagerConfig{
			"chocolatey": {AlwaysElevate: true},
			"pip":        {DefaultScope: "user"},
		},
	}

	if !cfg.GetManagerConfig("chocolatey").AlwaysElevate {
		t.Error("expected chocolatey AlwaysElevate")
	}
	if cfg.GetManagerConfig("pip").DefaultScope != "user" {
		t.Error("expected pip default scope 'user'")
	}

	// Non-existing manager returns empty config
	if got := cfg.GetManagerConfig("cargo"); got != (ManagerConfig{}) {
		t.Errorf("expected empty config, got %+v", got)
	}
}

func TestShouldUseColor(t *testing.T) {
	cfg := &Config{
		Output: OutputConfig{Color: true},
	}

	t.Setenv("NO_COLOR", "")
	os.Unsetenv("NO_COLOR")
	if !cfg.ShouldUseColor() {
		t.Error("expected ShouldUseColor() to return true")
	}

	t.Setenv("NO_COLOR", "1")
	if cfg.ShouldUseColor() {
		t.Error("expected ShouldUseColor() to return false when NO_COLOR is set")
	}
	os.Unsetenv("NO_COLOR")

	cfg.Output.Color = false
	if cfg.ShouldUseColor() {
		t.Error("expected ShouldUseColor() to return false when Color is false")
	}
}

func TestLoadSaveConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Aliases["test"] = "test-package"
	cfg.General.ManagerOrder = []string{"scoop", "winget"}
	cfg.Managers["scoop"] = ManagerConfig{AlwaysElevate: true}

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("SaveTo() error: %v", err)
	}

	loaded, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}

	if loaded.ResolveAlias("test") != "test-package" {
		t.Error("loaded config doesn't have expected alias")
	}
	if len(loaded.General.ManagerOrder) != 2 || loaded.General.ManagerOrder[0] != "scoop" {
		t.Errorf("unexpected manager order %v", loaded.General.ManagerOrder)
	}
	if !loaded.GetManagerConfig("scoop").AlwaysElevate {
		t.Error("expected scoop AlwaysElevate after reload")
	}
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[general]\nmax_attempts = 2\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if cfg.General.MaxAttempts != 2 {
		t.Errorf("expected MaxAttempts 2, got %d", cfg.General.MaxAttempts)
	}
	if cfg.General.SourceCacheSeconds != 15 {
		t.Errorf("expected default SourceCacheSeconds, got %d", cfg.General.SourceCacheSeconds)
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[general\nbroken"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Error("expected an error for malformed TOML")
	}
}

func TestLoadNonExistentConfig(t *testing.T) {
	cfg, err := LoadFrom("/non/existent/path/config.toml")
	if err != nil {
		t.Fatalf("LoadFrom() should not error for non-existent file: %v", err)
	}

	if !cfg.Output.Color {
		t.Error("expected default Color to be true")
	}
}
