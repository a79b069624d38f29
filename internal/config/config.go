package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the complete unipkg configuration.
type Config struct {
	General  GeneralConfig            `toml:"general"`
	Output   OutputConfig             `toml:"output"`
	Managers map[string]ManagerConfig `toml:"managers"`
	Aliases  map[string]string        `toml:"aliases"`
}

// GeneralConfig contains general unipkg settings.
type GeneralConfig struct {
	// ManagerOrder lists manager names in the order results are shown and
	// the order used to pick a manager when none is given. Empty means
	// the order detected for this system.
	ManagerOrder []string `toml:"manager_order"`

	// AutoConfirm skips confirmation prompts when true (like -y flag).
	AutoConfirm bool `toml:"auto_confirm"`

	// DryRun prints the commands that would run instead of running them.
	DryRun bool `toml:"dry_run"`

	// MaxAttempts caps the attempts of one operation, auto-retries included.
	MaxAttempts int `toml:"max_attempts"`

	// SourceCacheSeconds is how long a source listing is reused.
	SourceCacheSeconds int `toml:"source_cache_seconds"`

	// ListingCacheSeconds is how long installed and update listings are reused.
	ListingCacheSeconds int `toml:"listing_cache_seconds"`

	// UpdateCheckSchedule is the cron expression used by "unipkg watch".
	UpdateCheckSchedule string `toml:"update_check_schedule"`

	// AutoUpdate makes "unipkg watch" apply the updates it finds.
	AutoUpdate bool `toml:"auto_update"`

	// IgnoreUpdatesNotApplicable ignores updates a manager reports as not
	// applicable to this system instead of failing them.
	IgnoreUpdatesNotApplicable bool `toml:"ignore_updates_not_applicable"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	// Color enables colored output (respects NO_COLOR env var).
	Color bool `toml:"color"`

	// Unicode enables unicode symbols in output.
	Unicode bool `toml:"unicode"`

	// Verbose enables detailed output.
	Verbose bool `toml:"verbose"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `toml:"log_format"`
}

// ManagerConfig contains per-manager settings.
type ManagerConfig struct {
	// Disabled removes the manager from every listing and operation.
	Disabled bool `toml:"disabled"`

	// AlwaysElevate runs every operation of this manager elevated.
	AlwaysElevate bool `toml:"always_elevate"`

	// Executable overrides the program looked up on PATH.
	Executable string `toml:"executable"`

	// DefaultScope is "user" or "machine"; empty leaves the choice to the manager.
	DefaultScope string `toml:"default_scope"`

	// DefaultRemote is the flatpak remote used when a package names none.
	DefaultRemote string `toml:"default_remote"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		General: GeneralConfig{
			MaxAttempts:         4,
			SourceCacheSeconds:  15,
			ListingCacheSeconds: 5,
			UpdateCheckSchedule: "@every 1h",
		},
		Output: OutputConfig{
			Color:     true,
			Unicode:   true,
			LogLevel:  "warn",
			LogFormat: "text",
		},
		Managers: map[string]ManagerConfig{
			"flatpak": {
				DefaultRemote: "flathub",
			},
		},
		Aliases: map[string]string{},
	}
}

// Load loads the configuration from the default path.
// If the config file doesn't exist, it returns the default configuration.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom loads the configuration from a specific path.
// If the config file doesn't exist, it returns the default configuration.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes the configuration to a specific path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(c)
}

// ResolveAlias returns the actual package name for an alias, or the original name if no alias exists.
func (c *Config) ResolveAlias(pkg string) string {
	if alias, ok := c.Aliases[pkg]; ok {
		return alias
	}
	return pkg
}

// GetManagerConfig returns the configuration for a specific manager.
// Returns an empty config if no configuration exists for the manager.
func (c *Config) GetManagerConfig(name string) ManagerConfig {
	if cfg, ok := c.Managers[name]; ok {
		return cfg
	}
	return ManagerConfig{}
}

// ShouldUseColor returns true if colored output should be used.
// Respects the NO_COLOR environment variable.
func (c *Config) ShouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return c.Output.Color
}

// MaxAttempts returns the attempt cap, at least 1.
func (c *Config) MaxAttempts() int {
	if c.General.MaxAttempts < 1 {
		return 1
	}
	return c.General.MaxAttempts
}

// SourceRetention returns how long source listings are cached.
func (c *Config) SourceRetention() time.Duration {
	return time.Duration(c.General.SourceCacheSeconds) * time.Second
}

// ListingRetention returns how long installed and update listings are cached.
func (c *Config) ListingRetention() time.Duration {
	return time.Duration(c.General.ListingCacheSeconds) * time.Second
}
