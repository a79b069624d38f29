// Package cli implements the command-line interface for unipkg.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"unipkg/internal/config"
	"unipkg/internal/executor"
	"unipkg/internal/history"
	"unipkg/internal/ignored"
	"unipkg/internal/logging"
	"unipkg/internal/settings"
	"unipkg/internal/ui"
	"unipkg/pkg/engine"
	"unipkg/pkg/manager"
	"unipkg/pkg/manager/backend"
	"unipkg/pkg/manager/lang"
	"unipkg/pkg/manager/native"
	"unipkg/pkg/manager/universal"
	"unipkg/pkg/operation"
)

var (
	// Global flags
	cfgFile      string
	managerNames []string
	dryRun       bool
	yes          bool
	verbose      bool
	noColor      bool

	// Global state
	cfg           *config.Config
	log           *slog.Logger
	registry      *manager.Registry
	eng           *engine.Engine
	historyStore  *history.Store
	settingsStore *settings.Store
	progress      = &progressReporter{}
)

// Build metadata - set at build time via ldflags
var (
	Version   = "0.1.0-dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "unipkg",
	Short: "One interface for every package manager on this machine",
	Long: `unipkg searches, installs, updates and removes packages through the
package managers installed on this machine, with the same commands and
options for all of them.

Supported package managers:
  Windows:   winget, chocolatey, scoop
  Linux:     apt, pacman, flatpak
  Languages: npm, pip, cargo, dotnet

Examples:
  unipkg search ripgrep               # Search every available manager
  unipkg install ripgrep -m cargo     # Install with a specific manager
  unipkg updates                      # List available updates
  unipkg update --all                 # Apply every available update`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeApp()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeStores()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringSliceVarP(&managerNames, "manager", "m", nil, "package managers to use (name or type: native, universal, language)")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "print the commands instead of running them")
	rootCmd.PersistentFlags().BoolVarP(&yes, "yes", "y", false, "assume yes to all prompts")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command. Interrupts cancel running operations.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		ui.ErrorMsg("%v", err)
	}
	closeStores()
	return err
}

// initializeApp sets up the application state.
func initializeApp() error {
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFrom(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if yes {
		cfg.General.AutoConfirm = true
	}
	if dryRun {
		cfg.General.DryRun = true
	}
	if verbose {
		cfg.Output.Verbose = true
	}
	if noColor {
		cfg.Output.Color = false
	}

	ui.Init(cfg.ShouldUseColor(), cfg.Output.Unicode)
	log = logging.FromConfig(cfg.Output.LogLevel, cfg.Output.LogFormat, cfg.Output.Verbose)
	slog.SetDefault(log)

	var store manager.Settings
	if s, err := settings.Open(config.SettingsPath()); err != nil {
		log.Warn("settings are not available", "error", err)
	} else {
		settingsStore = s
		store = s
		if cfg.General.IgnoreUpdatesNotApplicable {
			_ = s.SetBool(manager.SettingIgnoreUpdatesNotApplicable, true) //nolint:errcheck
		}
	}
	ignoredStore := ignored.New(config.IgnoredUpdatesPath(), log)

	// Listings always run; only operations honour dry-run.
	querier := executor.New(false, false)
	querier.SetLogger(log)
	registry = manager.NewRegistry(cfg)
	registerManagers(querier, store, ignoredStore)
	if err := registry.Detect(); err != nil {
		log.Warn("system detection failed", "error", err)
	}

	launcher := executor.New(cfg.General.DryRun, false)
	launcher.SetLogger(log)
	opts := []operation.Option{
		operation.WithLogger(log),
		operation.WithLineHandler(progress.line),
	}
	if !cfg.General.DryRun {
		if h, err := history.Open(); err != nil {
			log.Warn("operation history is not available", "error", err)
		} else {
			historyStore = h
			opts = append(opts, operation.WithRecorder(h))
		}
	}
	runner := operation.New(launcher, cfg, opts...)

	eng = engine.New(registry, runner, ignoredStore, cfg, log)
	return nil
}

// registerManagers registers every supported package manager. Availability
// is checked when they are used.
func registerManagers(querier backend.Querier, store manager.Settings, ignoredUpdates manager.IgnoredUpdates) {
	deps := func(name string) backend.Deps {
		return backend.Deps{
			Exec:            querier,
			Log:             log,
			Settings:        store,
			Ignored:         ignoredUpdates,
			Config:          cfg.GetManagerConfig(name),
			SourceRetention: cfg.SourceRetention(),
		}
	}

	// Windows
	registry.Register(native.NewWinGet(deps("winget")))
	registry.Register(native.NewChocolatey(deps("chocolatey")))
	registry.Register(native.NewScoop(deps("scoop")))

	// Linux
	registry.Register(native.NewAPT(deps("apt")))
	registry.Register(native.NewPacman(deps("pacman")))
	registry.Register(universal.NewFlatpak(deps("flatpak")))

	// Language ecosystems
	registry.Register(lang.NewNpm(deps("npm")))
	registry.Register(lang.NewPip(deps("pip")))
	registry.Register(lang.NewCargo(deps("cargo")))
	registry.Register(lang.NewDotNet(deps("dotnet")))
}

var closeOnce sync.Once

func closeStores() {
	closeOnce.Do(func() {
		if historyStore != nil {
			historyStore.Close()
		}
		if settingsStore != nil {
			settingsStore.Close()
		}
	})
}

// progressReporter shows the output of running operations: every line
// when verbose, otherwise the latest line next to a spinner.
type progressReporter struct {
	mu      sync.Mutex
	spinner *ui.Spinner
}

func (p *progressReporter) start(message string) {
	if cfg.Output.Verbose {
		ui.InfoMsg("%s", message)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spinner = ui.NewSpinner(message)
	p.spinner.Start()
}

func (p *progressReporter) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.spinner != nil {
		p.spinner.Stop()
		p.spinner = nil
	}
}

func (p *progressReporter) line(attempt int, l executor.Line) {
	if cfg.Output.Verbose {
		fmt.Fprintln(os.Stderr, ui.Muted.Sprintf("  [%d] %s", attempt, l.Text))
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.spinner != nil && l.Text != "" {
		p.spinner.UpdateMessage(l.Text)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print unipkg version",
	Run: func(cmd *cobra.Command, args []string) {
		ui.InfoMsg("unipkg version %s", Version)
		if Commit != "unknown" {
			ui.MutedMsg("  Commit: %s", Commit)
		}
		if BuildTime != "unknown" {
			ui.MutedMsg("  Built:  %s", BuildTime)
		}
	},
}
