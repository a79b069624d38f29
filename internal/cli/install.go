package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"unipkg/internal/ui"
	"unipkg/pkg/manager"
	"unipkg/pkg/operation"
)

// operationFlags are the options shared by install, update and uninstall.
type operationFlags struct {
	version     string
	scope       string
	arch        string
	location    string
	customArgs  []string
	interactive bool
	skipHash    bool
	admin       bool
	pre         bool
	purge       bool
}

var (
	opFlags      operationFlags
	updateAll    bool
	updateSelect bool
)

var installCmd = &cobra.Command{
	Use:   "install <id>...",
	Short: "Install packages",
	Long: `Install packages. Each id is looked up in the selected managers; when
several managers offer it you are asked which one to use.

Examples:
  unipkg install Git.Git                      # Find and install
  unipkg install ripgrep -m cargo             # Install with cargo
  unipkg install typescript -m npm --version 5.6.3 --scope machine
  unipkg install org.gimp.GIMP -m flatpak --scope user`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd.Context(), args, manager.OperationInstall)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update [<id>...]",
	Short: "Update packages",
	Long: `Update installed packages to their newest version, or to --version.

Examples:
  unipkg update Git.Git        # Update one package
  unipkg update --all          # Apply every available update
  unipkg update --all -m npm   # Apply every npm update
  unipkg update --all --select # Choose which updates to apply`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if updateAll {
			return runUpdateAll(cmd.Context())
		}
		if len(args) == 0 {
			return errors.New("name the packages to update, or pass --all")
		}
		return runOperation(cmd.Context(), args, manager.OperationUpdate)
	},
}

var uninstallCmd = &cobra.Command{
	Use:     "uninstall <id>...",
	Aliases: []string{"remove"},
	Short:   "Uninstall packages",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd.Context(), args, manager.OperationUninstall)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{installCmd, updateCmd, uninstallCmd} {
		f := cmd.Flags()
		f.StringVar(&opFlags.scope, "scope", "", "installation scope: user or machine")
		f.StringVar(&opFlags.arch, "arch", "", "architecture: x86, x64, arm, arm64")
		f.StringSliceVar(&opFlags.customArgs, "args", nil, "extra arguments passed to the package manager")
		f.BoolVar(&opFlags.interactive, "interactive", false, "let the installer show its own interface")
		f.BoolVar(&opFlags.admin, "admin", false, "run the package manager elevated")
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{installCmd, updateCmd} {
		f := cmd.Flags()
		f.StringVar(&opFlags.version, "version", "", "version to install")
		f.StringVar(&opFlags.location, "location", "", "custom install location")
		f.BoolVar(&opFlags.skipHash, "skip-hash", false, "skip the installer integrity check")
		f.BoolVar(&opFlags.pre, "pre", false, "allow pre-release versions")
	}
	uninstallCmd.Flags().BoolVar(&opFlags.purge, "purge", false, "remove package data as well")
	updateCmd.Flags().BoolVar(&updateAll, "all", false, "update every package with an available update")
	updateCmd.Flags().BoolVar(&updateSelect, "select", false, "with --all, choose which updates to apply")
}

// installOptions converts the command-line flags.
func (f operationFlags) installOptions(op manager.OperationType) (manager.InstallOptions, error) {
	scope, err := manager.ParseScope(f.scope)
	if err != nil {
		return manager.InstallOptions{}, err
	}
	arch, err := manager.ParseArchitecture(f.arch)
	if err != nil {
		return manager.InstallOptions{}, err
	}
	opts := manager.InstallOptions{
		Version:               f.version,
		PreRelease:            f.pre,
		Architecture:          arch,
		Scope:                 scope,
		InstallLocation:       f.location,
		SkipHashCheck:         f.skipHash,
		Interactive:           f.interactive,
		RunAsAdministrator:    f.admin,
		RemoveDataOnUninstall: f.purge,
	}
	switch op {
	case manager.OperationInstall:
		opts.CustomArgsInstall = f.customArgs
	case manager.OperationUpdate:
		opts.CustomArgsUpdate = f.customArgs
	case manager.OperationUninstall:
		opts.CustomArgsUninstall = f.customArgs
	}
	return opts, nil
}

// withDefaultScope fills in the configured scope of the package's manager.
func withDefaultScope(opts manager.InstallOptions, pkg *manager.Package) manager.InstallOptions {
	if opts.Scope != manager.ScopeDefault {
		return opts
	}
	if s, err := manager.ParseScope(cfg.GetManagerConfig(pkg.Manager.Name()).DefaultScope); err == nil {
		opts.Scope = s
	}
	return opts
}

func runOperation(ctx context.Context, ids []string, op manager.OperationType) error {
	opts, err := opFlags.installOptions(op)
	if err != nil {
		return err
	}

	var pkgs []*manager.Package
	for _, id := range ids {
		pkg, err := resolvePackage(ctx, cfg.ResolveAlias(id), op)
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		pkgs = append(pkgs, pkg)
	}

	if err := confirmPlan(op, pkgs); err != nil {
		return err
	}

	failed := 0
	for _, pkg := range pkgs {
		out, err := execute(ctx, pkg, withDefaultScope(opts, pkg), op)
		if err != nil {
			return err
		}
		if !out.Succeeded() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrOperationFailed, failed, len(pkgs))
	}
	return nil
}

func runUpdateAll(ctx context.Context) error {
	opts, err := opFlags.installOptions(manager.OperationUpdate)
	if err != nil {
		return err
	}

	updates, err := ui.WithSpinner("Checking for updates", func() ([]*manager.Package, error) {
		return eng.GetAvailableUpdates(ctx, managerNames...)
	})
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		ui.SuccessMsg("Everything is up to date")
		return nil
	}

	ui.PrintUpdates(os.Stdout, updates)
	if updateSelect && len(updates) > 1 {
		labels := make([]string, len(updates))
		for i, p := range updates {
			labels[i] = updateLabel(p)
		}
		chosen, err := ui.SelectMultiple(labels, "Select the updates to apply:")
		if err != nil {
			return err
		}
		updates = pickPackages(updates, chosen)
		if len(updates) == 0 {
			ui.MutedMsg("Nothing selected")
			return nil
		}
	}
	if err := confirmPlan(manager.OperationUpdate, updates); err != nil {
		return err
	}

	failed := 0
	for _, pkg := range updates {
		out, err := execute(ctx, pkg, withDefaultScope(opts, pkg), manager.OperationUpdate)
		if err != nil {
			ui.ErrorMsg("%s: %v", pkg.ID, err)
			failed++
			continue
		}
		if !out.Succeeded() {
			failed++
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d updates", ErrOperationFailed, failed, len(updates))
	}
	return nil
}

func updateLabel(p *manager.Package) string {
	return fmt.Sprintf("%s %s %s %s [%s]", p.ID, p.Version, ui.SymbolArrow, p.NewVersion(), p.Source)
}

// pickPackages returns pkgs[i] for every valid index, in index order given.
func pickPackages(pkgs []*manager.Package, indexes []int) []*manager.Package {
	var out []*manager.Package
	for _, i := range indexes {
		if i >= 0 && i < len(pkgs) {
			out = append(out, pkgs[i])
		}
	}
	return out
}

func execute(ctx context.Context, pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType) (*operation.Outcome, error) {
	progress.start(fmt.Sprintf("%s %s with %s", verbing(op), pkg.ID, pkg.Manager.DisplayName()))
	out, err := eng.Execute(ctx, pkg, opts, op)
	progress.stop()
	if err != nil {
		return nil, err
	}
	ui.PrintOutcome(os.Stdout, out, cfg.Output.Verbose)
	return out, nil
}

// resolvePackage finds the package an id refers to: a catalog entry for
// install, an installed package for uninstall, an available update for update.
func resolvePackage(ctx context.Context, id string, op manager.OperationType) (*manager.Package, error) {
	var candidates []*manager.Package
	var err error
	switch op {
	case manager.OperationInstall:
		candidates, err = ui.WithSpinner("Looking up "+id, func() ([]*manager.Package, error) {
			return eng.FindPackages(ctx, id, managerNames...)
		})
	case manager.OperationUpdate:
		if opFlags.version != "" {
			// A specific version may also be a downgrade.
			candidates, err = eng.GetInstalledPackages(ctx, managerNames...)
		} else {
			candidates, err = eng.GetAvailableUpdates(ctx, managerNames...)
		}
	default:
		candidates, err = eng.GetInstalledPackages(ctx, managerNames...)
	}
	if err != nil {
		return nil, err
	}

	matches := matchID(candidates, id)
	if len(matches) == 0 {
		return fallbackPackage(ctx, id, op)
	}
	if len(matches) == 1 || cfg.General.AutoConfirm {
		return matches[0], nil
	}
	return ui.SelectPackage(matches, fmt.Sprintf("Several packages match %q", id))
}

// fallbackPackage handles ids that no listing shows. Installing by exact id
// is still possible when a single manager was named.
func fallbackPackage(ctx context.Context, id string, op manager.OperationType) (*manager.Package, error) {
	if op == manager.OperationUpdate {
		installed, err := eng.GetInstalledPackages(ctx, managerNames...)
		if err == nil && len(matchID(installed, id)) > 0 {
			return nil, ErrNoUpdate
		}
		return nil, ErrPackageNotFound
	}
	if op != manager.OperationInstall || len(managerNames) != 1 {
		return nil, ErrPackageNotFound
	}
	mgrs, err := eng.Managers(managerNames...)
	if err != nil {
		return nil, err
	}
	mgr := mgrs[0]
	return manager.NewPackage(id, id, "", mgr.DefaultSource(), mgr, manager.ScopeDefault), nil
}

// matchID keeps packages whose id, or failing that name, equals id.
func matchID(pkgs []*manager.Package, id string) []*manager.Package {
	var byID, byName []*manager.Package
	for _, p := range pkgs {
		switch {
		case strings.EqualFold(p.ID, id):
			byID = append(byID, p)
		case strings.EqualFold(p.Name, id):
			byName = append(byName, p)
		}
	}
	if len(byID) > 0 {
		return byID
	}
	return byName
}

func confirmPlan(op manager.OperationType, pkgs []*manager.Package) error {
	if cfg.General.AutoConfirm || cfg.General.DryRun {
		return nil
	}
	ui.InfoMsg("The following packages will be %s:", pastTense(op))
	for _, p := range pkgs {
		target := p.Version
		if op == manager.OperationUpdate && p.NewVersion() != "" {
			target = p.Version + " " + ui.SymbolArrow + " " + p.NewVersion()
		}
		ui.MutedMsg("  - %s %s [%s]", p.ID, target, p.Source)
	}
	ok, err := ui.Confirm("Proceed?", true)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAborted
	}
	return nil
}

func verbing(op manager.OperationType) string {
	switch op {
	case manager.OperationUpdate:
		return "Updating"
	case manager.OperationUninstall:
		return "Uninstalling"
	default:
		return "Installing"
	}
}

func pastTense(op manager.OperationType) string {
	switch op {
	case manager.OperationUpdate:
		return "updated"
	case manager.OperationUninstall:
		return "uninstalled"
	default:
		return "installed"
	}
}
