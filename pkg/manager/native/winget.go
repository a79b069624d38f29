package native

import (
	"context"
	"strings"

	"unipkg/pkg/manager"
	"unipkg/pkg/manager/backend"
)

const wingetCommunityURL = "https://cdn.winget.microsoft.com/cache"

// WinGet implements the Manager interface for the Windows Package Manager.
type WinGet struct {
	*backend.Base
	helper  manager.OperationHelper
	sources *manager.SourceHelper
	local   *manager.ManagerSource
}

// NewWinGet creates a new WinGet manager instance.
func NewWinGet(deps backend.Deps) *WinGet {
	w := &WinGet{
		Base: backend.NewBase("winget", "Windows Package Manager", "winget", manager.TypeNative, manager.Capabilities{
			CanRunAsAdmin:       true,
			CanSkipIntegrity:    true,
			CanRunInteractively: true,
			SupportsVersions:    true,
			SupportsScope:       true,
			SupportsArch:        true,
			SupportsLocation:    true,
			SupportsSources:     true,
			SourcesNeedAdmin:    true,
		}, deps),
	}
	w.SetDefaultSource(manager.NewSource(w, "winget", wingetCommunityURL))
	w.local = manager.NewSource(w, "local", "")
	w.helper = manager.NewOperationHelper(wingetOps{w}, w.Log())
	w.sources = manager.NewSourceHelper(w, newWingetSources(w), w.SourceRetention(), w.Log())
	return w
}

// OperationHelper returns the winget parameter builder and classifier.
func (w *WinGet) OperationHelper() manager.OperationHelper {
	return w.helper
}

// SourceHelper returns the winget source registry.
func (w *WinGet) SourceHelper() *manager.SourceHelper {
	return w.sources
}

// FindPackages searches every configured winget source.
func (w *WinGet) FindPackages(ctx context.Context, query string) ([]*manager.Package, error) {
	lines, err := w.QueryAny(ctx, "search", "--query", query, "--accept-source-agreements", "--disable-interactivity")
	if err != nil {
		return nil, err
	}
	return w.parseTable(lines, func(r wingetRow) *manager.Package {
		return manager.NewPackage(r.Name, r.ID, r.Version, w.sourceFor(r.Source, w.DefaultSource()), w, manager.ScopeDefault)
	}), nil
}

// ListInstalled returns installed packages, including ones winget did not install.
func (w *WinGet) ListInstalled(ctx context.Context) ([]*manager.Package, error) {
	lines, err := w.QueryAny(ctx, "list", "--accept-source-agreements", "--disable-interactivity")
	if err != nil {
		return nil, err
	}
	return w.parseTable(lines, func(r wingetRow) *manager.Package {
		return manager.NewPackage(r.Name, r.ID, r.Version, w.sourceFor(r.Source, w.local), w, manager.ScopeDefault)
	}), nil
}

// ListUpdates returns upgradable packages. Updates already applied in a
// previous run but still reported by winget are skipped.
func (w *WinGet) ListUpdates(ctx context.Context) ([]*manager.Package, error) {
	lines, err := w.QueryAny(ctx, "upgrade", "--include-unknown", "--accept-source-agreements", "--disable-interactivity")
	if err != nil {
		return nil, err
	}
	pkgs := w.parseTable(lines, func(r wingetRow) *manager.Package {
		if r.Available == "" {
			return nil
		}
		return manager.NewUpgradablePackage(r.Name, r.ID, r.Version, r.Available, w.sourceFor(r.Source, w.DefaultSource()), w, manager.ScopeDefault)
	})

	updates := pkgs[:0]
	for _, p := range pkgs {
		if w.alreadyUpgraded(p) {
			w.Log().Debug("skipping update applied earlier", "package", p.ID, "version", p.NewVersion())
			continue
		}
		updates = append(updates, p)
	}
	return updates, nil
}

// InstallableVersions lists the versions winget can install for pkg.
func (w *WinGet) InstallableVersions(ctx context.Context, pkg *manager.Package) ([]string, error) {
	args := append([]string{"show"}, wingetIDPiece(pkg)...)
	args = append(args, "--versions", "--accept-source-agreements", "--disable-interactivity")
	lines, err := w.Query(ctx, args...)
	if err != nil {
		return nil, err
	}

	var versions []string
	dashes := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if !dashes {
			dashes = strings.HasPrefix(line, "---")
			continue
		}
		if line != "" {
			versions = append(versions, line)
		}
	}
	return versions, nil
}

func (w *WinGet) sourceFor(name string, fallback *manager.ManagerSource) *manager.ManagerSource {
	if name == "" {
		return fallback
	}
	if name == w.DefaultSource().Name {
		return w.DefaultSource()
	}
	return w.sources.Known(name)
}

func (w *WinGet) alreadyUpgraded(pkg *manager.Package) bool {
	s := w.Settings()
	if s == nil {
		return false
	}
	v, ok := s.MapItem(manager.SettingWinGetAlreadyUpgraded, pkg.ID)
	return ok && v == pkg.NewVersion()
}

func (w *WinGet) markUpgraded(pkg *manager.Package) {
	s := w.Settings()
	if s == nil || pkg.NewVersion() == "" {
		return
	}
	if err := s.SetMapItem(manager.SettingWinGetAlreadyUpgraded, pkg.ID, pkg.NewVersion()); err != nil {
		w.Log().Warn("failed to record applied update", "package", pkg.ID, "error", err)
	}
}

// wingetRow is one table row of search, list or upgrade output.
type wingetRow struct {
	Name      string
	ID        string
	Version   string
	Available string
	Source    string
}

// wingetTable holds the rune offsets of the columns found in a header line.
type wingetTable struct {
	id, version, available, source int
}

func newWingetTable(header string) wingetTable {
	if i := strings.LastIndex(header, "\r"); i >= 0 {
		header = header[i+1:]
	}
	prefix, suffix := "", ""
	if strings.Contains(header, "SearchId") {
		prefix, suffix = "Search", "Header"
	}
	h := []rune(header)
	return wingetTable{
		id:        runeIndex(h, prefix+"Id"),
		version:   runeIndex(h, prefix+"Version"),
		available: runeIndex(h, "Available"+suffix),
		source:    runeIndex(h, prefix+"Source"),
	}
}

func runeIndex(s []rune, sub string) int {
	i := strings.Index(string(s), sub)
	if i < 0 {
		return -1
	}
	return len([]rune(string(s)[:i]))
}

// cells splits line by the header columns. Names with wide characters
// shift the remaining columns left; the shift is found by walking back
// from the id column to the separating space.
func (t wingetTable) cells(line string) (wingetRow, bool) {
	r := []rune(line)
	if t.id <= 0 || t.version <= t.id || t.version >= len(r) {
		return wingetRow{}, false
	}
	if t.available > 0 && t.available <= t.version {
		return wingetRow{}, false
	}

	off := 0
	for off < t.id-1 && r[t.id-off-1] != ' ' {
		off++
	}
	col := func(from, to int) string {
		from -= off
		if from < 0 || from >= len(r) {
			return ""
		}
		if to > 0 {
			to -= off
			if to > from && to <= len(r) {
				return strings.TrimSpace(string(r[from:to]))
			}
		}
		fields := strings.Fields(string(r[from:]))
		if len(fields) == 0 {
			return ""
		}
		return fields[0]
	}

	row := wingetRow{
		Name: strings.TrimSpace(string(r[:t.id-off])),
		ID:   col(t.id, 0),
	}
	if t.available > 0 {
		row.Version = col(t.version, t.available)
		row.Available = col(t.available, t.source)
	} else {
		row.Version = col(t.version, 0)
	}
	if t.source > 0 {
		row.Source = col(t.source, 0)
	}
	if row.ID == "" {
		return wingetRow{}, false
	}
	return row, true
}

// parseTable walks winget table output. A dashed line starts a table whose
// columns come from the line before it; a blank line ends it.
func (w *WinGet) parseTable(lines []string, build func(wingetRow) *manager.Package) []*manager.Package {
	var table *wingetTable
	prev := ""
	return w.ParseRows(lines, func(line string) (*manager.Package, error) {
		if strings.Contains(line, "have pins") {
			return nil, nil
		}
		defer func() { prev = line }()

		switch {
		case table == nil && strings.Contains(line, "---"):
			t := newWingetTable(prev)
			table = &t
			return nil, nil
		case strings.TrimSpace(line) == "":
			table = nil
			return nil, nil
		case table == nil:
			return nil, nil
		}

		row, ok := table.cells(line)
		if !ok {
			return nil, nil
		}
		return build(row), nil
	})
}
