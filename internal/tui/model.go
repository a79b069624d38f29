package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"

	"unipkg/pkg/manager"
	"unipkg/pkg/operation"
)

// Engine is the part of the package engine the TUI drives.
type Engine interface {
	FindPackages(ctx context.Context, query string, managers ...string) ([]*manager.Package, error)
	GetInstalledPackages(ctx context.Context, managers ...string) ([]*manager.Package, error)
	GetAvailableUpdates(ctx context.Context, managers ...string) ([]*manager.Package, error)
	Execute(ctx context.Context, pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType) (*operation.Outcome, error)
	IgnoreUpdates(pkg *manager.Package, version string) error
}

// Tab is one of the package lists.
type Tab int

const (
	TabUpdates Tab = iota
	TabInstalled
	TabSearch
	tabCount
)

func (t Tab) String() string {
	switch t {
	case TabUpdates:
		return "Updates"
	case TabInstalled:
		return "Installed"
	default:
		return "Search"
	}
}

// packageList is the state of one tab.
type packageList struct {
	items   []*manager.Package
	cursor  int
	marked  map[*manager.Package]bool
	loading bool
	loaded  bool
	err     error
}

func newPackageList() *packageList {
	return &packageList{marked: make(map[*manager.Package]bool)}
}

func (l *packageList) set(items []*manager.Package, err error) {
	l.items, l.err = items, err
	l.loading, l.loaded = false, true
	l.marked = make(map[*manager.Package]bool)
	if l.cursor >= len(items) {
		l.cursor = max(len(items)-1, 0)
	}
}

func (l *packageList) current() *manager.Package {
	if l.cursor < 0 || l.cursor >= len(l.items) {
		return nil
	}
	return l.items[l.cursor]
}

func (l *packageList) move(delta int) {
	l.cursor = min(max(l.cursor+delta, 0), max(len(l.items)-1, 0))
}

func (l *packageList) toggle() {
	if p := l.current(); p != nil {
		k := p
		l.marked[k] = !l.marked[k]
		if !l.marked[k] {
			delete(l.marked, k)
		}
	}
}

func (l *packageList) toggleAll() {
	if len(l.marked) == len(l.items) {
		l.marked = make(map[*manager.Package]bool)
		return
	}
	for _, p := range l.items {
		l.marked[p] = true
	}
}

// selection returns the marked packages, or the current one when none is marked.
func (l *packageList) selection() []*manager.Package {
	var out []*manager.Package
	for _, p := range l.items {
		if l.marked[p] {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		if p := l.current(); p != nil {
			out = append(out, p)
		}
	}
	return out
}

// pendingAction waits for the user to confirm.
type pendingAction struct {
	op   manager.OperationType
	pkgs []*manager.Package
}

// Model holds the application state.
type Model struct {
	ctx      context.Context
	engine   Engine
	managers []string
	opts     manager.InstallOptions

	tab     Tab
	lists   [tabCount]*packageList
	query   string
	running bool
	pending *pendingAction

	status    string
	statusErr bool

	searching bool
	showHelp  bool
	quitting  bool
	width     int
	height    int

	input   textinput.Model
	spinner spinner.Model
	help    help.Model
	keys    KeyMap
	styles  *Styles
}

// NewModel creates the TUI state. managers restricts every listing; opts
// are used for every operation started from the TUI.
func NewModel(ctx context.Context, eng Engine, managers []string, opts manager.InstallOptions) *Model {
	styles := DefaultStyles()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	ti := textinput.New()
	ti.Placeholder = "Package to search for..."
	ti.CharLimit = 100
	ti.Width = 40

	m := &Model{
		ctx:      ctx,
		engine:   eng,
		managers: managers,
		opts:     opts,
		input:    ti,
		spinner:  sp,
		help:     help.New(),
		keys:     DefaultKeyMap(),
		styles:   styles,
	}
	for i := range m.lists {
		m.lists[i] = newPackageList()
	}
	return m
}

func (m *Model) list() *packageList {
	return m.lists[m.tab]
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.status, m.statusErr = msg, isErr
}
