package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"unipkg/pkg/manager"
	"unipkg/pkg/operation"
)

// Messages for async work
type (
	listLoadedMsg struct {
		tab  Tab
		pkgs []*manager.Package
		err  error
	}

	operationsDoneMsg struct {
		op       manager.OperationType
		outcomes []*operation.Outcome
		errs     []error
	}

	ignoredMsg struct {
		pkg *manager.Package
		err error
	}
)

// Run starts the TUI and blocks until the user quits.
func Run(ctx context.Context, eng Engine, managers []string, opts manager.InstallOptions) error {
	p := tea.NewProgram(NewModel(ctx, eng, managers, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.load(TabUpdates),
		m.load(TabInstalled),
	)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case listLoadedMsg:
		m.lists[msg.tab].set(msg.pkgs, msg.err)
		return m, nil

	case operationsDoneMsg:
		m.running = false
		m.reportOperations(msg)
		return m, tea.Batch(m.load(TabUpdates), m.load(TabInstalled))

	case ignoredMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("cannot ignore %s: %v", msg.pkg.ID, msg.err), true)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("updates of %s are ignored", msg.pkg.ID), false)
		return m, m.load(TabUpdates)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.searching {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pending != nil {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			return m, m.runPending()
		case key.Matches(msg, m.keys.Decline):
			m.pending = nil
		}
		return m, nil
	}

	if m.searching {
		switch msg.Type {
		case tea.KeyEnter:
			m.searching = false
			m.input.Blur()
			m.query = strings.TrimSpace(m.input.Value())
			if m.query == "" {
				return m, nil
			}
			return m, m.load(TabSearch)
		case tea.KeyEsc:
			m.searching = false
			m.input.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	l := m.list()
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, m.keys.NextTab):
		m.tab = (m.tab + 1) % tabCount
	case key.Matches(msg, m.keys.PrevTab):
		m.tab = (m.tab + tabCount - 1) % tabCount
	case key.Matches(msg, m.keys.Up):
		l.move(-1)
	case key.Matches(msg, m.keys.Down):
		l.move(1)
	case key.Matches(msg, m.keys.Mark):
		l.toggle()
	case key.Matches(msg, m.keys.MarkAll):
		l.toggleAll()
	case key.Matches(msg, m.keys.Search):
		m.tab = TabSearch
		m.searching = true
		m.input.SetValue(m.query)
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Refresh):
		if m.tab != TabSearch || m.query != "" {
			return m, m.load(m.tab)
		}
	case key.Matches(msg, m.keys.Update):
		m.request(manager.OperationUpdate, TabUpdates)
	case key.Matches(msg, m.keys.Install):
		m.request(manager.OperationInstall, TabSearch)
	case key.Matches(msg, m.keys.Uninstall):
		m.request(manager.OperationUninstall, TabInstalled)
	case key.Matches(msg, m.keys.Ignore):
		if m.tab == TabUpdates && !m.running {
			if p := l.current(); p != nil {
				return m, m.ignore(p)
			}
		}
	}
	return m, nil
}

// request asks for confirmation of op on the selection of the tab it
// belongs to.
func (m *Model) request(op manager.OperationType, tab Tab) {
	if m.tab != tab {
		m.setStatus(fmt.Sprintf("switch to the %s tab to %s packages", tab, op), true)
		return
	}
	if m.running {
		m.setStatus("wait for the running operation to finish", true)
		return
	}
	pkgs := m.list().selection()
	if len(pkgs) == 0 {
		return
	}
	m.pending = &pendingAction{op: op, pkgs: pkgs}
}

func (m *Model) runPending() tea.Cmd {
	action := m.pending
	m.pending = nil
	m.running = true
	for _, p := range action.pkgs {
		p.SetTag(manager.TagQueued)
	}
	m.setStatus(fmt.Sprintf("running %s on %d packages", action.op, len(action.pkgs)), false)

	ctx, eng, opts := m.ctx, m.engine, m.opts
	return func() tea.Msg {
		done := operationsDoneMsg{op: action.op}
		for _, p := range action.pkgs {
			if ctx.Err() != nil {
				break
			}
			out, err := eng.Execute(ctx, p, opts, action.op)
			if err != nil {
				done.errs = append(done.errs, fmt.Errorf("%s: %w", p.ID, err))
				continue
			}
			done.outcomes = append(done.outcomes, out)
		}
		return done
	}
}

func (m *Model) reportOperations(msg operationsDoneMsg) {
	failed := len(msg.errs)
	var hint string
	for _, o := range msg.outcomes {
		if !o.Succeeded() {
			failed++
			if o.Hint != "" {
				hint = o.Hint
			}
		}
	}
	total := len(msg.outcomes) + len(msg.errs)
	if failed == 0 {
		m.setStatus(fmt.Sprintf("%s finished for %d packages", msg.op, total), false)
		return
	}
	status := fmt.Sprintf("%s failed for %d of %d packages", msg.op, failed, total)
	if hint != "" {
		status += ": " + hint
	} else if len(msg.errs) > 0 {
		status += ": " + msg.errs[0].Error()
	}
	m.setStatus(status, true)
}

func (m *Model) load(tab Tab) tea.Cmd {
	m.lists[tab].loading = true
	ctx, eng, managers, query := m.ctx, m.engine, m.managers, m.query
	return func() tea.Msg {
		var pkgs []*manager.Package
		var err error
		switch tab {
		case TabUpdates:
			pkgs, err = eng.GetAvailableUpdates(ctx, managers...)
		case TabInstalled:
			pkgs, err = eng.GetInstalledPackages(ctx, managers...)
		case TabSearch:
			pkgs, err = eng.FindPackages(ctx, query, managers...)
		}
		return listLoadedMsg{tab: tab, pkgs: pkgs, err: err}
	}
}

func (m *Model) ignore(p *manager.Package) tea.Cmd {
	eng := m.engine
	return func() tea.Msg {
		return ignoredMsg{pkg: p, err: eng.IgnoreUpdates(p, "")}
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Header.Render("unipkg"))
	b.WriteString(" ")
	for t := Tab(0); t < tabCount; t++ {
		label := fmt.Sprintf("%s (%d)", t, len(m.lists[t].items))
		if t == m.tab {
			b.WriteString(m.styles.TabActive.Render(label))
		} else {
			b.WriteString(m.styles.TabInactive.Render(label))
		}
	}
	b.WriteString("\n\n")

	if m.tab == TabSearch {
		if m.searching {
			b.WriteString(m.styles.Input.Render(m.input.View()))
		} else if m.query != "" {
			b.WriteString(m.styles.Muted.Render("Results for " + m.query))
		} else {
			b.WriteString(m.styles.Muted.Render("Press / to search"))
		}
		b.WriteString("\n\n")
	}

	b.WriteString(m.renderList())

	if m.pending != nil {
		b.WriteString("\n")
		b.WriteString(m.renderConfirm())
	}

	b.WriteString("\n")
	switch {
	case m.running:
		b.WriteString(m.spinner.View() + " " + m.status)
	case m.statusErr:
		b.WriteString(m.styles.Error.Render(m.status))
	case m.status != "":
		b.WriteString(m.styles.Success.Render(m.status))
	}
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString(m.help.FullHelpView(m.keys.FullHelp()))
	} else {
		b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	return b.String()
}

func (m *Model) renderList() string {
	l := m.list()
	switch {
	case l.loading:
		return m.spinner.View() + " Loading...\n"
	case l.err != nil:
		return m.styles.Error.Render("Error: "+l.err.Error()) + "\n"
	case l.loaded && len(l.items) == 0:
		if m.tab == TabUpdates {
			return m.styles.Success.Render("Everything is up to date") + "\n"
		}
		return m.styles.Muted.Render("No packages") + "\n"
	}

	// Keep the cursor inside the visible window.
	visible := len(l.items)
	if m.height > 10 {
		visible = min(visible, m.height-10)
	}
	start := 0
	if l.cursor >= visible {
		start = l.cursor - visible + 1
	}

	var b strings.Builder
	for i := start; i < len(l.items) && i < start+visible; i++ {
		b.WriteString(m.renderRow(l, i))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderRow(l *packageList, i int) string {
	p := l.items[i]
	mark := "[ ]"
	if l.marked[p] {
		mark = m.styles.RowMarked.Render("[x]")
	}

	version := m.styles.Version.Render(p.Version)
	if nv := p.NewVersion(); nv != "" && m.tab == TabUpdates {
		version += " → " + m.styles.NewVersion.Render(nv)
	}

	row := fmt.Sprintf("%s %-40s %s %s", mark, p.ID, version, ManagerBadge(p.Manager.Name()))
	if tag := p.Tag(); tag != manager.TagDefault && tag != manager.TagUpgradable {
		row += " " + m.styles.TagStyle(tag).Render(tag.String())
	}
	if i == l.cursor {
		return m.styles.RowSelected.Render("> ") + row
	}
	return m.styles.Row.Render(row)
}

func (m *Model) renderConfirm() string {
	ids := make([]string, 0, len(m.pending.pkgs))
	for _, p := range m.pending.pkgs {
		ids = append(ids, p.ID)
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Warning.Render(fmt.Sprintf("%s %d packages?", m.pending.op, len(ids))),
		"",
		strings.Join(ids, ", "),
		"",
		m.styles.Muted.Render("y to confirm, n to cancel"),
	)
	return m.styles.Dialog.Render(body)
}
