package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"unipkg/pkg/manager"
	"unipkg/pkg/operation"
)

// Table wraps tabwriter for consistent styling.
type Table struct {
	writer  *tabwriter.Writer
	headers []string
	rows    [][]string
}

// NewTable creates a table writing to stdout.
func NewTable(header ...string) *Table {
	return NewTableWriter(os.Stdout, header...)
}

// NewTableWriter creates a table that writes to w.
func NewTableWriter(w io.Writer, header ...string) *Table {
	return &Table{
		writer:  tabwriter.NewWriter(w, 0, 0, 2, ' ', 0),
		headers: header,
	}
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render writes the header and every row.
func (t *Table) Render() {
	if len(t.headers) > 0 {
		headerRow := make([]string, len(t.headers))
		for i, h := range t.headers {
			headerRow[i] = Bold(strings.ToUpper(h))
		}
		fmt.Fprintln(t.writer, strings.Join(headerRow, "\t"))
	}
	for _, row := range t.rows {
		fmt.Fprintln(t.writer, strings.Join(row, "\t"))
	}
	t.writer.Flush()
}

// PrintPackages prints packages with their manager, source and state.
func PrintPackages(w io.Writer, packages []*manager.Package) {
	if len(packages) == 0 {
		fmt.Fprintln(w, Muted.Sprint("No packages found"))
		return
	}

	t := NewTableWriter(w, "name", "id", "version", "source", "")
	for _, pkg := range packages {
		t.AddRow(
			PackageName.Sprint(truncate(pkg.Name, 40)),
			pkg.ID,
			PackageVersion.Sprint(pkg.Version),
			PackageSource.Sprint(pkg.Source.String()),
			TagLabel(pkg.Tag()),
		)
	}
	t.Render()
}

// PrintUpdates prints available updates.
func PrintUpdates(w io.Writer, packages []*manager.Package) {
	if len(packages) == 0 {
		fmt.Fprintln(w, Muted.Sprint("Everything is up to date"))
		return
	}

	t := NewTableWriter(w, "name", "id", "installed", "available", "source")
	for _, pkg := range packages {
		t.AddRow(
			PackageName.Sprint(truncate(pkg.Name, 40)),
			pkg.ID,
			pkg.Version,
			NewVersion.Sprint(pkg.NewVersion()),
			PackageSource.Sprint(pkg.Source.String()),
		)
	}
	t.Render()
}

// PrintSources prints the catalogs of a manager.
func PrintSources(w io.Writer, sources []*manager.ManagerSource) {
	if len(sources) == 0 {
		fmt.Fprintln(w, Muted.Sprint("No sources configured"))
		return
	}
	t := NewTableWriter(w, "name", "url")
	for _, s := range sources {
		t.AddRow(PackageName.Sprint(s.Name), s.URL)
	}
	t.Render()
}

// PrintIgnored prints ignored updates sorted by key.
func PrintIgnored(w io.Writer, entries map[string]string) {
	if len(entries) == 0 {
		fmt.Fprintln(w, Muted.Sprint("No ignored updates"))
		return
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := NewTableWriter(w, "package", "version")
	for _, k := range keys {
		v := entries[k]
		if v == manager.IgnoreAllVersions {
			v = "all versions"
		}
		t.AddRow(k, v)
	}
	t.Render()
}

// PrintOutcome prints the result of an operation. The full attempt log is
// shown for failures and when verbose is set.
func PrintOutcome(w io.Writer, out *operation.Outcome, verbose bool) {
	target := out.Target
	if i := strings.LastIndex(target, `\`); i >= 0 {
		target = target[i+1:]
	}
	msg := fmt.Sprintf("%s %s [%s]: %s", out.Kind, target, out.Manager, VerdictLabel(out.Verdict))
	if n := len(out.Attempts); n > 1 {
		msg += Muted.Sprintf(" after %d attempts", n)
	}
	fmt.Fprintln(w, msg)

	if verbose || out.Verdict == manager.VerdictFailed {
		for _, line := range strings.Split(strings.TrimRight(out.Log(), "\n"), "\n") {
			fmt.Fprintln(w, Muted.Sprint("  "+line))
		}
	}
	if out.Hint != "" {
		fmt.Fprintln(w, Warning.Sprint("  hint: ")+out.Hint)
	}
	if out.Verdict == manager.VerdictRestartRequired {
		fmt.Fprintln(w, Warning.Sprint("  a restart is required to finish this operation"))
	}
}

// PrintManagers prints registered managers and whether they are usable.
func PrintManagers(w io.Writer, managers []manager.Manager) {
	t := NewTableWriter(w, "name", "type", "executable", "status")
	for _, m := range managers {
		status := Installed.Sprint("available")
		if !m.IsAvailable() {
			status = NotInstalled.Sprint("not found")
		}
		t.AddRow(PackageName.Sprint(m.Name()), string(m.Type()), m.Executable(), status)
	}
	t.Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
