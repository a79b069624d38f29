package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"unipkg/internal/executor"
	"unipkg/internal/ui"
)

var managersCmd = &cobra.Command{
	Use:     "managers",
	Aliases: []string{"system"},
	Short:   "Show the detected system and its package managers",
	Long: `Display the detected system, every supported package manager and
whether it was found, in the order results are shown.

Examples:
  unipkg managers           # Show managers
  unipkg managers -v        # Include query cache statistics`,
	Args: cobra.NoArgs,
	RunE: runManagers,
}

func init() {
	rootCmd.AddCommand(managersCmd)
}

func runManagers(cmd *cobra.Command, args []string) error {
	if info := registry.SystemInfo(); info != nil {
		ui.HeaderMsg("System")
		name := info.PrettyName
		if name == "" {
			name = string(info.OS)
		}
		printField("Operating System", name)
		printField("Architecture", info.Arch)
		if native := info.NativeManagers(); len(native) > 0 {
			printField("Native Package Manager", strings.Join(native, ", "))
		}
		elevated := "no"
		if executor.IsRoot() {
			elevated = "yes"
		}
		printField("Running Elevated", elevated)
	}

	ui.HeaderMsg("Package Managers")
	ui.PrintManagers(os.Stdout, registry.All())

	if len(registry.Available()) == 0 {
		ui.WarningMsg("%v", ErrNoManager)
	}

	if cfg.Output.Verbose {
		ui.HeaderMsg("Query Cache")
		stats := eng.Stats()
		names := make([]string, 0, len(stats))
		for name := range stats {
			names = append(names, name)
		}
		sort.Strings(names)
		t := ui.NewTable("query", "executed", "attached")
		for _, name := range names {
			s := stats[name]
			t.AddRow(name, fmt.Sprint(s.Executions), fmt.Sprint(s.Attached))
		}
		t.Render()
	}
	return nil
}

func printField(label, value string) {
	fmt.Printf("  %s: %s\n", ui.Cyan(label), value)
}
