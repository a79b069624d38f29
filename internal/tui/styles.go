// Package tui provides an interactive terminal browser for installed
// packages and available updates.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"unipkg/pkg/manager"
)

// Color palette - matches the CLI colors
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#06B6D4") // Cyan
	ColorSuccess   = lipgloss.Color("#10B981") // Green
	ColorWarning   = lipgloss.Color("#F59E0B") // Yellow
	ColorError     = lipgloss.Color("#EF4444") // Red
	ColorMuted     = lipgloss.Color("#6B7280") // Gray
	ColorText      = lipgloss.Color("#F3F4F6") // Light gray
	ColorBgAlt     = lipgloss.Color("#374151")
)

// ManagerColors are the badge colors of each package manager.
var ManagerColors = map[string]lipgloss.Color{
	"winget":     lipgloss.Color("#0078D4"),
	"chocolatey": lipgloss.Color("#80B5E3"),
	"scoop":      lipgloss.Color("#3D9970"),
	"apt":        lipgloss.Color("#A80030"),
	"pacman":     lipgloss.Color("#1793D1"),
	"flatpak":    lipgloss.Color("#4A90D9"),
	"npm":        lipgloss.Color("#CB3837"),
	"pip":        lipgloss.Color("#3776AB"),
	"cargo":      lipgloss.Color("#DEA584"),
	"dotnet":     lipgloss.Color("#512BD4"),
}

// Styles contains the lipgloss styles used in the TUI.
type Styles struct {
	Header      lipgloss.Style
	Footer      lipgloss.Style
	TabActive   lipgloss.Style
	TabInactive lipgloss.Style

	Row         lipgloss.Style
	RowSelected lipgloss.Style
	RowMarked   lipgloss.Style

	Version    lipgloss.Style
	NewVersion lipgloss.Style
	Muted      lipgloss.Style

	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	Input   lipgloss.Style
	Spinner lipgloss.Style
	Dialog  lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() *Styles {
	s := &Styles{}

	s.Header = lipgloss.NewStyle().
		Foreground(ColorText).
		Background(ColorBgAlt).
		Padding(0, 1).
		Bold(true)
	s.Footer = lipgloss.NewStyle().
		Foreground(ColorMuted).
		Padding(0, 1)

	tab := lipgloss.NewStyle().Padding(0, 2)
	s.TabActive = tab.
		Foreground(ColorPrimary).
		Bold(true).
		Underline(true)
	s.TabInactive = tab.
		Foreground(ColorMuted)

	s.Row = lipgloss.NewStyle().PaddingLeft(2)
	s.RowSelected = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)
	s.RowMarked = lipgloss.NewStyle().
		Foreground(ColorSecondary)

	s.Version = lipgloss.NewStyle().Foreground(ColorSuccess)
	s.NewVersion = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	s.Muted = lipgloss.NewStyle().Foreground(ColorMuted)

	s.Success = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	s.Warning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	s.Error = lipgloss.NewStyle().Foreground(ColorError).Bold(true)

	s.Input = lipgloss.NewStyle().
		Foreground(ColorText).
		Background(ColorBgAlt).
		Padding(0, 1)
	s.Spinner = lipgloss.NewStyle().Foreground(ColorPrimary)
	s.Dialog = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorPrimary).
		Padding(1, 2).
		Width(60)

	return s
}

// Badge creates a badge-style label.
func Badge(text string, color lipgloss.Color) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(color).
		Padding(0, 1).
		Render(text)
}

// ManagerBadge creates a badge for a package manager.
func ManagerBadge(name string) string {
	color, ok := ManagerColors[name]
	if !ok {
		color = ColorMuted
	}
	return Badge(name, color)
}

// TagStyle returns the style for a package tag.
func (s *Styles) TagStyle(t manager.Tag) lipgloss.Style {
	switch t {
	case manager.TagFailed:
		return s.Error
	case manager.TagProcessing, manager.TagQueued:
		return s.Warning
	case manager.TagAlreadyInstalled:
		return s.Success
	default:
		return s.Muted
	}
}
