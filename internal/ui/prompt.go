package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"

	"unipkg/pkg/manager"
)

// ErrNoChoices is returned by the selection prompts for an empty list.
var ErrNoChoices = errors.New("nothing to select from")

// Confirm prompts the user for yes/no confirmation.
func Confirm(prompt string, defaultYes bool) (bool, error) {
	label := prompt
	if defaultYes {
		label += " [Y/n]"
	} else {
		label += " [y/N]"
	}

	p := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if defaultYes {
		p.Default = "y"
	}

	result, err := p.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		if errors.Is(err, promptui.ErrInterrupt) {
			return false, err
		}
		return defaultYes, nil
	}

	result = strings.ToLower(strings.TrimSpace(result))
	if result == "" {
		return defaultYes, nil
	}
	return result == "y" || result == "yes", nil
}

type packageItem struct {
	Name    string
	ID      string
	Version string
	Source  string
	Tag     string
}

// SelectPackage asks which of several candidates is meant. A single
// candidate is returned without prompting.
func SelectPackage(packages []*manager.Package, prompt string) (*manager.Package, error) {
	switch len(packages) {
	case 0:
		return nil, ErrNoChoices
	case 1:
		return packages[0], nil
	}

	items := make([]packageItem, len(packages))
	for i, p := range packages {
		items[i] = packageItem{
			Name:    p.Name,
			ID:      p.ID,
			Version: p.Version,
			Source:  p.Source.String(),
			Tag:     p.Tag().String(),
		}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "▸ {{ .ID | cyan }} {{ .Version | green }} [{{ .Source | magenta }}]",
		Inactive: "  {{ .ID }} {{ .Version | faint }} [{{ .Source | faint }}]",
		Selected: "✓ {{ .ID | cyan }} {{ .Version | green }} [{{ .Source | magenta }}]",
		Details: `
--------- Package ----------
{{ "Name:" | faint }}	{{ .Name }}
{{ "Id:" | faint }}	{{ .ID }}
{{ "Version:" | faint }}	{{ .Version }}
{{ "Source:" | faint }}	{{ .Source }}
{{ "State:" | faint }}	{{ .Tag }}`,
	}

	searcher := func(input string, index int) bool {
		input = strings.ToLower(input)
		return strings.Contains(strings.ToLower(items[index].ID), input) ||
			strings.Contains(strings.ToLower(items[index].Name), input)
	}

	p := promptui.Select{
		Label:     prompt,
		Items:     items,
		Templates: templates,
		Size:      10,
		Searcher:  searcher,
	}

	index, _, err := p.Run()
	if err != nil {
		return nil, err
	}
	return packages[index], nil
}

// SelectString prompts for one of several strings, such as a version.
func SelectString(items []string, prompt string) (string, error) {
	switch len(items) {
	case 0:
		return "", ErrNoChoices
	case 1:
		return items[0], nil
	}

	p := promptui.Select{
		Label: prompt,
		Items: items,
		Size:  10,
	}
	_, result, err := p.Run()
	if err != nil {
		return "", err
	}
	return result, nil
}

// SelectMultiple prompts for a subset of items by number, or "all", and
// returns the chosen indexes in the order they were typed.
func SelectMultiple(items []string, prompt string) ([]int, error) {
	if len(items) == 0 {
		return nil, ErrNoChoices
	}

	fmt.Println(prompt)
	fmt.Println("Enter numbers separated by spaces (e.g., '1 3 5'), or 'all' for all items:")
	fmt.Println()
	for i, item := range items {
		fmt.Printf("  %d. %s\n", i+1, item)
	}
	fmt.Println()

	p := promptui.Prompt{Label: "Selection"}
	result, err := p.Run()
	if err != nil {
		return nil, err
	}
	return parseSelection(result, len(items)), nil
}

func parseSelection(input string, n int) []int {
	input = strings.TrimSpace(input)
	if strings.EqualFold(input, "all") {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}

	var selected []int
	seen := make(map[int]bool)
	for _, part := range strings.Fields(input) {
		var idx int
		if _, err := fmt.Sscanf(part, "%d", &idx); err != nil {
			continue
		}
		if idx >= 1 && idx <= n && !seen[idx] {
			seen[idx] = true
			selected = append(selected, idx-1)
		}
	}
	return selected
}
