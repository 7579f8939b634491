package interactive

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/sahilm/fuzzy"
	"github.com/samber/lo"

	"github.com/trebuchet-org/treb-router/internal/domain/config"
)

// SelectorAdapter handles interactive selection
type SelectorAdapter struct {
	config *config.RuntimeConfig
	run    func(promptui.Select) (int, error)
}

// NewSelectorAdapter creates a new selector adapter
func NewSelectorAdapter(cfg *config.RuntimeConfig) *SelectorAdapter {
	return &SelectorAdapter{
		config: cfg,
		run: func(s promptui.Select) (int, error) {
			index, _, err := s.Run()
			return index, err
		},
	}
}

// SelectInstance picks one configured instance
func (s *SelectorAdapter) SelectInstance(_ context.Context, instances map[string]config.InstanceConfig, prompt string) (string, error) {
	if len(instances) == 0 {
		return "", fmt.Errorf("no instances configured")
	}

	names := sortedInstanceNames(instances)
	if len(names) == 1 {
		return names[0], nil
	}

	// In non-interactive mode, we can't select
	if s.config.NonInteractive {
		return "", fmt.Errorf("instance required in non-interactive mode (one of: %s)", strings.Join(names, ", "))
	}

	options := formatInstanceOptions(names, instances)
	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "▸ {{ . | cyan }}",
		Inactive: "  {{ . | faint }}",
		Selected: "✓ {{ . | green }}",
		Help:     color.New(color.FgYellow).Sprint("Use arrow keys to navigate, Enter to select"),
	}

	index, err := s.run(promptui.Select{
		Label:             prompt,
		Items:             options,
		Templates:         templates,
		Size:              10,
		StartInSearchMode: true,
		Searcher:          createFuzzySearchFunc(names),
	})
	if err != nil {
		return "", fmt.Errorf("selection cancelled: %w", err)
	}
	return names[index], nil
}

func sortedInstanceNames(instances map[string]config.InstanceConfig) []string {
	names := lo.Keys(instances)
	sort.Strings(names)
	return names
}

// formatInstanceOptions creates display strings for instance selection
func formatInstanceOptions(names []string, instances map[string]config.InstanceConfig) []string {
	options := make([]string, len(names))
	for i, name := range names {
		inst := instances[name]
		label := color.New(color.FgWhite, color.Bold).Sprint(name)
		detail := inst.RPCURL
		if inst.DryRun || detail == "" {
			detail = "dry-run"
		}
		if inst.ChainID != 0 {
			detail = fmt.Sprintf("%s, chain %d", detail, inst.ChainID)
		}
		options[i] = fmt.Sprintf("%s (%s)", label, color.New(color.FgBlue).Sprint(detail))
	}
	return options
}

// createFuzzySearchFunc creates a fuzzy search function for promptui
func createFuzzySearchFunc(items []string) func(input string, index int) bool {
	return func(input string, index int) bool {
		// Empty search shows all items
		if input == "" {
			return true
		}

		input = strings.ToLower(input)
		item := strings.ToLower(items[index])

		// First try simple substring match
		if strings.Contains(item, input) {
			return true
		}

		// Then try fuzzy match
		pattern := fuzzy.Find(input, []string{item})
		return len(pattern) > 0
	}
}
