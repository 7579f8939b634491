package usecase

import (
	"context"
	"fmt"

	"github.com/sahilm/fuzzy"

	"github.com/trebuchet-org/treb-router/internal/domain/config"
	"github.com/trebuchet-org/treb-router/internal/domain/models"
	"github.com/trebuchet-org/treb-router/internal/domain/router"
)

// ListSelectors lists the routed selector table of the current declarations
type ListSelectors struct {
	declarations DeclarationSource
	checker      *LayoutChecker
	maxLeafSize  int
}

// NewListSelectors creates a new ListSelectors use case
func NewListSelectors(declarations DeclarationSource, checker *LayoutChecker, cfg *config.RuntimeConfig) *ListSelectors {
	return &ListSelectors{
		declarations: declarations,
		checker:      checker,
		maxLeafSize:  cfg.Router.MaxLeafSize,
	}
}

// SelectorListResult is the selector table with tree statistics
type SelectorListResult struct {
	Entries []router.Entry
	Total   int // Before filtering
	Depth   int
	Leaves  int
}

// entrySource exposes entries to fuzzy matching as "path:Module.signature"
type entrySource []router.Entry

func (s entrySource) String(i int) string {
	return s[i].Module + "." + s[i].Function
}

func (s entrySource) Len() int { return len(s) }

// Run builds the selector table, optionally filtered by a fuzzy query over
// module names and signatures. An exact selector query matches only that selector.
func (uc *ListSelectors) Run(ctx context.Context, query string) (*SelectorListResult, error) {
	snapshot, err := uc.declarations.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load declarations: %w", err)
	}

	tree := router.Build(router.NewEntries(snapshot.Modules(), uc.checker.Include()), uc.maxLeafSize)
	all := tree.All()
	result := &SelectorListResult{
		Entries: all,
		Total:   len(all),
		Depth:   tree.Depth(),
		Leaves:  len(tree.Leaves()),
	}
	if query == "" {
		return result, nil
	}

	if sel, err := models.ParseSelector(query); err == nil {
		result.Entries = nil
		if entry, ok := tree.Lookup(sel); ok {
			result.Entries = []router.Entry{entry}
		}
		return result, nil
	}

	matches := fuzzy.FindFrom(query, entrySource(all))
	result.Entries = make([]router.Entry, 0, len(matches))
	for _, m := range matches {
		result.Entries = append(result.Entries, all[m.Index])
	}
	return result, nil
}
