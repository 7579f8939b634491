package render

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/trebuchet-org/treb-router/internal/usecase"
)

// SelectorsRenderer renders the routed selector table
type SelectorsRenderer struct {
	out io.Writer
}

// NewSelectorsRenderer creates a new selectors renderer
func NewSelectorsRenderer(out io.Writer) *SelectorsRenderer {
	return &SelectorsRenderer{out: out}
}

// Render prints one row per selector followed by the tree shape
func (r *SelectorsRenderer) Render(result *usecase.SelectorListResult) error {
	if len(result.Entries) == 0 {
		fmt.Fprintln(r.out, "No selectors found")
		return nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"SELECTOR", "FUNCTION", "MODULE"})
	for _, e := range result.Entries {
		t.AppendRow(table.Row{selectorStyle.Sprint(e.Selector.Hex()), e.Function, moduleStyle.Sprint(shortName(e.Module))})
	}
	fmt.Fprintln(r.out, t.Render())

	fmt.Fprintln(r.out)
	if len(result.Entries) != result.Total {
		fmt.Fprintf(r.out, "%d of %d selector(s)", len(result.Entries), result.Total)
	} else {
		fmt.Fprintf(r.out, "%d selector(s)", result.Total)
	}
	fmt.Fprintln(r.out, faintStyle.Sprintf(", dispatch depth %d over %d leaves", result.Depth, result.Leaves))
	return nil
}

var _ Renderer[*usecase.SelectorListResult] = (*SelectorsRenderer)(nil)
