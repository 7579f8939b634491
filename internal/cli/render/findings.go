package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/trebuchet-org/treb-router/internal/domain"
	"github.com/trebuchet-org/treb-router/internal/usecase"
)

// FindingsRenderer renders verification reports
type FindingsRenderer struct {
	out io.Writer
}

// NewFindingsRenderer creates a new findings renderer
func NewFindingsRenderer(out io.Writer) *FindingsRenderer {
	return &FindingsRenderer{out: out}
}

// RenderFindings prints one row per finding, fatal first
func (r *FindingsRenderer) RenderFindings(findings []domain.Finding) {
	if len(findings) == 0 {
		return
	}

	t := newTable()
	t.AppendHeader(table.Row{"SEVERITY", "CHECK", "SUBJECT", "DETAILS"})
	for _, sev := range []domain.Severity{domain.SeverityFatal, domain.SeverityWarning, domain.SeverityInfo} {
		for _, f := range findings {
			if f.Severity != sev {
				continue
			}
			t.AppendRow(table.Row{severityLabel(f.Severity), string(f.Kind), subject(f), f.Message})
		}
	}
	fmt.Fprintln(r.out, t.Render())
}

// subject summarises what a finding is about
func subject(f domain.Finding) string {
	var parts []string
	if f.Namespace != "" {
		parts = append(parts, f.Namespace)
	}
	if f.Function != "" {
		parts = append(parts, f.Function)
	}
	for _, c := range f.Contracts {
		parts = append(parts, moduleStyle.Sprint(shortName(c)))
	}
	return orDash(strings.Join(parts, " "))
}

// CheckRenderer renders the result of a static check
type CheckRenderer struct {
	out      io.Writer
	findings *FindingsRenderer
}

// NewCheckRenderer creates a new check renderer
func NewCheckRenderer(out io.Writer) *CheckRenderer {
	return &CheckRenderer{out: out, findings: NewFindingsRenderer(out)}
}

// Render prints the findings and a one-line verdict
func (r *CheckRenderer) Render(result *usecase.CheckLayoutResult) error {
	sectionHeaderStyle.Fprintf(r.out, "Layout check for %s\n", result.Instance)
	if result.Previous != "" {
		fmt.Fprintf(r.out, "  Compared against generation %s\n", faintStyle.Sprint(result.Previous))
	} else {
		fmt.Fprintln(r.out, "  No previous deployment, checking declarations only")
	}
	fmt.Fprintf(r.out, "  %d module(s), %d routed selector(s)\n\n", result.Modules, result.Selectors)

	r.findings.RenderFindings(result.Report.Findings)

	fatal, warnings := len(result.Report.Fatal()), len(result.Report.Warnings())
	switch {
	case fatal > 0:
		fmt.Fprintln(r.out, FormatError(fmt.Sprintf("%d fatal finding(s), %d warning(s)", fatal, warnings)))
	case warnings > 0:
		fmt.Fprintln(r.out, FormatWarning(fmt.Sprintf("%d warning(s) need acknowledgment at build time", warnings)))
	default:
		fmt.Fprintln(r.out, FormatSuccess("Layout is safe to build"))
	}
	return nil
}

var _ Renderer[*usecase.CheckLayoutResult] = (*CheckRenderer)(nil)
