package render

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/trebuchet-org/treb-router/internal/adapters/progress"
	"github.com/trebuchet-org/treb-router/internal/domain"
	"github.com/trebuchet-org/treb-router/internal/domain/models"
	"github.com/trebuchet-org/treb-router/internal/usecase"
)

// BuildRenderer renders the outcome of a build
type BuildRenderer struct {
	out      io.Writer
	findings *FindingsRenderer
	stages   []progress.StageDuration
}

// NewBuildRenderer creates a new build renderer
func NewBuildRenderer(out io.Writer) *BuildRenderer {
	return &BuildRenderer{out: out, findings: NewFindingsRenderer(out)}
}

// WithStages adds a timing summary to the output
func (r *BuildRenderer) WithStages(stages []progress.StageDuration) *BuildRenderer {
	scoped := *r
	scoped.stages = stages
	return &scoped
}

// Render prints the summary of a finished build
func (r *BuildRenderer) Render(result *usecase.BuildResult) error {
	fmt.Fprintln(r.out)
	sectionHeaderStyle.Fprintf(r.out, "Build %s for %s\n", orDash(result.Generation), result.Instance)
	if result.Previous != "" {
		fmt.Fprintf(r.out, "  Previous generation: %s\n", faintStyle.Sprint(result.Previous))
	}

	if result.Report != nil && len(result.Report.Warnings()) > 0 {
		fmt.Fprintln(r.out)
		r.findings.RenderFindings(result.Report.Warnings())
	}

	r.renderModules(result)
	r.renderRouter(result)
	r.renderEntryPoint(result)
	r.renderStages()

	if fin := result.Finalize; fin != nil {
		fmt.Fprintln(r.out)
		if fin.Discarded {
			fmt.Fprintln(r.out, FormatSuccess("No changes, nothing was deployed"))
		} else {
			fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Deployment complete (%d gas) → %s", fin.GasUsed, fin.Path)))
		}
	}
	return nil
}

func (r *BuildRenderer) renderModules(result *usecase.BuildResult) {
	if result.Changeset == nil || result.Changeset.Count() == 0 {
		return
	}
	fmt.Fprintln(r.out)
	sectionHeaderStyle.Fprintln(r.out, "Modules:")

	t := newTable()
	t.AppendHeader(table.Row{"MODULE", "ACTION", "REASON", "ADDRESS"})
	for _, c := range result.Changeset.Deploy {
		t.AppendRow(table.Row{moduleStyle.Sprint(c.Contract.Name), r.deployAction(result, c), string(c.Reason), r.address(result, c)})
	}
	for _, c := range result.Changeset.Reuse {
		t.AppendRow(table.Row{moduleStyle.Sprint(c.Contract.Name), faintStyle.Sprint("reuse"), string(c.Reason), r.address(result, c)})
	}
	fmt.Fprintln(r.out, t.Render())
}

func (r *BuildRenderer) deployAction(result *usecase.BuildResult, c models.Change) string {
	fqn := c.Contract.FullyQualifiedName()
	for _, f := range result.Failed {
		if f.Contract == fqn {
			return fatalStyle.Sprint("failed")
		}
	}
	return successStyle.Sprint("deploy")
}

func (r *BuildRenderer) address(result *usecase.BuildResult, c models.Change) string {
	if a, ok := result.Record.Artifact(c.Contract.FullyQualifiedName()); ok && a.Address != "" {
		return addressStyle.Sprint(a.Address)
	}
	return "-"
}

func (r *BuildRenderer) renderRouter(result *usecase.BuildResult) {
	if result.RouterAddress == "" {
		return
	}
	fmt.Fprintln(r.out)
	sectionHeaderStyle.Fprintln(r.out, "Router:")
	state := faintStyle.Sprint("unchanged")
	if result.RouterChanged {
		state = successStyle.Sprint("deployed")
	}
	fmt.Fprintf(r.out, "  %s %s\n", addressStyle.Sprint(result.RouterAddress), state)
}

func (r *BuildRenderer) renderEntryPoint(result *usecase.BuildResult) {
	if result.ProxyAddress == "" {
		return
	}
	fmt.Fprintln(r.out)
	sectionHeaderStyle.Fprintln(r.out, "Entry point:")
	var state string
	switch {
	case result.ProxyDeployed:
		state = successStyle.Sprint("deployed")
	case result.ProxyUpgraded:
		state = successStyle.Sprintf("upgraded to %s", result.RouterAddress)
	case result.ProxySkipped:
		state = warningStyle.Sprint("upgrade skipped")
	default:
		state = faintStyle.Sprint("up to date")
	}
	fmt.Fprintf(r.out, "  %s %s\n", addressStyle.Sprint(result.ProxyAddress), state)
}

func (r *BuildRenderer) renderStages() {
	if len(r.stages) == 0 {
		return
	}
	fmt.Fprintln(r.out)
	sectionHeaderStyle.Fprintln(r.out, "Timing:")
	for _, s := range r.stages {
		fmt.Fprintf(r.out, "  %-12s %s\n", title(s.Stage), faintStyle.Sprint(s.Duration.Round(time.Millisecond)))
	}
}

// RenderError explains a failed build. Verification and invariant errors
// list every finding; other errors print as a single line.
func (r *BuildRenderer) RenderError(err error) {
	var safety *domain.StaticSafetyError
	var invariant *domain.InvariantViolation
	var failures domain.TransactionFailures

	fmt.Fprintln(r.out)
	switch {
	case errors.As(err, &safety):
		fmt.Fprintln(r.out, FormatError(fmt.Sprintf("%s failed with %d fatal finding(s)", title(safety.Phase), len(safety.Findings))))
		r.findings.RenderFindings(safety.Findings)
		fmt.Fprintln(r.out, faintStyle.Sprint("No transactions were submitted."))
	case errors.As(err, &invariant):
		fmt.Fprintln(r.out, FormatError("Invariant violated for "+invariant.Subject))
		fmt.Fprintf(r.out, "  %s\n", invariant.Reason)
		if invariant.Expected != "" || invariant.Actual != "" {
			fmt.Fprintf(r.out, "  expected %s\n  actual   %s\n", invariant.Expected, invariant.Actual)
		}
	case errors.As(err, &failures):
		fmt.Fprintln(r.out, FormatError(fmt.Sprintf("%d transaction(s) failed", len(failures))))
		for _, f := range failures {
			fmt.Fprintf(r.out, "  - %s\n", f.Error())
		}
		fmt.Fprintln(r.out, faintStyle.Sprint("Re-run the build to resume; confirmed deploys are kept."))
	case errors.Is(err, domain.ErrAborted):
		fmt.Fprintln(r.out, FormatWarning("Build aborted, no transactions were submitted"))
	default:
		fmt.Fprintln(r.out, FormatError(err.Error()))
	}
}

var _ Renderer[*usecase.BuildResult] = (*BuildRenderer)(nil)
