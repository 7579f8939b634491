package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/trebuchet-org/treb-router/internal/domain/models"
	"github.com/trebuchet-org/treb-router/internal/usecase"
)

// DeploymentRenderer renders the deployment documents of an instance
type DeploymentRenderer struct {
	out io.Writer
}

// NewDeploymentRenderer creates a new deployment renderer
func NewDeploymentRenderer(out io.Writer) *DeploymentRenderer {
	return &DeploymentRenderer{out: out}
}

// Render prints the current document, any interrupted build and the history
func (r *DeploymentRenderer) Render(result *usecase.ShowDeploymentResult) error {
	color.New(color.FgCyan, color.Bold).Fprintf(r.out, "Instance: %s\n", result.Instance)
	fmt.Fprintln(r.out, strings.Repeat("=", 80))

	if result.Current != nil {
		fmt.Fprintln(r.out)
		r.renderRecord("Current deployment", result.Current)
	} else {
		fmt.Fprintln(r.out, "\nNo completed deployment")
	}

	if result.Pending != nil {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, FormatWarning("Interrupted build found, the next build resumes it"))
		r.renderRecord("Pending deployment", result.Pending)
	}

	if len(result.History) > 0 {
		fmt.Fprintln(r.out)
		sectionHeaderStyle.Fprintln(r.out, "History:")
		for _, gen := range result.History {
			fmt.Fprintf(r.out, "  %s\n", faintStyle.Sprint(gen))
		}
	}
	return nil
}

func (r *DeploymentRenderer) renderRecord(heading string, record *models.DeploymentRecord) {
	sectionHeaderStyle.Fprintf(r.out, "%s:\n", heading)
	fmt.Fprintf(r.out, "  Generation: %s\n", record.Generation)
	if record.Previous != "" {
		fmt.Fprintf(r.out, "  Previous: %s\n", record.Previous)
	}
	if !record.StartedAt.IsZero() {
		fmt.Fprintf(r.out, "  Started: %s\n", record.StartedAt.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(r.out, "  Gas used: %d\n", record.GasUsed)
	fmt.Fprintf(r.out, "  Storage namespaces: %d\n", len(record.Storage))

	if len(record.Contracts) == 0 {
		return
	}
	t := newTable()
	t.AppendHeader(table.Row{"CONTRACT", "ROLE", "ADDRESS", "DEPLOY TX", "STATUS"})
	for _, name := range record.ArtifactNames() {
		a := record.Contracts[name]
		t.AppendRow(table.Row{moduleStyle.Sprint(shortName(name)), role(a), addressStyle.Sprint(orDash(a.Address)), txHash(a), status(a)})
	}
	fmt.Fprintln(r.out, t.Render())

	if _, proxy, ok := record.Proxy(); ok && proxy.Implementation != "" {
		fmt.Fprintf(r.out, "  Entry point forwards to %s\n", addressStyle.Sprint(proxy.Implementation))
	}
}

func role(a *models.ArtifactRecord) string {
	switch {
	case a.IsProxy:
		return "entry point"
	case a.IsRouter:
		return "router"
	case a.IsModule:
		return "module"
	default:
		return "-"
	}
}

func txHash(a *models.ArtifactRecord) string {
	if a.Carried {
		return faintStyle.Sprint("carried")
	}
	if tx, ok := a.Transactions[models.TxDeploy]; ok && tx.Hash != "" {
		return tx.Hash
	}
	return "-"
}

func status(a *models.ArtifactRecord) string {
	keys := make([]string, 0, len(a.Transactions))
	for k := range a.Transactions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if a.Transactions[k].Failed() {
			return fatalStyle.Sprintf("%s failed", k)
		}
	}
	if a.Deployed() {
		return successStyle.Sprint("ok")
	}
	return warningStyle.Sprint("pending")
}

var _ Renderer[*usecase.ShowDeploymentResult] = (*DeploymentRenderer)(nil)
