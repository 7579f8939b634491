package render

import (
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/trebuchet-org/treb-router/internal/domain"
)

// Renderer prints one use case result
type Renderer[T any] interface {
	Render(result T) error
}

// Color styles shared by the renderers
var (
	sectionHeaderStyle = color.New(color.Bold, color.FgHiWhite)
	addressStyle       = color.New(color.FgWhite)
	moduleStyle        = color.New(color.FgYellow)
	selectorStyle      = color.New(color.FgCyan)
	faintStyle         = color.New(color.Faint)
	fatalStyle         = color.New(color.FgRed, color.Bold)
	warningStyle       = color.New(color.FgYellow)
	infoStyle          = color.New(color.FgBlue)
	successStyle       = color.New(color.FgGreen)
)

// FormatWarning formats a warning message with the warning icon
func FormatWarning(message string) string {
	return color.New(color.FgYellow).Sprintf("⚠️  %s", message)
}

// FormatError formats an error message with the error icon
func FormatError(message string) string {
	msg := message

	// Capitalize first letter
	if len(msg) > 0 {
		msg = strings.ToUpper(msg[:1]) + msg[1:]
	}

	return color.New(color.FgRed).Sprintf("❌ %s", msg)
}

// FormatSuccess formats a success message with the success icon
func FormatSuccess(message string) string {
	return color.New(color.FgGreen).Sprintf("✅ %s", message)
}

// title renders identifiers like "entry_point" as "Entry Point"
func title(s string) string {
	return cases.Title(language.English).String(strings.NewReplacer("_", " ", "-", " ").Replace(s))
}

// severityLabel colors a finding severity
func severityLabel(sev domain.Severity) string {
	switch sev {
	case domain.SeverityFatal:
		return fatalStyle.Sprint(strings.ToUpper(string(sev)))
	case domain.SeverityWarning:
		return warningStyle.Sprint(strings.ToUpper(string(sev)))
	default:
		return infoStyle.Sprint(strings.ToUpper(string(sev)))
	}
}

// newTable returns a borderless table writer
func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = false
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateHeader = false
	t.Style().Options.SeparateColumns = false
	t.Style().Box = table.BoxStyle{
		PaddingLeft:  "  ",
		PaddingRight: " ",
	}
	t.Style().Format.Header = text.FormatDefault
	return t
}

// shortName strips the source path from a fully-qualified name
func shortName(fqn string) string {
	if idx := strings.LastIndex(fqn, ":"); idx != -1 {
		return fqn[idx+1:]
	}
	return fqn
}

// orDash returns "-" for empty values
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
