package domain

import (
	"fmt"
	"strings"
)

// Severity of a verification finding
type Severity string

const (
	SeverityFatal   Severity = "fatal"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// FindingKind identifies the check that produced a finding
type FindingKind string

const (
	FindingDuplicateSelector   FindingKind = "duplicate-selector"
	FindingDuplicateSlot       FindingKind = "duplicate-namespace-slot"
	FindingSlotChanged         FindingKind = "namespace-slot-changed"
	FindingAppends             FindingKind = "appends"
	FindingInvalidModification FindingKind = "invalid-modification"
	FindingInvalidRemoval      FindingKind = "invalid-removal"
	FindingNestedStruct        FindingKind = "nested-struct"
	FindingDirectStorage       FindingKind = "direct-storage"
	FindingMissingInterface    FindingKind = "missing-interface"
)

// Finding is one result of a static verification check
type Finding struct {
	Kind      FindingKind
	Severity  Severity
	Contracts []string // Fully-qualified names of the offending contracts
	Namespace string   // Namespace ID, when the finding concerns storage
	Function  string   // Function signature or selector, when relevant
	Members   []string // Affected members, for mutation findings
	Message   string
}

func (f Finding) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", f.Kind, f.Message)
	if len(f.Contracts) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(f.Contracts, ", "))
	}
	return b.String()
}

// Report collects the findings of one or more checks
type Report struct {
	Findings []Finding
}

// Add appends findings to the report
func (r *Report) Add(findings ...Finding) {
	r.Findings = append(r.Findings, findings...)
}

// Merge appends the findings of another report
func (r *Report) Merge(other *Report) {
	if other != nil {
		r.Add(other.Findings...)
	}
}

// BySeverity returns the findings with the given severity
func (r *Report) BySeverity(sev Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == sev {
			out = append(out, f)
		}
	}
	return out
}

// Fatal returns the fatal findings
func (r *Report) Fatal() []Finding { return r.BySeverity(SeverityFatal) }

// Warnings returns the findings that need operator acknowledgment
func (r *Report) Warnings() []Finding { return r.BySeverity(SeverityWarning) }

// HasFatal reports whether any finding is fatal
func (r *Report) HasFatal() bool { return len(r.Fatal()) > 0 }

// Err converts the fatal findings into a StaticSafetyError, or nil
func (r *Report) Err(phase string) error {
	fatal := r.Fatal()
	if len(fatal) == 0 {
		return nil
	}
	return &StaticSafetyError{Phase: phase, Findings: fatal}
}
