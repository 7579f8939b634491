package validation

import (
	"fmt"
	"strings"

	"github.com/trebuchet-org/treb-router/internal/domain"
	"github.com/trebuchet-org/treb-router/internal/domain/models"
)

// InterfaceVerifier checks that every visible function of a module is mirrored
// by an interface reachable through the module's dependency graph.
type InterfaceVerifier struct {
	include func(name string) bool
}

// NewInterfaceVerifier creates an interface coverage verifier. include selects
// the functions that must be covered; nil means all visible functions.
func NewInterfaceVerifier(include func(name string) bool) *InterfaceVerifier {
	return &InterfaceVerifier{include: include}
}

// ExcludePrefixes returns a predicate rejecting names that start with any prefix
func ExcludePrefixes(prefixes ...string) func(name string) bool {
	return func(name string) bool {
		for _, p := range prefixes {
			if p != "" && strings.HasPrefix(name, p) {
				return false
			}
		}
		return true
	}
}

// Include exposes the function predicate so router entries use the same filter
func (v *InterfaceVerifier) Include() func(name string) bool {
	return v.include
}

// Verify reports one fatal finding per uncovered visible function
func (v *InterfaceVerifier) Verify(snapshot *models.Snapshot) *domain.Report {
	report := &domain.Report{}
	for _, m := range snapshot.Modules() {
		covered := InterfaceSelectors(snapshot, m.FullyQualifiedName())
		for _, fn := range m.VisibleFunctions(v.include) {
			if covered[fn.Selector] {
				continue
			}
			report.Add(domain.Finding{
				Kind:      domain.FindingMissingInterface,
				Severity:  domain.SeverityFatal,
				Contracts: []string{m.FullyQualifiedName()},
				Function:  fn.Signature,
				Message:   fmt.Sprintf("%s.%s (%s) is not declared in any interface", m.Name, fn.Signature, fn.Selector.Hex()),
			})
		}
	}
	return report
}

// InterfaceSelectors returns the selectors declared by interfaces reachable from fqn
func InterfaceSelectors(snapshot *models.Snapshot, fqn string) map[models.Selector]bool {
	out := make(map[models.Selector]bool)
	for _, dep := range snapshot.Reachable(fqn) {
		if dep.Kind != models.KindInterface {
			continue
		}
		for _, fn := range dep.Functions {
			out[fn.Selector] = true
		}
	}
	return out
}
