// Package validation holds the static checks that run before any transaction
// is submitted: selector uniqueness, storage layout safety and interface coverage.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/trebuchet-org/treb-router/internal/domain"
	"github.com/trebuchet-org/treb-router/internal/domain/models"
	"github.com/trebuchet-org/treb-router/internal/domain/router"
)

// CheckDuplicateSelectors reports one fatal finding per selector that appears
// more than once across the module set, whether in several modules or twice
// within the same module.
func CheckDuplicateSelectors(entries []router.Entry) []domain.Finding {
	groups := lo.GroupBy(entries, func(e router.Entry) models.Selector { return e.Selector })

	selectors := lo.Keys(groups)
	sort.Slice(selectors, func(i, j int) bool { return selectors[i] < selectors[j] })

	var findings []domain.Finding
	for _, sel := range selectors {
		group := groups[sel]
		if len(group) < 2 {
			continue
		}
		modules := lo.Uniq(lo.Map(group, func(e router.Entry, _ int) string { return e.Module }))
		sort.Strings(modules)
		signatures := lo.Uniq(lo.Map(group, func(e router.Entry, _ int) string { return e.Function }))
		sort.Strings(signatures)

		message := fmt.Sprintf("selector %s (%s) is implemented by %d modules",
			sel.Hex(), strings.Join(signatures, ", "), len(modules))
		if len(modules) == 1 {
			message = fmt.Sprintf("selector %s (%s) is declared %d times in %s",
				sel.Hex(), strings.Join(signatures, ", "), len(group), modules[0])
		}

		findings = append(findings, domain.Finding{
			Kind:      domain.FindingDuplicateSelector,
			Severity:  domain.SeverityFatal,
			Contracts: modules,
			Function:  sel.Hex(),
			Message:   message,
		})
	}
	return findings
}
