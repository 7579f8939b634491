package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"github.com/trebuchet-org/treb-router/internal/domain"
	"github.com/trebuchet-org/treb-router/internal/domain/models"
)

// StorageOptions tunes the storage verifier
type StorageOptions struct {
	// AllowSlotChanges reports a relocated namespace as a warning instead of a fatal finding
	AllowSlotChanges bool
}

// StorageVerifier diffs the storage declarations of two builds
type StorageVerifier struct {
	opts StorageOptions
}

// NewStorageVerifier creates a storage layout verifier
func NewStorageVerifier(opts StorageOptions) *StorageVerifier {
	return &StorageVerifier{opts: opts}
}

// Verify runs every storage check. previous may be empty on a first build.
func (v *StorageVerifier) Verify(previous map[string]models.StorageNamespace, current *models.Snapshot) *domain.Report {
	report := &domain.Report{}
	namespaces := current.Namespaces()

	report.Add(CheckCollisions(namespaces)...)
	report.Add(v.CheckSlotChanges(previous, namespaces)...)
	report.Add(CheckMutations(previous, namespaces)...)
	report.Add(CheckShapes(namespaces)...)
	report.Add(CheckDirectStorage(current.Modules())...)
	return report
}

// CheckCollisions reports one fatal finding per slot shared by distinct namespaces
func CheckCollisions(namespaces map[string]models.StorageNamespace) []domain.Finding {
	bySlot := lo.GroupBy(lo.Values(namespaces), func(ns models.StorageNamespace) common.Hash { return ns.Slot })

	slots := lo.Keys(bySlot)
	sort.Slice(slots, func(i, j int) bool { return slots[i].Hex() < slots[j].Hex() })

	var findings []domain.Finding
	for _, slot := range slots {
		ids := lo.Uniq(lo.Map(bySlot[slot], func(ns models.StorageNamespace, _ int) string { return ns.ID() }))
		if len(ids) < 2 {
			continue
		}
		sort.Strings(ids)
		contracts := lo.Uniq(lo.Map(bySlot[slot], func(ns models.StorageNamespace, _ int) string { return ns.Contract }))
		sort.Strings(contracts)

		findings = append(findings, domain.Finding{
			Kind:      domain.FindingDuplicateSlot,
			Severity:  domain.SeverityFatal,
			Contracts: contracts,
			Namespace: strings.Join(ids, ", "),
			Message:   fmt.Sprintf("duplicate namespace slot %s shared by %s", slot.Hex(), strings.Join(ids, ", ")),
		})
	}
	return findings
}

// CheckSlotChanges compares the slot of every namespace present in both builds
func (v *StorageVerifier) CheckSlotChanges(previous, current map[string]models.StorageNamespace) []domain.Finding {
	severity := domain.SeverityFatal
	if v.opts.AllowSlotChanges {
		severity = domain.SeverityWarning
	}

	var findings []domain.Finding
	for _, id := range sortedIDs(current) {
		cur := current[id]
		prev, ok := previous[id]
		if !ok || prev.Slot == cur.Slot {
			continue
		}
		findings = append(findings, domain.Finding{
			Kind:      domain.FindingSlotChanged,
			Severity:  severity,
			Contracts: []string{cur.Contract},
			Namespace: id,
			Message:   fmt.Sprintf("namespace %s moved from slot %s to %s; existing state is no longer reachable", id, prev.Slot.Hex(), cur.Slot.Hex()),
		})
	}
	return findings
}

// CheckMutations aligns the members of namespaces present in both builds by index.
// Each namespace yields at most one finding per category.
func CheckMutations(previous, current map[string]models.StorageNamespace) []domain.Finding {
	var findings []domain.Finding
	for _, id := range sortedIDs(current) {
		cur := current[id]
		prev, ok := previous[id]
		if !ok {
			continue
		}

		var modified, removed, appended []string
		for i, old := range prev.Members {
			now, exists := cur.Member(i)
			if !exists {
				removed = append(removed, describeMember(old))
				continue
			}
			if now.Name != old.Name || now.Type.Label != old.Type.Label {
				modified = append(modified, fmt.Sprintf("%s -> %s", describeMember(old), describeMember(now)))
			}
		}
		for i := len(prev.Members); i < len(cur.Members); i++ {
			appended = append(appended, describeMember(cur.Members[i]))
		}

		if len(appended) > 0 {
			findings = append(findings, domain.Finding{
				Kind:      domain.FindingAppends,
				Severity:  domain.SeverityInfo,
				Contracts: []string{cur.Contract},
				Namespace: id,
				Members:   appended,
				Message:   fmt.Sprintf("%s appends %s", id, strings.Join(appended, ", ")),
			})
		}
		if len(modified) > 0 {
			findings = append(findings, domain.Finding{
				Kind:      domain.FindingInvalidModification,
				Severity:  domain.SeverityFatal,
				Contracts: []string{cur.Contract},
				Namespace: id,
				Members:   modified,
				Message:   fmt.Sprintf("invalid modification of %s: %s", id, strings.Join(modified, "; ")),
			})
		}
		if len(removed) > 0 {
			findings = append(findings, domain.Finding{
				Kind:      domain.FindingInvalidRemoval,
				Severity:  domain.SeverityFatal,
				Contracts: []string{cur.Contract},
				Namespace: id,
				Members:   removed,
				Message:   fmt.Sprintf("invalid removal from %s: %s", id, strings.Join(removed, ", ")),
			})
		}
	}
	return findings
}

// CheckShapes rejects members whose type contains a nested struct
func CheckShapes(namespaces map[string]models.StorageNamespace) []domain.Finding {
	var findings []domain.Finding
	for _, id := range sortedIDs(namespaces) {
		ns := namespaces[id]
		for _, m := range ns.Members {
			if !m.Type.ContainsStruct() {
				continue
			}
			findings = append(findings, domain.Finding{
				Kind:      domain.FindingNestedStruct,
				Severity:  domain.SeverityFatal,
				Contracts: []string{ns.Contract},
				Namespace: id,
				Members:   []string{describeMember(m)},
				Message:   fmt.Sprintf("nested struct %s in %s", describeMember(m), id),
			})
		}
	}
	return findings
}

// CheckDirectStorage rejects mutable state variables declared outside a namespace
func CheckDirectStorage(modules []*models.Contract) []domain.Finding {
	var findings []domain.Finding
	for _, m := range modules {
		for _, v := range m.StateVariables {
			if !v.Mutable() {
				continue
			}
			findings = append(findings, domain.Finding{
				Kind:      domain.FindingDirectStorage,
				Severity:  domain.SeverityFatal,
				Contracts: []string{m.FullyQualifiedName()},
				Members:   []string{v.Name},
				Message:   fmt.Sprintf("%s declares storage variable %s %s outside a namespace", m.Name, v.Type.Label, v.Name),
			})
		}
	}
	return findings
}

func describeMember(m models.Member) string {
	return fmt.Sprintf("%s:%s", m.Name, m.Type.Label)
}

func sortedIDs(namespaces map[string]models.StorageNamespace) []string {
	ids := lo.Keys(namespaces)
	sort.Strings(ids)
	return ids
}
