package usecase

import (
	"context"
	"fmt"

	"github.com/trebuchet-org/treb-router/internal/domain"
	"github.com/trebuchet-org/treb-router/internal/domain/config"
	"github.com/trebuchet-org/treb-router/internal/domain/models"
	"github.com/trebuchet-org/treb-router/internal/domain/router"
	"github.com/trebuchet-org/treb-router/internal/validation"
)

// PhaseStaticVerification names the phase reported by StaticSafetyError
const PhaseStaticVerification = "static verification"

// LayoutChecker runs every static check of a build
type LayoutChecker struct {
	storage    *validation.StorageVerifier
	interfaces *validation.InterfaceVerifier
}

// NewLayoutChecker creates a checker configured from the [router] table
func NewLayoutChecker(cfg *config.RuntimeConfig) *LayoutChecker {
	return &LayoutChecker{
		storage: validation.NewStorageVerifier(validation.StorageOptions{
			AllowSlotChanges: cfg.Router.AllowSlotChanges,
		}),
		interfaces: validation.NewInterfaceVerifier(validation.ExcludePrefixes(cfg.Router.ExcludeFunctions...)),
	}
}

// Include returns the predicate selecting routed and interface-checked functions
func (c *LayoutChecker) Include() func(name string) bool {
	return c.interfaces.Include()
}

// Check runs duplicate selector detection, the storage verifier and the interface
// verifier. previous may be nil on a first build.
func (c *LayoutChecker) Check(previous *models.DeploymentRecord, snapshot *models.Snapshot) *domain.Report {
	report := &domain.Report{}

	entries := router.NewEntries(snapshot.Modules(), c.Include())
	report.Add(validation.CheckDuplicateSelectors(entries)...)

	var prevStorage map[string]models.StorageNamespace
	if previous != nil {
		prevStorage = previous.Storage
	}
	report.Merge(c.storage.Verify(prevStorage, snapshot))
	report.Merge(c.interfaces.Verify(snapshot))
	return report
}

// CheckLayout runs the static checks without touching the network
type CheckLayout struct {
	cfg          *config.RuntimeConfig
	declarations DeclarationSource
	repo         DeploymentRepository
	checker      *LayoutChecker
}

// NewCheckLayout creates a new check layout use case
func NewCheckLayout(
	cfg *config.RuntimeConfig,
	declarations DeclarationSource,
	repo DeploymentRepository,
	checker *LayoutChecker,
) *CheckLayout {
	return &CheckLayout{
		cfg:          cfg,
		declarations: declarations,
		repo:         repo,
		checker:      checker,
	}
}

// CheckLayoutResult contains every finding of the static checks
type CheckLayoutResult struct {
	Instance  string
	Previous  string // Generation compared against, empty on first build
	Modules   int
	Selectors int
	Report    *domain.Report
}

// Run loads the declarations and the previous deployment and checks them
func (uc *CheckLayout) Run(ctx context.Context, instance string) (*CheckLayoutResult, error) {
	if instance == "" {
		instance = uc.cfg.Instance
	}

	previous, err := uc.repo.LoadPrevious(ctx, instance)
	if err != nil {
		return nil, err
	}

	snapshot, err := uc.declarations.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load declarations: %w", err)
	}

	result := &CheckLayoutResult{
		Instance:  instance,
		Modules:   len(snapshot.Modules()),
		Selectors: len(router.NewEntries(snapshot.Modules(), uc.checker.Include())),
		Report:    uc.checker.Check(previous, snapshot),
	}
	if previous != nil {
		result.Previous = previous.Generation
	}
	return result, nil
}
