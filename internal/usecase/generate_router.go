package usecase

import (
	"context"
	"fmt"

	"github.com/trebuchet-org/treb-router/internal/domain/config"
	"github.com/trebuchet-org/treb-router/internal/domain/router"
)

// ZeroAddress stands in for modules without a recorded deployment
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// GenerateRouter renders router source from the current declarations and the
// addresses of the last completed build, without deploying anything.
type GenerateRouter struct {
	cfg          *config.RuntimeConfig
	declarations DeclarationSource
	repo         DeploymentRepository
	checker      *LayoutChecker
	generator    RouterGenerator
}

// NewGenerateRouter creates a new GenerateRouter use case
func NewGenerateRouter(
	cfg *config.RuntimeConfig,
	declarations DeclarationSource,
	repo DeploymentRepository,
	checker *LayoutChecker,
	generator RouterGenerator,
) *GenerateRouter {
	return &GenerateRouter{
		cfg:          cfg,
		declarations: declarations,
		repo:         repo,
		checker:      checker,
		generator:    generator,
	}
}

// GenerateRouterResult contains the rendered source
type GenerateRouterResult struct {
	Source    string
	Selectors int
	Depth     int
	// Unresolved lists modules rendered with the zero address
	Unresolved []string
}

// Run renders the router for an instance
func (uc *GenerateRouter) Run(ctx context.Context, instance string) (*GenerateRouterResult, error) {
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

	// Duplicate selectors cannot be rendered
	if err := uc.checker.Check(previous, snapshot).Err(PhaseStaticVerification); err != nil {
		return nil, err
	}

	modules := snapshot.Modules()
	result := &GenerateRouterResult{}
	addresses := make(map[string]string, len(modules))
	for _, m := range modules {
		fqn := m.FullyQualifiedName()
		if a, ok := previous.Artifact(fqn); ok && a.Deployed() {
			addresses[fqn] = a.Address
			continue
		}
		addresses[fqn] = ZeroAddress
		result.Unresolved = append(result.Unresolved, fqn)
	}

	tree := router.Build(router.NewEntries(modules, uc.checker.Include()), uc.cfg.Router.MaxLeafSize)
	source, err := uc.generator.GenerateRouter(ctx, &RouterSpec{
		Name:      uc.cfg.Router.Name,
		Tree:      tree,
		Addresses: addresses,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate router: %w", err)
	}

	result.Source = source
	result.Selectors = len(tree.All())
	result.Depth = tree.Depth()
	return result, nil
}
