package usecase

import (
	"context"

	"github.com/trebuchet-org/treb-router/internal/domain"
	"github.com/trebuchet-org/treb-router/internal/domain/config"
	"github.com/trebuchet-org/treb-router/internal/domain/models"
)

// ShowDeployment is the use case for showing the state of an instance
type ShowDeployment struct {
	cfg       *config.RuntimeConfig
	repo      DeploymentRepository
	inspector DeploymentInspector
	sink      ProgressSink
}

// NewShowDeployment creates a new ShowDeployment use case
func NewShowDeployment(cfg *config.RuntimeConfig, repo DeploymentRepository, inspector DeploymentInspector, sink ProgressSink) *ShowDeployment {
	return &ShowDeployment{
		cfg:       cfg,
		repo:      repo,
		inspector: inspector,
		sink:      sink,
	}
}

// ShowDeploymentResult contains the documents of one instance
type ShowDeploymentResult struct {
	Instance string
	Current  *models.DeploymentRecord // Last completed build
	Pending  *models.DeploymentRecord // Interrupted build, if any
	History  []string
}

// Run loads the completed and pending documents of an instance
func (uc *ShowDeployment) Run(ctx context.Context, instance string) (*ShowDeploymentResult, error) {
	if instance == "" {
		instance = uc.cfg.Instance
	}

	uc.sink.OnProgress(ctx, ProgressEvent{
		Stage:   "loading",
		Message: "Loading deployment state",
		Spinner: true,
	})

	current, err := uc.repo.LoadPrevious(ctx, instance)
	if err != nil {
		return nil, err
	}
	pending, err := uc.inspector.LoadPending(ctx, instance)
	if err != nil {
		return nil, err
	}
	history, err := uc.inspector.History(ctx, instance)
	if err != nil {
		return nil, err
	}

	uc.sink.OnProgress(ctx, ProgressEvent{Stage: "completed", Message: ""})

	if current == nil && pending == nil {
		return nil, domain.ErrNotFound
	}
	return &ShowDeploymentResult{
		Instance: instance,
		Current:  current,
		Pending:  pending,
		History:  history,
	}, nil
}
