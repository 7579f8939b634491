package app

import (
	"github.com/trebuchet-org/treb-router/internal/adapters/interactive"
	"github.com/trebuchet-org/treb-router/internal/domain/config"
	"github.com/trebuchet-org/treb-router/internal/usecase"
)

// App is the main application container that holds all use cases
type App struct {
	// Configuration
	Config *config.RuntimeConfig

	// Shared dependencies
	Selector *interactive.SelectorAdapter

	// Use cases
	BuildRouter    *usecase.BuildRouter
	CheckLayout    *usecase.CheckLayout
	ListSelectors  *usecase.ListSelectors
	ShowDeployment *usecase.ShowDeployment
	GenerateRouter *usecase.GenerateRouter
}

// NewApp creates a new application instance with all use cases
func NewApp(
	cfg *config.RuntimeConfig,
	selector *interactive.SelectorAdapter,
	buildRouter *usecase.BuildRouter,
	checkLayout *usecase.CheckLayout,
	listSelectors *usecase.ListSelectors,
	showDeployment *usecase.ShowDeployment,
	generateRouter *usecase.GenerateRouter,
) (*App, error) {
	return &App{
		Config:         cfg,
		Selector:       selector,
		BuildRouter:    buildRouter,
		CheckLayout:    checkLayout,
		ListSelectors:  listSelectors,
		ShowDeployment: showDeployment,
		GenerateRouter: generateRouter,
	}, nil
}
