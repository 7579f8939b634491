//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/treb-router/internal/adapters"
	"github.com/trebuchet-org/treb-router/internal/config"
	"github.com/trebuchet-org/treb-router/internal/logging"
	"github.com/trebuchet-org/treb-router/internal/usecase"
)

// InitApp creates a fully wired App instance
func InitApp(v *viper.Viper, sink usecase.ProgressSink) (*App, error) {
	wire.Build(
		// Configuration
		config.Provider,
		logging.LoggingSet,

		// Adapters
		adapters.AllAdapters,

		// Use cases
		usecase.NewLayoutChecker,
		usecase.NewBuildRouter,
		usecase.NewCheckLayout,
		usecase.NewListSelectors,
		usecase.NewShowDeployment,
		usecase.NewGenerateRouter,

		// App
		NewApp,
	)
	return nil, nil
}
