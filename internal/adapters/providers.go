package adapters

import (
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/wire"
	"github.com/trebuchet-org/treb-router/internal/adapters/broadcast"
	"github.com/trebuchet-org/treb-router/internal/adapters/declarations"
	"github.com/trebuchet-org/treb-router/internal/adapters/forge"
	"github.com/trebuchet-org/treb-router/internal/adapters/fs"
	"github.com/trebuchet-org/treb-router/internal/adapters/interactive"
	"github.com/trebuchet-org/treb-router/internal/adapters/template"
	"github.com/trebuchet-org/treb-router/internal/domain/config"
	"github.com/trebuchet-org/treb-router/internal/usecase"
)

// DryRunDir keeps dry-run documents apart from the real ones
const DryRunDir = "dry-run"

// ProvideDeploymentRepository provides the document repository. Dry runs
// write under their own directory so they never become a baseline.
func ProvideDeploymentRepository(cfg *config.RuntimeConfig) *fs.DeploymentRepository {
	if !cfg.DryRun {
		return fs.NewDeploymentRepository(cfg)
	}
	dry := *cfg
	dry.DataDir = filepath.Join(cfg.DataDir, DryRunDir)
	return fs.NewDeploymentRepository(&dry)
}

// ProvideRouterCompiler provides forge, or the offline compiler when asked
// for or for dry runs on machines without forge
func ProvideRouterCompiler(cfg *config.RuntimeConfig, log *slog.Logger) usecase.RouterCompiler {
	switch cfg.Compiler {
	case "offline":
		return forge.NewOfflineCompiler()
	case "forge":
		return forge.NewForgeAdapter(cfg, log)
	}
	if cfg.DryRun {
		if _, err := exec.LookPath("forge"); err != nil {
			log.Debug("forge not found, compiling router offline")
			return forge.NewOfflineCompiler()
		}
	}
	return forge.NewForgeAdapter(cfg, log)
}

// ProvideBroadcaster provides the RPC broadcaster, or the dry-run one. An
// instance that cannot broadcast yields a broadcaster that reports why on use.
func ProvideBroadcaster(cfg *config.RuntimeConfig, log *slog.Logger) usecase.Broadcaster {
	if !cfg.DryRun {
		b, err := broadcast.NewRPCBroadcaster(cfg, log)
		if err != nil {
			return broadcast.NewUnavailable(err)
		}
		return b
	}
	sender := broadcast.DefaultDryRunSender
	if inst := cfg.InstanceConfig; inst != nil && inst.PrivateKey != "" {
		if key, err := crypto.HexToECDSA(strings.TrimPrefix(inst.PrivateKey, "0x")); err == nil {
			sender = crypto.PubkeyToAddress(key.PublicKey).Hex()
		}
	}
	return broadcast.NewDryRunBroadcaster(sender, 0)
}

// FSSet provides filesystem-based implementations
var FSSet = wire.NewSet(
	ProvideDeploymentRepository,
	wire.Bind(new(usecase.DeploymentRepository), new(*fs.DeploymentRepository)),
	wire.Bind(new(usecase.DeploymentInspector), new(*fs.DeploymentRepository)),

	declarations.NewLoader,
	wire.Bind(new(usecase.DeclarationSource), new(*declarations.Loader)),
)

// ForgeSet provides the router compiler
var ForgeSet = wire.NewSet(
	ProvideRouterCompiler,
)

// TemplateSet provides template-based implementations
var TemplateSet = wire.NewSet(
	template.NewRouterGeneratorAdapter,
	wire.Bind(new(usecase.RouterGenerator), new(*template.RouterGeneratorAdapter)),
)

// InteractiveSet provides interactive implementations
var InteractiveSet = wire.NewSet(
	interactive.NewSelectorAdapter,
	interactive.NewOperatorAdapter,
	wire.Bind(new(usecase.Operator), new(*interactive.OperatorAdapter)),
)

// BroadcastSet provides the transaction broadcaster
var BroadcastSet = wire.NewSet(
	ProvideBroadcaster,
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	FSSet,
	ForgeSet,
	TemplateSet,
	InteractiveSet,
	BroadcastSet,
)
