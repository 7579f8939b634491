package adapters

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/treb-router/internal/adapters/broadcast"
	"github.com/trebuchet-org/treb-router/internal/adapters/forge"
	"github.com/trebuchet-org/treb-router/internal/domain/config"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// First anvil account
const anvilKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestProvideBroadcaster(t *testing.T) {
	t.Run("rpc instance", func(t *testing.T) {
		cfg := &config.RuntimeConfig{Instance: "local", InstanceConfig: &config.InstanceConfig{
			RPCURL:     "http://localhost:8545",
			PrivateKey: anvilKey,
		}}

		b := ProvideBroadcaster(cfg, discard)
		assert.IsType(t, &broadcast.RPCBroadcaster{}, b)
	})

	t.Run("missing key is reported on use", func(t *testing.T) {
		cfg := &config.RuntimeConfig{Instance: "local", InstanceConfig: &config.InstanceConfig{RPCURL: "http://localhost:8545"}}

		b := ProvideBroadcaster(cfg, discard)
		require.IsType(t, &broadcast.Unavailable{}, b)
		assert.ErrorContains(t, b.(*broadcast.Unavailable).Ready(), "private_key")
	})

	t.Run("dry run derives the sender from the key", func(t *testing.T) {
		cfg := &config.RuntimeConfig{DryRun: true, InstanceConfig: &config.InstanceConfig{PrivateKey: anvilKey}}

		b := ProvideBroadcaster(cfg, discard)
		require.IsType(t, &broadcast.DryRunBroadcaster{}, b)
		assert.Equal(t, broadcast.DefaultDryRunSender, b.Sender())
	})
}

func TestProvideDeploymentRepository(t *testing.T) {
	dataDir := t.TempDir()

	live := ProvideDeploymentRepository(&config.RuntimeConfig{DataDir: dataDir})
	assert.Equal(t, filepath.Join(dataDir, "local", "deployment.json"), live.BaselinePath("local"))

	dry := ProvideDeploymentRepository(&config.RuntimeConfig{DataDir: dataDir, DryRun: true})
	assert.Equal(t, filepath.Join(dataDir, DryRunDir, "local", "deployment.json"), dry.BaselinePath("local"))
}

func TestProvideRouterCompiler(t *testing.T) {
	c := ProvideRouterCompiler(&config.RuntimeConfig{Router: config.DefaultRouterConfig()}, discard)
	assert.IsType(t, &forge.ForgeAdapter{}, c)

	c = ProvideRouterCompiler(&config.RuntimeConfig{Compiler: "offline"}, discard)
	assert.IsType(t, &forge.OfflineCompiler{}, c)
}
