package forge

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/treb-router/internal/domain/config"
)

func newTestForgeAdapter(t *testing.T) *ForgeAdapter {
	t.Helper()
	cfg := &config.RuntimeConfig{
		ProjectRoot: t.TempDir(),
		Router:      config.DefaultRouterConfig(),
	}
	return NewForgeAdapter(cfg, slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func TestForgeAdapter_Paths(t *testing.T) {
	f := newTestForgeAdapter(t)

	assert.Equal(t, filepath.Join(f.projectRoot, "src", "generated", "Router.sol"), f.SourcePath("Router"))
	assert.Equal(t, filepath.Join(f.projectRoot, "out", "Router.sol", "Router.json"), f.ArtifactPath("Router"))
}

func TestForgeAdapter_ReadArtifact(t *testing.T) {
	f := newTestForgeAdapter(t)
	path := f.ArtifactPath("Router")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(`{
		"abi": [],
		"bytecode": {"object": "0x6080604052"},
		"deployedBytecode": {"object": "0x60806040"}
	}`), 0644))

	compiled, err := f.ReadArtifact("Router")
	require.NoError(t, err)
	assert.Equal(t, "0x6080604052", compiled.Bytecode)
	assert.Equal(t, "0x60806040", compiled.DeployedBytecode)
}

func TestForgeAdapter_ReadArtifactErrors(t *testing.T) {
	f := newTestForgeAdapter(t)

	_, err := f.ReadArtifact("Router")
	assert.Error(t, err)

	path := f.ArtifactPath("Router")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(`{"bytecode": {"object": "0x"}}`), 0644))
	_, err = f.ReadArtifact("Router")
	assert.ErrorContains(t, err, "no bytecode")
}

func TestOfflineCompiler_Deterministic(t *testing.T) {
	c := NewOfflineCompiler()
	ctx := context.Background()

	a, err := c.CompileRouter(ctx, "Router", "contract Router {}")
	require.NoError(t, err)
	b, err := c.CompileRouter(ctx, "Router", "contract Router {}")
	require.NoError(t, err)
	other, err := c.CompileRouter(ctx, "Router", "contract Router { }")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a.DeployedBytecode, other.DeployedBytecode)
	assert.Len(t, a.DeployedBytecode, 2+64)
}
