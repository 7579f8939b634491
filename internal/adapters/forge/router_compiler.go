package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/creack/pty"

	"github.com/trebuchet-org/treb-router/internal/domain/config"
	"github.com/trebuchet-org/treb-router/internal/usecase"
)

// ForgeAdapter compiles generated router source with forge
type ForgeAdapter struct {
	log          *slog.Logger
	projectRoot  string
	sourceDir    string
	artifactsDir string
	debug        bool
	stdout       io.Writer
}

// NewForgeAdapter creates a new forge compiler
func NewForgeAdapter(cfg *config.RuntimeConfig, log *slog.Logger) *ForgeAdapter {
	return &ForgeAdapter{
		log:          log.With("component", "ForgeAdapter"),
		projectRoot:  cfg.ProjectRoot,
		sourceDir:    cfg.Router.SourceDir,
		artifactsDir: cfg.Router.ArtifactsDir,
		debug:        cfg.Debug,
		stdout:       os.Stdout,
	}
}

// artifact is the subset of a forge output JSON file we read
type artifact struct {
	Bytecode struct {
		Object string `json:"object"`
	} `json:"bytecode"`
	DeployedBytecode struct {
		Object string `json:"object"`
	} `json:"deployedBytecode"`
}

// SourcePath returns where the router source is written
func (f *ForgeAdapter) SourcePath(name string) string {
	return filepath.Join(f.projectRoot, f.sourceDir, name+".sol")
}

// ArtifactPath returns where forge writes the compiled router
func (f *ForgeAdapter) ArtifactPath(name string) string {
	return filepath.Join(f.projectRoot, f.artifactsDir, name+".sol", name+".json")
}

// CompileRouter writes the router source, runs forge build and reads the artifact
func (f *ForgeAdapter) CompileRouter(ctx context.Context, name, source string) (*usecase.CompiledRouter, error) {
	path := f.SourcePath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create router source directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(source), 0644); err != nil {
		return nil, fmt.Errorf("failed to write router source: %w", err)
	}

	if err := f.Build(ctx); err != nil {
		return nil, err
	}
	return f.ReadArtifact(name)
}

// Build runs forge build in the project root
func (f *ForgeAdapter) Build(ctx context.Context) error {
	start := time.Now()
	f.log.Debug("running forge build", "dir", f.projectRoot)

	cmd := exec.CommandContext(ctx, "forge", "build")
	cmd.Dir = f.projectRoot

	if f.debug {
		return f.stream(cmd)
	}

	output, err := cmd.CombinedOutput()
	duration := time.Since(start)
	if err != nil {
		f.log.Error("forge build failed", "error", err, "output", string(output), "duration", duration)
		return fmt.Errorf("forge build failed: %w\nOutput: %s", err, string(output))
	}

	f.log.Debug("forge build completed successfully", "duration", duration)
	return nil
}

// stream copies forge output through a pty so colors survive
func (f *ForgeAdapter) stream(cmd *exec.Cmd) error {
	ptyFile, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("failed to start pty: %w", err)
	}
	defer func() {
		_ = ptyFile.Close()
	}()

	_, _ = io.Copy(f.stdout, ptyFile)
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("forge build failed: %w", err)
	}
	return nil
}

// ReadArtifact loads the compiled router bytecode
func (f *ForgeAdapter) ReadArtifact(name string) (*usecase.CompiledRouter, error) {
	path := f.ArtifactPath(name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read router artifact: %w", err)
	}
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse router artifact %s: %w", path, err)
	}
	if strings.TrimPrefix(a.Bytecode.Object, "0x") == "" {
		return nil, fmt.Errorf("router artifact %s has no bytecode", path)
	}
	return &usecase.CompiledRouter{
		Bytecode:         a.Bytecode.Object,
		DeployedBytecode: a.DeployedBytecode.Object,
	}, nil
}

// Ensure ForgeAdapter implements RouterCompiler
var _ usecase.RouterCompiler = (*ForgeAdapter)(nil)
