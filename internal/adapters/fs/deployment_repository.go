package fs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/trebuchet-org/treb-router/internal/domain"
	"github.com/trebuchet-org/treb-router/internal/domain/config"
	"github.com/trebuchet-org/treb-router/internal/domain/models"
	"github.com/trebuchet-org/treb-router/internal/usecase"
)

const (
	baselineFile = "deployment.json"
	pendingFile  = "pending.json"
	historyDir   = "history"
)

// DeploymentRepository lays out the documents of every instance under the data directory:
//
//	<data_dir>/<instance>/deployment.json       last completed build
//	<data_dir>/<instance>/pending.json          build in progress
//	<data_dir>/<instance>/pending.changes.log   change log of the build in progress
//	<data_dir>/<instance>/history/<gen>.json    every completed build
type DeploymentRepository struct {
	dataDir string
	opts    []StateOption
}

// NewDeploymentRepository creates a repository rooted at the configured data directory
func NewDeploymentRepository(cfg *config.RuntimeConfig, opts ...StateOption) *DeploymentRepository {
	return &DeploymentRepository{
		dataDir: cfg.DataDir,
		opts:    opts,
	}
}

func (r *DeploymentRepository) instanceDir(instance string) string {
	return filepath.Join(r.dataDir, instance)
}

// BaselinePath returns the location of the last completed document
func (r *DeploymentRepository) BaselinePath(instance string) string {
	return filepath.Join(r.instanceDir(instance), baselineFile)
}

// PendingPath returns the location of the in-progress document
func (r *DeploymentRepository) PendingPath(instance string) string {
	return filepath.Join(r.instanceDir(instance), pendingFile)
}

// HistoryPath returns the archived location of a completed generation
func (r *DeploymentRepository) HistoryPath(instance, generation string) string {
	return filepath.Join(r.instanceDir(instance), historyDir, generation+".json")
}

// LoadPrevious returns the last completed record, or nil on a first build
func (r *DeploymentRepository) LoadPrevious(_ context.Context, instance string) (*models.DeploymentRecord, error) {
	record, err := LoadDeploymentRecord(r.BaselinePath(instance))
	if err != nil {
		return nil, err
	}
	if record != nil && !record.Completed {
		return nil, &domain.InvariantViolation{
			Subject: r.BaselinePath(instance),
			Reason:  "baseline document is not marked completed",
		}
	}
	return record, nil
}

// LoadPending returns the in-progress record without opening it, or nil
func (r *DeploymentRepository) LoadPending(_ context.Context, instance string) (*models.DeploymentRecord, error) {
	return LoadDeploymentRecord(r.PendingPath(instance))
}

// OpenPending opens the scratch document, resuming an interrupted build
func (r *DeploymentRepository) OpenPending(_ context.Context, instance string, initial *models.DeploymentRecord) (usecase.DeploymentState, error) {
	return OpenDeploymentState(r.PendingPath(instance), initial, r.opts...)
}

// Finalize promotes the pending document when it spent gas and discards it otherwise
func (r *DeploymentRepository) Finalize(_ context.Context, state usecase.DeploymentState, expectChanges bool) (*usecase.FinalizeResult, error) {
	record := state.Record()
	instance := record.Instance
	pending := state.Path()

	if closer, ok := state.(io.Closer); ok {
		defer closer.Close()
	}

	if record.GasUsed == 0 {
		if err := r.discardPending(instance); err != nil {
			return nil, err
		}
		if expectChanges {
			return nil, &domain.InvariantViolation{
				Subject: instance,
				Reason:  "changes were planned but no gas was spent",
			}
		}
		return &usecase.FinalizeResult{Discarded: true, Path: pending}, nil
	}

	if err := state.SetCompleted(true); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(pending)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "read", Path: pending, Err: err}
	}
	history := r.HistoryPath(instance, record.Generation)
	if err := os.MkdirAll(filepath.Dir(history), 0755); err != nil {
		return nil, &domain.PersistenceError{Op: "create directory for", Path: history, Err: err}
	}
	if err := os.WriteFile(history, data, 0644); err != nil {
		return nil, &domain.PersistenceError{Op: "write", Path: history, Err: err}
	}

	baseline := r.BaselinePath(instance)
	if err := os.Rename(pending, baseline); err != nil {
		return nil, &domain.PersistenceError{Op: "promote", Path: baseline, Err: err}
	}
	if err := removeIfExists(ChangeLogPath(pending)); err != nil {
		return nil, err
	}

	return &usecase.FinalizeResult{
		Completed: true,
		Path:      baseline,
		GasUsed:   record.GasUsed,
	}, nil
}

// Clear removes every document of the instance, history included
func (r *DeploymentRepository) Clear(_ context.Context, instance string) error {
	dir := r.instanceDir(instance)
	if err := os.RemoveAll(dir); err != nil {
		return &domain.PersistenceError{Op: "remove", Path: dir, Err: err}
	}
	return nil
}

// History lists archived generations of an instance
func (r *DeploymentRepository) History(_ context.Context, instance string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(r.instanceDir(instance), historyDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	var generations []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		generations = append(generations, trimExt(e.Name()))
	}
	return generations, nil
}

func (r *DeploymentRepository) discardPending(instance string) error {
	pending := r.PendingPath(instance)
	if err := removeIfExists(pending); err != nil {
		return err
	}
	return removeIfExists(ChangeLogPath(pending))
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &domain.PersistenceError{Op: "remove", Path: path, Err: err}
	}
	return nil
}

// Ensure DeploymentRepository implements the repository ports
var (
	_ usecase.DeploymentRepository = (*DeploymentRepository)(nil)
	_ usecase.DeploymentInspector  = (*DeploymentRepository)(nil)
)
