package fs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"sync"

	"github.com/trebuchet-org/treb-router/internal/domain"
	"github.com/trebuchet-org/treb-router/internal/domain/models"
	"github.com/trebuchet-org/treb-router/internal/usecase"
)

// Document keys written to the change log
const (
	KeyGeneration = "generation"
	KeyInstance   = "instance"
	KeyPrevious   = "previous"
	KeyStorage    = "storage"
	KeyGasUsed    = "gasUsed"
	KeyCompleted  = "completed"
)

// DeploymentStateStore is the single writer of one deployment document. Every
// setter compares against the current value and rewrites the document only on
// change.
type DeploymentStateStore struct {
	mu      sync.Mutex
	path    string
	record  *models.DeploymentRecord
	changes io.Writer
	closer  io.Closer
	last    []byte
	writes  int
}

// StateOption configures a DeploymentStateStore
type StateOption func(*DeploymentStateStore)

// WithChangeLog directs change-log lines to w instead of the sibling .changes.log file
func WithChangeLog(w io.Writer) StateOption {
	return func(s *DeploymentStateStore) {
		s.changes = w
	}
}

// ChangeLogPath returns the change-log file kept next to a document
func ChangeLogPath(path string) string {
	return trimExt(path) + ".changes.log"
}

func trimExt(path string) string {
	return path[:len(path)-len(filepath.Ext(path))]
}

// OpenDeploymentState opens the document at path, creating it from initial when it
// does not exist yet.
func OpenDeploymentState(path string, initial *models.DeploymentRecord, opts ...StateOption) (*DeploymentStateStore, error) {
	s := &DeploymentStateStore{path: path}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &domain.PersistenceError{Op: "create directory for", Path: path, Err: err}
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var record models.DeploymentRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, &domain.PersistenceError{Op: "parse", Path: path, Err: err}
		}
		normalizeRecord(&record)
		s.record = &record
		s.last = data
	case os.IsNotExist(err):
		if initial == nil {
			return nil, &domain.PersistenceError{Op: "open", Path: path, Err: domain.ErrNotFound}
		}
		s.record = cloneRecord(initial)
		normalizeRecord(s.record)
	default:
		return nil, &domain.PersistenceError{Op: "read", Path: path, Err: err}
	}

	if s.changes == nil {
		f, err := os.OpenFile(ChangeLogPath(path), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, &domain.PersistenceError{Op: "open change log", Path: path, Err: err}
		}
		s.changes = f
		s.closer = f
	}

	if s.last == nil {
		if _, err := s.flush(); err != nil {
			return nil, err
		}
		s.logChange(KeyGeneration, s.record.Generation)
	}
	return s, nil
}

// LoadDeploymentRecord reads a document without opening it for writing
func LoadDeploymentRecord(path string) (*models.DeploymentRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &domain.PersistenceError{Op: "read", Path: path, Err: err}
	}
	var record models.DeploymentRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, &domain.PersistenceError{Op: "parse", Path: path, Err: err}
	}
	normalizeRecord(&record)
	return &record, nil
}

// Record returns a copy of the current document
func (s *DeploymentStateStore) Record() *models.DeploymentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecord(s.record)
}

// Path returns the document location
func (s *DeploymentStateStore) Path() string {
	return s.path
}

// Writes returns the number of times the document was rewritten
func (s *DeploymentStateStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Set updates a top-level string property
func (s *DeploymentStateStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var field *string
	switch key {
	case KeyGeneration:
		field = &s.record.Generation
	case KeyInstance:
		field = &s.record.Instance
	case KeyPrevious:
		field = &s.record.Previous
	default:
		return fmt.Errorf("unknown deployment property %q", key)
	}
	if *field == value {
		return nil
	}
	old := *field
	*field = value
	wrote, err := s.flush()
	if err != nil {
		*field = old
		return err
	}
	if wrote {
		s.logChange(key, value)
	}
	return nil
}

// SetStorage replaces the recorded storage layout
func (s *DeploymentStateStore) SetStorage(storage map[string]models.StorageNamespace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]models.StorageNamespace, len(storage))
	for id, ns := range storage {
		next[id] = ns
	}
	if reflect.DeepEqual(s.record.Storage, next) {
		return nil
	}
	old := s.record.Storage
	s.record.Storage = next
	wrote, err := s.flush()
	if err != nil {
		s.record.Storage = old
		return err
	}
	if wrote {
		s.logChange(KeyStorage, fmt.Sprintf("%d namespaces", len(storage)))
	}
	return nil
}

// SetArtifact replaces the record of one artifact
func (s *DeploymentStateStore) SetArtifact(fqn string, artifact *models.ArtifactRecord) error {
	if artifact == nil {
		return fmt.Errorf("nil artifact for %s", fqn)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	old, existed := s.record.Contracts[fqn]
	if existed && reflect.DeepEqual(old, artifact) {
		return nil
	}
	s.record.Contracts[fqn] = artifact.Clone()
	wrote, err := s.flush()
	if err != nil {
		if existed {
			s.record.Contracts[fqn] = old
		} else {
			delete(s.record.Contracts, fqn)
		}
		return err
	}
	if wrote {
		prefix := "contracts." + fqn
		if !existed {
			s.logChange(prefix+".address", artifact.Address)
			return nil
		}
		changed := artifactChanges(old, artifact)
		if len(changed) == 0 {
			s.logChange(prefix, "updated")
		}
		for _, c := range changed {
			s.logChange(prefix+"."+c[0], c[1])
		}
	}
	return nil
}

// artifactChanges lists the scalar fields that differ between two records as
// key/value pairs holding the new value.
func artifactChanges(old, updated *models.ArtifactRecord) [][2]string {
	var out [][2]string
	if old.Address != updated.Address {
		out = append(out, [2]string{"address", updated.Address})
	}
	if old.BytecodeHash != updated.BytecodeHash {
		out = append(out, [2]string{"bytecodeHash", updated.BytecodeHash})
	}
	if old.Implementation != updated.Implementation {
		out = append(out, [2]string{"implementation", updated.Implementation})
	}
	if old.SourceCode != updated.SourceCode {
		out = append(out, [2]string{"sourceCode", fmt.Sprintf("%d bytes", len(updated.SourceCode))})
	}
	if old.Carried != updated.Carried {
		out = append(out, [2]string{"carried", strconv.FormatBool(updated.Carried)})
	}
	return out
}

// RecordTransaction stores a transaction outcome under an artifact
func (s *DeploymentStateStore) RecordTransaction(fqn, key string, outcome *models.TransactionOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	artifact, ok := s.record.Contracts[fqn]
	if !ok {
		artifact = &models.ArtifactRecord{}
	}
	if prev, ok := artifact.Transactions[key]; ok && reflect.DeepEqual(prev, outcome) {
		return nil
	}
	updated := artifact.Clone()
	if updated.Transactions == nil {
		updated.Transactions = map[string]*models.TransactionOutcome{}
	}
	copied := *outcome
	updated.Transactions[key] = &copied

	s.record.Contracts[fqn] = updated
	wrote, err := s.flush()
	if err != nil {
		if ok {
			s.record.Contracts[fqn] = artifact
		} else {
			delete(s.record.Contracts, fqn)
		}
		return err
	}
	if wrote {
		s.logChange("contracts."+fqn+".transactions."+key, string(outcome.Status))
	}
	return nil
}

// AddGasUsed accumulates gas spent by the build
func (s *DeploymentStateStore) AddGasUsed(gas uint64) error {
	if gas == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record.GasUsed += gas
	wrote, err := s.flush()
	if err != nil {
		s.record.GasUsed -= gas
		return err
	}
	if wrote {
		s.logChange(KeyGasUsed, strconv.FormatUint(s.record.GasUsed, 10))
	}
	return nil
}

// SetCompleted marks the build as finished
func (s *DeploymentStateStore) SetCompleted(completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.record.Completed == completed {
		return nil
	}
	s.record.Completed = completed
	wrote, err := s.flush()
	if err != nil {
		s.record.Completed = !completed
		return err
	}
	if wrote {
		s.logChange(KeyCompleted, strconv.FormatBool(completed))
	}
	return nil
}

// Close releases the change log
func (s *DeploymentStateStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

// flush rewrites the document through a temporary file. Callers hold mu.
func (s *DeploymentStateStore) flush() (bool, error) {
	data, err := json.MarshalIndent(s.record, "", "  ")
	if err != nil {
		return false, &domain.PersistenceError{Op: "marshal", Path: s.path, Err: err}
	}
	data = append(data, '\n')
	if bytes.Equal(data, s.last) {
		return false, nil
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return false, &domain.PersistenceError{Op: "write", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return false, &domain.PersistenceError{Op: "replace", Path: s.path, Err: err}
	}
	s.last = data
	s.writes++
	return true, nil
}

// logChange appends one key=value line. The log is advisory; write errors are ignored.
func (s *DeploymentStateStore) logChange(key, value string) {
	if s.changes != nil {
		_, _ = fmt.Fprintf(s.changes, "%s=%s\n", key, value)
	}
}

func normalizeRecord(r *models.DeploymentRecord) {
	if r.Contracts == nil {
		r.Contracts = make(map[string]*models.ArtifactRecord)
	}
	if r.Storage == nil {
		r.Storage = make(map[string]models.StorageNamespace)
	}
}

func cloneRecord(r *models.DeploymentRecord) *models.DeploymentRecord {
	out := *r
	out.Contracts = make(map[string]*models.ArtifactRecord, len(r.Contracts))
	for k, a := range r.Contracts {
		out.Contracts[k] = a.Clone()
	}
	out.Storage = make(map[string]models.StorageNamespace, len(r.Storage))
	for k, ns := range r.Storage {
		out.Storage[k] = ns
	}
	return &out
}

// Ensure DeploymentStateStore implements DeploymentState
var _ usecase.DeploymentState = (*DeploymentStateStore)(nil)
