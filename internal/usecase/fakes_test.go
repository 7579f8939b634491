package usecase_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/trebuchet-org/treb-router/internal/domain"
	"github.com/trebuchet-org/treb-router/internal/domain/models"
	"github.com/trebuchet-org/treb-router/internal/usecase"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// staticDeclarations returns a fixed snapshot
type staticDeclarations struct {
	snapshot *models.Snapshot
	err      error
}

func (s *staticDeclarations) LoadSnapshot(context.Context) (*models.Snapshot, error) {
	return s.snapshot, s.err
}

// memoryRepository keeps deployment documents in memory
type memoryRepository struct {
	mu       sync.Mutex
	baseline *models.DeploymentRecord
	pending  *memoryState
	history  []string
	cleared  int
}

func (r *memoryRepository) LoadPrevious(context.Context, string) (*models.DeploymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyRecord(r.baseline), nil
}

func (r *memoryRepository) LoadPending(context.Context, string) (*models.DeploymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		return nil, nil
	}
	return r.pending.Record(), nil
}

func (r *memoryRepository) History(context.Context, string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.history...), nil
}

func (r *memoryRepository) OpenPending(_ context.Context, _ string, initial *models.DeploymentRecord) (usecase.DeploymentState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		r.pending = &memoryState{record: copyRecord(initial)}
	}
	return r.pending, nil
}

func (r *memoryRepository) Finalize(_ context.Context, state usecase.DeploymentState, expectChanges bool) (*usecase.FinalizeResult, error) {
	record := state.Record()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = nil

	if record.GasUsed == 0 {
		if expectChanges {
			return nil, &domain.InvariantViolation{Subject: record.Instance, Reason: "changes were planned but no gas was spent"}
		}
		return &usecase.FinalizeResult{Discarded: true}, nil
	}
	record.Completed = true
	r.baseline = record
	r.history = append(r.history, record.Generation)
	return &usecase.FinalizeResult{Completed: true, GasUsed: record.GasUsed}, nil
}

func (r *memoryRepository) Clear(context.Context, string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.baseline = nil
	r.pending = nil
	r.history = nil
	r.cleared++
	return nil
}

// memoryState is a DeploymentState without persistence
type memoryState struct {
	mu     sync.Mutex
	record *models.DeploymentRecord
	closed int
}

func (s *memoryState) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *memoryState) closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *memoryState) Record() *models.DeploymentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRecord(s.record)
}

func (s *memoryState) Path() string { return "memory://pending" }

func (s *memoryState) SetStorage(storage map[string]models.StorageNamespace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.Storage = storage
	return nil
}

func (s *memoryState) SetArtifact(fqn string, artifact *models.ArtifactRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.Contracts[fqn] = artifact.Clone()
	return nil
}

func (s *memoryState) RecordTransaction(fqn, key string, outcome *models.TransactionOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.record.Contracts[fqn]
	if !ok {
		a = &models.ArtifactRecord{}
		s.record.Contracts[fqn] = a
	}
	if a.Transactions == nil {
		a.Transactions = map[string]*models.TransactionOutcome{}
	}
	copied := *outcome
	a.Transactions[key] = &copied
	return nil
}

func (s *memoryState) AddGasUsed(gas uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.GasUsed += gas
	return nil
}

func (s *memoryState) SetCompleted(completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.Completed = completed
	return nil
}

func copyRecord(r *models.DeploymentRecord) *models.DeploymentRecord {
	if r == nil {
		return nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		panic(err)
	}
	var out models.DeploymentRecord
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	if out.Contracts == nil {
		out.Contracts = map[string]*models.ArtifactRecord{}
	}
	if out.Storage == nil {
		out.Storage = map[string]models.StorageNamespace{}
	}
	return &out
}

// fakeBroadcaster hands out sequential addresses and can fail chosen contracts
type fakeBroadcaster struct {
	mu       sync.Mutex
	next     int
	fail     map[string]bool
	deploys  []usecase.DeployRequest
	upgrades []string
	unready  error
}

const fakeSender = "0x00000000000000000000000000000000000000Aa"

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{next: 0x100, fail: map[string]bool{}}
}

func (b *fakeBroadcaster) Sender() string { return fakeSender }

func (b *fakeBroadcaster) Ready() error { return b.unready }

func (b *fakeBroadcaster) Deploy(_ context.Context, req usecase.DeployRequest) (*models.DeployReceipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deploys = append(b.deploys, req)
	b.next++
	hash := fmt.Sprintf("0x%064x", b.next)
	if b.fail[req.Contract] {
		return &models.DeployReceipt{Outcome: &models.TransactionOutcome{
			Hash:    hash,
			Status:  models.TransactionStatusFailed,
			GasUsed: 21000,
		}}, fmt.Errorf("execution reverted")
	}
	return &models.DeployReceipt{
		Address: fmt.Sprintf("0x%040x", b.next),
		Outcome: &models.TransactionOutcome{
			Hash:        hash,
			Status:      models.TransactionStatusConfirmed,
			Description: req.Description,
			GasUsed:     100000,
		},
	}, nil
}

func (b *fakeBroadcaster) UpgradeProxy(_ context.Context, proxy, implementation string) (*models.TransactionOutcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.upgrades = append(b.upgrades, proxy+"->"+implementation)
	return &models.TransactionOutcome{Hash: "0xupgrade", Status: models.TransactionStatusConfirmed, GasUsed: 30000}, nil
}

func (b *fakeBroadcaster) deployed() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, d := range b.deploys {
		out = append(out, d.Contract)
	}
	return out
}

// MockOperator is a mock implementation of Operator
type MockOperator struct {
	mock.Mock
}

func (m *MockOperator) Confirm(ctx context.Context, prompt string) (bool, error) {
	args := m.Called(ctx, prompt)
	return args.Bool(0), args.Error(1)
}
