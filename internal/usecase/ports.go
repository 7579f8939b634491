package usecase

import (
	"context"

	"github.com/trebuchet-org/treb-router/internal/domain/models"
	"github.com/trebuchet-org/treb-router/internal/domain/router"
)

// DeclarationSource provides the declarations reported by the compiler
type DeclarationSource interface {
	LoadSnapshot(ctx context.Context) (*models.Snapshot, error)
}

// DeploymentRepository manages the deployment documents of an instance
type DeploymentRepository interface {
	// LoadPrevious returns the last completed record, or nil when none exists
	LoadPrevious(ctx context.Context, instance string) (*models.DeploymentRecord, error)
	// OpenPending opens the scratch document of the running build, resuming an
	// interrupted build when one exists
	OpenPending(ctx context.Context, instance string, initial *models.DeploymentRecord) (DeploymentState, error)
	// Finalize completes or discards the pending document
	Finalize(ctx context.Context, state DeploymentState, expectChanges bool) (*FinalizeResult, error)
	// Clear removes every document of the instance
	Clear(ctx context.Context, instance string) error
}

// DeploymentInspector reads documents that are not part of a build
type DeploymentInspector interface {
	LoadPending(ctx context.Context, instance string) (*models.DeploymentRecord, error)
	History(ctx context.Context, instance string) ([]string, error)
}

// DeploymentState is the single-writer document of one build generation.
// Setters persist synchronously and skip I/O when the value is unchanged.
type DeploymentState interface {
	Record() *models.DeploymentRecord
	Path() string
	SetStorage(storage map[string]models.StorageNamespace) error
	SetArtifact(fqn string, artifact *models.ArtifactRecord) error
	RecordTransaction(fqn, key string, outcome *models.TransactionOutcome) error
	AddGasUsed(gas uint64) error
	SetCompleted(completed bool) error
}

// FinalizeResult describes what finalization did with the pending document
type FinalizeResult struct {
	Completed bool
	Discarded bool
	Path      string
	GasUsed   uint64
}

// RouterSpec is the input of router generation
type RouterSpec struct {
	Name      string
	Tree      *router.Tree
	Addresses map[string]string // module fully-qualified name => address
}

// RouterGenerator renders dispatcher source
type RouterGenerator interface {
	GenerateRouter(ctx context.Context, spec *RouterSpec) (string, error)
}

// CompiledRouter is the compiler output for generated router source
type CompiledRouter struct {
	Bytecode         string
	DeployedBytecode string
}

// RouterCompiler compiles generated router source
type RouterCompiler interface {
	CompileRouter(ctx context.Context, name, source string) (*CompiledRouter, error)
}

// DeployRequest describes a contract creation
type DeployRequest struct {
	Contract        string   // Fully-qualified name, for logs and records
	Bytecode        string   // Creation bytecode (hex)
	ConstructorArgs []string // Address-typed constructor arguments
	Description     string
}

// Broadcaster submits transactions and waits for their terminal status.
// Timeouts and gas estimation belong to the implementation.
type Broadcaster interface {
	Sender() string
	Deploy(ctx context.Context, req DeployRequest) (*models.DeployReceipt, error)
	UpgradeProxy(ctx context.Context, proxy, implementation string) (*models.TransactionOutcome, error)
}

// Readiness is implemented by collaborators that can be wired while unusable
type Readiness interface {
	Ready() error
}

// Operator answers confirmation prompts
type Operator interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Progress tracking interfaces

// ProgressEvent represents a progress update
type ProgressEvent struct {
	Stage    string
	Current  int
	Total    int
	Message  string
	Spinner  bool
	Metadata interface{}
}

// ProgressSink receives progress events
type ProgressSink interface {
	OnProgress(ctx context.Context, event ProgressEvent)
	Info(message string)
	Error(message string)
}

// NopProgress is a no-op implementation of ProgressSink
type NopProgress struct{}

func (NopProgress) OnProgress(context.Context, ProgressEvent) {}
func (NopProgress) Info(string)                               {}
func (NopProgress) Error(string)                              {}
