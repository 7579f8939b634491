package models

import (
	"sort"
	"time"
)

// DeploymentRecord is the durable state of one build generation
type DeploymentRecord struct {
	// Identification
	Generation string `json:"generation"`
	Instance   string `json:"instance"`
	Previous   string `json:"previous,omitempty"` // Generation this build was diffed against

	// Per-artifact state keyed by fully-qualified name
	Contracts map[string]*ArtifactRecord `json:"contracts"`

	// Storage layout of this build, read back by the next build's verifier
	Storage map[string]StorageNamespace `json:"storage"`

	// Global properties
	GasUsed   uint64    `json:"gasUsed"`
	Completed bool      `json:"completed"`
	StartedAt time.Time `json:"startedAt"`
}

// NewDeploymentRecord creates an empty record for a build generation
func NewDeploymentRecord(instance, generation string) *DeploymentRecord {
	return &DeploymentRecord{
		Generation: generation,
		Instance:   instance,
		Contracts:  make(map[string]*ArtifactRecord),
		Storage:    make(map[string]StorageNamespace),
	}
}

// Artifact returns the record for a fully-qualified name
func (r *DeploymentRecord) Artifact(fqn string) (*ArtifactRecord, bool) {
	if r == nil {
		return nil, false
	}
	a, ok := r.Contracts[fqn]
	return a, ok
}

// Router returns the dispatcher artifact, if recorded
func (r *DeploymentRecord) Router() (string, *ArtifactRecord, bool) {
	return r.findByRole(func(a *ArtifactRecord) bool { return a.IsRouter })
}

// Proxy returns the entry-point artifact, if recorded
func (r *DeploymentRecord) Proxy() (string, *ArtifactRecord, bool) {
	return r.findByRole(func(a *ArtifactRecord) bool { return a.IsProxy })
}

func (r *DeploymentRecord) findByRole(match func(*ArtifactRecord) bool) (string, *ArtifactRecord, bool) {
	if r == nil {
		return "", nil, false
	}
	for _, name := range r.ArtifactNames() {
		if a := r.Contracts[name]; match(a) {
			return name, a, true
		}
	}
	return "", nil, false
}

// ArtifactNames returns the recorded fully-qualified names in sorted order
func (r *DeploymentRecord) ArtifactNames() []string {
	names := make([]string, 0, len(r.Contracts))
	for name := range r.Contracts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ArtifactRecord is the state of one deployed artifact within a generation
type ArtifactRecord struct {
	Address         string   `json:"address"`
	ConstructorArgs []string `json:"constructorArgs,omitempty"`
	BytecodeHash    string   `json:"bytecodeHash"`

	// Role flags
	IsProxy  bool `json:"isProxy,omitempty"`
	IsRouter bool `json:"isRouter,omitempty"`
	IsModule bool `json:"isModule,omitempty"`

	// Rendered source, recorded for the generated router only
	SourceCode string `json:"sourceCode,omitempty"`

	// Implementation the entry point currently forwards to, recorded for the proxy only
	Implementation string `json:"implementation,omitempty"`

	// Carried marks an artifact whose address was copied from an earlier generation
	Carried bool `json:"carried,omitempty"`

	Transactions map[string]*TransactionOutcome `json:"transactions,omitempty"`
}

// Deployed reports whether the artifact has a usable address and no failed deploy
func (a *ArtifactRecord) Deployed() bool {
	if a == nil || a.Address == "" {
		return false
	}
	if tx, ok := a.Transactions[TxDeploy]; ok && tx.Status != TransactionStatusConfirmed {
		return false
	}
	return true
}

// Clone returns a deep copy
func (a *ArtifactRecord) Clone() *ArtifactRecord {
	if a == nil {
		return nil
	}
	out := *a
	out.ConstructorArgs = append([]string(nil), a.ConstructorArgs...)
	if a.Transactions != nil {
		out.Transactions = make(map[string]*TransactionOutcome, len(a.Transactions))
		for k, tx := range a.Transactions {
			txCopy := *tx
			out.Transactions[k] = &txCopy
		}
	}
	return &out
}
