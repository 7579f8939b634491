package models

// ChangeReason explains why an artifact lands in a changeset bucket
type ChangeReason string

const (
	ReasonNew         ChangeReason = "new"
	ReasonChanged     ChangeReason = "bytecode changed"
	ReasonFailed      ChangeReason = "previous deploy failed"
	ReasonUnchanged   ChangeReason = "unchanged"
	ReasonInProgress  ChangeReason = "already deployed in this generation"
	ReasonSourceMatch ChangeReason = "router source unchanged"
)

// Change is one entry of a redeploy set
type Change struct {
	Contract     *Contract
	Reason       ChangeReason
	BytecodeHash string
	// Previous is set for reused artifacts
	Previous *ArtifactRecord
}

// Changeset splits the modules of a build into the ones to deploy and the ones to reuse
type Changeset struct {
	Deploy []Change
	Reuse  []Change
}

// HasChanges reports whether anything needs deploying
func (c *Changeset) HasChanges() bool {
	return len(c.Deploy) > 0
}

// Count returns the number of artifacts in the changeset
func (c *Changeset) Count() int {
	return len(c.Deploy) + len(c.Reuse)
}
