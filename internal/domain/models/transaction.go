package models

// TransactionStatus represents the terminal status of a submitted transaction
type TransactionStatus string

const (
	TransactionStatusConfirmed TransactionStatus = "CONFIRMED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Transaction keys within an artifact record
const (
	TxDeploy  = "deploy"
	TxUpgrade = "upgrade"
)

// TransactionOutcome records one submitted transaction
type TransactionOutcome struct {
	Hash        string            `json:"hash"`
	Status      TransactionStatus `json:"status"`
	Description string            `json:"description"`
	GasUsed     uint64            `json:"gasUsed"`
}

// Failed reports whether the transaction did not confirm
func (t *TransactionOutcome) Failed() bool {
	return t == nil || t.Status != TransactionStatusConfirmed
}

// DeployReceipt is what a broadcaster returns for a contract creation
type DeployReceipt struct {
	Address string
	Outcome *TransactionOutcome
}
