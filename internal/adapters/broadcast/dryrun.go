package broadcast

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/trebuchet-org/treb-router/internal/domain/models"
	"github.com/trebuchet-org/treb-router/internal/usecase"
)

// DefaultDryRunSender is the sender address used when no key is configured
const DefaultDryRunSender = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

// Synthetic gas accounting for dry runs
const (
	dryRunBaseGas    = 53000
	dryRunGasPerByte = 200
	dryRunUpgradeGas = 30000
)

// DryRunBroadcaster simulates transactions without a network. Addresses follow
// CREATE address derivation from the sender and a local nonce.
type DryRunBroadcaster struct {
	mu     sync.Mutex
	sender common.Address
	nonce  uint64
	sent   []string
}

// NewDryRunBroadcaster creates a simulator starting at the given nonce
func NewDryRunBroadcaster(sender string, nonce uint64) *DryRunBroadcaster {
	if sender == "" {
		sender = DefaultDryRunSender
	}
	return &DryRunBroadcaster{sender: common.HexToAddress(sender), nonce: nonce}
}

// Sender returns the simulated sender
func (d *DryRunBroadcaster) Sender() string {
	return d.sender.Hex()
}

// Deploy simulates a contract creation
func (d *DryRunBroadcaster) Deploy(_ context.Context, req usecase.DeployRequest) (*models.DeployReceipt, error) {
	data, err := CreationCode(req.Bytecode, req.ConstructorArgs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Contract, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	address := crypto.CreateAddress(d.sender, d.nonce)
	hash := d.hash(data)
	d.nonce++
	d.sent = append(d.sent, req.Description)

	return &models.DeployReceipt{
		Address: address.Hex(),
		Outcome: &models.TransactionOutcome{
			Hash:        hash,
			Status:      models.TransactionStatusConfirmed,
			Description: req.Description,
			GasUsed:     uint64(dryRunBaseGas + dryRunGasPerByte*len(data)),
		},
	}, nil
}

// UpgradeProxy simulates upgradeTo(implementation)
func (d *DryRunBroadcaster) UpgradeProxy(_ context.Context, proxy, implementation string) (*models.TransactionOutcome, error) {
	data, err := UpgradeCalldata(implementation)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	hash := d.hash(append(common.HexToAddress(proxy).Bytes(), data...))
	d.nonce++
	description := "upgradeTo " + implementation
	d.sent = append(d.sent, description)

	return &models.TransactionOutcome{
		Hash:        hash,
		Status:      models.TransactionStatusConfirmed,
		Description: description,
		GasUsed:     dryRunUpgradeGas,
	}, nil
}

// Sent returns the descriptions of every simulated transaction
func (d *DryRunBroadcaster) Sent() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.sent...)
}

// hash derives a transaction hash from sender, nonce and payload. Callers hold mu.
func (d *DryRunBroadcaster) hash(payload []byte) string {
	nonce := new(big.Int).SetUint64(d.nonce).Bytes()
	return crypto.Keccak256Hash(d.sender.Bytes(), nonce, payload).Hex()
}

// Ensure DryRunBroadcaster implements Broadcaster
var _ usecase.Broadcaster = (*DryRunBroadcaster)(nil)
