package broadcast

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/trebuchet-org/treb-router/internal/domain/config"
	"github.com/trebuchet-org/treb-router/internal/domain/models"
	"github.com/trebuchet-org/treb-router/internal/usecase"
)

// DefaultTimeout bounds preparing and submitting one transaction. Waiting for
// inclusion is not bounded.
const DefaultTimeout = 5 * time.Minute

// RPCBroadcaster signs EIP-1559 transactions with a configured key and submits
// them over JSON-RPC. Nonces are allocated under a mutex so concurrent deploys
// never collide.
type RPCBroadcaster struct {
	log     *slog.Logger
	rpcURL  string
	chainID uint64
	key     *ecdsa.PrivateKey
	from    common.Address
	timeout time.Duration

	connectOnce sync.Once
	connectErr  error
	client      *ethclient.Client
	signer      types.Signer

	nonceMu sync.Mutex
	nonce   *uint64
}

// NewRPCBroadcaster creates a broadcaster for the selected instance
func NewRPCBroadcaster(cfg *config.RuntimeConfig, log *slog.Logger) (*RPCBroadcaster, error) {
	inst := cfg.InstanceConfig
	if inst == nil || inst.RPCURL == "" {
		return nil, fmt.Errorf("instance %q has no rpc_url configured", cfg.Instance)
	}
	if inst.PrivateKey == "" {
		return nil, fmt.Errorf("instance %q has no private_key configured", cfg.Instance)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(inst.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key for instance %q: %w", cfg.Instance, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &RPCBroadcaster{
		log:     log.With("component", "RPCBroadcaster", "instance", cfg.Instance),
		rpcURL:  inst.RPCURL,
		chainID: inst.ChainID,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		timeout: timeout,
	}, nil
}

// Sender returns the signing address
func (b *RPCBroadcaster) Sender() string {
	return b.from.Hex()
}

func (b *RPCBroadcaster) connect(ctx context.Context) error {
	b.connectOnce.Do(func() {
		client, err := ethclient.DialContext(ctx, b.rpcURL)
		if err != nil {
			b.connectErr = fmt.Errorf("failed to connect to RPC: %w", err)
			return
		}

		networkChainID, err := client.ChainID(ctx)
		if err != nil {
			b.connectErr = fmt.Errorf("failed to get chain ID: %w", err)
			return
		}
		if b.chainID != 0 && networkChainID.Uint64() != b.chainID {
			b.connectErr = fmt.Errorf("chain ID mismatch: expected %d, got %d", b.chainID, networkChainID.Uint64())
			return
		}

		b.client = client
		b.chainID = networkChainID.Uint64()
		b.signer = types.LatestSignerForChainID(networkChainID)
	})
	return b.connectErr
}

// Deploy submits a contract creation and waits for its receipt
func (b *RPCBroadcaster) Deploy(ctx context.Context, req usecase.DeployRequest) (*models.DeployReceipt, error) {
	data, err := CreationCode(req.Bytecode, req.ConstructorArgs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Contract, err)
	}
	receipt, outcome, err := b.send(ctx, nil, data, req.Description)
	if err != nil {
		return &models.DeployReceipt{Outcome: outcome}, err
	}
	return &models.DeployReceipt{Address: receipt.ContractAddress.Hex(), Outcome: outcome}, nil
}

// UpgradeProxy calls upgradeTo(implementation) on the proxy
func (b *RPCBroadcaster) UpgradeProxy(ctx context.Context, proxy, implementation string) (*models.TransactionOutcome, error) {
	data, err := UpgradeCalldata(implementation)
	if err != nil {
		return nil, err
	}
	to := common.HexToAddress(proxy)
	_, outcome, err := b.send(ctx, &to, data, "upgradeTo "+implementation)
	return outcome, err
}

func (b *RPCBroadcaster) send(ctx context.Context, to *common.Address, data []byte, description string) (*types.Receipt, *models.TransactionOutcome, error) {
	outcome := &models.TransactionOutcome{Status: models.TransactionStatusFailed, Description: description}
	if err := b.connect(ctx); err != nil {
		return nil, outcome, err
	}

	submitCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	gas, err := b.client.EstimateGas(submitCtx, ethereum.CallMsg{From: b.from, To: to, Data: data})
	if err != nil {
		return nil, outcome, fmt.Errorf("failed to estimate gas: %w", err)
	}
	tip, err := b.client.SuggestGasTipCap(submitCtx)
	if err != nil {
		return nil, outcome, fmt.Errorf("failed to suggest gas tip: %w", err)
	}
	head, err := b.client.HeaderByNumber(submitCtx, nil)
	if err != nil {
		return nil, outcome, fmt.Errorf("failed to fetch latest header: %w", err)
	}
	baseFee := head.BaseFee
	if baseFee == nil {
		baseFee = big.NewInt(0)
	}
	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(baseFee, big.NewInt(2)))

	nonce, err := b.nextNonce(submitCtx)
	if err != nil {
		return nil, outcome, err
	}

	tx, err := types.SignNewTx(b.key, b.signer, &types.DynamicFeeTx{
		ChainID:   new(big.Int).SetUint64(b.chainID),
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        to,
		Data:      data,
	})
	if err != nil {
		b.resetNonce()
		return nil, outcome, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := b.client.SendTransaction(submitCtx, tx); err != nil {
		b.resetNonce()
		return nil, outcome, fmt.Errorf("failed to send transaction: %w", err)
	}
	outcome.Hash = tx.Hash().Hex()
	b.log.Debug("transaction sent", "hash", outcome.Hash, "nonce", nonce, "gas", gas)

	receipt, err := awaitReceipt(ctx, b.client, tx.Hash())
	if err != nil {
		return nil, outcome, fmt.Errorf("failed waiting for %s: %w", outcome.Hash, err)
	}
	outcome.GasUsed = receipt.GasUsed
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, outcome, fmt.Errorf("transaction %s reverted", outcome.Hash)
	}
	outcome.Status = models.TransactionStatusConfirmed
	return receipt, outcome, nil
}

// awaitReceipt polls until the transaction is mined. A submitted transaction is
// always awaited to its terminal status, so cancellation of ctx is ignored.
func awaitReceipt(ctx context.Context, backend bind.DeployBackend, hash common.Hash) (*types.Receipt, error) {
	return bind.WaitMined(context.WithoutCancel(ctx), backend, hash)
}

func (b *RPCBroadcaster) nextNonce(ctx context.Context) (uint64, error) {
	b.nonceMu.Lock()
	defer b.nonceMu.Unlock()

	if b.nonce == nil {
		n, err := b.client.PendingNonceAt(ctx, b.from)
		if err != nil {
			return 0, fmt.Errorf("failed to fetch nonce: %w", err)
		}
		b.nonce = &n
	}
	n := *b.nonce
	*b.nonce = n + 1
	return n, nil
}

// resetNonce forces the next transaction to refetch the pending nonce
func (b *RPCBroadcaster) resetNonce() {
	b.nonceMu.Lock()
	defer b.nonceMu.Unlock()
	b.nonce = nil
}

// Ensure RPCBroadcaster implements Broadcaster
var _ usecase.Broadcaster = (*RPCBroadcaster)(nil)
