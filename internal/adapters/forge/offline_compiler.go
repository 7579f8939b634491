package forge

import (
	"context"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/trebuchet-org/treb-router/internal/usecase"
)

// OfflineCompiler stands in for forge during dry runs when forge is not installed.
// Its output is derived from the source so unchanged routers keep the same hash.
type OfflineCompiler struct{}

// NewOfflineCompiler creates a new offline compiler
func NewOfflineCompiler() *OfflineCompiler {
	return &OfflineCompiler{}
}

// CompileRouter returns placeholder bytecode derived from the source
func (OfflineCompiler) CompileRouter(_ context.Context, _ string, source string) (*usecase.CompiledRouter, error) {
	digest := crypto.Keccak256([]byte(source))
	return &usecase.CompiledRouter{
		Bytecode:         hexutil.Encode(append([]byte{0x60, 0x80}, digest...)),
		DeployedBytecode: hexutil.Encode(digest),
	}, nil
}

var _ usecase.RouterCompiler = OfflineCompiler{}
