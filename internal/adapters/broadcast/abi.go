// Package broadcast submits deploy and upgrade transactions for a build.
package broadcast

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const upgradeABI = `[{"type":"function","name":"upgradeTo","stateMutability":"nonpayable","inputs":[{"name":"newImplementation","type":"address"}],"outputs":[]}]`

var proxyABI = mustParseABI(upgradeABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// UpgradeCalldata encodes upgradeTo(address)
func UpgradeCalldata(implementation string) ([]byte, error) {
	if !common.IsHexAddress(implementation) {
		return nil, fmt.Errorf("invalid implementation address %q", implementation)
	}
	return proxyABI.Pack("upgradeTo", common.HexToAddress(implementation))
}

// CreationCode appends ABI-encoded address arguments to creation bytecode
func CreationCode(bytecode string, args []string) ([]byte, error) {
	code := common.FromHex(bytecode)
	if len(code) == 0 {
		return nil, fmt.Errorf("empty creation bytecode")
	}
	if len(args) == 0 {
		return code, nil
	}

	addressType, err := abi.NewType("address", "", nil)
	if err != nil {
		return nil, err
	}
	arguments := make(abi.Arguments, len(args))
	values := make([]interface{}, len(args))
	for i, arg := range args {
		if !common.IsHexAddress(arg) {
			return nil, fmt.Errorf("constructor argument %d: invalid address %q", i, arg)
		}
		arguments[i] = abi.Argument{Type: addressType}
		values[i] = common.HexToAddress(arg)
	}
	encoded, err := arguments.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode constructor arguments: %w", err)
	}
	return append(code, encoded...), nil
}
