package declarations

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/treb-router/internal/domain/config"
	"github.com/trebuchet-org/treb-router/internal/domain/models"
)

const jsoncSnapshot = `{
  // emitted by the compiler plugin
  "contracts": [
    {
      "path": "src/modules/Token.sol",
      "name": "TokenModule",
      "module": true,
      "functions": [
        {"signature": "transfer(address,uint256)", "selector": "0xa9059cbb"},
        {"signature": "balanceOf(address)", "visibility": "external"},
        {"signature": "_helper()", "visibility": "internal"},
      ],
      "namespaces": [
        {
          "name": "Storage",
          "members": [
            {"name": "balances", "type": "mapping(address => uint256)"},
            {"name": "totalSupply", "type": "uint256"},
          ],
        },
      ],
      "dependencies": ["src/interfaces/IToken.sol:IToken"],
      "deployedBytecode": "0x6001",
    },
    {
      "path": "src/interfaces/IToken.sol",
      "name": "IToken",
      "kind": "interface",
      "functions": [
        {"signature": "transfer(address,uint256)"},
        {"signature": "balanceOf(address)"},
      ],
    },
  ],
}`

const yamlSnapshot = `
contracts:
  - path: src/Proxy.sol
    name: Proxy
    proxy: true
    bytecode: "0x60806040"
    deployedBytecode: "0x6080"
  - path: src/modules/Owner.sol
    name: OwnerModule
    module: true
    functions:
      - signature: owner()
    stateVariables:
      - name: VERSION
        type: uint256
        constant: true
    namespaces:
      - name: Storage
        slot: "0x0000000000000000000000000000000000000000000000000000000000000001"
        members:
          - name: owner
            type: address
          - name: config
            type:
              label: struct Config
              kind: struct
`

func TestParse_JSONC(t *testing.T) {
	snapshot, err := Parse([]byte(jsoncSnapshot), ".json")
	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.Len())

	token, ok := snapshot.Contract("src/modules/Token.sol:TokenModule")
	require.True(t, ok)
	assert.True(t, token.IsModule)
	assert.Equal(t, models.KindContract, token.Kind)
	require.Len(t, token.Functions, 3)
	assert.Equal(t, models.Selector(0xa9059cbb), token.Functions[0].Selector)
	assert.Equal(t, "transfer", token.Functions[0].Name)
	assert.Equal(t, models.VisibilityExternal, token.Functions[0].Visibility)
	assert.Equal(t, models.VisibilityInternal, token.Functions[2].Visibility)

	require.Len(t, token.Namespaces, 1)
	ns := token.Namespaces[0]
	assert.Equal(t, "src/modules/Token.sol:TokenModule.Storage", ns.ID())
	assert.Equal(t, models.DefaultSlot(ns.ID()), ns.Slot)
	assert.Equal(t, models.TypeMapping, ns.Members[0].Type.Kind)
	assert.Equal(t, "uint256", ns.Members[0].Type.Elem.Label)
	assert.Equal(t, 1, ns.Members[1].Index)

	iface, ok := snapshot.Contract("src/interfaces/IToken.sol:IToken")
	require.True(t, ok)
	assert.Equal(t, models.KindInterface, iface.Kind)
}

func TestParse_YAML(t *testing.T) {
	snapshot, err := Parse([]byte(yamlSnapshot), ".yaml")
	require.NoError(t, err)

	proxy, ok := snapshot.Proxy()
	require.True(t, ok)
	assert.Equal(t, "src/Proxy.sol:Proxy", proxy.FullyQualifiedName())
	assert.NotEmpty(t, proxy.BytecodeHash())

	owner, ok := snapshot.Contract("src/modules/Owner.sol:OwnerModule")
	require.True(t, ok)
	require.Len(t, owner.StateVariables, 1)
	assert.False(t, owner.StateVariables[0].Mutable())

	ns := owner.Namespaces[0]
	assert.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000001", ns.Slot.Hex())
	assert.Equal(t, models.TypeAddress, ns.Members[0].Type.Kind)
	assert.True(t, ns.Members[1].Type.ContainsStruct())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"selector mismatch", `{"contracts":[{"name":"A","functions":[{"signature":"foo()","selector":"0x12345678"}]}]}`},
		{"bad selector", `{"contracts":[{"name":"A","functions":[{"signature":"foo()","selector":"0x12"}]}]}`},
		{"missing name", `{"contracts":[{"path":"src/A.sol"}]}`},
		{"unknown kind", `{"contracts":[{"name":"A","kind":"widget"}]}`},
		{"bad slot", `{"contracts":[{"name":"A","namespaces":[{"name":"S","slot":"0x01"}]}]}`},
		{"duplicate contract", `{"contracts":[{"path":"a","name":"A"},{"path":"a","name":"A"}]}`},
		{"malformed", `{"contracts":[`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input), ".json")
			assert.Error(t, err)
		})
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		label    string
		kind     models.TypeKind
		elemKind models.TypeKind
	}{
		{"uint256", models.TypeElementary, ""},
		{"address", models.TypeAddress, ""},
		{"string", models.TypeString, ""},
		{"struct Pos", models.TypeStruct, ""},
		{"enum State", models.TypeEnum, ""},
		{"contract IERC20", models.TypeContract, ""},
		{"uint256[]", models.TypeArray, models.TypeElementary},
		{"struct Pos[3]", models.TypeArray, models.TypeStruct},
		{"mapping(address => struct Pos)", models.TypeMapping, models.TypeStruct},
		{"mapping(address => mapping(uint256 => bool))", models.TypeMapping, models.TypeMapping},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			desc := ParseType(tt.label)
			assert.Equal(t, tt.kind, desc.Kind)
			assert.Equal(t, tt.label, desc.Label)
			if tt.elemKind == "" {
				assert.Nil(t, desc.Elem)
			} else {
				require.NotNil(t, desc.Elem)
				assert.Equal(t, tt.elemKind, desc.Elem.Kind)
			}
		})
	}
}

func TestLoader_ResolvesRelativePath(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "out"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "out", "declarations.jsonc"), []byte(jsoncSnapshot), 0644))

	cfg := &config.RuntimeConfig{ProjectRoot: root, Router: config.RouterConfig{Declarations: "out/declarations.jsonc"}}
	loader := NewLoader(cfg)
	assert.Equal(t, filepath.Join(root, "out", "declarations.jsonc"), loader.Path())

	snapshot, err := loader.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snapshot.Modules(), 1)
}

func TestLoader_MissingFile(t *testing.T) {
	cfg := &config.RuntimeConfig{ProjectRoot: t.TempDir(), Router: config.RouterConfig{Declarations: "missing.json"}}
	_, err := NewLoader(cfg).LoadSnapshot(context.Background())
	assert.Error(t, err)
}
