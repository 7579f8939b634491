package template

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/treb-router/internal/domain/router"
	"github.com/trebuchet-org/treb-router/internal/usecase"
)

const (
	moduleA = "src/modules/AModule.sol:AModule"
	moduleB = "src/modules/BModule.sol:BModule"
	moduleC = "src/modules/CModule.sol:CModule"
)

func threeModuleSpec(entries []router.Entry) *usecase.RouterSpec {
	return &usecase.RouterSpec{
		Name: "Router",
		Tree: router.Build(entries, 2),
		Addresses: map[string]string{
			moduleA: "0x1111111111111111111111111111111111111111",
			moduleB: "0x2222222222222222222222222222222222222222",
			moduleC: "0x3333333333333333333333333333333333333333",
		},
	}
}

func threeModuleEntries() []router.Entry {
	return []router.Entry{
		{Selector: 0x50, Function: "e()", Module: moduleC},
		{Selector: 0x10, Function: "a()", Module: moduleA},
		{Selector: 0x40, Function: "d()", Module: moduleB},
		{Selector: 0x20, Function: "b()", Module: moduleB},
		{Selector: 0x30, Function: "c()", Module: moduleA},
	}
}

func TestGenerateRouter_Golden(t *testing.T) {
	g := NewRouterGeneratorAdapter()
	source, err := g.GenerateRouter(context.Background(), threeModuleSpec(threeModuleEntries()))
	require.NoError(t, err)

	gold := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	gold.Assert(t, "router_three_modules", []byte(source))
}

func TestGenerateRouter_Deterministic(t *testing.T) {
	g := NewRouterGeneratorAdapter()
	entries := threeModuleEntries()

	first, err := g.GenerateRouter(context.Background(), threeModuleSpec(entries))
	require.NoError(t, err)

	reversed := make([]router.Entry, len(entries))
	for i, e := range entries {
		reversed[len(entries)-1-i] = e
	}
	second, err := g.GenerateRouter(context.Background(), threeModuleSpec(reversed))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGenerateRouter_MissingAddress(t *testing.T) {
	spec := threeModuleSpec(threeModuleEntries())
	delete(spec.Addresses, moduleB)

	_, err := NewRouterGeneratorAdapter().GenerateRouter(context.Background(), spec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), moduleB)
}

func TestGenerateRouter_ChecksumsAddresses(t *testing.T) {
	spec := &usecase.RouterSpec{
		Name: "Proxyless",
		Tree: router.Build([]router.Entry{{Selector: 0x01, Function: "x()", Module: moduleA}}, 4),
		Addresses: map[string]string{
			moduleA: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
		},
	}
	source, err := NewRouterGeneratorAdapter().GenerateRouter(context.Background(), spec)
	require.NoError(t, err)
	assert.Contains(t, source, "contract Proxyless {")
	assert.Contains(t, source, "_A_MODULE = 0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed;")
}

func TestUpperSnake(t *testing.T) {
	tests := map[string]string{
		"CoreModule":        "CORE_MODULE",
		"ERC20Module":       "ERC20_MODULE",
		"AModule":           "A_MODULE",
		"NFTMarketModule":   "NFT_MARKET_MODULE",
		"AssociatedSystems": "ASSOCIATED_SYSTEMS",
		"module":            "MODULE",
	}
	for in, want := range tests {
		assert.Equal(t, want, upperSnake(in), in)
	}
}
