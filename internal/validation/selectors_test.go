package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/treb-router/internal/domain"
	"github.com/trebuchet-org/treb-router/internal/domain/models"
	"github.com/trebuchet-org/treb-router/internal/domain/router"
)

func TestCheckDuplicateSelectors(t *testing.T) {
	t.Run("reports shared selector once with both modules", func(t *testing.T) {
		a := models.NewContract("src/A.sol", "A", models.AsModule(), models.WithFunctions(
			models.Function{Name: "foo", Signature: "foo()", Selector: 0x12345678},
			models.ExternalFunction("onlyA()"),
		))
		b := models.NewContract("src/B.sol", "B", models.AsModule(), models.WithFunctions(
			models.Function{Name: "bar", Signature: "bar(uint256)", Selector: 0x12345678},
		))

		findings := CheckDuplicateSelectors(router.NewEntries([]*models.Contract{a, b}, nil))
		require.Len(t, findings, 1)

		f := findings[0]
		assert.Equal(t, domain.FindingDuplicateSelector, f.Kind)
		assert.Equal(t, domain.SeverityFatal, f.Severity)
		assert.Equal(t, []string{"src/A.sol:A", "src/B.sol:B"}, f.Contracts)
		assert.Equal(t, "0x12345678", f.Function)
		assert.Contains(t, f.Message, "0x12345678")
	})

	t.Run("distinct selectors produce no findings", func(t *testing.T) {
		a := models.NewContract("src/A.sol", "A", models.AsModule(), models.WithFunctions(models.ExternalFunction("a()")))
		b := models.NewContract("src/B.sol", "B", models.AsModule(), models.WithFunctions(models.ExternalFunction("b()")))

		assert.Empty(t, CheckDuplicateSelectors(router.NewEntries([]*models.Contract{a, b}, nil)))
	})

	t.Run("three modules sharing a selector yield one finding", func(t *testing.T) {
		var modules []*models.Contract
		for _, name := range []string{"C", "A", "B"} {
			modules = append(modules, models.NewContract("src/"+name+".sol", name, models.AsModule(),
				models.WithFunctions(models.ExternalFunction("owner()"))))
		}

		findings := CheckDuplicateSelectors(router.NewEntries(modules, nil))
		require.Len(t, findings, 1)
		assert.Equal(t, []string{"src/A.sol:A", "src/B.sol:B", "src/C.sol:C"}, findings[0].Contracts)
	})

	t.Run("selector declared twice in one module", func(t *testing.T) {
		a := models.NewContract("src/A.sol", "AModule", models.AsModule(), models.WithFunctions(
			models.ExternalFunction("foo()"),
			models.ExternalFunction("foo()"),
			models.ExternalFunction("bar()"),
		))

		findings := CheckDuplicateSelectors(router.NewEntries([]*models.Contract{a}, nil))
		require.Len(t, findings, 1)

		f := findings[0]
		assert.Equal(t, domain.SeverityFatal, f.Severity)
		assert.Equal(t, []string{"src/A.sol:AModule"}, f.Contracts)
		assert.Equal(t, models.ExternalFunction("foo()").Selector.Hex(), f.Function)
		assert.Contains(t, f.Message, "foo()")
		assert.Contains(t, f.Message, "declared 2 times in src/A.sol:AModule")
	})
}
