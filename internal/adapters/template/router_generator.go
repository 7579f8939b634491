package template

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"unicode"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/treb-router/internal/domain/router"
	"github.com/trebuchet-org/treb-router/internal/usecase"
)

const routerTemplate = `// SPDX-License-Identifier: UNLICENSED
pragma solidity ^0.8.0;

// GENERATED CODE - do not edit manually!!
// --------------------------------------------------------------------------------

contract {{.Name}} {
    error UnknownSelector(bytes4 sel);
{{range .Constants}}
    address private constant {{.Name}} = {{.Address}};
{{- end}}

    fallback() external payable {
        _forward();
    }

    receive() external payable {
        _forward();
    }

    function _forward() internal {
        // Lookup table: Function selector => implementation contract
        bytes4 sig4 = msg.sig;
        address implementation;

        assembly {
            let sig32 := shr(224, sig4)

            function findImplementation(sig) -> result {
{{.Lookup}}
            }

            implementation := findImplementation(sig32)
        }

        if (implementation == address(0)) {
            revert UnknownSelector(sig4);
        }

        // Delegatecall to the implementation contract
        assembly {
            calldatacopy(0, 0, calldatasize())

            let result := delegatecall(gas(), implementation, 0, calldatasize(), 0, 0)
            returndatacopy(0, 0, returndatasize())

            switch result
            case 0 {
                revert(0, returndatasize())
            }
            default {
                return(0, returndatasize())
            }
        }
    }
}
`

// lookupIndent is the indentation of the findImplementation body
const lookupIndent = 16

var routerTmpl = template.Must(template.New("router").Parse(routerTemplate))

// RouterGeneratorAdapter renders the dispatch tree as Solidity source
type RouterGeneratorAdapter struct{}

// NewRouterGeneratorAdapter creates a new router generator adapter
func NewRouterGeneratorAdapter() *RouterGeneratorAdapter {
	return &RouterGeneratorAdapter{}
}

type moduleConstant struct {
	Name    string
	Address string
}

// GenerateRouter renders the router source. The output depends only on the
// sorted tree and the module addresses.
func (g *RouterGeneratorAdapter) GenerateRouter(ctx context.Context, spec *usecase.RouterSpec) (string, error) {
	if spec.Tree == nil {
		return "", fmt.Errorf("router spec has no dispatch tree")
	}

	constants, byModule, err := moduleConstants(spec.Tree.Modules(), spec.Addresses)
	if err != nil {
		return "", err
	}

	var lookup strings.Builder
	renderNode(&lookup, spec.Tree, spec.Tree.Root(), byModule, lookupIndent)

	data := struct {
		Name      string
		Constants []moduleConstant
		Lookup    string
	}{
		Name:      spec.Name,
		Constants: constants,
		Lookup:    strings.TrimSuffix(lookup.String(), "\n"),
	}

	var buf bytes.Buffer
	if err := routerTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute router template: %w", err)
	}
	return buf.String(), nil
}

// renderNode writes an internal node as a less-than branch into its left child
// that falls through to the right child, and a leaf as a flat switch.
func renderNode(b *strings.Builder, tree *router.Tree, n *router.Node, constants map[string]string, indent int) {
	pad := strings.Repeat(" ", indent)
	if !n.IsLeaf() {
		fmt.Fprintf(b, "%sif lt(sig, %s) {\n", pad, n.Boundary.Hex())
		renderNode(b, tree, n.Left, constants, indent+4)
		fmt.Fprintf(b, "%s}\n", pad)
		renderNode(b, tree, n.Right, constants, indent)
		return
	}

	fmt.Fprintf(b, "%sswitch sig\n", pad)
	for _, e := range tree.Entries(n) {
		fmt.Fprintf(b, "%scase %s { result := %s } // %s.%s\n",
			pad, e.Selector.Hex(), constants[e.Module], contractName(e.Module), e.Function)
	}
	fmt.Fprintf(b, "%sdefault { result := 0 } // unknown selector\n", pad)
	fmt.Fprintf(b, "%sleave\n", pad)
}

// moduleConstants assigns one constant per module, sorted by constant name
func moduleConstants(modules []string, addresses map[string]string) ([]moduleConstant, map[string]string, error) {
	byModule := make(map[string]string, len(modules))
	taken := make(map[string]string)
	var constants []moduleConstant

	for _, fqn := range modules {
		addr, ok := addresses[fqn]
		if !ok || !common.IsHexAddress(addr) {
			return nil, nil, fmt.Errorf("no address known for module %s", fqn)
		}

		base := "_" + upperSnake(contractName(fqn))
		name := base
		for i := 2; taken[name] != ""; i++ {
			name = fmt.Sprintf("%s_%d", base, i)
		}
		taken[name] = fqn
		byModule[fqn] = name

		constants = append(constants, moduleConstant{
			Name:    name,
			Address: common.HexToAddress(addr).Hex(),
		})
	}

	sort.Slice(constants, func(i, j int) bool { return constants[i].Name < constants[j].Name })
	return constants, byModule, nil
}

func contractName(fqn string) string {
	if idx := strings.LastIndex(fqn, ":"); idx >= 0 {
		return fqn[idx+1:]
	}
	return fqn
}

// upperSnake converts CoreModule to CORE_MODULE and ERC20Module to ERC20_MODULE
func upperSnake(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Ensure RouterGeneratorAdapter implements RouterGenerator
var _ usecase.RouterGenerator = (*RouterGeneratorAdapter)(nil)
