package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ContractKind is the declaration kind reported by the compiler
type ContractKind string

const (
	KindContract  ContractKind = "contract"
	KindInterface ContractKind = "interface"
	KindLibrary   ContractKind = "library"
	KindAbstract  ContractKind = "abstract"
)

// Visibility of a declared function
type Visibility string

const (
	VisibilityExternal Visibility = "external"
	VisibilityPublic   Visibility = "public"
	VisibilityInternal Visibility = "internal"
	VisibilityPrivate  Visibility = "private"
)

// Selector is the 4-byte identifier of an externally callable function
type Selector uint32

// SelectorFromSignature derives the selector from a canonical signature such as
// "transfer(address,uint256)".
func SelectorFromSignature(signature string) Selector {
	h := crypto.Keccak256([]byte(signature))
	return Selector(uint32(h[0])<<24 | uint32(h[1])<<16 | uint32(h[2])<<8 | uint32(h[3]))
}

// ParseSelector parses a 0x-prefixed 4-byte hex selector
func ParseSelector(s string) (Selector, error) {
	trimmed := strings.TrimPrefix(strings.ToLower(s), "0x")
	if len(trimmed) != 8 {
		return 0, fmt.Errorf("invalid selector %q: expected 4 bytes", s)
	}
	v, err := strconv.ParseUint(trimmed, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid selector %q: %w", s, err)
	}
	return Selector(v), nil
}

// Hex returns the selector as 0x-prefixed, zero padded hex
func (s Selector) Hex() string {
	return fmt.Sprintf("0x%08x", uint32(s))
}

func (s Selector) String() string {
	return s.Hex()
}

// Function is a declared function of a contract
type Function struct {
	Name       string     `json:"name" yaml:"name"`
	Signature  string     `json:"signature" yaml:"signature"`
	Selector   Selector   `json:"selector" yaml:"selector"`
	Visibility Visibility `json:"visibility" yaml:"visibility"`
}

// IsVisible reports whether the function can be called from outside the contract
func (f Function) IsVisible() bool {
	return f.Visibility == VisibilityExternal || f.Visibility == VisibilityPublic
}

// StateVariable is a state variable declared directly on a contract
type StateVariable struct {
	Name      string         `json:"name" yaml:"name"`
	Type      TypeDescriptor `json:"type" yaml:"type"`
	Constant  bool           `json:"constant,omitempty" yaml:"constant,omitempty"`
	Immutable bool           `json:"immutable,omitempty" yaml:"immutable,omitempty"`
}

// Mutable reports whether the variable occupies a storage slot
func (v StateVariable) Mutable() bool {
	return !v.Constant && !v.Immutable
}

// Contract is one declaration of the current build as reported by the compiler
type Contract struct {
	Path string       `json:"path"`
	Name string       `json:"name"`
	Kind ContractKind `json:"kind"`

	// Role flags
	IsModule bool `json:"isModule,omitempty"`
	IsProxy  bool `json:"isProxy,omitempty"`

	Functions      []Function         `json:"functions,omitempty"`
	StateVariables []StateVariable    `json:"stateVariables,omitempty"`
	Namespaces     []StorageNamespace `json:"namespaces,omitempty"`
	NamespaceRefs  []string           `json:"namespaceRefs,omitempty"`
	Dependencies   []string           `json:"dependencies,omitempty"`

	Bytecode         string `json:"bytecode,omitempty"`
	DeployedBytecode string `json:"deployedBytecode,omitempty"`
}

// ContractOption customises a contract built with NewContract
type ContractOption func(*Contract)

// NewContract builds a contract declaration, filling defaults for every optional field
func NewContract(path, name string, opts ...ContractOption) *Contract {
	c := &Contract{
		Path:           path,
		Name:           name,
		Kind:           KindContract,
		Functions:      []Function{},
		StateVariables: []StateVariable{},
		Namespaces:     []StorageNamespace{},
		NamespaceRefs:  []string{},
		Dependencies:   []string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	for i := range c.Functions {
		c.Functions[i] = normalizeFunction(c.Functions[i])
	}
	for i := range c.Namespaces {
		ns := &c.Namespaces[i]
		if ns.Contract == "" {
			ns.Contract = c.FullyQualifiedName()
		}
		if ns.Slot == (common.Hash{}) {
			ns.Slot = DefaultSlot(ns.ID())
		}
		for j := range ns.Members {
			ns.Members[j].Index = j
		}
	}
	return c
}

// WithKind sets the declaration kind
func WithKind(kind ContractKind) ContractOption {
	return func(c *Contract) { c.Kind = kind }
}

// AsModule marks the contract as a module composed into the router
func AsModule() ContractOption {
	return func(c *Contract) { c.IsModule = true }
}

// AsProxy marks the contract as the entry point
func AsProxy() ContractOption {
	return func(c *Contract) { c.IsProxy = true }
}

// WithFunctions appends declared functions
func WithFunctions(fns ...Function) ContractOption {
	return func(c *Contract) { c.Functions = append(c.Functions, fns...) }
}

// WithStateVariables appends directly declared state variables
func WithStateVariables(vars ...StateVariable) ContractOption {
	return func(c *Contract) { c.StateVariables = append(c.StateVariables, vars...) }
}

// WithNamespaces appends declared storage namespaces
func WithNamespaces(namespaces ...StorageNamespace) ContractOption {
	return func(c *Contract) { c.Namespaces = append(c.Namespaces, namespaces...) }
}

// WithNamespaceRefs records namespaces the contract depends on
func WithNamespaceRefs(ids ...string) ContractOption {
	return func(c *Contract) { c.NamespaceRefs = append(c.NamespaceRefs, ids...) }
}

// WithDependencies records the inheritance/import chain
func WithDependencies(fqns ...string) ContractOption {
	return func(c *Contract) { c.Dependencies = append(c.Dependencies, fqns...) }
}

// WithBytecode sets creation and deployed bytecode
func WithBytecode(creation, deployed string) ContractOption {
	return func(c *Contract) {
		c.Bytecode = creation
		c.DeployedBytecode = deployed
	}
}

// ExternalFunction is a helper for building an externally visible function from its signature
func ExternalFunction(signature string) Function {
	return normalizeFunction(Function{Signature: signature, Visibility: VisibilityExternal})
}

func normalizeFunction(f Function) Function {
	if f.Name == "" && f.Signature != "" {
		if idx := strings.Index(f.Signature, "("); idx > 0 {
			f.Name = f.Signature[:idx]
		} else {
			f.Name = f.Signature
		}
	}
	if f.Selector == 0 && f.Signature != "" {
		f.Selector = SelectorFromSignature(f.Signature)
	}
	if f.Visibility == "" {
		f.Visibility = VisibilityExternal
	}
	return f
}

// FullyQualifiedName returns "path:Name", the stable key of the contract across builds
func (c *Contract) FullyQualifiedName() string {
	if c.Path == "" {
		return c.Name
	}
	return c.Path + ":" + c.Name
}

// VisibleFunctions returns the externally callable functions accepted by include.
// A nil include accepts everything.
func (c *Contract) VisibleFunctions(include func(name string) bool) []Function {
	var out []Function
	for _, fn := range c.Functions {
		if !fn.IsVisible() {
			continue
		}
		if include != nil && !include(fn.Name) {
			continue
		}
		out = append(out, fn)
	}
	return out
}

// BytecodeHash returns the keccak256 of the deployed bytecode, or "" when unknown
func (c *Contract) BytecodeHash() string {
	if c.DeployedBytecode == "" {
		return ""
	}
	return crypto.Keccak256Hash(common.FromHex(c.DeployedBytecode)).Hex()
}
