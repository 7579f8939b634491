package models

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// TypeKind classifies a member type descriptor
type TypeKind string

const (
	TypeElementary TypeKind = "elementary"
	TypeAddress    TypeKind = "address"
	TypeBytes      TypeKind = "bytes"
	TypeString     TypeKind = "string"
	TypeEnum       TypeKind = "enum"
	TypeContract   TypeKind = "contract"
	TypeArray      TypeKind = "array"
	TypeMapping    TypeKind = "mapping"
	TypeStruct     TypeKind = "struct"
)

// TypeDescriptor describes the type of a storage member. Label is the canonical
// type string (e.g. "uint256", "mapping(address => uint256)") and is what layout
// comparisons use. Elem is the element type of arrays and the value type of mappings.
type TypeDescriptor struct {
	Label string          `json:"label" yaml:"label"`
	Kind  TypeKind        `json:"kind" yaml:"kind"`
	Elem  *TypeDescriptor `json:"elem,omitempty" yaml:"elem,omitempty"`
}

// Elementary returns a descriptor for a value type such as uint256 or bool
func Elementary(label string) TypeDescriptor {
	kind := TypeElementary
	switch label {
	case "address", "address payable":
		kind = TypeAddress
	case "string":
		kind = TypeString
	case "bytes":
		kind = TypeBytes
	}
	return TypeDescriptor{Label: label, Kind: kind}
}

// StructType returns a descriptor for a struct-typed field
func StructType(label string) TypeDescriptor {
	return TypeDescriptor{Label: label, Kind: TypeStruct}
}

// ContainsStruct reports whether a struct appears anywhere in the type tree
func (t TypeDescriptor) ContainsStruct() bool {
	if t.Kind == TypeStruct {
		return true
	}
	if t.Elem != nil {
		return t.Elem.ContainsStruct()
	}
	return false
}

// Member is one field of a storage namespace
type Member struct {
	Name  string         `json:"name" yaml:"name"`
	Type  TypeDescriptor `json:"type" yaml:"type"`
	Index int            `json:"index" yaml:"index"`
}

// StorageNamespace is a named, content-addressed storage region declared by one contract
type StorageNamespace struct {
	Name     string      `json:"name" yaml:"name"`
	Contract string      `json:"contract" yaml:"contract"`
	Slot     common.Hash `json:"slot" yaml:"slot"`
	Members  []Member    `json:"members" yaml:"members"`
}

// ID is the fully-qualified name of the namespace, stable across builds
func (ns StorageNamespace) ID() string {
	return ns.Contract + "." + ns.Name
}

// Member returns the member at index i
func (ns StorageNamespace) Member(i int) (Member, bool) {
	if i < 0 || i >= len(ns.Members) {
		return Member{}, false
	}
	return ns.Members[i], true
}

// DefaultSlot derives the storage base slot from a namespace's fully-qualified name
func DefaultSlot(id string) common.Hash {
	return crypto.Keccak256Hash([]byte(id))
}

// NewNamespace builds a namespace with members indexed in declaration order
func NewNamespace(contract, name string, members ...Member) StorageNamespace {
	ns := StorageNamespace{Name: name, Contract: contract, Members: make([]Member, len(members))}
	for i, m := range members {
		m.Index = i
		ns.Members[i] = m
	}
	ns.Slot = DefaultSlot(ns.ID())
	return ns
}

// Field is a shorthand for an elementary member
func Field(name, typeLabel string) Member {
	return Member{Name: name, Type: Elementary(typeLabel)}
}
