package declarations

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/trebuchet-org/treb-router/internal/domain/models"
)

// snapshotFile is the on-disk shape of a declaration snapshot
type snapshotFile struct {
	Contracts []contractDecl `json:"contracts" yaml:"contracts"`
}

type contractDecl struct {
	Path             string          `json:"path" yaml:"path"`
	Name             string          `json:"name" yaml:"name"`
	Kind             string          `json:"kind" yaml:"kind"`
	Module           bool            `json:"module" yaml:"module"`
	Proxy            bool            `json:"proxy" yaml:"proxy"`
	Functions        []functionDecl  `json:"functions" yaml:"functions"`
	StateVariables   []variableDecl  `json:"stateVariables" yaml:"stateVariables"`
	Namespaces       []namespaceDecl `json:"namespaces" yaml:"namespaces"`
	NamespaceRefs    []string        `json:"namespaceRefs" yaml:"namespaceRefs"`
	Dependencies     []string        `json:"dependencies" yaml:"dependencies"`
	Bytecode         string          `json:"bytecode" yaml:"bytecode"`
	DeployedBytecode string          `json:"deployedBytecode" yaml:"deployedBytecode"`
}

type functionDecl struct {
	Signature  string `json:"signature" yaml:"signature"`
	Selector   string `json:"selector" yaml:"selector"`
	Visibility string `json:"visibility" yaml:"visibility"`
}

type variableDecl struct {
	Name      string   `json:"name" yaml:"name"`
	Type      typeDecl `json:"type" yaml:"type"`
	Constant  bool     `json:"constant" yaml:"constant"`
	Immutable bool     `json:"immutable" yaml:"immutable"`
}

type namespaceDecl struct {
	Name    string       `json:"name" yaml:"name"`
	Slot    string       `json:"slot" yaml:"slot"`
	Members []memberDecl `json:"members" yaml:"members"`
}

type memberDecl struct {
	Name string   `json:"name" yaml:"name"`
	Type typeDecl `json:"type" yaml:"type"`
}

// typeDecl accepts either a bare label ("uint256", "mapping(address => uint256)")
// or an explicit descriptor object.
type typeDecl struct {
	models.TypeDescriptor
}

func (t *typeDecl) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err == nil {
		t.TypeDescriptor = ParseType(label)
		return nil
	}
	var desc models.TypeDescriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return fmt.Errorf("invalid type: %w", err)
	}
	t.TypeDescriptor = completeType(desc)
	return nil
}

func (t *typeDecl) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		t.TypeDescriptor = ParseType(value.Value)
		return nil
	}
	var desc models.TypeDescriptor
	if err := value.Decode(&desc); err != nil {
		return fmt.Errorf("invalid type at line %d: %w", value.Line, err)
	}
	t.TypeDescriptor = completeType(desc)
	return nil
}

// completeType infers missing kinds from labels
func completeType(desc models.TypeDescriptor) models.TypeDescriptor {
	if desc.Kind == "" {
		inferred := ParseType(desc.Label)
		desc.Kind = inferred.Kind
		if desc.Elem == nil {
			desc.Elem = inferred.Elem
		}
	}
	if desc.Elem != nil {
		elem := completeType(*desc.Elem)
		desc.Elem = &elem
	}
	return desc
}

// ParseType builds a descriptor from a canonical type label
func ParseType(label string) models.TypeDescriptor {
	label = strings.TrimSpace(label)
	switch {
	case strings.HasPrefix(label, "mapping(") && strings.HasSuffix(label, ")"):
		inner := label[len("mapping(") : len(label)-1]
		value := ""
		if idx := strings.Index(inner, "=>"); idx >= 0 {
			value = strings.TrimSpace(inner[idx+2:])
		}
		elem := ParseType(value)
		return models.TypeDescriptor{Label: label, Kind: models.TypeMapping, Elem: &elem}
	case strings.HasSuffix(label, "]"):
		open := strings.LastIndex(label, "[")
		if open <= 0 {
			return models.Elementary(label)
		}
		elem := ParseType(label[:open])
		return models.TypeDescriptor{Label: label, Kind: models.TypeArray, Elem: &elem}
	case strings.HasPrefix(label, "struct "):
		return models.StructType(label)
	case strings.HasPrefix(label, "enum "):
		return models.TypeDescriptor{Label: label, Kind: models.TypeEnum}
	case strings.HasPrefix(label, "contract "):
		return models.TypeDescriptor{Label: label, Kind: models.TypeContract}
	default:
		return models.Elementary(label)
	}
}
