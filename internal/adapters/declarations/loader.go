// Package declarations reads the declaration snapshot emitted by the compiler
// toolchain and turns it into a models.Snapshot.
package declarations

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/trebuchet-org/treb-router/internal/domain/config"
	"github.com/trebuchet-org/treb-router/internal/domain/models"
	"github.com/trebuchet-org/treb-router/internal/usecase"
)

// Loader implements DeclarationSource over a snapshot file
type Loader struct {
	path string
}

// NewLoader creates a loader for the configured declarations file
func NewLoader(cfg *config.RuntimeConfig) *Loader {
	path := cfg.Router.Declarations
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.ProjectRoot, path)
	}
	return &Loader{path: path}
}

// Path returns the snapshot file location
func (l *Loader) Path() string {
	return l.path
}

// LoadSnapshot reads and parses the snapshot file
func (l *Loader) LoadSnapshot(_ context.Context) (*models.Snapshot, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", l.path, err)
	}
	snapshot, err := Parse(data, filepath.Ext(l.path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.path, err)
	}
	return snapshot, nil
}

// Parse decodes snapshot bytes. YAML is used for .yaml/.yml, JSON with comments
// and trailing commas for everything else.
func Parse(data []byte, ext string) (*models.Snapshot, error) {
	var file snapshotFile
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parsing declarations: %w", err)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
			return nil, fmt.Errorf("parsing declarations: %w", err)
		}
	}

	snapshot := models.NewSnapshot()
	for i, decl := range file.Contracts {
		c, err := decl.build()
		if err != nil {
			return nil, fmt.Errorf("contract %d (%s): %w", i, decl.Name, err)
		}
		if _, exists := snapshot.Contract(c.FullyQualifiedName()); exists {
			return nil, fmt.Errorf("contract %s declared twice", c.FullyQualifiedName())
		}
		snapshot.Add(c)
	}
	return snapshot, nil
}

func (d contractDecl) build() (*models.Contract, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("missing contract name")
	}

	opts := []models.ContractOption{
		models.WithNamespaceRefs(d.NamespaceRefs...),
		models.WithDependencies(d.Dependencies...),
		models.WithBytecode(d.Bytecode, d.DeployedBytecode),
	}
	if d.Kind != "" {
		kind, err := parseKind(d.Kind)
		if err != nil {
			return nil, err
		}
		opts = append(opts, models.WithKind(kind))
	}
	if d.Module {
		opts = append(opts, models.AsModule())
	}
	if d.Proxy {
		opts = append(opts, models.AsProxy())
	}

	for _, f := range d.Functions {
		fn, err := f.build()
		if err != nil {
			return nil, err
		}
		opts = append(opts, models.WithFunctions(fn))
	}
	for _, v := range d.StateVariables {
		opts = append(opts, models.WithStateVariables(models.StateVariable{
			Name:      v.Name,
			Type:      v.Type.TypeDescriptor,
			Constant:  v.Constant,
			Immutable: v.Immutable,
		}))
	}
	for _, n := range d.Namespaces {
		ns, err := n.build()
		if err != nil {
			return nil, err
		}
		opts = append(opts, models.WithNamespaces(ns))
	}

	return models.NewContract(d.Path, d.Name, opts...), nil
}

func parseKind(kind string) (models.ContractKind, error) {
	switch k := models.ContractKind(strings.ToLower(kind)); k {
	case models.KindContract, models.KindInterface, models.KindLibrary, models.KindAbstract:
		return k, nil
	default:
		return "", fmt.Errorf("unknown contract kind %q", kind)
	}
}

func (f functionDecl) build() (models.Function, error) {
	if f.Signature == "" {
		return models.Function{}, fmt.Errorf("function without signature")
	}
	fn := models.Function{
		Signature:  f.Signature,
		Visibility: models.Visibility(strings.ToLower(f.Visibility)),
		Selector:   models.SelectorFromSignature(f.Signature),
	}
	if f.Selector != "" {
		declared, err := models.ParseSelector(f.Selector)
		if err != nil {
			return models.Function{}, err
		}
		if declared != fn.Selector {
			return models.Function{}, fmt.Errorf("selector %s does not match %s (expected %s)", declared, f.Signature, fn.Selector)
		}
	}
	return fn, nil
}

func (n namespaceDecl) build() (models.StorageNamespace, error) {
	if n.Name == "" {
		return models.StorageNamespace{}, fmt.Errorf("namespace without name")
	}
	ns := models.StorageNamespace{Name: n.Name, Members: make([]models.Member, 0, len(n.Members))}
	if n.Slot != "" {
		raw := strings.TrimPrefix(n.Slot, "0x")
		if len(raw) != 64 {
			return ns, fmt.Errorf("namespace %s: invalid slot %q", n.Name, n.Slot)
		}
		ns.Slot = common.HexToHash(n.Slot)
	}
	for _, m := range n.Members {
		ns.Members = append(ns.Members, models.Member{Name: m.Name, Type: m.Type.TypeDescriptor})
	}
	return ns, nil
}

// Ensure Loader implements DeclarationSource
var _ usecase.DeclarationSource = (*Loader)(nil)
