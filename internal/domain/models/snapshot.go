package models

import (
	"sort"
)

// Snapshot is the full declaration set of one build, keyed by fully-qualified name
type Snapshot struct {
	contracts map[string]*Contract
	order     []string
}

// NewSnapshot indexes the given contracts. Later duplicates of a fully-qualified
// name replace earlier ones.
func NewSnapshot(contracts ...*Contract) *Snapshot {
	s := &Snapshot{contracts: make(map[string]*Contract)}
	for _, c := range contracts {
		s.Add(c)
	}
	return s
}

// Add inserts or replaces a contract declaration
func (s *Snapshot) Add(c *Contract) {
	fqn := c.FullyQualifiedName()
	if _, exists := s.contracts[fqn]; !exists {
		s.order = append(s.order, fqn)
	}
	s.contracts[fqn] = c
}

// Contract returns a declaration by fully-qualified name
func (s *Snapshot) Contract(fqn string) (*Contract, bool) {
	c, ok := s.contracts[fqn]
	return c, ok
}

// Contracts returns every declaration sorted by fully-qualified name
func (s *Snapshot) Contracts() []*Contract {
	names := make([]string, len(s.order))
	copy(names, s.order)
	sort.Strings(names)

	out := make([]*Contract, 0, len(names))
	for _, name := range names {
		out = append(out, s.contracts[name])
	}
	return out
}

// Modules returns the contracts composed into the router, sorted by fully-qualified name
func (s *Snapshot) Modules() []*Contract {
	var out []*Contract
	for _, c := range s.Contracts() {
		if c.IsModule {
			out = append(out, c)
		}
	}
	return out
}

// Proxy returns the entry-point declaration, if any
func (s *Snapshot) Proxy() (*Contract, bool) {
	for _, c := range s.Contracts() {
		if c.IsProxy {
			return c, true
		}
	}
	return nil, false
}

// Namespaces returns every declared namespace keyed by ID
func (s *Snapshot) Namespaces() map[string]StorageNamespace {
	out := make(map[string]StorageNamespace)
	for _, c := range s.Contracts() {
		for _, ns := range c.Namespaces {
			out[ns.ID()] = ns
		}
	}
	return out
}

// Namespace looks up a namespace by ID
func (s *Snapshot) Namespace(id string) (StorageNamespace, bool) {
	ns, ok := s.Namespaces()[id]
	return ns, ok
}

// Reachable walks the dependency graph of fqn breadth-first and returns every
// reachable declaration, excluding the start contract. Unknown names are skipped.
func (s *Snapshot) Reachable(fqn string) []*Contract {
	start, ok := s.contracts[fqn]
	if !ok {
		return nil
	}

	seen := map[string]bool{fqn: true}
	queue := append([]string{}, start.Dependencies...)
	var out []*Contract
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if seen[name] {
			continue
		}
		seen[name] = true

		dep, ok := s.contracts[name]
		if !ok {
			continue
		}
		out = append(out, dep)
		queue = append(queue, dep.Dependencies...)
	}
	return out
}

// Len returns the number of declarations
func (s *Snapshot) Len() int {
	return len(s.contracts)
}
