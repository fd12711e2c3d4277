package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/canbcare/counselor/internal/feature"
)

// DefaultVersion labels the built-in seed catalog.
const DefaultVersion = "builtin-2025.1"

// DefinitionError reports an invalid case definition found while building
// a catalog.
type DefinitionError struct {
	Code string
	Err  error
}

func (e *DefinitionError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("catalog: %v", e.Err)
	}
	return fmt.Sprintf("catalog: case %s: %v", e.Code, e.Err)
}

func (e *DefinitionError) Unwrap() error { return e.Err }

// Catalog is an immutable, validated set of case definitions.
type Catalog struct {
	version string
	defs    []*Definition // sorted by Order
	byCode  map[string]*Definition
}

// New validates defs and builds a catalog. The definitions are copied.
func New(version string, defs []Definition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, &DefinitionError{Err: errors.New("no definitions")}
	}

	c := &Catalog{
		version: version,
		defs:    make([]*Definition, 0, len(defs)),
		byCode:  make(map[string]*Definition, len(defs)),
	}
	orders := make(map[int]string, len(defs))

	for i := range defs {
		d := cloneDefinition(defs[i])
		if err := d.validate(); err != nil {
			return nil, &DefinitionError{Code: d.Code, Err: err}
		}
		if _, dup := c.byCode[d.Code]; dup {
			return nil, &DefinitionError{Code: d.Code, Err: errors.New("duplicate code")}
		}
		if other, dup := orders[d.Order]; dup {
			return nil, &DefinitionError{Code: d.Code, Err: fmt.Errorf("order %d already used by %s", d.Order, other)}
		}
		orders[d.Order] = d.Code
		c.byCode[d.Code] = d
		c.defs = append(c.defs, d)
	}

	sort.Slice(c.defs, func(i, j int) bool { return c.defs[i].Order < c.defs[j].Order })
	return c, nil
}

func cloneDefinition(d Definition) *Definition {
	out := d
	out.Core = clonePredicates(d.Core)
	out.Supporting = clonePredicates(d.Supporting)
	return &out
}

func clonePredicates(ps []Predicate) []Predicate {
	if ps == nil {
		return nil
	}
	out := make([]Predicate, len(ps))
	for i, p := range ps {
		out[i] = p
		if p.Values != nil {
			out[i].Values = append([]string(nil), p.Values...)
		}
	}
	return out
}

// Version returns the catalog's version label.
func (c *Catalog) Version() string { return c.version }

// Len returns the number of definitions.
func (c *Catalog) Len() int { return len(c.defs) }

// Definitions returns the definitions in catalog order. Callers must not
// modify the returned values.
func (c *Catalog) Definitions() []*Definition {
	return c.defs
}

// Lookup returns the definition for code, or nil if not found.
func (c *Catalog) Lookup(code string) *Definition {
	return c.byCode[code]
}

// Family returns the definitions whose partition predicate holds for s.
func (c *Catalog) Family(s *feature.Snapshot) []*Definition {
	var out []*Definition
	for _, d := range c.defs {
		if d.InFamily(s) {
			out = append(out, d)
		}
	}
	return out
}

// RequiredFields returns every non-pivot field referenced by a core
// predicate of a definition in the snapshot's family, in wire order.
func (c *Catalog) RequiredFields(s *feature.Snapshot) []feature.Field {
	need := make(map[feature.Field]bool)
	for _, d := range c.Family(s) {
		for _, f := range d.CoreFields() {
			need[f] = true
		}
	}
	var out []feature.Field
	for _, f := range feature.Fields() {
		if need[f] {
			out = append(out, f)
		}
	}
	return out
}

// Registry publishes the active catalog. Readers take one atomic load per
// call; Swap replaces the whole catalog without blocking them.
type Registry struct {
	cur atomic.Pointer[Catalog]
}

// NewRegistry returns a registry serving c.
func NewRegistry(c *Catalog) *Registry {
	r := &Registry{}
	r.cur.Store(c)
	return r
}

// Load returns the active catalog.
func (r *Registry) Load() *Catalog {
	return r.cur.Load()
}

// Swap installs c and returns the previous catalog.
func (r *Registry) Swap(c *Catalog) *Catalog {
	return r.cur.Swap(c)
}
