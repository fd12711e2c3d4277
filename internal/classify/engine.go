package classify

import (
	"errors"
	"fmt"
	"sort"

	"github.com/canbcare/counselor/internal/catalog"
	"github.com/canbcare/counselor/internal/feature"
)

// ErrNilSnapshot is returned when Classify is called without a snapshot.
var ErrNilSnapshot = errors.New("classify: nil snapshot")

// Engine classifies snapshots against the catalog held by a registry.
// It keeps no mutable state and is safe for concurrent use.
type Engine struct {
	registry *catalog.Registry
}

// NewEngine creates an engine reading from reg.
func NewEngine(reg *catalog.Registry) *Engine {
	return &Engine{registry: reg}
}

// Catalog returns the catalog currently served to the engine.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.registry.Load()
}

// Classify evaluates s against the active catalog. The catalog is loaded
// once, so a concurrent Swap never mixes two catalogs within one call.
func (e *Engine) Classify(s *feature.Snapshot) (*Result, error) {
	return Classify(e.registry.Load(), s)
}

type candidate struct {
	def     *catalog.Definition
	matched int
}

// Classify evaluates s against c. It returns a *feature.ValidationError
// when a field required by the snapshot's partition family is absent.
func Classify(c *catalog.Catalog, s *feature.Snapshot) (*Result, error) {
	if s == nil {
		return nil, ErrNilSnapshot
	}

	family := c.Family(s)
	if len(family) == 0 {
		return unclassified(c.Version()), nil
	}

	var missing []feature.Field
	for _, f := range c.RequiredFields(s) {
		if !s.Has(f) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, feature.MissingFieldsError(missing)
	}

	var cands []candidate
	for _, d := range family {
		ok, err := d.MatchCore(s)
		if err != nil {
			return nil, fmt.Errorf("classify: %w", err)
		}
		if ok {
			cands = append(cands, candidate{def: d, matched: d.CountSupporting(s)})
		}
	}
	if len(cands) == 0 {
		return unclassified(c.Version()), nil
	}

	// More supporting matches wins; catalog order breaks ties.
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].matched != cands[j].matched {
			return cands[i].matched > cands[j].matched
		}
		return cands[i].def.Order < cands[j].def.Order
	})

	best := cands[0]
	total := len(best.def.Supporting)
	score := supportingScore(best.matched, total)

	alts := make([]Alternate, 0, len(cands)-1)
	for _, cd := range cands[1:] {
		n := len(cd.def.Supporting)
		alts = append(alts, Alternate{
			CaseCode:          cd.def.Code,
			SupportingMatched: cd.matched,
			SupportingTotal:   n,
			SupportingScore:   supportingScore(cd.matched, n),
		})
	}

	return &Result{
		CaseCode:          best.def.Code,
		SupportingMatched: best.matched,
		SupportingTotal:   total,
		SupportingScore:   score,
		Alternates:        alts,
		ConfidenceTier:    TierFor(score),
		CatalogVersion:    c.Version(),
		Definition:        best.def,
	}, nil
}

func supportingScore(matched, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(matched) / float64(total)
}
