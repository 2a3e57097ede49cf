// Package coverage computes linkage metrics over the traceability graph.
package coverage

import (
	"github.com/zarfld/reqtrace/internal/classify"
	"github.com/zarfld/reqtrace/internal/graph"
)

// Metric is one named coverage ratio.
//
// CoveragePct is nil when Total is zero: an empty category pair is
// not-applicable, not "0% covered".
type Metric struct {
	Key         string   `json:"-"`
	Total       int      `json:"total"`
	Linked      int      `json:"linked"`
	CoveragePct *float64 `json:"coverage_pct"`
}

// pair is one row of the fixed metric table: artifacts of any source
// category count as linked when they touch any destination category in
// either direction.
type pair struct {
	key     string
	sources []classify.Category
	dests   []classify.Category
}

// The table is fixed and explicit; keys match the metric names downstream
// tooling already consumes.
var pairs = []pair{
	{
		key:     "requirement",
		sources: []classify.Category{classify.FunctionalRequirement, classify.NonFunctionalRequirement},
		dests:   nil, // any link at all
	},
	{
		key:     "requirement_to_ADR",
		sources: []classify.Category{classify.FunctionalRequirement, classify.NonFunctionalRequirement},
		dests:   []classify.Category{classify.ArchitectureDecision, classify.ArchitectureComponent},
	},
	{
		key:     "requirement_to_scenario",
		sources: []classify.Category{classify.FunctionalRequirement, classify.NonFunctionalRequirement},
		dests:   []classify.Category{classify.QualityScenario},
	},
	{
		key:     "requirement_to_test",
		sources: []classify.Category{classify.FunctionalRequirement, classify.NonFunctionalRequirement},
		dests:   []classify.Category{classify.Test},
	},
	{
		key:     "stakeholder_to_requirement",
		sources: []classify.Category{classify.StakeholderRequirement},
		dests:   []classify.Category{classify.FunctionalRequirement, classify.NonFunctionalRequirement},
	},
}

// Compute evaluates the fixed metric table against the graph. Linkage is
// symmetric by design: an artifact counts as linked if it has an outgoing
// reference to the destination category or an incoming one from it, because
// authors place the link annotation on either side.
func Compute(g *graph.Graph) []Metric {
	back := g.Backward()

	metrics := make([]Metric, 0, len(pairs))
	for _, p := range pairs {
		m := Metric{Key: p.key}

		for _, n := range g.Numbers() {
			if !contains(p.sources, g.Category(n)) {
				continue
			}
			m.Total++
			if linked(g, back, n, p.dests) {
				m.Linked++
			}
		}

		if m.Total > 0 {
			pct := float64(m.Linked) / float64(m.Total) * 100
			m.CoveragePct = &pct
		}
		metrics = append(metrics, m)
	}
	return metrics
}

// linked checks both edge directions against the destination set. A nil
// destination set means any reference counts.
func linked(g *graph.Graph, back map[int][]graph.Reference, n int, dests []classify.Category) bool {
	if dests == nil {
		return len(g.Outgoing(n)) > 0 || len(back[n]) > 0
	}
	for _, e := range g.Outgoing(n) {
		if contains(dests, g.Category(e.Target)) {
			return true
		}
	}
	for _, e := range back[n] {
		if contains(dests, g.Category(e.Source)) {
			return true
		}
	}
	return false
}

func contains(set []classify.Category, c classify.Category) bool {
	for _, s := range set {
		if s == c {
			return true
		}
	}
	return false
}
