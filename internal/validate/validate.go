// Package validate walks the built graph for structural integrity problems.
//
// Every rule is evaluated independently and findings are accumulated to
// completion; the value of a run is the complete list of problems, not the
// first one found. The package is pure: no I/O, deterministic for a fixed
// graph.
package validate

import (
	"fmt"
	"sort"

	"github.com/zarfld/reqtrace/internal/classify"
	"github.com/zarfld/reqtrace/internal/extract"
	"github.com/zarfld/reqtrace/internal/graph"
)

// Kind classifies a violation.
type Kind string

const (
	// OrphanRequirement: a requirement with no link in either direction to
	// any downstream evidence (decision, component, scenario, or test).
	OrphanRequirement Kind = "orphan_requirement"

	// DanglingReference: a reference whose target does not exist in the
	// fetched artifact set.
	DanglingReference Kind = "dangling_reference"

	// MissingRequiredRole: a requirement with no upward trace to a
	// stakeholder requirement.
	MissingRequiredRole Kind = "missing_required_role"

	// AmbiguousType: title prefix and labels disagreed about the category.
	AmbiguousType Kind = "ambiguous_type"
)

// Violation is one detected integrity problem.
type Violation struct {
	Kind       Kind   `json:"kind"`
	ArtifactID int    `json:"artifact_id"`
	Detail     string `json:"detail"`
}

// downstreamEvidence is the set of categories that count as evidence for a
// requirement. Projects use different subsets (some verify with tests, some
// with scenarios), so any of them satisfies the orphan rule.
var downstreamEvidence = map[classify.Category]bool{
	classify.ArchitectureDecision:  true,
	classify.ArchitectureComponent: true,
	classify.QualityScenario:       true,
	classify.Test:                  true,
}

// Check runs all integrity rules over the graph and returns the violations
// sorted by artifact id, then kind. Dangling references collected by the
// builder are merged in unchanged.
func Check(g *graph.Graph) []Violation {
	var out []Violation

	back := g.Backward()

	for _, n := range g.Numbers() {
		cat := g.Category(n)
		if !cat.IsRequirement() {
			continue
		}

		if !hasDownstreamEvidence(g, back, n) {
			out = append(out, Violation{
				Kind:       OrphanRequirement,
				ArtifactID: n,
				Detail:     fmt.Sprintf("%s #%d has no link to any architecture decision, quality scenario, or test", cat, n),
			})
		}

		if !hasUpwardTrace(g, n) {
			out = append(out, Violation{
				Kind:       MissingRequiredRole,
				ArtifactID: n,
				Detail:     fmt.Sprintf("%s #%d has no traces-to link to a stakeholder requirement", cat, n),
			})
		}
	}

	for _, d := range g.Dangling {
		out = append(out, Violation{
			Kind:       DanglingReference,
			ArtifactID: d.Source,
			Detail:     fmt.Sprintf("#%d references #%d which does not exist", d.Source, d.Target),
		})
	}

	Sort(out)
	return out
}

// hasDownstreamEvidence checks both directions: authors place the link on
// either the requirement or the evidence side, inconsistently.
func hasDownstreamEvidence(g *graph.Graph, back map[int][]graph.Reference, n int) bool {
	for _, e := range g.Outgoing(n) {
		if downstreamEvidence[g.Category(e.Target)] {
			return true
		}
	}
	for _, e := range back[n] {
		if downstreamEvidence[g.Category(e.Source)] {
			return true
		}
	}
	return false
}

// hasUpwardTrace requires an outgoing traces-to edge landing on a
// stakeholder requirement.
func hasUpwardTrace(g *graph.Graph, n int) bool {
	for _, e := range g.Outgoing(n) {
		if e.Role == extract.TracesTo && g.Category(e.Target) == classify.StakeholderRequirement {
			return true
		}
	}
	return false
}

// Sort orders violations deterministically: by artifact id, then kind, then
// detail.
func Sort(vs []Violation) {
	sort.Slice(vs, func(i, j int) bool {
		if vs[i].ArtifactID != vs[j].ArtifactID {
			return vs[i].ArtifactID < vs[j].ArtifactID
		}
		if vs[i].Kind != vs[j].Kind {
			return vs[i].Kind < vs[j].Kind
		}
		return vs[i].Detail < vs[j].Detail
	})
}
