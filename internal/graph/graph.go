// Package graph assembles fetched artifacts and extracted references into
// the typed traceability graph.
package graph

import (
	"sort"

	"github.com/zarfld/reqtrace/internal/classify"
	"github.com/zarfld/reqtrace/internal/extract"
	"github.com/zarfld/reqtrace/internal/tracker"
)

// Node is one artifact with its resolved category.
type Node struct {
	Artifact tracker.Artifact  `json:"artifact"`
	Category classify.Category `json:"category"`
}

// Reference is a directed, role-typed edge between two artifacts.
type Reference struct {
	Source int          `json:"source"`
	Target int          `json:"target"`
	Role   extract.Role `json:"role"`
}

// Graph is the in-memory traceability graph. It is built once per run and
// never mutated afterwards; each run is a full rebuild from current tracker
// state.
//
// Forward adjacency is the stored ground truth. Backward adjacency is
// derived on demand by index inversion so it cannot drift out of sync.
type Graph struct {
	Nodes   map[int]*Node
	Forward map[int][]Reference

	// Dangling holds edges whose target is not in the fetched artifact
	// set. They are excluded from adjacency but kept for reporting; a
	// dangling reference must never be silently dropped.
	Dangling []Reference

	Stats Stats

	order []int // node numbers, ascending
}

// Stats summarizes the built graph.
type Stats struct {
	NodeCount     int                       `json:"node_count"`
	EdgeCount     int                       `json:"edge_count"`
	DanglingCount int                       `json:"dangling_count"`
	ByCategory    map[classify.Category]int `json:"by_category"`
	ByState       map[string]int            `json:"by_state"`
}

// Build assembles the graph. For every reference the target is checked
// against the full identifier set; absent targets go to the dangling side
// list. This check lives here rather than in the validator because only the
// builder holds the complete identifier set.
func Build(artifacts []tracker.Artifact, categories map[int]classify.Category, refs map[int][]extract.Reference) *Graph {
	g := &Graph{
		Nodes:   make(map[int]*Node, len(artifacts)),
		Forward: make(map[int][]Reference),
		Stats: Stats{
			ByCategory: make(map[classify.Category]int),
			ByState:    make(map[string]int),
		},
	}

	for _, a := range artifacts {
		cat, ok := categories[a.Number]
		if !ok {
			cat = classify.Unclassified
		}
		g.Nodes[a.Number] = &Node{Artifact: a, Category: cat}
		g.order = append(g.order, a.Number)
		g.Stats.ByCategory[cat]++
		g.Stats.ByState[a.State]++
	}
	sort.Ints(g.order)

	for _, source := range g.order {
		for _, r := range refs[source] {
			edge := Reference{Source: source, Target: r.Target, Role: r.Role}
			if _, exists := g.Nodes[r.Target]; !exists {
				g.Dangling = append(g.Dangling, edge)
				continue
			}
			g.Forward[source] = append(g.Forward[source], edge)
			g.Stats.EdgeCount++
		}
	}

	g.Stats.NodeCount = len(g.Nodes)
	g.Stats.DanglingCount = len(g.Dangling)
	return g
}

// Numbers returns all node identifiers in ascending order.
func (g *Graph) Numbers() []int {
	return g.order
}

// Backward derives the inverse adjacency index: target -> references whose
// target is that node.
func (g *Graph) Backward() map[int][]Reference {
	back := make(map[int][]Reference)
	for _, source := range g.order {
		for _, e := range g.Forward[source] {
			back[e.Target] = append(back[e.Target], e)
		}
	}
	return back
}

// Outgoing returns the stored forward edges for a node.
func (g *Graph) Outgoing(n int) []Reference {
	return g.Forward[n]
}

// Category returns the resolved category of a node, or Unclassified for an
// unknown identifier.
func (g *Graph) Category(n int) classify.Category {
	if node, ok := g.Nodes[n]; ok {
		return node.Category
	}
	return classify.Unclassified
}
