// Package report serializes the graph, metrics, and violations into the
// machine-readable traceability file and the human-readable markdown
// summary.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/zarfld/reqtrace/internal/coverage"
	"github.com/zarfld/reqtrace/internal/extract"
	"github.com/zarfld/reqtrace/internal/gate"
	"github.com/zarfld/reqtrace/internal/graph"
	"github.com/zarfld/reqtrace/internal/validate"
)

// Item is one artifact as it appears in the report, with its resolved type
// and categorized links. Labels and URL are included for downstream
// debugging.
type Item struct {
	ID          string                    `json:"id"` // "#N"
	Type        string                    `json:"type"`
	Title       string                    `json:"title"`
	State       string                    `json:"state"`
	URL         string                    `json:"url"`
	Labels      []string                  `json:"labels"`
	References  []string                  `json:"references"`
	LinkDetails map[extract.Role][]string `json:"link_details,omitempty"`
}

// Report is the full machine-readable output. Downstream jobs consume this
// file without re-querying the tracker, so it carries everything: items,
// both link directions, metrics, violations, and the gate outcome.
//
// Output is deterministic: for an unchanged artifact set, two runs produce
// byte-identical JSON except for GeneratedAt.
type Report struct {
	Source        string                      `json:"source"`
	Repository    string                      `json:"repository"`
	GeneratedAt   time.Time                   `json:"generated_at"`
	Metrics       map[string]coverage.Metric  `json:"metrics"`
	Items         []Item                      `json:"items"`
	ForwardLinks  map[string][]string         `json:"forward_links"`
	BackwardLinks map[string][]string         `json:"backward_links"`
	Violations    []validate.Violation        `json:"violations"`
	Gate          gate.Result                 `json:"gate"`
	Stats         graph.Stats                 `json:"stats"`
}

// Build assembles the report from the pipeline outputs. Every fetched
// artifact appears exactly once in Items regardless of category; dangling
// targets appear in links (they were extracted) but have no item.
func Build(source, repository string, g *graph.Graph, metrics []coverage.Metric, violations []validate.Violation, gateResult gate.Result, generatedAt time.Time) *Report {
	r := &Report{
		Source:        source,
		Repository:    repository,
		GeneratedAt:   generatedAt,
		Metrics:       make(map[string]coverage.Metric, len(metrics)),
		ForwardLinks:  make(map[string][]string),
		BackwardLinks: make(map[string][]string),
		Violations:    violations,
		Gate:          gateResult,
		Stats:         g.Stats,
	}
	if r.Violations == nil {
		r.Violations = []validate.Violation{}
	}

	for _, m := range metrics {
		r.Metrics[m.Key] = m
	}

	for _, n := range g.Numbers() {
		node := g.Nodes[n]

		item := Item{
			ID:     id(n),
			Type:   string(node.Category),
			Title:  node.Artifact.Title,
			State:  node.Artifact.State,
			URL:    node.Artifact.URL,
			Labels: node.Artifact.Labels,
		}
		if item.Labels == nil {
			item.Labels = []string{}
		}

		// References cover resolved and dangling edges alike; a dangling
		// reference was still extracted from this body.
		targets := map[int]bool{}
		details := make(map[extract.Role][]string)
		for _, e := range g.Outgoing(n) {
			targets[e.Target] = true
			details[e.Role] = append(details[e.Role], id(e.Target))
		}
		for _, e := range g.Dangling {
			if e.Source == n {
				targets[e.Target] = true
				details[e.Role] = append(details[e.Role], id(e.Target))
			}
		}

		item.References = sortedIDs(targets)
		if len(details) > 0 {
			for role := range details {
				sortIDList(details[role])
			}
			item.LinkDetails = details
		}

		r.Items = append(r.Items, item)
		r.ForwardLinks[item.ID] = item.References
	}
	if r.Items == nil {
		r.Items = []Item{}
	}

	back := g.Backward()
	backNumbers := make([]int, 0, len(back))
	for n := range back {
		backNumbers = append(backNumbers, n)
	}
	sort.Ints(backNumbers)
	for _, n := range backNumbers {
		sources := map[int]bool{}
		for _, e := range back[n] {
			sources[e.Source] = true
		}
		r.BackwardLinks[id(n)] = sortedIDs(sources)
	}

	return r
}

func id(n int) string {
	return fmt.Sprintf("#%d", n)
}

func sortedIDs(set map[int]bool) []string {
	nums := make([]int, 0, len(set))
	for n := range set {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	out := make([]string, 0, len(nums))
	for _, n := range nums {
		out = append(out, id(n))
	}
	return out
}

// sortIDList sorts "#N" strings numerically, not lexically.
func sortIDList(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		var a, b int
		fmt.Sscanf(ids[i], "#%d", &a)
		fmt.Sscanf(ids[j], "#%d", &b)
		return a < b
	})
}
