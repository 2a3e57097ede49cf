package coverage

import (
	"testing"

	"github.com/zarfld/reqtrace/internal/classify"
	"github.com/zarfld/reqtrace/internal/extract"
	"github.com/zarfld/reqtrace/internal/graph"
	"github.com/zarfld/reqtrace/internal/tracker"
)

func metricByKey(t *testing.T, metrics []Metric, key string) Metric {
	t.Helper()
	for _, m := range metrics {
		if m.Key == key {
			return m
		}
	}
	t.Fatalf("metric %q not computed", key)
	return Metric{}
}

func TestCompute_OutgoingLink(t *testing.T) {
	g := graph.Build(
		[]tracker.Artifact{
			{Number: 1, Title: "REQ-F-001"},
			{Number: 2, Title: "ADR-001"},
		},
		map[int]classify.Category{
			1: classify.FunctionalRequirement,
			2: classify.ArchitectureDecision,
		},
		map[int][]extract.Reference{
			1: {{Target: 2, Role: extract.Generic}},
		},
	)

	m := metricByKey(t, Compute(g), "requirement_to_ADR")
	if m.Total != 1 || m.Linked != 1 {
		t.Errorf("requirement_to_ADR = %d/%d, want 1/1", m.Linked, m.Total)
	}
	if m.CoveragePct == nil || *m.CoveragePct != 100 {
		t.Errorf("CoveragePct = %v, want 100", m.CoveragePct)
	}
}

// Link direction must not matter: an ADR that declares "implements #1"
// covers requirement #1 just as well as the reverse annotation would.
func TestCompute_IncomingLinkCounts(t *testing.T) {
	g := graph.Build(
		[]tracker.Artifact{
			{Number: 1, Title: "REQ-F-001"},
			{Number: 2, Title: "ADR-001"},
		},
		map[int]classify.Category{
			1: classify.FunctionalRequirement,
			2: classify.ArchitectureDecision,
		},
		map[int][]extract.Reference{
			2: {{Target: 1, Role: extract.Implements}},
		},
	)

	m := metricByKey(t, Compute(g), "requirement_to_ADR")
	if m.Linked != 1 {
		t.Errorf("incoming link not counted: %d/%d", m.Linked, m.Total)
	}
}

// ARC-C components are decision-grade evidence for the ADR metric.
func TestCompute_ComponentCountsAsADR(t *testing.T) {
	g := graph.Build(
		[]tracker.Artifact{
			{Number: 1, Title: "REQ-NF-001"},
			{Number: 2, Title: "ARC-C-001"},
		},
		map[int]classify.Category{
			1: classify.NonFunctionalRequirement,
			2: classify.ArchitectureComponent,
		},
		map[int][]extract.Reference{
			1: {{Target: 2, Role: extract.DependsOn}},
		},
	)

	m := metricByKey(t, Compute(g), "requirement_to_ADR")
	if m.Linked != 1 {
		t.Errorf("ARC-C link not counted: %d/%d", m.Linked, m.Total)
	}
}

func TestCompute_AggregateRequirementMetric(t *testing.T) {
	g := graph.Build(
		[]tracker.Artifact{
			{Number: 1, Title: "REQ-F-001"},
			{Number: 2, Title: "REQ-F-002"},
			{Number: 3, Title: "StR-001"},
		},
		map[int]classify.Category{
			1: classify.FunctionalRequirement,
			2: classify.FunctionalRequirement,
			3: classify.StakeholderRequirement,
		},
		map[int][]extract.Reference{
			1: {{Target: 3, Role: extract.TracesTo}},
		},
	)

	metrics := Compute(g)

	agg := metricByKey(t, metrics, "requirement")
	if agg.Total != 2 || agg.Linked != 1 {
		t.Errorf("requirement = %d/%d, want 1/2", agg.Linked, agg.Total)
	}
	if agg.CoveragePct == nil || *agg.CoveragePct != 50 {
		t.Errorf("CoveragePct = %v, want 50", agg.CoveragePct)
	}

	// The upward trace is not a test link.
	toTest := metricByKey(t, metrics, "requirement_to_test")
	if toTest.Linked != 0 {
		t.Errorf("requirement_to_test.Linked = %d, want 0", toTest.Linked)
	}

	str := metricByKey(t, metrics, "stakeholder_to_requirement")
	if str.Total != 1 || str.Linked != 1 {
		t.Errorf("stakeholder_to_requirement = %d/%d, want 1/1", str.Linked, str.Total)
	}
}

// With no artifacts in the source category the ratio is undefined, not zero.
func TestCompute_EmptyCategoryHasNilRatio(t *testing.T) {
	g := graph.Build(
		[]tracker.Artifact{{Number: 1, Title: "StR-001"}},
		map[int]classify.Category{1: classify.StakeholderRequirement},
		nil,
	)

	for _, key := range []string{"requirement", "requirement_to_ADR", "requirement_to_scenario", "requirement_to_test"} {
		m := metricByKey(t, Compute(g), key)
		if m.Total != 0 {
			t.Errorf("%s.Total = %d, want 0", key, m.Total)
		}
		if m.CoveragePct != nil {
			t.Errorf("%s.CoveragePct = %v, want nil", key, *m.CoveragePct)
		}
	}
}

func TestCompute_AllMetricsAlwaysPresent(t *testing.T) {
	metrics := Compute(graph.Build(nil, nil, nil))
	if len(metrics) != 5 {
		t.Fatalf("got %d metrics, want 5", len(metrics))
	}
	want := []string{"requirement", "requirement_to_ADR", "requirement_to_scenario", "requirement_to_test", "stakeholder_to_requirement"}
	for i, key := range want {
		if metrics[i].Key != key {
			t.Errorf("metrics[%d].Key = %q, want %q", i, metrics[i].Key, key)
		}
	}
}
