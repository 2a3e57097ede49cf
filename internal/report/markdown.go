package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zarfld/reqtrace/internal/classify"
	"github.com/zarfld/reqtrace/internal/extract"
	"github.com/zarfld/reqtrace/internal/gate"
	"github.com/zarfld/reqtrace/internal/validate"
)

const titleLimit = 50

// Markdown renders the human-readable summary: metric table, traceability
// matrix, orphan table, and an itemized violation list. The output is
// shaped for direct posting as a review comment.
func (r *Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Requirements Traceability Report\n\n")
	fmt.Fprintf(&b, "**Repository**: %s\n", r.Repository)
	fmt.Fprintf(&b, "**Generated**: %s\n", r.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "**Gate**: %s\n\n", r.Gate.Summary)

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "Total artifacts: **%d** (%d open, %d closed)\n\n",
		r.Stats.NodeCount, r.Stats.ByState["open"], r.Stats.ByState["closed"])

	b.WriteString("### By Type\n\n")
	cats := make([]classify.Category, 0, len(r.Stats.ByCategory))
	for c := range r.Stats.ByCategory {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	for _, c := range cats {
		fmt.Fprintf(&b, "- **%s**: %d\n", c, r.Stats.ByCategory[c])
	}
	b.WriteString("\n")

	b.WriteString("## Coverage\n\n")
	b.WriteString("| Metric | Total | Linked | Coverage |\n")
	b.WriteString("|--------|-------|--------|----------|\n")
	keys := make([]string, 0, len(r.Metrics))
	for k := range r.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m := r.Metrics[k]
		pct := "n/a"
		if m.CoveragePct != nil {
			pct = fmt.Sprintf("%.1f%%", *m.CoveragePct)
		}
		fmt.Fprintf(&b, "| %s | %d | %d | %s |\n", k, m.Total, m.Linked, pct)
	}
	b.WriteString("\n")

	b.WriteString("## Traceability Matrix\n\n")
	b.WriteString("| Issue | Type | Title | State | Traces To | Depends On | Verified By | Implements |\n")
	b.WriteString("|-------|------|-------|-------|-----------|------------|-------------|------------|\n")
	for _, item := range r.Items {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			item.ID, item.Type, truncate(item.Title), stateBadge(item.State),
			roleCell(item, extract.TracesTo), roleCell(item, extract.DependsOn),
			roleCell(item, extract.VerifiedBy), roleCell(item, extract.Implements))
	}
	b.WriteString("\n")

	writeViolationSection(&b, "Orphaned Requirements",
		"Requirements without downstream evidence (decision, scenario, or test):",
		r.Violations, validate.OrphanRequirement)
	writeViolationSection(&b, "Missing Upward Traces",
		"Requirements without a traces-to link to a stakeholder requirement:",
		r.Violations, validate.MissingRequiredRole)
	writeViolationSection(&b, "Dangling References",
		"References to artifacts that do not exist:",
		r.Violations, validate.DanglingReference)
	writeViolationSection(&b, "Ambiguous Types",
		"Artifacts whose title prefix and labels disagree:",
		r.Violations, validate.AmbiguousType)

	if r.Gate.Status == gate.StatusPassed {
		b.WriteString("✅ Traceability gate **passed**.\n")
	} else {
		b.WriteString("❌ Traceability gate **failed**. See the sections above.\n")
	}

	return b.String()
}

func writeViolationSection(b *strings.Builder, heading, intro string, vs []validate.Violation, kind validate.Kind) {
	var matched []validate.Violation
	for _, v := range vs {
		if v.Kind == kind {
			matched = append(matched, v)
		}
	}
	if len(matched) == 0 {
		return
	}

	fmt.Fprintf(b, "## %s\n\n%s\n\n", heading, intro)
	b.WriteString("| Artifact | Detail |\n")
	b.WriteString("|----------|--------|\n")
	for _, v := range matched {
		fmt.Fprintf(b, "| #%d | %s |\n", v.ArtifactID, v.Detail)
	}
	b.WriteString("\n")
}

func roleCell(item Item, role extract.Role) string {
	refs := item.LinkDetails[role]
	if len(refs) == 0 {
		return "-"
	}
	return strings.Join(refs, ", ")
}

func truncate(title string) string {
	runes := []rune(title)
	if len(runes) <= titleLimit {
		return title
	}
	return string(runes[:titleLimit-3]) + "..."
}

func stateBadge(state string) string {
	if state == "closed" {
		return "✅"
	}
	return "🔵"
}
