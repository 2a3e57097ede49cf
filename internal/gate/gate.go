// Package gate decides pass/fail for a run from the accumulated violations.
//
// The split between blocking and advisory findings is policy, not a
// constant: each violation kind carries a configurable severity so adopting
// teams can tighten or loosen the gate.
package gate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zarfld/reqtrace/internal/validate"
)

// Status is the overall gate outcome.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
)

// Severity indicates how a violation kind affects the outcome.
type Severity string

const (
	// SeverityCritical and SeverityRequired both fail the run; critical is
	// kept distinct for reporting emphasis.
	SeverityCritical Severity = "critical"
	SeverityRequired Severity = "required"

	// SeverityAdvisory is reported but never fails the run.
	SeverityAdvisory Severity = "advisory"

	// SeverityOff suppresses the kind from gating entirely (it still
	// appears in the report).
	SeverityOff Severity = "off"
)

// Policy maps violation kinds to severities.
type Policy map[validate.Kind]Severity

// DefaultPolicy returns the stock gate: broken structure fails the run,
// while orphans and classification ambiguity only warn. Orphan requirements
// are common early in a project's life and should not block unrelated work.
func DefaultPolicy() Policy {
	return Policy{
		validate.DanglingReference:   SeverityRequired,
		validate.MissingRequiredRole: SeverityRequired,
		validate.OrphanRequirement:   SeverityAdvisory,
		validate.AmbiguousType:       SeverityAdvisory,
	}
}

// ParseSeverity converts a config string to a Severity. Unknown strings
// fall back to required, failing closed rather than open.
func ParseSeverity(s string) (Severity, bool) {
	switch Severity(strings.ToLower(s)) {
	case SeverityCritical:
		return SeverityCritical, true
	case SeverityRequired:
		return SeverityRequired, true
	case SeverityAdvisory:
		return SeverityAdvisory, true
	case SeverityOff:
		return SeverityOff, true
	default:
		return SeverityRequired, false
	}
}

// Result is the gate evaluation outcome.
type Result struct {
	Status       Status                `json:"status"`
	Counts       map[validate.Kind]int `json:"counts"`
	FailingKinds []validate.Kind       `json:"failing_kinds,omitempty"`
	Summary      string                `json:"summary"`
}

// Evaluate applies the policy to the violation list. The run fails iff at
// least one violation of a required or critical kind exists.
func Evaluate(policy Policy, violations []validate.Violation) Result {
	if policy == nil {
		policy = DefaultPolicy()
	}

	r := Result{
		Status: StatusPassed,
		Counts: make(map[validate.Kind]int),
	}

	failing := make(map[validate.Kind]bool)
	for _, v := range violations {
		r.Counts[v.Kind]++
		switch policy[v.Kind] {
		case SeverityCritical, SeverityRequired:
			failing[v.Kind] = true
		}
	}

	for k := range failing {
		r.FailingKinds = append(r.FailingKinds, k)
	}
	sort.Slice(r.FailingKinds, func(i, j int) bool { return r.FailingKinds[i] < r.FailingKinds[j] })

	if len(r.FailingKinds) > 0 {
		r.Status = StatusFailed
	}
	r.Summary = summarize(r, len(violations))
	return r
}

func summarize(r Result, total int) string {
	if total == 0 {
		return "gate passed: no violations"
	}
	if r.Status == StatusPassed {
		return fmt.Sprintf("gate passed: %d advisory finding(s)", total)
	}
	kinds := make([]string, 0, len(r.FailingKinds))
	for _, k := range r.FailingKinds {
		kinds = append(kinds, fmt.Sprintf("%s=%d", k, r.Counts[k]))
	}
	return fmt.Sprintf("gate failed: %s (%d finding(s) total)", strings.Join(kinds, ", "), total)
}
