// Package classify resolves each artifact's requirement category from its
// title prefix and labels.
package classify

import "strings"

// Category is the requirement type of an artifact. Values match the title
// prefixes used across the issue templates so that classified output is
// directly readable against the tracker.
type Category string

const (
	StakeholderRequirement   Category = "StR"
	FunctionalRequirement    Category = "REQ-F"
	NonFunctionalRequirement Category = "REQ-NF"
	ArchitectureDecision     Category = "ADR"
	ArchitectureComponent    Category = "ARC-C"
	QualityScenario          Category = "QA-SC"
	Test                     Category = "TEST"
	Unclassified             Category = "UNKNOWN"
)

// IsRequirement reports whether the category is a system requirement
// (functional or non-functional).
func (c Category) IsRequirement() bool {
	return c == FunctionalRequirement || c == NonFunctionalRequirement
}

// titlePrefixes maps known title tokens to categories, ordered longest
// first so that "REQ-NF-" wins over "REQ-F-" style overlaps. Matching is
// case-sensitive: the templates emit these tokens verbatim.
var titlePrefixes = []struct {
	prefix   string
	category Category
}{
	{"REQ-NF-", NonFunctionalRequirement},
	{"ARC-C-", ArchitectureComponent},
	{"QA-SC-", QualityScenario},
	{"REQ-F-", FunctionalRequirement},
	{"TEST-", Test},
	{"ADR-", ArchitectureDecision},
	{"StR-", StakeholderRequirement},
}

// labelStrategy is one historical labelling convention. Strategies are
// tried in a fixed order; the first hit wins.
type labelStrategy struct {
	name    string
	mapping map[string]Category
}

// Two conventions coexist in real repositories: the colon-delimited
// hierarchical scheme currently emitted by the issue templates, and the
// flat hyphenated scheme from earlier template versions.
var labelStrategies = []labelStrategy{
	{
		name: "colon-delimited",
		mapping: map[string]Category{
			"type:stakeholder-requirement":        StakeholderRequirement,
			"type:requirement:functional":         FunctionalRequirement,
			"type:requirement:non-functional":     NonFunctionalRequirement,
			"type:architecture:decision":          ArchitectureDecision,
			"type:architecture:component":         ArchitectureComponent,
			"type:architecture:quality-scenario":  QualityScenario,
			"type:test-case":                      Test,
			"type:test-plan":                      Test,
		},
	},
	{
		name: "hyphenated",
		mapping: map[string]Category{
			"stakeholder-requirement": StakeholderRequirement,
			"functional-requirement":  FunctionalRequirement,
			"non-functional":          NonFunctionalRequirement,
			"architecture-decision":   ArchitectureDecision,
			"architecture-component":  ArchitectureComponent,
			"quality-scenario":        QualityScenario,
			"test-case":               Test,
			"test-plan":               Test,
		},
	},
}

// Result carries the resolved category plus any title/label disagreement.
type Result struct {
	Category Category

	// Ambiguous is set when title and labels both classified the artifact
	// but disagreed. Labels win (they are curated deliberately, titles are
	// free text); the disagreement is surfaced for visibility.
	Ambiguous bool
	Detail    string
}

// Classify determines the category for an artifact. Title prefix is
// attempted first, then the label strategies; when both match and disagree,
// the label category is returned and the result is flagged ambiguous.
// Artifacts matching neither source come back Unclassified.
func Classify(title string, labels []string) Result {
	fromTitle := fromTitlePrefix(title)
	fromLabels := fromLabelSet(labels)

	switch {
	case fromTitle != Unclassified && fromLabels != Unclassified && fromTitle != fromLabels:
		return Result{
			Category:  fromLabels,
			Ambiguous: true,
			Detail: "title prefix says " + string(fromTitle) +
				" but labels say " + string(fromLabels),
		}
	case fromTitle != Unclassified:
		return Result{Category: fromTitle}
	case fromLabels != Unclassified:
		return Result{Category: fromLabels}
	default:
		return Result{Category: Unclassified}
	}
}

func fromTitlePrefix(title string) Category {
	for _, tp := range titlePrefixes {
		if strings.HasPrefix(title, tp.prefix) {
			return tp.category
		}
	}
	return Unclassified
}

func fromLabelSet(labels []string) Category {
	for _, strat := range labelStrategies {
		for _, l := range labels {
			if cat, ok := strat.mapping[l]; ok {
				return cat
			}
		}
	}
	return Unclassified
}
