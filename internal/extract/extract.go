// Package extract scans artifact body text for cross-reference tokens.
//
// Any "#N" token is treated as a reference. The tracker's own rendering
// turns these into links, so extraction trusts that infrastructure and does
// no validation beyond the syntactic match; existence of the target is the
// graph builder's concern.
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Role is the semantic link class inferred from the text immediately
// preceding a reference token. JSON values match the link_details keys in
// the emitted report.
type Role string

const (
	Generic    Role = "generic"
	TracesTo   Role = "traces_to"
	DependsOn  Role = "depends_on"
	VerifiedBy Role = "verified_by"
	Implements Role = "implements"
)

// Reference is one extracted cross-mention. The source artifact is implied
// by which body the reference was extracted from.
type Reference struct {
	Target int  `json:"target"`
	Role   Role `json:"role"`
}

var tokenPattern = regexp.MustCompile(`#(\d+)`)

// roleWindow is how many bytes before a token are examined for a role
// label. Large enough for "implemented by: " plus markdown bold markers
// and list bullets.
const roleWindow = 48

// rolePhrases is checked in order; the first phrase found in the window
// wins. Longer phrases come before shorter variants of the same role so
// inference stays stable when both appear.
var rolePhrases = []struct {
	phrase string
	role   Role
}{
	{"traces to", TracesTo},
	{"parent", TracesTo},
	{"depends on", DependsOn},
	{"verified by", VerifiedBy},
	{"verifies", VerifiedBy},
	{"implemented by", Implements},
	{"implements", Implements},
}

// Extract returns every reference found in body, with roles inferred from
// the preceding text window. Self-references are dropped silently: an
// artifact quoting its own number in history is routine, not an error.
// Exact duplicates (same target and role) are collapsed; the same target
// with different roles is retained once per role.
func Extract(selfID int, body string) []Reference {
	if body == "" {
		return nil
	}

	type key struct {
		target int
		role   Role
	}
	seen := make(map[key]bool)

	var refs []Reference
	for _, m := range tokenPattern.FindAllStringSubmatchIndex(body, -1) {
		target, err := strconv.Atoi(body[m[2]:m[3]])
		if err != nil {
			continue
		}
		if target == selfID {
			continue
		}

		role := inferRole(body, m[0])
		k := key{target, role}
		if seen[k] {
			continue
		}
		seen[k] = true
		refs = append(refs, Reference{Target: target, Role: role})
	}
	return refs
}

// inferRole examines the window of text before the token at tokenStart.
// The window never crosses a line break: role labels sit on the same line
// as the token they annotate.
func inferRole(body string, tokenStart int) Role {
	start := tokenStart - roleWindow
	if start < 0 {
		start = 0
	}
	window := strings.ToLower(body[start:tokenStart])
	if i := strings.LastIndexByte(window, '\n'); i >= 0 {
		window = window[i+1:]
	}

	for _, rp := range rolePhrases {
		if strings.Contains(window, rp.phrase) {
			return rp.role
		}
	}
	return Generic
}
