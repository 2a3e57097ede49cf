// Package tracker fetches requirement artifacts from the issue tracker.
//
// It is the only package that touches the network. Responses are mapped into
// the strongly typed Artifact record at this boundary; nothing downstream
// ever inspects raw API payloads.
package tracker

// Artifact is one tracked unit of work from the issue tracker.
//
// Number is assigned by the tracker, is immutable, and is the only
// admissible join key between artifacts. Titles are not unique.
type Artifact struct {
	Number int      `json:"number"`
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	State  string   `json:"state"` // "open" or "closed"
	URL    string   `json:"url"`
	Labels []string `json:"labels"`
}
