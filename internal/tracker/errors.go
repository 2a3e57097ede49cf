package tracker

import "errors"

// Failure classes for a fetch. All of them abort the run: an incomplete
// artifact set would manufacture false dangling references downstream, so
// the fetcher fails closed instead of returning partial data.
var (
	// ErrAuthentication indicates the token was rejected (401/403).
	ErrAuthentication = errors.New("tracker: authentication failed")

	// ErrRateLimited indicates the API rate limit was still exceeded after
	// all retry attempts.
	ErrRateLimited = errors.New("tracker: rate limit exceeded")

	// ErrTransport indicates a network or server-side failure that did not
	// resolve within the retry budget.
	ErrTransport = errors.New("tracker: transport error")
)
