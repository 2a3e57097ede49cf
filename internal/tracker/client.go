package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultAPIBase  = "https://api.github.com"
	defaultPageSize = 100

	acceptHeader     = "application/vnd.github+json"
	apiVersionHeader = "2022-11-28"
)

// Config configures the tracker client. The client is immutable once built;
// it is threaded through the fetcher only and no other component holds a
// reference to network resources.
type Config struct {
	Token      string
	APIBase    string        // default: https://api.github.com
	State      string        // issue state filter: open, closed, or all (default all)
	PageSize   int           // results per page, 1..100 (default 100)
	MaxRetries int           // retry attempts for rate-limit/server errors (default 5)
	RetryDelay time.Duration // initial backoff delay (default 1s)
	MaxDelay   time.Duration // backoff cap (default 30s)

	// Concurrency is the number of pages fetched in parallel per wave.
	// Pages are merged by artifact number before handoff, so the result is
	// reproducible regardless of arrival order. Default 1 (sequential).
	Concurrency int

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client reads artifacts from the GitHub issues API.
type Client struct {
	cfg  Config
	http *http.Client
}

// New builds a client, filling unset config fields with defaults.
func New(cfg Config) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.State == "" {
		cfg.State = "all"
	}
	if cfg.PageSize <= 0 || cfg.PageSize > 100 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	h := cfg.HTTPClient
	if h == nil {
		h = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{cfg: cfg, http: h}
}

// issuePayload is the subset of the GitHub issue object the engine consumes.
// PullRequest is only probed for presence: the issues endpoint returns pull
// requests too, and those are not artifacts.
type issuePayload struct {
	Number      int             `json:"number"`
	Title       string          `json:"title"`
	Body        string          `json:"body"`
	State       string          `json:"state"`
	HTMLURL     string          `json:"html_url"`
	Labels      []labelPayload  `json:"labels"`
	PullRequest json.RawMessage `json:"pull_request"`
}

type labelPayload struct {
	Name string `json:"name"`
}

// FetchAll retrieves every issue in the repository matching the configured
// state filter, exhausting pagination and deduplicating by artifact number.
// The returned slice is sorted by ascending number.
//
// On any failure the whole fetch fails; no partial set is returned.
func (c *Client) FetchAll(ctx context.Context, repo string) ([]Artifact, error) {
	byNumber := make(map[int]Artifact)
	var mu sync.Mutex

	page := 1
	for {
		last := false

		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < c.cfg.Concurrency; i++ {
			p := page + i
			g.Go(func() error {
				issues, err := c.fetchPage(gctx, repo, p)
				if err != nil {
					return err
				}
				mu.Lock()
				defer mu.Unlock()
				if len(issues) < c.cfg.PageSize {
					last = true
				}
				for _, is := range issues {
					if is.PullRequest != nil {
						continue
					}
					if _, seen := byNumber[is.Number]; seen {
						continue
					}
					byNumber[is.Number] = toArtifact(is)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if last {
			break
		}
		page += c.cfg.Concurrency
	}

	numbers := make([]int, 0, len(byNumber))
	for n := range byNumber {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	artifacts := make([]Artifact, 0, len(numbers))
	for _, n := range numbers {
		artifacts = append(artifacts, byNumber[n])
	}
	return artifacts, nil
}

func toArtifact(is issuePayload) Artifact {
	labels := make([]string, 0, len(is.Labels))
	for _, l := range is.Labels {
		labels = append(labels, l.Name)
	}
	sort.Strings(labels)
	return Artifact{
		Number: is.Number,
		Title:  is.Title,
		Body:   is.Body,
		State:  is.State,
		URL:    is.HTMLURL,
		Labels: labels,
	}
}

// fetchPage retrieves one page, retrying rate-limit and server errors with
// exponential backoff. Rejected credentials and client errors are never
// retried.
func (c *Client) fetchPage(ctx context.Context, repo string, page int) ([]issuePayload, error) {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}

		issues, err := c.doPage(ctx, repo, page)
		if err == nil {
			return issues, nil
		}
		lastErr = err

		if !retryable(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("page %d: max retries (%d) exceeded: %w", page, c.cfg.MaxRetries, lastErr)
}

func (c *Client) doPage(ctx context.Context, repo string, page int) ([]issuePayload, error) {
	u := fmt.Sprintf("%s/repos/%s/issues?%s", c.cfg.APIBase, repo, url.Values{
		"state":    {c.cfg.State},
		"per_page": {fmt.Sprintf("%d", c.cfg.PageSize)},
		"page":     {fmt.Sprintf("%d", page)},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("X-GitHub-Api-Version", apiVersionHeader)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &fetchError{retry: true, err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// Fall through to decode.
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &fetchError{retry: true, err: fmt.Errorf("%w: HTTP 429 on page %d", ErrRateLimited, page)}
	case resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		return nil, &fetchError{retry: true, err: fmt.Errorf("%w: HTTP 403 with exhausted quota on page %d", ErrRateLimited, page)}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: HTTP %d for %s", ErrAuthentication, resp.StatusCode, repo)
	case resp.StatusCode >= 500:
		return nil, &fetchError{retry: true, err: fmt.Errorf("%w: HTTP %d on page %d", ErrTransport, resp.StatusCode, page)}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: HTTP %d on page %d: %s", ErrTransport, resp.StatusCode, page, body)
	}

	var issues []issuePayload
	if err := json.NewDecoder(resp.Body).Decode(&issues); err != nil {
		return nil, fmt.Errorf("%w: decode page %d: %v", ErrTransport, page, err)
	}
	return issues, nil
}

// backoff returns the delay for the given attempt using exponential backoff.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.cfg.RetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay > c.cfg.MaxDelay {
			return c.cfg.MaxDelay
		}
	}
	return delay
}

// fetchError marks an error as retryable while preserving the failure class
// for errors.Is checks.
type fetchError struct {
	retry bool
	err   error
}

func (e *fetchError) Error() string { return e.err.Error() }
func (e *fetchError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var fe *fetchError
	if errors.As(err, &fe) {
		return fe.retry
	}
	return false
}
