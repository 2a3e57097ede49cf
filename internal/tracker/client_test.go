package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func issueJSON(number int, title string) string {
	return fmt.Sprintf(`{"number": %d, "title": %q, "body": "", "state": "open", "html_url": "https://example.test/%d", "labels": []}`, number, title, number)
}

func testClient(serverURL string, mutate func(*Config)) *Client {
	cfg := Config{
		APIBase:    serverURL,
		PageSize:   2,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg)
}

func TestFetchAll_Pagination(t *testing.T) {
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)

		if got := r.Header.Get("Accept"); got != "application/vnd.github+json" {
			t.Errorf("Accept = %q", got)
		}
		if got := r.Header.Get("X-GitHub-Api-Version"); got != "2022-11-28" {
			t.Errorf("X-GitHub-Api-Version = %q", got)
		}
		if got := r.URL.Query().Get("state"); got != "all" {
			t.Errorf("state = %q", got)
		}
		if got := r.URL.Query().Get("per_page"); got != "2" {
			t.Errorf("per_page = %q", got)
		}

		switch page {
		case "1":
			fmt.Fprintf(w, "[%s, %s]", issueJSON(1, "StR-001"), issueJSON(2, "REQ-F-001"))
		case "2":
			fmt.Fprintf(w, "[%s]", issueJSON(3, "TEST-001"))
		default:
			fmt.Fprint(w, "[]")
		}
	}))
	defer srv.Close()

	got, err := testClient(srv.URL, nil).FetchAll(context.Background(), "acme/widgets")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d artifacts, want 3", len(got))
	}
	for i, want := range []int{1, 2, 3} {
		if got[i].Number != want {
			t.Errorf("artifact[%d].Number = %d, want %d", i, got[i].Number, want)
		}
	}
	// The short second page ends pagination; page 3 is never requested.
	if len(pages) != 2 {
		t.Errorf("requested pages %v, want exactly 2 requests", pages)
	}
}

func TestFetchAll_AuthorizationHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sekrit" {
			t.Errorf("Authorization = %q", got)
		}
		fmt.Fprint(w, "[]")
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, func(c *Config) { c.Token = "sekrit" }).FetchAll(context.Background(), "acme/widgets")
	if err != nil {
		t.Fatal(err)
	}
}

func TestFetchAll_PullRequestsFiltered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[%s, {"number": 9, "title": "a PR", "state": "open", "labels": [], "pull_request": {"url": "https://example.test/pr/9"}}]`,
			issueJSON(1, "StR-001"))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL, nil).FetchAll(context.Background(), "acme/widgets")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Number != 1 {
		t.Errorf("got %v, want only issue #1", got)
	}
}

// Overlapping pages (GitHub repaginates while we walk) must not produce
// duplicate artifacts.
func TestFetchAll_DeduplicatesAcrossPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprintf(w, "[%s, %s]", issueJSON(1, "StR-001"), issueJSON(2, "REQ-F-001"))
		default:
			fmt.Fprintf(w, "[%s]", issueJSON(2, "REQ-F-001"))
		}
	}))
	defer srv.Close()

	got, err := testClient(srv.URL, nil).FetchAll(context.Background(), "acme/widgets")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("got %d artifacts, want 2", len(got))
	}
}

func TestFetchAll_LabelsSorted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"number": 1, "title": "StR-001", "state": "open", "labels": [{"name": "zeta"}, {"name": "alpha"}]}]`)
	}))
	defer srv.Close()

	got, err := testClient(srv.URL, nil).FetchAll(context.Background(), "acme/widgets")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || len(got[0].Labels) != 2 || got[0].Labels[0] != "alpha" {
		t.Errorf("Labels = %v, want sorted", got[0].Labels)
	}
}

func TestFetchAll_UnauthorizedNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, nil).FetchAll(context.Background(), "acme/widgets")
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("err = %v, want ErrAuthentication", err)
	}
	if calls != 1 {
		t.Errorf("server called %d times, want 1 (no retry on bad credentials)", calls)
	}
}

func TestFetchAll_RateLimitRetriedThenSucceeds(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprintf(w, "[%s]", issueJSON(1, "StR-001"))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL, nil).FetchAll(context.Background(), "acme/widgets")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("got %d artifacts, want 1", len(got))
	}
	if calls != 3 {
		t.Errorf("server called %d times, want 3", calls)
	}
}

func TestFetchAll_ForbiddenWithExhaustedQuotaIsRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, func(c *Config) { c.MaxRetries = 1 }).FetchAll(context.Background(), "acme/widgets")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

func TestFetchAll_RetriesExhausted(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, func(c *Config) { c.MaxRetries = 2 }).FetchAll(context.Background(), "acme/widgets")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	// Initial attempt plus two retries.
	if calls != 3 {
		t.Errorf("server called %d times, want 3", calls)
	}
}

func TestFetchAll_ServerErrorIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, func(c *Config) { c.MaxRetries = 1 }).FetchAll(context.Background(), "acme/widgets")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
}

func TestFetchAll_NotFoundNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, nil).FetchAll(context.Background(), "acme/widgets")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
	if calls != 1 {
		t.Errorf("server called %d times, want 1", calls)
	}
}

func TestFetchAll_ConcurrentPagesDeterministic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		switch page {
		case 1:
			fmt.Fprintf(w, "[%s, %s]", issueJSON(1, "StR-001"), issueJSON(2, "REQ-F-001"))
		case 2:
			fmt.Fprintf(w, "[%s, %s]", issueJSON(3, "ADR-001"), issueJSON(4, "QA-SC-001"))
		case 3:
			fmt.Fprintf(w, "[%s]", issueJSON(5, "TEST-001"))
		default:
			fmt.Fprint(w, "[]")
		}
	}))
	defer srv.Close()

	got, err := testClient(srv.URL, func(c *Config) { c.Concurrency = 3 }).FetchAll(context.Background(), "acme/widgets")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d artifacts, want 5", len(got))
	}
	for i := range got {
		if got[i].Number != i+1 {
			t.Errorf("artifact[%d].Number = %d, want ascending order", i, got[i].Number)
		}
	}
}

func TestFetchAll_EmptyRepository(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "[]")
	}))
	defer srv.Close()

	got, err := testClient(srv.URL, nil).FetchAll(context.Background(), "acme/widgets")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{})
	if c.cfg.APIBase != "https://api.github.com" {
		t.Errorf("APIBase = %q", c.cfg.APIBase)
	}
	if c.cfg.State != "all" {
		t.Errorf("State = %q", c.cfg.State)
	}
	if c.cfg.PageSize != 100 {
		t.Errorf("PageSize = %d", c.cfg.PageSize)
	}
	if c.cfg.Concurrency != 1 {
		t.Errorf("Concurrency = %d", c.cfg.Concurrency)
	}
}
