package fetch

import (
	"context"
	"fmt"
	"testing"

	"github.com/jirakit/dwell/internal/jira"
)

// fakeClient serves canned pages and full issues, with injectable failures.
type fakeClient struct {
	total      int
	countErr   error
	pages      map[int][]jira.Issue // keyed by startAt
	pageErrs   map[int]error
	full       map[string]*jira.Issue
	getErrs    map[string]error
	searchHits int
	getHits    int
}

func (f *fakeClient) Count(ctx context.Context, jql string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.total, nil
}

func (f *fakeClient) Search(ctx context.Context, jql string, opts jira.SearchOptions) (*jira.SearchResult, error) {
	f.searchHits++
	if err := f.pageErrs[opts.StartAt]; err != nil {
		return nil, err
	}
	return &jira.SearchResult{
		StartAt: opts.StartAt,
		Total:   f.total,
		Issues:  f.pages[opts.StartAt],
	}, nil
}

func (f *fakeClient) GetIssue(ctx context.Context, key string, expand ...string) (*jira.Issue, error) {
	f.getHits++
	if err := f.getErrs[key]; err != nil {
		return nil, err
	}
	issue, ok := f.full[key]
	if !ok {
		return nil, fmt.Errorf("unknown issue %s", key)
	}
	return issue, nil
}

func stub(key string) jira.Issue {
	return jira.Issue{Key: key}
}

func fullIssue(key string) *jira.Issue {
	return &jira.Issue{
		Key:       key,
		Changelog: &jira.Changelog{Total: 0},
	}
}

func newFake(keysByPage map[int][]string, total int) *fakeClient {
	f := &fakeClient{
		total:    total,
		pages:    make(map[int][]jira.Issue),
		pageErrs: make(map[int]error),
		full:     make(map[string]*jira.Issue),
		getErrs:  make(map[string]error),
	}
	for startAt, keys := range keysByPage {
		for _, key := range keys {
			f.pages[startAt] = append(f.pages[startAt], stub(key))
			f.full[key] = fullIssue(key)
		}
	}
	return f
}

func keysOf(issues []jira.Issue) []string {
	keys := make([]string, len(issues))
	for i, issue := range issues {
		keys[i] = issue.Key
	}
	return keys
}

func TestFetchAllPaginatesAndRefetches(t *testing.T) {
	client := newFake(map[int][]string{
		0: {"CN-1", "CN-2"},
		2: {"CN-3"},
	}, 3)

	fetcher := NewFetcher(client)
	fetcher.PageSize = 2

	result := fetcher.FetchAll(context.Background(), "project = CN", "customfield_10476")

	if result.Err != nil || result.Partial {
		t.Fatalf("unexpected failure: %+v", result)
	}
	if got := keysOf(result.Issues); len(got) != 3 || got[0] != "CN-1" || got[2] != "CN-3" {
		t.Errorf("issues = %v", got)
	}
	// Each record re-fetched individually for its full changelog.
	if client.getHits != 3 {
		t.Errorf("GetIssue called %d times, want 3", client.getHits)
	}
	for _, issue := range result.Issues {
		if issue.Changelog == nil {
			t.Errorf("issue %s missing changelog", issue.Key)
		}
	}
}

func TestFetchAllCountFailureAbortsEmpty(t *testing.T) {
	client := newFake(nil, 0)
	client.countErr = &jira.APIError{StatusCode: 500, Body: "boom"}

	var logged []string
	fetcher := NewFetcher(client)
	fetcher.Log = func(format string, args ...any) {
		logged = append(logged, fmt.Sprintf(format, args...))
	}

	result := fetcher.FetchAll(context.Background(), "project = CN", "customfield_10476")

	if result.Err == nil {
		t.Error("Err not set after count failure")
	}
	if len(result.Issues) != 0 {
		t.Errorf("issues = %v, want none", keysOf(result.Issues))
	}
	if client.searchHits != 0 {
		t.Errorf("searchHits = %d, want 0 (no pages after count failure)", client.searchHits)
	}
	if len(logged) == 0 {
		t.Error("count failure not logged")
	}
}

func TestFetchAllPageFailureReturnsPartial(t *testing.T) {
	// Page 2 of 3 fails: the result is exactly page 1, flagged partial, and
	// no error escapes as a panic or return-path error.
	client := newFake(map[int][]string{
		0: {"CN-1", "CN-2"},
		4: {"CN-5", "CN-6"},
	}, 6)
	client.pageErrs[2] = &jira.APIError{StatusCode: 503, Body: "unavailable"}

	fetcher := NewFetcher(client)
	fetcher.PageSize = 2

	result := fetcher.FetchAll(context.Background(), "project = CN", "customfield_10476")

	if result.Err != nil {
		t.Errorf("Err = %v, want nil (partial results are not a fetch error)", result.Err)
	}
	if !result.Partial || result.PageErr == nil {
		t.Errorf("Partial = %v, PageErr = %v", result.Partial, result.PageErr)
	}
	if got := keysOf(result.Issues); len(got) != 2 || got[0] != "CN-1" || got[1] != "CN-2" {
		t.Errorf("issues = %v, want exactly page 1", got)
	}
}

func TestFetchAllAuthFailureOnPageAborts(t *testing.T) {
	// Credentials rejected mid-pagination must abort the whole export, not
	// degrade to a partial success built on pages fetched before the
	// rejection.
	client := newFake(map[int][]string{
		0: {"CN-1", "CN-2"},
		4: {"CN-5", "CN-6"},
	}, 6)
	client.pageErrs[2] = &jira.AuthError{StatusCode: 401, Body: "token revoked"}

	fetcher := NewFetcher(client)
	fetcher.PageSize = 2

	result := fetcher.FetchAll(context.Background(), "project = CN", "customfield_10476")

	if result.Err == nil || !jira.IsAuthError(result.Err) {
		t.Fatalf("Err = %v, want auth error", result.Err)
	}
	if result.Partial {
		t.Error("Partial = true, want fatal abort")
	}
	if len(result.Issues) != 0 {
		t.Errorf("issues = %v, want none", keysOf(result.Issues))
	}
}

func TestFetchAllAuthFailureOnRefetchAborts(t *testing.T) {
	client := newFake(map[int][]string{0: {"CN-1", "CN-2", "CN-3"}}, 3)
	client.getErrs["CN-2"] = &jira.AuthError{StatusCode: 401, Body: "token revoked"}

	fetcher := NewFetcher(client)
	result := fetcher.FetchAll(context.Background(), "project = CN", "customfield_10476")

	if result.Err == nil || !jira.IsAuthError(result.Err) {
		t.Fatalf("Err = %v, want auth error", result.Err)
	}
	if len(result.Issues) != 0 {
		t.Errorf("issues = %v, want none (no skip-and-continue on dead credentials)", keysOf(result.Issues))
	}
	if client.getHits != 2 {
		t.Errorf("GetIssue called %d times, want 2 (stop at the rejection)", client.getHits)
	}
}

func TestFetchAllSkipsFailedRefetch(t *testing.T) {
	client := newFake(map[int][]string{0: {"CN-1", "CN-2", "CN-3"}}, 3)
	client.getErrs["CN-2"] = &jira.APIError{StatusCode: 404, Body: "gone"}

	fetcher := NewFetcher(client)
	result := fetcher.FetchAll(context.Background(), "project = CN", "customfield_10476")

	if got := keysOf(result.Issues); len(got) != 2 || got[0] != "CN-1" || got[1] != "CN-3" {
		t.Errorf("issues = %v, want CN-1 and CN-3", got)
	}
}

func TestFetchAllStopsWhenServerUnderdelivers(t *testing.T) {
	// Count says 5 but the server only ever returns 2; the fetcher must not
	// loop forever.
	client := newFake(map[int][]string{0: {"CN-1", "CN-2"}}, 5)

	fetcher := NewFetcher(client)
	fetcher.PageSize = 2

	result := fetcher.FetchAll(context.Background(), "project = CN", "customfield_10476")
	if len(result.Issues) != 2 {
		t.Errorf("issues = %v", keysOf(result.Issues))
	}
}
