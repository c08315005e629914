// Package fetch bulk-exports Jira issues matching a JQL filter, with their
// complete change histories. The export is best-effort: a failure partway
// through pagination yields the issues accumulated so far rather than an
// error.
package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/jirakit/dwell/internal/jira"
)

// DefaultPageSize is how many issues each search page requests.
const DefaultPageSize = 100

// Client is the slice of the Jira client the fetcher needs.
type Client interface {
	Count(ctx context.Context, jql string) (int, error)
	Search(ctx context.Context, jql string, opts jira.SearchOptions) (*jira.SearchResult, error)
	GetIssue(ctx context.Context, key string, expand ...string) (*jira.Issue, error)
}

// Result is the outcome of a bulk export. Failure modes are explicit fields
// rather than a returned error so partial data stays usable:
//
//   - Err set, Issues empty: the export aborted — the count query failed,
//     or the credentials were rejected at any point.
//   - Partial true: pagination stopped early on a transient failure;
//     Issues holds every complete page fetched before it, and PageErr says
//     why it stopped.
type Result struct {
	Issues  []jira.Issue
	Total   int
	Partial bool
	Err     error
	PageErr error
}

// Fetcher pages through a JQL search and re-fetches each issue with full
// changelog expansion. Sequential by design: one page, then one issue at a
// time.
type Fetcher struct {
	Client   Client
	PageSize int
	Log      func(format string, args ...any)
}

// NewFetcher returns a Fetcher with the default page size and silent
// logging.
func NewFetcher(client Client) *Fetcher {
	return &Fetcher{
		Client:   client,
		PageSize: DefaultPageSize,
		Log:      func(string, ...any) {},
	}
}

// FetchAll retrieves every issue matching jql, requesting the minimal field
// set plus the given custom grouping field. Each page's records are
// individually re-fetched with changelog expansion: the changelog embedded
// in search responses is a summarized page that may be incomplete.
func (f *Fetcher) FetchAll(ctx context.Context, jql, customFieldID string) Result {
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	total, err := f.Client.Count(ctx, jql)
	if err != nil {
		f.Log("error getting total count: %s", diagnostic(err))
		return Result{Err: fmt.Errorf("count query: %w", err)}
	}
	f.Log("found %d issues in total", total)

	result := Result{Total: total}
	fields := []string{"summary", "status", customFieldID, "created"}
	startAt := 0

	for len(result.Issues) < total {
		page, err := f.Client.Search(ctx, jql, jira.SearchOptions{
			StartAt:    startAt,
			MaxResults: pageSize,
			Fields:     fields,
			Expand:     []string{"changelog"},
		})
		if err != nil {
			f.Log("error fetching issues: %s", diagnostic(err))
			// Rejected credentials abort the whole run; partial results are
			// only for transient page failures.
			if jira.IsAuthError(err) {
				return Result{Err: fmt.Errorf("page at offset %d: %w", startAt, err)}
			}
			result.Partial = true
			result.PageErr = fmt.Errorf("page at offset %d: %w", startAt, err)
			return result
		}
		if len(page.Issues) == 0 {
			// The server disagrees with its own count; stop rather than loop.
			break
		}

		for i := range page.Issues {
			key := page.Issues[i].Key
			full, err := f.Client.GetIssue(ctx, key, "changelog")
			if err != nil {
				f.Log("error fetching issue %s: %s", key, diagnostic(err))
				if jira.IsAuthError(err) {
					return Result{Err: fmt.Errorf("issue %s: %w", key, err)}
				}
				continue
			}
			switch {
			case full.Changelog == nil:
				f.Log("issue %s: no changelog returned", key)
			case !full.Changelog.Complete():
				f.Log("issue %s: changelog truncated (%d of %d entries)",
					key, len(full.Changelog.Histories), full.Changelog.Total)
			}
			result.Issues = append(result.Issues, *full)
		}

		f.Log("fetched %d of %d issues...", len(result.Issues), total)
		startAt += pageSize
	}

	return result
}

// diagnostic formats an error for logging, surfacing the HTTP status and
// response body when the failure came from the Jira API.
func diagnostic(err error) string {
	var apiErr *jira.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%v (status %d, body %q)", err, apiErr.StatusCode, apiErr.Body)
	}
	var authErr *jira.AuthError
	if errors.As(err, &authErr) {
		return fmt.Sprintf("%v (status %d)", err, authErr.StatusCode)
	}
	return err.Error()
}
