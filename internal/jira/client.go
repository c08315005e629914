package jira

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// defaultMaxRetries bounds how many times a transient request failure is
// retried before giving up. Auth failures and client errors never retry.
const defaultMaxRetries = 3

// Client provides HTTP access to a Jira instance.
type Client struct {
	URL        string
	Username   string
	APIToken   string
	HTTPClient *http.Client
	MaxRetries uint64
}

// NewClient creates a new Jira client for the given server URL. Cloud
// instances authenticate with email + API token (basic auth); server
// instances with a bearer token.
func NewClient(url, username, apiToken string) *Client {
	return &Client{
		URL:      strings.TrimSuffix(url, "/"),
		Username: username,
		APIToken: apiToken,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		MaxRetries: defaultMaxRetries,
	}
}

// Myself fetches the identity behind the configured credentials. A 401/403
// here means the credentials are bad; the returned error is an *AuthError.
func (c *Client) Myself(ctx context.Context) (*Myself, error) {
	apiURL := fmt.Sprintf("%s/rest/api/3/myself", c.URL)

	body, err := c.doRequest(ctx, apiURL)
	if err != nil {
		return nil, fmt.Errorf("fetch myself: %w", err)
	}

	var me Myself
	if err := json.Unmarshal(body, &me); err != nil {
		return nil, fmt.Errorf("parse myself response: %w", err)
	}
	return &me, nil
}

// SearchOptions control a single JQL search page.
type SearchOptions struct {
	StartAt    int
	MaxResults int
	Fields     []string
	Expand     []string
}

// Search runs one page of a JQL query. It does not paginate; callers drive
// pagination from the Total in the result.
func (c *Client) Search(ctx context.Context, jql string, opts SearchOptions) (*SearchResult, error) {
	params := url.Values{
		"jql":        {jql},
		"startAt":    {strconv.Itoa(opts.StartAt)},
		"maxResults": {strconv.Itoa(opts.MaxResults)},
	}
	if len(opts.Fields) > 0 {
		params.Set("fields", strings.Join(opts.Fields, ","))
	}
	if len(opts.Expand) > 0 {
		params.Set("expand", strings.Join(opts.Expand, ","))
	}

	apiURL := fmt.Sprintf("%s/rest/api/3/search?%s", c.URL, params.Encode())

	body, err := c.doRequest(ctx, apiURL)
	if err != nil {
		return nil, fmt.Errorf("search issues: %w", err)
	}

	var result SearchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}
	return &result, nil
}

// Count returns the total number of issues matching a JQL query without
// fetching any of them (maxResults=0 returns only the count).
func (c *Client) Count(ctx context.Context, jql string) (int, error) {
	result, err := c.Search(ctx, jql, SearchOptions{
		MaxResults: 0,
		Fields:     []string{"summary"},
	})
	if err != nil {
		return 0, err
	}
	return result.Total, nil
}

// GetIssue fetches a single Jira issue by key (e.g., "PROJ-123"). Pass
// "changelog" in expand to get the complete change history; the changelog
// embedded in search responses may be truncated.
func (c *Client) GetIssue(ctx context.Context, key string, expand ...string) (*Issue, error) {
	params := url.Values{}
	if len(expand) > 0 {
		params.Set("expand", strings.Join(expand, ","))
	}

	apiURL := fmt.Sprintf("%s/rest/api/3/issue/%s", c.URL, url.PathEscape(key))
	if encoded := params.Encode(); encoded != "" {
		apiURL += "?" + encoded
	}

	body, err := c.doRequest(ctx, apiURL)
	if err != nil {
		return nil, fmt.Errorf("get issue %s: %w", key, err)
	}

	var issue Issue
	if err := json.Unmarshal(body, &issue); err != nil {
		return nil, fmt.Errorf("parse issue response: %w", err)
	}
	return &issue, nil
}

// doRequest executes an authenticated GET and returns the response body.
// Transient failures (transport errors, 429, 5xx) retry with exponential
// backoff up to MaxRetries; everything else fails immediately.
func (c *Client) doRequest(ctx context.Context, apiURL string) ([]byte, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("jira URL not configured")
	}
	if c.APIToken == "" {
		return nil, fmt.Errorf("jira API token not configured")
	}

	attempt := func() ([]byte, error) {
		body, err := c.doOnce(ctx, apiURL)
		if err != nil && !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return body, err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.MaxRetries), ctx)
	return backoff.RetryWithData(attempt, policy)
}

func (c *Client) doOnce(ctx context.Context, apiURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.setAuth(req)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "dwell/1.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &AuthError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// setAuth sets the appropriate authentication header on the request.
func (c *Client) setAuth(req *http.Request) {
	isCloud := strings.Contains(c.URL, "atlassian.net")
	if (isCloud || c.Username != "") && c.Username != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.APIToken))
		req.Header.Set("Authorization", "Basic "+auth)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.APIToken)
	}
}
