// Package jira provides HTTP access to a Jira instance: JQL search with
// pagination, single-issue fetches with changelog expansion, and the
// timestamp parsing Jira's REST API requires.
package jira

import (
	"encoding/json"
	"strings"
)

// Issue represents a Jira issue from the REST API.
type Issue struct {
	ID        string      `json:"id"`
	Key       string      `json:"key"`
	Self      string      `json:"self"`
	Fields    IssueFields `json:"fields"`
	Changelog *Changelog  `json:"changelog,omitempty"`
}

// IssueFields contains the fields of a Jira issue. Custom fields
// (customfield_NNNNN) are captured separately since their identifiers vary
// per deployment.
type IssueFields struct {
	Summary string       `json:"summary"`
	Status  *StatusField `json:"status"`
	Created string       `json:"created"`

	// Custom holds raw customfield_* values keyed by field identifier.
	Custom map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and collects customfield_* entries
// into Custom.
func (f *IssueFields) UnmarshalJSON(data []byte) error {
	type fields IssueFields
	var known fields
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, val := range raw {
		if strings.HasPrefix(key, "customfield_") {
			if known.Custom == nil {
				known.Custom = make(map[string]json.RawMessage)
			}
			known.Custom[key] = val
		}
	}

	*f = IssueFields(known)
	return nil
}

// CustomString extracts a custom field's display value. Jira returns plain
// strings for text fields and option objects ({"value": "High"}) for
// dropdowns; both are handled. Returns "" when the field is absent or null.
func (f *IssueFields) CustomString(fieldID string) string {
	raw, ok := f.Custom[fieldID]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var opt struct {
		Value string `json:"value"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(raw, &opt); err == nil {
		if opt.Value != "" {
			return opt.Value
		}
		if opt.Name != "" {
			return opt.Name
		}
	}
	return ""
}

// StatusField represents a Jira issue status.
type StatusField struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Changelog is the change history attached to an issue when fetched with
// expand=changelog. The copy embedded in search responses may be truncated
// (Total > len(Histories)); a per-issue fetch returns the full log.
type Changelog struct {
	StartAt    int             `json:"startAt"`
	MaxResults int             `json:"maxResults"`
	Total      int             `json:"total"`
	Histories  []ChangeHistory `json:"histories"`
}

// Complete reports whether this changelog carries all of its histories.
func (c *Changelog) Complete() bool {
	return c != nil && len(c.Histories) >= c.Total
}

// ChangeHistory is one changelog entry: a set of field changes made at a
// single point in time.
type ChangeHistory struct {
	ID      string       `json:"id"`
	Created string       `json:"created"`
	Items   []ChangeItem `json:"items"`
}

// ChangeItem is a single field change within a history entry.
type ChangeItem struct {
	Field      string `json:"field"`
	FromString string `json:"fromString"`
	ToString   string `json:"toString"`
}

// SearchResult represents a Jira JQL search response.
type SearchResult struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []Issue `json:"issues"`
}

// Myself is the identity behind the configured credentials.
type Myself struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}
