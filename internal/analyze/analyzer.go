package analyze

import (
	"context"
	"fmt"

	"github.com/jirakit/dwell/internal/fetch"
	"github.com/jirakit/dwell/internal/jira"
	"github.com/jirakit/dwell/internal/replay"
)

// Analyzer drives a full analysis run: fetch the matching issues, replay
// each changelog into durations, and aggregate by the grouping field.
// Issues that fail to process are skipped and logged; they never abort the
// batch.
type Analyzer struct {
	Fetcher    *fetch.Fetcher
	Calculator *replay.Calculator
	Log        func(format string, args ...any)
}

// NewAnalyzer wires an Analyzer with silent logging.
func NewAnalyzer(fetcher *fetch.Fetcher, calc *replay.Calculator) *Analyzer {
	return &Analyzer{
		Fetcher:    fetcher,
		Calculator: calc,
		Log:        func(string, ...any) {},
	}
}

// AnalyzeIssue computes the status durations for a single issue key.
func (a *Analyzer) AnalyzeIssue(ctx context.Context, key string) (replay.Result, error) {
	issue, err := a.Fetcher.Client.GetIssue(ctx, key, "changelog")
	if err != nil {
		return replay.Result{}, err
	}
	switch {
	case issue.Changelog == nil:
		a.Log("issue %s: no changelog returned", key)
	case !issue.Changelog.Complete():
		a.Log("issue %s: changelog truncated (%d of %d entries)",
			key, len(issue.Changelog.Histories), issue.Changelog.Total)
	}
	transitions, err := replay.FromChangelog(issue.Changelog)
	if err != nil {
		return replay.Result{}, fmt.Errorf("issue %s: %w", key, err)
	}
	created, _ := jira.ParseTimestamp(issue.Fields.Created)
	return a.Calculator.Durations(transitions, created), nil
}

// Run fetches every issue matching jql and aggregates their durations by
// the custom field fieldID, labeled fieldName in the report. A canceled
// context discards the partial aggregation rather than returning a
// misleading report; a mid-pagination fetch failure, by contrast, analyzes
// whatever was accumulated.
func (a *Analyzer) Run(ctx context.Context, jql, fieldID, fieldName string) (Report, error) {
	a.Log("fetching issues with query: %s", jql)
	fetched := a.Fetcher.FetchAll(ctx, jql, fieldID)
	if fetched.Err != nil {
		return Report{}, fetched.Err
	}
	if fetched.Partial {
		a.Log("pagination stopped early (%v); analyzing %d fetched issues",
			fetched.PageErr, len(fetched.Issues))
	}
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	analyses := make([]IssueAnalysis, 0, len(fetched.Issues))
	for i := range fetched.Issues {
		if (i+1)%100 == 0 {
			a.Log("analyzed %d issues...", i+1)
		}
		analysis, err := a.analyzeOne(&fetched.Issues[i], fieldID)
		if err != nil {
			a.Log("error processing issue %s: %v", fetched.Issues[i].Key, err)
			continue
		}
		analyses = append(analyses, analysis)
	}
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	a.Log("analysis complete for %d issues", len(analyses))
	return Aggregate(fieldName, analyses), nil
}

func (a *Analyzer) analyzeOne(issue *jira.Issue, fieldID string) (IssueAnalysis, error) {
	transitions, err := replay.FromChangelog(issue.Changelog)
	if err != nil {
		return IssueAnalysis{}, err
	}

	// An unparsable creation time degrades to a zero time: an issue with no
	// transitions then yields an empty duration map instead of a bogus one.
	created, _ := jira.ParseTimestamp(issue.Fields.Created)

	result := a.Calculator.Durations(transitions, created)

	currentStatus := ""
	if issue.Fields.Status != nil {
		currentStatus = issue.Fields.Status.Name
	}

	return IssueAnalysis{
		Key:           issue.Key,
		Summary:       issue.Fields.Summary,
		CurrentStatus: currentStatus,
		Category:      issue.Fields.CustomString(fieldID),
		Created:       created,
		Durations:     result.Durations,
		Warnings:      result.Warnings,
	}, nil
}
