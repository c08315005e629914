// Package analyze aggregates per-issue status durations into a
// time-to-market report: per-category buckets, per-status totals and
// averages, and grand totals.
package analyze

import (
	"sort"
	"time"
)

// NotSetCategory is the bucket for issues whose grouping field is empty.
const NotSetCategory = "Not Set"

// IssueAnalysis is one issue's contribution to a report: its duration
// allocation plus the fields the report needs. Category is resolved once at
// ingestion; "" means the grouping field was absent on the issue.
type IssueAnalysis struct {
	Key           string             `json:"key"`
	Summary       string             `json:"summary"`
	CurrentStatus string             `json:"current_status"`
	Category      string             `json:"category,omitempty"`
	Created       time.Time          `json:"created"`
	Durations     map[string]float64 `json:"durations"`
	Warnings      []string           `json:"warnings,omitempty"`
}

// TotalHours is the issue's total lifetime across all statuses.
func (a IssueAnalysis) TotalHours() float64 {
	var total float64
	for _, hours := range a.Durations {
		total += hours
	}
	return total
}

// StatusTotal accumulates one status across all issues. IssueCount is the
// number of issues that spent any time in the status, so Average is a
// per-issue mean rather than a per-occurrence one.
type StatusTotal struct {
	Hours      float64 `json:"hours"`
	IssueCount int     `json:"issue_count"`
}

// Average returns mean hours per issue that touched this status.
func (s StatusTotal) Average() float64 {
	if s.IssueCount == 0 {
		return 0
	}
	return s.Hours / float64(s.IssueCount)
}

// Bucket groups the issues sharing one grouping-field value. IssueKeys keep
// insertion order so report output is stable run to run.
type Bucket struct {
	Category     string             `json:"category"`
	TotalHours   float64            `json:"total_hours"`
	IssueCount   int                `json:"issue_count"`
	IssueKeys    []string           `json:"issue_keys"`
	StatusTotals map[string]float64 `json:"status_totals"`
}

// TimeToMarket is the bucket's mean per-issue lifetime in hours.
func (b Bucket) TimeToMarket() float64 {
	if b.IssueCount == 0 {
		return 0
	}
	return b.TotalHours / float64(b.IssueCount)
}

// Report is the full aggregation result. Buckets are sorted descending by
// total hours (ties broken by category name) for presentation.
type Report struct {
	GroupField      string                 `json:"group_field"`
	Buckets         []Bucket               `json:"buckets"`
	StatusTotals    map[string]StatusTotal `json:"status_totals"`
	GrandTotalHours float64                `json:"grand_total_hours"`
	IssueCount      int                    `json:"issue_count"`

	byKey map[string]IssueAnalysis
}

// GrandAverage is the mean time to market across every analyzed issue.
func (r Report) GrandAverage() float64 {
	if r.IssueCount == 0 {
		return 0
	}
	return r.GrandTotalHours / float64(r.IssueCount)
}

// Issue looks up an analyzed issue by key for rendering bucket detail.
func (r Report) Issue(key string) (IssueAnalysis, bool) {
	a, ok := r.byKey[key]
	return a, ok
}

// Aggregate folds per-issue analyses into a Report. Every issue lands in
// exactly one bucket: its category value, or NotSetCategory when the
// grouping field was empty. Statuses outside any reference list still count
// toward every total; classifying them is the renderer's concern.
func Aggregate(groupField string, analyses []IssueAnalysis) Report {
	report := Report{
		GroupField:   groupField,
		StatusTotals: make(map[string]StatusTotal),
		byKey:        make(map[string]IssueAnalysis, len(analyses)),
	}

	buckets := make(map[string]*Bucket)
	var order []string

	for _, a := range analyses {
		category := a.Category
		if category == "" {
			category = NotSetCategory
		}

		bucket, ok := buckets[category]
		if !ok {
			bucket = &Bucket{
				Category:     category,
				StatusTotals: make(map[string]float64),
			}
			buckets[category] = bucket
			order = append(order, category)
		}

		var issueTotal float64
		for status, hours := range a.Durations {
			total := report.StatusTotals[status]
			total.Hours += hours
			total.IssueCount++
			report.StatusTotals[status] = total

			bucket.StatusTotals[status] += hours
			issueTotal += hours
		}

		bucket.TotalHours += issueTotal
		bucket.IssueCount++
		bucket.IssueKeys = append(bucket.IssueKeys, a.Key)
		report.GrandTotalHours += issueTotal
		report.IssueCount++
		report.byKey[a.Key] = a
	}

	report.Buckets = make([]Bucket, 0, len(order))
	for _, category := range order {
		report.Buckets = append(report.Buckets, *buckets[category])
	}
	sort.SliceStable(report.Buckets, func(i, j int) bool {
		if report.Buckets[i].TotalHours != report.Buckets[j].TotalHours {
			return report.Buckets[i].TotalHours > report.Buckets[j].TotalHours
		}
		return report.Buckets[i].Category < report.Buckets[j].Category
	})

	return report
}
