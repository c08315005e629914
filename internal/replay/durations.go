package replay

import (
	"fmt"
	"time"
)

// Conventions are the workflow rules baked into the duration algorithm:
// which status an issue is assumed to start life in, and which status stops
// the clock. These vary per deployment, so they are injected rather than
// hardcoded.
type Conventions struct {
	InitialStatus  string `mapstructure:"initial-status" yaml:"initial-status"`
	TerminalStatus string `mapstructure:"terminal-status" yaml:"terminal-status"`
}

// DefaultConventions returns the stock workflow conventions.
func DefaultConventions() Conventions {
	return Conventions{
		InitialStatus:  "New Issues",
		TerminalStatus: "Done",
	}
}

// Result is a per-issue allocation of hours to statuses. Warnings carry
// data-integrity notes (clamped negative deltas) without failing the issue.
type Result struct {
	Durations map[string]float64
	Warnings  []string
}

// TotalHours sums the allocation across all statuses.
func (r Result) TotalHours() float64 {
	var total float64
	for _, hours := range r.Durations {
		total += hours
	}
	return total
}

// Calculator turns a sorted transition sequence into a Result. Now is
// injectable so tests and reproducible runs can pin the clock.
type Calculator struct {
	Conventions Conventions
	Now         func() time.Time
}

// NewCalculator returns a Calculator using the wall clock.
func NewCalculator(conv Conventions) *Calculator {
	return &Calculator{Conventions: conv, Now: time.Now}
}

// Durations walks the transitions in order, accruing time into the status
// the issue occupied between consecutive changes. An issue not yet in the
// terminal status accrues a trailing interval up to now. With no
// transitions at all, the whole lifetime since creation belongs to the
// initial status; if the creation time is unknown too, the result is empty.
func (c *Calculator) Durations(transitions []Transition, created time.Time) Result {
	now := c.Now().UTC()
	result := Result{Durations: make(map[string]float64)}

	if len(transitions) == 0 {
		if created.IsZero() {
			return result
		}
		accrue(&result, c.Conventions.InitialStatus, now.Sub(created))
		return result
	}

	currentStatus := c.Conventions.InitialStatus
	currentTime := transitions[0].At

	for _, tr := range transitions {
		accrue(&result, currentStatus, tr.At.Sub(currentTime))
		currentStatus = tr.To
		currentTime = tr.At
	}

	if currentStatus != c.Conventions.TerminalStatus {
		accrue(&result, currentStatus, now.Sub(currentTime))
	}

	return result
}

// accrue adds a delta to a status, clamping negative intervals to zero.
// A negative delta means the input ordering or the clock is wrong; the
// total must not be corrupted by it.
func accrue(r *Result, status string, d time.Duration) {
	hours := d.Hours()
	if hours < 0 {
		r.Warnings = append(r.Warnings,
			fmt.Sprintf("negative interval (%.2fh) in status %q clamped to zero", hours, status))
		hours = 0
	}
	r.Durations[status] += hours
}
