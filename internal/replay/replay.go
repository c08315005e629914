// Package replay reconstructs how long an issue spent in each workflow
// status by replaying its changelog: the raw change history becomes a
// sorted transition sequence, and the sequence becomes a per-status
// allocation of hours.
package replay

import (
	"fmt"
	"sort"
	"time"

	"github.com/jirakit/dwell/internal/jira"
)

// NoneStatus stands in for an absent from/to value in a transition, so
// duration map keys are always non-empty strings.
const NoneStatus = "None"

// Transition is a single recorded status change.
type Transition struct {
	From string
	To   string
	At   time.Time
}

// MalformedTimestampError means a changelog entry carried a timestamp the
// Jira formats don't cover. The issue it belongs to should be skipped, not
// the whole run.
type MalformedTimestampError struct {
	Raw string
	Err error
}

func (e *MalformedTimestampError) Error() string {
	return fmt.Sprintf("malformed transition timestamp %q: %v", e.Raw, e.Err)
}

func (e *MalformedTimestampError) Unwrap() error { return e.Err }

// FromChangelog extracts the status transitions from an issue changelog and
// returns them sorted ascending by timestamp. The sort is stable: entries
// sharing a timestamp keep their changelog order. Non-status changes are
// ignored.
func FromChangelog(log *jira.Changelog) ([]Transition, error) {
	if log == nil {
		return nil, nil
	}

	var transitions []Transition
	for _, history := range log.Histories {
		for _, item := range history.Items {
			if item.Field != "status" {
				continue
			}
			at, err := jira.ParseTimestamp(history.Created)
			if err != nil {
				return nil, &MalformedTimestampError{Raw: history.Created, Err: err}
			}
			transitions = append(transitions, Transition{
				From: orNone(item.FromString),
				To:   orNone(item.ToString),
				At:   at,
			})
		}
	}

	sort.SliceStable(transitions, func(i, j int) bool {
		return transitions[i].At.Before(transitions[j].At)
	})
	return transitions, nil
}

func orNone(s string) string {
	if s == "" {
		return NoneStatus
	}
	return s
}
