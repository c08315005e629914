package jira

import (
	"fmt"
	"time"
)

// timestampFormats are the layouts Jira emits across cloud and server
// deployments. ISO 8601 with a numeric offset is the common case:
// 2024-01-15T10:30:00.000+0000.
var timestampFormats = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05Z",
	time.RFC3339,
	time.RFC3339Nano,
}

// ParseTimestamp parses Jira's timestamp format into a time.Time.
func ParseTimestamp(ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	for _, format := range timestampFormats {
		if t, err := time.Parse(format, ts); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %s", ts)
}
