package jobscheduler

import (
	"regexp"
	"strings"
	"time"
)

type DispatchStatus string

const (
	StatusSent      DispatchStatus = "sent"
	StatusCompleted DispatchStatus = "completed"
	StatusSkipped   DispatchStatus = "skipped"
	StatusFailed    DispatchStatus = "failed"
)

// Terminal reports whether no further event is expected for the dispatch.
func (s DispatchStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusSkipped
}

// OutcomeStatus classifies a finished run: failed on error, completed when it
// changed state, skipped when it was a no-op.
func OutcomeStatus(changed bool, err error) DispatchStatus {
	switch {
	case err != nil:
		return StatusFailed
	case changed:
		return StatusCompleted
	default:
		return StatusSkipped
	}
}

// DispatchEvent records one run of a lifecycle trigger or queued inbox job.
type DispatchEvent struct {
	DispatchID   string
	JobName      string
	JobPath      string
	CommunityID  string
	Status       DispatchStatus
	Payload      map[string]any
	ErrorMessage string
	OccurredAt   time.Time
	TraceID      string
	SpanID       string
}

var unsafeIDChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// DispatchID buckets at into slots of width bucket (default one minute) so
// every run of the same job within a slot shares an ID. The result only holds
// characters QStash accepts in Upstash-Deduplication-Id.
func DispatchID(job, communityID string, at time.Time, bucket time.Duration) string {
	if bucket <= 0 {
		bucket = time.Minute
	}
	slot := at.UTC().Truncate(bucket).Format("20060102T150405Z")
	return SafeSegment(job) + "-" + SafeSegment(communityID) + "-" + slot
}

// SafeSegment replaces characters outside [a-zA-Z0-9_-] with '-'. Blank input
// becomes "unknown".
func SafeSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return unsafeIDChars.ReplaceAllString(value, "-")
}
