package workout

import (
	"fmt"
	"strings"
	"time"
)

type Source string

const (
	SourceManual Source = "MANUAL"
	SourceStrava Source = "STRAVA"
	SourceHevy   Source = "HEVY"
)

const DefaultPointsPerWorkout = 10

func ParseSource(raw string) (Source, error) {
	switch Source(strings.ToUpper(strings.TrimSpace(raw))) {
	case SourceManual:
		return SourceManual, nil
	case SourceStrava:
		return SourceStrava, nil
	case SourceHevy:
		return SourceHevy, nil
	default:
		return "", fmt.Errorf("unknown workout source %q", raw)
	}
}

type Workout struct {
	ID            string
	WeekID        string
	UserID        string
	Source        Source
	SourceEventID string
	OccurredAt    time.Time
	PointsAwarded int
	CreatedAt     time.Time
}

// UserCount is the number of workouts a user logged in a week.
type UserCount struct {
	UserID string
	Count  int
}

// ManualSourceEventID derives the dedup key of a manual log so repeating the
// same call for the same instant is recorded once.
func ManualSourceEventID(userID string, occurredAt time.Time) string {
	return "manual_" + userID + "_" + occurredAt.UTC().Format("2006-01-02T15:04:05.000Z")
}
