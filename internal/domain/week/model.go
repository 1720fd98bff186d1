package week

import (
	"errors"
	"time"
)

type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusActive Status = "ACTIVE"
	StatusEnded  Status = "ENDED"
)

var (
	ErrWeekNotFound         = errors.New("week not found")
	ErrWeekBoundaryMismatch = errors.New("occurred_at outside week boundaries")
	// ErrWeekExists is returned by Create when the start instant or the
	// OPEN/ACTIVE slot is already taken.
	ErrWeekExists = errors.New("week already exists")
)

type Week struct {
	ID                         string
	StartsAt                   time.Time
	CommitmentsOpenAt          time.Time
	CommitmentsCloseAt         time.Time
	EndsAt                     time.Time
	GoalPoints                 int
	CurrentPoints              int
	Status                     Status
	ProgressMessageChannelID   string
	ProgressMessageID          string
	CommitmentMessageChannelID string
	CommitmentMessageID        string
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}

// Contains reports whether at falls in [StartsAt, EndsAt).
func (w Week) Contains(at time.Time) bool {
	return !at.Before(w.StartsAt) && at.Before(w.EndsAt)
}

func (w Week) IsOpen() bool {
	return w.Status == StatusOpen
}

// Bounds are the computed instants of a new week, all in UTC.
type Bounds struct {
	StartsAt           time.Time
	CommitmentsOpenAt  time.Time
	CommitmentsCloseAt time.Time
	EndsAt             time.Time
}

// MessageRefsUpdate sets announcement references. Nil fields are left untouched,
// an empty string clears the reference.
type MessageRefsUpdate struct {
	ProgressMessageChannelID   *string
	ProgressMessageID          *string
	CommitmentMessageChannelID *string
	CommitmentMessageID        *string
}

func (u MessageRefsUpdate) Apply(w Week) Week {
	if u.ProgressMessageChannelID != nil {
		w.ProgressMessageChannelID = *u.ProgressMessageChannelID
	}
	if u.ProgressMessageID != nil {
		w.ProgressMessageID = *u.ProgressMessageID
	}
	if u.CommitmentMessageChannelID != nil {
		w.CommitmentMessageChannelID = *u.CommitmentMessageChannelID
	}
	if u.CommitmentMessageID != nil {
		w.CommitmentMessageID = *u.CommitmentMessageID
	}
	return w
}

// Stats is the read projection of a week with its row counts.
type Stats struct {
	Week             Week
	CommitmentsCount int
	WorkoutsCount    int
}
