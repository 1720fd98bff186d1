package commitment

import (
	"fmt"
	"time"
)

const (
	MinWorkouts = 0
	MaxWorkouts = 7
)

type Commitment struct {
	ID                string
	WeekID            string
	UserID            string
	CommittedWorkouts int
	UpdatedAt         time.Time
}

// Update is the only write accepted for a commitment.
type Update struct {
	CommittedWorkouts int
	At                time.Time
}

func ValidateCount(count int) error {
	if count < MinWorkouts || count > MaxWorkouts {
		return fmt.Errorf("committed workouts must be between %d and %d, got %d", MinWorkouts, MaxWorkouts, count)
	}
	return nil
}

// TotalCommitted sums committed workouts across commitments.
func TotalCommitted(items []Commitment) int {
	total := 0
	for _, item := range items {
		total += item.CommittedWorkouts
	}
	return total
}
