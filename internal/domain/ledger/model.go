package ledger

import "time"

const ReasonWorkoutLogged = "workout_logged"

type Entry struct {
	ID        string
	WeekID    string
	UserID    string
	Reason    string
	Points    int
	CreatedAt time.Time
}
