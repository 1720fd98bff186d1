package recap

import "github.com/riskibarqy/forge/internal/domain/week"

// Summary is the community-level outcome of an ended week.
type Summary struct {
	WeekID        string
	GoalPoints    int
	CurrentPoints int
	GoalAchieved  bool
	TotalWorkouts int
	Result        Result
}

func Summarize(w week.Week, totalWorkouts int, result Result) Summary {
	return Summary{
		WeekID:        w.ID,
		GoalPoints:    w.GoalPoints,
		CurrentPoints: w.CurrentPoints,
		GoalAchieved:  w.CurrentPoints >= w.GoalPoints,
		TotalWorkouts: totalWorkouts,
		Result:        result,
	}
}
