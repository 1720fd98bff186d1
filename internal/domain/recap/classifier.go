// Package recap buckets members of a finished week for the public recap.
// Members who fell short of a commitment are never named.
package recap

import "github.com/riskibarqy/forge/internal/domain/workout"

// Committed is one member's commitment for the week.
type Committed struct {
	UserID   string
	Workouts int
}

type Overachiever struct {
	UserID  string
	Overage int
}

type Result struct {
	AboveAndBeyond []Overachiever
	SteadyHands    []string
	ExtraSparks    []string
}

func (r Result) IsEmpty() bool {
	return len(r.AboveAndBeyond) == 0 && len(r.SteadyHands) == 0 && len(r.ExtraSparks) == 0
}

// Classify evaluates every user present in either input. Repeated commitments
// for a user keep the last value, repeated workout counts are summed.
func Classify(commitments []Committed, logged []workout.UserCount) Result {
	order := make([]string, 0, len(commitments)+len(logged))
	committed := make(map[string]int, len(commitments))
	counts := make(map[string]int, len(logged))
	seen := make(map[string]struct{}, len(commitments)+len(logged))

	remember := func(userID string) {
		if _, ok := seen[userID]; ok {
			return
		}
		seen[userID] = struct{}{}
		order = append(order, userID)
	}

	for _, item := range commitments {
		remember(item.UserID)
		committed[item.UserID] = item.Workouts
	}
	for _, item := range logged {
		remember(item.UserID)
		counts[item.UserID] += item.Count
	}

	out := Result{
		AboveAndBeyond: []Overachiever{},
		SteadyHands:    []string{},
		ExtraSparks:    []string{},
	}
	for _, userID := range order {
		c := committed[userID]
		n := counts[userID]
		switch {
		case c > 0 && n > c:
			out.AboveAndBeyond = append(out.AboveAndBeyond, Overachiever{UserID: userID, Overage: n - c})
		case c > 0 && n == c:
			out.SteadyHands = append(out.SteadyHands, userID)
		case c == 0 && n > 0:
			out.ExtraSparks = append(out.ExtraSparks, userID)
		}
	}
	return out
}
