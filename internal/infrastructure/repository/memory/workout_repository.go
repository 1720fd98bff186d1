package memory

import (
	"context"

	"github.com/riskibarqy/forge/internal/domain/workout"
)

type WorkoutRepository struct {
	binding
}

func (r *WorkoutRepository) Insert(_ context.Context, w workout.Workout) (bool, error) {
	inserted := false
	err := r.with(func(st *state) error {
		key := pairKey(string(w.Source), w.SourceEventID)
		if _, exists := st.workoutKeys[key]; exists {
			return nil
		}
		st.workoutKeys[key] = len(st.workouts)
		st.workouts = append(st.workouts, w)
		inserted = true
		return nil
	})
	return inserted, err
}

func (r *WorkoutRepository) GetBySourceEvent(_ context.Context, source workout.Source, sourceEventID string) (workout.Workout, bool, error) {
	var (
		out   workout.Workout
		found bool
	)
	_ = r.with(func(st *state) error {
		idx, ok := st.workoutKeys[pairKey(string(source), sourceEventID)]
		if !ok {
			return nil
		}
		out, found = st.workouts[idx], true
		return nil
	})
	return out, found, nil
}

func (r *WorkoutRepository) CountByWeek(_ context.Context, weekID string) (int, error) {
	count := 0
	_ = r.with(func(st *state) error {
		for _, item := range st.workouts {
			if item.WeekID == weekID {
				count++
			}
		}
		return nil
	})
	return count, nil
}

func (r *WorkoutRepository) CountByWeekAndUser(_ context.Context, weekID, userID string) (int, error) {
	count := 0
	_ = r.with(func(st *state) error {
		for _, item := range st.workouts {
			if item.WeekID == weekID && item.UserID == userID {
				count++
			}
		}
		return nil
	})
	return count, nil
}

func (r *WorkoutRepository) CountByWeekGroupedByUser(_ context.Context, weekID string) ([]workout.UserCount, error) {
	out := make([]workout.UserCount, 0)
	_ = r.with(func(st *state) error {
		index := make(map[string]int)
		for _, item := range st.workouts {
			if item.WeekID != weekID {
				continue
			}
			pos, ok := index[item.UserID]
			if !ok {
				pos = len(out)
				index[item.UserID] = pos
				out = append(out, workout.UserCount{UserID: item.UserID})
			}
			out[pos].Count++
		}
		return nil
	})
	return out, nil
}
