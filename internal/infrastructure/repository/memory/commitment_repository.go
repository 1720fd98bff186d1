package memory

import (
	"context"
	"sort"

	"github.com/riskibarqy/forge/internal/domain/commitment"
)

type CommitmentRepository struct {
	binding
}

func (r *CommitmentRepository) Get(_ context.Context, weekID, userID string) (commitment.Commitment, bool, error) {
	var (
		out   commitment.Commitment
		found bool
	)
	_ = r.with(func(st *state) error {
		out, found = st.commitments[pairKey(weekID, userID)]
		return nil
	})
	return out, found, nil
}

func (r *CommitmentRepository) Upsert(_ context.Context, newID, weekID, userID string, update commitment.Update) (commitment.Commitment, error) {
	var out commitment.Commitment
	err := r.with(func(st *state) error {
		key := pairKey(weekID, userID)
		item, ok := st.commitments[key]
		if !ok {
			item = commitment.Commitment{ID: newID, WeekID: weekID, UserID: userID}
		}
		item.CommittedWorkouts = update.CommittedWorkouts
		item.UpdatedAt = update.At
		st.commitments[key] = item
		out = item
		return nil
	})
	return out, err
}

func (r *CommitmentRepository) ListByWeek(_ context.Context, weekID string) ([]commitment.Commitment, error) {
	out := make([]commitment.Commitment, 0)
	_ = r.with(func(st *state) error {
		for _, item := range st.commitments {
			if item.WeekID == weekID {
				out = append(out, item)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	return out, nil
}

func (r *CommitmentRepository) CountByWeek(ctx context.Context, weekID string) (int, error) {
	items, err := r.ListByWeek(ctx, weekID)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}
