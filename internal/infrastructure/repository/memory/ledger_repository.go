package memory

import (
	"context"

	"github.com/riskibarqy/forge/internal/domain/ledger"
)

type LedgerRepository struct {
	binding
}

func (r *LedgerRepository) Append(_ context.Context, entry ledger.Entry) error {
	return r.with(func(st *state) error {
		st.ledger = append(st.ledger, entry)
		return nil
	})
}

func (r *LedgerRepository) SumByWeek(_ context.Context, weekID string) (int, error) {
	total := 0
	_ = r.with(func(st *state) error {
		for _, entry := range st.ledger {
			if entry.WeekID == weekID {
				total += entry.Points
			}
		}
		return nil
	})
	return total, nil
}

func (r *LedgerRepository) ListByWeek(_ context.Context, weekID string) ([]ledger.Entry, error) {
	out := make([]ledger.Entry, 0)
	_ = r.with(func(st *state) error {
		for _, entry := range st.ledger {
			if entry.WeekID == weekID {
				out = append(out, entry)
			}
		}
		return nil
	})
	return out, nil
}
