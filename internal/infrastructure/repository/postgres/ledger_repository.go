package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/forge/internal/domain/ledger"
	qb "github.com/riskibarqy/forge/internal/platform/querybuilder"
)

type ledgerTableModel struct {
	ID        string    `db:"id"`
	WeekID    string    `db:"week_id"`
	UserID    string    `db:"user_id"`
	Reason    string    `db:"reason"`
	Points    int       `db:"points"`
	CreatedAt time.Time `db:"created_at"`
}

type LedgerRepository struct {
	db queryer
}

func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Append(ctx context.Context, entry ledger.Entry) error {
	model := ledgerTableModel{
		ID:        entry.ID,
		WeekID:    entry.WeekID,
		UserID:    entry.UserID,
		Reason:    entry.Reason,
		Points:    entry.Points,
		CreatedAt: entry.CreatedAt.UTC(),
	}
	query, args, err := qb.InsertModel("points_ledger", model, "")
	if err != nil {
		return fmt.Errorf("build append ledger entry query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append ledger entry week_id=%s: %w", entry.WeekID, err)
	}
	return nil
}

func (r *LedgerRepository) SumByWeek(ctx context.Context, weekID string) (int, error) {
	query, args, err := qb.Select("COALESCE(SUM(points), 0)").
		From("points_ledger").
		Where(qb.Eq("week_id", weekID)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build sum ledger query: %w", err)
	}

	var sum int
	if err := r.db.GetContext(ctx, &sum, query, args...); err != nil {
		return 0, fmt.Errorf("sum ledger week_id=%s: %w", weekID, err)
	}
	return sum, nil
}

func (r *LedgerRepository) ListByWeek(ctx context.Context, weekID string) ([]ledger.Entry, error) {
	query, args, err := qb.Select("*").
		From("points_ledger").
		Where(qb.Eq("week_id", weekID)).
		OrderBy("created_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list ledger query: %w", err)
	}

	var rows []ledgerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list ledger week_id=%s: %w", weekID, err)
	}

	out := make([]ledger.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, ledger.Entry{
			ID:        row.ID,
			WeekID:    row.WeekID,
			UserID:    row.UserID,
			Reason:    row.Reason,
			Points:    row.Points,
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return out, nil
}
