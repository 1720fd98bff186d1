package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/forge/internal/domain/commitment"
	qb "github.com/riskibarqy/forge/internal/platform/querybuilder"
)

type commitmentTableModel struct {
	ID                string    `db:"id"`
	WeekID            string    `db:"week_id"`
	UserID            string    `db:"user_id"`
	CommittedWorkouts int       `db:"committed_workouts"`
	UpdatedAt         time.Time `db:"updated_at"`
}

type CommitmentRepository struct {
	db queryer
}

func NewCommitmentRepository(db *sqlx.DB) *CommitmentRepository {
	return &CommitmentRepository{db: db}
}

func (r *CommitmentRepository) Get(ctx context.Context, weekID, userID string) (commitment.Commitment, bool, error) {
	query, args, err := qb.Select("*").
		From("commitments").
		Where(qb.Eq("week_id", weekID), qb.Eq("user_id", userID)).
		ToSQL()
	if err != nil {
		return commitment.Commitment{}, false, fmt.Errorf("build get commitment query: %w", err)
	}

	var row commitmentTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return commitment.Commitment{}, false, nil
		}
		return commitment.Commitment{}, false, fmt.Errorf("get commitment: %w", err)
	}
	return commitmentFromRow(row), true, nil
}

func (r *CommitmentRepository) Upsert(ctx context.Context, newID, weekID, userID string, update commitment.Update) (commitment.Commitment, error) {
	model := commitmentTableModel{
		ID:                newID,
		WeekID:            weekID,
		UserID:            userID,
		CommittedWorkouts: update.CommittedWorkouts,
		UpdatedAt:         update.At.UTC(),
	}
	query, args, err := qb.UpsertModel("commitments", model, []string{"user_id", "week_id"}, "*", "id")
	if err != nil {
		return commitment.Commitment{}, fmt.Errorf("build upsert commitment query: %w", err)
	}

	var row commitmentTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return commitment.Commitment{}, fmt.Errorf("upsert commitment week_id=%s user_id=%s: %w", weekID, userID, err)
	}
	return commitmentFromRow(row), nil
}

func (r *CommitmentRepository) ListByWeek(ctx context.Context, weekID string) ([]commitment.Commitment, error) {
	query, args, err := qb.Select("*").
		From("commitments").
		Where(qb.Eq("week_id", weekID)).
		OrderBy("updated_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list commitments query: %w", err)
	}

	var rows []commitmentTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list commitments week_id=%s: %w", weekID, err)
	}

	out := make([]commitment.Commitment, 0, len(rows))
	for _, row := range rows {
		out = append(out, commitmentFromRow(row))
	}
	return out, nil
}

func (r *CommitmentRepository) CountByWeek(ctx context.Context, weekID string) (int, error) {
	query, args, err := qb.Select("COUNT(*)").From("commitments").Where(qb.Eq("week_id", weekID)).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count commitments query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count commitments week_id=%s: %w", weekID, err)
	}
	return count, nil
}

func commitmentFromRow(row commitmentTableModel) commitment.Commitment {
	return commitment.Commitment{
		ID:                row.ID,
		WeekID:            row.WeekID,
		UserID:            row.UserID,
		CommittedWorkouts: row.CommittedWorkouts,
		UpdatedAt:         row.UpdatedAt.UTC(),
	}
}
