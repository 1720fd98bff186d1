package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/forge/internal/domain/workout"
	qb "github.com/riskibarqy/forge/internal/platform/querybuilder"
)

type workoutInsertModel struct {
	ID            string    `db:"id"`
	WeekID        string    `db:"week_id"`
	UserID        string    `db:"user_id"`
	Source        string    `db:"source"`
	SourceEventID *string   `db:"source_event_id"`
	OccurredAt    time.Time `db:"occurred_at"`
	PointsAwarded int       `db:"points_awarded"`
	CreatedAt     time.Time `db:"created_at"`
}

type workoutTableModel struct {
	ID            string         `db:"id"`
	WeekID        string         `db:"week_id"`
	UserID        string         `db:"user_id"`
	Source        string         `db:"source"`
	SourceEventID sql.NullString `db:"source_event_id"`
	OccurredAt    time.Time      `db:"occurred_at"`
	PointsAwarded int            `db:"points_awarded"`
	CreatedAt     time.Time      `db:"created_at"`
}

type userCountRow struct {
	UserID string `db:"user_id"`
	Count  int    `db:"workouts"`
}

type WorkoutRepository struct {
	db queryer
}

func NewWorkoutRepository(db *sqlx.DB) *WorkoutRepository {
	return &WorkoutRepository{db: db}
}

func (r *WorkoutRepository) Insert(ctx context.Context, w workout.Workout) (bool, error) {
	model := workoutInsertModel{
		ID:            w.ID,
		WeekID:        w.WeekID,
		UserID:        w.UserID,
		Source:        string(w.Source),
		SourceEventID: optionalString(w.SourceEventID),
		OccurredAt:    w.OccurredAt.UTC(),
		PointsAwarded: w.PointsAwarded,
		CreatedAt:     w.CreatedAt.UTC(),
	}
	query, args, err := qb.InsertModel("workouts", model, "ON CONFLICT (source, source_event_id) DO NOTHING RETURNING id")
	if err != nil {
		return false, fmt.Errorf("build insert workout query: %w", err)
	}

	var id string
	if err := r.db.GetContext(ctx, &id, query, args...); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert workout source=%s source_event_id=%s: %w", w.Source, w.SourceEventID, err)
	}
	return true, nil
}

func (r *WorkoutRepository) GetBySourceEvent(ctx context.Context, source workout.Source, sourceEventID string) (workout.Workout, bool, error) {
	query, args, err := qb.Select("*").
		From("workouts").
		Where(qb.Eq("source", string(source)), qb.Eq("source_event_id", sourceEventID)).
		ToSQL()
	if err != nil {
		return workout.Workout{}, false, fmt.Errorf("build get workout query: %w", err)
	}

	var row workoutTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return workout.Workout{}, false, nil
		}
		return workout.Workout{}, false, fmt.Errorf("get workout by source event: %w", err)
	}
	return workout.Workout{
		ID:            row.ID,
		WeekID:        row.WeekID,
		UserID:        row.UserID,
		Source:        workout.Source(row.Source),
		SourceEventID: stringValue(row.SourceEventID),
		OccurredAt:    row.OccurredAt.UTC(),
		PointsAwarded: row.PointsAwarded,
		CreatedAt:     row.CreatedAt.UTC(),
	}, true, nil
}

func (r *WorkoutRepository) CountByWeek(ctx context.Context, weekID string) (int, error) {
	return r.count(ctx, qb.Eq("week_id", weekID))
}

func (r *WorkoutRepository) CountByWeekAndUser(ctx context.Context, weekID, userID string) (int, error) {
	return r.count(ctx, qb.Eq("week_id", weekID), qb.Eq("user_id", userID))
}

func (r *WorkoutRepository) count(ctx context.Context, conditions ...qb.Condition) (int, error) {
	query, args, err := qb.Select("COUNT(*)").From("workouts").Where(conditions...).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count workouts query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count workouts: %w", err)
	}
	return count, nil
}

func (r *WorkoutRepository) CountByWeekGroupedByUser(ctx context.Context, weekID string) ([]workout.UserCount, error) {
	query, args, err := qb.Select("user_id", "COUNT(*) AS workouts").
		From("workouts").
		Where(qb.Eq("week_id", weekID)).
		GroupBy("user_id").
		OrderBy("MIN(created_at)").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build count workouts by user query: %w", err)
	}

	var rows []userCountRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count workouts by user week_id=%s: %w", weekID, err)
	}

	out := make([]workout.UserCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, workout.UserCount{UserID: row.UserID, Count: row.Count})
	}
	return out, nil
}
