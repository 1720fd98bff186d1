package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/forge/internal/domain/week"
	qb "github.com/riskibarqy/forge/internal/platform/querybuilder"
)

type WeekRepository struct {
	db queryer
}

func NewWeekRepository(db *sqlx.DB) *WeekRepository {
	return &WeekRepository{db: db}
}

func (r *WeekRepository) Create(ctx context.Context, w week.Week) error {
	model := weekInsertModel{
		ID:                 w.ID,
		StartsAt:           w.StartsAt.UTC(),
		CommitmentsOpenAt:  w.CommitmentsOpenAt.UTC(),
		CommitmentsCloseAt: w.CommitmentsCloseAt.UTC(),
		EndsAt:             w.EndsAt.UTC(),
		GoalPoints:         w.GoalPoints,
		CurrentPoints:      w.CurrentPoints,
		Status:             string(w.Status),
		CreatedAt:          w.CreatedAt.UTC(),
		UpdatedAt:          w.UpdatedAt.UTC(),
	}
	query, args, err := qb.InsertModel("weeks", model, "")
	if err != nil {
		return fmt.Errorf("build create week query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create week starts_at=%s: %w", w.StartsAt.Format(time.RFC3339), week.ErrWeekExists)
		}
		return fmt.Errorf("create week starts_at=%s: %w", w.StartsAt.Format(time.RFC3339), err)
	}
	return nil
}

func (r *WeekRepository) GetByID(ctx context.Context, id string) (week.Week, bool, error) {
	return r.findOne(ctx, "get week", qb.Select("*").From("weeks").Where(qb.Eq("id", id)))
}

func (r *WeekRepository) GetByIDForUpdate(ctx context.Context, id string) (week.Week, bool, error) {
	return r.findOne(ctx, "lock week", qb.Select("*").From("weeks").Where(qb.Eq("id", id)).Lock(qb.LockForUpdate))
}

func (r *WeekRepository) FindByStatus(ctx context.Context, status week.Status) (week.Week, bool, error) {
	return r.findOne(ctx, "find week by status", qb.Select("*").
		From("weeks").
		Where(qb.Eq("status", string(status))).
		OrderBy("starts_at DESC").
		Limit(1))
}

func (r *WeekRepository) FindByStartsAt(ctx context.Context, startsAt time.Time) (week.Week, bool, error) {
	return r.findOne(ctx, "find week by starts_at", qb.Select("*").
		From("weeks").
		Where(qb.Eq("starts_at", startsAt.UTC())))
}

func (r *WeekRepository) FindContaining(ctx context.Context, at time.Time) (week.Week, bool, error) {
	at = at.UTC()
	return r.findOne(ctx, "find week containing instant", qb.Select("*").
		From("weeks").
		Where(qb.Lte("starts_at", at), qb.Gt("ends_at", at)).
		OrderBy("starts_at DESC").
		Limit(1))
}

func (r *WeekRepository) FindCurrent(ctx context.Context) (week.Week, bool, error) {
	return r.findOne(ctx, "find current week", qb.Select("*").
		From("weeks").
		Where(qb.In("status", []any{string(week.StatusOpen), string(week.StatusActive)})).
		OrderBy("starts_at DESC").
		Limit(1))
}

func (r *WeekRepository) FindLatest(ctx context.Context) (week.Week, bool, error) {
	return r.findOne(ctx, "find latest week", qb.Select("*").
		From("weeks").
		OrderBy("starts_at DESC").
		Limit(1))
}

func (r *WeekRepository) IncrementPoints(ctx context.Context, id string, points int, at time.Time) (week.Week, error) {
	query, args, err := qb.Update("weeks").
		SetExpr("current_points", "current_points + ?", points).
		Set("updated_at", at.UTC()).
		Where(qb.Eq("id", id)).
		Suffix("RETURNING *").
		ToSQL()
	if err != nil {
		return week.Week{}, fmt.Errorf("build increment week points query: %w", err)
	}

	var row weekTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return week.Week{}, fmt.Errorf("increment week points week_id=%s: %w", id, week.ErrWeekNotFound)
		}
		return week.Week{}, fmt.Errorf("increment week points week_id=%s: %w", id, err)
	}
	return weekFromRow(row), nil
}

func (r *WeekRepository) Transition(ctx context.Context, id string, from, to week.Status, goalPoints *int, at time.Time) (week.Week, bool, error) {
	builder := qb.Update("weeks").
		Set("status", string(to)).
		Set("updated_at", at.UTC())
	if goalPoints != nil {
		builder = builder.Set("goal_points", *goalPoints)
	}
	query, args, err := builder.
		Where(qb.Eq("id", id), qb.Eq("status", string(from))).
		Suffix("RETURNING *").
		ToSQL()
	if err != nil {
		return week.Week{}, false, fmt.Errorf("build transition week query: %w", err)
	}

	var row weekTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return week.Week{}, false, nil
		}
		if isUniqueViolation(err) {
			return week.Week{}, false, fmt.Errorf("transition week week_id=%s %s->%s: %w", id, from, to, week.ErrWeekExists)
		}
		return week.Week{}, false, fmt.Errorf("transition week week_id=%s %s->%s: %w", id, from, to, err)
	}
	return weekFromRow(row), true, nil
}

func (r *WeekRepository) UpdateMessageRefs(ctx context.Context, id string, update week.MessageRefsUpdate, at time.Time) (week.Week, bool, error) {
	builder := qb.Update("weeks").Set("updated_at", at.UTC())
	if update.ProgressMessageChannelID != nil {
		builder = builder.Set("progress_message_channel_id", optionalString(*update.ProgressMessageChannelID))
	}
	if update.ProgressMessageID != nil {
		builder = builder.Set("progress_message_id", optionalString(*update.ProgressMessageID))
	}
	if update.CommitmentMessageChannelID != nil {
		builder = builder.Set("commitment_message_channel_id", optionalString(*update.CommitmentMessageChannelID))
	}
	if update.CommitmentMessageID != nil {
		builder = builder.Set("commitment_message_id", optionalString(*update.CommitmentMessageID))
	}

	query, args, err := builder.Where(qb.Eq("id", id)).Suffix("RETURNING *").ToSQL()
	if err != nil {
		return week.Week{}, false, fmt.Errorf("build update week message refs query: %w", err)
	}

	var row weekTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return week.Week{}, false, nil
		}
		return week.Week{}, false, fmt.Errorf("update week message refs week_id=%s: %w", id, err)
	}
	return weekFromRow(row), true, nil
}

func (r *WeekRepository) findOne(ctx context.Context, op string, builder *qb.SelectBuilder) (week.Week, bool, error) {
	query, args, err := builder.ToSQL()
	if err != nil {
		return week.Week{}, false, fmt.Errorf("build %s query: %w", op, err)
	}

	var row weekTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return week.Week{}, false, nil
		}
		return week.Week{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return weekFromRow(row), true, nil
}

func weekFromRow(row weekTableModel) week.Week {
	return week.Week{
		ID:                         row.ID,
		StartsAt:                   row.StartsAt.UTC(),
		CommitmentsOpenAt:          row.CommitmentsOpenAt.UTC(),
		CommitmentsCloseAt:         row.CommitmentsCloseAt.UTC(),
		EndsAt:                     row.EndsAt.UTC(),
		GoalPoints:                 row.GoalPoints,
		CurrentPoints:              row.CurrentPoints,
		Status:                     week.Status(row.Status),
		ProgressMessageChannelID:   stringValue(row.ProgressMessageChannelID),
		ProgressMessageID:          stringValue(row.ProgressMessageID),
		CommitmentMessageChannelID: stringValue(row.CommitmentMessageChannelID),
		CommitmentMessageID:        stringValue(row.CommitmentMessageID),
		CreatedAt:                  row.CreatedAt.UTC(),
		UpdatedAt:                  row.UpdatedAt.UTC(),
	}
}
