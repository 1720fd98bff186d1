package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/forge/internal/domain/user"
	qb "github.com/riskibarqy/forge/internal/platform/querybuilder"
)

type UserRepository struct {
	db queryer
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (user.User, bool, error) {
	return r.getOne(ctx, "get user by id", qb.Eq("id", id))
}

func (r *UserRepository) GetByExternalID(ctx context.Context, externalID string) (user.User, bool, error) {
	return r.getOne(ctx, "get user by external id", qb.Eq("external_id", externalID))
}

func (r *UserRepository) getOne(ctx context.Context, op string, cond qb.Condition) (user.User, bool, error) {
	query, args, err := qb.Select("*").From("users").Where(cond).ToSQL()
	if err != nil {
		return user.User{}, false, fmt.Errorf("build %s query: %w", op, err)
	}

	var row userTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return user.User{}, false, nil
		}
		return user.User{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return userFromRow(row), true, nil
}

func (r *UserRepository) Upsert(ctx context.Context, newID string, upsert user.Upsert) (user.User, error) {
	timezone := strings.TrimSpace(upsert.Timezone)
	if timezone == "" {
		timezone = user.DefaultTimezone
	}
	active := true
	if upsert.IsActive != nil {
		active = *upsert.IsActive
	}
	at := upsert.At.UTC()

	model := userTableModel{
		ID:         newID,
		ExternalID: upsert.ExternalID,
		JoinedAt:   at,
		Timezone:   timezone,
		IsActive:   active,
		UpdatedAt:  at,
	}

	// The no-op SET keeps RETURNING working for an existing row.
	suffix := `ON CONFLICT (external_id) DO UPDATE SET external_id = EXCLUDED.external_id RETURNING *`
	if upsert.IsActive != nil {
		suffix = `ON CONFLICT (external_id) DO UPDATE SET
    is_active = EXCLUDED.is_active,
    updated_at = EXCLUDED.updated_at
RETURNING *`
	}

	query, args, err := qb.InsertModel("users", model, suffix)
	if err != nil {
		return user.User{}, fmt.Errorf("build upsert user query: %w", err)
	}

	var row userTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return user.User{}, fmt.Errorf("upsert user external_id=%s: %w", upsert.ExternalID, err)
	}
	return userFromRow(row), nil
}

func (r *UserRepository) SetActive(ctx context.Context, externalID string, active bool, at time.Time) (user.User, bool, error) {
	query, args, err := qb.Update("users").
		Set("is_active", active).
		Set("updated_at", at.UTC()).
		Where(qb.Eq("external_id", externalID)).
		Suffix("RETURNING *").
		ToSQL()
	if err != nil {
		return user.User{}, false, fmt.Errorf("build set user active query: %w", err)
	}

	var row userTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return user.User{}, false, nil
		}
		return user.User{}, false, fmt.Errorf("set user active external_id=%s: %w", externalID, err)
	}
	return userFromRow(row), true, nil
}

func (r *UserRepository) CountActive(ctx context.Context) (int, error) {
	query, args, err := qb.Select("COUNT(*)").From("users").Where(qb.Eq("is_active", true)).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count active users query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count active users: %w", err)
	}
	return count, nil
}

func userFromRow(row userTableModel) user.User {
	return user.User{
		ID:         row.ID,
		ExternalID: row.ExternalID,
		JoinedAt:   row.JoinedAt.UTC(),
		Timezone:   row.Timezone,
		IsActive:   row.IsActive,
		UpdatedAt:  row.UpdatedAt.UTC(),
	}
}
