package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/forge/internal/domain/community"
	qb "github.com/riskibarqy/forge/internal/platform/querybuilder"
)

type communityConfigInsertModel struct {
	CommunityID         string    `db:"community_id"`
	Timezone            string    `db:"timezone"`
	WeekStartDay        int       `db:"week_start_day"`
	CommitmentsOpenAt   string    `db:"commitments_open_at"`
	CommitmentsCloseAt  string    `db:"commitments_close_at"`
	PointsPerWorkout    int       `db:"points_per_workout"`
	CommitmentChannelID *string   `db:"commitment_channel_id"`
	ProgressChannelID   *string   `db:"progress_channel_id"`
	ParticipantRoleID   *string   `db:"participant_role_id"`
	UpdatedAt           time.Time `db:"updated_at"`
}

type communityConfigTableModel struct {
	CommunityID         string         `db:"community_id"`
	Timezone            string         `db:"timezone"`
	WeekStartDay        int            `db:"week_start_day"`
	CommitmentsOpenAt   string         `db:"commitments_open_at"`
	CommitmentsCloseAt  string         `db:"commitments_close_at"`
	PointsPerWorkout    int            `db:"points_per_workout"`
	CommitmentChannelID sql.NullString `db:"commitment_channel_id"`
	ProgressChannelID   sql.NullString `db:"progress_channel_id"`
	ParticipantRoleID   sql.NullString `db:"participant_role_id"`
	UpdatedAt           time.Time      `db:"updated_at"`
}

type CommunityConfigRepository struct {
	db *sqlx.DB
}

func NewCommunityConfigRepository(db *sqlx.DB) *CommunityConfigRepository {
	return &CommunityConfigRepository{db: db}
}

func (r *CommunityConfigRepository) Get(ctx context.Context, communityID string) (community.Config, bool, error) {
	query, args, err := qb.Select("*").
		From("community_configs").
		Where(qb.Eq("community_id", communityID)).
		ToSQL()
	if err != nil {
		return community.Config{}, false, fmt.Errorf("build get community config query: %w", err)
	}

	var row communityConfigTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return community.Config{}, false, nil
		}
		return community.Config{}, false, fmt.Errorf("get community config community_id=%s: %w", communityID, err)
	}

	openAt, err := community.ParseClockTime(row.CommitmentsOpenAt)
	if err != nil {
		return community.Config{}, false, fmt.Errorf("decode community config community_id=%s: %w", communityID, err)
	}
	closeAt, err := community.ParseClockTime(row.CommitmentsCloseAt)
	if err != nil {
		return community.Config{}, false, fmt.Errorf("decode community config community_id=%s: %w", communityID, err)
	}

	return community.Config{
		CommunityID:         row.CommunityID,
		Timezone:            row.Timezone,
		WeekStartDay:        time.Weekday(row.WeekStartDay),
		CommitmentsOpenAt:   openAt,
		CommitmentsCloseAt:  closeAt,
		PointsPerWorkout:    row.PointsPerWorkout,
		CommitmentChannelID: stringValue(row.CommitmentChannelID),
		ProgressChannelID:   stringValue(row.ProgressChannelID),
		ParticipantRoleID:   stringValue(row.ParticipantRoleID),
		UpdatedAt:           row.UpdatedAt.UTC(),
	}, true, nil
}

func (r *CommunityConfigRepository) Upsert(ctx context.Context, cfg community.Config) error {
	model := communityConfigInsertModel{
		CommunityID:         cfg.CommunityID,
		Timezone:            cfg.Timezone,
		WeekStartDay:        int(cfg.WeekStartDay),
		CommitmentsOpenAt:   cfg.CommitmentsOpenAt.String(),
		CommitmentsCloseAt:  cfg.CommitmentsCloseAt.String(),
		PointsPerWorkout:    cfg.PointsPerWorkout,
		CommitmentChannelID: optionalString(cfg.CommitmentChannelID),
		ProgressChannelID:   optionalString(cfg.ProgressChannelID),
		ParticipantRoleID:   optionalString(cfg.ParticipantRoleID),
		UpdatedAt:           cfg.UpdatedAt.UTC(),
	}
	query, args, err := qb.UpsertModel("community_configs", model, []string{"community_id"}, "")
	if err != nil {
		return fmt.Errorf("build upsert community config query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert community config community_id=%s: %w", cfg.CommunityID, err)
	}
	return nil
}
