package postgres

import (
	"database/sql"
	"time"
)

type weekInsertModel struct {
	ID                 string    `db:"id"`
	StartsAt           time.Time `db:"starts_at"`
	CommitmentsOpenAt  time.Time `db:"commitments_open_at"`
	CommitmentsCloseAt time.Time `db:"commitments_close_at"`
	EndsAt             time.Time `db:"ends_at"`
	GoalPoints         int       `db:"goal_points"`
	CurrentPoints      int       `db:"current_points"`
	Status             string    `db:"status"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

type weekTableModel struct {
	ID                         string         `db:"id"`
	StartsAt                   time.Time      `db:"starts_at"`
	CommitmentsOpenAt          time.Time      `db:"commitments_open_at"`
	CommitmentsCloseAt         time.Time      `db:"commitments_close_at"`
	EndsAt                     time.Time      `db:"ends_at"`
	GoalPoints                 int            `db:"goal_points"`
	CurrentPoints              int            `db:"current_points"`
	Status                     string         `db:"status"`
	ProgressMessageChannelID   sql.NullString `db:"progress_message_channel_id"`
	ProgressMessageID          sql.NullString `db:"progress_message_id"`
	CommitmentMessageChannelID sql.NullString `db:"commitment_message_channel_id"`
	CommitmentMessageID        sql.NullString `db:"commitment_message_id"`
	CreatedAt                  time.Time      `db:"created_at"`
	UpdatedAt                  time.Time      `db:"updated_at"`
}
