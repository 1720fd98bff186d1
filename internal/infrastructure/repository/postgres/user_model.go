package postgres

import "time"

type userTableModel struct {
	ID         string    `db:"id"`
	ExternalID string    `db:"external_id"`
	JoinedAt   time.Time `db:"joined_at"`
	Timezone   string    `db:"timezone"`
	IsActive   bool      `db:"is_active"`
	UpdatedAt  time.Time `db:"updated_at"`
}
