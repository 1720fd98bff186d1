package user

import "time"

const DefaultTimezone = "Europe/Dublin"

type User struct {
	ID         string
	ExternalID string
	JoinedAt   time.Time
	Timezone   string
	IsActive   bool
	UpdatedAt  time.Time
}

// Upsert creates the user when ExternalID is unknown. On an existing row only
// the fields that are set are written.
type Upsert struct {
	ExternalID string
	Timezone   string
	IsActive   *bool
	At         time.Time
}

func Active(v bool) *bool {
	return &v
}
