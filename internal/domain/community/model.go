package community

import (
	"fmt"
	"strings"
	"time"
)

// Config is the per-community record driving the weekly cadence.
type Config struct {
	CommunityID         string
	Timezone            string
	WeekStartDay        time.Weekday
	CommitmentsOpenAt   ClockTime
	CommitmentsCloseAt  ClockTime
	PointsPerWorkout    int
	CommitmentChannelID string
	ProgressChannelID   string
	ParticipantRoleID   string
	UpdatedAt           time.Time
}

// ClockTime is a local wall-clock time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

func ParseClockTime(raw string) (ClockTime, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid clock time %q, expected HH:MM", raw)
	}
	return ClockTime{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func ParseWeekday(raw string) (time.Weekday, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	for day := time.Sunday; day <= time.Saturday; day++ {
		name := strings.ToLower(day.String())
		if value == name || value == name[:3] {
			return day, nil
		}
	}
	return time.Sunday, fmt.Errorf("invalid weekday %q", raw)
}

func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load community timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.CommunityID) == "" {
		return fmt.Errorf("community id is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.PointsPerWorkout <= 0 {
		return fmt.Errorf("points per workout must be > 0")
	}
	for _, ct := range []ClockTime{c.CommitmentsOpenAt, c.CommitmentsCloseAt} {
		if ct.Hour < 0 || ct.Hour > 23 || ct.Minute < 0 || ct.Minute > 59 {
			return fmt.Errorf("invalid clock time %s", ct)
		}
	}
	return nil
}

// Update carries the fields a caller wants to change. Nil fields keep their
// current value, an empty string clears a channel or role reference.
type Update struct {
	Timezone            *string
	WeekStartDay        *time.Weekday
	CommitmentsOpenAt   *ClockTime
	CommitmentsCloseAt  *ClockTime
	PointsPerWorkout    *int
	CommitmentChannelID *string
	ProgressChannelID   *string
	ParticipantRoleID   *string
}

func (u Update) Apply(cfg Config, at time.Time) Config {
	if u.Timezone != nil {
		cfg.Timezone = strings.TrimSpace(*u.Timezone)
	}
	if u.WeekStartDay != nil {
		cfg.WeekStartDay = *u.WeekStartDay
	}
	if u.CommitmentsOpenAt != nil {
		cfg.CommitmentsOpenAt = *u.CommitmentsOpenAt
	}
	if u.CommitmentsCloseAt != nil {
		cfg.CommitmentsCloseAt = *u.CommitmentsCloseAt
	}
	if u.PointsPerWorkout != nil {
		cfg.PointsPerWorkout = *u.PointsPerWorkout
	}
	if u.CommitmentChannelID != nil {
		cfg.CommitmentChannelID = strings.TrimSpace(*u.CommitmentChannelID)
	}
	if u.ProgressChannelID != nil {
		cfg.ProgressChannelID = strings.TrimSpace(*u.ProgressChannelID)
	}
	if u.ParticipantRoleID != nil {
		cfg.ParticipantRoleID = strings.TrimSpace(*u.ParticipantRoleID)
	}
	cfg.UpdatedAt = at
	return cfg
}
