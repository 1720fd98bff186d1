package httpapi

import (
	"time"

	"github.com/riskibarqy/forge/internal/domain/commitment"
	"github.com/riskibarqy/forge/internal/domain/community"
	"github.com/riskibarqy/forge/internal/domain/recap"
	"github.com/riskibarqy/forge/internal/domain/user"
	"github.com/riskibarqy/forge/internal/domain/week"
	"github.com/riskibarqy/forge/internal/domain/workout"
	"github.com/riskibarqy/forge/internal/usecase"
)

type memberRequest struct {
	ExternalID string `json:"external_id" validate:"required,max=128"`
}

type setCommitmentRequest struct {
	ExternalID        string `json:"external_id" validate:"required,max=128"`
	CommittedWorkouts *int   `json:"committed_workouts" validate:"required"`
}

type logManualWorkoutRequest struct {
	ExternalID string     `json:"external_id" validate:"required,max=128"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

type messageRefsRequest struct {
	ProgressMessageChannelID   *string `json:"progress_message_channel_id,omitempty"`
	ProgressMessageID          *string `json:"progress_message_id,omitempty"`
	CommitmentMessageChannelID *string `json:"commitment_message_channel_id,omitempty"`
	CommitmentMessageID        *string `json:"commitment_message_id,omitempty"`
}

type communityConfigRequest struct {
	Timezone            *string `json:"timezone,omitempty"`
	WeekStartDay        *string `json:"week_start_day,omitempty"`
	CommitmentsOpenAt   *string `json:"commitments_open_at,omitempty"`
	CommitmentsCloseAt  *string `json:"commitments_close_at,omitempty"`
	PointsPerWorkout    *int    `json:"points_per_workout,omitempty" validate:"omitempty,min=1"`
	CommitmentChannelID *string `json:"commitment_channel_id,omitempty"`
	ProgressChannelID   *string `json:"progress_channel_id,omitempty"`
	ParticipantRoleID   *string `json:"participant_role_id,omitempty"`
}

type processInboxRequest struct {
	EventID string `json:"event_id" validate:"required"`
}

type userDTO struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	JoinedAt   time.Time `json:"joined_at"`
	Timezone   string    `json:"timezone"`
	IsActive   bool      `json:"is_active"`
}

type weekDTO struct {
	ID                         string    `json:"id"`
	Status                     string    `json:"status"`
	StartsAt                   time.Time `json:"starts_at"`
	CommitmentsOpenAt          time.Time `json:"commitments_open_at"`
	CommitmentsCloseAt         time.Time `json:"commitments_close_at"`
	EndsAt                     time.Time `json:"ends_at"`
	GoalPoints                 int       `json:"goal_points"`
	CurrentPoints              int       `json:"current_points"`
	ProgressMessageChannelID   string    `json:"progress_message_channel_id,omitempty"`
	ProgressMessageID          string    `json:"progress_message_id,omitempty"`
	CommitmentMessageChannelID string    `json:"commitment_message_channel_id,omitempty"`
	CommitmentMessageID        string    `json:"commitment_message_id,omitempty"`
}

type commitmentDTO struct {
	ID                string    `json:"id"`
	WeekID            string    `json:"week_id"`
	UserID            string    `json:"user_id"`
	CommittedWorkouts int       `json:"committed_workouts"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type workoutDTO struct {
	ID            string    `json:"id"`
	WeekID        string    `json:"week_id"`
	UserID        string    `json:"user_id"`
	Source        string    `json:"source"`
	SourceEventID string    `json:"source_event_id"`
	OccurredAt    time.Time `json:"occurred_at"`
	PointsAwarded int       `json:"points_awarded"`
}

type loggedWorkoutDTO struct {
	Workout workoutDTO `json:"workout"`
	Week    weekDTO    `json:"week"`
}

type communityProgressDTO struct {
	GoalPoints    int `json:"goal_points"`
	CurrentPoints int `json:"current_points"`
	TotalWorkouts int `json:"total_workouts"`
}

type memberStatusDTO struct {
	User             userDTO               `json:"user"`
	CurrentWeek      *weekDTO              `json:"current_week"`
	Commitment       *commitmentDTO        `json:"commitment"`
	WorkoutsThisWeek int                   `json:"workouts_this_week"`
	Community        *communityProgressDTO `json:"community"`
}

type progressDTO struct {
	Percent           int    `json:"percent"`
	Bar               string `json:"bar"`
	PointsRemaining   int    `json:"points_remaining"`
	WorkoutsRemaining int    `json:"workouts_remaining"`
}

type currentWeekDTO struct {
	Week             weekDTO     `json:"week"`
	CommitmentsCount int         `json:"commitments_count"`
	WorkoutsCount    int         `json:"workouts_count"`
	Progress         progressDTO `json:"progress"`
}

type communityConfigDTO struct {
	CommunityID         string    `json:"community_id"`
	Timezone            string    `json:"timezone"`
	WeekStartDay        string    `json:"week_start_day"`
	CommitmentsOpenAt   string    `json:"commitments_open_at"`
	CommitmentsCloseAt  string    `json:"commitments_close_at"`
	PointsPerWorkout    int       `json:"points_per_workout"`
	CommitmentChannelID string    `json:"commitment_channel_id,omitempty"`
	ProgressChannelID   string    `json:"progress_channel_id,omitempty"`
	ParticipantRoleID   string    `json:"participant_role_id,omitempty"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type overachieverDTO struct {
	UserID  string `json:"user_id"`
	Overage int    `json:"overage"`
}

type recapDTO struct {
	WeekID         string            `json:"week_id"`
	GoalPoints     int               `json:"goal_points"`
	CurrentPoints  int               `json:"current_points"`
	GoalAchieved   bool              `json:"goal_achieved"`
	TotalWorkouts  int               `json:"total_workouts"`
	AboveAndBeyond []overachieverDTO `json:"above_and_beyond"`
	SteadyHands    []string          `json:"steady_hands"`
	ExtraSparks    []string          `json:"extra_sparks"`
}

type endAndOpenDTO struct {
	Ended  *weekDTO  `json:"ended"`
	Recap  *recapDTO `json:"recap"`
	Opened *weekDTO  `json:"opened"`
}

type closeCommitmentsDTO struct {
	Closed *weekDTO `json:"closed"`
}

type tickDTO struct {
	CommunityID      string              `json:"community_id"`
	Due              usecase.DueTriggers `json:"due"`
	Ran              []usecase.Trigger   `json:"ran"`
	EndAndOpen       endAndOpenDTO       `json:"end_and_open"`
	CloseCommitments closeCommitmentsDTO `json:"close_commitments"`
}

func userToDTO(v user.User) userDTO {
	return userDTO{
		ID:         v.ID,
		ExternalID: v.ExternalID,
		JoinedAt:   v.JoinedAt,
		Timezone:   v.Timezone,
		IsActive:   v.IsActive,
	}
}

func weekToDTO(v week.Week) weekDTO {
	return weekDTO{
		ID:                         v.ID,
		Status:                     string(v.Status),
		StartsAt:                   v.StartsAt,
		CommitmentsOpenAt:          v.CommitmentsOpenAt,
		CommitmentsCloseAt:         v.CommitmentsCloseAt,
		EndsAt:                     v.EndsAt,
		GoalPoints:                 v.GoalPoints,
		CurrentPoints:              v.CurrentPoints,
		ProgressMessageChannelID:   v.ProgressMessageChannelID,
		ProgressMessageID:          v.ProgressMessageID,
		CommitmentMessageChannelID: v.CommitmentMessageChannelID,
		CommitmentMessageID:        v.CommitmentMessageID,
	}
}

func optionalWeekToDTO(v *week.Week) *weekDTO {
	if v == nil {
		return nil
	}
	out := weekToDTO(*v)
	return &out
}

func commitmentToDTO(v commitment.Commitment) commitmentDTO {
	return commitmentDTO{
		ID:                v.ID,
		WeekID:            v.WeekID,
		UserID:            v.UserID,
		CommittedWorkouts: v.CommittedWorkouts,
		UpdatedAt:         v.UpdatedAt,
	}
}

func workoutToDTO(v workout.Workout) workoutDTO {
	return workoutDTO{
		ID:            v.ID,
		WeekID:        v.WeekID,
		UserID:        v.UserID,
		Source:        string(v.Source),
		SourceEventID: v.SourceEventID,
		OccurredAt:    v.OccurredAt,
		PointsAwarded: v.PointsAwarded,
	}
}

func memberStatusToDTO(v usecase.MemberStatus) memberStatusDTO {
	out := memberStatusDTO{
		User:             userToDTO(v.User),
		CurrentWeek:      optionalWeekToDTO(v.CurrentWeek),
		WorkoutsThisWeek: v.WorkoutsThisWeek,
	}
	if v.Commitment != nil {
		item := commitmentToDTO(*v.Commitment)
		out.Commitment = &item
	}
	if v.Community != nil {
		out.Community = &communityProgressDTO{
			GoalPoints:    v.Community.GoalPoints,
			CurrentPoints: v.Community.CurrentPoints,
			TotalWorkouts: v.Community.TotalWorkouts,
		}
	}
	return out
}

func currentWeekToDTO(v usecase.CurrentWeekView) currentWeekDTO {
	return currentWeekDTO{
		Week:             weekToDTO(v.Stats.Week),
		CommitmentsCount: v.Stats.CommitmentsCount,
		WorkoutsCount:    v.Stats.WorkoutsCount,
		Progress: progressDTO{
			Percent:           v.Progress.Percent,
			Bar:               v.Progress.Bar,
			PointsRemaining:   v.Progress.PointsRemaining,
			WorkoutsRemaining: v.Progress.WorkoutsRemaining,
		},
	}
}

func communityConfigToDTO(v community.Config) communityConfigDTO {
	return communityConfigDTO{
		CommunityID:         v.CommunityID,
		Timezone:            v.Timezone,
		WeekStartDay:        v.WeekStartDay.String(),
		CommitmentsOpenAt:   v.CommitmentsOpenAt.String(),
		CommitmentsCloseAt:  v.CommitmentsCloseAt.String(),
		PointsPerWorkout:    v.PointsPerWorkout,
		CommitmentChannelID: v.CommitmentChannelID,
		ProgressChannelID:   v.ProgressChannelID,
		ParticipantRoleID:   v.ParticipantRoleID,
		UpdatedAt:           v.UpdatedAt,
	}
}

func recapToDTO(v *recap.Summary) *recapDTO {
	if v == nil {
		return nil
	}
	out := &recapDTO{
		WeekID:         v.WeekID,
		GoalPoints:     v.GoalPoints,
		CurrentPoints:  v.CurrentPoints,
		GoalAchieved:   v.GoalAchieved,
		TotalWorkouts:  v.TotalWorkouts,
		AboveAndBeyond: make([]overachieverDTO, 0, len(v.Result.AboveAndBeyond)),
		SteadyHands:    append([]string{}, v.Result.SteadyHands...),
		ExtraSparks:    append([]string{}, v.Result.ExtraSparks...),
	}
	for _, item := range v.Result.AboveAndBeyond {
		out.AboveAndBeyond = append(out.AboveAndBeyond, overachieverDTO{UserID: item.UserID, Overage: item.Overage})
	}
	return out
}

func endAndOpenToDTO(v usecase.EndAndOpenResult) endAndOpenDTO {
	return endAndOpenDTO{
		Ended:  optionalWeekToDTO(v.Ended),
		Recap:  recapToDTO(v.Recap),
		Opened: optionalWeekToDTO(v.Opened),
	}
}

func closeCommitmentsToDTO(v usecase.CloseCommitmentsResult) closeCommitmentsDTO {
	return closeCommitmentsDTO{Closed: optionalWeekToDTO(v.Closed)}
}

func tickToDTO(v usecase.LifecycleTickResult) tickDTO {
	ran := v.Ran
	if ran == nil {
		ran = []usecase.Trigger{}
	}
	return tickDTO{
		CommunityID:      v.CommunityID,
		Due:              v.Due,
		Ran:              ran,
		EndAndOpen:       endAndOpenToDTO(v.EndAndOpen),
		CloseCommitments: closeCommitmentsToDTO(v.CloseCommitments),
	}
}
