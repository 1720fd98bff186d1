package notifier

import (
	"context"

	"github.com/riskibarqy/forge/internal/domain/recap"
	"github.com/riskibarqy/forge/internal/domain/week"
	"github.com/riskibarqy/forge/internal/platform/logging"
)

// Log writes every lifecycle event to the structured log.
type Log struct {
	logger *logging.Logger
}

func NewLog(logger *logging.Logger) *Log {
	if logger == nil {
		logger = logging.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) OnWeekOpened(ctx context.Context, w week.Week) error {
	l.logger.InfoContext(ctx, "week opened",
		"week_id", w.ID,
		"starts_at", w.StartsAt,
		"commitments_close_at", w.CommitmentsCloseAt,
		"ends_at", w.EndsAt,
	)
	return nil
}

func (l *Log) OnWeekClosed(ctx context.Context, w week.Week) error {
	l.logger.InfoContext(ctx, "week commitments closed", "week_id", w.ID, "goal_points", w.GoalPoints)
	return nil
}

func (l *Log) OnWeekEnded(ctx context.Context, w week.Week, summary recap.Summary) error {
	l.logger.InfoContext(ctx, "week ended",
		"week_id", w.ID,
		"goal_points", summary.GoalPoints,
		"current_points", summary.CurrentPoints,
		"goal_achieved", summary.GoalAchieved,
		"total_workouts", summary.TotalWorkouts,
		"above_and_beyond", len(summary.Result.AboveAndBeyond),
		"steady_hands", len(summary.Result.SteadyHands),
		"extra_sparks", len(summary.Result.ExtraSparks),
	)
	return nil
}

func (l *Log) OnPointsChanged(ctx context.Context, w week.Week) error {
	l.logger.DebugContext(ctx, "week points changed", "week_id", w.ID, "current_points", w.CurrentPoints, "goal_points", w.GoalPoints)
	return nil
}
