package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/forge/internal/domain/community"
	"github.com/riskibarqy/forge/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/forge/internal/platform/logging"
)

func TestCommunityConfigService_GetFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	svc := NewCommunityConfigService(memory.NewCommunityConfigRepository(), defaultCommunityConfig(), logging.NewNop())

	got, err := svc.Get(context.Background(), "")
	if err != nil {
		t.Fatalf("get default: %v", err)
	}
	if got != defaultCommunityConfig() {
		t.Fatalf("unexpected default config: %+v", got)
	}

	other, err := svc.Get(context.Background(), "crew-2")
	if err != nil {
		t.Fatalf("get other: %v", err)
	}
	if other.CommunityID != "crew-2" || other.PointsPerWorkout != 10 {
		t.Fatalf("expected defaults under the requested id: %+v", other)
	}
}

func TestCommunityConfigService_Update(t *testing.T) {
	t.Parallel()

	updatedAt := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	svc := NewCommunityConfigService(memory.NewCommunityConfigRepository(), defaultCommunityConfig(), logging.NewNop())
	svc.now = func() time.Time { return updatedAt }

	points := 15
	monday := time.Monday
	channel := " 1234 "
	next, err := svc.Update(context.Background(), "", community.Update{
		PointsPerWorkout:    &points,
		WeekStartDay:        &monday,
		CommitmentChannelID: &channel,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if next.PointsPerWorkout != 15 || next.WeekStartDay != time.Monday || next.CommitmentChannelID != "1234" || !next.UpdatedAt.Equal(updatedAt) {
		t.Fatalf("unexpected updated config: %+v", next)
	}
	if next.Timezone != "Europe/Dublin" {
		t.Fatalf("untouched fields must keep their value: %+v", next)
	}

	stored, err := svc.Get(context.Background(), "forge")
	if err != nil {
		t.Fatalf("get stored: %v", err)
	}
	if stored != next {
		t.Fatalf("stored config differs: got=%+v want=%+v", stored, next)
	}
}

func TestCommunityConfigService_UpdateRejectsInvalid(t *testing.T) {
	t.Parallel()

	svc := NewCommunityConfigService(memory.NewCommunityConfigRepository(), defaultCommunityConfig(), logging.NewNop())

	zero := 0
	badZone := "Mars/Olympus"
	for _, update := range []community.Update{{PointsPerWorkout: &zero}, {Timezone: &badZone}} {
		if _, err := svc.Update(context.Background(), "", update); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected invalid input, got %v", err)
		}
	}

	got, err := svc.Get(context.Background(), "")
	if err != nil || got != defaultCommunityConfig() {
		t.Fatalf("rejected updates must not be stored: %+v err=%v", got, err)
	}
}
