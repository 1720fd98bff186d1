package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/forge/internal/domain/community"
	"github.com/riskibarqy/forge/internal/platform/logging"
)

// CommunityConfigService resolves the cadence record of a community. Defaults
// come from the caller and apply until a record is stored.
type CommunityConfigService struct {
	repo     community.Repository
	defaults community.Config
	logger   *logging.Logger
	now      func() time.Time
}

func NewCommunityConfigService(repo community.Repository, defaults community.Config, logger *logging.Logger) *CommunityConfigService {
	if logger == nil {
		logger = logging.Default()
	}
	return &CommunityConfigService{
		repo:     repo,
		defaults: defaults,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *CommunityConfigService) DefaultCommunityID() string {
	return s.defaults.CommunityID
}

func (s *CommunityConfigService) Get(ctx context.Context, communityID string) (community.Config, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CommunityConfigService.Get")
	defer span.End()

	communityID = strings.TrimSpace(communityID)
	if communityID == "" {
		communityID = s.defaults.CommunityID
	}

	cfg, exists, err := s.repo.Get(ctx, communityID)
	if err != nil {
		return community.Config{}, fmt.Errorf("get community config id=%s: %w", communityID, err)
	}
	if !exists {
		cfg = s.defaults
		cfg.CommunityID = communityID
	}
	return cfg, nil
}

func (s *CommunityConfigService) Update(ctx context.Context, communityID string, update community.Update) (community.Config, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CommunityConfigService.Update")
	defer span.End()

	current, err := s.Get(ctx, communityID)
	if err != nil {
		return community.Config{}, err
	}

	next := update.Apply(current, s.now().UTC())
	if err := next.Validate(); err != nil {
		return community.Config{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := s.repo.Upsert(ctx, next); err != nil {
		return community.Config{}, fmt.Errorf("upsert community config id=%s: %w", next.CommunityID, err)
	}

	s.logger.InfoContext(ctx, "community config updated",
		"community_id", next.CommunityID,
		"timezone", next.Timezone,
		"week_start_day", next.WeekStartDay.String(),
		"points_per_workout", next.PointsPerWorkout,
	)
	return next, nil
}
