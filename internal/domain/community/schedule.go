package community

import (
	"time"

	"github.com/riskibarqy/forge/internal/domain/week"
)

// WeekBounds computes the week containing now in the community timezone.
// Week length is seven calendar days so consecutive weeks share a boundary
// across daylight saving changes.
func (c Config) WeekBounds(now time.Time) (week.Bounds, error) {
	loc, err := c.Location()
	if err != nil {
		return week.Bounds{}, err
	}

	local := now.In(loc)
	daysBack := (int(local.Weekday()) - int(c.WeekStartDay) + 7) % 7
	year, month, day := local.Date()
	day -= daysBack

	startsAt := time.Date(year, month, day, 0, 0, 0, 0, loc)
	return week.Bounds{
		StartsAt:           startsAt.UTC(),
		CommitmentsOpenAt:  time.Date(year, month, day, c.CommitmentsOpenAt.Hour, c.CommitmentsOpenAt.Minute, 0, 0, loc).UTC(),
		CommitmentsCloseAt: time.Date(year, month, day+1, c.CommitmentsCloseAt.Hour, c.CommitmentsCloseAt.Minute, 0, 0, loc).UTC(),
		EndsAt:             time.Date(year, month, day+7, 0, 0, 0, 0, loc).UTC(),
	}, nil
}
