package scheduler

import (
	"time"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
)

// StatsForWeek aggregates each broker's counts for the week before
// weekStart. The primary source is the committed assignment rows; when the
// prior week has no rows at all (first run, or archived history) the
// persisted fallback stats are used instead. Idempotent and side-effect
// free.
func (e *Engine) StatsForWeek(idx *AssignmentIndex, weekStart time.Time) map[int64]*domain.WeeklyStat {
	prevStart := WeekStart(weekStart).AddDate(0, 0, -7)
	stats := aggregateWeek(idx, e.locations, prevStart)
	if len(stats) > 0 {
		return stats
	}

	// Fall back to the persisted aggregate table.
	stats = make(map[int64]*domain.WeeklyStat)
	for _, s := range e.snap.FallbackStats {
		if sameDate(s.WeekStart, prevStart) {
			stats[s.BrokerID] = s
		}
	}
	return stats
}

// ArchiveWeek materializes the derived stats of a week into rows suitable
// for the fallback table. Only the archival path ever writes that table.
func (e *Engine) ArchiveWeek(weekStart time.Time) []*domain.WeeklyStat {
	idx := NewAssignmentIndex(e.snap.Assignments, e.locations)
	stats := aggregateWeek(idx, e.locations, WeekStart(weekStart))
	out := make([]*domain.WeeklyStat, 0, len(stats))
	for _, s := range stats {
		out = append(out, s)
	}
	return out
}

func aggregateWeek(idx *AssignmentIndex, locations map[int64]*domain.Location, weekStart time.Time) map[int64]*domain.WeeklyStat {
	weekEnd := weekStart.AddDate(0, 0, 6)
	stats := make(map[int64]*domain.WeeklyStat)

	for _, a := range idx.All() {
		if !sameWeek(a.Date, weekStart) {
			continue
		}

		s, ok := stats[a.BrokerID]
		if !ok {
			s = &domain.WeeklyStat{
				BrokerID:  a.BrokerID,
				WeekStart: weekStart,
				WeekEnd:   weekEnd,
			}
			stats[a.BrokerID] = s
		}

		loc := locations[a.LocationID]
		if loc != nil && loc.Type == domain.LocationExternal {
			s.ExternalCount++
		} else {
			s.InternalCount++
		}
		if a.Date.Weekday() == time.Saturday {
			s.SaturdayCount++
		}
	}

	return stats
}

func sameWeek(date, weekStart time.Time) bool {
	return sameDate(WeekStart(date), WeekStart(weekStart))
}
