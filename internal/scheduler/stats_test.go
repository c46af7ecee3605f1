package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
)

func TestStatsForWeekAggregatesPriorWeek(t *testing.T) {
	snap := twoExternalsSnapshot()
	prevMonday := testMonday.AddDate(0, 0, -7)
	snap.Assignments = []*domain.Assignment{
		{ID: 1, BrokerID: 1, LocationID: 10, Date: prevMonday, Shift: domain.ShiftMorning},
		{ID: 2, BrokerID: 1, LocationID: 12, Date: prevMonday.AddDate(0, 0, 1), Shift: domain.ShiftMorning},
		{ID: 3, BrokerID: 2, LocationID: 11, Date: prevMonday.AddDate(0, 0, 5), Shift: domain.ShiftMorning}, // Saturday
	}
	e := mustEngine(t, snap)
	idx := NewAssignmentIndex(snap.Assignments, e.locations)

	stats := e.StatsForWeek(idx, testMonday)
	require.Len(t, stats, 2)

	assert.Equal(t, int32(1), stats[1].ExternalCount)
	assert.Equal(t, int32(1), stats[1].InternalCount)
	assert.Equal(t, int32(0), stats[1].SaturdayCount)

	assert.Equal(t, int32(1), stats[2].ExternalCount)
	assert.Equal(t, int32(1), stats[2].SaturdayCount)
}

func TestStatsForWeekFallsBackToPersistedRows(t *testing.T) {
	snap := twoExternalsSnapshot()
	prevMonday := testMonday.AddDate(0, 0, -7)
	snap.FallbackStats = []*domain.WeeklyStat{
		{BrokerID: 1, WeekStart: prevMonday, WeekEnd: prevMonday.AddDate(0, 0, 6), ExternalCount: 2},
		{BrokerID: 1, WeekStart: prevMonday.AddDate(0, 0, -7), ExternalCount: 1}, // older week, ignored
	}
	e := mustEngine(t, snap)
	idx := NewAssignmentIndex(nil, e.locations)

	// No committed rows for the prior week: the persisted aggregate wins.
	stats := e.StatsForWeek(idx, testMonday)
	require.Len(t, stats, 1)
	assert.Equal(t, int32(2), stats[1].ExternalCount)
}

func TestArchiveWeekFeedsFallbackStats(t *testing.T) {
	snap := twoExternalsSnapshot()
	snap.Assignments = []*domain.Assignment{
		{ID: 1, BrokerID: 1, LocationID: 10, Date: testMonday, Shift: domain.ShiftMorning},
	}
	e := mustEngine(t, snap)

	rows := e.ArchiveWeek(testMonday)
	require.Len(t, rows, 1)

	// A later engine without the raw rows reads the archive instead.
	later := mustEngine(t, &Snapshot{
		Brokers:       snap.Brokers,
		Locations:     snap.Locations,
		FallbackStats: rows,
	})
	idx := NewAssignmentIndex(nil, later.locations)
	stats := later.StatsForWeek(idx, testMonday.AddDate(0, 0, 7))
	require.Len(t, stats, 1)
	assert.Equal(t, int32(1), stats[1].ExternalCount)
}

func TestArchiveWeek(t *testing.T) {
	snap := twoExternalsSnapshot()
	snap.Assignments = []*domain.Assignment{
		{ID: 1, BrokerID: 1, LocationID: 10, Date: testMonday, Shift: domain.ShiftMorning},
		{ID: 2, BrokerID: 2, LocationID: 12, Date: testSaturday, Shift: domain.ShiftMorning},
	}
	e := mustEngine(t, snap)

	rows := e.ArchiveWeek(testMonday)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.True(t, row.WeekStart.Equal(testMonday))
		assert.True(t, row.WeekEnd.Equal(testSunday))
	}
}
