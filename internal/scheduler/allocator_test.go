package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
)

func TestGenerateNoActiveLocations(t *testing.T) {
	snap := &Snapshot{
		Brokers:   []*domain.Broker{newBroker(1, "ana")},
		Locations: []*domain.Location{},
	}
	e := mustEngine(t, snap)

	_, err := e.Generate([]time.Time{testMonday})
	assert.ErrorIs(t, err, ErrNoLocations)
}

func TestGenerateFillsDemandDeterministically(t *testing.T) {
	build := func() *Snapshot {
		return &Snapshot{
			Brokers: []*domain.Broker{newBroker(1, "ana"), newBroker(2, "bruno"), newBroker(3, "carla")},
			Locations: []*domain.Location{
				newLocation(10, "Stand Alfa", domain.LocationExternal,
					openPeriod(time.Monday, domain.ShiftMorning),
					openPeriod(time.Wednesday, domain.ShiftMorning),
				),
				newLocation(12, "Loja Centro", domain.LocationInternal,
					openPeriod(time.Monday, domain.ShiftMorning, domain.ShiftAfternoon),
				),
			},
		}
	}

	e := mustEngine(t, build())
	result, err := e.Generate([]time.Time{testMonday})
	require.NoError(t, err)

	assert.Len(t, result.Assignments, 4)
	assert.Empty(t, result.Unallocated)
	assert.Empty(t, result.Violations)

	// Same snapshot, fresh engine, identical output.
	again, err := mustEngine(t, build()).Generate([]time.Time{testMonday})
	require.NoError(t, err)
	require.Len(t, again.Assignments, len(result.Assignments))
	for i, a := range result.Assignments {
		b := again.Assignments[i]
		assert.Equal(t, a.BrokerID, b.BrokerID)
		assert.Equal(t, a.LocationID, b.LocationID)
		assert.True(t, a.Date.Equal(b.Date))
		assert.Equal(t, a.Shift, b.Shift)
	}
}

func TestGenerateNeverDoubleBooks(t *testing.T) {
	snap := &Snapshot{
		Brokers: []*domain.Broker{newBroker(1, "ana"), newBroker(2, "bruno")},
		Locations: []*domain.Location{
			newLocation(10, "Stand Alfa", domain.LocationExternal, openPeriod(time.Monday, domain.ShiftMorning, domain.ShiftAfternoon)),
			newLocation(11, "Stand Beta", domain.LocationExternal, openPeriod(time.Monday, domain.ShiftMorning, domain.ShiftAfternoon)),
			newLocation(12, "Loja Centro", domain.LocationInternal, openPeriod(time.Monday, domain.ShiftMorning, domain.ShiftAfternoon)),
		},
	}
	e := mustEngine(t, snap)
	result, err := e.Generate([]time.Time{testMonday})
	require.NoError(t, err)

	brokerHalfDay := make(map[string]bool)
	slots := make(map[string]bool)
	for _, a := range result.Assignments {
		bk := brokerDateKey(a.BrokerID, a.Date) + "|" + string(a.Shift)
		assert.False(t, brokerHalfDay[bk], "broker %d booked twice at %s %s", a.BrokerID, a.Date, a.Shift)
		brokerHalfDay[bk] = true

		sk := slotKey(a.LocationID, a.Date, a.Shift)
		assert.False(t, slots[sk], "slot %s filled twice", sk)
		slots[sk] = true
	}
}

func TestGenerateAvoidsConsecutiveExternalDays(t *testing.T) {
	snap := &Snapshot{
		Brokers: []*domain.Broker{newBroker(1, "ana"), newBroker(2, "bruno")},
		Locations: []*domain.Location{
			newLocation(10, "Stand Alfa", domain.LocationExternal,
				openPeriod(time.Monday, domain.ShiftMorning),
				openPeriod(time.Tuesday, domain.ShiftMorning),
			),
		},
	}
	e := mustEngine(t, snap)
	result, err := e.Generate([]time.Time{testMonday})
	require.NoError(t, err)

	require.Len(t, result.Assignments, 2)
	monday, tuesday := result.Assignments[0], result.Assignments[1]
	assert.True(t, monday.Date.Equal(testMonday))
	assert.True(t, tuesday.Date.Equal(testTuesday))
	assert.NotEqual(t, monday.BrokerID, tuesday.BrokerID)
	assert.Empty(t, result.Violations)
}

func TestGenerateRelaxesWeeklyCapWhenForced(t *testing.T) {
	// One broker, three non-adjacent external days. The third slot cannot be
	// filled under the weekly cap, so it becomes a justified exception.
	snap := &Snapshot{
		Brokers: []*domain.Broker{newBroker(1, "ana")},
		Locations: []*domain.Location{
			newLocation(10, "Stand Alfa", domain.LocationExternal,
				openPeriod(time.Monday, domain.ShiftMorning),
				openPeriod(time.Wednesday, domain.ShiftMorning),
				openPeriod(time.Friday, domain.ShiftMorning),
			),
		},
	}
	e := mustEngine(t, snap)
	result, err := e.Generate([]time.Time{testMonday})
	require.NoError(t, err)
	require.Len(t, result.Assignments, 3)

	third := result.Assignments[2]
	assert.True(t, third.IsException)
	assert.Equal(t, RuleMaxTwoExternalPerWeek, third.ExceptionRule)
	assert.NotEmpty(t, third.Justification)
	assert.NotEmpty(t, result.Violations)
}

func TestGeneratePrefersUnderCapBroker(t *testing.T) {
	// Broker 1 already holds two externals this week; broker 2 holds none.
	// The new slot must go to broker 2 even though broker 1 has the lower ID.
	snap := &Snapshot{
		Brokers: []*domain.Broker{newBroker(1, "ana"), newBroker(2, "bruno")},
		Locations: []*domain.Location{
			newLocation(10, "Stand Alfa", domain.LocationExternal, openPeriod(time.Friday, domain.ShiftMorning)),
			newLocation(11, "Stand Beta", domain.LocationExternal,
				openPeriod(time.Monday, domain.ShiftMorning),
				openPeriod(time.Wednesday, domain.ShiftMorning),
			),
		},
		Assignments: []*domain.Assignment{
			{ID: 1, BrokerID: 1, LocationID: 11, Date: testMonday, Shift: domain.ShiftMorning},
			{ID: 2, BrokerID: 1, LocationID: 11, Date: testMonday.AddDate(0, 0, 2), Shift: domain.ShiftMorning},
		},
	}
	snap.Locations[1].IsActive = false // only the Friday slot is demanded

	e := mustEngine(t, snap)
	result, err := e.Generate([]time.Time{testMonday})
	require.NoError(t, err)

	require.Len(t, result.Assignments, 1)
	assert.Equal(t, int64(2), result.Assignments[0].BrokerID)
}

func TestGenerateSkipsLockedWeeks(t *testing.T) {
	snap := &Snapshot{
		Brokers: []*domain.Broker{newBroker(1, "ana")},
		Locations: []*domain.Location{
			newLocation(10, "Stand Alfa", domain.LocationExternal, openPeriod(time.Monday, domain.ShiftMorning)),
		},
		LockedWeeks: []time.Time{testMonday},
	}
	e := mustEngine(t, snap)

	nextMonday := testMonday.AddDate(0, 0, 7)
	result, err := e.Generate([]time.Time{testMonday, nextMonday})
	require.NoError(t, err)

	require.Len(t, result.SkippedWeeks, 1)
	assert.True(t, result.SkippedWeeks[0].Equal(testMonday))
	require.Len(t, result.Assignments, 1)
	assert.True(t, result.Assignments[0].Date.Equal(nextMonday))
}

func TestGenerateFollowsSaturdayRotation(t *testing.T) {
	lastSat := testSaturday.AddDate(0, 0, -7)
	snap := &Snapshot{
		Brokers: []*domain.Broker{newBroker(1, "ana"), newBroker(2, "bruno"), newBroker(3, "carla")},
		Locations: []*domain.Location{
			newLocation(10, "Stand Alfa", domain.LocationExternal, openPeriod(time.Saturday, domain.ShiftMorning)),
		},
		QueueEntries: []*domain.SaturdayQueueEntry{
			{LocationID: 10, BrokerID: 1, Position: 3, Active: true, LastSaturday: &lastSat, TimesWorked: 1},
			{LocationID: 10, BrokerID: 2, Position: 1, Active: true},
			{LocationID: 10, BrokerID: 3, Position: 2, Active: true},
		},
	}
	e := mustEngine(t, snap)
	result, err := e.Generate([]time.Time{testMonday})
	require.NoError(t, err)

	// Head of the rotation, not the lowest broker ID.
	require.Len(t, result.Assignments, 1)
	assert.Equal(t, int64(2), result.Assignments[0].BrokerID)

	// The allocated broker moved to the back and the entries come back for
	// persistence.
	require.Len(t, result.QueueEntries, 3)
	assert.Equal(t, []int64{3, 1, 2}, activeIDs(e.Queue(10)))
}

func TestGenerateReportsUnallocatedSlots(t *testing.T) {
	broker := newBroker(1, "ana")
	broker.Availability = domain.Availability{} // available for nothing
	snap := &Snapshot{
		Brokers: []*domain.Broker{broker},
		Locations: []*domain.Location{
			newLocation(10, "Stand Alfa", domain.LocationExternal, openPeriod(time.Monday, domain.ShiftMorning)),
		},
	}
	e := mustEngine(t, snap)
	result, err := e.Generate([]time.Time{testMonday})
	require.NoError(t, err)

	assert.Empty(t, result.Assignments)
	require.Len(t, result.Unallocated, 1)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, RuleUnallocatedShift, result.Violations[0].RuleID)
	assert.Equal(t, domain.SeverityError, result.Violations[0].Severity)
}

func TestBuildDemandHonorsOverrides(t *testing.T) {
	loc := newLocation(10, "Stand Alfa", domain.LocationExternal,
		openPeriod(time.Monday, domain.ShiftMorning, domain.ShiftAfternoon),
		openPeriod(time.Tuesday, domain.ShiftMorning),
	)
	loc.Overrides = []domain.LocationOverride{
		{Date: testMonday, Shifts: []domain.Shift{domain.ShiftAfternoon}}, // morning closed
		{Date: testTuesday, Shifts: nil},                                  // whole day closed
	}
	snap := &Snapshot{
		Brokers:   []*domain.Broker{newBroker(1, "ana")},
		Locations: []*domain.Location{loc},
	}
	e := mustEngine(t, snap)

	demands := e.BuildDemand(testMonday)
	require.Len(t, demands, 1)
	assert.True(t, demands[0].Date.Equal(testMonday))
	assert.Equal(t, domain.ShiftAfternoon, demands[0].Shift)
}
