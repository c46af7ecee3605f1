package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
)

func TestValidateCleanSchedule(t *testing.T) {
	snap := twoExternalsSnapshot()
	e := mustEngine(t, snap)

	assignments := []*domain.Assignment{
		{ID: 1, BrokerID: 1, LocationID: 10, Date: testMonday, Shift: domain.ShiftMorning},
		{ID: 2, BrokerID: 2, LocationID: 11, Date: testMonday, Shift: domain.ShiftMorning},
	}
	demands := []DemandSlot{
		{LocationID: 10, Date: testMonday, Shift: domain.ShiftMorning},
		{LocationID: 11, Date: testMonday, Shift: domain.ShiftMorning},
	}

	report := e.Validate(assignments, demands)
	assert.False(t, report.Infeasible)
	assert.Empty(t, report.Violations)
	assert.Empty(t, report.UnallocatedDemands)
	assert.True(t, report.Summary.IsValid)
	assert.Equal(t, 2, report.Summary.TotalBrokers)
	assert.Equal(t, 2, report.Summary.TotalAssignments)
}

func TestValidateFlagsGapsWithoutInfeasibility(t *testing.T) {
	snap := twoExternalsSnapshot()
	e := mustEngine(t, snap)

	assignments := []*domain.Assignment{
		{ID: 1, BrokerID: 1, LocationID: 10, Date: testMonday, Shift: domain.ShiftMorning},
	}
	demands := []DemandSlot{
		{LocationID: 10, Date: testMonday, Shift: domain.ShiftMorning},
		{LocationID: 11, Date: testMonday, Shift: domain.ShiftAfternoon},
	}

	report := e.Validate(assignments, demands)
	assert.False(t, report.Infeasible)
	assert.Equal(t, 1, report.Summary.UnallocatedCount)
	assert.False(t, report.Summary.IsValid)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, RuleUnallocatedShift, report.Violations[0].RuleID)
	assert.Contains(t, report.Violations[0].Detail, "Stand Beta")
}

func TestValidateEmptyScheduleIsInfeasible(t *testing.T) {
	broker := newBroker(1, "ana")
	broker.Availability = domain.Availability{}
	snap := twoExternalsSnapshot()
	snap.Brokers = []*domain.Broker{broker}
	e := mustEngine(t, snap)

	demands := []DemandSlot{
		{LocationID: 10, Date: testMonday, Shift: domain.ShiftMorning},
	}
	report := e.Validate(nil, demands)

	assert.True(t, report.Infeasible)
	assert.Empty(t, report.Brokers)
	require.Len(t, report.Violations, 1)
	assert.Contains(t, report.Violations[0].Detail, "disponibilidade")
	assert.False(t, report.Summary.IsValid)
}

func TestValidateDeduplicatesSymmetricViolations(t *testing.T) {
	snap := twoExternalsSnapshot()
	e := mustEngine(t, snap)

	// Broker 1 holds two externals on the same day; both rows describe the
	// same conflict and must collapse into one violation.
	assignments := []*domain.Assignment{
		{ID: 1, BrokerID: 1, LocationID: 10, Date: testMonday, Shift: domain.ShiftMorning},
		{ID: 2, BrokerID: 1, LocationID: 11, Date: testMonday, Shift: domain.ShiftAfternoon},
	}

	report := e.Validate(assignments, nil)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, RuleNoMultiExternalSameDay, report.Violations[0].RuleID)
	assert.Equal(t, 1, report.Summary.ErrorCount)
	assert.False(t, report.Summary.IsValid)
}

func TestValidateBuildsBrokerReports(t *testing.T) {
	snap := twoExternalsSnapshot()
	e := mustEngine(t, snap)

	nextMonday := testMonday.AddDate(0, 0, 7)
	assignments := []*domain.Assignment{
		{ID: 1, BrokerID: 1, LocationID: 10, Date: testMonday, Shift: domain.ShiftMorning},
		{ID: 2, BrokerID: 1, LocationID: 12, Date: testTuesday, Shift: domain.ShiftMorning},
		{ID: 3, BrokerID: 1, LocationID: 11, Date: nextMonday, Shift: domain.ShiftMorning},
		{ID: 4, BrokerID: 2, LocationID: 10, Date: testSaturday, Shift: domain.ShiftMorning},
	}

	report := e.Validate(assignments, nil)
	require.Len(t, report.Brokers, 2)

	ana := report.Brokers[0]
	assert.Equal(t, int64(1), ana.BrokerID)
	assert.Equal(t, int32(2), ana.ExternalCount)
	assert.Equal(t, int32(1), ana.InternalCount)
	require.Len(t, ana.Weeks, 2)
	assert.True(t, ana.Weeks[0].WeekStart.Equal(testMonday))
	assert.Equal(t, int32(1), ana.Weeks[0].ExternalCount)
	assert.Equal(t, int32(1), ana.Weeks[0].InternalCount)
	assert.Equal(t, []int64{10, 12}, ana.Weeks[0].LocationIDs)

	bruno := report.Brokers[1]
	assert.Equal(t, int32(1), bruno.SaturdayCount)
}

func TestValidateUsesCommittedHistoryAcrossWeeks(t *testing.T) {
	snap := twoExternalsSnapshot()
	delete(snap.Brokers[0].Availability, int32(time.Wednesday)) // fixed day off
	e := mustEngine(t, snap)

	// Same location on the Mondays of two consecutive weeks: warning, not
	// error, and the schedule stays valid.
	assignments := []*domain.Assignment{
		{ID: 1, BrokerID: 1, LocationID: 10, Date: testMonday, Shift: domain.ShiftMorning},
		{ID: 2, BrokerID: 1, LocationID: 10, Date: testMonday.AddDate(0, 0, 7), Shift: domain.ShiftMorning},
	}

	report := e.Validate(assignments, nil)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, RuleNoSameLocationConsecutiveWeeks, report.Violations[0].RuleID)
	assert.Equal(t, 1, report.Summary.WarningCount)
	assert.Equal(t, 0, report.Summary.ErrorCount)
	assert.True(t, report.Summary.IsValid)
}

func TestValidateRangeFlagsConsecutiveExternalsAcrossWeekBoundary(t *testing.T) {
	snap := twoExternalsSnapshot()
	delete(snap.Brokers[0].Availability, int32(time.Wednesday)) // fixed day off
	e := mustEngine(t, snap)

	// Sunday external committed in the prior week, Monday external in the
	// week under validation: consecutive days across the boundary.
	nextMonday := testMonday.AddDate(0, 0, 7)
	assignments := []*domain.Assignment{
		{ID: 1, BrokerID: 1, LocationID: 10, Date: testSunday, Shift: domain.ShiftMorning},
		{ID: 2, BrokerID: 1, LocationID: 11, Date: nextMonday, Shift: domain.ShiftMorning},
	}

	report := e.ValidateRange(assignments, nil, nextMonday, nextMonday.AddDate(0, 0, 6))
	require.Len(t, report.Violations, 1)
	assert.Equal(t, RuleNoConsecutiveExternalDays, report.Violations[0].RuleID)
	assert.False(t, report.Summary.IsValid)

	// Counts cover the requested week only; the Sunday row is context.
	assert.Equal(t, 1, report.Summary.TotalAssignments)

	// Without the context row the conflict is invisible, which is why the
	// caller must pass the adjacent weeks too.
	report = e.ValidateRange(assignments[1:], nil, nextMonday, nextMonday.AddDate(0, 0, 6))
	assert.True(t, report.Summary.IsValid)
}

func TestValidateRangeDropsContextWeekViolations(t *testing.T) {
	snap := twoExternalsSnapshot()
	e := mustEngine(t, snap)

	nextMonday := testMonday.AddDate(0, 0, 7)
	assignments := []*domain.Assignment{
		// Conflict entirely inside the context week, before the range.
		{ID: 1, BrokerID: 1, LocationID: 10, Date: testMonday, Shift: domain.ShiftMorning},
		{ID: 2, BrokerID: 1, LocationID: 11, Date: testMonday, Shift: domain.ShiftAfternoon},
		{ID: 3, BrokerID: 2, LocationID: 10, Date: nextMonday, Shift: domain.ShiftMorning},
	}

	report := e.ValidateRange(assignments, nil, nextMonday, nextMonday.AddDate(0, 0, 6))
	assert.Empty(t, report.Violations)
	assert.True(t, report.Summary.IsValid)
	assert.Equal(t, 1, report.Summary.TotalAssignments)
	require.Len(t, report.Brokers, 1)
	assert.Equal(t, int64(2), report.Brokers[0].BrokerID)
}

func TestValidateIsIdempotent(t *testing.T) {
	snap := twoExternalsSnapshot()
	e := mustEngine(t, snap)

	assignments := []*domain.Assignment{
		{ID: 1, BrokerID: 1, LocationID: 10, Date: testMonday, Shift: domain.ShiftMorning},
		{ID: 2, BrokerID: 1, LocationID: 11, Date: testTuesday, Shift: domain.ShiftMorning},
	}
	demands := []DemandSlot{
		{LocationID: 10, Date: testMonday, Shift: domain.ShiftMorning},
		{LocationID: 11, Date: testTuesday, Shift: domain.ShiftMorning},
	}

	first := e.Validate(assignments, demands)
	second := e.Validate(assignments, demands)
	assert.Equal(t, first.Summary, second.Summary)
	require.Equal(t, len(first.Violations), len(second.Violations))
	for i := range first.Violations {
		assert.Equal(t, first.Violations[i].RuleID, second.Violations[i].RuleID)
		assert.Equal(t, first.Violations[i].BrokerID, second.Violations[i].BrokerID)
	}
}

func TestWeekStart(t *testing.T) {
	assert.True(t, WeekStart(testMonday).Equal(testMonday))
	assert.True(t, WeekStart(testSunday).Equal(testMonday))
	assert.True(t, WeekStart(testSaturday).Equal(testMonday))
	assert.True(t, WeekStart(day(2025, time.June, 9)).Equal(day(2025, time.June, 9)))
}
