package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
)

func replacementSnapshot() *Snapshot {
	return &Snapshot{
		Brokers: []*domain.Broker{newBroker(1, "ana"), newBroker(2, "bruno"), newBroker(3, "carla")},
		Locations: []*domain.Location{
			newLocation(10, "Stand Alfa", domain.LocationExternal, weekdayPeriods(domain.ShiftMorning, domain.ShiftAfternoon)...),
			newLocation(11, "Stand Beta", domain.LocationExternal, weekdayPeriods(domain.ShiftMorning, domain.ShiftAfternoon)...),
			newLocation(12, "Loja Centro", domain.LocationInternal, weekdayPeriods(domain.ShiftMorning, domain.ShiftAfternoon)...),
		},
		Assignments: []*domain.Assignment{
			{ID: 1, BrokerID: 1, LocationID: 10, Date: testMonday, Shift: domain.ShiftMorning},
			{ID: 2, BrokerID: 2, LocationID: 12, Date: testMonday, Shift: domain.ShiftMorning},
		},
	}
}

func TestFindReplacementCandidates(t *testing.T) {
	e := mustEngine(t, replacementSnapshot())

	out, err := e.FindReplacementCandidates(10, testMonday, domain.ShiftMorning, 1)
	require.NoError(t, err)

	// Broker 2 holds an internal assignment at the same half-day: swap pool.
	require.Len(t, out.SwapCandidates, 1)
	assert.Equal(t, int64(2), out.SwapCandidates[0].ID)

	// Broker 3 is free: direct pool. Broker 1 is excluded as the current
	// holder.
	require.Len(t, out.DirectCandidates, 1)
	assert.Equal(t, int64(3), out.DirectCandidates[0].ID)
}

func TestPlanReplacementDirect(t *testing.T) {
	e := mustEngine(t, replacementSnapshot())

	plan, err := e.PlanReplacement(1, 3)
	require.NoError(t, err)

	require.Len(t, plan.Remove, 1)
	assert.Equal(t, int64(1), plan.Remove[0].ID)
	require.Len(t, plan.Add, 1)
	assert.Equal(t, int64(3), plan.Add[0].BrokerID)
	assert.Equal(t, int64(10), plan.Add[0].LocationID)
	assert.Equal(t, domain.ShiftMorning, plan.Add[0].Shift)
}

func TestPlanReplacementSwapReleasesInternalSlot(t *testing.T) {
	e := mustEngine(t, replacementSnapshot())

	plan, err := e.PlanReplacement(1, 2)
	require.NoError(t, err)

	// The swap removes both the external assignment being replaced and the
	// candidate's internal one, and adds exactly one row.
	require.Len(t, plan.Remove, 2)
	assert.Equal(t, int64(1), plan.Remove[0].ID)
	assert.Equal(t, int64(2), plan.Remove[1].ID)
	require.Len(t, plan.Add, 1)
	assert.Equal(t, int64(2), plan.Add[0].BrokerID)

	// Net effect on the total count is -1: two removed, one added.
	assert.Equal(t, len(plan.Remove)-len(plan.Add), 1)
}

func TestPlanReplacementRejectsHardRuleViolation(t *testing.T) {
	snap := replacementSnapshot()
	// Broker 3 already has an external shift on Tuesday; taking over Monday's
	// external slot would create consecutive external days.
	snap.Assignments = append(snap.Assignments, &domain.Assignment{
		ID: 3, BrokerID: 3, LocationID: 11, Date: testTuesday, Shift: domain.ShiftMorning,
	})
	e := mustEngine(t, snap)

	_, err := e.PlanReplacement(1, 3)
	require.Error(t, err)

	var ruleErr *RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, RuleNoConsecutiveExternalDays, ruleErr.RuleID)
}

func TestPlanReplacementRejectsUnavailableCandidate(t *testing.T) {
	snap := replacementSnapshot()
	snap.Brokers[2].Availability = domain.Availability{}
	e := mustEngine(t, snap)

	_, err := e.PlanReplacement(1, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disponibilidade")
}

func TestPlanReplacementUnknownAssignment(t *testing.T) {
	e := mustEngine(t, replacementSnapshot())

	_, err := e.PlanReplacement(999, 3)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestPlanReplacementLeavesSnapshotUntouched(t *testing.T) {
	snap := replacementSnapshot()
	e := mustEngine(t, snap)

	_, err := e.PlanReplacement(1, 2)
	require.NoError(t, err)

	// Planning is a dry run: the committed rows are unchanged.
	assert.Len(t, snap.Assignments, 2)
	idx := NewAssignmentIndex(snap.Assignments, e.locations)
	assert.NotNil(t, idx.Slot(10, testMonday, domain.ShiftMorning))
	assert.NotNil(t, idx.Slot(12, testMonday, domain.ShiftMorning))
}

func TestCheckRelocation(t *testing.T) {
	e := mustEngine(t, replacementSnapshot())

	// Moving assignment 2 to location 10 collides with assignment 1.
	conflict, err := e.CheckRelocation(2, 10)
	require.NoError(t, err)
	assert.True(t, conflict.Occupied)
	require.NotNil(t, conflict.Occupant)
	assert.Equal(t, int64(1), conflict.Occupant.ID)

	// Location 11 is free at that half-day.
	conflict, err = e.CheckRelocation(2, 11)
	require.NoError(t, err)
	assert.False(t, conflict.Occupied)
	assert.Nil(t, conflict.Occupant)
}
