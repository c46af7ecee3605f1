package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
)

func weekdayPeriods(shifts ...domain.Shift) []domain.LocationPeriod {
	var periods []domain.LocationPeriod
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		periods = append(periods, openPeriod(wd, shifts...))
	}
	return periods
}

func twoExternalsSnapshot() *Snapshot {
	return &Snapshot{
		Brokers: []*domain.Broker{newBroker(1, "ana"), newBroker(2, "bruno")},
		Locations: []*domain.Location{
			newLocation(10, "Stand Alfa", domain.LocationExternal, weekdayPeriods(domain.ShiftMorning, domain.ShiftAfternoon)...),
			newLocation(11, "Stand Beta", domain.LocationExternal, weekdayPeriods(domain.ShiftMorning, domain.ShiftAfternoon)...),
			newLocation(12, "Loja Centro", domain.LocationInternal, weekdayPeriods(domain.ShiftMorning, domain.ShiftAfternoon)...),
		},
	}
}

func TestNoMultiExternalSameDay(t *testing.T) {
	snap := twoExternalsSnapshot()
	snap.Assignments = []*domain.Assignment{
		{ID: 1, BrokerID: 1, LocationID: 10, Date: testMonday, Shift: domain.ShiftMorning},
	}
	e := mustEngine(t, snap)
	idx := NewAssignmentIndex(snap.Assignments, e.locations)
	rule := findRule(t, RuleNoMultiExternalSameDay)

	target := &domain.Assignment{BrokerID: 1, LocationID: 11, Date: testMonday, Shift: domain.ShiftAfternoon}
	vs := rule.Evaluate(ruleCtx(e, idx, target))
	assert.Len(t, vs, 1)
	assert.Equal(t, domain.SeverityError, vs[0].Severity)
	assert.Equal(t, int64(1), vs[0].BrokerID)

	// Internal plus external on the same day is allowed.
	internal := &domain.Assignment{BrokerID: 1, LocationID: 12, Date: testMonday, Shift: domain.ShiftAfternoon}
	assert.Empty(t, rule.Evaluate(ruleCtx(e, idx, internal)))
}

func TestCompetingGroupConflict(t *testing.T) {
	snap := twoExternalsSnapshot()
	snap.Locations[0].CompetingGroup = "construtora-x"
	snap.Locations[1].CompetingGroup = "construtora-x"
	snap.Assignments = []*domain.Assignment{
		{ID: 1, BrokerID: 1, LocationID: 10, Date: testMonday, Shift: domain.ShiftMorning},
	}
	e := mustEngine(t, snap)
	idx := NewAssignmentIndex(snap.Assignments, e.locations)
	rule := findRule(t, RuleCompetingGroupConflict)

	target := &domain.Assignment{BrokerID: 1, LocationID: 11, Date: testMonday, Shift: domain.ShiftAfternoon}
	vs := rule.Evaluate(ruleCtx(e, idx, target))
	assert.Len(t, vs, 1)
	assert.Contains(t, vs[0].Detail, "construtora-x")

	// Different group: no conflict.
	snap.Locations[1].CompetingGroup = "construtora-y"
	assert.Empty(t, rule.Evaluate(ruleCtx(e, idx, target)))
}

func TestNoConsecutiveExternalDays(t *testing.T) {
	snap := twoExternalsSnapshot()
	snap.Assignments = []*domain.Assignment{
		{ID: 1, BrokerID: 1, LocationID: 10, Date: testMonday, Shift: domain.ShiftMorning},
	}
	e := mustEngine(t, snap)
	idx := NewAssignmentIndex(snap.Assignments, e.locations)
	rule := findRule(t, RuleNoConsecutiveExternalDays)

	target := &domain.Assignment{BrokerID: 1, LocationID: 11, Date: testTuesday, Shift: domain.ShiftMorning}
	vs := rule.Evaluate(ruleCtx(e, idx, target))
	assert.Len(t, vs, 1)
	assert.ElementsMatch(t, []time.Time{testMonday, testTuesday}, vs[0].Dates)

	// One day of gap is fine.
	gap := &domain.Assignment{BrokerID: 1, LocationID: 11, Date: testMonday.AddDate(0, 0, 2), Shift: domain.ShiftMorning}
	assert.Empty(t, rule.Evaluate(ruleCtx(e, idx, gap)))
}

func TestNoSatSunExternal(t *testing.T) {
	snap := twoExternalsSnapshot()
	snap.Assignments = []*domain.Assignment{
		{ID: 1, BrokerID: 1, LocationID: 10, Date: testSaturday, Shift: domain.ShiftMorning},
	}
	e := mustEngine(t, snap)
	idx := NewAssignmentIndex(snap.Assignments, e.locations)
	rule := findRule(t, RuleNoSatSunExternal)

	target := &domain.Assignment{BrokerID: 1, LocationID: 11, Date: testSunday, Shift: domain.ShiftMorning}
	vs := rule.Evaluate(ruleCtx(e, idx, target))
	assert.Len(t, vs, 1)

	// Sunday at an internal location pairs fine with the Saturday external.
	internal := &domain.Assignment{BrokerID: 1, LocationID: 12, Date: testSunday, Shift: domain.ShiftMorning}
	assert.Empty(t, rule.Evaluate(ruleCtx(e, idx, internal)))
}

func TestNoSameLocationConsecutiveWeeks(t *testing.T) {
	snap := twoExternalsSnapshot()
	snap.Assignments = []*domain.Assignment{
		{ID: 1, BrokerID: 1, LocationID: 10, Date: testMonday.AddDate(0, 0, -7), Shift: domain.ShiftMorning},
	}
	e := mustEngine(t, snap)
	idx := NewAssignmentIndex(snap.Assignments, e.locations)
	rule := findRule(t, RuleNoSameLocationConsecutiveWeeks)

	target := &domain.Assignment{BrokerID: 1, LocationID: 10, Date: testMonday, Shift: domain.ShiftMorning}
	vs := rule.Evaluate(ruleCtx(e, idx, target))
	assert.Len(t, vs, 1)
	assert.Equal(t, domain.SeverityWarning, vs[0].Severity)

	// A different location in the next week is fine.
	other := &domain.Assignment{BrokerID: 1, LocationID: 11, Date: testMonday, Shift: domain.ShiftMorning}
	assert.Empty(t, rule.Evaluate(ruleCtx(e, idx, other)))
}

func TestMaxTwoExternalPerWeek(t *testing.T) {
	snap := twoExternalsSnapshot()
	snap.Assignments = []*domain.Assignment{
		{ID: 1, BrokerID: 1, LocationID: 10, Date: testMonday, Shift: domain.ShiftMorning},
		{ID: 2, BrokerID: 1, LocationID: 11, Date: testMonday.AddDate(0, 0, 2), Shift: domain.ShiftMorning},
	}
	e := mustEngine(t, snap)
	idx := NewAssignmentIndex(snap.Assignments, e.locations)
	rule := findRule(t, RuleMaxTwoExternalPerWeek)

	third := &domain.Assignment{BrokerID: 1, LocationID: 10, Date: testMonday.AddDate(0, 0, 4), Shift: domain.ShiftMorning}
	vs := rule.Evaluate(ruleCtx(e, idx, third))
	assert.Len(t, vs, 1)

	// The count is per week: the following Monday starts from zero.
	nextWeek := &domain.Assignment{BrokerID: 1, LocationID: 11, Date: testMonday.AddDate(0, 0, 7), Shift: domain.ShiftMorning}
	assert.Empty(t, rule.Evaluate(ruleCtx(e, idx, nextWeek)))
}

func TestWeeklyLoadAlternation(t *testing.T) {
	snap := twoExternalsSnapshot()
	e := mustEngine(t, snap)
	idx := NewAssignmentIndex(nil, e.locations)
	rule := findRule(t, RuleWeeklyLoadAlternation)

	target := &domain.Assignment{BrokerID: 1, LocationID: 10, Date: testMonday, Shift: domain.ShiftMorning}
	ctx := ruleCtx(e, idx, target)
	ctx.PrevWeekExternal = map[int64]int32{1: 1}

	// Previous week had 1 external; taking exactly 1 again repeats the load.
	vs := rule.Evaluate(ctx)
	assert.Len(t, vs, 1)
	assert.Equal(t, domain.SeverityWarning, vs[0].Severity)

	// With one external already committed this week the target makes 2,
	// which alternates correctly after a 1-external week.
	committed := &domain.Assignment{ID: 5, BrokerID: 1, LocationID: 11, Date: testMonday.AddDate(0, 0, 2), Shift: domain.ShiftMorning}
	idx.Add(committed)
	assert.Empty(t, rule.Evaluate(ctx))

	// Brokers with a fixed day off are exempt.
	idx.Remove(committed)
	delete(e.brokers[1].Availability, int32(time.Wednesday))
	assert.Empty(t, rule.Evaluate(ctx))
}

func TestTwoBeforeThree(t *testing.T) {
	snap := twoExternalsSnapshot()
	snap.Assignments = []*domain.Assignment{
		{ID: 1, BrokerID: 1, LocationID: 10, Date: testMonday, Shift: domain.ShiftMorning},
		{ID: 2, BrokerID: 1, LocationID: 11, Date: testMonday.AddDate(0, 0, 2), Shift: domain.ShiftMorning},
	}
	e := mustEngine(t, snap)
	idx := NewAssignmentIndex(snap.Assignments, e.locations)
	rule := findRule(t, RuleTwoBeforeThree)

	third := &domain.Assignment{BrokerID: 1, LocationID: 10, Date: testMonday.AddDate(0, 0, 4), Shift: domain.ShiftMorning}
	ctx := ruleCtx(e, idx, third)
	ctx.Pool = []int64{1, 2}

	// Broker 2 has zero externals, so broker 1 taking a third is flagged.
	vs := rule.Evaluate(ctx)
	assert.Len(t, vs, 1)

	// Once every pool member has 2, a third is acceptable.
	idx.Add(&domain.Assignment{ID: 3, BrokerID: 2, LocationID: 10, Date: testMonday, Shift: domain.ShiftAfternoon})
	idx.Add(&domain.Assignment{ID: 4, BrokerID: 2, LocationID: 11, Date: testMonday.AddDate(0, 0, 2), Shift: domain.ShiftAfternoon})
	assert.Empty(t, rule.Evaluate(ctx))
}

func TestSundayConcentration(t *testing.T) {
	snap := twoExternalsSnapshot()
	prevSunday := testSunday.AddDate(0, 0, -7)
	snap.Assignments = []*domain.Assignment{
		{ID: 1, BrokerID: 1, LocationID: 10, Date: prevSunday.AddDate(0, 0, -7), Shift: domain.ShiftMorning},
		{ID: 2, BrokerID: 1, LocationID: 10, Date: prevSunday, Shift: domain.ShiftMorning},
	}
	e := mustEngine(t, snap)
	idx := NewAssignmentIndex(snap.Assignments, e.locations)
	rule := findRule(t, RuleSundayConcentration)

	target := &domain.Assignment{BrokerID: 1, LocationID: 10, Date: testSunday, Shift: domain.ShiftMorning}
	ctx := ruleCtx(e, idx, target)
	ctx.QueueSize = 2

	// Broker 1 would hold all 3 Sundays while the rotation has 2 members.
	vs := rule.Evaluate(ctx)
	assert.Len(t, vs, 1)
	assert.Equal(t, domain.SeverityWarning, vs[0].Severity)

	// A broker without prior Sundays is within the expected share.
	fresh := &domain.Assignment{BrokerID: 2, LocationID: 10, Date: testSunday, Shift: domain.ShiftMorning}
	freshCtx := ruleCtx(e, idx, fresh)
	freshCtx.QueueSize = 2
	assert.Empty(t, rule.Evaluate(freshCtx))
}

func TestRuleCatalogStableOrder(t *testing.T) {
	first := Rules()
	second := Rules()
	assert.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}

	hard := map[string]bool{}
	for _, r := range first {
		if r.Hard {
			hard[r.ID] = true
			assert.Equal(t, domain.SeverityError, r.Severity, "hard rule %s must be an error", r.ID)
		}
	}
	assert.True(t, hard[RuleNoMultiExternalSameDay])
	assert.True(t, hard[RuleCompetingGroupConflict])
	assert.True(t, hard[RuleNoConsecutiveExternalDays])
	assert.True(t, hard[RuleNoSatSunExternal])
	assert.Len(t, hard, 4)
}
