package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Reference week used across the tests: Monday 2025-06-02 through Sunday
// 2025-06-08.
var (
	testMonday   = day(2025, time.June, 2)
	testTuesday  = day(2025, time.June, 3)
	testSaturday = day(2025, time.June, 7)
	testSunday   = day(2025, time.June, 8)
)

func fullAvailability() domain.Availability {
	av := domain.Availability{}
	for wd := int32(0); wd < 7; wd++ {
		av[wd] = []domain.Shift{domain.ShiftMorning, domain.ShiftAfternoon}
	}
	return av
}

func newBroker(id int64, name string) *domain.Broker {
	return &domain.Broker{
		ID:           id,
		Username:     name,
		FullName:     name,
		Role:         domain.RoleBroker,
		IsActive:     true,
		Availability: fullAvailability(),
	}
}

func openPeriod(weekday time.Weekday, shifts ...domain.Shift) domain.LocationPeriod {
	return domain.LocationPeriod{
		StartDate: day(2025, time.January, 1),
		EndDate:   day(2025, time.December, 31),
		Weekday:   int32(weekday),
		Shifts:    shifts,
	}
}

func newLocation(id int64, name string, typ domain.LocationType, periods ...domain.LocationPeriod) *domain.Location {
	return &domain.Location{
		ID:       id,
		Name:     name,
		Type:     typ,
		IsActive: true,
		Periods:  periods,
	}
}

func mustEngine(t *testing.T, snap *Snapshot) *Engine {
	t.Helper()
	e, err := New(snap)
	require.NoError(t, err)
	return e
}

func ruleCtx(e *Engine, idx *AssignmentIndex, target *domain.Assignment) *RuleContext {
	return &RuleContext{
		Target:    target,
		Broker:    e.brokers[target.BrokerID],
		Location:  e.locations[target.LocationID],
		Index:     idx,
		Locations: e.locations,
	}
}

func findRule(t *testing.T, id string) Rule {
	t.Helper()
	for _, r := range Rules() {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("rule %s not in catalog", id)
	return Rule{}
}
