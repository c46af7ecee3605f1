package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
)

// DemandSlot is one (location, date, shift) slot that needs a broker.
type DemandSlot struct {
	LocationID int64        `json:"locationID"`
	Date       time.Time    `json:"date"`
	Shift      domain.Shift `json:"shift"`
}

// Snapshot is everything the engine reads. It is loaded by the caller and
// never mutated by the engine; generated assignments are returned, not
// written back.
//
// Assignments must contain the committed history relevant to the target
// range, including locked weeks and the weeks adjacent to the ones being
// generated, but must NOT contain rows for unlocked weeks that are about to
// be regenerated (the caller deletes those in the same transaction that
// persists the new result).
type Snapshot struct {
	Brokers       []*domain.Broker
	Locations     []*domain.Location
	Assignments   []*domain.Assignment
	QueueEntries  []*domain.SaturdayQueueEntry
	FallbackStats []*domain.WeeklyStat
	LockedWeeks   []time.Time
}

// Engine runs allocation, validation and replacement over one snapshot.
// It is meant for single-writer batch use: one Generate or one replacement
// plan completes before the next begins.
type Engine struct {
	snap      *Snapshot
	brokers   map[int64]*domain.Broker
	locations map[int64]*domain.Location
	queues    map[int64]*RotationQueue
	rules     []Rule
}

func New(snap *Snapshot) (*Engine, error) {
	e := &Engine{
		snap:      snap,
		brokers:   make(map[int64]*domain.Broker, len(snap.Brokers)),
		locations: make(map[int64]*domain.Location, len(snap.Locations)),
		queues:    make(map[int64]*RotationQueue),
		rules:     Rules(),
	}

	for _, b := range snap.Brokers {
		e.brokers[b.ID] = b
	}
	for _, l := range snap.Locations {
		e.locations[l.ID] = l
	}

	for _, a := range snap.Assignments {
		if _, ok := e.brokers[a.BrokerID]; !ok {
			return nil, fmt.Errorf("corretor %d presente na escala não existe no snapshot", a.BrokerID)
		}
		if _, ok := e.locations[a.LocationID]; !ok {
			return nil, fmt.Errorf("plantão %d presente na escala não existe no snapshot", a.LocationID)
		}
	}

	entriesByLocation := make(map[int64][]*domain.SaturdayQueueEntry)
	for _, entry := range snap.QueueEntries {
		entriesByLocation[entry.LocationID] = append(entriesByLocation[entry.LocationID], entry)
	}
	for locID, entries := range entriesByLocation {
		e.queues[locID] = NewRotationQueue(locID, entries)
	}

	return e, nil
}

// Queue returns the Saturday rotation queue for a location, creating an
// empty one the first time the location is seen.
func (e *Engine) Queue(locationID int64) *RotationQueue {
	q, ok := e.queues[locationID]
	if !ok {
		q = NewRotationQueue(locationID, nil)
		e.queues[locationID] = q
	}
	return q
}

func (e *Engine) isWeekLocked(weekStart time.Time) bool {
	for _, w := range e.snap.LockedWeeks {
		if sameDate(w, weekStart) {
			return true
		}
	}
	return false
}

// sortDemand puts demand slots in the documented deterministic order:
// date, then location, then shift. Results must be reproducible regardless
// of how the caller assembled the slots.
func sortDemand(demands []DemandSlot) {
	sort.Slice(demands, func(i, j int) bool {
		a, b := demands[i], demands[j]
		if !sameDate(a.Date, b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.LocationID != b.LocationID {
			return a.LocationID < b.LocationID
		}
		return a.Shift.Order() < b.Shift.Order()
	})
}

// WeekStart truncates a date to the Monday that starts its ISO week.
func WeekStart(t time.Time) time.Time {
	t = atMidnight(t)
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

func atMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func slotKey(locationID int64, date time.Time, shift domain.Shift) string {
	return fmt.Sprintf("%d|%s|%s", locationID, dateKey(date), shift)
}

func brokerDateKey(brokerID int64, date time.Time) string {
	return fmt.Sprintf("%d|%s", brokerID, dateKey(date))
}
