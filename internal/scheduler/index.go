package scheduler

import (
	"time"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
)

// AssignmentIndex answers the lookups the rules need: what a broker holds on
// a date, who occupies a slot, what a broker worked in a week. It is cheap
// to clone, which is how replacement plans are validated against a
// hypothetical state before anything is committed.
type AssignmentIndex struct {
	locations    map[int64]*domain.Location
	byBrokerDate map[string][]*domain.Assignment
	bySlot       map[string]*domain.Assignment
	byBroker     map[int64][]*domain.Assignment
}

func NewAssignmentIndex(assignments []*domain.Assignment, locations map[int64]*domain.Location) *AssignmentIndex {
	idx := &AssignmentIndex{
		locations:    locations,
		byBrokerDate: make(map[string][]*domain.Assignment),
		bySlot:       make(map[string]*domain.Assignment),
		byBroker:     make(map[int64][]*domain.Assignment),
	}
	for _, a := range assignments {
		idx.Add(a)
	}
	return idx
}

func (idx *AssignmentIndex) Add(a *domain.Assignment) {
	key := brokerDateKey(a.BrokerID, a.Date)
	idx.byBrokerDate[key] = append(idx.byBrokerDate[key], a)
	idx.bySlot[slotKey(a.LocationID, a.Date, a.Shift)] = a
	idx.byBroker[a.BrokerID] = append(idx.byBroker[a.BrokerID], a)
}

func (idx *AssignmentIndex) Remove(target *domain.Assignment) {
	key := brokerDateKey(target.BrokerID, target.Date)
	idx.byBrokerDate[key] = removeAssignment(idx.byBrokerDate[key], target)
	idx.byBroker[target.BrokerID] = removeAssignment(idx.byBroker[target.BrokerID], target)

	sk := slotKey(target.LocationID, target.Date, target.Shift)
	if idx.bySlot[sk] == target {
		delete(idx.bySlot, sk)
	}
}

func removeAssignment(list []*domain.Assignment, target *domain.Assignment) []*domain.Assignment {
	out := list[:0]
	for _, a := range list {
		if a != target {
			out = append(out, a)
		}
	}
	return out
}

// Clone makes an independent copy of the index maps. The assignments
// themselves are shared, so clones must only Add/Remove, never mutate rows.
func (idx *AssignmentIndex) Clone() *AssignmentIndex {
	clone := &AssignmentIndex{
		locations:    idx.locations,
		byBrokerDate: make(map[string][]*domain.Assignment, len(idx.byBrokerDate)),
		bySlot:       make(map[string]*domain.Assignment, len(idx.bySlot)),
		byBroker:     make(map[int64][]*domain.Assignment, len(idx.byBroker)),
	}
	for k, v := range idx.byBrokerDate {
		clone.byBrokerDate[k] = append([]*domain.Assignment{}, v...)
	}
	for k, v := range idx.bySlot {
		clone.bySlot[k] = v
	}
	for k, v := range idx.byBroker {
		clone.byBroker[k] = append([]*domain.Assignment{}, v...)
	}
	return clone
}

// Slot returns the assignment occupying (location, date, shift), or nil.
func (idx *AssignmentIndex) Slot(locationID int64, date time.Time, shift domain.Shift) *domain.Assignment {
	return idx.bySlot[slotKey(locationID, date, shift)]
}

// BrokerOn returns everything the broker holds on a date.
func (idx *AssignmentIndex) BrokerOn(brokerID int64, date time.Time) []*domain.Assignment {
	return idx.byBrokerDate[brokerDateKey(brokerID, date)]
}

// BrokerAt returns the broker's assignment at (date, shift), or nil.
func (idx *AssignmentIndex) BrokerAt(brokerID int64, date time.Time, shift domain.Shift) *domain.Assignment {
	for _, a := range idx.BrokerOn(brokerID, date) {
		if a.Shift == shift {
			return a
		}
	}
	return nil
}

// ExternalOn returns the broker's external assignments on a date.
func (idx *AssignmentIndex) ExternalOn(brokerID int64, date time.Time) []*domain.Assignment {
	var out []*domain.Assignment
	for _, a := range idx.BrokerOn(brokerID, date) {
		if idx.isExternal(a) {
			out = append(out, a)
		}
	}
	return out
}

// BrokerWeek returns the broker's assignments inside the week starting at
// weekStart (Monday, 7 days).
func (idx *AssignmentIndex) BrokerWeek(brokerID int64, weekStart time.Time) []*domain.Assignment {
	weekEnd := weekStart.AddDate(0, 0, 7)
	var out []*domain.Assignment
	for _, a := range idx.byBroker[brokerID] {
		if !a.Date.Before(weekStart) && a.Date.Before(weekEnd) {
			out = append(out, a)
		}
	}
	return out
}

// ExternalCountInWeek counts the broker's external shifts in a week.
func (idx *AssignmentIndex) ExternalCountInWeek(brokerID int64, weekStart time.Time) int {
	count := 0
	for _, a := range idx.BrokerWeek(brokerID, weekStart) {
		if idx.isExternal(a) {
			count++
		}
	}
	return count
}

// SundaysAtLocation counts each broker's Sunday assignments at a location.
func (idx *AssignmentIndex) SundaysAtLocation(locationID int64) map[int64]int {
	counts := make(map[int64]int)
	for _, list := range idx.byBroker {
		for _, a := range list {
			if a.LocationID == locationID && a.Date.Weekday() == time.Sunday {
				counts[a.BrokerID]++
			}
		}
	}
	return counts
}

// All returns every indexed assignment. Order is unspecified.
func (idx *AssignmentIndex) All() []*domain.Assignment {
	var out []*domain.Assignment
	for _, list := range idx.byBroker {
		out = append(out, list...)
	}
	return out
}

func (idx *AssignmentIndex) isExternal(a *domain.Assignment) bool {
	loc, ok := idx.locations[a.LocationID]
	return ok && loc.Type == domain.LocationExternal
}
