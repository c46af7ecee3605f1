package scheduler

import (
	"sort"
	"time"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
)

// isEligible decides whether a broker can take (location, date, shift):
// the availability calendar must cover the weekday and shift, the broker
// must hold nothing else at that half-day, and the location must be open
// for it (date overrides beat the period/weekday table, see Location).
func (e *Engine) isEligible(idx *AssignmentIndex, broker *domain.Broker, location *domain.Location, date time.Time, shift domain.Shift) bool {
	if !broker.IsActive {
		return false
	}
	if !broker.Availability.Includes(date.Weekday(), shift) {
		return false
	}
	if idx.BrokerAt(broker.ID, date, shift) != nil {
		return false
	}
	return location.IsOpen(date, shift)
}

// eligibleBrokers returns the brokers eligible for a slot, ordered by ID so
// downstream ranking starts from a deterministic base.
func (e *Engine) eligibleBrokers(idx *AssignmentIndex, location *domain.Location, date time.Time, shift domain.Shift) []*domain.Broker {
	var out []*domain.Broker
	for _, b := range e.snap.Brokers {
		if e.isEligible(idx, b, location, date, shift) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
