package scheduler

import (
	"sort"
	"time"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
)

// RotationQueue is one location's Saturday rotation ledger. It keeps every
// persisted entry (active and inactive) and mutates them in place; the
// caller persists the entries after the engine is done.
//
// Positions are only compacted by Sync. Deactivating a broker leaves a gap
// on purpose so the relative order of the remaining entries never shifts
// between syncs.
type RotationQueue struct {
	locationID int64
	entries    []*domain.SaturdayQueueEntry
}

func NewRotationQueue(locationID int64, entries []*domain.SaturdayQueueEntry) *RotationQueue {
	q := &RotationQueue{locationID: locationID, entries: entries}
	sort.Slice(q.entries, func(i, j int) bool { return q.entries[i].Position < q.entries[j].Position })
	return q
}

// Sync recomputes active membership from the given eligible broker set.
// Newly eligible brokers join at the back (position = max+1); brokers no
// longer eligible are marked inactive. Returns how many were added and how
// many were deactivated.
func (q *RotationQueue) Sync(eligibleBrokerIDs []int64) (added, deactivated int) {
	eligible := make(map[int64]bool, len(eligibleBrokerIDs))
	for _, id := range eligibleBrokerIDs {
		eligible[id] = true
	}

	present := make(map[int64]*domain.SaturdayQueueEntry, len(q.entries))
	for _, entry := range q.entries {
		present[entry.BrokerID] = entry
	}

	for _, entry := range q.entries {
		if entry.Active && !eligible[entry.BrokerID] {
			entry.Active = false
			deactivated++
		} else if !entry.Active && eligible[entry.BrokerID] {
			entry.Active = true
			entry.Position = q.maxPosition() + 1
			added++
		}
	}

	for _, id := range eligibleBrokerIDs {
		if _, ok := present[id]; ok {
			continue
		}
		entry := &domain.SaturdayQueueEntry{
			LocationID: q.locationID,
			BrokerID:   id,
			Position:   q.maxPosition() + 1,
			Active:     true,
		}
		q.entries = append(q.entries, entry)
		present[id] = entry
		added++
	}

	// Restore the dense-ordering invariant: renumber active entries 1..n in
	// their current relative order. Gaps only exist between syncs.
	position := int32(1)
	for _, entry := range q.Active() {
		entry.Position = position
		position++
	}

	return added, deactivated
}

// Active returns the active entries in rotation order: position ascending,
// ties broken by oldest last Saturday (never worked first), then fewest
// times worked, then broker ID for full determinism.
func (q *RotationQueue) Active() []*domain.SaturdayQueueEntry {
	var out []*domain.SaturdayQueueEntry
	for _, entry := range q.entries {
		if entry.Active {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		if !equalOptionalDate(a.LastSaturday, b.LastSaturday) {
			if a.LastSaturday == nil {
				return true
			}
			if b.LastSaturday == nil {
				return false
			}
			return a.LastSaturday.Before(*b.LastSaturday)
		}
		if a.TimesWorked != b.TimesWorked {
			return a.TimesWorked < b.TimesWorked
		}
		return a.BrokerID < b.BrokerID
	})
	return out
}

// UpdateAfterAllocation records that the given brokers worked the Saturday:
// each one gets the date stamped, the counter bumped and a fresh position at
// the back of the queue. Everyone else keeps their relative order.
func (q *RotationQueue) UpdateAfterAllocation(brokerIDs []int64, saturday time.Time) {
	for _, id := range brokerIDs {
		for _, entry := range q.entries {
			if entry.BrokerID != id {
				continue
			}
			date := saturday
			entry.LastSaturday = &date
			entry.TimesWorked++
			entry.Position = q.maxPosition() + 1
			break
		}
	}
}

// Entries returns every entry, active or not, for persistence.
func (q *RotationQueue) Entries() []*domain.SaturdayQueueEntry {
	return q.entries
}

func (q *RotationQueue) maxPosition() int32 {
	var max int32
	for _, entry := range q.entries {
		if entry.Position > max {
			max = entry.Position
		}
	}
	return max
}

func equalOptionalDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return sameDate(*a, *b)
}
