package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
)

func activeIDs(q *RotationQueue) []int64 {
	var ids []int64
	for _, entry := range q.Active() {
		ids = append(ids, entry.BrokerID)
	}
	return ids
}

func TestSyncBuildsQueueFromScratch(t *testing.T) {
	q := NewRotationQueue(10, nil)

	added, deactivated := q.Sync([]int64{1, 2, 3})
	assert.Equal(t, 3, added)
	assert.Equal(t, 0, deactivated)

	active := q.Active()
	require.Len(t, active, 3)
	for i, entry := range active {
		assert.Equal(t, int32(i+1), entry.Position)
	}
	assert.Equal(t, []int64{1, 2, 3}, activeIDs(q))
}

func TestSyncDeactivatesAndReadmitsAtBack(t *testing.T) {
	q := NewRotationQueue(10, nil)
	q.Sync([]int64{1, 2, 3})

	// Broker 1 loses Saturday availability.
	added, deactivated := q.Sync([]int64{2, 3})
	assert.Equal(t, 0, added)
	assert.Equal(t, 1, deactivated)
	assert.Equal(t, []int64{2, 3}, activeIDs(q))

	// Coming back puts broker 1 at the end, not at the old spot.
	added, deactivated = q.Sync([]int64{1, 2, 3})
	assert.Equal(t, 1, added)
	assert.Equal(t, 0, deactivated)
	assert.Equal(t, []int64{2, 3, 1}, activeIDs(q))

	// Positions are dense after every sync.
	for i, entry := range q.Active() {
		assert.Equal(t, int32(i+1), entry.Position)
	}
}

func TestUpdateAfterAllocationRotatesToBack(t *testing.T) {
	q := NewRotationQueue(10, nil)
	q.Sync([]int64{1, 2, 3})

	q.UpdateAfterAllocation([]int64{1}, testSaturday)

	// [1,2,3] with 1 allocated becomes [2,3,1].
	assert.Equal(t, []int64{2, 3, 1}, activeIDs(q))

	worked := q.Active()[2]
	assert.Equal(t, int64(1), worked.BrokerID)
	assert.Equal(t, int32(1), worked.TimesWorked)
	require.NotNil(t, worked.LastSaturday)
	assert.True(t, worked.LastSaturday.Equal(testSaturday))

	// The next Saturday goes to broker 2, then broker 3.
	q.UpdateAfterAllocation([]int64{2}, testSaturday.AddDate(0, 0, 7))
	assert.Equal(t, []int64{3, 1, 2}, activeIDs(q))
}

func TestActiveBreaksPositionTies(t *testing.T) {
	older := testSaturday.AddDate(0, 0, -14)
	newer := testSaturday.AddDate(0, 0, -7)
	entries := []*domain.SaturdayQueueEntry{
		{LocationID: 10, BrokerID: 1, Position: 1, Active: true, LastSaturday: &newer, TimesWorked: 2},
		{LocationID: 10, BrokerID: 2, Position: 1, Active: true, LastSaturday: &older, TimesWorked: 2},
		{LocationID: 10, BrokerID: 3, Position: 1, Active: true, TimesWorked: 0},
	}
	q := NewRotationQueue(10, entries)

	// Never-worked first, then the oldest Saturday.
	assert.Equal(t, []int64{3, 2, 1}, activeIDs(q))
}

func TestEntriesKeepsInactiveForPersistence(t *testing.T) {
	q := NewRotationQueue(10, nil)
	q.Sync([]int64{1, 2})
	q.Sync([]int64{2})

	assert.Len(t, q.Active(), 1)
	assert.Len(t, q.Entries(), 2)
}
