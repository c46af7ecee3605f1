package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
)

// ErrNoLocations is the unrecoverable input error: there is nothing to
// allocate against, so the run aborts instead of producing an empty week.
var ErrNoLocations = errors.New("nenhum plantão ativo configurado para o período")

// GenerateResult is the outcome of one allocation run. Assignments and
// QueueEntries are returned for the caller to persist in one transaction;
// every violation incurred, relaxed or not, is enumerated in Violations.
type GenerateResult struct {
	Assignments  []*domain.Assignment         `json:"assignments"`
	Violations   []domain.Violation           `json:"violations"`
	Unallocated  []DemandSlot                 `json:"unallocated"`
	QueueEntries []*domain.SaturdayQueueEntry `json:"-"`
	SkippedWeeks []time.Time                  `json:"skippedWeeks,omitempty"`
}

// BuildDemand expands the open-shift configuration of every active location
// into demand slots for the week starting at weekStart.
func (e *Engine) BuildDemand(weekStart time.Time) []DemandSlot {
	weekStart = WeekStart(weekStart)
	var demands []DemandSlot
	for day := 0; day < 7; day++ {
		date := weekStart.AddDate(0, 0, day)
		for _, loc := range e.snap.Locations {
			if !loc.IsActive {
				continue
			}
			for _, shift := range loc.OpenShifts(date) {
				demands = append(demands, DemandSlot{LocationID: loc.ID, Date: date, Shift: shift})
			}
		}
	}
	sortDemand(demands)
	return demands
}

// Generate fills the demand of the given weeks slot by slot, in the
// documented (date, location, shift) order. Locked weeks are skipped as a
// no-op but their assignments stay visible as rule context. Each decision
// updates the live statistics and the Saturday rotation queue consumed by
// the decisions after it, so a single run is strictly sequential.
func (e *Engine) Generate(weeks []time.Time) (*GenerateResult, error) {
	hasActiveLocation := false
	for _, loc := range e.snap.Locations {
		if loc.IsActive {
			hasActiveLocation = true
			break
		}
	}
	if !hasActiveLocation {
		return nil, ErrNoLocations
	}

	result := &GenerateResult{}

	targetWeeks := make([]time.Time, 0, len(weeks))
	seen := make(map[string]bool)
	for _, w := range weeks {
		ws := WeekStart(w)
		if seen[dateKey(ws)] {
			continue
		}
		seen[dateKey(ws)] = true
		if e.isWeekLocked(ws) {
			result.SkippedWeeks = append(result.SkippedWeeks, ws)
			continue
		}
		targetWeeks = append(targetWeeks, ws)
	}
	sort.Slice(targetWeeks, func(i, j int) bool { return targetWeeks[i].Before(targetWeeks[j]) })

	idx := NewAssignmentIndex(e.snap.Assignments, e.locations)
	touchedQueues := make(map[int64]bool)

	for _, weekStart := range targetWeeks {
		demands := e.BuildDemand(weekStart)
		prevStats := e.StatsForWeek(idx, weekStart)
		prevExternal := make(map[int64]int32, len(prevStats))
		for id, s := range prevStats {
			prevExternal[id] = s.ExternalCount
		}

		for _, slot := range demands {
			loc := e.locations[slot.LocationID]
			assignment, violations := e.allocateSlot(idx, slot, loc, prevExternal)
			result.Violations = append(result.Violations, violations...)

			if assignment == nil {
				result.Unallocated = append(result.Unallocated, slot)
				continue
			}

			idx.Add(assignment)
			result.Assignments = append(result.Assignments, assignment)

			if loc.Type == domain.LocationExternal && slot.Date.Weekday() == time.Saturday {
				e.Queue(loc.ID).UpdateAfterAllocation([]int64{assignment.BrokerID}, slot.Date)
				touchedQueues[loc.ID] = true
			}
		}
	}

	queueIDs := make([]int64, 0, len(touchedQueues))
	for id := range touchedQueues {
		queueIDs = append(queueIDs, id)
	}
	sort.Slice(queueIDs, func(i, j int) bool { return queueIDs[i] < queueIDs[j] })
	for _, id := range queueIDs {
		result.QueueEntries = append(result.QueueEntries, e.queues[id].Entries()...)
	}

	return result, nil
}

// candidate is one broker considered for a slot, with everything the
// ranking needs precomputed.
type candidate struct {
	broker         *domain.Broker
	softViolations []domain.Violation
	externalCount  int
	queueRank      int // index in rotation order, or a large value when absent
	altPenalty     int // 1 when taking the slot fights the alternation target
	atCap          bool
}

// allocateSlot picks the best broker for one slot, or returns nil plus an
// unallocated-shift violation when no broker passes the hard rules.
func (e *Engine) allocateSlot(idx *AssignmentIndex, slot DemandSlot, loc *domain.Location, prevExternal map[int64]int32) (*domain.Assignment, []domain.Violation) {
	eligible := e.eligibleBrokers(idx, loc, slot.Date, slot.Shift)
	if len(eligible) == 0 {
		return nil, []domain.Violation{NewUnallocatedViolation(slot, loc.Name)}
	}

	pool := make([]int64, len(eligible))
	for i, b := range eligible {
		pool[i] = b.ID
	}

	isSaturdayExternal := loc.Type == domain.LocationExternal && slot.Date.Weekday() == time.Saturday
	queueRanks := make(map[int64]int)
	queueSize := 0
	if isSaturdayExternal {
		active := e.Queue(loc.ID).Active()
		queueSize = len(active)
		for i, entry := range active {
			queueRanks[entry.BrokerID] = i
		}
	}

	weekStart := WeekStart(slot.Date)
	var candidates []candidate

	for _, broker := range eligible {
		target := &domain.Assignment{
			BrokerID:   broker.ID,
			LocationID: loc.ID,
			Date:       slot.Date,
			Shift:      slot.Shift,
		}
		ctx := &RuleContext{
			Target:           target,
			Broker:           broker,
			Location:         loc,
			Index:            idx,
			Locations:        e.locations,
			PrevWeekExternal: prevExternal,
			Pool:             pool,
			QueueSize:        queueSize,
		}

		hardViolated := false
		var soft []domain.Violation
		for _, rule := range e.rules {
			vs := rule.Evaluate(ctx)
			if len(vs) == 0 {
				continue
			}
			if rule.Hard {
				hardViolated = true
				break
			}
			soft = append(soft, vs...)
		}
		if hardViolated {
			continue
		}

		externalCount := idx.ExternalCountInWeek(broker.ID, weekStart)
		rank, inQueue := queueRanks[broker.ID]
		if !inQueue {
			rank = queueSize + externalCount
		}

		candidates = append(candidates, candidate{
			broker:         broker,
			softViolations: soft,
			externalCount:  externalCount,
			queueRank:      rank,
			altPenalty:     alternationPenalty(broker, prevExternal, externalCount),
			atCap:          loc.Type == domain.LocationExternal && externalCount >= MaxExternalPerWeek,
		})
	}

	if len(candidates) == 0 {
		return nil, []domain.Violation{NewUnallocatedViolation(slot, loc.Name)}
	}

	// The weekly cap may only be breached when every eligible candidate has
	// already reached it.
	pick := candidates
	underCap := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if !c.atCap {
			underCap = append(underCap, c)
		}
	}
	if len(underCap) > 0 {
		pick = underCap
	}

	sort.SliceStable(pick, func(i, j int) bool {
		a, b := pick[i], pick[j]
		if len(a.softViolations) != len(b.softViolations) {
			return len(a.softViolations) < len(b.softViolations)
		}
		if isSaturdayExternal && a.queueRank != b.queueRank {
			return a.queueRank < b.queueRank
		}
		if a.externalCount != b.externalCount {
			return a.externalCount < b.externalCount
		}
		if a.altPenalty != b.altPenalty {
			return a.altPenalty < b.altPenalty
		}
		return a.broker.ID < b.broker.ID
	})

	chosen := pick[0]
	assignment := &domain.Assignment{
		BrokerID:   chosen.broker.ID,
		LocationID: loc.ID,
		Date:       slot.Date,
		Shift:      slot.Shift,
	}

	if len(chosen.softViolations) > 0 {
		first := chosen.softViolations[0]
		assignment.IsException = true
		assignment.ExceptionRule = first.RuleID
		assignment.Justification = fmt.Sprintf(
			"demanda de %s em %s (%s) não pôde ser atendida sem flexibilizar a regra %s: %s",
			loc.Name, formatDate(slot.Date), shiftLabel(slot.Shift), first.RuleID, first.Detail,
		)
	}

	return assignment, chosen.softViolations
}

// alternationPenalty nudges full-week brokers toward the 1↔2 external
// alternation: taking a shift that pushes them past the load opposite to
// last week's costs one rank.
func alternationPenalty(broker *domain.Broker, prevExternal map[int64]int32, currentExternal int) int {
	if !broker.Availability.CoversAllWeekdays() {
		return 0
	}
	prev, ok := prevExternal[broker.ID]
	if !ok {
		return 0
	}
	preferred := 2
	if prev >= 2 {
		preferred = 1
	}
	if currentExternal+1 > preferred {
		return 1
	}
	return 0
}
