package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
)

// RuleError reports which hard rule rejected a proposed change.
type RuleError struct {
	RuleID string
	Detail string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("regra %s violada: %s", e.RuleID, e.Detail)
}

var ErrAssignmentNotFound = errors.New("escala não encontrada no snapshot")

// ReplacementCandidates holds the two candidate pools for an external slot
// that needs a new broker: brokers holding an internal assignment at the
// same half-day (swap) and free, eligible brokers (direct).
type ReplacementCandidates struct {
	SwapCandidates   []*domain.Broker `json:"swapCandidates"`
	DirectCandidates []*domain.Broker `json:"directCandidates"`
}

// ReplacementPlan is the arena-built result of a replacement: the rows to
// delete and the rows to insert, validated as a whole before anything is
// committed. Both sides apply or neither does.
type ReplacementPlan struct {
	Remove []*domain.Assignment `json:"remove"`
	Add    []*domain.Assignment `json:"add"`
}

// FindReplacementCandidates lists who could take over the external slot at
// (location, date, shift), excluding the current holder.
func (e *Engine) FindReplacementCandidates(locationID int64, date time.Time, shift domain.Shift, excludeBrokerID int64) (*ReplacementCandidates, error) {
	loc := e.locations[locationID]
	if loc == nil {
		return nil, fmt.Errorf("plantão %d não existe", locationID)
	}

	idx := NewAssignmentIndex(e.snap.Assignments, e.locations)
	out := &ReplacementCandidates{
		SwapCandidates:   []*domain.Broker{},
		DirectCandidates: []*domain.Broker{},
	}

	for _, broker := range e.snap.Brokers {
		if !broker.IsActive || broker.ID == excludeBrokerID {
			continue
		}

		held := idx.BrokerAt(broker.ID, date, shift)
		switch {
		case held == nil:
			if e.isEligible(idx, broker, loc, date, shift) {
				out.DirectCandidates = append(out.DirectCandidates, broker)
			}
		default:
			heldLoc := e.locations[held.LocationID]
			if heldLoc != nil && heldLoc.Type == domain.LocationInternal && broker.Availability.Includes(date.Weekday(), shift) {
				out.SwapCandidates = append(out.SwapCandidates, broker)
			}
		}
	}

	return out, nil
}

// PlanReplacement builds the new configuration in memory, re-runs the hard
// rules against it and returns the plan, or a RuleError naming the rule
// that rejects it. Nothing is committed here; the repository applies the
// plan transactionally.
func (e *Engine) PlanReplacement(assignmentID int64, candidateID int64) (*ReplacementPlan, error) {
	var target *domain.Assignment
	for _, a := range e.snap.Assignments {
		if a.ID == assignmentID {
			target = a
			break
		}
	}
	if target == nil {
		return nil, ErrAssignmentNotFound
	}

	candidate := e.brokers[candidateID]
	if candidate == nil {
		return nil, fmt.Errorf("corretor %d não existe", candidateID)
	}
	loc := e.locations[target.LocationID]
	if loc == nil {
		return nil, fmt.Errorf("plantão %d não existe", target.LocationID)
	}

	idx := NewAssignmentIndex(e.snap.Assignments, e.locations)

	plan := &ReplacementPlan{Remove: []*domain.Assignment{target}}
	arena := idx.Clone()
	arena.Remove(target)

	// A candidate holding an internal assignment at the same half-day is a
	// swap: their internal slot is released along with the change.
	if held := arena.BrokerAt(candidate.ID, target.Date, target.Shift); held != nil {
		heldLoc := e.locations[held.LocationID]
		if heldLoc == nil || heldLoc.Type != domain.LocationInternal {
			return nil, fmt.Errorf("corretor %s já ocupa outro plantão externo neste horário", candidate.FullName)
		}
		arena.Remove(held)
		plan.Remove = append(plan.Remove, held)
	}

	replacement := &domain.Assignment{
		BrokerID:   candidate.ID,
		LocationID: target.LocationID,
		Date:       target.Date,
		Shift:      target.Shift,
	}

	if !candidate.Availability.Includes(target.Date.Weekday(), target.Shift) {
		return nil, fmt.Errorf("corretor %s não tem disponibilidade em %s (%s)", candidate.FullName, formatDate(target.Date), shiftLabel(target.Shift))
	}

	ctx := &RuleContext{
		Target:    replacement,
		Broker:    candidate,
		Location:  loc,
		Index:     arena,
		Locations: e.locations,
	}
	for _, rule := range e.rules {
		if !rule.Hard {
			continue
		}
		if vs := rule.Evaluate(ctx); len(vs) > 0 {
			return nil, &RuleError{RuleID: rule.ID, Detail: vs[0].Detail}
		}
	}

	plan.Add = append(plan.Add, replacement)
	return plan, nil
}

// RelocationConflict describes what occupies a requested slot during a
// manual location edit, so the operator can be offered a swap instead of a
// silent overwrite.
type RelocationConflict struct {
	Occupied bool               `json:"occupied"`
	Occupant *domain.Assignment `json:"occupant,omitempty"`
}

// CheckRelocation reports whether moving an assignment to (location, same
// date, same shift) collides with an existing assignment.
func (e *Engine) CheckRelocation(assignmentID int64, newLocationID int64) (*RelocationConflict, error) {
	var target *domain.Assignment
	for _, a := range e.snap.Assignments {
		if a.ID == assignmentID {
			target = a
			break
		}
	}
	if target == nil {
		return nil, ErrAssignmentNotFound
	}
	if e.locations[newLocationID] == nil {
		return nil, fmt.Errorf("plantão %d não existe", newLocationID)
	}

	idx := NewAssignmentIndex(e.snap.Assignments, e.locations)
	occupant := idx.Slot(newLocationID, target.Date, target.Shift)
	if occupant == nil || occupant == target {
		return &RelocationConflict{Occupied: false}, nil
	}
	return &RelocationConflict{Occupied: true, Occupant: occupant}, nil
}
