package scheduler

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
)

// BrokerWeekBreakdown summarizes one broker's week inside a report.
type BrokerWeekBreakdown struct {
	WeekStart     time.Time `json:"weekStart"`
	ExternalCount int32     `json:"externalCount"`
	InternalCount int32     `json:"internalCount"`
	LocationIDs   []int64   `json:"locationIDs"`
}

// BrokerReport groups a broker's violations and counts.
type BrokerReport struct {
	BrokerID      int64                 `json:"brokerID"`
	FullName      string                `json:"fullName"`
	Violations    []domain.Violation    `json:"violations"`
	ExternalCount int32                 `json:"externalCount"`
	InternalCount int32                 `json:"internalCount"`
	SaturdayCount int32                 `json:"saturdayCount"`
	Weeks         []BrokerWeekBreakdown `json:"weeks"`
}

type Summary struct {
	TotalBrokers     int  `json:"totalBrokers"`
	TotalAssignments int  `json:"totalAssignments"`
	UnallocatedCount int  `json:"unallocatedCount"`
	ErrorCount       int  `json:"errorCount"`
	WarningCount     int  `json:"warningCount"`
	IsValid          bool `json:"isValid"`
}

// Report is the post-validation result. When Infeasible is set the run
// could not have produced any assignment at all: Brokers is empty and
// Violations explains which constraints block every slot, which is a
// different situation from a schedule that ran but left gaps.
type Report struct {
	Infeasible         bool               `json:"infeasible"`
	Brokers            []BrokerReport     `json:"brokers"`
	Violations         []domain.Violation `json:"violations"`
	UnallocatedDemands []DemandSlot       `json:"unallocatedDemands"`
	Summary            Summary            `json:"summary"`
}

// Validate re-scores an assignment set against the full rule catalog,
// independent of how the assignments were produced. The set should include
// the adjacent-week context rows; demands lists the slots that were
// supposed to be filled.
func (e *Engine) Validate(assignments []*domain.Assignment, demands []DemandSlot) *Report {
	if len(assignments) == 0 && len(demands) > 0 {
		return e.explainInfeasibility(demands)
	}

	idx := NewAssignmentIndex(assignments, e.locations)
	report := &Report{}

	prevExternalByWeek := make(map[string]map[int64]int32)
	prevExternalFor := func(date time.Time) map[int64]int32 {
		ws := WeekStart(date)
		if cached, ok := prevExternalByWeek[dateKey(ws)]; ok {
			return cached
		}
		prev := make(map[int64]int32)
		for id, s := range aggregateWeek(idx, e.locations, ws.AddDate(0, 0, -7)) {
			prev[id] = s.ExternalCount
		}
		prevExternalByWeek[dateKey(ws)] = prev
		return prev
	}

	seen := make(map[string]bool)
	perBroker := make(map[int64][]domain.Violation)

	for _, a := range assignments {
		broker := e.brokers[a.BrokerID]
		loc := e.locations[a.LocationID]
		if broker == nil || loc == nil {
			continue
		}

		ctx := &RuleContext{
			Target:           a,
			Broker:           broker,
			Location:         loc,
			Index:            idx,
			Locations:        e.locations,
			PrevWeekExternal: prevExternalFor(a.Date),
			Pool:             e.availabilityPool(loc, a.Date, a.Shift),
			QueueSize:        len(e.Queue(a.LocationID).Active()),
		}

		for _, rule := range e.rules {
			for _, v := range rule.Evaluate(ctx) {
				key := dedupKey(v)
				if seen[key] {
					continue
				}
				seen[key] = true
				perBroker[v.BrokerID] = append(perBroker[v.BrokerID], v)
				report.Violations = append(report.Violations, v)
			}
		}
	}

	for _, slot := range demands {
		if idx.Slot(slot.LocationID, slot.Date, slot.Shift) != nil {
			continue
		}
		locName := fmt.Sprintf("%d", slot.LocationID)
		if loc := e.locations[slot.LocationID]; loc != nil {
			locName = loc.Name
		}
		v := NewUnallocatedViolation(slot, locName)
		report.Violations = append(report.Violations, v)
		report.UnallocatedDemands = append(report.UnallocatedDemands, slot)
	}

	report.Brokers = e.buildBrokerReports(idx, assignments, perBroker)
	report.Summary = buildSummary(report, assignments)
	return report
}

// ValidateRange validates the assignment set, context rows included, and
// trims the report to [start, end]: violations that touch no date inside the
// range are dropped, and the broker reports and counts are rebuilt from the
// in-range rows only. Cross-boundary rules still see the context rows, so a
// Sunday external followed by a Monday external in the next week is caught
// even when only one of the two weeks is being validated.
func (e *Engine) ValidateRange(assignments []*domain.Assignment, demands []DemandSlot, start, end time.Time) *Report {
	full := e.Validate(assignments, demands)
	if full.Infeasible {
		return full
	}

	inRange := func(d time.Time) bool {
		return !d.Before(start) && !d.After(end)
	}

	report := &Report{UnallocatedDemands: full.UnallocatedDemands}
	perBroker := make(map[int64][]domain.Violation)
	for _, v := range full.Violations {
		touches := len(v.Dates) == 0
		for _, d := range v.Dates {
			if inRange(d) {
				touches = true
				break
			}
		}
		if !touches {
			continue
		}
		report.Violations = append(report.Violations, v)
		perBroker[v.BrokerID] = append(perBroker[v.BrokerID], v)
	}

	var scoped []*domain.Assignment
	for _, a := range assignments {
		if inRange(a.Date) {
			scoped = append(scoped, a)
		}
	}

	idx := NewAssignmentIndex(scoped, e.locations)
	report.Brokers = e.buildBrokerReports(idx, scoped, perBroker)
	report.Summary = buildSummary(report, scoped)
	return report
}

func (e *Engine) buildBrokerReports(idx *AssignmentIndex, assignments []*domain.Assignment, perBroker map[int64][]domain.Violation) []BrokerReport {
	brokerIDs := make(map[int64]bool)
	for _, a := range assignments {
		brokerIDs[a.BrokerID] = true
	}
	for id := range perBroker {
		if id != 0 {
			brokerIDs[id] = true
		}
	}

	ids := make([]int64, 0, len(brokerIDs))
	for id := range brokerIDs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	reports := make([]BrokerReport, 0, len(ids))
	for _, id := range ids {
		broker := e.brokers[id]
		if broker == nil {
			continue
		}
		report := BrokerReport{
			BrokerID:   id,
			FullName:   broker.FullName,
			Violations: perBroker[id],
		}

		weeks := make(map[string]*BrokerWeekBreakdown)
		for _, a := range idx.byBroker[id] {
			loc := e.locations[a.LocationID]
			external := loc != nil && loc.Type == domain.LocationExternal
			if external {
				report.ExternalCount++
			} else {
				report.InternalCount++
			}
			if a.Date.Weekday() == time.Saturday {
				report.SaturdayCount++
			}

			ws := WeekStart(a.Date)
			bd, ok := weeks[dateKey(ws)]
			if !ok {
				bd = &BrokerWeekBreakdown{WeekStart: ws}
				weeks[dateKey(ws)] = bd
			}
			if external {
				bd.ExternalCount++
			} else {
				bd.InternalCount++
			}
			if !slices.Contains(bd.LocationIDs, a.LocationID) {
				bd.LocationIDs = append(bd.LocationIDs, a.LocationID)
			}
		}

		for _, bd := range weeks {
			sort.Slice(bd.LocationIDs, func(i, j int) bool { return bd.LocationIDs[i] < bd.LocationIDs[j] })
			report.Weeks = append(report.Weeks, *bd)
		}
		sort.Slice(report.Weeks, func(i, j int) bool { return report.Weeks[i].WeekStart.Before(report.Weeks[j].WeekStart) })

		reports = append(reports, report)
	}
	return reports
}

func buildSummary(report *Report, assignments []*domain.Assignment) Summary {
	s := Summary{
		TotalBrokers:     len(report.Brokers),
		TotalAssignments: len(assignments),
		UnallocatedCount: len(report.UnallocatedDemands),
	}
	for _, v := range report.Violations {
		switch v.Severity {
		case domain.SeverityError:
			s.ErrorCount++
		case domain.SeverityWarning:
			s.WarningCount++
		}
	}
	s.IsValid = s.ErrorCount == 0
	return s
}

// explainInfeasibility builds the "cannot run" report: no assignment
// exists, so tell the operator which constraint blocks each demanded slot.
func (e *Engine) explainInfeasibility(demands []DemandSlot) *Report {
	report := &Report{Infeasible: true}
	contextIdx := NewAssignmentIndex(e.snap.Assignments, e.locations)

	for _, slot := range demands {
		loc := e.locations[slot.LocationID]
		if loc == nil {
			continue
		}
		report.UnallocatedDemands = append(report.UnallocatedDemands, slot)

		available := 0
		for _, b := range e.snap.Brokers {
			if b.IsActive && b.Availability.Includes(slot.Date.Weekday(), slot.Shift) {
				available++
			}
		}

		var detail string
		switch {
		case !loc.IsOpen(slot.Date, slot.Shift):
			detail = fmt.Sprintf("plantão %s não está aberto em %s (%s)", loc.Name, formatDate(slot.Date), shiftLabel(slot.Shift))
		case available == 0:
			detail = fmt.Sprintf("nenhum corretor tem disponibilidade para %s em %s (%s)", loc.Name, formatDate(slot.Date), shiftLabel(slot.Shift))
		case len(e.eligibleBrokers(contextIdx, loc, slot.Date, slot.Shift)) == 0:
			detail = fmt.Sprintf("todos os corretores disponíveis já estão comprometidos em %s (%s)", formatDate(slot.Date), shiftLabel(slot.Shift))
		default:
			detail = fmt.Sprintf("nenhum corretor pode assumir %s em %s (%s) sem violar uma regra rígida", loc.Name, formatDate(slot.Date), shiftLabel(slot.Shift))
		}

		report.Violations = append(report.Violations, domain.Violation{
			RuleID:   RuleUnallocatedShift,
			Severity: domain.SeverityError,
			Detail:   detail,
			Dates:    []time.Time{slot.Date},
		})
	}

	report.Summary = buildSummary(report, nil)
	return report
}

func (e *Engine) availabilityPool(loc *domain.Location, date time.Time, shift domain.Shift) []int64 {
	var pool []int64
	for _, b := range e.snap.Brokers {
		if b.IsActive && b.Availability.Includes(date.Weekday(), shift) && loc.IsOpen(date, shift) {
			pool = append(pool, b.ID)
		}
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i] < pool[j] })
	return pool
}

func dedupKey(v domain.Violation) string {
	key := fmt.Sprintf("%s|%d", v.RuleID, v.BrokerID)
	dates := make([]string, len(v.Dates))
	for i, d := range v.Dates {
		dates[i] = dateKey(d)
	}
	sort.Strings(dates)
	for _, d := range dates {
		key += "|" + d
	}
	return key
}
