package scheduler

import (
	"fmt"
	"time"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
)

// Stable rule identifiers, shared between generation-time checks and
// post-hoc validation so violations from either side compare equal.
const (
	RuleNoMultiExternalSameDay         = "no-multi-external-same-day"
	RuleCompetingGroupConflict         = "competing-group-conflict"
	RuleNoConsecutiveExternalDays      = "no-consecutive-external-days"
	RuleNoSatSunExternal               = "no-sat-sun-external"
	RuleNoSameLocationConsecutiveWeeks = "no-same-location-consecutive-weeks"
	RuleMaxTwoExternalPerWeek          = "max-two-external-per-week"
	RuleWeeklyLoadAlternation          = "weekly-load-alternation"
	RuleUnallocatedShift               = "unallocated-shift"
	RuleTwoBeforeThree                 = "two-before-three"
	RuleSundayConcentration            = "sunday-concentration"
)

// MaxExternalPerWeek is the soft weekly cap on external shifts per broker.
const MaxExternalPerWeek = 2

// RuleContext carries everything a rule may inspect when judging one
// assignment. Index may or may not already contain Target (it does during
// post-hoc validation, it does not while scoring a candidate); helpers skip
// Target by pointer so both cases count the same.
type RuleContext struct {
	Target   *domain.Assignment
	Broker   *domain.Broker
	Location *domain.Location
	Index    *AssignmentIndex

	Locations map[int64]*domain.Location

	// PrevWeekExternal holds each broker's external count for the week
	// before Target's week, used by the alternation rule.
	PrevWeekExternal map[int64]int32

	// Pool lists the brokers eligible for Target's demand pool, used by the
	// two-before-three distribution rule.
	Pool []int64

	// QueueSize is the number of active rotation entries at Target's
	// location, used as the fair divisor by the Sunday concentration rule.
	QueueSize int
}

// Rule is one entry of the catalog: a pure predicate over a RuleContext.
// Hard rules veto a candidate outright; soft rules only score it.
type Rule struct {
	ID       string
	Severity domain.Severity
	Hard     bool
	Evaluate func(ctx *RuleContext) []domain.Violation
}

// Rules returns the full catalog in a stable order.
func Rules() []Rule {
	return []Rule{
		{ID: RuleNoMultiExternalSameDay, Severity: domain.SeverityError, Hard: true, Evaluate: evalNoMultiExternalSameDay},
		{ID: RuleCompetingGroupConflict, Severity: domain.SeverityError, Hard: true, Evaluate: evalCompetingGroupConflict},
		{ID: RuleNoConsecutiveExternalDays, Severity: domain.SeverityError, Hard: true, Evaluate: evalNoConsecutiveExternalDays},
		{ID: RuleNoSatSunExternal, Severity: domain.SeverityError, Hard: true, Evaluate: evalNoSatSunExternal},
		{ID: RuleNoSameLocationConsecutiveWeeks, Severity: domain.SeverityWarning, Hard: false, Evaluate: evalNoSameLocationConsecutiveWeeks},
		{ID: RuleMaxTwoExternalPerWeek, Severity: domain.SeverityWarning, Hard: false, Evaluate: evalMaxTwoExternalPerWeek},
		{ID: RuleWeeklyLoadAlternation, Severity: domain.SeverityWarning, Hard: false, Evaluate: evalWeeklyLoadAlternation},
		// Demand coverage is judged against the demand list, not a single
		// assignment, so this rule carries no per-assignment evaluation.
		{ID: RuleUnallocatedShift, Severity: domain.SeverityError, Hard: false, Evaluate: func(*RuleContext) []domain.Violation { return nil }},
		{ID: RuleTwoBeforeThree, Severity: domain.SeverityWarning, Hard: false, Evaluate: evalTwoBeforeThree},
		{ID: RuleSundayConcentration, Severity: domain.SeverityWarning, Hard: false, Evaluate: evalSundayConcentration},
	}
}

// NewUnallocatedViolation builds the violation recorded when a demanded
// slot ends up without a broker.
func NewUnallocatedViolation(slot DemandSlot, locationName string) domain.Violation {
	return domain.Violation{
		RuleID:   RuleUnallocatedShift,
		Severity: domain.SeverityError,
		Detail:   fmt.Sprintf("plantão %s ficou sem corretor em %s (%s)", locationName, formatDate(slot.Date), shiftLabel(slot.Shift)),
		Dates:    []time.Time{slot.Date},
	}
}

func (ctx *RuleContext) targetIsExternal() bool {
	return ctx.Location != nil && ctx.Location.Type == domain.LocationExternal
}

// othersOn returns the broker's assignments on a date, excluding Target.
func (ctx *RuleContext) othersOn(date time.Time) []*domain.Assignment {
	var out []*domain.Assignment
	for _, a := range ctx.Index.BrokerOn(ctx.Broker.ID, date) {
		if a != ctx.Target {
			out = append(out, a)
		}
	}
	return out
}

func (ctx *RuleContext) externalOthersOn(date time.Time) []*domain.Assignment {
	var out []*domain.Assignment
	for _, a := range ctx.othersOn(date) {
		if ctx.Index.isExternal(a) {
			out = append(out, a)
		}
	}
	return out
}

// externalCountWithTarget counts the broker's external shifts in Target's
// week as if Target were committed.
func (ctx *RuleContext) externalCountWithTarget() int {
	weekStart := WeekStart(ctx.Target.Date)
	count := 0
	for _, a := range ctx.Index.BrokerWeek(ctx.Broker.ID, weekStart) {
		if a != ctx.Target && ctx.Index.isExternal(a) {
			count++
		}
	}
	if ctx.targetIsExternal() {
		count++
	}
	return count
}

func (ctx *RuleContext) violation(ruleID string, severity domain.Severity, detail string, dates ...time.Time) domain.Violation {
	return domain.Violation{
		RuleID:   ruleID,
		Severity: severity,
		BrokerID: ctx.Broker.ID,
		Detail:   detail,
		Dates:    dates,
	}
}

func evalNoMultiExternalSameDay(ctx *RuleContext) []domain.Violation {
	if !ctx.targetIsExternal() {
		return nil
	}
	others := ctx.externalOthersOn(ctx.Target.Date)
	if len(others) == 0 {
		return nil
	}
	detail := fmt.Sprintf("corretor %s tem mais de um plantão externo em %s", ctx.Broker.FullName, formatDate(ctx.Target.Date))
	return []domain.Violation{ctx.violation(RuleNoMultiExternalSameDay, domain.SeverityError, detail, ctx.Target.Date)}
}

func evalCompetingGroupConflict(ctx *RuleContext) []domain.Violation {
	if !ctx.targetIsExternal() || ctx.Location.CompetingGroup == "" {
		return nil
	}
	for _, a := range ctx.othersOn(ctx.Target.Date) {
		other := ctx.Locations[a.LocationID]
		if other == nil || other.ID == ctx.Location.ID {
			continue
		}
		if other.Type == domain.LocationExternal && other.CompetingGroup == ctx.Location.CompetingGroup {
			detail := fmt.Sprintf(
				"corretor %s escalado em %s e %s, construtoras concorrentes do grupo %q, no mesmo dia %s",
				ctx.Broker.FullName, ctx.Location.Name, other.Name, ctx.Location.CompetingGroup, formatDate(ctx.Target.Date),
			)
			return []domain.Violation{ctx.violation(RuleCompetingGroupConflict, domain.SeverityError, detail, ctx.Target.Date)}
		}
	}
	return nil
}

func evalNoConsecutiveExternalDays(ctx *RuleContext) []domain.Violation {
	if !ctx.targetIsExternal() {
		return nil
	}
	var violations []domain.Violation
	for _, delta := range []int{-1, 1} {
		adjacent := ctx.Target.Date.AddDate(0, 0, delta)
		if len(ctx.externalOthersOn(adjacent)) == 0 {
			continue
		}
		detail := fmt.Sprintf(
			"corretor %s tem plantões externos em dias consecutivos: %s e %s",
			ctx.Broker.FullName, formatDate(minDate(ctx.Target.Date, adjacent)), formatDate(maxDate(ctx.Target.Date, adjacent)),
		)
		violations = append(violations, ctx.violation(RuleNoConsecutiveExternalDays, domain.SeverityError, detail, ctx.Target.Date, adjacent))
	}
	return violations
}

func evalNoSatSunExternal(ctx *RuleContext) []domain.Violation {
	if !ctx.targetIsExternal() {
		return nil
	}
	var counterpart time.Time
	switch ctx.Target.Date.Weekday() {
	case time.Saturday:
		counterpart = ctx.Target.Date.AddDate(0, 0, 1)
	case time.Sunday:
		counterpart = ctx.Target.Date.AddDate(0, 0, -1)
	default:
		return nil
	}
	if len(ctx.externalOthersOn(counterpart)) == 0 {
		return nil
	}
	detail := fmt.Sprintf(
		"corretor %s tem plantão externo no sábado e no domingo da semana de %s",
		ctx.Broker.FullName, formatDate(WeekStart(ctx.Target.Date)),
	)
	return []domain.Violation{ctx.violation(RuleNoSatSunExternal, domain.SeverityError, detail, ctx.Target.Date, counterpart)}
}

func evalNoSameLocationConsecutiveWeeks(ctx *RuleContext) []domain.Violation {
	if !ctx.targetIsExternal() {
		return nil
	}
	weekStart := WeekStart(ctx.Target.Date)
	var violations []domain.Violation
	for _, adjacentWeek := range []time.Time{weekStart.AddDate(0, 0, -7), weekStart.AddDate(0, 0, 7)} {
		for _, a := range ctx.Index.BrokerWeek(ctx.Broker.ID, adjacentWeek) {
			if a == ctx.Target || a.LocationID != ctx.Location.ID {
				continue
			}
			detail := fmt.Sprintf(
				"corretor %s escalado no plantão %s em semanas consecutivas (%s e %s)",
				ctx.Broker.FullName, ctx.Location.Name,
				formatDate(minDate(a.Date, ctx.Target.Date)), formatDate(maxDate(a.Date, ctx.Target.Date)),
			)
			violations = append(violations, ctx.violation(RuleNoSameLocationConsecutiveWeeks, domain.SeverityWarning, detail, ctx.Target.Date, a.Date))
			break
		}
	}
	return violations
}

func evalMaxTwoExternalPerWeek(ctx *RuleContext) []domain.Violation {
	if !ctx.targetIsExternal() {
		return nil
	}
	count := ctx.externalCountWithTarget()
	if count <= MaxExternalPerWeek {
		return nil
	}
	detail := fmt.Sprintf(
		"corretor %s com %d plantões externos na semana de %s (limite %d)",
		ctx.Broker.FullName, count, formatDate(WeekStart(ctx.Target.Date)), MaxExternalPerWeek,
	)
	return []domain.Violation{ctx.violation(RuleMaxTwoExternalPerWeek, domain.SeverityWarning, detail, ctx.Target.Date)}
}

func evalWeeklyLoadAlternation(ctx *RuleContext) []domain.Violation {
	if !ctx.targetIsExternal() || !ctx.Broker.Availability.CoversAllWeekdays() {
		return nil
	}
	prev, ok := ctx.PrevWeekExternal[ctx.Broker.ID]
	if !ok || prev < 1 {
		return nil
	}
	curr := ctx.externalCountWithTarget()
	if int32(curr) != prev {
		return nil
	}
	detail := fmt.Sprintf(
		"corretor %s sem folga fixa repetiu %d plantões externos na semana de %s; a carga deve alternar entre 1 e 2",
		ctx.Broker.FullName, curr, formatDate(WeekStart(ctx.Target.Date)),
	)
	return []domain.Violation{ctx.violation(RuleWeeklyLoadAlternation, domain.SeverityWarning, detail, ctx.Target.Date)}
}

func evalTwoBeforeThree(ctx *RuleContext) []domain.Violation {
	if !ctx.targetIsExternal() {
		return nil
	}
	count := ctx.externalCountWithTarget()
	if count < 3 {
		return nil
	}
	weekStart := WeekStart(ctx.Target.Date)
	for _, brokerID := range ctx.Pool {
		if brokerID == ctx.Broker.ID {
			continue
		}
		if ctx.Index.ExternalCountInWeek(brokerID, weekStart) < 2 {
			detail := fmt.Sprintf(
				"corretor %s acumula %d plantões externos na semana de %s enquanto outro corretor elegível tem menos de 2",
				ctx.Broker.FullName, count, formatDate(weekStart),
			)
			return []domain.Violation{ctx.violation(RuleTwoBeforeThree, domain.SeverityWarning, detail, ctx.Target.Date)}
		}
	}
	return nil
}

func evalSundayConcentration(ctx *RuleContext) []domain.Violation {
	if !ctx.targetIsExternal() || ctx.Target.Date.Weekday() != time.Sunday {
		return nil
	}

	counts := ctx.Index.SundaysAtLocation(ctx.Location.ID)
	total := 0
	mine := 0
	for brokerID, c := range counts {
		total += c
		if brokerID == ctx.Broker.ID {
			mine = c
		}
	}
	// Count Target itself when it is not committed yet.
	if ctx.Index.BrokerAt(ctx.Broker.ID, ctx.Target.Date, ctx.Target.Shift) != ctx.Target {
		total++
		mine++
	}

	divisor := len(counts)
	if ctx.QueueSize > divisor {
		divisor = ctx.QueueSize
	}
	if divisor < 1 {
		divisor = 1
	}
	expected := (total + divisor - 1) / divisor
	if mine <= expected {
		return nil
	}
	detail := fmt.Sprintf(
		"corretor %s concentra %d domingos no plantão %s; a rotação esperada é de no máximo %d por corretor",
		ctx.Broker.FullName, mine, ctx.Location.Name, expected,
	)
	return []domain.Violation{ctx.violation(RuleSundayConcentration, domain.SeverityWarning, detail, ctx.Target.Date)}
}

func formatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

func shiftLabel(s domain.Shift) string {
	return s.Label()
}

func minDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return b
	}
	return a
}
