package domain

import "time"

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Violation is one rule failure, recomputed on demand and never truncated.
// BrokerID is zero for violations that are not tied to a broker (for
// example an unallocated demand slot).
type Violation struct {
	RuleID   string      `json:"ruleID"`
	Severity Severity    `json:"severity"`
	BrokerID int64       `json:"brokerID,omitempty"`
	Detail   string      `json:"detail"`
	Dates    []time.Time `json:"dates,omitempty"`
}
