package domain

import "time"

// Assignment places one broker at one location for one half-day shift.
// At most one broker holds a given (location, date, shift) and a broker
// holds at most one assignment per (date, shift).
type Assignment struct {
	ID            int64     `json:"id"`
	BrokerID      int64     `json:"brokerID"`
	LocationID    int64     `json:"locationID"`
	Date          time.Time `json:"date"`
	Shift         Shift     `json:"shift"`
	IsException   bool      `json:"isException"`
	ExceptionRule string    `json:"exceptionRule,omitempty"`
	Justification string    `json:"justification,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	Version       int32     `json:"-"`
}

// SameSlot reports whether two assignments occupy the same
// (location, date, shift) slot.
func (a *Assignment) SameSlot(other *Assignment) bool {
	return a.LocationID == other.LocationID && sameDate(a.Date, other.Date) && a.Shift == other.Shift
}
