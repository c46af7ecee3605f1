package domain

import "time"

type LocationType string

const (
	LocationInternal LocationType = "internal"
	LocationExternal LocationType = "external"
)

// LocationPeriod configures which shifts are open on a given weekday for a
// date range. Ranges are inclusive on both ends.
type LocationPeriod struct {
	ID        int64     `json:"id"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Weekday   int32     `json:"weekday"` // 0 = Sunday ... 6 = Saturday
	Shifts    []Shift   `json:"shifts"`
}

// LocationOverride replaces the period configuration for a single date.
// An override with no shifts closes the location on that date.
type LocationOverride struct {
	ID     int64     `json:"id"`
	Date   time.Time `json:"date"`
	Shifts []Shift   `json:"shifts"`
}

type Location struct {
	ID             int64              `json:"id"`
	Name           string             `json:"name"`
	Type           LocationType       `json:"type"`
	CompetingGroup string             `json:"competingGroup"` // builder/construtora tag, empty when none
	IsActive       bool               `json:"isActive"`
	Periods        []LocationPeriod   `json:"periods"`
	Overrides      []LocationOverride `json:"overrides"`
	CreatedAt      time.Time          `json:"createdAt"`
	Version        int32              `json:"-"`
}

// OpenShifts returns the shifts open on the given date. Date-specific
// overrides always take precedence over the period/weekday configuration.
func (l *Location) OpenShifts(date time.Time) []Shift {
	for _, ov := range l.Overrides {
		if sameDate(ov.Date, date) {
			return ov.Shifts
		}
	}

	for _, p := range l.Periods {
		if p.Weekday != int32(date.Weekday()) {
			continue
		}
		if beforeDate(date, p.StartDate) || beforeDate(p.EndDate, date) {
			continue
		}
		return p.Shifts
	}

	return nil
}

// IsOpen reports whether the location accepts an assignment at (date, shift).
func (l *Location) IsOpen(date time.Time, shift Shift) bool {
	for _, s := range l.OpenShifts(date) {
		if s == shift {
			return true
		}
	}
	return false
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func beforeDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}
