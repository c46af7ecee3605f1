package domain

import (
	"time"
)

type Role string

const (
	RoleBroker  Role = "corretor"
	RoleManager Role = "gerente"
	RoleAdmin   Role = "administrador"
)

// Availability maps a weekday (0 = Sunday ... 6 = Saturday, matching
// time.Weekday) to the shifts the broker is willing to work on that day.
// Days absent from the map are days off.
type Availability map[int32][]Shift

// Includes reports whether the calendar covers (weekday, shift).
func (a Availability) Includes(weekday time.Weekday, shift Shift) bool {
	for _, s := range a[int32(weekday)] {
		if s == shift {
			return true
		}
	}
	return false
}

// CoversAllWeekdays reports whether the broker works every weekday
// (Monday through Friday) with at least one shift, i.e. has no fixed
// day off during the business week.
func (a Availability) CoversAllWeekdays() bool {
	for wd := int32(time.Monday); wd <= int32(time.Friday); wd++ {
		if len(a[wd]) == 0 {
			return false
		}
	}
	return true
}

type Broker struct {
	ID             int64        `json:"id"`
	Username       string       `json:"username"`
	PasswordHash   string       `json:"-"`
	FullName       string       `json:"fullName"`
	Email          string       `json:"email"`
	RegistrationID string       `json:"registrationID"` // CRECI number
	Role           Role         `json:"role"`
	IsActive       bool         `json:"isActive"`
	Availability   Availability `json:"availability"`
	CreatedAt      time.Time    `json:"createdAt"`
	Version        int32        `json:"-"`
}
