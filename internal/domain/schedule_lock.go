package domain

import "time"

// ScheduleLock protects a previously generated week from regeneration.
// Locked weeks remain readable as rule context and rotation history.
type ScheduleLock struct {
	ID        int64     `json:"id"`
	WeekStart time.Time `json:"weekStart"`
	CreatedAt time.Time `json:"createdAt"`
}
