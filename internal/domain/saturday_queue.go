package domain

import "time"

// SaturdayQueueEntry is one broker's place in a location's Saturday rotation
// ledger. Lower position means next in line. Inactive entries keep their
// position until the next sync so the relative order of the rest stays put.
type SaturdayQueueEntry struct {
	ID           int64      `json:"id"`
	LocationID   int64      `json:"locationID"`
	BrokerID     int64      `json:"brokerID"`
	Position     int32      `json:"position"`
	LastSaturday *time.Time `json:"lastSaturday"`
	TimesWorked  int32      `json:"timesWorked"`
	Active       bool       `json:"active"`
	Version      int32      `json:"-"`
}
