package domain

import "time"

// WeeklyStat aggregates one broker's shift counts for one week. Stats are a
// view derived from assignments; the persisted table is only a fallback for
// weeks whose assignment rows are no longer available.
type WeeklyStat struct {
	ID            int64     `json:"id"`
	BrokerID      int64     `json:"brokerID"`
	WeekStart     time.Time `json:"weekStart"`
	WeekEnd       time.Time `json:"weekEnd"`
	ExternalCount int32     `json:"externalCount"`
	InternalCount int32     `json:"internalCount"`
	SaturdayCount int32     `json:"saturdayCount"`
	Version       int32     `json:"-"`
}
