package domain

type NotificationMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type ScheduleGeneratedData struct {
	FullName       string `json:"fullName"`
	WeekCount      int    `json:"weekCount"`
	AssignedCount  int    `json:"assignedCount"`
	ViolationCount int    `json:"violationCount"`
	RunID          string `json:"runID"`
}

type ReplacementAppliedData struct {
	FullName     string `json:"fullName"`
	LocationName string `json:"locationName"`
	Date         string `json:"date"`
	Shift        string `json:"shift"`
}

type ResetPasswordData struct {
	FullName   string `json:"fullName"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}
