package domain

// Shift is a half-day slot.
type Shift string

const (
	ShiftMorning   Shift = "morning"
	ShiftAfternoon Shift = "afternoon"
)

// Order gives shifts a stable sort position within a day.
func (s Shift) Order() int {
	if s == ShiftMorning {
		return 0
	}
	return 1
}

func (s Shift) IsValid() bool {
	return s == ShiftMorning || s == ShiftAfternoon
}

// Label is the user-facing Portuguese name of the shift.
func (s Shift) Label() string {
	if s == ShiftMorning {
		return "manhã"
	}
	return "tarde"
}

var AllShifts = []Shift{ShiftMorning, ShiftAfternoon}
