package utils

import (
	"fmt"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
)

// ValidateAvailability checks that the weekday keys and shift values of an
// availability calendar are well formed and free of duplicates.
func ValidateAvailability(availability domain.Availability) error {
	for weekday, shifts := range availability {
		if weekday < 0 || weekday > 6 {
			return fmt.Errorf("dia da semana inválido: %d", weekday)
		}

		seen := make(map[domain.Shift]bool, len(shifts))
		for _, shift := range shifts {
			if !shift.IsValid() {
				return fmt.Errorf("turno inválido: %s", shift)
			}
			if seen[shift] {
				return fmt.Errorf("turno duplicado no dia %d", weekday)
			}
			seen[shift] = true
		}
	}

	return nil
}

// ValidateLocationConfig checks the opening periods and date overrides of a
// location for internal consistency.
func ValidateLocationConfig(location *domain.Location) error {
	for i, period := range location.Periods {
		if period.EndDate.Before(period.StartDate) {
			return fmt.Errorf("período %d: a data final não pode ser anterior à data inicial", i+1)
		}
		if period.Weekday < 0 || period.Weekday > 6 {
			return fmt.Errorf("período %d: dia da semana inválido", i+1)
		}
		if len(period.Shifts) == 0 {
			return fmt.Errorf("período %d: informe pelo menos um turno", i+1)
		}

		seen := make(map[domain.Shift]bool, len(period.Shifts))
		for _, shift := range period.Shifts {
			if !shift.IsValid() {
				return fmt.Errorf("período %d: turno inválido: %s", i+1, shift)
			}
			if seen[shift] {
				return fmt.Errorf("período %d: turno duplicado", i+1)
			}
			seen[shift] = true
		}
	}

	// Overrides with an empty shift list mean the location is closed on that
	// date, so only duplicates and bad shift values are rejected here.
	seenDates := make(map[string]bool, len(location.Overrides))
	for i, override := range location.Overrides {
		key := override.Date.Format("2006-01-02")
		if seenDates[key] {
			return fmt.Errorf("exceção %d: data duplicada: %s", i+1, override.Date.Format("02/01/2006"))
		}
		seenDates[key] = true

		seen := make(map[domain.Shift]bool, len(override.Shifts))
		for _, shift := range override.Shifts {
			if !shift.IsValid() {
				return fmt.Errorf("exceção %d: turno inválido: %s", i+1, shift)
			}
			if seen[shift] {
				return fmt.Errorf("exceção %d: turno duplicado", i+1)
			}
			seen[shift] = true
		}
	}

	return nil
}
