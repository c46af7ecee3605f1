package seed

import (
	"log/slog"
	"time"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
	"github.com/plantao-dev/broker-scheduler/backend/internal/repository"
)

// weekdayPeriods builds one opening period per weekday in [first, last],
// all covering the same date range with both shifts open.
func weekdayPeriods(start, end time.Time, first, last int32) []domain.LocationPeriod {
	var periods []domain.LocationPeriod
	for wd := first; wd <= last; wd++ {
		periods = append(periods, domain.LocationPeriod{
			StartDate: start,
			EndDate:   end,
			Weekday:   wd,
			Shifts:    []domain.Shift{domain.ShiftMorning, domain.ShiftAfternoon},
		})
	}
	return periods
}

// SeedSampleLocations inserts a realistic starter set: two competing external
// stands, one standalone external stand and one internal store. External
// stands open Monday through Saturday, the store every day.
func SeedSampleLocations(r *repository.Repository) {
	yearStart := time.Date(time.Now().Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := yearStart.AddDate(1, 0, -1)

	locations := []*domain.Location{
		{
			Name:           "Stand Jardim das Flores",
			Type:           domain.LocationExternal,
			CompetingGroup: "jardim",
			IsActive:       true,
			Periods:        weekdayPeriods(yearStart, yearEnd, int32(time.Monday), int32(time.Saturday)),
		},
		{
			Name:           "Stand Parque das Águas",
			Type:           domain.LocationExternal,
			CompetingGroup: "jardim",
			IsActive:       true,
			Periods:        weekdayPeriods(yearStart, yearEnd, int32(time.Monday), int32(time.Saturday)),
		},
		{
			Name:     "Stand Vila Nova",
			Type:     domain.LocationExternal,
			IsActive: true,
			Periods:  weekdayPeriods(yearStart, yearEnd, int32(time.Monday), int32(time.Saturday)),
		},
		{
			Name:     "Loja Centro",
			Type:     domain.LocationInternal,
			IsActive: true,
			Periods:  weekdayPeriods(yearStart, yearEnd, int32(time.Sunday), int32(time.Saturday)),
		},
	}

	cnt := 0
	for _, location := range locations {
		if err := r.CreateLocation(location); err != nil {
			slog.Error("não foi possível inserir o plantão", "name", location.Name, "error", err)
			continue
		}
		cnt++
	}

	slog.Info("plantões inseridos", slog.Int("count", cnt))
}
