package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"time"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
)

func (r *Repository) GetAllLocations() ([]*domain.Location, error) {
	query := `
		SELECT
			l.id,
			l.name,
			l.type,
			l.competing_group,
			l.is_active,
			l.created_at,
			l.version,
			lp.id,
			lp.start_date,
			lp.end_date,
			lp.weekday,
			lp.shifts,
			lo.id,
			lo.date,
			lo.shifts
		FROM locations l
		LEFT JOIN location_periods lp ON l.id = lp.location_id
		LEFT JOIN location_overrides lo ON l.id = lo.location_id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locationsMap := make(map[int64]*domain.Location)
	seenPeriods := make(map[int64]bool)
	seenOverrides := make(map[int64]bool)

	for rows.Next() {
		var row struct {
			id             int64
			name           string
			locType        string
			competingGroup string
			isActive       bool
			createdAt      time.Time
			version        int32
			periodID       sql.NullInt64
			startDate      sql.NullTime
			endDate        sql.NullTime
			weekday        sql.NullInt32
			periodShifts   []byte
			overrideID     sql.NullInt64
			overrideDate   sql.NullTime
			overrideShifts []byte
		}

		dst := []any{
			&row.id,
			&row.name,
			&row.locType,
			&row.competingGroup,
			&row.isActive,
			&row.createdAt,
			&row.version,
			&row.periodID,
			&row.startDate,
			&row.endDate,
			&row.weekday,
			&row.periodShifts,
			&row.overrideID,
			&row.overrideDate,
			&row.overrideShifts,
		}

		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		if _, exists := locationsMap[row.id]; !exists {
			locationsMap[row.id] = &domain.Location{
				ID:             row.id,
				Name:           row.name,
				Type:           domain.LocationType(row.locType),
				CompetingGroup: row.competingGroup,
				IsActive:       row.isActive,
				Periods:        make([]domain.LocationPeriod, 0),
				Overrides:      make([]domain.LocationOverride, 0),
				CreatedAt:      row.createdAt,
				Version:        row.version,
			}
		}
		location := locationsMap[row.id]

		if row.periodID.Valid && !seenPeriods[row.periodID.Int64] {
			seenPeriods[row.periodID.Int64] = true
			period := domain.LocationPeriod{
				ID:        row.periodID.Int64,
				StartDate: row.startDate.Time,
				EndDate:   row.endDate.Time,
				Weekday:   row.weekday.Int32,
			}
			if err := json.Unmarshal(row.periodShifts, &period.Shifts); err != nil {
				return nil, err
			}
			location.Periods = append(location.Periods, period)
		}

		if row.overrideID.Valid && !seenOverrides[row.overrideID.Int64] {
			seenOverrides[row.overrideID.Int64] = true
			override := domain.LocationOverride{
				ID:   row.overrideID.Int64,
				Date: row.overrideDate.Time,
			}
			if err := json.Unmarshal(row.overrideShifts, &override.Shifts); err != nil {
				return nil, err
			}
			location.Overrides = append(location.Overrides, override)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	locations := make([]*domain.Location, 0, len(locationsMap))
	for _, location := range locationsMap {
		locations = append(locations, location)
	}
	sort.Slice(locations, func(i, j int) bool { return locations[i].ID < locations[j].ID })

	return locations, nil
}

func (r *Repository) GetLocationByID(id int64) (*domain.Location, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT name, type, competing_group, is_active, created_at, version
		FROM locations WHERE id = $1
	`

	location := &domain.Location{
		ID:        id,
		Periods:   make([]domain.LocationPeriod, 0),
		Overrides: make([]domain.LocationOverride, 0),
	}

	dst := []any{&location.Name, &location.Type, &location.CompetingGroup, &location.IsActive, &location.CreatedAt, &location.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	query = `
		SELECT id, start_date, end_date, weekday, shifts
		FROM location_periods WHERE location_id = $1
		ORDER BY id
	`

	rows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var period domain.LocationPeriod
		var shifts []byte
		if err := rows.Scan(&period.ID, &period.StartDate, &period.EndDate, &period.Weekday, &shifts); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(shifts, &period.Shifts); err != nil {
			return nil, err
		}
		location.Periods = append(location.Periods, period)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	query = `
		SELECT id, date, shifts
		FROM location_overrides WHERE location_id = $1
		ORDER BY date
	`

	overrideRows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer overrideRows.Close()

	for overrideRows.Next() {
		var override domain.LocationOverride
		var shifts []byte
		if err := overrideRows.Scan(&override.ID, &override.Date, &shifts); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(shifts, &override.Shifts); err != nil {
			return nil, err
		}
		location.Overrides = append(location.Overrides, override)
	}
	if err := overrideRows.Err(); err != nil {
		return nil, err
	}

	return location, nil
}

func (r *Repository) CreateLocation(location *domain.Location) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO locations (name, type, competing_group)
		VALUES ($1, $2, $3)
		RETURNING id, is_active, created_at, version
	`

	args := []any{location.Name, location.Type, location.CompetingGroup}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&location.ID, &location.IsActive, &location.CreatedAt, &location.Version); err != nil {
		return err
	}

	for i := range location.Periods {
		if err := insertPeriod(ctx, tx, location.ID, &location.Periods[i]); err != nil {
			return err
		}
	}
	for i := range location.Overrides {
		if err := insertOverride(ctx, tx, location.ID, &location.Overrides[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// UpdateLocation rewrites the location row and replaces its period and
// override configuration in one transaction.
func (r *Repository) UpdateLocation(location *domain.Location) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		UPDATE locations
		SET
			name = $1,
			type = $2,
			competing_group = $3,
			is_active = $4,
			version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING created_at, version
	`

	args := []any{location.Name, location.Type, location.CompetingGroup, location.IsActive, location.ID, location.Version}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&location.CreatedAt, &location.Version); err != nil {
		return err
	}

	query = `DELETE FROM location_periods WHERE location_id = $1`
	if _, err := tx.ExecContext(ctx, query, location.ID); err != nil {
		return err
	}
	query = `DELETE FROM location_overrides WHERE location_id = $1`
	if _, err := tx.ExecContext(ctx, query, location.ID); err != nil {
		return err
	}

	for i := range location.Periods {
		if err := insertPeriod(ctx, tx, location.ID, &location.Periods[i]); err != nil {
			return err
		}
	}
	for i := range location.Overrides {
		if err := insertOverride(ctx, tx, location.ID, &location.Overrides[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteLocation(id int64) error {
	query := `
		DELETE FROM locations WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return err
	}

	return nil
}

func insertPeriod(ctx context.Context, tx *sql.Tx, locationID int64, period *domain.LocationPeriod) error {
	shifts, err := json.Marshal(period.Shifts)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO location_periods (location_id, start_date, end_date, weekday, shifts)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	return tx.QueryRowContext(ctx, query, locationID, period.StartDate, period.EndDate, period.Weekday, shifts).Scan(&period.ID)
}

func insertOverride(ctx context.Context, tx *sql.Tx, locationID int64, override *domain.LocationOverride) error {
	shifts, err := json.Marshal(override.Shifts)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO location_overrides (location_id, date, shifts)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	return tx.QueryRowContext(ctx, query, locationID, override.Date, shifts).Scan(&override.ID)
}
