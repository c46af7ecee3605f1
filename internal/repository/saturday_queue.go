package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
)

func (r *Repository) GetAllQueueEntries() ([]*domain.SaturdayQueueEntry, error) {
	query := `
		SELECT id, location_id, broker_id, position, last_saturday, times_worked, active, version
		FROM saturday_queue_entries
		ORDER BY location_id, position
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanQueueEntries(rows)
}

func (r *Repository) GetQueueEntriesByLocation(locationID int64) ([]*domain.SaturdayQueueEntry, error) {
	query := `
		SELECT id, location_id, broker_id, position, last_saturday, times_worked, active, version
		FROM saturday_queue_entries
		WHERE location_id = $1
		ORDER BY position
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanQueueEntries(rows)
}

// SaveQueueEntries upserts rotation entries in one transaction, used after a
// queue sync mutates positions and membership.
func (r *Repository) SaveQueueEntries(entries []*domain.SaturdayQueueEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, entry := range entries {
		if err := upsertQueueEntry(ctx, tx, entry); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func upsertQueueEntry(ctx context.Context, tx *sql.Tx, entry *domain.SaturdayQueueEntry) error {
	if entry.ID == 0 {
		query := `
			INSERT INTO saturday_queue_entries (location_id, broker_id, position, last_saturday, times_worked, active)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, version
		`

		args := []any{entry.LocationID, entry.BrokerID, entry.Position, entry.LastSaturday, entry.TimesWorked, entry.Active}
		return tx.QueryRowContext(ctx, query, args...).Scan(&entry.ID, &entry.Version)
	}

	query := `
		UPDATE saturday_queue_entries
		SET
			position = $1,
			last_saturday = $2,
			times_worked = $3,
			active = $4,
			version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING version
	`

	args := []any{entry.Position, entry.LastSaturday, entry.TimesWorked, entry.Active, entry.ID, entry.Version}
	return tx.QueryRowContext(ctx, query, args...).Scan(&entry.Version)
}

func scanQueueEntries(rows *sql.Rows) ([]*domain.SaturdayQueueEntry, error) {
	entries := make([]*domain.SaturdayQueueEntry, 0)
	for rows.Next() {
		entry := &domain.SaturdayQueueEntry{}
		dst := []any{
			&entry.ID,
			&entry.LocationID,
			&entry.BrokerID,
			&entry.Position,
			&entry.LastSaturday,
			&entry.TimesWorked,
			&entry.Active,
			&entry.Version,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
