package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
	"github.com/plantao-dev/broker-scheduler/backend/internal/scheduler"
)

func (r *Repository) GetAssignmentsInRange(start, end time.Time) ([]*domain.Assignment, error) {
	query := `
		SELECT id, broker_id, location_id, date, shift, is_exception, exception_rule, justification, created_at, version
		FROM assignments
		WHERE date >= $1 AND date <= $2
		ORDER BY date, location_id, shift
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make([]*domain.Assignment, 0)
	for rows.Next() {
		assignment := &domain.Assignment{}
		dst := []any{
			&assignment.ID,
			&assignment.BrokerID,
			&assignment.LocationID,
			&assignment.Date,
			&assignment.Shift,
			&assignment.IsException,
			&assignment.ExceptionRule,
			&assignment.Justification,
			&assignment.CreatedAt,
			&assignment.Version,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *Repository) GetAssignmentByID(id int64) (*domain.Assignment, error) {
	query := `
		SELECT broker_id, location_id, date, shift, is_exception, exception_rule, justification, created_at, version
		FROM assignments WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	assignment := &domain.Assignment{
		ID: id,
	}

	dst := []any{
		&assignment.BrokerID,
		&assignment.LocationID,
		&assignment.Date,
		&assignment.Shift,
		&assignment.IsException,
		&assignment.ExceptionRule,
		&assignment.Justification,
		&assignment.CreatedAt,
		&assignment.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return assignment, nil
}

// ReplaceGeneratedWeeks commits one generation run: the assignment rows of
// the regenerated weeks are deleted, the new rows inserted and the Saturday
// queue entries upserted, all in one transaction.
func (r *Repository) ReplaceGeneratedWeeks(weekStarts []time.Time, assignments []*domain.Assignment, queueEntries []*domain.SaturdayQueueEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, weekStart := range weekStarts {
		query := `DELETE FROM assignments WHERE date >= $1 AND date < $2`
		if _, err := tx.ExecContext(ctx, query, weekStart, weekStart.AddDate(0, 0, 7)); err != nil {
			return err
		}
	}

	for _, assignment := range assignments {
		query := `
			INSERT INTO assignments (broker_id, location_id, date, shift, is_exception, exception_rule, justification)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at, version
		`

		args := []any{
			assignment.BrokerID,
			assignment.LocationID,
			assignment.Date,
			assignment.Shift,
			assignment.IsException,
			assignment.ExceptionRule,
			assignment.Justification,
		}
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&assignment.ID, &assignment.CreatedAt, &assignment.Version); err != nil {
			return err
		}
	}

	for _, entry := range queueEntries {
		if err := upsertQueueEntry(ctx, tx, entry); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// ApplyReplacementPlan deletes and inserts the rows of a validated
// replacement plan atomically. Either the whole swap lands or none of it.
func (r *Repository) ApplyReplacementPlan(plan *scheduler.ReplacementPlan) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, assignment := range plan.Remove {
		query := `DELETE FROM assignments WHERE id = $1 AND version = $2`
		res, err := tx.ExecContext(ctx, query, assignment.ID, assignment.Version)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			// Row changed or vanished since the plan was built.
			return sql.ErrNoRows
		}
	}

	for _, assignment := range plan.Add {
		query := `
			INSERT INTO assignments (broker_id, location_id, date, shift, is_exception, exception_rule, justification)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at, version
		`

		args := []any{
			assignment.BrokerID,
			assignment.LocationID,
			assignment.Date,
			assignment.Shift,
			assignment.IsException,
			assignment.ExceptionRule,
			assignment.Justification,
		}
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&assignment.ID, &assignment.CreatedAt, &assignment.Version); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// UpdateAssignmentLocation moves one assignment to another location, used by
// the manual relocation flow after the conflict check.
func (r *Repository) UpdateAssignmentLocation(assignment *domain.Assignment, newLocationID int64) error {
	query := `
		UPDATE assignments
		SET location_id = $1, version = version + 1
		WHERE id = $2 AND version = $3
		RETURNING version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if err := r.dbpool.QueryRowContext(ctx, query, newLocationID, assignment.ID, assignment.Version).Scan(&assignment.Version); err != nil {
		return err
	}
	assignment.LocationID = newLocationID

	return nil
}
