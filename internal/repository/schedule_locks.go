package repository

import (
	"context"
	"time"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
)

func (r *Repository) GetAllScheduleLocks() ([]*domain.ScheduleLock, error) {
	query := `
		SELECT id, week_start, created_at
		FROM schedule_locks
		ORDER BY week_start
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locks := make([]*domain.ScheduleLock, 0)
	for rows.Next() {
		lock := &domain.ScheduleLock{}
		if err := rows.Scan(&lock.ID, &lock.WeekStart, &lock.CreatedAt); err != nil {
			return nil, err
		}
		locks = append(locks, lock)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return locks, nil
}

func (r *Repository) CreateScheduleLock(lock *domain.ScheduleLock) error {
	query := `
		INSERT INTO schedule_locks (week_start)
		VALUES ($1)
		RETURNING id, created_at
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if err := r.dbpool.QueryRowContext(ctx, query, lock.WeekStart).Scan(&lock.ID, &lock.CreatedAt); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteScheduleLock(weekStart time.Time) error {
	query := `
		DELETE FROM schedule_locks WHERE week_start = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, weekStart); err != nil {
		return err
	}

	return nil
}
