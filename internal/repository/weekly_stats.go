package repository

import (
	"context"
	"time"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
)

func (r *Repository) GetWeeklyStats(weekStart time.Time) ([]*domain.WeeklyStat, error) {
	query := `
		SELECT id, broker_id, week_start, week_end, external_count, internal_count, saturday_count, version
		FROM weekly_stats
		WHERE week_start = $1
		ORDER BY broker_id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, weekStart)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]*domain.WeeklyStat, 0)
	for rows.Next() {
		stat := &domain.WeeklyStat{}
		dst := []any{
			&stat.ID,
			&stat.BrokerID,
			&stat.WeekStart,
			&stat.WeekEnd,
			&stat.ExternalCount,
			&stat.InternalCount,
			&stat.SaturdayCount,
			&stat.Version,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// ArchiveWeeklyStats replaces the persisted aggregate rows of one week. Only
// the archival flow writes this table; regular generation derives stats from
// assignment rows.
func (r *Repository) ArchiveWeeklyStats(weekStart time.Time, stats []*domain.WeeklyStat) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `DELETE FROM weekly_stats WHERE week_start = $1`
	if _, err := tx.ExecContext(ctx, query, weekStart); err != nil {
		return err
	}

	for _, stat := range stats {
		query := `
			INSERT INTO weekly_stats (broker_id, week_start, week_end, external_count, internal_count, saturday_count)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, version
		`

		args := []any{stat.BrokerID, stat.WeekStart, stat.WeekEnd, stat.ExternalCount, stat.InternalCount, stat.SaturdayCount}
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&stat.ID, &stat.Version); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}
