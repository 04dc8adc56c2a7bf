package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/daily-scheduler/internal/persistence"
)

const timeLayout = time.RFC3339Nano

// RunRepository implements persistence.RunRepository using SQLite.
type RunRepository struct {
	pool *ConnectionPool
}

// NewRunRepository creates a SQLite run repository on the pool.
func NewRunRepository(pool *ConnectionPool) *RunRepository {
	return &RunRepository{pool: pool}
}

// SaveRun inserts a run with its instances in one transaction.
func (r *RunRepository) SaveRun(ctx context.Context, run persistence.Run) error {
	if run.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO runs (id, strategy, day_start_minutes, day_end_minutes, penalty_weight, window_tolerance_minutes, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			run.Strategy,
			run.DayStartMinutes,
			run.DayEndMinutes,
			run.PenaltyWeight,
			run.WindowToleranceMinutes,
			run.CreatedAt.UTC().Format(timeLayout),
		)
		if err != nil {
			return mapError(err)
		}

		for _, instance := range run.Instances {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO run_instances (run_id, entity_name, instance, time_minutes) VALUES (?, ?, ?, ?)`,
				run.ID,
				instance.EntityName,
				instance.Instance,
				instance.TimeMinutes,
			)
			if err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// GetRun retrieves a run and its instances by ID.
func (r *RunRepository) GetRun(ctx context.Context, id string) (persistence.Run, error) {
	row := r.pool.db.QueryRowContext(ctx,
		`SELECT id, strategy, day_start_minutes, day_end_minutes, penalty_weight, window_tolerance_minutes, created_at
		 FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err != nil {
		return persistence.Run{}, mapError(err)
	}

	instances, err := r.instancesForRun(ctx, id)
	if err != nil {
		return persistence.Run{}, err
	}
	run.Instances = instances
	return run, nil
}

// ListRuns returns runs matching the filter, newest first, with their
// instances attached.
func (r *RunRepository) ListRuns(ctx context.Context, filter persistence.RunFilter) ([]persistence.Run, error) {
	query := `SELECT id, strategy, day_start_minutes, day_end_minutes, penalty_weight, window_tolerance_minutes, created_at
		 FROM runs WHERE 1=1`
	args := make([]any, 0, 3)

	if filter.CreatedAfter != nil {
		query += ` AND created_at > ?`
		args = append(args, filter.CreatedAfter.UTC().Format(timeLayout))
	}
	if filter.CreatedBefore != nil {
		query += ` AND created_at < ?`
		args = append(args, filter.CreatedBefore.UTC().Format(timeLayout))
	}
	query += ` ORDER BY created_at DESC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	sqlRows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer func() { _ = sqlRows.Close() }()

	runs := make([]persistence.Run, 0)
	for sqlRows.Next() {
		run, err := scanRun(sqlRows)
		if err != nil {
			return nil, mapError(err)
		}
		runs = append(runs, run)
	}
	if err := sqlRows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range runs {
		instances, err := r.instancesForRun(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Instances = instances
	}
	return runs, nil
}

// DeleteRun removes a run; its instances cascade.
func (r *RunRepository) DeleteRun(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (r *RunRepository) instancesForRun(ctx context.Context, runID string) ([]persistence.RunInstance, error) {
	sqlRows, err := r.pool.db.QueryContext(ctx,
		`SELECT entity_name, instance, time_minutes FROM run_instances
		 WHERE run_id = ? ORDER BY time_minutes ASC, entity_name ASC, instance ASC`, runID)
	if err != nil {
		return nil, mapError(err)
	}
	defer func() { _ = sqlRows.Close() }()

	instances := make([]persistence.RunInstance, 0)
	for sqlRows.Next() {
		var instance persistence.RunInstance
		if err := sqlRows.Scan(&instance.EntityName, &instance.Instance, &instance.TimeMinutes); err != nil {
			return nil, mapError(err)
		}
		instances = append(instances, instance)
	}
	if err := sqlRows.Err(); err != nil {
		return nil, mapError(err)
	}
	return instances, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(scanner rowScanner) (persistence.Run, error) {
	var (
		run       persistence.Run
		createdAt string
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Strategy,
		&run.DayStartMinutes,
		&run.DayEndMinutes,
		&run.PenaltyWeight,
		&run.WindowToleranceMinutes,
		&createdAt,
	); err != nil {
		return persistence.Run{}, err
	}

	parsed, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return persistence.Run{}, fmt.Errorf("sqlite: parse created_at %q: %w", createdAt, err)
	}
	run.CreatedAt = parsed
	return run, nil
}
