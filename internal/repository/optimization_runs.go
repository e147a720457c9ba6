package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/domain"
)

func (r *Repository) InsertOptimizationRun(run *domain.OptimizationRun) error {
	query := `
		INSERT INTO optimization_runs (id, user_id, status, progress)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{run.ID, run.UserID, run.Status, run.Progress}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&run.CreatedAt, &run.Version); err != nil {
		return err
	}

	return nil
}

// FinalizeOptimizationRun 在一次运行结束（完成、取消或失败）时落库
// 运行结果的条目和未安排会议是规范化存储的，整个写入在一个事务中完成
func (r *Repository) FinalizeOptimizationRun(run *domain.OptimizationRun) error {
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
		UPDATE optimization_runs
		SET
			status = $1,
			progress = $2,
			error_message = $3,
			best_fitness = $4,
			generations = $5,
			improvement = $6,
			convergence_generation = $7,
			finished_at = $8,
			version = version + 1
		WHERE id = $9 AND version = $10
		RETURNING version
	`

	var bestFitness, improvement *float64
	var generations, convergence *int32
	if run.Result != nil {
		bestFitness = &run.Result.Statistics.BestFitness
		improvement = &run.Result.Statistics.Improvement
		generations = &run.Result.Statistics.Generations
		convergence = &run.Result.Statistics.ConvergenceGeneration
	}

	args := []any{run.Status, run.Progress, run.ErrorMessage, bestFitness, generations, improvement, convergence, run.FinishedAt, run.ID, run.Version}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&run.Version); err != nil {
		return err
	}

	// 先清掉可能存在的旧结果
	if _, err := tx.ExecContext(ctx, `DELETE FROM optimization_run_entries WHERE run_id = $1`, run.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM optimization_run_unassigned WHERE run_id = $1`, run.ID); err != nil {
		return err
	}

	if run.Result != nil {
		query = `
			INSERT INTO optimization_run_entries (run_id, meeting_id, title, start_time, end_time, duration_minutes, priority)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		for _, entry := range run.Result.Entries {
			args := []any{run.ID, entry.MeetingID, entry.Title, entry.StartTime, entry.EndTime, entry.DurationMinutes, entry.Priority}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}

		query = `
			INSERT INTO optimization_run_unassigned (run_id, meeting_id)
			VALUES ($1, $2)
		`
		for _, meetingID := range run.Result.UnassignedMeetingIDs {
			if _, err := tx.ExecContext(ctx, query, run.ID, meetingID); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetOptimizationRunByID(id string) (*domain.OptimizationRun, error) {
	query := `
		SELECT user_id, status, progress, error_message, best_fitness, generations, improvement, convergence_generation, created_at, finished_at, version
		FROM optimization_runs WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	run := &domain.OptimizationRun{
		ID: id,
	}

	var bestFitness, improvement sql.NullFloat64
	var generations, convergence sql.NullInt32
	dst := []any{&run.UserID, &run.Status, &run.Progress, &run.ErrorMessage, &bestFitness, &generations, &improvement, &convergence, &run.CreatedAt, &run.FinishedAt, &run.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	// best_fitness 非空表示这次运行已经产出了结果
	if bestFitness.Valid {
		run.Result = &domain.OptimizationResult{
			Statistics: domain.OptimizationStatistics{
				BestFitness:           bestFitness.Float64,
				Generations:           generations.Int32,
				Improvement:           improvement.Float64,
				ConvergenceGeneration: convergence.Int32,
			},
		}
		if err := r.loadRunResult(ctx, run); err != nil {
			return nil, err
		}
	}

	return run, nil
}

func (r *Repository) loadRunResult(ctx context.Context, run *domain.OptimizationRun) error {
	run.Result.Entries = make([]domain.ScheduleEntry, 0)
	run.Result.UnassignedMeetingIDs = make([]int64, 0)

	query := `
		SELECT meeting_id, title, start_time, end_time, duration_minutes, priority
		FROM optimization_run_entries WHERE run_id = $1
		ORDER BY start_time
	`

	rows, err := r.dbpool.QueryContext(ctx, query, run.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var entry domain.ScheduleEntry
		dst := []any{&entry.MeetingID, &entry.Title, &entry.StartTime, &entry.EndTime, &entry.DurationMinutes, &entry.Priority}
		if err := rows.Scan(dst...); err != nil {
			return err
		}
		run.Result.Entries = append(run.Result.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	query = `
		SELECT meeting_id FROM optimization_run_unassigned WHERE run_id = $1
	`

	unassignedRows, err := r.dbpool.QueryContext(ctx, query, run.ID)
	if err != nil {
		return err
	}
	defer unassignedRows.Close()

	for unassignedRows.Next() {
		var meetingID int64
		if err := unassignedRows.Scan(&meetingID); err != nil {
			return err
		}
		run.Result.UnassignedMeetingIDs = append(run.Result.UnassignedMeetingIDs, meetingID)
	}
	if err := unassignedRows.Err(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetOptimizationRunsByUserID(userID int64) ([]*domain.OptimizationRun, error) {
	query := `
		SELECT id, status, progress, error_message, best_fitness, generations, improvement, convergence_generation, created_at, finished_at, version
		FROM optimization_runs WHERE user_id = $1
		ORDER BY created_at DESC
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*domain.OptimizationRun, 0)
	for rows.Next() {
		run := &domain.OptimizationRun{
			UserID: userID,
		}
		var bestFitness, improvement sql.NullFloat64
		var generations, convergence sql.NullInt32
		dst := []any{&run.ID, &run.Status, &run.Progress, &run.ErrorMessage, &bestFitness, &generations, &improvement, &convergence, &run.CreatedAt, &run.FinishedAt, &run.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		if bestFitness.Valid {
			run.Result = &domain.OptimizationResult{
				Statistics: domain.OptimizationStatistics{
					BestFitness:           bestFitness.Float64,
					Generations:           generations.Int32,
					Improvement:           improvement.Float64,
					ConvergenceGeneration: convergence.Int32,
				},
			}
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}
