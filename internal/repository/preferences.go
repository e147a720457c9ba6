package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/domain"
)

func (r *Repository) GetSchedulePreferencesByUserID(userID int64) (*domain.SchedulePreferences, error) {
	query := `
		SELECT work_hours_start, work_hours_end, target_focus_hours, min_focus_block_minutes,
			weight_conflict, weight_focus, weight_priority, weight_work_hours, version
		FROM user_schedule_preferences WHERE user_id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	prefs := &domain.SchedulePreferences{
		UserID: userID,
	}

	dst := []any{
		&prefs.WorkHoursStart,
		&prefs.WorkHoursEnd,
		&prefs.TargetFocusHours,
		&prefs.MinFocusBlockMinutes,
		&prefs.Weights.Conflict,
		&prefs.Weights.Focus,
		&prefs.Weights.Priority,
		&prefs.Weights.WorkHours,
		&prefs.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, userID).Scan(dst...); err != nil {
		return nil, err
	}

	return prefs, nil
}

func (r *Repository) UpsertSchedulePreferences(prefs *domain.SchedulePreferences) error {
	query := `
		INSERT INTO user_schedule_preferences
			(user_id, work_hours_start, work_hours_end, target_focus_hours, min_focus_block_minutes,
			weight_conflict, weight_focus, weight_priority, weight_work_hours)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE
		SET
			work_hours_start = EXCLUDED.work_hours_start,
			work_hours_end = EXCLUDED.work_hours_end,
			target_focus_hours = EXCLUDED.target_focus_hours,
			min_focus_block_minutes = EXCLUDED.min_focus_block_minutes,
			weight_conflict = EXCLUDED.weight_conflict,
			weight_focus = EXCLUDED.weight_focus,
			weight_priority = EXCLUDED.weight_priority,
			weight_work_hours = EXCLUDED.weight_work_hours,
			version = user_schedule_preferences.version + 1
		RETURNING version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{
		prefs.UserID,
		prefs.WorkHoursStart,
		prefs.WorkHoursEnd,
		prefs.TargetFocusHours,
		prefs.MinFocusBlockMinutes,
		prefs.Weights.Conflict,
		prefs.Weights.Focus,
		prefs.Weights.Priority,
		prefs.Weights.WorkHours,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&prefs.Version); err != nil {
		return err
	}

	return nil
}
