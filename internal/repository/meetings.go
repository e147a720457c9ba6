package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/domain"
)

func (r *Repository) CreateMeeting(meeting *domain.Meeting) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	constraints, err := json.Marshal(meeting.Constraints)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO meetings (organizer_id, title, description, duration_minutes, priority, flexibility, constraints, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, version
	`

	args := []any{meeting.OrganizerID, meeting.Title, meeting.Description, meeting.DurationMinutes, meeting.Priority, meeting.Flexibility, constraints, meeting.Status}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&meeting.ID, &meeting.CreatedAt, &meeting.Version); err != nil {
		return err
	}

	if err := insertMeetingRelations(ctx, tx, meeting); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// insertMeetingRelations 插入参会人和偏好时间窗口，必须在事务中调用
func insertMeetingRelations(ctx context.Context, tx *sql.Tx, meeting *domain.Meeting) error {
	query := `
		INSERT INTO meeting_attendees (meeting_id, user_id, is_required)
		VALUES ($1, $2, $3)
	`
	for _, attendeeID := range meeting.RequiredAttendees {
		if _, err := tx.ExecContext(ctx, query, meeting.ID, attendeeID, true); err != nil {
			return err
		}
	}
	for _, attendeeID := range meeting.OptionalAttendees {
		if _, err := tx.ExecContext(ctx, query, meeting.ID, attendeeID, false); err != nil {
			return err
		}
	}

	query = `
		INSERT INTO meeting_preferred_windows (meeting_id, start_time, end_time)
		VALUES ($1, $2, $3)
	`
	for _, window := range meeting.PreferredWindows {
		if _, err := tx.ExecContext(ctx, query, meeting.ID, window.StartTime, window.EndTime); err != nil {
			return err
		}
	}

	return nil
}

func (r *Repository) GetMeetingByID(id int64) (*domain.Meeting, error) {
	query := `
		SELECT organizer_id, title, description, duration_minutes, priority, flexibility, constraints, status, created_at, version
		FROM meetings WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	meeting := &domain.Meeting{
		ID: id,
	}

	var constraints []byte
	dst := []any{&meeting.OrganizerID, &meeting.Title, &meeting.Description, &meeting.DurationMinutes, &meeting.Priority, &meeting.Flexibility, &constraints, &meeting.Status, &meeting.CreatedAt, &meeting.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(constraints, &meeting.Constraints); err != nil {
		return nil, err
	}

	if err := r.loadMeetingRelations(ctx, meeting); err != nil {
		return nil, err
	}

	return meeting, nil
}

func (r *Repository) loadMeetingRelations(ctx context.Context, meeting *domain.Meeting) error {
	meeting.RequiredAttendees = make([]int64, 0)
	meeting.OptionalAttendees = make([]int64, 0)
	meeting.PreferredWindows = make([]domain.PreferredWindow, 0)

	query := `
		SELECT user_id, is_required FROM meeting_attendees WHERE meeting_id = $1
	`

	rows, err := r.dbpool.QueryContext(ctx, query, meeting.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var userID int64
		var isRequired bool
		if err := rows.Scan(&userID, &isRequired); err != nil {
			return err
		}
		if isRequired {
			meeting.RequiredAttendees = append(meeting.RequiredAttendees, userID)
		} else {
			meeting.OptionalAttendees = append(meeting.OptionalAttendees, userID)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	query = `
		SELECT start_time, end_time FROM meeting_preferred_windows WHERE meeting_id = $1
	`

	windowRows, err := r.dbpool.QueryContext(ctx, query, meeting.ID)
	if err != nil {
		return err
	}
	defer windowRows.Close()

	for windowRows.Next() {
		var window domain.PreferredWindow
		if err := windowRows.Scan(&window.StartTime, &window.EndTime); err != nil {
			return err
		}
		meeting.PreferredWindows = append(meeting.PreferredWindows, window)
	}
	if err := windowRows.Err(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetMeetingsByOrganizerID(organizerID int64) ([]*domain.Meeting, error) {
	query := `
		SELECT id, title, description, duration_minutes, priority, flexibility, constraints, status, created_at, version
		FROM meetings WHERE organizer_id = $1
		ORDER BY created_at
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meetings := make([]*domain.Meeting, 0)
	for rows.Next() {
		meeting := &domain.Meeting{
			OrganizerID: organizerID,
		}
		var constraints []byte
		dst := []any{&meeting.ID, &meeting.Title, &meeting.Description, &meeting.DurationMinutes, &meeting.Priority, &meeting.Flexibility, &constraints, &meeting.Status, &meeting.CreatedAt, &meeting.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(constraints, &meeting.Constraints); err != nil {
			return nil, err
		}
		meetings = append(meetings, meeting)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, meeting := range meetings {
		if err := r.loadMeetingRelations(ctx, meeting); err != nil {
			return nil, err
		}
	}

	return meetings, nil
}

// GetPendingMeetingsByOrganizerID 获取用户所有待安排的会议，优化运行以此作为输入
func (r *Repository) GetPendingMeetingsByOrganizerID(organizerID int64) ([]*domain.Meeting, error) {
	meetings, err := r.GetMeetingsByOrganizerID(organizerID)
	if err != nil {
		return nil, err
	}

	pending := make([]*domain.Meeting, 0)
	for _, meeting := range meetings {
		if meeting.Status == domain.MeetingStatusPending {
			pending = append(pending, meeting)
		}
	}

	return pending, nil
}

func (r *Repository) UpdateMeeting(meeting *domain.Meeting) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	constraints, err := json.Marshal(meeting.Constraints)
	if err != nil {
		return err
	}

	query := `
		UPDATE meetings
		SET
			title = $1,
			description = $2,
			duration_minutes = $3,
			priority = $4,
			flexibility = $5,
			constraints = $6,
			status = $7,
			version = version + 1
		WHERE id = $8 AND version = $9
		RETURNING created_at, version
	`

	args := []any{meeting.Title, meeting.Description, meeting.DurationMinutes, meeting.Priority, meeting.Flexibility, constraints, meeting.Status, meeting.ID, meeting.Version}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&meeting.CreatedAt, &meeting.Version); err != nil {
		return err
	}

	// 参会人和偏好窗口直接整体替换
	if _, err := tx.ExecContext(ctx, `DELETE FROM meeting_attendees WHERE meeting_id = $1`, meeting.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM meeting_preferred_windows WHERE meeting_id = $1`, meeting.ID); err != nil {
		return err
	}
	if err := insertMeetingRelations(ctx, tx, meeting); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteMeeting(id int64) error {
	query := `
		DELETE FROM meetings WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return err
	}

	return nil
}

// MarkMeetingsScheduled 将被成功安排的会议标记为已安排
func (r *Repository) MarkMeetingsScheduled(meetingIDs []int64) error {
	if len(meetingIDs) == 0 {
		return nil
	}

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
		UPDATE meetings SET status = $1, version = version + 1 WHERE id = $2
	`
	for _, id := range meetingIDs {
		if _, err := tx.ExecContext(ctx, query, domain.MeetingStatusScheduled, id); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}
