package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/domain"
)

type preferredWindowRequest struct {
	StartTime time.Time `json:"startTime" validate:"required"`
	EndTime   time.Time `json:"endTime" validate:"required"`
}

func (h *Handler) CreateMeeting(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(UserInfoCtx).(*domain.User)

	var req struct {
		Title             string                   `json:"title" validate:"required"`
		Description       string                   `json:"description"`
		DurationMinutes   int32                    `json:"durationMinutes" validate:"required,min=1"`
		Priority          float64                  `json:"priority" validate:"min=0,max=1"`
		Flexibility       float64                  `json:"flexibility" validate:"min=0,max=1"`
		RequiredAttendees []int64                  `json:"requiredAttendees" validate:"required,min=1"`
		OptionalAttendees []int64                  `json:"optionalAttendees"`
		PreferredWindows  []preferredWindowRequest `json:"preferredWindows" validate:"dive"`
		Constraints       map[string]string        `json:"constraints"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 偏好时间窗口自身也要满足 开始 < 结束
	for _, window := range req.PreferredWindows {
		if !window.StartTime.Before(window.EndTime) {
			h.badRequest(w, r, errors.New("偏好时间窗口的开始时间必须早于结束时间"))
			return
		}
	}

	if req.Constraints == nil {
		req.Constraints = make(map[string]string)
	}

	meeting := &domain.Meeting{
		OrganizerID:       user.ID,
		Title:             req.Title,
		Description:       req.Description,
		DurationMinutes:   req.DurationMinutes,
		Priority:          req.Priority,
		Flexibility:       req.Flexibility,
		RequiredAttendees: req.RequiredAttendees,
		OptionalAttendees: req.OptionalAttendees,
		Constraints:       req.Constraints,
		Status:            domain.MeetingStatusPending,
	}
	for _, window := range req.PreferredWindows {
		meeting.PreferredWindows = append(meeting.PreferredWindows, domain.PreferredWindow{
			StartTime: window.StartTime,
			EndTime:   window.EndTime,
		})
	}

	if err := h.repository.CreateMeeting(meeting); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch {
			case pgErr.ConstraintName == "meeting_attendees_user_id_fkey":
				h.badRequest(w, r, errors.New("参会人不存在"))
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "创建会议成功", meeting)
}

func (h *Handler) GetUserMeetings(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(UserInfoCtx).(*domain.User)

	meetings, err := h.repository.GetMeetingsByOrganizerID(user.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取会议列表成功", meetings)
}

func (h *Handler) GetMeeting(w http.ResponseWriter, r *http.Request) {
	meeting := r.Context().Value(MeetingCtx).(*domain.Meeting)

	h.successResponse(w, r, "获取会议成功", meeting)
}

func (h *Handler) UpdateMeeting(w http.ResponseWriter, r *http.Request) {
	meeting := r.Context().Value(MeetingCtx).(*domain.Meeting)

	var req struct {
		Title             *string                  `json:"title"`
		Description       *string                  `json:"description"`
		DurationMinutes   *int32                   `json:"durationMinutes" validate:"omitempty,min=1"`
		Priority          *float64                 `json:"priority" validate:"omitempty,min=0,max=1"`
		Flexibility       *float64                 `json:"flexibility" validate:"omitempty,min=0,max=1"`
		RequiredAttendees []int64                  `json:"requiredAttendees" validate:"omitempty,min=1"`
		OptionalAttendees []int64                  `json:"optionalAttendees"`
		PreferredWindows  []preferredWindowRequest `json:"preferredWindows" validate:"omitempty,dive"`
		Constraints       map[string]string        `json:"constraints"`
		Status            *string                  `json:"status" validate:"omitempty,oneof=待安排 已安排 已取消"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if req.Title != nil {
		meeting.Title = *req.Title
	}
	if req.Description != nil {
		meeting.Description = *req.Description
	}
	if req.DurationMinutes != nil {
		meeting.DurationMinutes = *req.DurationMinutes
	}
	if req.Priority != nil {
		meeting.Priority = *req.Priority
	}
	if req.Flexibility != nil {
		meeting.Flexibility = *req.Flexibility
	}
	if req.RequiredAttendees != nil {
		meeting.RequiredAttendees = req.RequiredAttendees
	}
	if req.OptionalAttendees != nil {
		meeting.OptionalAttendees = req.OptionalAttendees
	}
	if req.PreferredWindows != nil {
		meeting.PreferredWindows = make([]domain.PreferredWindow, 0, len(req.PreferredWindows))
		for _, window := range req.PreferredWindows {
			if !window.StartTime.Before(window.EndTime) {
				h.badRequest(w, r, errors.New("偏好时间窗口的开始时间必须早于结束时间"))
				return
			}
			meeting.PreferredWindows = append(meeting.PreferredWindows, domain.PreferredWindow{
				StartTime: window.StartTime,
				EndTime:   window.EndTime,
			})
		}
	}
	if req.Constraints != nil {
		meeting.Constraints = req.Constraints
	}
	if req.Status != nil {
		meeting.Status = domain.MeetingStatus(*req.Status)
	}

	if err := h.repository.UpdateMeeting(meeting); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新会议成功", meeting)
}

func (h *Handler) DeleteMeeting(w http.ResponseWriter, r *http.Request) {
	meeting := r.Context().Value(MeetingCtx).(*domain.Meeting)

	if err := h.repository.DeleteMeeting(meeting.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除会议成功", nil)
}
