package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/domain"
)

func (h *Handler) GetSchedulePreferences(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(UserInfoCtx).(*domain.User)

	prefs, err := h.repository.GetSchedulePreferencesByUserID(user.ID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// 用户还没有保存过偏好，返回默认值
			h.successResponse(w, r, "获取排程偏好成功", domain.DefaultSchedulePreferences(user.ID))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "获取排程偏好成功", prefs)
}

func (h *Handler) UpdateSchedulePreferences(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(UserInfoCtx).(*domain.User)

	var req struct {
		WorkHoursStart       int32   `json:"workHoursStart" validate:"min=0,max=23"`
		WorkHoursEnd         int32   `json:"workHoursEnd" validate:"min=0,max=23"`
		TargetFocusHours     float64 `json:"targetFocusHours" validate:"min=0"`
		MinFocusBlockMinutes int32   `json:"minFocusBlockMinutes" validate:"min=1"`
		Weights              struct {
			Conflict  float64 `json:"conflict" validate:"min=0"`
			Focus     float64 `json:"focus" validate:"min=0"`
			Priority  float64 `json:"priority" validate:"min=0"`
			WorkHours float64 `json:"workHours" validate:"min=0"`
		} `json:"weights"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if req.WorkHoursStart >= req.WorkHoursEnd {
		h.badRequest(w, r, errors.New("工作开始时间必须早于工作结束时间"))
		return
	}

	prefs := &domain.SchedulePreferences{
		UserID:               user.ID,
		WorkHoursStart:       req.WorkHoursStart,
		WorkHoursEnd:         req.WorkHoursEnd,
		TargetFocusHours:     req.TargetFocusHours,
		MinFocusBlockMinutes: req.MinFocusBlockMinutes,
		Weights: domain.FitnessWeights{
			Conflict:  req.Weights.Conflict,
			Focus:     req.Weights.Focus,
			Priority:  req.Weights.Priority,
			WorkHours: req.Weights.WorkHours,
		},
	}

	if err := h.repository.UpsertSchedulePreferences(prefs); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新排程偏好成功", prefs)
}
