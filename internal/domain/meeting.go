package domain

import "time"

type MeetingStatus string

const (
	MeetingStatusPending   MeetingStatus = "待安排"
	MeetingStatusScheduled MeetingStatus = "已安排"
	MeetingStatusCancelled MeetingStatus = "已取消"
)

// PreferredWindow 表示会议偏好的时间窗口（例如只希望在周三上午开会）
type PreferredWindow struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

type Meeting struct {
	ID                int64             `json:"id"`
	OrganizerID       int64             `json:"organizerID"`
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	DurationMinutes   int32             `json:"durationMinutes"`
	Priority          float64           `json:"priority"`    // 取值范围 [0, 1]
	Flexibility       float64           `json:"flexibility"` // 0 表示时间固定，1 表示完全可移动
	RequiredAttendees []int64           `json:"requiredAttendees"`
	OptionalAttendees []int64           `json:"optionalAttendees"`
	PreferredWindows  []PreferredWindow `json:"preferredWindows"`
	Constraints       map[string]string `json:"constraints"` // 透传的额外约束，核心不解释其含义
	Status            MeetingStatus     `json:"status"`
	CreatedAt         time.Time         `json:"createdAt"`
	Version           int32             `json:"-"`
}
