package optimizer

import (
	"fmt"

	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/domain"
)

// MeetingGene 表示一个待安排的会议请求
// 基因在整个优化运行期间只读，所有染色体共享同一份基因列表
type MeetingGene struct {
	ID                int64
	Title             string
	DurationMinutes   int32
	Priority          float64 // 取值范围 [0, 1]
	Flexibility       float64 // 0 表示时间固定，1 表示完全可移动
	RequiredAttendees []int64
	OptionalAttendees []int64
	PreferredWindows  []domain.PreferredWindow
	Constraints       map[string]string // 透传的约束，核心不解释其含义
}

func NewMeetingGene(meeting *domain.Meeting) (*MeetingGene, error) {
	if meeting.Priority < 0 || meeting.Priority > 1 {
		return nil, fmt.Errorf("会议 %d 的优先级 %v 必须在 [0, 1] 范围内", meeting.ID, meeting.Priority)
	}
	if meeting.Flexibility < 0 || meeting.Flexibility > 1 {
		return nil, fmt.Errorf("会议 %d 的灵活度 %v 必须在 [0, 1] 范围内", meeting.ID, meeting.Flexibility)
	}
	if meeting.DurationMinutes <= 0 {
		return nil, fmt.Errorf("会议 %d 的时长 %d 必须为正数", meeting.ID, meeting.DurationMinutes)
	}

	return &MeetingGene{
		ID:                meeting.ID,
		Title:             meeting.Title,
		DurationMinutes:   meeting.DurationMinutes,
		Priority:          meeting.Priority,
		Flexibility:       meeting.Flexibility,
		RequiredAttendees: meeting.RequiredAttendees,
		OptionalAttendees: meeting.OptionalAttendees,
		PreferredWindows:  meeting.PreferredWindows,
		Constraints:       meeting.Constraints,
	}, nil
}

// overlapsPreferredWindow 判断时间槽是否和基因的某个偏好时间窗口重叠
// 基因没有偏好窗口时返回 false，由调用方决定回退行为
func (g *MeetingGene) overlapsPreferredWindow(slot *TimeSlot) bool {
	for _, window := range g.PreferredWindows {
		if slot.StartTime.Before(window.EndTime) && slot.EndTime.After(window.StartTime) {
			return true
		}
	}
	return false
}
