package utils

import (
	"fmt"
	"slices"

	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/domain"
)

// ValidateOptimizationResultWithMeetings 校验优化结果和输入的会议是否对得上
// 优化结束后落库之前调用，防止把不一致的结果写进数据库
func ValidateOptimizationResultWithMeetings(result *domain.OptimizationResult, meetings []*domain.Meeting) error {
	meetingIDs := make([]int64, 0, len(meetings))
	durations := make(map[int64]int32)
	for _, meeting := range meetings {
		meetingIDs = append(meetingIDs, meeting.ID)
		durations[meeting.ID] = meeting.DurationMinutes
	}

	seen := make(map[int64]bool)
	for _, entry := range result.Entries {
		if !slices.Contains(meetingIDs, entry.MeetingID) {
			return fmt.Errorf("优化结果中的会议 %d 不在输入的会议列表中", entry.MeetingID)
		}
		if seen[entry.MeetingID] {
			return fmt.Errorf("会议 %d 在优化结果中出现了多次", entry.MeetingID)
		}
		seen[entry.MeetingID] = true

		if !entry.StartTime.Before(entry.EndTime) {
			return fmt.Errorf("会议 %d 的开始时间没有早于结束时间", entry.MeetingID)
		}
		slotMinutes := int32(entry.EndTime.Sub(entry.StartTime).Minutes())
		if slotMinutes < durations[entry.MeetingID] {
			return fmt.Errorf("会议 %d 被放入了时长不足的时间槽", entry.MeetingID)
		}
	}

	for _, meetingID := range result.UnassignedMeetingIDs {
		if !slices.Contains(meetingIDs, meetingID) {
			return fmt.Errorf("未安排列表中的会议 %d 不在输入的会议列表中", meetingID)
		}
		if seen[meetingID] {
			return fmt.Errorf("会议 %d 既被安排了又出现在未安排列表中", meetingID)
		}
	}

	// 每个输入的会议要么被安排，要么在未安排列表中
	if len(result.Entries)+len(result.UnassignedMeetingIDs) != len(meetings) {
		return fmt.Errorf("优化结果覆盖的会议数 %d 和输入的会议数 %d 不一致",
			len(result.Entries)+len(result.UnassignedMeetingIDs), len(meetings))
	}

	return nil
}
