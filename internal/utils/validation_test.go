package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/domain"
)

func testMeetings() []*domain.Meeting {
	return []*domain.Meeting{
		{ID: 1, Title: "周例会", DurationMinutes: 60},
		{ID: 2, Title: "项目评审", DurationMinutes: 30},
	}
}

func entryAt(meetingID int64, startHour int, durationMinutes int32) domain.ScheduleEntry {
	start := time.Date(2025, 3, 10, startHour, 0, 0, 0, time.UTC)
	return domain.ScheduleEntry{
		MeetingID:       meetingID,
		StartTime:       start,
		EndTime:         start.Add(time.Duration(durationMinutes) * time.Minute),
		DurationMinutes: durationMinutes,
	}
}

func TestValidateOptimizationResultWithMeetings(t *testing.T) {
	meetings := testMeetings()

	t.Run("合法的结果", func(t *testing.T) {
		result := &domain.OptimizationResult{
			Entries:              []domain.ScheduleEntry{entryAt(1, 9, 60)},
			UnassignedMeetingIDs: []int64{2},
		}
		require.NoError(t, ValidateOptimizationResultWithMeetings(result, meetings))
	})

	t.Run("全部安排", func(t *testing.T) {
		result := &domain.OptimizationResult{
			Entries:              []domain.ScheduleEntry{entryAt(1, 9, 60), entryAt(2, 11, 30)},
			UnassignedMeetingIDs: []int64{},
		}
		require.NoError(t, ValidateOptimizationResultWithMeetings(result, meetings))
	})

	t.Run("结果中出现未知的会议", func(t *testing.T) {
		result := &domain.OptimizationResult{
			Entries:              []domain.ScheduleEntry{entryAt(99, 9, 60)},
			UnassignedMeetingIDs: []int64{1, 2},
		}
		require.Error(t, ValidateOptimizationResultWithMeetings(result, meetings))
	})

	t.Run("同一个会议出现多次", func(t *testing.T) {
		result := &domain.OptimizationResult{
			Entries:              []domain.ScheduleEntry{entryAt(1, 9, 60), entryAt(1, 11, 60)},
			UnassignedMeetingIDs: []int64{2},
		}
		require.Error(t, ValidateOptimizationResultWithMeetings(result, meetings))
	})

	t.Run("槽位时长不足", func(t *testing.T) {
		result := &domain.OptimizationResult{
			Entries:              []domain.ScheduleEntry{entryAt(1, 9, 30)},
			UnassignedMeetingIDs: []int64{2},
		}
		require.Error(t, ValidateOptimizationResultWithMeetings(result, meetings))
	})

	t.Run("会议既被安排又在未安排列表中", func(t *testing.T) {
		result := &domain.OptimizationResult{
			Entries:              []domain.ScheduleEntry{entryAt(1, 9, 60)},
			UnassignedMeetingIDs: []int64{1, 2},
		}
		require.Error(t, ValidateOptimizationResultWithMeetings(result, meetings))
	})

	t.Run("覆盖的会议数不一致", func(t *testing.T) {
		result := &domain.OptimizationResult{
			Entries:              []domain.ScheduleEntry{entryAt(1, 9, 60)},
			UnassignedMeetingIDs: []int64{},
		}
		require.Error(t, ValidateOptimizationResultWithMeetings(result, meetings))
	})
}
