package optimizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustSlot(t *testing.T, startHour, startMinute, endHour, endMinute int, weight float64) *TimeSlot {
	t.Helper()

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	slot, err := NewTimeSlot(
		day.Add(time.Duration(startHour)*time.Hour+time.Duration(startMinute)*time.Minute),
		day.Add(time.Duration(endHour)*time.Hour+time.Duration(endMinute)*time.Minute),
		weight,
	)
	require.NoError(t, err)

	return slot
}

func TestNewTimeSlot_Validation(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	// 开始时间必须早于结束时间
	_, err := NewTimeSlot(day.Add(10*time.Hour), day.Add(9*time.Hour), 0.5)
	require.Error(t, err)

	// 相同的开始和结束时间也不合法
	_, err = NewTimeSlot(day.Add(10*time.Hour), day.Add(10*time.Hour), 0.5)
	require.Error(t, err)

	// 权重必须在 [0, 1] 内
	_, err = NewTimeSlot(day.Add(10*time.Hour), day.Add(11*time.Hour), 1.5)
	require.Error(t, err)
	_, err = NewTimeSlot(day.Add(10*time.Hour), day.Add(11*time.Hour), -0.1)
	require.Error(t, err)

	slot, err := NewTimeSlot(day.Add(10*time.Hour), day.Add(11*time.Hour), 0.8)
	require.NoError(t, err)
	require.Equal(t, int32(60), slot.DurationMinutes)
	require.True(t, slot.Available)
	require.Nil(t, slot.OccupantID)
}

func TestTimeSlot_Overlaps(t *testing.T) {
	base := mustSlot(t, 10, 0, 11, 0, 0.5)

	// [10:00, 11:00) 和 [10:30, 11:30) 重叠
	require.True(t, base.Overlaps(mustSlot(t, 10, 30, 11, 30, 0.5)))

	// [10:00, 11:00) 和 [11:00, 12:00) 首尾相接，不算重叠
	require.False(t, base.Overlaps(mustSlot(t, 11, 0, 12, 0, 0.5)))

	// 完全相同的区间视为重叠
	require.True(t, base.Overlaps(mustSlot(t, 10, 0, 11, 0, 0.5)))

	// 包含关系也是重叠
	require.True(t, base.Overlaps(mustSlot(t, 9, 0, 12, 0, 0.5)))
}

func TestTimeSlot_OverlapMinutes(t *testing.T) {
	base := mustSlot(t, 10, 0, 11, 0, 0.5)

	require.Equal(t, int32(30), base.OverlapMinutes(mustSlot(t, 10, 30, 11, 30, 0.5)))
	require.Equal(t, int32(0), base.OverlapMinutes(mustSlot(t, 11, 0, 12, 0, 0.5)))
	require.Equal(t, int32(60), base.OverlapMinutes(mustSlot(t, 9, 0, 12, 0, 0.5)))
}

func TestTimeSlot_CloneIsIndependent(t *testing.T) {
	slot := mustSlot(t, 10, 0, 11, 0, 0.5)
	occupantID := int64(42)
	slot.Available = false
	slot.OccupantID = &occupantID

	cloned := slot.clone()
	require.Equal(t, int64(42), *cloned.OccupantID)

	// 修改克隆不应该影响原来的槽位
	*cloned.OccupantID = 99
	cloned.Available = true
	require.Equal(t, int64(42), *slot.OccupantID)
	require.False(t, slot.Available)
}
