package optimizer

import (
	"fmt"
	"time"
)

// TimeSlot 表示一个候选的放置窗口
// 每个染色体都持有自己的一份时间槽副本，互相之间不共享引用，
// 这样交叉和变异的时候才不会互相污染
type TimeSlot struct {
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int32
	Available       bool
	Weight          float64 // 取值范围 [0, 1]，表示这个槽位的理想程度（例如上午十点比晚上八点理想）
	OccupantID      *int64  // 当前占用这个槽位的会议 ID，nil 表示没有被占用
}

func NewTimeSlot(start time.Time, end time.Time, weight float64) (*TimeSlot, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("时间槽的开始时间 %v 必须早于结束时间 %v", start, end)
	}
	if weight < 0 || weight > 1 {
		return nil, fmt.Errorf("时间槽的权重 %v 必须在 [0, 1] 范围内", weight)
	}

	return &TimeSlot{
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: int32(end.Sub(start).Minutes()),
		Available:       true,
		Weight:          weight,
		OccupantID:      nil,
	}, nil
}

// Overlaps 判断两个时间槽是否重叠（两个完全相同的区间视为重叠）
func (s *TimeSlot) Overlaps(other *TimeSlot) bool {
	return s.StartTime.Before(other.EndTime) && s.EndTime.After(other.StartTime)
}

// OverlapMinutes 计算两个时间槽重叠的分钟数，不重叠时返回 0
func (s *TimeSlot) OverlapMinutes(other *TimeSlot) int32 {
	if !s.Overlaps(other) {
		return 0
	}

	start := s.StartTime
	if other.StartTime.After(start) {
		start = other.StartTime
	}
	end := s.EndTime
	if other.EndTime.Before(end) {
		end = other.EndTime
	}

	return int32(end.Sub(start).Minutes())
}

// clone 深拷贝一个时间槽
func (s *TimeSlot) clone() *TimeSlot {
	cloned := *s
	if s.OccupantID != nil {
		occupantID := *s.OccupantID
		cloned.OccupantID = &occupantID
	}
	return &cloned
}
