package domain

// FitnessWeights 适应度各项的权重
// 注意这些权重不要求和恰好为 1：冲突项是无上限扣分的，
// 最终得分会被截断到 [0, 1]，这样冲突多的方案一定能被压到最低分
type FitnessWeights struct {
	Conflict  float64 `json:"conflict"`
	Focus     float64 `json:"focus"`
	Priority  float64 `json:"priority"`
	WorkHours float64 `json:"workHours"`
}

// SchedulePreferences 用户的排程偏好，由优化引擎的适应度函数消费
type SchedulePreferences struct {
	UserID               int64          `json:"userID"`
	WorkHoursStart       int32          `json:"workHoursStart"` // 小时，例如 9 表示 09:00
	WorkHoursEnd         int32          `json:"workHoursEnd"`
	TargetFocusHours     float64        `json:"targetFocusHours"`
	MinFocusBlockMinutes int32          `json:"minFocusBlockMinutes"`
	Weights              FitnessWeights `json:"weights"`
	Version              int32          `json:"-"`
}

// DefaultSchedulePreferences 用户没有保存过偏好时使用的默认值
func DefaultSchedulePreferences(userID int64) *SchedulePreferences {
	return &SchedulePreferences{
		UserID:               userID,
		WorkHoursStart:       9,
		WorkHoursEnd:         18,
		TargetFocusHours:     4,
		MinFocusBlockMinutes: 60,
		Weights: FitnessWeights{
			Conflict:  0.4,
			Focus:     0.3,
			Priority:  0.2,
			WorkHours: 0.1,
		},
	}
}
