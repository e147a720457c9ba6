package domain

import "time"

type OptimizationRunStatus string

const (
	RunStatusRunning   OptimizationRunStatus = "运行中"
	RunStatusCompleted OptimizationRunStatus = "已完成"
	RunStatusCancelled OptimizationRunStatus = "已取消"
	RunStatusFailed    OptimizationRunStatus = "已失败"
)

// ScheduleEntry 最优染色体中一个已被占用的时间槽
type ScheduleEntry struct {
	MeetingID       int64     `json:"meetingID"`
	Title           string    `json:"title"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	DurationMinutes int32     `json:"durationMinutes"`
	Priority        float64   `json:"priority"`
}

// OptimizationStatistics 一次优化运行的统计信息
type OptimizationStatistics struct {
	Generations           int32   `json:"generations"`
	BestFitness           float64 `json:"bestFitness"`
	Improvement           float64 `json:"improvement"`           // 首末两代最佳适应度之差
	ConvergenceGeneration int32   `json:"convergenceGeneration"` // 首次达到阈值的代数，没达到则为最后一代
}

// OptimizationResult 优化运行的最终结果
// UnassignedMeetingIDs 不为空表示部分会议无法安排，需要用户人工介入
type OptimizationResult struct {
	Entries              []ScheduleEntry        `json:"entries"`
	UnassignedMeetingIDs []int64                `json:"unassignedMeetingIDs"`
	Statistics           OptimizationStatistics `json:"statistics"`
}

type OptimizationRun struct {
	ID           string                `json:"id"`
	UserID       int64                 `json:"userID"`
	Status       OptimizationRunStatus `json:"status"`
	Progress     float64               `json:"progress"` // 取值范围 [0, 1]
	ErrorMessage string                `json:"errorMessage,omitempty"`
	Result       *OptimizationResult   `json:"result,omitempty"`
	CreatedAt    time.Time             `json:"createdAt"`
	FinishedAt   *time.Time            `json:"finishedAt,omitempty"`
	Version      int32                 `json:"-"`
}
