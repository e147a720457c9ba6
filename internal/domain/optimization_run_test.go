package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// 刚创建的运行对象会被按值拷贝一份交给后台 goroutine，
// 这里保证运行结束时对副本的各种写入不会影响原对象
func TestOptimizationRun_CopyIsIndependent(t *testing.T) {
	run := &OptimizationRun{
		ID:       "0b5b8c1e-7a34-4a41-9c5e-3f2d6e8a9b10",
		UserID:   1,
		Status:   RunStatusRunning,
		Progress: 0,
	}

	workerRun := *run

	now := time.Now()
	workerRun.Status = RunStatusCompleted
	workerRun.Progress = 1
	workerRun.ErrorMessage = "不应该出现在原对象上"
	workerRun.FinishedAt = &now
	workerRun.Result = &OptimizationResult{
		Entries:              []ScheduleEntry{{MeetingID: 1, Title: "周例会"}},
		UnassignedMeetingIDs: []int64{2},
	}
	workerRun.Version++

	require.Equal(t, RunStatusRunning, run.Status)
	require.Equal(t, float64(0), run.Progress)
	require.Empty(t, run.ErrorMessage)
	require.Nil(t, run.FinishedAt)
	require.Nil(t, run.Result)
	require.Equal(t, int32(0), run.Version)
}
