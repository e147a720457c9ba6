package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/domain"
	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/optimizer"
	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/utils"
)

const notificationQueueName = "notification_queue"

func (h *Handler) StartOptimizationRun(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(UserInfoCtx).(*domain.User)

	// 获取参数，没有传的参数使用配置中的默认值
	var req struct {
		PopulationSize   *int32   `json:"populationSize" validate:"omitempty,min=2"`
		MaxGenerations   *int32   `json:"maxGenerations" validate:"omitempty,min=1"`
		CrossoverRate    *float64 `json:"crossoverRate" validate:"omitempty,min=0,max=1"`
		MutationRate     *float64 `json:"mutationRate" validate:"omitempty,min=0,max=1"`
		FitnessThreshold *float64 `json:"fitnessThreshold" validate:"omitempty,gt=0,max=1"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	params := &optimizer.Parameters{
		PopulationSize:   h.config.Optimizer.PopulationSize,
		MaxGenerations:   h.config.Optimizer.MaxGenerations,
		CrossoverRate:    h.config.Optimizer.CrossoverRate,
		MutationRate:     h.config.Optimizer.MutationRate,
		FitnessThreshold: h.config.Optimizer.FitnessThreshold,
	}
	if req.PopulationSize != nil {
		params.PopulationSize = *req.PopulationSize
	}
	if req.MaxGenerations != nil {
		params.MaxGenerations = *req.MaxGenerations
	}
	if req.CrossoverRate != nil {
		params.CrossoverRate = *req.CrossoverRate
	}
	if req.MutationRate != nil {
		params.MutationRate = *req.MutationRate
	}
	if req.FitnessThreshold != nil {
		params.FitnessThreshold = *req.FitnessThreshold
	}

	// 参数错误必须在任何种群工作开始之前报告给用户
	if err := params.Validate(); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 获取用户的排程偏好
	prefs, err := h.repository.GetSchedulePreferencesByUserID(user.ID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			prefs = domain.DefaultSchedulePreferences(user.ID)
		default:
			h.internalServerError(w, r, err)
			return
		}
	}

	// 获取待安排的会议并转换成基因
	meetings, err := h.repository.GetPendingMeetingsByOrganizerID(user.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if len(meetings) == 0 {
		h.errorResponse(w, r, "没有待安排的会议")
		return
	}

	genes := make([]*optimizer.MeetingGene, 0, len(meetings))
	for _, meeting := range meetings {
		gene, err := optimizer.NewMeetingGene(meeting)
		if err != nil {
			h.badRequest(w, r, err)
			return
		}
		genes = append(genes, gene)
	}

	// 根据用户的工作时间生成候选时间槽模板
	slotTemplate, err := h.buildSlotTemplate(user, prefs)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if len(slotTemplate) == 0 {
		h.errorResponse(w, r, "用户的工作时间内没有任何候选时间槽")
		return
	}

	run := &domain.OptimizationRun{
		ID:     uuid.New().String(),
		UserID: user.ID,
		Status: domain.RunStatusRunning,
	}
	if err := h.repository.InsertOptimizationRun(run); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 在后台驱动优化运行，保持请求层的响应性
	runCtx, cancel := context.WithCancel(context.Background())
	live := newLiveRun(cancel)

	h.runsMu.Lock()
	h.liveRuns[run.ID] = live
	h.runsMu.Unlock()

	// 后台 goroutine 持有自己的一份运行对象，
	// 响应里用的这份在请求返回之后不会再被任何人写
	workerRun := *run
	go h.runOptimization(runCtx, live, &workerRun, user, params, prefs, meetings, genes, slotTemplate)

	h.successResponse(w, r, "优化任务已启动", run)
}

// buildSlotTemplate 在接下来的若干个工作日内，按用户的工作时间切出候选时间槽
// 槽位权重在中午前后最高，体现"会议尽量安排在一天的中段"的偏好
func (h *Handler) buildSlotTemplate(user *domain.User, prefs *domain.SchedulePreferences) ([]*optimizer.TimeSlot, error) {
	location, err := time.LoadLocation(user.Timezone)
	if err != nil {
		location = time.Local
	}

	slotMinutes := h.config.Optimizer.SlotMinutes
	slots := make([]*optimizer.TimeSlot, 0)
	now := time.Now().In(location)

	workdays := 0
	for offset := 1; workdays < h.config.Optimizer.HorizonDays; offset++ {
		day := now.AddDate(0, 0, offset)
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		workdays++

		for hour := prefs.WorkHoursStart; hour < prefs.WorkHoursEnd; hour++ {
			start := time.Date(day.Year(), day.Month(), day.Day(), int(hour), 0, 0, 0, location)
			end := start.Add(time.Duration(slotMinutes) * time.Minute)

			// 中午 13 点附近的槽位权重最高
			weight := 1 - float64(abs32(hour-13))/12
			if weight < 0 {
				weight = 0
			}

			slot, err := optimizer.NewTimeSlot(start, end, weight)
			if err != nil {
				return nil, err
			}
			slots = append(slots, slot)
		}
	}

	return slots, nil
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// runOptimization 在后台 goroutine 中执行一次完整的优化运行
// 每一代结束后把进度写入 redis 并广播给 websocket 订阅者，
// 运行结束后落库并向通知队列发布消息
func (h *Handler) runOptimization(
	ctx context.Context,
	live *liveRun,
	run *domain.OptimizationRun,
	user *domain.User,
	params *optimizer.Parameters,
	prefs *domain.SchedulePreferences,
	meetings []*domain.Meeting,
	genes []*optimizer.MeetingGene,
	slotTemplate []*optimizer.TimeSlot,
) {
	defer func() {
		h.runsMu.Lock()
		delete(h.liveRuns, run.ID)
		h.runsMu.Unlock()
		live.closeAll()
	}()

	opt, err := optimizer.New(params, genes, slotTemplate, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		h.finalizeRun(run, user, domain.RunStatusFailed, nil, err.Error())
		return
	}

	eval := optimizer.NewFitnessEvaluator(prefs)
	result, evolveErr := opt.Evolve(ctx, eval, func(progress optimizer.Progress) {
		fraction := float64(progress.Generation) / float64(progress.MaxGenerations)
		h.storeRunProgress(run.ID, fraction)
		live.broadcast(progress)
	})

	runResult := h.buildRunResult(result)

	if evolveErr != nil {
		// 协作式取消：保留目前为止找到的最好方案
		slog.Info("优化任务被取消", "runID", run.ID, "error", evolveErr)
		h.finalizeRun(run, user, domain.RunStatusCancelled, runResult, "")
		return
	}

	// 落库之前先校验结果和输入的会议是否对得上
	if err := utils.ValidateOptimizationResultWithMeetings(runResult, meetings); err != nil {
		h.finalizeRun(run, user, domain.RunStatusFailed, nil, err.Error())
		return
	}

	// 把成功安排的会议标记为已安排
	scheduledIDs := make([]int64, 0, len(runResult.Entries))
	for _, entry := range runResult.Entries {
		scheduledIDs = append(scheduledIDs, entry.MeetingID)
	}
	if err := h.repository.MarkMeetingsScheduled(scheduledIDs); err != nil {
		h.finalizeRun(run, user, domain.RunStatusFailed, runResult, err.Error())
		return
	}

	h.finalizeRun(run, user, domain.RunStatusCompleted, runResult, "")
}

func (h *Handler) buildRunResult(result *optimizer.Result) *domain.OptimizationResult {
	if result == nil || result.Best == nil {
		return nil
	}

	unassigned := make([]int64, 0)
	for _, gene := range result.Best.UnassignedGenes() {
		unassigned = append(unassigned, gene.ID)
	}

	// 交叉可能让同一个会议占用多个槽位，对外只保留最早出现的那一个
	entries := make([]domain.ScheduleEntry, 0)
	seen := make(map[int64]bool)
	for _, entry := range result.Best.Entries() {
		if seen[entry.MeetingID] {
			continue
		}
		seen[entry.MeetingID] = true
		entries = append(entries, entry)
	}

	return &domain.OptimizationResult{
		Entries:              entries,
		UnassignedMeetingIDs: unassigned,
		Statistics: domain.OptimizationStatistics{
			Generations:           result.Statistics.Generations,
			BestFitness:           result.Statistics.BestFitness,
			Improvement:           result.Statistics.Improvement,
			ConvergenceGeneration: result.Statistics.ConvergenceGeneration,
		},
	}
}

func (h *Handler) finalizeRun(run *domain.OptimizationRun, user *domain.User, status domain.OptimizationRunStatus, result *domain.OptimizationResult, errorMessage string) {
	now := time.Now()
	run.Status = status
	run.Progress = 1
	run.Result = result
	run.ErrorMessage = errorMessage
	run.FinishedAt = &now

	if err := h.repository.FinalizeOptimizationRun(run); err != nil {
		slog.Error("无法保存优化任务结果", "runID", run.ID, "error", err)
		return
	}

	h.notifyRunFinished(run, user)
}

// notifyRunFinished 向通知队列发布一条消息，由 notify worker 负责给用户发邮件
func (h *Handler) notifyRunFinished(run *domain.OptimizationRun, user *domain.User) {
	var message domain.NotificationMessage

	switch run.Status {
	case domain.RunStatusCompleted:
		message = domain.NotificationMessage{
			Type: "schedule_ready",
			To:   user.Email,
			Data: domain.ScheduleReadyNotificationData{
				FullName:         user.FullName,
				RunID:            run.ID,
				ScheduledCount:   len(run.Result.Entries),
				UnassignedCount:  len(run.Result.UnassignedMeetingIDs),
				BestFitness:      run.Result.Statistics.BestFitness,
				GenerationsCount: run.Result.Statistics.Generations,
			},
		}
	case domain.RunStatusFailed:
		message = domain.NotificationMessage{
			Type: "schedule_failed",
			To:   user.Email,
			Data: domain.ScheduleFailedNotificationData{
				FullName: user.FullName,
				RunID:    run.ID,
				Reason:   run.ErrorMessage,
			},
		}
	default:
		// 用户自己取消的任务不需要通知
		return
	}

	body, err := json.Marshal(message)
	if err != nil {
		slog.Error("无法序列化通知消息", "runID", run.ID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	err = h.notifyChannel.PublishWithContext(ctx,
		"",
		notificationQueueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		slog.Error("无法发布通知消息", "runID", run.ID, "error", err)
	}
}

func (h *Handler) runProgressKey(runID string) string {
	return fmt.Sprintf("optimization_run:%s:progress", runID)
}

func (h *Handler) storeRunProgress(runID string, progress float64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.Redis.ConnectTimeout)*time.Second)
	defer cancel()

	expiration := time.Duration(h.config.Redis.ProgressExpiration) * time.Second
	if err := h.redisClient.Set(ctx, h.runProgressKey(runID), progress, expiration).Err(); err != nil {
		slog.Error("无法写入优化任务进度", "runID", runID, "error", err)
	}
}

func (h *Handler) GetUserOptimizationRuns(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(UserInfoCtx).(*domain.User)

	runs, err := h.repository.GetOptimizationRunsByUserID(user.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取优化任务列表成功", runs)
}

func (h *Handler) GetOptimizationRun(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(OptimizationRunCtx).(*domain.OptimizationRun)

	// 运行中的任务进度在 redis 里，数据库中只有最终状态
	if run.Status == domain.RunStatusRunning {
		progress, err := h.redisClient.Get(r.Context(), h.runProgressKey(run.ID)).Float64()
		if err == nil {
			run.Progress = progress
		}
	}

	h.successResponse(w, r, "获取优化任务成功", run)
}

func (h *Handler) CancelOptimizationRun(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(OptimizationRunCtx).(*domain.OptimizationRun)

	h.runsMu.Lock()
	live, exists := h.liveRuns[run.ID]
	h.runsMu.Unlock()

	if !exists {
		h.errorResponse(w, r, "优化任务已结束，无法取消")
		return
	}

	live.cancel()
	h.successResponse(w, r, "优化任务正在取消", nil)
}

func (h *Handler) GetOptimizationRunResult(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(OptimizationRunCtx).(*domain.OptimizationRun)

	if run.Result == nil {
		h.errorResponse(w, r, "优化任务还没有结果")
		return
	}

	h.successResponse(w, r, "获取优化结果成功", run.Result)
}
