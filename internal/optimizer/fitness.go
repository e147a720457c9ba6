package optimizer

import (
	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/domain"
)

// FitnessEvaluator 根据用户的排程偏好对染色体进行评分
type FitnessEvaluator struct {
	prefs *domain.SchedulePreferences
}

func NewFitnessEvaluator(prefs *domain.SchedulePreferences) *FitnessEvaluator {
	return &FitnessEvaluator{prefs: prefs}
}

/**
 * Score 计算染色体的适应度，返回值在 [0, 1] 之间，越高越好
 * score = 1.0 - Conflict * 冲突数 + Focus * 专注时间比例 + Priority * 优先级放置得分 + WorkHours * 工作时间内比例
 * 其中:
 * 		1. 冲突扣分没有上限，3 个冲突扣的分就是 1 个冲突的 3 倍，
 * 		   这样冲突多的方案在截断前就可能是负分，保证冲突主导整个信号
 * 		2. 专注时间比例为合格专注块的总分钟数和目标专注分钟数之比，超过目标按 1 计
 * 		3. 优先级放置得分奖励的是把重要会议放进理想槽位，而不仅仅是放下了它
 * 		4. 没有任何已占用槽位时，工作时间项视为天然满足，按 1 计
 */
func (e *FitnessEvaluator) Score(ch *Chromosome) float64 {
	weights := e.prefs.Weights

	// 冲突扣分
	score := 1.0
	score -= weights.Conflict * float64(len(ch.Conflicts()))

	// 专注时间加分
	focusMinutes := int32(0)
	for _, block := range ch.FocusBlocks(e.prefs.MinFocusBlockMinutes) {
		focusMinutes += block.DurationMinutes
	}
	targetMinutes := e.prefs.TargetFocusHours * 60
	if targetMinutes > 0 {
		ratio := float64(focusMinutes) / targetMinutes
		if ratio > 1 {
			ratio = 1
		}
		score += weights.Focus * ratio
	}

	// 优先级放置加分
	prioritySum := 0.0
	for _, gene := range ch.genes {
		prioritySum += gene.Priority
	}
	if prioritySum > 0 {
		placed := 0.0
		for _, slot := range ch.slots {
			if slot.OccupantID == nil {
				continue
			}
			if gene := ch.geneByID(*slot.OccupantID); gene != nil {
				placed += gene.Priority * slot.Weight
			}
		}
		score += weights.Priority * (placed / prioritySum)
	}

	// 工作时间加分
	occupied := 0
	inWorkHours := 0
	for _, slot := range ch.slots {
		if slot.OccupantID == nil {
			continue
		}
		occupied++
		hour := int32(slot.StartTime.Hour())
		if hour >= e.prefs.WorkHoursStart && hour <= e.prefs.WorkHoursEnd {
			inWorkHours++
		}
	}
	if occupied == 0 {
		score += weights.WorkHours
	} else {
		score += weights.WorkHours * (float64(inWorkHours) / float64(occupied))
	}

	// 截断到 [0, 1]
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	return score
}
