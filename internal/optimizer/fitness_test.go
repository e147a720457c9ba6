package optimizer

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/domain"
)

func TestFitnessEvaluator_ScoreBounds(t *testing.T) {
	eval := NewFitnessEvaluator(domain.DefaultSchedulePreferences(1))

	// 空的排程：没有冲突，没有已占用槽位，工作时间项天然满足，截断后拿到满分
	genes := []*MeetingGene{mustGene(t, 1, 60, 0.5)}
	empty := newChromosome(genes, []*TimeSlot{
		mustSlot(t, 9, 0, 13, 0, 0.5),
	})
	require.Equal(t, 1.0, eval.Score(empty))

	// 大量冲突把得分扣成负数后会被截断到 0
	template := []*TimeSlot{
		mustSlot(t, 10, 0, 11, 0, 0.5),
		mustSlot(t, 10, 15, 11, 15, 0.5),
		mustSlot(t, 10, 30, 11, 30, 0.5),
		mustSlot(t, 10, 45, 11, 45, 0.5),
	}
	manyGenes := []*MeetingGene{
		mustGene(t, 1, 60, 0.5),
		mustGene(t, 2, 60, 0.5),
		mustGene(t, 3, 60, 0.5),
		mustGene(t, 4, 60, 0.5),
	}
	conflicted := newChromosome(manyGenes, template)
	for i, gene := range manyGenes {
		require.True(t, conflicted.Assign(gene, conflicted.slots[i]))
	}
	// 4 个两两重叠的会议有 6 对冲突，仅冲突一项就扣掉 2.4 分
	require.Len(t, conflicted.Conflicts(), 6)
	require.Equal(t, 0.0, eval.Score(conflicted))
}

func TestFitnessEvaluator_ConflictDominates(t *testing.T) {
	eval := NewFitnessEvaluator(domain.DefaultSchedulePreferences(1))

	genes := []*MeetingGene{mustGene(t, 1, 60, 0.5), mustGene(t, 2, 60, 0.5)}
	template := []*TimeSlot{
		mustSlot(t, 10, 0, 11, 0, 0.5),
		mustSlot(t, 10, 30, 11, 30, 0.5),
		mustSlot(t, 14, 0, 15, 0, 0.5),
	}

	clean := newChromosome(genes, template)
	require.True(t, clean.Assign(genes[0], clean.slots[0]))
	require.True(t, clean.Assign(genes[1], clean.slots[2]))

	conflicted := newChromosome(genes, template)
	require.True(t, conflicted.Assign(genes[0], conflicted.slots[0]))
	require.True(t, conflicted.Assign(genes[1], conflicted.slots[1]))

	require.Greater(t, eval.Score(clean), eval.Score(conflicted))
}

// 没有冲突时各加分项会把得分顶到 1.0 再被截断，
// 所以下面的用例都故意埋一对冲突把基准分压到 0.5，让加分项的差异显形

func TestFitnessEvaluator_PriorityPlacement(t *testing.T) {
	prefs := domain.DefaultSchedulePreferences(1)
	prefs.Weights = domain.FitnessWeights{Conflict: 0.5, Priority: 0.2}
	eval := NewFitnessEvaluator(prefs)

	genes := []*MeetingGene{mustGene(t, 1, 60, 1.0), mustGene(t, 2, 60, 1.0)}
	template := []*TimeSlot{
		mustSlot(t, 10, 0, 11, 0, 1.0),
		mustSlot(t, 10, 30, 11, 30, 1.0),
		mustSlot(t, 20, 0, 21, 0, 0.0),
		mustSlot(t, 20, 30, 21, 30, 0.0),
	}

	// 两个高优先级会议都放进理想槽位，优先级项拿满分
	good := newChromosome(genes, template)
	require.True(t, good.Assign(genes[0], good.slots[0]))
	require.True(t, good.Assign(genes[1], good.slots[1]))
	require.InDelta(t, 0.7, eval.Score(good), 1e-9)

	// 同样的会议放进权重为 0 的槽位，优先级项颗粒无收
	bad := newChromosome(genes, template)
	require.True(t, bad.Assign(genes[0], bad.slots[2]))
	require.True(t, bad.Assign(genes[1], bad.slots[3]))
	require.InDelta(t, 0.5, eval.Score(bad), 1e-9)
}

func TestFitnessEvaluator_WorkHours(t *testing.T) {
	prefs := domain.DefaultSchedulePreferences(1)
	prefs.Weights = domain.FitnessWeights{Conflict: 0.5, WorkHours: 0.2}
	eval := NewFitnessEvaluator(prefs)

	genes := []*MeetingGene{mustGene(t, 1, 60, 0.5), mustGene(t, 2, 60, 0.5)}
	template := []*TimeSlot{
		mustSlot(t, 10, 0, 11, 0, 0.5),
		mustSlot(t, 10, 30, 11, 30, 0.5),
		mustSlot(t, 20, 0, 21, 0, 0.5),
		mustSlot(t, 20, 30, 21, 30, 0.5),
	}

	// 两个会议都在工作时间内
	inside := newChromosome(genes, template)
	require.True(t, inside.Assign(genes[0], inside.slots[0]))
	require.True(t, inside.Assign(genes[1], inside.slots[1]))
	require.InDelta(t, 0.7, eval.Score(inside), 1e-9)

	// 两个会议都在晚上八点以后
	outside := newChromosome(genes, template)
	require.True(t, outside.Assign(genes[0], outside.slots[2]))
	require.True(t, outside.Assign(genes[1], outside.slots[3]))
	require.InDelta(t, 0.5, eval.Score(outside), 1e-9)
}

func TestFitnessEvaluator_FocusRatio(t *testing.T) {
	prefs := domain.DefaultSchedulePreferences(1)
	prefs.Weights = domain.FitnessWeights{Conflict: 0.5, Focus: 0.3}
	prefs.TargetFocusHours = 2
	prefs.MinFocusBlockMinutes = 60
	eval := NewFitnessEvaluator(prefs)

	genes := []*MeetingGene{mustGene(t, 1, 60, 0.5), mustGene(t, 2, 60, 0.5)}

	// 4 小时空闲远超 2 小时的目标，专注比例按 1 计
	plenty := newChromosome(genes, []*TimeSlot{
		mustSlot(t, 10, 0, 11, 0, 0.5),
		mustSlot(t, 10, 30, 11, 30, 0.5),
		mustSlot(t, 13, 0, 17, 0, 0.5),
	})
	require.True(t, plenty.Assign(genes[0], plenty.slots[0]))
	require.True(t, plenty.Assign(genes[1], plenty.slots[1]))
	require.InDelta(t, 0.8, eval.Score(plenty), 1e-9)

	// 只有 1 小时的合格专注块（半小时的碎片不计入），专注项拿一半的分
	scarce := newChromosome(genes, []*TimeSlot{
		mustSlot(t, 10, 0, 11, 0, 0.5),
		mustSlot(t, 10, 30, 11, 30, 0.5),
		mustSlot(t, 13, 0, 14, 0, 0.5),
		mustSlot(t, 14, 0, 14, 30, 0.5),
	})
	require.True(t, scarce.Assign(genes[0], scarce.slots[0]))
	require.True(t, scarce.Assign(genes[1], scarce.slots[1]))
	require.InDelta(t, 0.65, eval.Score(scarce), 1e-9)
}
