package optimizer

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/domain"
)

// hourlySlots 生成从 startHour 开始的 count 个连续一小时槽位
func hourlySlots(t *testing.T, startHour int, count int) []*TimeSlot {
	t.Helper()

	slots := make([]*TimeSlot, 0, count)
	for i := 0; i < count; i++ {
		slots = append(slots, mustSlot(t, startHour+i, 0, startHour+i+1, 0, 0.5))
	}
	return slots
}

func collectMeetingIDs(entries []domain.ScheduleEntry) map[int64]bool {
	ids := make(map[int64]bool)
	for _, entry := range entries {
		ids[entry.MeetingID] = true
	}
	return ids
}

func TestParameters_Validate(t *testing.T) {
	require.NoError(t, DefaultParameters().Validate())

	testCases := []struct {
		name   string
		modify func(p *Parameters)
	}{
		{"种群太小", func(p *Parameters) { p.PopulationSize = 1 }},
		{"迭代次数为零", func(p *Parameters) { p.MaxGenerations = 0 }},
		{"交叉概率为负", func(p *Parameters) { p.CrossoverRate = -0.1 }},
		{"交叉概率超过一", func(p *Parameters) { p.CrossoverRate = 1.1 }},
		{"变异概率超过一", func(p *Parameters) { p.MutationRate = 1.5 }},
		{"阈值为零", func(p *Parameters) { p.FitnessThreshold = 0 }},
		{"阈值超过一", func(p *Parameters) { p.FitnessThreshold = 1.1 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			params := DefaultParameters()
			tc.modify(params)
			require.Error(t, params.Validate())

			// 非法参数必须在任何种群工作开始之前被拦下
			_, err := New(params, nil, nil, rand.New(rand.NewSource(1)))
			require.Error(t, err)
		})
	}
}

func TestOptimizer_AmpleSlots(t *testing.T) {
	// 3 个会议（30/60/45 分钟）对 8 个一小时的槽位，绰绰有余
	genes := []*MeetingGene{
		mustGene(t, 1, 30, 0.9),
		mustGene(t, 2, 60, 0.5),
		mustGene(t, 3, 45, 0.7),
	}
	template := hourlySlots(t, 9, 8)

	opt, err := New(DefaultParameters(), genes, template, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	eval := NewFitnessEvaluator(domain.DefaultSchedulePreferences(1))
	result, err := opt.Evolve(context.Background(), eval, nil)
	require.NoError(t, err)

	// 槽位充足时初始种群就能放下所有会议且零冲突，第一代就应该收敛
	require.Empty(t, result.Best.UnassignedGenes())
	require.Empty(t, result.Best.Conflicts())
	require.Greater(t, result.Statistics.BestFitness, 0.7)
	require.Equal(t, int32(1), result.Statistics.Generations)
	require.Equal(t, int32(1), result.Statistics.ConvergenceGeneration)
	require.Len(t, result.History, 1)

	entries := result.Best.Entries()
	require.Len(t, entries, 3)
	for _, entry := range entries {
		require.True(t, entry.EndTime.After(entry.StartTime))
	}
}

func TestOptimizer_Oversubscribed(t *testing.T) {
	// 10 个一小时的会议对 5 个一小时的槽位，注定放不下一半
	genes := make([]*MeetingGene, 0, 10)
	for i := int64(1); i <= 10; i++ {
		genes = append(genes, mustGene(t, i, 60, 0.5))
	}
	template := hourlySlots(t, 9, 5)

	opt, err := New(DefaultParameters(), genes, template, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	eval := NewFitnessEvaluator(domain.DefaultSchedulePreferences(1))
	result, err := opt.Evolve(context.Background(), eval, nil)
	require.NoError(t, err)

	entries := result.Best.Entries()
	require.LessOrEqual(t, len(entries), 5)

	// 容量不足不是错误：放不下的基因必须被显式地报告出来
	unassigned := result.Best.UnassignedGenes()
	require.GreaterOrEqual(t, len(unassigned), 5)
	require.Equal(t, 10, len(collectMeetingIDs(entries))+len(unassigned))
}

// contentionScenario 构造一个高冲突的场景：2 个会议对 3 个两两重叠的槽位，
// 只要两个会议都被安排就必然有一对冲突
// 注意只有变异能保证占用数不降：被释放的基因总能放回第三个槽位；
// 交叉有可能把其中一个会议直接换没，得到零冲突、截断后满分的子代
func contentionScenario(t *testing.T) ([]*MeetingGene, []*TimeSlot) {
	t.Helper()

	genes := []*MeetingGene{
		mustGene(t, 1, 60, 0.9),
		mustGene(t, 2, 60, 0.6),
	}
	template := []*TimeSlot{
		mustSlot(t, 10, 0, 11, 0, 0.3),
		mustSlot(t, 10, 15, 11, 15, 0.5),
		mustSlot(t, 10, 30, 11, 30, 0.7),
	}
	return genes, template
}

func TestOptimizer_BestFitnessNeverRegresses(t *testing.T) {
	genes, template := contentionScenario(t)

	params := DefaultParameters()
	params.PopulationSize = 20
	params.MaxGenerations = 10
	// 关掉交叉：交叉可能让子代只剩一个占用槽位，零冲突的方案截断后是满分，
	// 会触发提前收敛；只留变异时两个会议始终都在场，冲突一直压着适应度，
	// 这样才能保证跑满所有代数
	params.CrossoverRate = 0

	opt, err := New(params, genes, template, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	progressCount := 0
	lastProgress := Progress{}
	onProgress := func(p Progress) {
		progressCount++
		lastProgress = p
	}

	eval := NewFitnessEvaluator(domain.DefaultSchedulePreferences(1))
	result, err := opt.Evolve(context.Background(), eval, onProgress)
	require.NoError(t, err)

	require.Equal(t, int32(10), result.Statistics.Generations)
	require.Len(t, result.History, 10)

	// 精英保留保证每一代的最佳适应度不会倒退
	for i := 1; i < len(result.History); i++ {
		require.GreaterOrEqual(t, result.History[i], result.History[i-1])
	}
	require.Equal(t, result.History[len(result.History)-1], result.Statistics.BestFitness)
	require.InDelta(t, result.History[len(result.History)-1]-result.History[0], result.Statistics.Improvement, 1e-9)

	// 每一代结束都上报一次进度
	require.Equal(t, 10, progressCount)
	require.Equal(t, int32(10), lastProgress.Generation)
	require.Equal(t, int32(10), lastProgress.MaxGenerations)
	require.Equal(t, result.Statistics.BestFitness, lastProgress.BestFitness)
}

func TestOptimizer_ConvergesImmediatelyAtLowThreshold(t *testing.T) {
	genes, template := contentionScenario(t)

	// 阈值低到任何初始种群都能满足时，必须在第一代就停下来
	params := DefaultParameters()
	params.FitnessThreshold = 0.01
	params.MaxGenerations = 100

	opt, err := New(params, genes, template, rand.New(rand.NewSource(5)))
	require.NoError(t, err)

	eval := NewFitnessEvaluator(domain.DefaultSchedulePreferences(1))
	result, err := opt.Evolve(context.Background(), eval, nil)
	require.NoError(t, err)

	require.Equal(t, int32(1), result.Statistics.Generations)
	require.Equal(t, int32(1), result.Statistics.ConvergenceGeneration)
}

func TestOptimizer_ReproducibleWithSameSeed(t *testing.T) {
	run := func(seed int64) *Result {
		genes, template := contentionScenario(t)

		params := DefaultParameters()
		params.PopulationSize = 20
		params.MaxGenerations = 10

		opt, err := New(params, genes, template, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)

		eval := NewFitnessEvaluator(domain.DefaultSchedulePreferences(1))
		result, err := opt.Evolve(context.Background(), eval, nil)
		require.NoError(t, err)
		return result
	}

	first := run(99)
	second := run(99)

	// 随机源由调用方注入，相同的种子必须产生完全相同的运行轨迹
	require.Equal(t, first.History, second.History)
	require.Equal(t, first.Best.Entries(), second.Best.Entries())
}

func TestOptimizer_CooperativeCancellation(t *testing.T) {
	// 两个会议挤两个重叠的槽位，冲突扣分让适应度永远到不了 1.0
	genes := []*MeetingGene{mustGene(t, 1, 60, 0.5), mustGene(t, 2, 60, 0.5)}
	template := []*TimeSlot{
		mustSlot(t, 10, 0, 11, 0, 0.5),
		mustSlot(t, 10, 30, 11, 30, 0.5),
	}

	// 关掉交叉和变异，种群不会演化，阈值 1.0 永远达不到
	params := &Parameters{
		PopulationSize:   10,
		MaxGenerations:   50,
		CrossoverRate:    0,
		MutationRate:     0,
		FitnessThreshold: 1.0,
	}

	opt, err := New(params, genes, template, rand.New(rand.NewSource(11)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eval := NewFitnessEvaluator(domain.DefaultSchedulePreferences(1))
	result, err := opt.Evolve(ctx, eval, nil)

	// 取消时返回 ctx 的错误，同时带出目前为止最好的部分结果
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	require.NotNil(t, result.Best)
	require.Len(t, result.History, 1)
	require.Len(t, result.Best.Entries(), 2)
}
