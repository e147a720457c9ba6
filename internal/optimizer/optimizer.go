package optimizer

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
)

// Parameters 遗传算法参数
type Parameters struct {
	PopulationSize   int32   // 种群大小
	MaxGenerations   int32   // 最大迭代次数
	CrossoverRate    float64 // 交叉概率
	MutationRate     float64 // 变异概率（每个子代被变异一次的概率）
	FitnessThreshold float64 // 提前收敛的适应度阈值
}

func DefaultParameters() *Parameters {
	return &Parameters{
		PopulationSize:   50,
		MaxGenerations:   100,
		CrossoverRate:    0.8,
		MutationRate:     0.1,
		FitnessThreshold: 0.95,
	}
}

// Validate 在任何种群工作开始之前校验参数，保证调用方不会为一次注定失败的运行买单
func (p *Parameters) Validate() error {
	if p.PopulationSize < 2 {
		return fmt.Errorf("种群大小 %d 无效，必须不小于 2", p.PopulationSize)
	}
	if p.MaxGenerations < 1 {
		return fmt.Errorf("最大迭代次数 %d 无效，必须不小于 1", p.MaxGenerations)
	}
	if p.CrossoverRate < 0 || p.CrossoverRate > 1 {
		return fmt.Errorf("交叉概率 %v 无效，必须在 [0, 1] 范围内", p.CrossoverRate)
	}
	if p.MutationRate < 0 || p.MutationRate > 1 {
		return fmt.Errorf("变异概率 %v 无效，必须在 [0, 1] 范围内", p.MutationRate)
	}
	if p.FitnessThreshold <= 0 || p.FitnessThreshold > 1 {
		return fmt.Errorf("适应度阈值 %v 无效，必须在 (0, 1] 范围内", p.FitnessThreshold)
	}
	return nil
}

// Progress 每一代结束后通过回调上报的进度
type Progress struct {
	Generation     int32   `json:"generation"`
	MaxGenerations int32   `json:"maxGenerations"`
	BestFitness    float64 `json:"bestFitness"`
}

// Statistics 一次运行结束后的统计信息
type Statistics struct {
	Generations           int32
	BestFitness           float64
	Improvement           float64
	ConvergenceGeneration int32
}

// Result 优化运行的最终产出
type Result struct {
	Best       *Chromosome
	History    []float64 // 每一代的最佳适应度
	Statistics Statistics
}

// Optimizer 驱动种群的初始化、选择、交叉、变异和逐代迭代
// 优化器本身是单线程的纯计算，不做任何 I/O，
// 每次运行持有独立的种群，多个运行并发执行时互不共享染色体
type Optimizer struct {
	params       *Parameters
	genes        []*MeetingGene
	slotTemplate []*TimeSlot
	rng          *rand.Rand // 随机源由调用方注入，测试中可以用固定种子复现运行
	population   []*Chromosome
}

func New(params *Parameters, genes []*MeetingGene, slotTemplate []*TimeSlot, rng *rand.Rand) (*Optimizer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &Optimizer{
		params:       params,
		genes:        genes,
		slotTemplate: slotTemplate,
		rng:          rng,
	}, nil
}

// initPopulation 生成初始种群
// 每个染色体独立构造：打乱基因顺序（避免固定偏向靠前的基因），
// 依次为每个基因收集所有时长足够的可用槽位，如果其中有和偏好时间窗口重叠的则优先在这些里面选，
// 最后随机选一个槽位放入。找不到合适槽位的基因保持未安排，这是合法的低适应度结果，不是错误
func (o *Optimizer) initPopulation() {
	o.population = make([]*Chromosome, o.params.PopulationSize)

	for i := range o.population {
		ch := newChromosome(o.genes, o.slotTemplate)

		order := o.rng.Perm(len(o.genes))
		for _, idx := range order {
			gene := o.genes[idx]

			candidates := make([]*TimeSlot, 0)
			preferred := make([]*TimeSlot, 0)
			for _, slot := range ch.slots {
				if !slot.Available || slot.DurationMinutes < gene.DurationMinutes {
					continue
				}
				candidates = append(candidates, slot)
				if gene.overlapsPreferredWindow(slot) {
					preferred = append(preferred, slot)
				}
			}

			if len(preferred) > 0 {
				candidates = preferred
			}
			if len(candidates) == 0 {
				continue
			}

			ch.Assign(gene, candidates[o.rng.Intn(len(candidates))])
		}

		o.population[i] = ch
	}
}

// Evolve 迭代种群直到达到适应度阈值或最大代数
// 每一代结束后调用 onProgress 上报进度（可以为 nil）
// 取消是协作式的：每代之间检查一次 ctx，被取消时返回当前最好的部分结果和 ctx 的错误
func (o *Optimizer) Evolve(ctx context.Context, eval *FitnessEvaluator, onProgress func(Progress)) (*Result, error) {
	o.initPopulation()

	var bestEver *Chromosome
	bestEverFitness := -1.0
	history := make([]float64, 0, o.params.MaxGenerations)
	convergedAt := int32(0)

	for gen := int32(1); gen <= o.params.MaxGenerations; gen++ {
		// 对整个种群评分并按适应度降序排序
		for _, ch := range o.population {
			if ch.fitness == nil {
				score := eval.Score(ch)
				ch.fitness = &score
			}
		}
		sort.SliceStable(o.population, func(i, j int) bool {
			return *o.population[i].fitness > *o.population[j].fitness
		})

		// 记录史上最佳染色体
		// 这里需要深拷贝，防止后续繁殖的过程中把它改掉
		genBest := *o.population[0].fitness
		if bestEver == nil || genBest > bestEverFitness {
			bestEver = o.population[0].Clone()
			bestEverFitness = genBest
		}
		history = append(history, genBest)
		convergedAt = gen

		if onProgress != nil {
			onProgress(Progress{
				Generation:     gen,
				MaxGenerations: o.params.MaxGenerations,
				BestFitness:    bestEverFitness,
			})
		}

		// 达到阈值则提前收敛，当前代即为最后一代
		if genBest >= o.params.FitnessThreshold {
			break
		}

		if gen == o.params.MaxGenerations {
			break
		}

		// 协作式取消检查点
		if err := ctx.Err(); err != nil {
			return o.buildResult(bestEver, bestEverFitness, history, convergedAt), err
		}

		o.population = o.nextGeneration()
	}

	return o.buildResult(bestEver, bestEverFitness, history, convergedAt), nil
}

func (o *Optimizer) buildResult(best *Chromosome, bestFitness float64, history []float64, convergedAt int32) *Result {
	improvement := 0.0
	if len(history) > 0 {
		improvement = history[len(history)-1] - history[0]
	}

	return &Result{
		Best:    best,
		History: history,
		Statistics: Statistics{
			Generations:           int32(len(history)),
			BestFitness:           bestFitness,
			Improvement:           improvement,
			ConvergenceGeneration: convergedAt,
		},
	}
}

// nextGeneration 把当前一代看作不可变的快照，从中繁殖出下一代
// 先保留前 10% 的精英（至少 1 个），再用锦标赛选择补满种群
func (o *Optimizer) nextGeneration() []*Chromosome {
	size := int(o.params.PopulationSize)
	newPop := make([]*Chromosome, 0, size)

	eliteCount := size / 10
	if eliteCount < 1 {
		eliteCount = 1
	}
	for i := 0; i < eliteCount && i < size; i++ {
		newPop = append(newPop, o.population[i].Clone())
	}

	for len(newPop) < size {
		p1 := o.selectByTournament()
		p2 := o.selectByTournament()

		c1 := p1.Clone()
		c2 := p2.Clone()

		if o.rng.Float64() < o.params.CrossoverRate {
			o.crossover(c1, c2)
		}

		if o.rng.Float64() < o.params.MutationRate {
			o.mutate(c1)
		}
		if o.rng.Float64() < o.params.MutationRate {
			o.mutate(c2)
		}

		newPop = append(newPop, c1)
		if len(newPop) < size {
			newPop = append(newPop, c2)
		}
	}

	return newPop
}

// selectByTournament 锦标赛选择：随机抽 3 个染色体，保留其中最优的那个
func (o *Optimizer) selectByTournament() *Chromosome {
	const tournamentSize = 3

	best := o.population[o.rng.Intn(len(o.population))]
	for i := 1; i < tournamentSize; i++ {
		contender := o.population[o.rng.Intn(len(o.population))]
		if *contender.fitness > *best.fitness {
			best = contender
		}
	}

	return best
}

// crossover 单点交叉
// 两个染色体是从同一份时间槽模板构造出来的，槽位在位置上可比，
// 所以交换切点之后所有槽位的占用情况，相当于交换"后半段由谁来开会"
func (o *Optimizer) crossover(ch1 *Chromosome, ch2 *Chromosome) {
	length := len(ch1.slots)
	if length != len(ch2.slots) {
		// 按理来说两个染色体的槽位数量应该能保证是相等的
		// 这里只是以防万一
		return
	}
	if length <= 1 {
		return
	}

	point := o.rng.Intn(length)
	for i := point; i < length; i++ {
		ch1.slots[i].OccupantID, ch2.slots[i].OccupantID = ch2.slots[i].OccupantID, ch1.slots[i].OccupantID
		ch1.slots[i].Available, ch2.slots[i].Available = ch2.slots[i].Available, ch1.slots[i].Available
	}

	ch1.fitness = nil
	ch2.fitness = nil
}

// mutate 变异
// 随机释放一个已占用的槽位，然后尝试把原来的基因重新放入另一个时长足够的可用槽位
// 这是一次局部的小扰动而不是整体重排，步子太大会毁掉选择积累下来的好的局部解
// 找不到替代槽位时基因保持未安排，这和成功换位一样是合法的变异结果
func (o *Optimizer) mutate(ch *Chromosome) {
	occupied := make([]*TimeSlot, 0, len(ch.slots))
	for _, slot := range ch.slots {
		if slot.OccupantID != nil {
			occupied = append(occupied, slot)
		}
	}
	if len(occupied) == 0 {
		return
	}

	victim := occupied[o.rng.Intn(len(occupied))]
	gene := ch.free(victim)
	if gene == nil {
		return
	}

	candidates := make([]*TimeSlot, 0)
	for _, slot := range ch.slots {
		if slot == victim {
			continue
		}
		if slot.Available && slot.DurationMinutes >= gene.DurationMinutes {
			candidates = append(candidates, slot)
		}
	}
	if len(candidates) == 0 {
		return
	}

	ch.Assign(gene, candidates[o.rng.Intn(len(candidates))])
}
