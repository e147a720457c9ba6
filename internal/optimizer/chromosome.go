package optimizer

import (
	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/domain"
)

// Chromosome 表示一个完整的候选排程方案
// 基因列表在所有染色体之间共享（只读），时间槽列表由每个染色体独立持有
type Chromosome struct {
	genes   []*MeetingGene
	slots   []*TimeSlot
	fitness *float64 // nil 表示还没有被评分
}

// newChromosome 从时间槽模板构造一个空的染色体（所有槽位可用）
func newChromosome(genes []*MeetingGene, slotTemplate []*TimeSlot) *Chromosome {
	slots := make([]*TimeSlot, len(slotTemplate))
	for i, slot := range slotTemplate {
		slots[i] = slot.clone()
	}

	return &Chromosome{
		genes: genes,
		slots: slots,
	}
}

// Assign 尝试把基因放入指定的时间槽
// 只有槽位可用且时长足够时才会成功，失败时不做任何修改
// 这是唯一的赋值入口，交叉和变异都必须通过 释放 + Assign 来保证一个槽位最多只有一个占用者
func (c *Chromosome) Assign(gene *MeetingGene, slot *TimeSlot) bool {
	if !slot.Available {
		return false
	}
	if slot.DurationMinutes < gene.DurationMinutes {
		return false
	}

	slot.Available = false
	occupantID := gene.ID
	slot.OccupantID = &occupantID
	c.fitness = nil

	return true
}

// free 释放一个槽位，返回原先占用它的基因（没有占用者时返回 nil）
func (c *Chromosome) free(slot *TimeSlot) *MeetingGene {
	if slot.OccupantID == nil {
		return nil
	}

	gene := c.geneByID(*slot.OccupantID)
	slot.OccupantID = nil
	slot.Available = true
	c.fitness = nil

	return gene
}

func (c *Chromosome) geneByID(id int64) *MeetingGene {
	for _, gene := range c.genes {
		if gene.ID == id {
			return gene
		}
	}
	return nil
}

// Conflicts 找出所有互相重叠的已占用槽位对
// 槽位数量级是几十个，这里 O(n^2) 够用了
func (c *Chromosome) Conflicts() [][2]*TimeSlot {
	occupied := make([]*TimeSlot, 0, len(c.slots))
	for _, slot := range c.slots {
		if slot.OccupantID != nil {
			occupied = append(occupied, slot)
		}
	}

	conflicts := make([][2]*TimeSlot, 0)
	for i := 0; i < len(occupied); i++ {
		for j := i + 1; j < len(occupied); j++ {
			if occupied[i].Overlaps(occupied[j]) {
				conflicts = append(conflicts, [2]*TimeSlot{occupied[i], occupied[j]})
			}
		}
	}

	return conflicts
}

// FocusBlocks 找出所有时长不低于 minMinutes 的可用槽位，即可以用来专注工作的连续空闲时间
func (c *Chromosome) FocusBlocks(minMinutes int32) []*TimeSlot {
	blocks := make([]*TimeSlot, 0)
	for _, slot := range c.slots {
		if slot.Available && slot.DurationMinutes >= minMinutes {
			blocks = append(blocks, slot)
		}
	}
	return blocks
}

// Clone 深拷贝染色体
// 时间槽逐个深拷贝，基因列表直接共享引用（基因不可变，共享是安全的）
// 注意适应度不会被拷贝，调用方必须重新评分，防止变异后的克隆带着过期的分数
func (c *Chromosome) Clone() *Chromosome {
	slots := make([]*TimeSlot, len(c.slots))
	for i, slot := range c.slots {
		slots[i] = slot.clone()
	}

	return &Chromosome{
		genes: c.genes,
		slots: slots,
	}
}

// UnassignedGenes 返回没有被放入任何槽位的基因
// 这不是错误，而是容量不足时的正常结果，由调用方决定如何呈现给用户
func (c *Chromosome) UnassignedGenes() []*MeetingGene {
	assigned := make(map[int64]bool)
	for _, slot := range c.slots {
		if slot.OccupantID != nil {
			assigned[*slot.OccupantID] = true
		}
	}

	unassigned := make([]*MeetingGene, 0)
	for _, gene := range c.genes {
		if !assigned[gene.ID] {
			unassigned = append(unassigned, gene)
		}
	}

	return unassigned
}

// Entries 把染色体转换成可以序列化给外部的排程条目
func (c *Chromosome) Entries() []domain.ScheduleEntry {
	entries := make([]domain.ScheduleEntry, 0)
	for _, slot := range c.slots {
		if slot.OccupantID == nil {
			continue
		}

		gene := c.geneByID(*slot.OccupantID)
		if gene == nil {
			continue
		}

		entries = append(entries, domain.ScheduleEntry{
			MeetingID:       gene.ID,
			Title:           gene.Title,
			StartTime:       slot.StartTime,
			EndTime:         slot.EndTime,
			DurationMinutes: gene.DurationMinutes,
			Priority:        gene.Priority,
		})
	}

	return entries
}
