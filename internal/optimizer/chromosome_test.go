package optimizer

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/domain"
)

func mustGene(t *testing.T, id int64, durationMinutes int32, priority float64) *MeetingGene {
	t.Helper()

	gene, err := NewMeetingGene(&domain.Meeting{
		ID:              id,
		Title:           "测试会议",
		DurationMinutes: durationMinutes,
		Priority:        priority,
		Flexibility:     0.5,
	})
	require.NoError(t, err)

	return gene
}

func TestNewMeetingGene_Validation(t *testing.T) {
	_, err := NewMeetingGene(&domain.Meeting{ID: 1, DurationMinutes: 60, Priority: 1.5, Flexibility: 0.5})
	require.Error(t, err)

	_, err = NewMeetingGene(&domain.Meeting{ID: 1, DurationMinutes: 60, Priority: 0.5, Flexibility: -0.1})
	require.Error(t, err)

	_, err = NewMeetingGene(&domain.Meeting{ID: 1, DurationMinutes: 0, Priority: 0.5, Flexibility: 0.5})
	require.Error(t, err)
}

func TestChromosome_Assign(t *testing.T) {
	genes := []*MeetingGene{mustGene(t, 1, 60, 0.5), mustGene(t, 2, 30, 0.5)}
	template := []*TimeSlot{
		mustSlot(t, 9, 0, 10, 0, 0.5),
		mustSlot(t, 10, 0, 10, 30, 0.5),
	}
	ch := newChromosome(genes, template)

	// 时长不够的槽位放不下 60 分钟的会议
	require.False(t, ch.Assign(genes[0], ch.slots[1]))
	require.True(t, ch.slots[1].Available)

	require.True(t, ch.Assign(genes[0], ch.slots[0]))
	require.False(t, ch.slots[0].Available)
	require.Equal(t, int64(1), *ch.slots[0].OccupantID)

	// 已被占用的槽位不能再放入其他基因
	require.False(t, ch.Assign(genes[1], ch.slots[0]))
	require.Equal(t, int64(1), *ch.slots[0].OccupantID)
}

func TestChromosome_FreeReturnsGene(t *testing.T) {
	genes := []*MeetingGene{mustGene(t, 1, 60, 0.5)}
	ch := newChromosome(genes, []*TimeSlot{mustSlot(t, 9, 0, 10, 0, 0.5)})

	require.Nil(t, ch.free(ch.slots[0]))

	require.True(t, ch.Assign(genes[0], ch.slots[0]))
	freed := ch.free(ch.slots[0])
	require.Equal(t, genes[0], freed)
	require.True(t, ch.slots[0].Available)
	require.Nil(t, ch.slots[0].OccupantID)
}

func TestChromosome_Conflicts(t *testing.T) {
	genes := []*MeetingGene{mustGene(t, 1, 60, 0.5), mustGene(t, 2, 60, 0.5)}
	template := []*TimeSlot{
		mustSlot(t, 10, 0, 11, 0, 0.5),
		mustSlot(t, 10, 30, 11, 30, 0.5),
		mustSlot(t, 14, 0, 15, 0, 0.5),
	}
	ch := newChromosome(genes, template)

	require.True(t, ch.Assign(genes[0], ch.slots[0]))
	require.True(t, ch.Assign(genes[1], ch.slots[2]))
	require.Empty(t, ch.Conflicts())

	// 把第二个会议挪到和第一个重叠的槽位上
	ch.free(ch.slots[2])
	require.True(t, ch.Assign(genes[1], ch.slots[1]))
	require.Len(t, ch.Conflicts(), 1)
}

func TestChromosome_FocusBlocks(t *testing.T) {
	genes := []*MeetingGene{mustGene(t, 1, 60, 0.5)}
	template := []*TimeSlot{
		mustSlot(t, 9, 0, 10, 0, 0.5),
		mustSlot(t, 10, 0, 10, 30, 0.5),
		mustSlot(t, 14, 0, 16, 0, 0.5),
	}
	ch := newChromosome(genes, template)

	// 只有不低于 60 分钟的可用槽位才算专注块
	require.Len(t, ch.FocusBlocks(60), 2)

	require.True(t, ch.Assign(genes[0], ch.slots[0]))
	require.Len(t, ch.FocusBlocks(60), 1)
}

func TestChromosome_CloneIsIndependent(t *testing.T) {
	genes := []*MeetingGene{mustGene(t, 1, 60, 0.5)}
	ch := newChromosome(genes, []*TimeSlot{
		mustSlot(t, 9, 0, 10, 0, 0.5),
		mustSlot(t, 10, 0, 11, 0, 0.5),
	})
	require.True(t, ch.Assign(genes[0], ch.slots[0]))

	cloned := ch.Clone()

	// 克隆不携带分数，必须重新评分
	score := 0.9
	ch.fitness = &score
	require.Nil(t, cloned.fitness)

	// 修改克隆的槽位占用情况不应该影响原染色体
	cloned.free(cloned.slots[0])
	require.Equal(t, int64(1), *ch.slots[0].OccupantID)

	// 基因列表共享同一份引用
	require.Equal(t, ch.genes[0], cloned.genes[0])
}

func TestChromosome_UnassignedGenesAndEntries(t *testing.T) {
	genes := []*MeetingGene{mustGene(t, 1, 60, 0.8), mustGene(t, 2, 30, 0.3)}
	ch := newChromosome(genes, []*TimeSlot{mustSlot(t, 9, 0, 10, 0, 0.5)})

	require.Len(t, ch.UnassignedGenes(), 2)

	require.True(t, ch.Assign(genes[0], ch.slots[0]))

	unassigned := ch.UnassignedGenes()
	require.Len(t, unassigned, 1)
	require.Equal(t, int64(2), unassigned[0].ID)

	entries := ch.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, int64(1), entries[0].MeetingID)
	require.Equal(t, ch.slots[0].StartTime, entries[0].StartTime)
	require.Equal(t, int32(60), entries[0].DurationMinutes)
}
