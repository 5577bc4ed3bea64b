package store

import (
	"sort"

	"github.com/goccy/go-json"
	"github.com/samber/lo"

	"github.com/robert-malhotra/go-stepio/internal/operator"
)

// VarSummary describes one variable of the catalog.
type VarSummary struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Shape       []uint64        `json:"shape"`
	Steps       []StepSummary   `json:"steps"`
	Operators   []operator.Spec `json:"operators,omitempty"`
	StoredBytes int             `json:"stored_bytes"`
}

// StepSummary describes one variable step.
type StepSummary struct {
	Global uint64         `json:"global_step"`
	Shape  []uint64       `json:"shape"`
	Blocks []BlockSummary `json:"blocks"`
}

// BlockSummary describes one stored block.
type BlockSummary struct {
	Start       []uint64 `json:"start"`
	Count       []uint64 `json:"count"`
	Frames      int      `json:"frames"`
	StoredBytes int      `json:"stored_bytes"`
	Stats       *Stats   `json:"stats,omitempty"`
}

// Describe summarizes every variable with its committed steps, in name
// order.
func (m *Memory) Describe() []VarSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vars := lo.Values(m.vars)
	sort.Slice(vars, func(i, j int) bool { return vars[i].name < vars[j].name })
	return lo.Map(vars, func(v *variable, _ int) VarSummary {
		return v.summary()
	})
}

func (v *variable) summary() VarSummary {
	steps := lo.Map(v.steps, func(s *step, _ int) StepSummary {
		return StepSummary{
			Global: s.global,
			Shape:  s.shape,
			Blocks: lo.Map(s.blocks, func(b *Block, _ int) BlockSummary {
				return BlockSummary{
					Start:       b.Start,
					Count:       b.Count,
					Frames:      len(b.Frames),
					StoredBytes: b.StoredBytes(),
					Stats:       b.Stats,
				}
			}),
		}
	})
	return VarSummary{
		Name:      v.name,
		Type:      v.typ.String(),
		Shape:     v.shape,
		Steps:     steps,
		Operators: v.pipeline.Specs(),
		StoredBytes: lo.SumBy(steps, func(s StepSummary) int {
			return lo.SumBy(s.Blocks, func(b BlockSummary) int { return b.StoredBytes })
		}),
	}
}

// MarshalJSON encodes the catalog description.
func (m *Memory) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Steps     uint64       `json:"steps"`
		Variables []VarSummary `json:"variables"`
	}{
		Steps:     m.Step(),
		Variables: m.Describe(),
	})
}
