package threshold

import (
	"fmt"
	"math"

	"vonfrey/internal/calibration"
)

// Selection 是由用户克重范围派生的常量，重新选择范围时必须重新计算。
type Selection struct {
	MinWeight   float64                  `json:"min_weight"`
	MaxWeight   float64                  `json:"max_weight"`
	Subset      []calibration.FiberEntry `json:"subset"`
	MinIndex    int                      `json:"min_index"`
	MaxIndex    int                      `json:"max_index"`
	MedianIndex int                      `json:"median_index"`
	MinLog      float64                  `json:"min_log"`
	MaxLog      float64                  `json:"max_log"`
	Delta       float64                  `json:"delta"`
	DeltaMode   DeltaMode                `json:"delta_mode"`
}

// Fibers 返回序号跨度覆盖的刺激丝根数（max - min + 1）。
func (s Selection) Fibers() int { return s.MaxIndex - s.MinIndex + 1 }

// Select 过滤 [minWeight, maxWeight] 内的条目并计算中位序号与 δ。
func Select(table *calibration.Table, minWeight, maxWeight float64, mode DeltaMode) (Selection, error) {
	if table == nil {
		return Selection{}, fmt.Errorf("%w: calibration table is nil", ErrEmptyRange)
	}
	if mode == "" {
		mode = DeltaByCount
	}
	subset := table.InRange(minWeight, maxWeight)
	if len(subset) == 0 {
		return Selection{}, fmt.Errorf("%w: [%vg, %vg]", ErrEmptyRange, minWeight, maxWeight)
	}

	sel := Selection{
		MinWeight: minWeight,
		MaxWeight: maxWeight,
		Subset:    subset,
		MinIndex:  subset[0].Index,
		MaxIndex:  subset[0].Index,
		MinLog:    subset[0].LogPosition,
		MaxLog:    subset[0].LogPosition,
		DeltaMode: mode,
	}
	for _, e := range subset[1:] {
		sel.MinIndex = min(sel.MinIndex, e.Index)
		sel.MaxIndex = max(sel.MaxIndex, e.Index)
		sel.MinLog = math.Min(sel.MinLog, e.LogPosition)
		sel.MaxLog = math.Max(sel.MaxLog, e.LogPosition)
	}
	sel.MedianIndex = floorDiv(sel.MinIndex+sel.MaxIndex, 2)

	var denom int
	switch mode {
	case DeltaBySpan:
		denom = sel.MaxIndex - sel.MinIndex
	case DeltaByCount:
		denom = len(subset) - 1
	default:
		return Selection{}, fmt.Errorf("unknown delta mode %q", mode)
	}
	if denom <= 0 {
		return sel, fmt.Errorf("%w: %d matching entries (delta mode %s)", ErrDegenerateRange, len(subset), mode)
	}
	sel.Delta = (sel.MaxLog - sel.MinLog) / float64(denom)
	return sel, nil
}

// floorDiv 向负无穷取整，序号为负时与 Python 的 // 一致。
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
