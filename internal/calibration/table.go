// Package calibration 描述 Von Frey 刺激丝标定表（克数、序号、对数位置）。
package calibration

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// LogMode 决定对数位置如何由克数派生，以及阈值如何还原为克数。
type LogMode string

const (
	// LogCanonical 使用 log10(克数 × 10000)，即常见的 Von Frey 编号。
	LogCanonical LogMode = "canonical"
	// LogRaw 直接使用 log10(克数)。
	LogRaw LogMode = "raw"
)

const canonicalScale = 10000

// ParseLogMode 解析配置中的 log_mode，空串视为 canonical。
func ParseLogMode(s string) (LogMode, error) {
	switch LogMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", LogCanonical:
		return LogCanonical, nil
	case LogRaw:
		return LogRaw, nil
	default:
		return "", fmt.Errorf("unknown log mode %q (want canonical|raw)", s)
	}
}

// Scale 返回克数进入 log10 之前乘上的系数。
func (m LogMode) Scale() float64 {
	if m == LogRaw {
		return 1
	}
	return canonicalScale
}

// Position 将克数转换为对数位置。
func (m LogMode) Position(weightGrams float64) float64 {
	return math.Log10(weightGrams * m.Scale())
}

// Grams 是 Position 的逆变换：10^pos / scale。
func (m LogMode) Grams(pos float64) float64 {
	return math.Pow(10, pos) / m.Scale()
}

// FiberEntry 是一根已标定的刺激丝。
type FiberEntry struct {
	WeightGrams float64 `json:"weight_grams" yaml:"weight_grams"`
	Index       int     `json:"index" yaml:"index"`
	LogPosition float64 `json:"log_position" yaml:"log_position"`
}

var (
	ErrDuplicateIndex  = errors.New("duplicate fiber index")
	ErrDuplicateWeight = errors.New("duplicate fiber weight")
	ErrInvalidWeight   = errors.New("fiber weight must be a positive number")
	ErrEmptyTable      = errors.New("calibration table has no rows")
	ErrInvalidLog      = errors.New("fiber log position must be finite")
)

// Table 是只读的标定表，按序号升序保存。
type Table struct {
	entries []FiberEntry
	byIndex map[int]int
	mode    LogMode
}

// NewTable 校验并构建标定表。条目按序号排序；克数与序号都必须唯一。
func NewTable(entries []FiberEntry, mode LogMode) (*Table, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyTable
	}
	if mode == "" {
		mode = LogCanonical
	}
	sorted := append([]FiberEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	byIndex := make(map[int]int, len(sorted))
	weights := make(map[float64]int, len(sorted))
	for i, e := range sorted {
		if e.WeightGrams <= 0 || math.IsNaN(e.WeightGrams) || math.IsInf(e.WeightGrams, 0) {
			return nil, fmt.Errorf("%w: index %d weight %v", ErrInvalidWeight, e.Index, e.WeightGrams)
		}
		if math.IsNaN(e.LogPosition) || math.IsInf(e.LogPosition, 0) {
			return nil, fmt.Errorf("%w: index %d log_position %v", ErrInvalidLog, e.Index, e.LogPosition)
		}
		if _, dup := byIndex[e.Index]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateIndex, e.Index)
		}
		if prev, dup := weights[e.WeightGrams]; dup {
			return nil, fmt.Errorf("%w: %vg (index %d and %d)", ErrDuplicateWeight, e.WeightGrams, prev, e.Index)
		}
		byIndex[e.Index] = i
		weights[e.WeightGrams] = e.Index
	}
	return &Table{entries: sorted, byIndex: byIndex, mode: mode}, nil
}

// Mode 返回建表时使用的对数模式。
func (t *Table) Mode() LogMode { return t.mode }

// Len 返回条目数。
func (t *Table) Len() int { return len(t.entries) }

// Entries 返回全部条目的副本（按序号升序）。
func (t *Table) Entries() []FiberEntry {
	return append([]FiberEntry(nil), t.entries...)
}

// ByIndex 查找指定序号的刺激丝。
func (t *Table) ByIndex(index int) (FiberEntry, bool) {
	pos, ok := t.byIndex[index]
	if !ok {
		return FiberEntry{}, false
	}
	return t.entries[pos], true
}

// InRange 返回克数落在 [minWeight, maxWeight] 内的条目，保持表内顺序。
func (t *Table) InRange(minWeight, maxWeight float64) []FiberEntry {
	var out []FiberEntry
	for _, e := range t.entries {
		if e.WeightGrams >= minWeight && e.WeightGrams <= maxWeight {
			out = append(out, e)
		}
	}
	return out
}

// Weights 返回去重后升序排列的克数，供界面选择范围。
func (t *Table) Weights() []float64 {
	out := make([]float64, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e.WeightGrams)
	}
	sort.Float64s(out)
	return out
}

// Monotonic 报告克数是否随序号严格递增。
func (t *Table) Monotonic() bool {
	for i := 1; i < len(t.entries); i++ {
		if t.entries[i].WeightGrams <= t.entries[i-1].WeightGrams {
			return false
		}
	}
	return true
}
