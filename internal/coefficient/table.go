// Package coefficient 保存按反应序列索引的 k 值表。
package coefficient

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode"

	"vonfrey/internal/pkg/tsv"
)

var (
	patternColumns = []string{"sequence_pattern", "pattern", "测量结果"}
	valueColumns   = []string{"coefficient", "k", "k值"}
)

// ErrNotNumeric 表示 k 值单元格无法解析为有限数值。
var ErrNotNumeric = errors.New("coefficient is not numeric")

// Pattern 是 k 值表的查找键。它始终按字符串比较，前导零不会丢失。
type Pattern string

// NormalizePattern 去除所有空白字符（含制表符与换行）。
func NormalizePattern(s string) Pattern {
	return Pattern(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s))
}

// Entry 是一行 k 值。Raw 为原始单元格文本；Valid=false 时 Value 无意义。
type Entry struct {
	Pattern Pattern `json:"pattern"`
	Raw     string  `json:"raw"`
	Value   float64 `json:"value"`
	Valid   bool    `json:"valid"`
}

// Coefficient 返回数值，未能解析时返回 ErrNotNumeric。
func (e Entry) Coefficient() (float64, error) {
	if !e.Valid {
		return 0, fmt.Errorf("%w: %q for pattern %s", ErrNotNumeric, e.Raw, e.Pattern)
	}
	return e.Value, nil
}

// NewEntry 按 pandas to_numeric(errors="coerce") 的语义解析单元格：
// 失败时保留行但标记为无效，而不是丢弃或置零。
func NewEntry(pattern, raw string) Entry {
	e := Entry{Pattern: NormalizePattern(pattern), Raw: strings.TrimSpace(raw)}
	v, err := strconv.ParseFloat(e.Raw, 64)
	if err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		e.Value = v
		e.Valid = true
	}
	return e
}

// Table 是只读的 k 值表。
type Table struct {
	entries    map[Pattern]Entry
	order      []Pattern
	duplicates []Pattern
}

// NewTable 构建 k 值表。重复的序列以首次出现为准，并记录在 Duplicates 中。
func NewTable(entries []Entry) *Table {
	t := &Table{entries: make(map[Pattern]Entry, len(entries))}
	for _, e := range entries {
		if e.Pattern == "" {
			continue
		}
		if _, dup := t.entries[e.Pattern]; dup {
			t.duplicates = append(t.duplicates, e.Pattern)
			continue
		}
		t.entries[e.Pattern] = e
		t.order = append(t.order, e.Pattern)
	}
	return t
}

// Lookup 精确匹配，不做前缀或数值匹配。
func (t *Table) Lookup(p Pattern) (Entry, bool) {
	e, ok := t.entries[p]
	return e, ok
}

// Len 返回不同序列的数量。
func (t *Table) Len() int { return len(t.order) }

// Invalid 返回 k 值无法解析的序列数。
func (t *Table) Invalid() int {
	n := 0
	for _, e := range t.entries {
		if !e.Valid {
			n++
		}
	}
	return n
}

// Duplicates 返回被忽略的重复序列。
func (t *Table) Duplicates() []Pattern {
	return append([]Pattern(nil), t.duplicates...)
}

// Entries 按文件顺序返回全部条目。
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.order))
	for _, p := range t.order {
		out = append(out, t.entries[p])
	}
	return out
}

// Load 从制表符分隔文本读取 k 值表。序列列始终按字符串读取。
func Load(r io.Reader) (*Table, error) {
	header, rows, err := tsv.Read(r)
	if err != nil {
		return nil, err
	}
	pIdx, err := header.Require(patternColumns...)
	if err != nil {
		return nil, err
	}
	vIdx, err := header.Require(valueColumns...)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, NewEntry(row.Cell(pIdx), row.Cell(vIdx)))
	}
	return NewTable(entries), nil
}

// LoadFile 打开并读取 k 值表文件。
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}
