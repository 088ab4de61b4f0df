package calibration

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"vonfrey/internal/pkg/tsv"
)

// 列名候选：英文规范名在前，原工具使用的中文列名在后。
// 原工具的 编号 列是刺激丝标号，加载时总被 log10(克数×10000) 覆盖，因此不作为对数位置读取。
var (
	weightColumns = []string{"weight_grams", "weight", "克数"}
	indexColumns  = []string{"index", "order", "序号"}
	logColumns    = []string{"log_position"}
)

// Load 从制表符分隔的文本读取标定表。若存在 log_position 列则以其为准，
// 否则按 mode 由克数派生。
func Load(r io.Reader, mode LogMode) (*Table, error) {
	header, rows, err := tsv.Read(r)
	if err != nil {
		return nil, err
	}
	wIdx, err := header.Require(weightColumns...)
	if err != nil {
		return nil, err
	}
	iIdx, err := header.Require(indexColumns...)
	if err != nil {
		return nil, err
	}
	lIdx, hasLog := header.Lookup(logColumns...)
	if mode == "" {
		mode = LogCanonical
	}

	entries := make([]FiberEntry, 0, len(rows))
	for _, row := range rows {
		weight, err := strconv.ParseFloat(row.Cell(wIdx), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: weight %q: %w", row.Line, row.Cell(wIdx), err)
		}
		index, err := parseIndex(row.Cell(iIdx))
		if err != nil {
			return nil, fmt.Errorf("line %d: index %q: %w", row.Line, row.Cell(iIdx), err)
		}
		entry := FiberEntry{WeightGrams: weight, Index: index}
		if hasLog && row.Cell(lIdx) != "" {
			pos, err := strconv.ParseFloat(row.Cell(lIdx), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: log_position %q: %w", row.Line, row.Cell(lIdx), err)
			}
			entry.LogPosition = pos
		} else {
			entry.LogPosition = mode.Position(weight)
		}
		entries = append(entries, entry)
	}
	return NewTable(entries, mode)
}

// LoadFile 打开并读取标定表文件。
func LoadFile(path string, mode LogMode) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, mode)
}

// parseIndex 接受整数，也接受表格软件导出的 "3.0" 这类整值小数。
func parseIndex(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("not an integer")
	}
	return int(f), nil
}
