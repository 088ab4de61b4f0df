// Package report 汇总计算结果并导出为表格文本、JSON、YAML 或 HTML 图表。
package report

import (
	"time"

	"vonfrey/internal/threshold"

	"github.com/google/uuid"
)

// RangeSummary 是报告中附带的范围派生常量。
type RangeSummary struct {
	MinWeight   float64 `json:"min_weight" yaml:"min_weight"`
	MaxWeight   float64 `json:"max_weight" yaml:"max_weight"`
	MinIndex    int     `json:"min_index" yaml:"min_index"`
	MaxIndex    int     `json:"max_index" yaml:"max_index"`
	MedianIndex int     `json:"median_index" yaml:"median_index"`
	Fibers      int     `json:"fibers" yaml:"fibers"`
	Matched     int     `json:"matched" yaml:"matched"`
	Delta       float64 `json:"delta" yaml:"delta"`
}

// Report 是一次批量计算的完整结果。
type Report struct {
	ID           string                   `json:"id" yaml:"id"`
	CreatedAt    time.Time                `json:"created_at" yaml:"created_at"`
	Range        RangeSummary             `json:"range" yaml:"range"`
	DeltaMode    threshold.DeltaMode      `json:"delta_mode" yaml:"delta_mode"`
	TerminalMode threshold.TerminalMode   `json:"terminal_mode" yaml:"terminal_mode"`
	TablesVer    int64                    `json:"tables_version" yaml:"tables_version"`
	Records      []threshold.ResultRecord `json:"records" yaml:"records"`
	Successes    int                      `json:"successes" yaml:"successes"`
	Failures     int                      `json:"failures" yaml:"failures"`
}

// Summary 是报告列表中的一行，不含明细记录。
type Summary struct {
	ID           string                 `json:"id"`
	CreatedAt    time.Time              `json:"created_at"`
	MinWeight    float64                `json:"min_weight"`
	MaxWeight    float64                `json:"max_weight"`
	DeltaMode    threshold.DeltaMode    `json:"delta_mode"`
	TerminalMode threshold.TerminalMode `json:"terminal_mode"`
	Sequences    int                    `json:"sequences"`
	Successes    int                    `json:"successes"`
	Failures     int                    `json:"failures"`
}

// Summary 返回该报告的摘要。
func (r *Report) Summary() Summary {
	return Summary{
		ID:           r.ID,
		CreatedAt:    r.CreatedAt,
		MinWeight:    r.Range.MinWeight,
		MaxWeight:    r.Range.MaxWeight,
		DeltaMode:    r.DeltaMode,
		TerminalMode: r.TerminalMode,
		Sequences:    len(r.Records),
		Successes:    r.Successes,
		Failures:     r.Failures,
	}
}

// Builder 生成报告；时钟与 ID 生成器可替换以便测试。
type Builder struct {
	Now   func() time.Time
	NewID func() string
}

// NewBuilder 使用系统时钟与随机 UUID。
func NewBuilder() *Builder {
	return &Builder{Now: time.Now, NewID: uuid.NewString}
}

// Build 汇总记录。records 按输入顺序保存，不做排序或过滤。
func (b *Builder) Build(sel threshold.Selection, terminal threshold.TerminalMode, tablesVersion int64, records []threshold.ResultRecord) *Report {
	now, newID := time.Now, uuid.NewString
	if b != nil && b.Now != nil {
		now = b.Now
	}
	if b != nil && b.NewID != nil {
		newID = b.NewID
	}
	rep := &Report{
		ID:        newID(),
		CreatedAt: now().UTC(),
		Range: RangeSummary{
			MinWeight:   sel.MinWeight,
			MaxWeight:   sel.MaxWeight,
			MinIndex:    sel.MinIndex,
			MaxIndex:    sel.MaxIndex,
			MedianIndex: sel.MedianIndex,
			Fibers:      sel.Fibers(),
			Matched:     len(sel.Subset),
			Delta:       sel.Delta,
		},
		DeltaMode:    sel.DeltaMode,
		TerminalMode: terminal,
		TablesVer:    tablesVersion,
		Records:      append([]threshold.ResultRecord(nil), records...),
	}
	for _, rec := range records {
		if rec.OK() {
			rep.Successes++
		} else {
			rep.Failures++
		}
	}
	return rep
}
