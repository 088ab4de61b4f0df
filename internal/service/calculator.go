// Package service 组合快照、范围选择、序列计算与报告生成，供 HTTP 与批量任务共用。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vonfrey/internal/calibration"
	"vonfrey/internal/logger"
	"vonfrey/internal/report"
	"vonfrey/internal/store"
	"vonfrey/internal/tables"
	"vonfrey/internal/threshold"
)

var (
	// ErrInvalidRequest 表示请求参数本身不合法（模式名未知等），与范围错误区分。
	ErrInvalidRequest = errors.New("invalid request")
	// ErrStoreDisabled 表示未启用报告持久化。
	ErrStoreDisabled = errors.New("report store disabled")
)

// TableSource 提供当前表快照。
type TableSource interface {
	Snapshot() tables.Snapshot
}

// Defaults 是请求未指定模式时使用的值。
type Defaults struct {
	DeltaMode    threshold.DeltaMode
	TerminalMode threshold.TerminalMode
}

// Request 描述一次批量计算。Sequences 中的每个元素生成一条记录。
type Request struct {
	MinWeight    float64
	MaxWeight    float64
	Sequences    []string
	DeltaMode    string
	TerminalMode string
}

// FiberOptions 是可供选择的刺激丝克重列表。
type FiberOptions struct {
	LogMode       calibration.LogMode      `json:"log_mode"`
	TablesVersion int64                    `json:"tables_version"`
	Weights       []float64                `json:"weights"`
	Entries       []calibration.FiberEntry `json:"entries"`
}

// Calculator 无会话状态；每次计算取一份快照，重载不影响进行中的计算。
type Calculator struct {
	tables   TableSource
	defaults Defaults
	builder  *report.Builder
	reports  store.ReportRepository
}

// NewCalculator 构造计算服务。reports 为 nil 时不保存报告。
func NewCalculator(src TableSource, defaults Defaults, builder *report.Builder, reports store.ReportRepository) (*Calculator, error) {
	if src == nil {
		return nil, fmt.Errorf("table source is required")
	}
	if defaults.DeltaMode == "" {
		defaults.DeltaMode = threshold.DeltaByCount
	}
	if defaults.TerminalMode == "" {
		defaults.TerminalMode = threshold.TerminalSecondToLast
	}
	if builder == nil {
		builder = report.NewBuilder()
	}
	return &Calculator{tables: src, defaults: defaults, builder: builder, reports: reports}, nil
}

// Fibers 返回当前标定表中的刺激丝。
func (c *Calculator) Fibers() FiberOptions {
	snap := c.tables.Snapshot()
	return FiberOptions{
		LogMode:       snap.Calibration.Mode(),
		TablesVersion: snap.Version,
		Weights:       snap.Calibration.Weights(),
		Entries:       snap.Calibration.Entries(),
	}
}

// Calculate 选择范围并逐条计算。范围错误使整批失败；单条序列错误写入对应记录。
func (c *Calculator) Calculate(ctx context.Context, req Request) (*report.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	deltaMode, terminalMode, err := c.modes(req)
	if err != nil {
		return nil, err
	}
	snap := c.tables.Snapshot()
	sel, err := threshold.Select(snap.Calibration, req.MinWeight, req.MaxWeight, deltaMode)
	if err != nil {
		logger.Warnf("范围选择失败 min=%g max=%g: %v", req.MinWeight, req.MaxWeight, err)
		return nil, err
	}
	logger.Debugf("范围 [%g, %g] 序号 %d..%d 中位 %d delta=%.4f (%s)",
		sel.MinWeight, sel.MaxWeight, sel.MinIndex, sel.MaxIndex, sel.MedianIndex, sel.Delta, deltaMode)

	in := threshold.Inputs{
		Selection:    sel,
		Calibration:  snap.Calibration,
		Coefficients: snap.Coefficients,
		Terminal:     terminalMode,
	}
	rep := c.builder.Build(sel, terminalMode, snap.Version, in.EstimateAll(req.Sequences))
	logger.Infof("计算完成 id=%s 序列=%d 成功=%d 失败=%d", rep.ID, len(rep.Records), rep.Successes, rep.Failures)
	return rep, nil
}

// CalculateText 按行拆分文本块后计算，空行跳过。
func (c *Calculator) CalculateText(ctx context.Context, minWeight, maxWeight float64, block string) (*report.Report, error) {
	return c.Calculate(ctx, Request{MinWeight: minWeight, MaxWeight: maxWeight, Sequences: threshold.SplitLines(block)})
}

func (c *Calculator) modes(req Request) (threshold.DeltaMode, threshold.TerminalMode, error) {
	deltaMode := c.defaults.DeltaMode
	if strings.TrimSpace(req.DeltaMode) != "" {
		m, err := threshold.ParseDeltaMode(req.DeltaMode)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		deltaMode = m
	}
	terminalMode := c.defaults.TerminalMode
	if strings.TrimSpace(req.TerminalMode) != "" {
		m, err := threshold.ParseTerminalMode(req.TerminalMode)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		terminalMode = m
	}
	return deltaMode, terminalMode, nil
}

// StoreEnabled 报告是否配置了报告仓库。
func (c *Calculator) StoreEnabled() bool { return c.reports != nil }

// Save 持久化报告。
func (c *Calculator) Save(ctx context.Context, rep *report.Report) error {
	if c.reports == nil {
		return ErrStoreDisabled
	}
	if err := c.reports.Save(ctx, rep); err != nil {
		return fmt.Errorf("save report %s: %w", rep.ID, err)
	}
	return nil
}

// Report 按 ID 读取已保存的报告。
func (c *Calculator) Report(ctx context.Context, id string) (*report.Report, error) {
	if c.reports == nil {
		return nil, ErrStoreDisabled
	}
	return c.reports.FindByID(ctx, id)
}

// Reports 列出最近保存的报告，最新在前。
func (c *Calculator) Reports(ctx context.Context, limit int) ([]report.Summary, error) {
	if c.reports == nil {
		return nil, ErrStoreDisabled
	}
	return c.reports.ListRecent(ctx, limit)
}
