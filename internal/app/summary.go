package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"vonfrey/internal/config"
	"vonfrey/internal/service"
	"vonfrey/internal/tables"

	"github.com/dustin/go-humanize"
)

type StartupSummary struct {
	Tables  TablesSummary
	Modes   service.Defaults
	Report  config.ReportConfig
	Store   config.StoreConfig
	Batch   config.BatchConfig
	HTTP    string
	Version int64
}

type TablesSummary struct {
	CalibrationPath string
	CoefficientPath string
	LogMode         string
	Fibers          int
	MinWeight       float64
	MaxWeight       float64
	Coefficients    int
	Invalid         int
	Duplicates      int
	Monotonic       bool
}

func buildStartupSummary(cfg *config.Config, snap tables.Snapshot, modes service.Defaults) *StartupSummary {
	s := &StartupSummary{
		Tables: TablesSummary{
			CalibrationPath: cfg.Tables.CalibrationPath,
			CoefficientPath: cfg.Tables.CoefficientPath,
			LogMode:         string(snap.Calibration.Mode()),
			Fibers:          snap.Calibration.Len(),
			Coefficients:    snap.Coefficients.Len(),
			Invalid:         snap.Coefficients.Invalid(),
			Duplicates:      len(snap.Coefficients.Duplicates()),
			Monotonic:       snap.Calibration.Monotonic(),
		},
		Modes:   modes,
		Report:  cfg.Report,
		Store:   cfg.Store,
		Batch:   cfg.Batch,
		Version: snap.Version,
	}
	if w := snap.Calibration.Weights(); len(w) > 0 {
		s.Tables.MinWeight = w[0]
		s.Tables.MaxWeight = w[len(w)-1]
	}
	if cfg.App.HTTPEnabled {
		s.HTTP = cfg.App.HTTPAddr
	}
	return s
}

func (s *StartupSummary) Print() {
	s.Fprint(os.Stdout)
}

func (s *StartupSummary) Fprint(w io.Writer) {
	title := "启动配置摘要 (STARTUP SUMMARY)"
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "%*s\n", 40+len(title)/2, title)
	fmt.Fprintln(w, strings.Repeat("=", 80))

	fmt.Fprintln(w, "[标定表 (CALIBRATION)]")
	fmt.Fprintf(w, "  文件: %s\n", s.Tables.CalibrationPath)
	fmt.Fprintf(w, "  对数模式: %s\n", s.Tables.LogMode)
	fmt.Fprintf(w, "  刺激丝: %s 根, %gg ~ %gg\n", humanize.Comma(int64(s.Tables.Fibers)), s.Tables.MinWeight, s.Tables.MaxWeight)
	if !s.Tables.Monotonic {
		fmt.Fprintln(w, "  警告: 克数未随序号递增")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[k 值表 (COEFFICIENTS)]")
	fmt.Fprintf(w, "  文件: %s\n", s.Tables.CoefficientPath)
	fmt.Fprintf(w, "  模式数: %s (非数值 %d, 重复 %d)\n", humanize.Comma(int64(s.Tables.Coefficients)), s.Tables.Invalid, s.Tables.Duplicates)
	fmt.Fprintf(w, "  快照版本: v%d\n", s.Version)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[计算 (ESTIMATE)]")
	fmt.Fprintf(w, "  delta 模式: %s\n", s.Modes.DeltaMode)
	fmt.Fprintf(w, "  终点模式: %s\n", s.Modes.TerminalMode)
	fmt.Fprintf(w, "  导出: %s / %s (BOM=%t)\n", s.Report.Format, s.Report.Language, s.Report.BOM)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[服务 (SERVICES)]")
	fmt.Fprintf(w, "  HTTP: %s\n", orDash(s.HTTP))
	if s.Store.Enabled {
		fmt.Fprintf(w, "  报告存储: %s\n", s.Store.Path)
	} else {
		fmt.Fprintln(w, "  报告存储: (未启用)")
	}
	if s.Batch.Enabled() {
		fmt.Fprintf(w, "  批量任务: %s [%g, %g] -> %s\n", s.Batch.SequencesPath, s.Batch.MinWeight, s.Batch.MaxWeight, orDash(s.Batch.OutputPath))
	} else {
		fmt.Fprintln(w, "  批量任务: (未配置)")
	}
	fmt.Fprintln(w, strings.Repeat("=", 80))
}

// formatTablesBlock 是表文件重载后输出的多行摘要。
func formatTablesBlock(cfg *config.Config, snap tables.Snapshot) string {
	t := buildStartupSummary(cfg, snap, service.Defaults{}).Tables
	lines := []string{
		fmt.Sprintf("表文件已更新, 快照 v%d", snap.Version),
		fmt.Sprintf("  标定表: %s (%d 根, %gg ~ %gg)", t.CalibrationPath, t.Fibers, t.MinWeight, t.MaxWeight),
		fmt.Sprintf("  k 值表: %s (%d 条, 非数值 %d, 重复 %d)", t.CoefficientPath, t.Coefficients, t.Invalid, t.Duplicates),
	}
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
