package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vonfrey/internal/config"
	"vonfrey/internal/logger"
	"vonfrey/internal/report"
	"vonfrey/internal/store/sqlite"
	"vonfrey/internal/tables"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	nineFibers = "克数\t序号\n" +
		"0.008\t1\n0.02\t2\n0.04\t3\n0.07\t4\n0.16\t5\n0.4\t6\n0.6\t7\n1.0\t8\n1.4\t9\n"
	kValues = "测量结果\tk值\n0101\t0.5\n0011\t-0.3\n"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		App: config.AppConfig{Env: "test", LogLevel: "error", HTTPAddr: "127.0.0.1:0"},
		Tables: config.TablesConfig{
			CalibrationPath: writeFile(t, dir, "编号表.txt", nineFibers),
			CoefficientPath: writeFile(t, dir, "k值表.txt", kValues),
			LogMode:         "canonical",
		},
		Estimate: config.EstimateConfig{DeltaMode: "count", TerminalMode: "second_to_last"},
		Report:   config.ReportConfig{Language: "en", Format: "csv"},
		Store:    config.StoreConfig{Path: filepath.Join(dir, "reports.db"), ListLimit: 10},
		Batch: config.BatchConfig{
			SequencesPath: writeFile(t, dir, "sequences.txt", "0101\n\n0011\n1111\n"),
			MinWeight:     0.008,
			MaxWeight:     1.4,
		},
	}
}

func TestBatchToStdout(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	app, err := NewAppBuilder(cfg, WithBatchOutput(&out)).Build(context.Background())
	require.NoError(t, err)
	require.NoError(t, app.Run(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "sequence,final_weight_g"))
	assert.True(t, strings.HasPrefix(lines[1], "0101,"))
	assert.True(t, strings.HasPrefix(lines[3], "1111,"))
}

func TestBatchToFileAndStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Enabled = true
	cfg.Report.Format = "json"
	cfg.Batch.OutputPath = filepath.Join(filepath.Dir(cfg.Store.Path), "out", "report.json")

	st, err := sqlite.NewSqliteStore(cfg.Store.Path)
	require.NoError(t, err)
	fixed := &report.Builder{NewID: func() string { return "batch-1" }, Now: time.Now}

	app, err := NewAppBuilder(cfg, WithStore(st), WithReportBuilder(fixed)).Build(context.Background())
	require.NoError(t, err)
	rep, err := app.batch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Successes)
	assert.Equal(t, 1, rep.Failures)

	data, err := os.ReadFile(cfg.Batch.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id": "batch-1"`)

	saved, err := app.Calculator().Report(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.Len(t, saved.Records, 3)
	app.Close()
}

func TestBuildErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tables.LogMode = "ln"
	_, err := NewAppBuilder(cfg).Build(context.Background())
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Tables.CalibrationPath = filepath.Join(t.TempDir(), "missing.txt")
	_, err = NewAppBuilder(cfg).Build(context.Background())
	assert.ErrorIs(t, err, tables.ErrConfiguration)

	cfg = testConfig(t)
	cfg.Estimate.DeltaMode = "median"
	_, err = NewAppBuilder(cfg).Build(context.Background())
	assert.Error(t, err)

	_, err = NewAppBuilder(nil).Build(context.Background())
	assert.Error(t, err)
}

func TestBatchRangeErrorStopsRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.Batch.MinWeight = 0.41
	cfg.Batch.MaxWeight = 0.59
	app, err := NewAppBuilder(cfg, WithBatchOutput(&bytes.Buffer{})).Build(context.Background())
	require.NoError(t, err)
	assert.Error(t, app.Run(context.Background()))
}

func TestRunHTTPStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.App.HTTPEnabled = true
	cfg.Batch = config.BatchConfig{}
	app, err := NewAppBuilder(cfg).Build(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	assert.NoError(t, app.Run(ctx))
}

func TestStartupSummary(t *testing.T) {
	cfg := testConfig(t)
	app, err := NewAppBuilder(cfg, WithBatchOutput(&bytes.Buffer{})).Build(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	app.Summary.Fprint(&buf)
	out := buf.String()
	assert.Contains(t, out, "刺激丝: 9 根, 0.008g ~ 1.4g")
	assert.Contains(t, out, "delta 模式: count")
	assert.Contains(t, out, "报告存储: (未启用)")
	assert.Contains(t, out, "HTTP: -")
}

func captureLogs(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.SetFormat("text")
	logger.SetLevel(level)
	t.Cleanup(func() {
		logger.SetLevel("info")
		logger.SetOutput(os.Stdout)
	})
	return &buf
}

func TestReloadLogsTablesBlock(t *testing.T) {
	cfg := testConfig(t)
	app, err := NewAppBuilder(cfg, WithBatchOutput(&bytes.Buffer{})).Build(context.Background())
	require.NoError(t, err)

	logs := captureLogs(t, "info")
	require.NoError(t, os.WriteFile(cfg.Tables.CoefficientPath, []byte(kValues+"1001\t0.3\n"), 0o644))
	require.NoError(t, app.registry.Reload())

	out := logs.String()
	assert.Contains(t, out, "表文件已更新, 快照 v2")
	assert.Contains(t, out, "9 根, 0.008g ~ 1.4g")
	assert.Contains(t, out, "3 条, 非数值 0, 重复 0")
}

func TestBatchFailuresLoggedAtDebug(t *testing.T) {
	cfg := testConfig(t)
	app, err := NewAppBuilder(cfg, WithBatchOutput(&bytes.Buffer{})).Build(context.Background())
	require.NoError(t, err)

	logs := captureLogs(t, "info")
	_, err = app.batch.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "成功 2, 失败 1")
	assert.NotContains(t, logs.String(), "计算失败")

	logs.Reset()
	logger.SetLevel("debug")
	_, err = app.batch.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "level=DEBUG")
	assert.Contains(t, logs.String(), "第 3 条")
	assert.Contains(t, logs.String(), "1111")
}

func TestShippedConfigBuilds(t *testing.T) {
	cfg, err := config.Load(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	cfg.App.HTTPEnabled = false
	cfg.Store.Enabled = false
	cfg.Report.BOM = false
	cfg.Batch.SequencesPath = filepath.Join(filepath.Dir(cfg.Tables.CalibrationPath), "sequences.txt")

	var out bytes.Buffer
	app, err := NewAppBuilder(cfg, WithBatchOutput(&out)).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, app.Summary.Tables.Fibers)
	assert.InDelta(t, 0.008, app.Summary.Tables.MinWeight, 1e-12)
	assert.InDelta(t, 2.0, app.Summary.Tables.MaxWeight, 1e-12)

	require.NoError(t, app.Run(context.Background()))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "反应序列,"), lines[0])
	assert.True(t, strings.HasPrefix(lines[2], "0110,"), lines[2])
}
