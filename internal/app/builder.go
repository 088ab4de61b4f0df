package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"vonfrey/internal/calibration"
	"vonfrey/internal/config"
	"vonfrey/internal/logger"
	"vonfrey/internal/report"
	"vonfrey/internal/service"
	"vonfrey/internal/store"
	"vonfrey/internal/store/sqlite"
	"vonfrey/internal/tables"
	"vonfrey/internal/threshold"
	apihttp "vonfrey/internal/transport/http/api"
)

type AppBuilder struct {
	cfg *config.Config

	registryFn func(tables.Options) (*tables.Registry, error)
	storeFn    func(config.StoreConfig) (store.Store, error)
	httpFn     func(config.AppConfig, *service.Calculator, report.Options, int) (*apihttp.Server, error)

	builder     *report.Builder
	batchOutput io.Writer
}

type AppBuilderOption func(*AppBuilder)

// WithReportBuilder 替换报告 ID 与时钟来源。
func WithReportBuilder(rb *report.Builder) AppBuilderOption {
	return func(b *AppBuilder) { b.builder = rb }
}

// WithBatchOutput 设置未配置 output_path 时批量结果的输出位置，默认 stdout。
func WithBatchOutput(w io.Writer) AppBuilderOption {
	return func(b *AppBuilder) { b.batchOutput = w }
}

// WithStore 使用已打开的存储代替配置中的 sqlite 文件。
func WithStore(st store.Store) AppBuilderOption {
	return func(b *AppBuilder) {
		b.storeFn = func(config.StoreConfig) (store.Store, error) { return st, nil }
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:         cfg,
		registryFn:  tables.NewRegistry,
		storeFn:     openStore,
		httpFn:      buildHTTPServer,
		batchOutput: os.Stdout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg

	logMode, err := calibration.ParseLogMode(cfg.Tables.LogMode)
	if err != nil {
		return nil, err
	}
	registry, err := b.registryFn(tables.Options{
		CalibrationPath: cfg.Tables.CalibrationPath,
		CoefficientPath: cfg.Tables.CoefficientPath,
		LogMode:         logMode,
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("✓ 已加载标定表 %s 与 k 值表 %s", cfg.Tables.CalibrationPath, cfg.Tables.CoefficientPath)
	registry.OnChange(func(snap tables.Snapshot) {
		logger.InfoBlock(formatTablesBlock(cfg, snap))
	})

	defaults, err := estimateDefaults(cfg.Estimate)
	if err != nil {
		return nil, err
	}
	export, err := exportOptions(cfg.Report)
	if err != nil {
		return nil, err
	}

	var st store.Store
	var reports store.ReportRepository
	if cfg.Store.Enabled {
		st, err = b.storeFn(cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("open report store: %w", err)
		}
		reports = st.Reports()
		logger.Infof("✓ 报告存储已启用: %s", cfg.Store.Path)
	}

	calc, err := service.NewCalculator(registry, defaults, b.builder, reports)
	if err != nil {
		closeStore(st)
		return nil, err
	}

	app := &App{
		cfg:      cfg,
		registry: registry,
		calc:     calc,
		store:    st,
	}
	if cfg.Batch.Enabled() {
		app.batch = &BatchRunner{
			Calculator: calc,
			Config:     cfg.Batch,
			Export:     export,
			Save:       cfg.Store.Enabled,
			Stdout:     b.batchOutput,
		}
	}
	if cfg.App.HTTPEnabled {
		srv, err := b.httpFn(cfg.App, calc, export, cfg.Store.ListLimit)
		if err != nil {
			closeStore(st)
			return nil, err
		}
		app.http = srv
	}
	app.Summary = buildStartupSummary(cfg, registry.Snapshot(), defaults)
	return app, nil
}

func estimateDefaults(cfg config.EstimateConfig) (service.Defaults, error) {
	deltaMode, err := threshold.ParseDeltaMode(cfg.DeltaMode)
	if err != nil {
		return service.Defaults{}, err
	}
	terminalMode, err := threshold.ParseTerminalMode(cfg.TerminalMode)
	if err != nil {
		return service.Defaults{}, err
	}
	return service.Defaults{DeltaMode: deltaMode, TerminalMode: terminalMode}, nil
}

func exportOptions(cfg config.ReportConfig) (report.Options, error) {
	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return report.Options{}, err
	}
	return report.Options{
		Format:   format,
		Language: report.ParseLanguage(cfg.Language),
		BOM:      cfg.BOM,
	}, nil
}

func openStore(cfg config.StoreConfig) (store.Store, error) {
	st, err := sqlite.NewSqliteStore(cfg.Path)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func buildHTTPServer(cfg config.AppConfig, calc *service.Calculator, export report.Options, listLimit int) (*apihttp.Server, error) {
	return apihttp.NewServer(apihttp.ServerConfig{
		Addr:       cfg.HTTPAddr,
		Calculator: calc,
		Export:     export,
		ListLimit:  listLimit,
	})
}

func closeStore(st store.Store) {
	if st == nil {
		return
	}
	if err := st.Close(); err != nil {
		logger.Warnf("关闭报告存储失败: %v", err)
	}
}
