package app

import (
	"context"
	"fmt"

	"vonfrey/internal/config"
	"vonfrey/internal/logger"
	"vonfrey/internal/service"
	"vonfrey/internal/store"
	"vonfrey/internal/tables"
	apihttp "vonfrey/internal/transport/http/api"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载表→初始化依赖→执行批量任务→启动 HTTP 服务。
type App struct {
	cfg      *config.Config
	registry *tables.Registry
	calc     *service.Calculator
	store    store.Store
	http     *apihttp.Server
	batch    *BatchRunner
	Summary  *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return NewAppBuilder(cfg).Build(context.Background())
}

// Run 先执行批量任务（如配置），再运行 HTTP 服务与表文件监听直到 ctx 取消。
// 未启用 HTTP 时批量任务完成即返回。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.Close()

	if a.Summary != nil {
		a.Summary.Print()
	}

	if a.batch != nil {
		if _, err := a.batch.Run(ctx); err != nil {
			return fmt.Errorf("batch run failed: %w", err)
		}
	}
	if a.http == nil {
		return nil
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("api http server error: %w", err)
		}
		return nil
	})
	if a.cfg.Tables.Watch {
		group.Go(func() error {
			return a.registry.Watch(ctx)
		})
	}
	return group.Wait()
}

// Close 释放存储连接。
func (a *App) Close() {
	if a == nil || a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		logger.Warnf("关闭报告存储失败: %v", err)
	}
	a.store = nil
}

// Calculator exposes the underlying calculator (for tests and embedding).
func (a *App) Calculator() *service.Calculator {
	if a == nil {
		return nil
	}
	return a.calc
}
