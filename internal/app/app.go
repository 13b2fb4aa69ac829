package app

import (
	"context"
	"fmt"

	"tradelens/internal/config"
	"tradelens/internal/logger"
	"tradelens/internal/store"
	"tradelens/internal/trades"
	dashboardhttp "tradelens/internal/transport/http/dashboard"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载交易批次→启动看板服务与源文件监听。
type App struct {
	cfg     *config.Config
	repo    *store.Repository
	http    *dashboardhttp.Server
	Summary *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run primes the trade snapshot, then serves the dashboard (and watches the
// source file when enabled) until ctx is done or a component fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.repo == nil || a.http == nil {
		return fmt.Errorf("app dependencies not initialized")
	}

	if a.Summary != nil {
		a.Summary.Print()
	}

	// A load error is not fatal: the dashboard reports it and a later
	// reload or file change can recover.
	if snap, err := a.repo.Snapshot(ctx); err != nil {
		if !trades.IsLoadError(err) {
			return err
		}
		logger.Errorf("initial trade load failed, dashboard will report it: %v", err)
	} else {
		logger.Infof("✓ 已加载 %d 笔交易（%d 个交易对，%d 种类型）", len(snap.Trades), len(snap.Facets.Symbols), len(snap.Facets.EntryTypes))
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("dashboard http server error: %w", err)
		}
		return nil
	})
	if a.cfg.Source.Watch {
		group.Go(func() error {
			return a.repo.Watch(ctx, a.cfg.Source.Path, a.cfg.Source.WatchDebounce())
		})
	}
	return group.Wait()
}

// Repository exposes the trade repository (for tests and tooling).
func (a *App) Repository() *store.Repository {
	if a == nil {
		return nil
	}
	return a.repo
}
