package app

import (
	"context"
	"fmt"

	"tradelens/internal/config"
	"tradelens/internal/logger"
	"tradelens/internal/store"
	"tradelens/internal/trades"
	dashboardhttp "tradelens/internal/transport/http/dashboard"
	"tradelens/internal/visual"
)

type AppBuilder struct {
	cfg *config.Config

	sourceFn func(config.SourceConfig) (trades.Source, error)
	httpFn   func(*config.Config, dashboardhttp.SnapshotProvider) (*dashboardhttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

// WithSource replaces the configured trade source, e.g. with an in-memory one.
func WithSource(src trades.Source) AppBuilderOption {
	return func(b *AppBuilder) {
		b.sourceFn = func(config.SourceConfig) (trades.Source, error) { return src, nil }
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:      cfg,
		sourceFn: buildSource,
		httpFn:   buildDashboardHTTP,
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
	logger.SetLevel(cfg.App.LogLevel)

	src, err := b.sourceFn(cfg.Source)
	if err != nil {
		return nil, err
	}
	repo, err := store.NewRepository(src)
	if err != nil {
		return nil, err
	}
	server, err := b.httpFn(cfg, repo)
	if err != nil {
		return nil, fmt.Errorf("build dashboard http server failed: %w", err)
	}
	return &App{
		cfg:     cfg,
		repo:    repo,
		http:    server,
		Summary: newStartupSummary(cfg, src),
	}, nil
}

func buildSource(sc config.SourceConfig) (trades.Source, error) {
	loc, err := sc.Location()
	if err != nil {
		return nil, fmt.Errorf("source timezone: %w", err)
	}
	switch sc.Kind {
	case config.SourceCSV:
		return trades.NewCSVSource(sc.Path, loc), nil
	case config.SourceSQLite:
		return trades.NewSQLiteSource(sc.Path, sc.Table, loc), nil
	default:
		return nil, fmt.Errorf("unsupported source kind %q", sc.Kind)
	}
}

func buildDashboardHTTP(cfg *config.Config, provider dashboardhttp.SnapshotProvider) (*dashboardhttp.Server, error) {
	loc, err := cfg.Source.Location()
	if err != nil {
		return nil, err
	}
	return dashboardhttp.NewServer(dashboardhttp.ServerConfig{
		Addr:   cfg.App.HTTPAddr,
		Trades: provider,
		Charts: visual.Options{
			Theme:     cfg.Charts.Theme,
			Width:     cfg.Charts.Width,
			Height:    cfg.Charts.Height,
			SMAPeriod: cfg.Charts.CumulativeSMAPeriod,
		},
		PNGEnabled: cfg.Charts.PNGEnabled,
		PNGTimeout: cfg.Charts.PNGTimeout(),
		Location:   loc,
	})
}
