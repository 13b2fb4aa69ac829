package config

import (
	"strings"
)

// 默认值常量
const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppHTTPAddr      = ":8501"
	defaultAppLogMaxSizeMB  = 50
	defaultAppLogMaxBackups = 5
	defaultSourceKind       = SourceCSV
	defaultSourcePath       = "executed_trades.csv"
	defaultSourceTable      = "executed_trades"
	defaultSourceDebounceMS = 500
	defaultChartsTheme      = "westeros"
	defaultChartsWidth      = 1200
	defaultChartsHeight     = 420
	defaultChartsPNGTimeout = 20
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Source.applyDefaults(keys)
	c.Charts.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		fieldDefault{
			key:   "app.log_max_size_mb",
			need:  func() bool { return a.LogMaxSizeMB <= 0 },
			apply: func() { a.LogMaxSizeMB = defaultAppLogMaxSizeMB },
		},
		fieldDefault{
			key:   "app.log_max_backups",
			need:  func() bool { return a.LogMaxBackups <= 0 },
			apply: func() { a.LogMaxBackups = defaultAppLogMaxBackups },
		},
	)
	a.LogLevel = strings.ToLower(strings.TrimSpace(a.LogLevel))
}

func (s *SourceConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("source.kind", &s.Kind, defaultSourceKind),
		stringFieldDefault("source.path", &s.Path, defaultSourcePath),
		stringFieldDefault("source.table", &s.Table, defaultSourceTable),
		fieldDefault{
			key:   "source.watch_debounce_ms",
			need:  func() bool { return s.WatchDebounceMS <= 0 },
			apply: func() { s.WatchDebounceMS = defaultSourceDebounceMS },
		},
	)
	s.Kind = strings.ToLower(strings.TrimSpace(s.Kind))
	s.Path = strings.TrimSpace(s.Path)
	s.Table = strings.TrimSpace(s.Table)
	if s.Kind == SourceSQLite && s.Table == "" {
		s.Table = defaultSourceTable
	}
}

func (c *ChartsConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("charts.theme", &c.Theme, defaultChartsTheme),
		fieldDefault{
			key:   "charts.width",
			need:  func() bool { return c.Width <= 0 },
			apply: func() { c.Width = defaultChartsWidth },
		},
		fieldDefault{
			key:   "charts.height",
			need:  func() bool { return c.Height <= 0 },
			apply: func() { c.Height = defaultChartsHeight },
		},
		fieldDefault{
			key:   "charts.png_timeout_seconds",
			need:  func() bool { return c.PNGTimeoutSeconds <= 0 },
			apply: func() { c.PNGTimeoutSeconds = defaultChartsPNGTimeout },
		},
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
