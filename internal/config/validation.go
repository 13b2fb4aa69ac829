package config

import (
	"fmt"
	"strings"
)

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Source.validate(); err != nil {
		return err
	}
	if err := c.Charts.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AppConfig) validate() error {
	if !validLogLevels[a.LogLevel] {
		return fmt.Errorf("app.log_level must be one of debug/info/warn/error, got %q", a.LogLevel)
	}
	if strings.TrimSpace(a.HTTPAddr) == "" {
		return fmt.Errorf("app.http_addr cannot be empty")
	}
	if a.LogMaxSizeMB < 0 || a.LogMaxBackups < 0 {
		return fmt.Errorf("app.log_max_size_mb and app.log_max_backups must be >= 0")
	}
	return nil
}

func (s *SourceConfig) validate() error {
	switch s.Kind {
	case SourceCSV, SourceSQLite:
	default:
		return fmt.Errorf("source.kind must be %q or %q, got %q", SourceCSV, SourceSQLite, s.Kind)
	}
	if s.Path == "" {
		return fmt.Errorf("source.path cannot be empty")
	}
	if s.Kind == SourceSQLite && s.Table == "" {
		return fmt.Errorf("source.table cannot be empty for sqlite sources")
	}
	if _, err := s.Location(); err != nil {
		return fmt.Errorf("source.timezone %q invalid: %w", s.Timezone, err)
	}
	if s.WatchDebounceMS < 0 {
		return fmt.Errorf("source.watch_debounce_ms must be >= 0")
	}
	return nil
}

func (c *ChartsConfig) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("charts.width and charts.height must be > 0")
	}
	if c.CumulativeSMAPeriod < 0 {
		return fmt.Errorf("charts.cumulative_sma_period must be >= 0")
	}
	if c.PNGEnabled && c.PNGTimeoutSeconds <= 0 {
		return fmt.Errorf("charts.png_timeout_seconds must be > 0 when png export is enabled")
	}
	return nil
}
