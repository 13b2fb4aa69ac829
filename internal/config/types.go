package config

import (
	"strings"
	"time"
)

// Config 是 tradelens 的主配置载体。
type Config struct {
	App    AppConfig    `toml:"app"`
	Source SourceConfig `toml:"source"`
	Charts ChartsConfig `toml:"charts"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	// LogPath 为空时只输出到 stdout。
	LogPath       string `toml:"log_path"`
	LogMaxSizeMB  int    `toml:"log_max_size_mb"`
	LogMaxBackups int    `toml:"log_max_backups"`
}

// SourceConfig 描述交易记录的来源。
type SourceConfig struct {
	Kind            string `toml:"kind"` // "csv" | "sqlite"
	Path            string `toml:"path"`
	Table           string `toml:"table"`    // sqlite only
	Timezone        string `toml:"timezone"` // IANA name applied to naive timestamps
	Watch           bool   `toml:"watch"`
	WatchDebounceMS int    `toml:"watch_debounce_ms"`
}

const (
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
)

// Location resolves Timezone; empty means UTC.
func (s SourceConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(s.Timezone)
	if name == "" || strings.EqualFold(name, "utc") {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

func (s SourceConfig) WatchDebounce() time.Duration {
	return time.Duration(s.WatchDebounceMS) * time.Millisecond
}

// ChartsConfig 控制图表主题、尺寸与 PNG 导出。
type ChartsConfig struct {
	Theme               string `toml:"theme"`
	Width               int    `toml:"width"`
	Height              int    `toml:"height"`
	CumulativeSMAPeriod int    `toml:"cumulative_sma_period"`
	PNGEnabled          bool   `toml:"png_enabled"`
	PNGTimeoutSeconds   int    `toml:"png_timeout_seconds"`
}

func (c ChartsConfig) PNGTimeout() time.Duration {
	return time.Duration(c.PNGTimeoutSeconds) * time.Second
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
