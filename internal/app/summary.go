package app

import (
	"fmt"
	"io"
	"strings"

	"tradelens/internal/config"
	"tradelens/internal/logger"
	"tradelens/internal/trades"
)

type StartupSummary struct {
	Env      string
	HTTPAddr string
	LogLevel string
	Source   SourceSummary
	Charts   ChartsSummary
}

type SourceSummary struct {
	Kind     string
	Name     string
	Timezone string
	Watch    bool
}

type ChartsSummary struct {
	Theme      string
	Size       string
	SMAPeriod  int
	PNGEnabled bool
}

func newStartupSummary(cfg *config.Config, src trades.Source) *StartupSummary {
	tz := cfg.Source.Timezone
	if strings.TrimSpace(tz) == "" {
		tz = "UTC"
	}
	return &StartupSummary{
		Env:      cfg.App.Env,
		HTTPAddr: cfg.App.HTTPAddr,
		LogLevel: cfg.App.LogLevel,
		Source: SourceSummary{
			Kind:     cfg.Source.Kind,
			Name:     src.Describe(),
			Timezone: tz,
			Watch:    cfg.Source.Watch,
		},
		Charts: ChartsSummary{
			Theme:      cfg.Charts.Theme,
			Size:       fmt.Sprintf("%dx%d", cfg.Charts.Width, cfg.Charts.Height),
			SMAPeriod:  cfg.Charts.CumulativeSMAPeriod,
			PNGEnabled: cfg.Charts.PNGEnabled,
		},
	}
}

// Print logs the summary line by line so it also lands in the log file.
func (s *StartupSummary) Print() {
	var b strings.Builder
	if _, err := s.WriteTo(&b); err != nil {
		return
	}
	logger.InfoBlock(b.String())
}

func (s *StartupSummary) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	title := "启动配置摘要 (STARTUP SUMMARY)"
	b.WriteString(strings.Repeat("=", 80) + "\n")
	fmt.Fprintf(&b, "%*s\n", 40+len(title)/2, title)
	b.WriteString(strings.Repeat("=", 80) + "\n")

	b.WriteString("[应用 (APP)]\n")
	fmt.Fprintf(&b, "  环境: %s\n", s.Env)
	fmt.Fprintf(&b, "  监听: %s\n", s.HTTPAddr)
	fmt.Fprintf(&b, "  日志级别: %s\n\n", s.LogLevel)

	b.WriteString("[交易数据源 (TRADE SOURCE)]\n")
	fmt.Fprintf(&b, "  类型: %s\n", s.Source.Kind)
	fmt.Fprintf(&b, "  来源: %s\n", s.Source.Name)
	fmt.Fprintf(&b, "  时区: %s\n", s.Source.Timezone)
	fmt.Fprintf(&b, "  文件监听: %s\n\n", onOff(s.Source.Watch))

	b.WriteString("[图表 (CHARTS)]\n")
	fmt.Fprintf(&b, "  主题: %s\n", s.Charts.Theme)
	fmt.Fprintf(&b, "  尺寸: %s\n", s.Charts.Size)
	if s.Charts.SMAPeriod > 1 {
		fmt.Fprintf(&b, "  累计收益均线: SMA %d\n", s.Charts.SMAPeriod)
	} else {
		b.WriteString("  累计收益均线: -\n")
	}
	fmt.Fprintf(&b, "  PNG 导出: %s\n", onOff(s.Charts.PNGEnabled))
	b.WriteString(strings.Repeat("=", 80) + "\n")

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
