package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var (
	levelVar slog.LevelVar
	current  atomic.Pointer[slog.Logger]
)

func init() {
	SetOutput(os.Stdout)
}

// SetOutput 切换输出目标；nil 视为 stdout。级别保持不变。
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	current.Store(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &levelVar})))
}

// SetLevel 设置日志级别，未知级别回落到 info。
func SetLevel(level string) {
	levelVar.Set(parseLevel(level))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Level returns the active level name.
func Level() string {
	return strings.ToLower(levelVar.Level().String())
}

// logf formats only when the level is enabled.
func logf(level slog.Level, format string, v []any) {
	l := current.Load()
	ctx := context.Background()
	if !l.Enabled(ctx, level) {
		return
	}
	l.Log(ctx, level, fmt.Sprintf(format, v...))
}

func Debugf(format string, v ...any) { logf(slog.LevelDebug, format, v) }
func Infof(format string, v ...any)  { logf(slog.LevelInfo, format, v) }
func Warnf(format string, v ...any)  { logf(slog.LevelWarn, format, v) }
func Errorf(format string, v ...any) { logf(slog.LevelError, format, v) }

// InfoBlock 逐行输出多行文本（启动摘要等），空行跳过。
func InfoBlock(block string) {
	for _, line := range strings.Split(strings.TrimSpace(block), "\n") {
		if line = strings.TrimRight(line, " \r"); line != "" {
			Infof("%s", line)
		}
	}
}
