package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions 描述滚动日志文件。
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
}

// Setup applies level and, when opts.Path is set, tees output to stdout and a
// size-rotated file. The returned closer releases the file; it is a no-op
// when no file is configured.
func Setup(level string, opts FileOptions) (io.Closer, error) {
	SetLevel(level)
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		SetOutput(os.Stdout)
		return nopCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		Compress:   true,
	}
	SetOutput(io.MultiWriter(os.Stdout, rotator))
	return rotator, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
