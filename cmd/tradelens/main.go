package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"tradelens/internal/app"
	"tradelens/internal/config"
	"tradelens/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := config.PathFromEnv()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("读取配置失败: %v", err)
	}
	logFile, err := logger.Setup(cfg.App.LogLevel, logger.FileOptions{
		Path:       cfg.App.LogPath,
		MaxSizeMB:  cfg.App.LogMaxSizeMB,
		MaxBackups: cfg.App.LogMaxBackups,
	})
	if err != nil {
		log.Fatalf("初始化日志文件失败: %v", err)
	}
	defer logFile.Close()
	logger.Infof("✓ 配置加载成功（环境=%s，配置=%s，数据源=%s）", cfg.App.Env, cfgPath, cfg.Source.Path)

	a, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("初始化应用失败: %v", err)
	}
	if err := a.Run(ctx); err != nil {
		log.Fatalf("运行失败: %v", err)
	}
	logger.Infof("tradelens stopped")
}
