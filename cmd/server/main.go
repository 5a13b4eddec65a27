package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/taoyao-code/lcd-gateway/internal/app/bootstrap"
	cfgpkg "github.com/taoyao-code/lcd-gateway/internal/config"
	"github.com/taoyao-code/lcd-gateway/internal/logging"
)

func main() {
	// 1) 加载配置（LCD_CONFIG 指定文件，LCD_* 覆盖单项）
	cfg, err := cfgpkg.Load("")
	if err != nil {
		panic(err)
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	// 3) 启动
	if err := bootstrap.Run(cfg, zap.L()); err != nil {
		zap.L().Error("lcd gateway exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
