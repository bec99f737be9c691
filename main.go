package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"PShare/global"
	"PShare/logger"
	"PShare/tools/ids"

	"go.uber.org/zap"
)

func main() {
	path := global.ConfigPath()
	cfg, err := global.LoadConfig(path)
	if err != nil {
		logger.Error("[main] config", zap.Error(err))
		os.Exit(1)
	}
	logger.Setup(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	defer logger.Sync()

	ids.SetNodeID(cfg.Gateway.NodeID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, path, cfg)
	if err != nil {
		logger.Error("[main] startup failed", zap.Error(err))
		os.Exit(1)
	}
	if err := app.run(ctx); err != nil {
		logger.Error("[main] server stopped with error", zap.Error(err))
		os.Exit(1)
	}
}
