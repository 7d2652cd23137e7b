package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"skyrush/app"
	"skyrush/config"
	"skyrush/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.NewLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Wait for interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	bot, cleanup, err := app.InitializeApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize bot", zap.Error(err))
	}
	defer cleanup()

	if err := bot.Run(ctx); err != nil {
		logger.Error("bot stopped with error", zap.Error(err))
		return
	}
	logger.Info("shutdown complete")
}
