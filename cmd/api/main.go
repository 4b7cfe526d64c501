// cmd/api/main.go
package main

import (
	"context"
	"os/signal"
	"syscall"

	"licentra-service/internal/app"
	"licentra-service/internal/config"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := a.Run(ctx); err != nil {
		logger.Fatal("application exited with error", zap.Error(err))
	}

	logger.Info("application stopped")
}
