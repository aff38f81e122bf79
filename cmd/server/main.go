package main

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/flashrush/quiz-backend/internal/config"
	"github.com/flashrush/quiz-backend/internal/httpapi"
	"github.com/flashrush/quiz-backend/internal/registry"
)

func main() {
	cfg := config.Load()

	var logger *zap.Logger
	var err error
	if cfg.Env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	reg := registry.New(ctx, clockwork.NewRealClock(), logger)

	// Build the router *with* the registry injected
	handler := httpapi.SetupRoutes(reg, logger)

	logger.Info("listening", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
