package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/mamadbah2/leitor/internal/config"
	"github.com/mamadbah2/leitor/pkg/clients/backend"
	"github.com/mamadbah2/leitor/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	baseLogger := logger.Must(logger.New(logger.Options{Level: cfg.Log.Level, Console: true}))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{
		cfg:    cfg,
		client: backend.NewClient(cfg.Backend),
		out:    os.Stdout,
		logger: baseLogger,
	}

	baseLogger.Debug("console starting", zap.String("backend", cfg.Backend.BaseURL))

	if err := a.run(ctx, os.Args[1:]); err != nil {
		stop()
		_ = baseLogger.Sync()
		os.Exit(1)
	}
}
