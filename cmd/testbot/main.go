package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	app2 "github.com/IT-Nick/testbot/internal/app"
	"github.com/IT-Nick/testbot/internal/infra/config"
	"github.com/IT-Nick/testbot/internal/infra/logger"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", "", "path to config file (default $CONFIG_PATH or "+defaultConfigPath+")")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("app starting", zap.String("config", path), zap.String("storage", cfg.Storage.Type))

	app, err := app2.NewApp(cfg, log)
	if err != nil {
		log.Fatal("failed to build app", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Error("app stopped with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("app stopped")
}
