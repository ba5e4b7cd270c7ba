package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/metrics-exporter/internal/config"
	"codeberg.org/mutker/metrics-exporter/internal/errors"
	"codeberg.org/mutker/metrics-exporter/internal/logger"
)

const stopTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, _ := logger.ParseLevel(cfg.LogLevel.String())
	logger.Init(level, logger.IsService())
	logger.Debug().Msg("Config loaded")

	if cfg.List {
		if err := listJobs(os.Stdout, cfg); err != nil {
			fatal(err)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		fatal(err)
	}
	defer a.close()

	if cfg.Once {
		err = a.runOnce(ctx)
	} else {
		err = a.serve(ctx)
	}
	if err != nil {
		a.close()
		fatal(err)
	}

	logger.Info().Msg("Exiting...")
}

func fatal(err error) {
	var appErr errors.Error
	if errors.As(err, &appErr) {
		logger.FatalWithCode(appErr).Msg("")
	}
	logger.Fatal().Err(err).Msg("")
}
