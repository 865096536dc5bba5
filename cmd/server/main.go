package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lemonbanan4/ai-web-research/pkg/app"
	"github.com/lemonbanan4/ai-web-research/pkg/config"
)

// drainTimeout bounds both the HTTP shutdown and the wait for in-flight
// research runs.
const drainTimeout = 30 * time.Second

func main() {
	if err := run(os.Getenv("RESEARCH_CONFIG_PATH")); err != nil {
		fmt.Fprintln(os.Stderr, "[ERROR]", err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	cfg, err := config.LoadConfigOptional(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	app.SetupMappings(application)
	logger := application.Logger

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           application.Engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("research api listening", "addr", srv.Addr, "env", cfg.Env, "extractor", cfg.ExtractorMode)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			_ = application.Shutdown(context.Background())
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down; draining research runs", "timeout", drainTimeout)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		logger.Warn("http shutdown", "err", err)
	}
	if err := application.Shutdown(drainCtx); err != nil {
		logger.Warn("research shutdown", "err", err)
	}
	return nil
}
