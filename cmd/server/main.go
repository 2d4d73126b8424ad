package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"wasterescue/internal/app"
	"wasterescue/internal/config"
	"wasterescue/internal/handler"
	"wasterescue/internal/logging"
	"wasterescue/internal/router"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(cfg.Log, os.Stderr)
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	// Initialize handlers
	var healthH *handler.HealthHandler
	if a.DB != nil {
		healthH = handler.NewHealthHandler(a.DB)
	} else {
		healthH = handler.NewHealthHandler(nil)
	}
	r := router.Setup(a.Tokens, router.Handlers{
		Health: healthH,
		Review: handler.NewReviewHandler(a.Reviews, logger),
		Batch:  handler.NewBatchHandler(a.Orchestrator, cfg.Queue.BatchSize, logger),
	}, cfg.CORS.AllowedOrigins, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var wg sync.WaitGroup
	if cfg.Queue.RunnerEnabled {
		runner := a.StartRunner(ctx)
		wg.Add(1)
		go func() {
			defer wg.Done()
			runner.RunForever(ctx, cfg.Queue.PollInterval(), cfg.Queue.BatchSize)
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Server.Port, "store", cfg.Store.Backend, "review", cfg.Review.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			stop()
			wg.Wait()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	wg.Wait()
	logger.Info("shutdown complete")
	return nil
}
