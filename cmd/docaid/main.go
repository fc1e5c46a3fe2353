// docaid serves the document extraction pipeline over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/aakashr02/Metaforms-task/internal/common"
	"github.com/aakashr02/Metaforms-task/internal/export"
	"github.com/aakashr02/Metaforms-task/internal/extract"
	"github.com/aakashr02/Metaforms-task/internal/llm/openai"
	"github.com/aakashr02/Metaforms-task/internal/pipeline"
	"github.com/aakashr02/Metaforms-task/internal/repository"
	"github.com/aakashr02/Metaforms-task/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("opening database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(db, logger)

	if err := repository.HealthCheck(ctx, db, 3*time.Second, logger); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}
	if err := repository.Migrate(ctx, db); err != nil {
		logger.Error("migrating database", "error", err)
		os.Exit(1)
	}

	jobs := repository.NewExtractionJobRepository(db, logger)
	extractor := extract.NewExtractor(logger)
	client := openai.NewClient(openai.Config{
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout,
	}, logger)
	processor := pipeline.NewProcessor(logger, extractor, client, jobs)
	exporter := export.NewService(jobs, logger)

	svc := server.NewService(logger, processor, jobs, exporter, cfg.LLM)
	httpSrv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: svc.Routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown", "error", err)
		}
	}()

	logger.Info("http serving", "addr", cfg.Server.HTTPAddr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
