package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/docsheet/internal/async"
	"github.com/joseph-ayodele/docsheet/internal/auth"
	"github.com/joseph-ayodele/docsheet/internal/common"
	"github.com/joseph-ayodele/docsheet/internal/export"
	"github.com/joseph-ayodele/docsheet/internal/llm/provider"
	"github.com/joseph-ayodele/docsheet/internal/server"
	"github.com/joseph-ayodele/docsheet/internal/session"
	"github.com/joseph-ayodele/docsheet/internal/sheets"
	"github.com/joseph-ayodele/docsheet/internal/workspace"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	extractor, err := provider.New(cfg.Vision, logger)
	if err != nil {
		logger.Error("failed to build vision client", "error", err)
		os.Exit(2)
	}

	tokens := auth.NewTokenManager(logger)
	if cfg.Sheets.AccessToken != "" {
		tokens.Set(cfg.Sheets.AccessToken)
	}
	flow := auth.NewFlow(auth.FlowConfig{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		RedirectURL:  cfg.OAuth.RedirectURL,
	}, tokens, logger)

	sheetsClient := sheets.NewClient(sheets.ClientConfig{
		BaseURL:   cfg.Sheets.BaseURL,
		RateLimit: cfg.Sheets.RateLimit,
	}, logger)

	ws := workspace.NewService(workspace.Deps{
		Store:     session.NewStore(logger),
		Extractor: extractor,
		Engine:    sheets.NewEngine(sheetsClient, logger),
		Tokens:    tokens,
		Flow:      flow,
		Exporter:  export.NewService(logger),
		Settings: workspace.SheetConfig{
			SpreadsheetID: cfg.Sheets.SpreadsheetID,
			ClientID:      cfg.OAuth.ClientID,
		},
	}, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
	)

	httpServer := server.NewServer(cfg.Server, ws, logger)
	go func() {
		if err := httpServer.Run(); err != nil {
			logger.Error("http serve error", "error", err)
			stop()
		}
	}()

	var health *server.HealthServer
	if cfg.Server.GRPCHealthAddr != "" {
		health = server.NewHealthServer(logger)
		go func() {
			if err := health.Serve(cfg.Server.GRPCHealthAddr); err != nil {
				logger.Error("grpc health serve error", "error", err)
			}
		}()
	}

	logger.Info("docsheet started", "provider", extractor.Name(), "http_addr", cfg.Server.HTTPAddr)
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if health != nil {
		health.Stop()
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	ws.Shutdown(shutdownCtx)
}
