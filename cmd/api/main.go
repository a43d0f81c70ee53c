package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/huangjulu/camping-gear/internal/app"
	"github.com/huangjulu/camping-gear/internal/config"
	"github.com/huangjulu/camping-gear/internal/export"
	"github.com/huangjulu/camping-gear/internal/history"
	"github.com/huangjulu/camping-gear/internal/notify"
	"github.com/huangjulu/camping-gear/internal/search"
	"github.com/huangjulu/camping-gear/internal/store"
	"github.com/huangjulu/camping-gear/pkg/logging"
)

func main() {
	logging.Setup()
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	dataStore := store.NewPostgresStore(db)

	historyService := history.New(cfg.HistoryDir)
	if err := historyService.Ensure(); err != nil {
		slog.Error("history repo init failed", "error", err)
		os.Exit(1)
	}

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		slog.Info("search: using Meilisearch with SQL fallback", "url", cfg.MeiliURL)
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	} else {
		slog.Info("search: Meilisearch disabled, using SQL fallback")
	}
	searchService := search.NewService(meiliClient, search.NewSQLFallback(db))

	var broker notify.Broker
	if strings.TrimSpace(cfg.RedisURL) != "" {
		slog.Info("notify: using Redis change feed", "url", cfg.RedisURL)
		redisBroker, err := notify.NewRedisBroker(cfg.RedisURL)
		if err != nil {
			slog.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		defer redisBroker.Close()
		broker = redisBroker
	} else {
		slog.Info("notify: using in-process change feed")
		memBroker := notify.NewMemoryBroker()
		defer memBroker.Close()
		broker = memBroker
	}

	var service *app.Service
	if strings.TrimSpace(cfg.S3Endpoint) != "" {
		slog.Info("export: archiving artifacts to object storage", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
		archive, err := export.NewArchive(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3UseSSL)
		if err != nil {
			slog.Error("object store connection failed", "error", err)
			os.Exit(1)
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			slog.Error("archive bucket init failed", "error", err)
			os.Exit(1)
		}
		service = app.NewWithArchive(cfg, dataStore, broker, searchService, export.NewService(), historyService, archive)
	} else {
		service = app.New(cfg, dataStore, broker, searchService, export.NewService(), historyService)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	// No WriteTimeout: /api/events holds the response open indefinitely.
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("gear sheet API listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
