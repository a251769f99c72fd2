package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trendline-app/trendline/app/analysis"
	"github.com/trendline-app/trendline/app/api"
	"github.com/trendline-app/trendline/app/catalog"
	"github.com/trendline-app/trendline/app/cfg"
	"github.com/trendline-app/trendline/app/database"
	"github.com/trendline-app/trendline/app/feed"
	"github.com/trendline-app/trendline/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Trendline", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	if dirty {
		slog.Error("Database schema is dirty, manual intervention required", "version", version)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version)

	postRepo := database.NewPostRepo(db)
	topicRepo := database.NewTopicRepo(db)
	channelRepo := database.NewChannelRepo(db)

	httpClient := &http.Client{Timeout: time.Duration(appCfg.FetchTimeout) * time.Second}

	analysisClient := analysis.NewClient(appCfg.AnalysisURL, appCfg.UserAgent, httpClient)
	cat := catalog.NewCatalog(appCfg.SourceBaseURL, appCfg.UserAgent, httpClient, channelRepo)

	// Seed channels are only applied to an empty channel table; once the
	// live directory has been fetched they are never consulted again.
	if err := cat.ApplySeed(context.Background(), appCfg.ChannelsFile); err != nil {
		slog.Warn("Failed to apply channel seed", "file", appCfg.ChannelsFile, "error", err)
	}

	ingester := feed.NewIngester(db, postRepo, topicRepo, analysisClient, appCfg.RecencyHours)

	slog.Info("Starting scheduler", "workers", appCfg.WorkerCount, "interval", appCfg.SchedulerInterval)
	scheduler := tasks.NewScheduler(cat, channelRepo, postRepo, topicRepo, ingester,
		analysisClient, analysisClient, httpClient)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(db, postRepo, topicRepo, channelRepo, cat, scheduler)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
