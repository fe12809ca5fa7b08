// cmd/vantage/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/John-MustangGT/vantage/internal/config"
	"github.com/John-MustangGT/vantage/internal/database"
	"github.com/John-MustangGT/vantage/internal/database/sqlite"
	"github.com/John-MustangGT/vantage/internal/engine"
	"github.com/John-MustangGT/vantage/internal/metrics"
	"github.com/John-MustangGT/vantage/internal/web"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Configuration file path")
	version := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *version {
		info := web.CollectBuildInfo()
		fmt.Printf("Vantage %s\nBuild: %s (%s) %s\n", info.Version, info.GitCommit, info.BuildTime, info.GoVersion)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	setupLogging(cfg.Logging)

	logrus.WithFields(logrus.Fields{
		"config_file": *configFile,
		"port":        cfg.Server.Port,
		"workers":     cfg.Server.Workers,
		"database":    cfg.Database.Type,
	}).Info("Starting Vantage statistics service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize metrics
	metricsCollector := metrics.NewCollector(store)

	// Initialize statistics engine
	eng := engine.NewEngine(cfg, store, metricsCollector)
	if err := eng.SyncConfig(ctx); err != nil {
		logrus.Fatalf("Failed to sync config: %v", err)
	}

	// Initialize web server
	webServer := web.NewServer(cfg, eng, metricsCollector)
	if err := webServer.Start(ctx); err != nil {
		logrus.Fatalf("Failed to start web server: %v", err)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logrus.WithField("signal", sig).Info("Received shutdown signal")

	// Graceful shutdown
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := webServer.Stop(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Web server shutdown failed")
	}
	logrus.Info("Shutdown complete")
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (database.ExtendedStore, error) {
	if cfg.Type == "sqlite" {
		store, err := sqlite.New(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	store, err := database.NewExtendedBoltStore(cfg.Path)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}
