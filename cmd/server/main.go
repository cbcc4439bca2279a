package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"trade-journal-go/internal/api"
	"trade-journal-go/internal/backup"
	"trade-journal-go/internal/config"
	"trade-journal-go/internal/database"
	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/logger"

	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.", zap.String("dsn", cfg.Database.DSN))

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	book := journal.NewBook(database.NewKVStore(db), journal.NewNormalizer(cfg.Journal.ComputeROI), log)
	if err := book.Load(ctx); err != nil {
		log.Fatal("Failed to load journal", zap.Error(err))
	}

	server := api.NewServer(cfg.Server.Port, book, log)
	server.Start()

	snapshotsDone := make(chan struct{})
	if cfg.Backup.Enabled {
		snapshotter := backup.NewSnapshotter(book, cfg.Backup.Dir, cfg.Backup.Interval(), log)
		go func() {
			defer close(snapshotsDone)
			snapshotter.Run(ctx)
		}()
	} else {
		close(snapshotsDone)
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeoutDuration())
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("API server shutdown failed", zap.Error(err))
	}
	<-snapshotsDone

	log.Info("Journal server shut down.")
}
