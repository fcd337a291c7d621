package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkraft/subsync/internal/api"
	"github.com/mkraft/subsync/internal/api/handler"
	"github.com/mkraft/subsync/internal/config"
	"github.com/mkraft/subsync/internal/logger"
	"github.com/mkraft/subsync/internal/repository"
	"github.com/mkraft/subsync/internal/service"
	"github.com/mkraft/subsync/internal/storage"
)

func main() {
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.GetDefault().WithError(err).Fatal("Failed to load config")
	}

	appLogger := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "subsync-api",
		File:        logger.FileConfigFromEnv(),
	})
	logger.SetDefaultLogger(appLogger)

	ctx := context.Background()

	// Destination key-value store
	destStore := repository.NewRedisStore(&cfg.Redis)
	defer destStore.Close()
	if err := destStore.Ping(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to reach destination store")
	}

	// Source system: real legacy store, or fixtures when explicitly selected
	var sourceStore service.SourceStore
	switch cfg.Source.Driver {
	case "fixture":
		appLogger.Warn("Source driver is 'fixture': serving canned records, not the legacy store")
		sourceStore = repository.NewFixtureSource()
	case "database":
		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize legacy store")
		}
		sourceStore = repository.NewSubscriberRepository(db)
	default:
		appLogger.WithField("driver", cfg.Source.Driver).Fatal("Unknown source driver")
	}

	// Object storage for staged uploads and run reports
	objectStorage, err := storage.NewS3Storage(&storage.S3Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}
	if err := objectStorage.EnsureBucket(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
	}

	ledger := service.NewLedger()
	resolver := service.NewResolver(sourceStore, destStore, cfg.Migration.IOTimeout)
	migrationService := service.NewMigrationService(ledger, resolver, objectStorage, appLogger, &service.MigrationConfig{
		RowDelay:     cfg.Migration.RowDelay,
		UploadPrefix: cfg.Migration.UploadPrefix,
		ReportPrefix: cfg.Migration.ReportPrefix,
	})

	fetcher := service.NewFileFetcher(cfg.Migration.FetchTimeout, cfg.Migration.MaxUploadBytes)
	jobHandler := handler.NewJobHandler(migrationService, fetcher, cfg.Migration.MaxUploadBytes)
	subscriberHandler := handler.NewSubscriberHandler(sourceStore, destStore)

	router := api.SetupRouter(jobHandler, subscriberHandler, &cfg.Server)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
