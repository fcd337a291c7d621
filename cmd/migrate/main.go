package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/mkraft/subsync/internal/config"
	"github.com/mkraft/subsync/internal/domain"
	"github.com/mkraft/subsync/internal/logger"
	"github.com/mkraft/subsync/internal/repository"
	"github.com/mkraft/subsync/internal/service"
	"github.com/mkraft/subsync/internal/storage"
)

// One-shot migration run from the command line: submits the file as a job
// and polls the ledger until the run reaches a terminal state.
func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		ServiceName: "subsync-migrate",
	})
	logger.SetDefaultLogger(appLogger)

	filePath := flag.String("file", "", "Path to the CSV source file")
	startedBy := flag.String("started-by", "cli", "Identity recorded on the run")
	simulate := flag.Bool("simulate", false, "Compute outcomes without writing to the destination")
	seed := flag.Bool("seed", false, "Seed the legacy store with fixture records before running")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if *filePath == "" {
		appLogger.Fatal("-file is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to read source file")
	}

	ctx := context.Background()

	destStore := repository.NewRedisStore(&cfg.Redis)
	defer destStore.Close()
	if err := destStore.Ping(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to reach destination store")
	}

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
		repo := repository.NewSubscriberRepository(db)
		if *seed {
			if err := repo.Seed(ctx, repository.NewFixtureSource().Records()); err != nil {
				appLogger.WithError(err).Fatal("Failed to seed legacy store")
			}
			appLogger.Info("Seeded legacy store with fixture records")
		}
		sourceStore = repo
	default:
		appLogger.WithField("driver", cfg.Source.Driver).Fatal("Unknown source driver")
	}

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

	id, err := migrationService.StartJob(ctx, data, *startedBy, &service.StartOptions{Simulate: *simulate})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to start migration job")
	}
	appLogger.WithField("job_id", id).Info("Migration job started")

	for {
		time.Sleep(200 * time.Millisecond)
		view := migrationService.GetStatus(id)
		appLogger.WithFields(logger.Fields{
			"status":    view.Status,
			"total":     view.Total,
			"processed": view.Processed,
			"failed":    view.Failed,
			"percent":   view.ProgressPercent,
		}).Info("Progress")

		if view.Status.Terminal() {
			if view.Status == domain.JobStatusFailed {
				appLogger.WithField("error", view.Error).Error("Migration failed")
				os.Exit(1)
			}
			appLogger.WithField("status", view.Status).Info("Migration finished")
			return
		}
	}
}
