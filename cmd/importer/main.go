package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/soledrop/soledrop-backend/internal/bootstrap"
	"github.com/soledrop/soledrop-backend/internal/catalog"
	"github.com/soledrop/soledrop-backend/internal/media"
	"github.com/soledrop/soledrop-backend/pkg/db"
	"github.com/soledrop/soledrop-backend/pkg/migrate"
	"github.com/soledrop/soledrop-backend/pkg/outbox"
	"github.com/soledrop/soledrop-backend/pkg/storage/gcs"
)

func main() {
	file := flag.String("file", "", "JSON-lines file of catalog records")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "missing -file")
		os.Exit(2)
	}

	cfg, logg, err := bootstrap.Load("importer")
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"file": *file})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap gcs", err)
		os.Exit(1)
	}
	defer gcsClient.Close()

	txOpts := db.TxOptionsFromConfig(cfg.Tx)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	mediaService, err := media.NewService(media.ServiceParams{
		Repo:      media.NewRepository(dbClient.DB()),
		Store:     gcsClient,
		Tx:        dbClient,
		TxOptions: txOpts,
		Outbox:    outboxService,
		Logger:    logg,
		Normalize: media.NormalizeOptions{
			MaxWidth:  cfg.Media.ImageMaxWidth,
			MaxHeight: cfg.Media.ImageMaxHeight,
			Quality:   cfg.Media.ImageQuality,
		},
		MaxFiles: cfg.Media.MaxFiles,
		MaxBytes: cfg.Media.MaxUploadBytes(),
	})
	if err != nil {
		logg.Error(ctx, "failed to create media service", err)
		os.Exit(1)
	}
	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Repo:      catalog.NewRepository(dbClient.DB()),
		Tx:        dbClient,
		TxOptions: txOpts,
		Media:     mediaService,
		Outbox:    outboxService,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create catalog service", err)
		os.Exit(1)
	}

	f, err := os.Open(*file)
	if err != nil {
		logg.Error(ctx, "failed to open input", err)
		os.Exit(1)
	}
	defer f.Close()

	importer, err := NewImporter(catalogService, filepath.Dir(*file), logg)
	if err != nil {
		logg.Error(ctx, "failed to create importer", err)
		os.Exit(1)
	}
	summary, runErr := importer.Run(ctx, f)
	logg.Info(logg.WithFields(ctx, map[string]any{
		"lines":           summary.Lines,
		"listing_created": summary.ListingCreated,
		"merged":          summary.Merged,
		"failed":          summary.Failed,
		"photos_attached": summary.PhotosAttached,
		"photos_failed":   summary.PhotosFailed,
	}), "import finished")
	if runErr != nil {
		logg.Error(ctx, "import aborted", runErr)
		os.Exit(1)
	}
	if summary.Failed > 0 {
		os.Exit(3)
	}
}
