package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/soledrop/soledrop-backend/api/controllers"
	"github.com/soledrop/soledrop-backend/api/routes"
	"github.com/soledrop/soledrop-backend/internal/bootstrap"
	"github.com/soledrop/soledrop-backend/internal/catalog"
	"github.com/soledrop/soledrop-backend/internal/listings"
	"github.com/soledrop/soledrop-backend/internal/media"
	"github.com/soledrop/soledrop-backend/internal/wishlist"
	"github.com/soledrop/soledrop-backend/pkg/db"
	"github.com/soledrop/soledrop-backend/pkg/metrics"
	"github.com/soledrop/soledrop-backend/pkg/migrate"
	"github.com/soledrop/soledrop-backend/pkg/outbox"
	"github.com/soledrop/soledrop-backend/pkg/redis"
	"github.com/soledrop/soledrop-backend/pkg/storage/gcs"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, logg, err := bootstrap.Load("api")
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	pingers := map[string]controllers.Pinger{"db": dbClient}
	var idempotencyStore redis.IdempotencyStore
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		idempotencyStore = redisClient
		pingers["redis"] = redisClient
	} else {
		logg.Warn(context.Background(), "redis not configured, admin idempotency disabled")
	}

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap gcs", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing gcs", err)
		}
	}()
	pingers["gcs"] = gcsClient

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	catalogMetrics := metrics.NewCatalogMetrics(promRegistry)

	txOpts := db.TxOptionsFromConfig(cfg.Tx)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	mediaService, err := media.NewService(media.ServiceParams{
		Repo:      media.NewRepository(dbClient.DB()),
		Store:     gcsClient,
		Tx:        dbClient,
		TxOptions: txOpts,
		Outbox:    outboxService,
		Metrics:   catalogMetrics,
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
		logg.Error(context.Background(), "failed to create media service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Repo:      catalog.NewRepository(dbClient.DB()),
		Tx:        dbClient,
		TxOptions: txOpts,
		Media:     mediaService,
		Outbox:    outboxService,
		Metrics:   catalogMetrics,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	listingService, err := listings.NewService(listings.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create listing service", err)
		os.Exit(1)
	}

	wishlistService, err := wishlist.NewService(wishlist.ServiceParams{
		Repo:      wishlist.NewRepository(dbClient.DB()),
		Tx:        dbClient,
		TxOptions: txOpts,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create wishlist service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:           cfg,
			Logger:           logg,
			Metrics:          promRegistry,
			Pingers:          pingers,
			IdempotencyStore: idempotencyStore,
			Catalog:          catalogService,
			Listings:         listingService,
			Wishlist:         wishlistService,
			Media:            mediaService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}
