package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soledrop/soledrop-backend/api/controllers"
	"github.com/soledrop/soledrop-backend/api/middleware"
	"github.com/soledrop/soledrop-backend/internal/catalog"
	"github.com/soledrop/soledrop-backend/internal/listings"
	"github.com/soledrop/soledrop-backend/internal/media"
	"github.com/soledrop/soledrop-backend/internal/wishlist"
	"github.com/soledrop/soledrop-backend/pkg/config"
	"github.com/soledrop/soledrop-backend/pkg/logger"
	"github.com/soledrop/soledrop-backend/pkg/redis"
)

// Dependencies carries everything the HTTP surface is built from. Pingers and
// the idempotency store may be nil when the backing service is not configured.
type Dependencies struct {
	Config  *config.Config
	Logger  *logger.Logger
	Metrics prometheus.Gatherer

	Pingers          map[string]controllers.Pinger
	IdempotencyStore redis.IdempotencyStore

	Catalog  catalog.Service
	Listings listings.Service
	Wishlist wishlist.Service
	Media    media.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg, logg := deps.Config, deps.Logger
	uploads := controllers.UploadLimits{
		MaxBytes: cfg.Media.MaxUploadBytes(),
		MaxFiles: cfg.Media.MaxFiles,
	}
	gatherer := deps.Metrics
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Pingers, logg))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/listings", controllers.ListingsList(deps.Listings, logg))
		r.Get("/listings/{listingId}", controllers.ListingsGet(deps.Listings, logg))
		r.Get("/sizings", controllers.SizingsList(deps.Catalog, logg))

		r.Route("/wishlist", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Get("/", controllers.WishlistList(deps.Wishlist, logg))
			r.Put("/{listingId}", controllers.WishlistAdd(deps.Wishlist, logg))
			r.Delete("/{listingId}", controllers.WishlistRemove(deps.Wishlist, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireAdmin(logg))
		r.Use(middleware.Idempotency(deps.IdempotencyStore, middleware.IdempotencyOptions{
			TTL:          cfg.Redis.IdempotencyTTL,
			MaxBodyBytes: uploads.MaxBytes,
		}, logg))

		r.Route("/catalog", func(r chi.Router) {
			r.Post("/reconcile", controllers.AdminReconcile(deps.Catalog, uploads, logg))
			r.Post("/recount", controllers.AdminRecount(deps.Catalog, logg))
		})

		r.Route("/brands", func(r chi.Router) {
			r.Get("/", controllers.AdminBrandsList(deps.Catalog, logg))
			r.Post("/", controllers.AdminBrandsCreate(deps.Catalog, logg))
			r.Get("/{brandId}", controllers.AdminBrandsGet(deps.Catalog, logg))
			r.Patch("/{brandId}", controllers.AdminBrandsUpdate(deps.Catalog, logg))
			r.Delete("/{brandId}", controllers.AdminBrandsDelete(deps.Catalog, logg))
		})

		r.Route("/models", func(r chi.Router) {
			r.Get("/", controllers.AdminModelsList(deps.Catalog, logg))
			r.Post("/", controllers.AdminModelsCreate(deps.Catalog, logg))
			r.Get("/{modelId}", controllers.AdminModelsGet(deps.Catalog, logg))
			r.Patch("/{modelId}", controllers.AdminModelsUpdate(deps.Catalog, logg))
			r.Delete("/{modelId}", controllers.AdminModelsDelete(deps.Catalog, logg))
		})

		r.Route("/items", func(r chi.Router) {
			r.Get("/", controllers.AdminItemsList(deps.Catalog, logg))
			r.Post("/", controllers.AdminItemsCreate(deps.Catalog, logg))
			r.Get("/{itemId}", controllers.AdminItemsGet(deps.Catalog, logg))
			r.Patch("/{itemId}", controllers.AdminItemsUpdate(deps.Catalog, logg))
			r.Delete("/{itemId}", controllers.AdminItemsDelete(deps.Catalog, logg))
		})

		r.Route("/listings", func(r chi.Router) {
			r.Get("/", controllers.AdminListingsList(deps.Listings, logg))
			r.Post("/", controllers.AdminListingsCreate(deps.Catalog, logg))
			r.Route("/{listingId}", func(r chi.Router) {
				r.Get("/", controllers.AdminListingsGet(deps.Catalog, logg))
				r.Patch("/", controllers.AdminListingsUpdate(deps.Catalog, logg))
				r.Delete("/", controllers.AdminListingsDelete(deps.Catalog, logg))
				r.Delete("/variants/{sizingId}/{condition}", controllers.AdminVariantsDelete(deps.Catalog, logg))
				r.Post("/photos", controllers.AdminPhotosUpload(deps.Media, uploads, logg))
				r.Delete("/photos/{photoId}", controllers.AdminPhotosDelete(deps.Media, logg))
				r.Put("/photos/{photoId}/main", controllers.AdminPhotosSetMain(deps.Media, logg))
			})
		})
	})

	return r
}
