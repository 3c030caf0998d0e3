package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/questcraft/rewards-cms/api/controllers"
	"github.com/questcraft/rewards-cms/api/middleware"
	"github.com/questcraft/rewards-cms/internal/auth"
	"github.com/questcraft/rewards-cms/internal/collections"
	"github.com/questcraft/rewards-cms/internal/dashboard"
	"github.com/questcraft/rewards-cms/internal/manifest"
	"github.com/questcraft/rewards-cms/internal/rewards"
	"github.com/questcraft/rewards-cms/internal/tags"
	"github.com/questcraft/rewards-cms/internal/uploads"
	"github.com/questcraft/rewards-cms/pkg/auth/session"
	"github.com/questcraft/rewards-cms/pkg/config"
	"github.com/questcraft/rewards-cms/pkg/logger"
	"github.com/questcraft/rewards-cms/pkg/metrics"
	pkgredis "github.com/questcraft/rewards-cms/pkg/redis"
)

// Dependencies carries everything the HTTP surface is built from. Nil
// pingers are skipped by the readiness probe; a nil Auth service disables
// Google sign-in.
type Dependencies struct {
	DBPinger    controllers.Pinger
	RedisPinger controllers.Pinger
	DrivePinger controllers.Pinger

	Redis          *pkgredis.Client
	Sessions       session.AccessSessionChecker
	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler

	Auth        auth.Service
	Collections collections.Service
	Rewards     rewards.Service
	Tags        tags.Service
	Uploads     uploads.Service
	Drive       controllers.DriveBrowser
	Manifest    manifest.Service
	Dashboard   dashboard.Service
}

var publicManifestPaths = []string{"/manifest", "/manifest/v1", "/api/v1/manifest"}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.Logging(logg),
		middleware.SplitCORS(cfg.CORS.AllowedOrigins, publicManifestPaths...),
	)

	authPolicy := middleware.NewAuthRateLimitPolicy("google", cfg.AuthRateLimit.Window, cfg.AuthRateLimit.IPLimit)
	// a nil *Client must not reach the middleware as a non-nil interface
	var (
		rateStore interface {
			IncrWithTTL(context.Context, string, time.Duration) (int64, error)
		}
		idempotencyStore pkgredis.IdempotencyStore
	)
	if deps.Redis != nil {
		rateStore = deps.Redis
		idempotencyStore = deps.Redis
	}
	manifestLimiter := middleware.NewPublicRateLimiter(cfg.Manifest.RatePerSecond, cfg.Manifest.Burst)
	publicLimit := manifestLimiter.Middleware(logg)
	maxUpload := cfg.Media.MaxUploadBytes()

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": deps.DBPinger,
			"redis":    deps.RedisPinger,
			"drive":    deps.DrivePinger,
		}))
	})
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.With(publicLimit).Get("/manifest", controllers.Manifest(deps.Manifest, logg))
	r.With(publicLimit).Get("/manifest/v1", controllers.LegacyManifest(deps.Manifest, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.With(publicLimit).Get("/manifest", controllers.Manifest(deps.Manifest, logg))

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.AuthRateLimit(authPolicy, rateStore, logg))
				r.Get("/google/login", controllers.AuthGoogleLogin(deps.Auth, logg))
				r.Get("/google/callback", controllers.AuthGoogleCallback(deps.Auth, logg))
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
				r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
				r.Get("/me", controllers.AuthMe(deps.Auth, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			r.Use(middleware.Idempotency(idempotencyStore, logg))

			r.Route("/collections", func(r chi.Router) {
				r.Get("/", controllers.ListCollections(deps.Collections, logg))
				r.Post("/", controllers.CreateCollection(deps.Collections, logg))
				r.Get("/{id}", controllers.GetCollection(deps.Collections, logg))
				r.Patch("/{id}", controllers.UpdateCollection(deps.Collections, logg))
				r.Delete("/{id}", controllers.DeleteCollection(deps.Collections, logg))
			})

			r.Route("/rewards", func(r chi.Router) {
				r.Get("/", controllers.ListRewards(deps.Rewards, logg))
				r.Post("/", controllers.CreateReward(deps.Rewards, logg))
				r.Post("/upload", controllers.UploadReward(deps.Uploads, maxUpload, logg))
				r.Get("/{id}", controllers.GetReward(deps.Rewards, logg))
				r.Patch("/{id}", controllers.UpdateReward(deps.Rewards, logg))
				r.Put("/{id}/tags", controllers.SetRewardTags(deps.Rewards, logg))
				r.Delete("/{id}", controllers.DeleteReward(deps.Rewards, logg))
			})

			r.Route("/tags", func(r chi.Router) {
				r.Get("/", controllers.ListTags(deps.Tags, logg))
				r.Post("/", controllers.CreateTag(deps.Tags, logg))
				r.Patch("/{id}", controllers.UpdateTag(deps.Tags, logg))
				r.Delete("/{id}", controllers.DeleteTag(deps.Tags, logg))
			})

			r.Post("/upload", controllers.UploadFile(deps.Uploads, maxUpload, logg))

			r.Route("/google-drive", func(r chi.Router) {
				r.Get("/files", controllers.ListDriveFiles(deps.Drive, logg))
				r.Get("/folders", controllers.ListDriveFolders(deps.Drive, logg))
				r.Delete("/files/{fileId}", controllers.DeleteDriveFile(deps.Drive, logg))
			})

			r.Post("/manifest/publish", controllers.PublishManifest(deps.Manifest, logg))
			r.Get("/manifest/download", controllers.DownloadManifest(deps.Manifest, cfg.Manifest.FileName, logg))

			r.Get("/dashboard/stats", controllers.DashboardStats(deps.Dashboard, logg))
			r.Get("/dashboard/recent", controllers.DashboardRecent(deps.Dashboard, logg))
			r.Get("/icons", controllers.ListIcons())
		})
	})

	return r
}
