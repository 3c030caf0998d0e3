package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/questcraft/rewards-cms/api/routes"
	"github.com/questcraft/rewards-cms/internal/auth"
	"github.com/questcraft/rewards-cms/internal/collections"
	"github.com/questcraft/rewards-cms/internal/dashboard"
	"github.com/questcraft/rewards-cms/internal/manifest"
	"github.com/questcraft/rewards-cms/internal/rewards"
	"github.com/questcraft/rewards-cms/internal/tags"
	"github.com/questcraft/rewards-cms/internal/uploads"
	"github.com/questcraft/rewards-cms/pkg/auth/session"
	"github.com/questcraft/rewards-cms/pkg/config"
	"github.com/questcraft/rewards-cms/pkg/db"
	"github.com/questcraft/rewards-cms/pkg/logger"
	"github.com/questcraft/rewards-cms/pkg/metrics"
	"github.com/questcraft/rewards-cms/pkg/migrate"
	"github.com/questcraft/rewards-cms/pkg/redis"
	"github.com/questcraft/rewards-cms/pkg/storage/drive"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	gateway, err := drive.New(cfg.Drive, logg, metrics.NewDriveMetrics(registry))
	if err != nil {
		logg.Error(ctx, "failed to create drive gateway", err)
		os.Exit(1)
	}

	var (
		provider  *auth.GoogleProvider
		refresher session.Refresher
	)
	if cfg.GoogleOAuth.Enabled() {
		provider, err = auth.NewGoogleProvider(cfg.GoogleOAuth, cfg.App.PublicURL, auth.GoogleProviderOptions{})
		if err != nil {
			logg.Error(ctx, "failed to create google provider", err)
			os.Exit(1)
		}
		refresher = provider
	} else {
		logg.Warn(ctx, "google oauth not configured, sign-in disabled")
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT, cfg.GoogleOAuth, refresher, logg)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	var authService auth.Service
	if provider != nil {
		authService, err = auth.NewService(auth.ServiceParams{
			Provider:       provider,
			States:         redisClient,
			SessionManager: sessionManager,
			JWTConfig:      cfg.JWT,
			OAuthConfig:    cfg.GoogleOAuth,
			Logger:         logg,
		})
		if err != nil {
			logg.Error(ctx, "failed to create auth service", err)
			os.Exit(1)
		}
	}

	conn := dbClient.DB()
	collectionsRepo := collections.NewRepository(conn)
	rewardsRepo := rewards.NewRepository(conn)
	tagsRepo := tags.NewRepository(conn)

	collectionsService, err := collections.NewService(collectionsRepo)
	requireService(ctx, logg, "collections", err)
	tagsService, err := tags.NewService(tagsRepo)
	requireService(ctx, logg, "tags", err)
	rewardsService, err := rewards.NewService(rewardsRepo, collectionsRepo, tagsRepo)
	requireService(ctx, logg, "rewards", err)
	dashboardService, err := dashboard.NewService(rewardsRepo, collectionsRepo, tagsRepo)
	requireService(ctx, logg, "dashboard", err)
	manifestService, err := manifest.NewService(collectionsRepo, rewardsRepo, tagsRepo, gateway, manifest.Options{
		FileName: cfg.Manifest.FileName,
		Metrics:  metrics.NewManifestMetrics(registry),
		Logger:   logg,
	})
	requireService(ctx, logg, "manifest", err)
	uploadsService, err := uploads.NewService(gateway, rewardsService, uploads.Options{
		MaxBytes:          cfg.Media.MaxUploadBytes(),
		DefaultFolderName: cfg.Media.DefaultFolderName,
		ThumbnailSize:     cfg.Media.ThumbnailSize,
		Logger:            logg,
	})
	requireService(ctx, logg, "uploads", err)

	handler := routes.NewRouter(cfg, logg, routes.Dependencies{
		DBPinger:       dbClient,
		RedisPinger:    redisClient,
		DrivePinger:    gateway,
		Redis:          redisClient,
		Sessions:       sessionManager,
		HTTPMetrics:    metrics.NewHTTPMetrics(registry),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Auth:           authService,
		Collections:    collectionsService,
		Rewards:        rewardsService,
		Tags:           tagsService,
		Uploads:        uploadsService,
		Drive:          gateway,
		Manifest:       manifestService,
		Dashboard:      dashboardService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "graceful shutdown failed", err)
		}
	}
}

func requireService(ctx context.Context, logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(ctx, "service", name), "failed to create service", err)
	os.Exit(1)
}
