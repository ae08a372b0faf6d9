package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/dvellmar/storeratings-backend/api/routes"
	"github.com/dvellmar/storeratings-backend/internal/admin"
	"github.com/dvellmar/storeratings-backend/internal/auth"
	"github.com/dvellmar/storeratings-backend/internal/media"
	"github.com/dvellmar/storeratings-backend/internal/ratings"
	"github.com/dvellmar/storeratings-backend/internal/stores"
	"github.com/dvellmar/storeratings-backend/internal/users"
	pkgauth "github.com/dvellmar/storeratings-backend/pkg/auth"
	"github.com/dvellmar/storeratings-backend/pkg/auth/session"
	"github.com/dvellmar/storeratings-backend/pkg/config"
	"github.com/dvellmar/storeratings-backend/pkg/db"
	"github.com/dvellmar/storeratings-backend/pkg/logger"
	"github.com/dvellmar/storeratings-backend/pkg/metrics"
	"github.com/dvellmar/storeratings-backend/pkg/migrate"
	"github.com/dvellmar/storeratings-backend/pkg/redis"
	"github.com/dvellmar/storeratings-backend/pkg/storage/gcs"
)

const shutdownGrace = 15 * time.Second

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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap object storage", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	tokenManager := pkgauth.NewTokenManager(cfg.JWT)
	userRepo := users.NewRepository(dbClient.DB())
	storeRepo := stores.NewRepository(dbClient.DB())
	ratingRepo := ratings.NewRepository(dbClient.DB())
	mediaRepo := media.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		TokenManager:   tokenManager,
		SessionManager: sessionManager,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	userService, err := users.NewService(users.ServiceParams{
		UserRepo:       userRepo,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}

	storeService, err := stores.NewService(stores.ServiceParams{
		StoreRepo: storeRepo,
		UserRepo:  userRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create store service", err)
		os.Exit(1)
	}

	ratingService, err := ratings.NewService(ratings.ServiceParams{
		RatingRepo: ratingRepo,
		StoreRepo:  storeRepo,
		TxRunner:   dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create rating service", err)
		os.Exit(1)
	}

	mediaService, err := media.NewService(media.ServiceParams{
		MediaRepo:   mediaRepo,
		StoreRepo:   storeRepo,
		ObjectStore: gcsClient,
		MediaConfig: cfg.Media,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create media service", err)
		os.Exit(1)
	}

	adminService, err := admin.NewService(admin.ServiceParams{
		DB:             dbClient,
		ObjectStore:    gcsClient,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create admin service", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		Database:    dbClient,
		Redis:       redisClient,
		Tokens:      tokenManager,
		Sessions:    sessionManager,
		UserLoader:  userRepo,
		HTTPMetrics: metrics.NewHTTPMetrics(),

		AuthService:   authService,
		UserService:   userService,
		StoreService:  storeService,
		RatingService: ratingService,
		MediaService:  mediaService,
		AdminService:  adminService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
	logg.Info(ctx, "api server stopped")
}
