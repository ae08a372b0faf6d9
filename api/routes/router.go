package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dvellmar/storeratings-backend/api/controllers"
	"github.com/dvellmar/storeratings-backend/api/middleware"
	"github.com/dvellmar/storeratings-backend/internal/admin"
	"github.com/dvellmar/storeratings-backend/internal/auth"
	"github.com/dvellmar/storeratings-backend/internal/media"
	"github.com/dvellmar/storeratings-backend/internal/ratings"
	"github.com/dvellmar/storeratings-backend/internal/stores"
	"github.com/dvellmar/storeratings-backend/internal/users"
	pkgauth "github.com/dvellmar/storeratings-backend/pkg/auth"
	"github.com/dvellmar/storeratings-backend/pkg/auth/session"
	"github.com/dvellmar/storeratings-backend/pkg/config"
	"github.com/dvellmar/storeratings-backend/pkg/enums"
	"github.com/dvellmar/storeratings-backend/pkg/logger"
	"github.com/dvellmar/storeratings-backend/pkg/metrics"
	"github.com/dvellmar/storeratings-backend/pkg/redis"
)

// Deps carries everything the router needs to assemble the HTTP surface.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Database    controllers.Pinger
	Redis       *redis.Client
	Tokens      *pkgauth.TokenManager
	Sessions    session.RevocationChecker
	UserLoader  middleware.UserLoader
	HTTPMetrics *metrics.HTTPMetrics

	AuthService   auth.Service
	UserService   users.Service
	StoreService  stores.Service
	RatingService ratings.Service
	MediaService  media.Service
	AdminService  admin.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.App.AllowedOrigins),
	)

	authn := middleware.Auth(deps.Tokens, deps.Sessions, deps.UserLoader, logg)
	maybeAuthn := middleware.OptionalAuth(deps.Tokens, deps.Sessions, deps.UserLoader, logg)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Database, deps.Redis))
	})

	if deps.HTTPMetrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.HTTPMetrics.Handler())
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.AuthService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.With(authn).Post("/logout", controllers.AuthLogout(deps.AuthService, logg))
		r.With(authn).Get("/me", controllers.AuthMe(deps.AuthService, logg))
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(authn)
		r.Get("/me", controllers.UserProfile(deps.UserService, logg))
		r.Put("/me", controllers.UserUpdateProfile(deps.UserService, logg))
		r.Put("/me/password", controllers.UserChangePassword(deps.UserService, logg))
		r.Get("/{userID}/ratings", controllers.UserRatings(deps.RatingService, logg))
	})

	r.Route("/api/v1/stores", func(r chi.Router) {
		r.With(maybeAuthn).Get("/", controllers.StoreList(deps.StoreService, logg))
		r.With(maybeAuthn).Get("/{storeID}", controllers.StoreGet(deps.StoreService, logg))
		r.Get("/{storeID}/ratings", controllers.StoreRatings(deps.RatingService, logg))
		r.With(authn).Put("/{storeID}", controllers.StoreUpdate(deps.StoreService, logg))

		r.Route("/{storeID}/media", func(r chi.Router) {
			r.Get("/", controllers.MediaList(deps.MediaService, logg))
			r.With(authn).Post("/", controllers.MediaUpload(deps.MediaService, cfg.Media, logg))
		})
	})

	r.Route("/api/v1/media", func(r chi.Router) {
		r.Use(authn)
		r.Delete("/{mediaID}", controllers.MediaDelete(deps.MediaService, logg))
	})

	r.Route("/api/v1/ratings", func(r chi.Router) {
		r.Use(authn)
		r.Post("/", controllers.RatingSubmit(deps.RatingService, logg))
		r.Put("/{ratingID}", controllers.RatingUpdate(deps.RatingService, logg))
		r.Delete("/{ratingID}", controllers.RatingDelete(deps.RatingService, logg))
	})

	r.Route("/api/v1/owner", func(r chi.Router) {
		r.Use(authn)
		r.Use(middleware.RequireRole(enums.RoleStoreOwner, logg))
		r.Get("/dashboard", controllers.OwnerDashboard(deps.StoreService, logg))
		r.Get("/ratings", controllers.OwnerRatings(deps.StoreService, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(authn)
		r.Use(middleware.RequireAdmin(logg))
		r.Get("/dashboard", controllers.AdminDashboard(deps.AdminService, logg))
		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.AdminListUsers(deps.AdminService, logg))
			r.Post("/", controllers.AdminCreateUser(deps.AdminService, logg))
			r.Put("/{userID}", controllers.AdminUpdateUser(deps.AdminService, logg))
			r.Put("/{userID}/role", controllers.AdminChangeRole(deps.AdminService, logg))
			r.Delete("/{userID}", controllers.AdminDeleteUser(deps.AdminService, logg))
		})
		r.Post("/stores", controllers.AdminCreateStore(deps.AdminService, logg))
	})

	return r
}
