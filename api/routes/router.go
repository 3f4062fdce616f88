package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/watchlist-backend/api/controllers"
	"github.com/angelmondragon/watchlist-backend/api/middleware"
	"github.com/angelmondragon/watchlist-backend/api/responses"
	"github.com/angelmondragon/watchlist-backend/internal/access"
	"github.com/angelmondragon/watchlist-backend/internal/admin"
	"github.com/angelmondragon/watchlist-backend/internal/auth"
	"github.com/angelmondragon/watchlist-backend/internal/movies"
	"github.com/angelmondragon/watchlist-backend/internal/public"
	"github.com/angelmondragon/watchlist-backend/pkg/config"
	"github.com/angelmondragon/watchlist-backend/pkg/db"
	"github.com/angelmondragon/watchlist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/watchlist-backend/pkg/errors"
	"github.com/angelmondragon/watchlist-backend/pkg/logger"
	"github.com/angelmondragon/watchlist-backend/pkg/metrics"
	"github.com/angelmondragon/watchlist-backend/pkg/redis"
)

// Deps is everything the HTTP surface needs. Redis and Registry are optional.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Guard    *access.Guard
	Metrics  *metrics.HTTPMetrics
	Registry prometheus.Gatherer

	Auth   auth.Service
	Movies movies.Service
	Admin  admin.Service
	Public public.Service
}

// route is one row of the endpoint table. Every endpoint declares its policy
// next to its handler so the guard chain is visible in one place.
type route struct {
	method    string
	pattern   string
	policy    access.Policy
	rateLimit *middleware.AuthRateLimitPolicy
	handler   http.HandlerFunc
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		chimw.RealIP,
		middleware.Logging(logg),
		middleware.Metrics(d.Metrics),
		middleware.CORS(cfg.CORS),
	)
	if cfg.HTTP.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.HTTP.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})

	// A typed nil *redis.Client must not reach the middleware as a non-nil interface.
	var limiter middleware.RateLimitStore
	pingers := map[string]db.Pinger{"database": d.DB}
	if d.Redis != nil {
		limiter = d.Redis
		pingers["redis"] = d.Redis
	}

	r.Get("/health/live", controllers.HealthLive(cfg))
	r.Get("/health/ready", controllers.HealthReady(cfg, logg, pingers))
	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	for _, rt := range table(d) {
		mws := make([]func(http.Handler) http.Handler, 0, 2)
		if rt.rateLimit != nil {
			mws = append(mws, middleware.AuthRateLimit(*rt.rateLimit, limiter, logg))
		}
		mws = append(mws, middleware.Guard(d.Guard, rt.policy, logg))
		r.With(mws...).Method(rt.method, rt.pattern, rt.handler)
	}

	return r
}

func table(d Deps) []route {
	cfg := d.Config
	logg := d.Logger

	login := middleware.NewAuthRateLimitPolicy("login", cfg.AuthRateLimit.LoginWindow, cfg.AuthRateLimit.LoginIPLimit, cfg.AuthRateLimit.LoginEmailLimit)
	register := middleware.NewAuthRateLimitPolicy("register", cfg.AuthRateLimit.RegisterWindow, cfg.AuthRateLimit.RegisterIPLimit, cfg.AuthRateLimit.RegisterEmailLimit)
	verify := middleware.NewAuthRateLimitPolicy("verify", cfg.AuthRateLimit.VerifyWindow, cfg.AuthRateLimit.VerifyIPLimit, cfg.AuthRateLimit.VerifyEmailLimit)

	open := access.Public()
	readOwn := access.RequirePermissions(enums.PermissionReadOwnMovies)
	ownMovie := access.OwnedBy(access.ResourceMovie)

	return []route{
		{http.MethodPost, "/auth/register", open, &register, controllers.AuthRegister(d.Auth, logg)},
		{http.MethodPost, "/auth/verify-email", open, &verify, controllers.AuthVerifyEmail(d.Auth, logg)},
		{http.MethodPost, "/auth/login", open, &login, controllers.AuthLogin(d.Auth, logg)},
		{http.MethodPost, "/auth/verify-login", open, &verify, controllers.AuthVerifyLogin(d.Auth, logg)},
		{http.MethodPost, "/auth/create-admin", open, &register, controllers.AuthCreateAdmin(d.Auth, logg)},
		{http.MethodGet, "/auth/me", access.Authenticated(), nil, controllers.AuthMe(d.Auth, logg)},

		{http.MethodPost, "/movies", access.RequirePermissions(enums.PermissionWriteOwnMovies), nil, controllers.MovieCreate(d.Movies, logg)},
		{http.MethodGet, "/movies", readOwn, nil, controllers.MovieList(d.Movies, logg)},
		{http.MethodGet, "/movies/stats", readOwn, nil, controllers.MovieStats(d.Movies, logg)},
		{http.MethodGet, "/movies/genres", readOwn, nil, controllers.MovieGenres(d.Movies, logg)},
		{http.MethodGet, "/movies/directors", readOwn, nil, controllers.MovieDirectors(d.Movies, logg)},
		{http.MethodGet, "/movies/search", readOwn, nil, controllers.MovieSearch(d.Movies, logg)},
		{http.MethodGet, "/movies/admin/all", access.AdminWith(enums.PermissionReadAllMovies), nil, controllers.MovieListAll(d.Movies, logg)},
		{http.MethodDelete, "/movies/admin/{id}/force", access.AdminWith(enums.PermissionDeleteAnyMovie), nil, controllers.MovieDelete(d.Movies, logg)},
		{http.MethodGet, "/movies/{id}", readOwn.Owning(ownMovie), nil, controllers.MovieGet(d.Movies, logg)},
		{http.MethodPatch, "/movies/{id}", access.RequirePermissions(enums.PermissionWriteOwnMovies).Owning(ownMovie), nil, controllers.MovieUpdate(d.Movies, logg)},
		{http.MethodDelete, "/movies/{id}", access.RequirePermissions(enums.PermissionDeleteOwnMovies).Owning(ownMovie), nil, controllers.MovieDelete(d.Movies, logg)},

		{http.MethodGet, "/admin/users", access.AdminWith(enums.PermissionReadAllMovies), nil, controllers.AdminListUsers(d.Admin, logg)},
		{http.MethodGet, "/admin/analytics", access.AdminWith(enums.PermissionViewAnalytics), nil, controllers.AdminAnalytics(d.Admin, logg)},
		{http.MethodPatch, "/admin/users/{id}/role", access.AdminWith(enums.PermissionManageUsers), nil, controllers.AdminChangeRole(d.Admin, logg)},
		{http.MethodDelete, "/admin/users/{id}", access.AdminWith(enums.PermissionDeleteUsers), nil, controllers.AdminDeleteUser(d.Admin, logg)},
		{http.MethodPost, "/admin/create-admin", access.AdminWith(enums.PermissionManageUsers), nil, controllers.AdminCreateAdmin(d.Admin, logg)},
		{http.MethodGet, "/admin/demo/admin-only", access.AdminWith(), nil, controllers.AdminProbe("admin role confirmed", logg)},
		{http.MethodGet, "/admin/demo/manage-users-permission", access.AdminWith(enums.PermissionManageUsers), nil, controllers.AdminProbe("MANAGE_USERS permission confirmed", logg)},
		{http.MethodGet, "/admin/demo/analytics-permission", access.AdminWith(enums.PermissionViewAnalytics), nil, controllers.AdminProbe("VIEW_ANALYTICS permission confirmed", logg)},

		{http.MethodGet, "/public/health", open, nil, controllers.PublicHealth(d.Public, logg)},
		{http.MethodGet, "/public/stats", open, nil, controllers.PublicStats(d.Public, logg)},
		{http.MethodGet, "/public/info", open, nil, controllers.PublicInfo(d.Public, logg)},
	}
}
