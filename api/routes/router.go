package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openshelf-labs/openshelf-backend/api/controllers"
	"github.com/openshelf-labs/openshelf-backend/api/middleware"
	"github.com/openshelf-labs/openshelf-backend/internal/analytics"
	"github.com/openshelf-labs/openshelf-backend/internal/auth"
	"github.com/openshelf-labs/openshelf-backend/internal/books"
	"github.com/openshelf-labs/openshelf-backend/internal/lending"
	"github.com/openshelf-labs/openshelf-backend/pkg/config"
	"github.com/openshelf-labs/openshelf-backend/pkg/logger"
	"github.com/openshelf-labs/openshelf-backend/pkg/metrics"
	"github.com/openshelf-labs/openshelf-backend/pkg/redis"
)

// RouterParams bundles everything the HTTP surface depends on. MetricsHandler
// and HTTPMetrics are optional, as is the Redis client.
type RouterParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DBPinger         controllers.Pinger
	RedisClient      *redis.Client
	HTTPMetrics      *metrics.HTTPMetrics
	MetricsHandler   http.Handler
	AuthService      auth.Service
	RegisterService  auth.RegisterService
	BooksService     books.Service
	LendingService   lending.Service
	AnalyticsService analytics.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(p.HTTPMetrics),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		0,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))

		var redisPinger controllers.Pinger
		if p.RedisClient != nil {
			redisPinger = p.RedisClient
		}
		r.Get("/ready", controllers.HealthReady(cfg, logg, controllers.ReadyDeps(p.DBPinger, redisPinger)))
	})

	if p.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", p.MetricsHandler)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(authRateLimit(loginPolicy, p.RedisClient, logg)).
			Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.With(authRateLimit(registerPolicy, p.RedisClient, logg)).
			Post("/register", controllers.AuthRegister(p.RegisterService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/books", func(r chi.Router) {
			r.Get("/", controllers.BooksList(p.BooksService, logg))
			r.Get("/{bookId}", controllers.BooksGet(p.BooksService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCatalogManager(logg))
				r.Post("/", controllers.BooksCreate(p.BooksService, logg))
				r.Put("/{bookId}", controllers.BooksUpdate(p.BooksService, logg))
				r.Delete("/{bookId}", controllers.BooksDelete(p.BooksService, logg))
			})
		})

		r.Route("/lending", func(r chi.Router) {
			r.Get("/", controllers.LendingList(p.LendingService, logg))
			r.Post("/lend", controllers.LendingLend(p.LendingService, logg))
			r.Post("/return/{recordId}", controllers.LendingReturn(p.LendingService, logg))
			r.Delete("/{recordId}", controllers.LendingDelete(p.LendingService, logg))
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/most-borrowed", controllers.AnalyticsMostBorrowed(p.AnalyticsService, logg))
			r.Get("/monthly-trends", controllers.AnalyticsMonthlyTrends(p.AnalyticsService, logg))
			r.Get("/category-distribution", controllers.AnalyticsCategoryDistribution(p.AnalyticsService, logg))
		})
	})

	return r
}

// authRateLimit skips throttling entirely when no Redis client is wired.
func authRateLimit(policy middleware.AuthRateLimitPolicy, store *redis.Client, logg *logger.Logger) func(http.Handler) http.Handler {
	if store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.AuthRateLimit(policy, store, logg)
}

// DefaultMetricsHandler exposes the prometheus registry over HTTP.
func DefaultMetricsHandler() http.Handler {
	return promhttp.Handler()
}
