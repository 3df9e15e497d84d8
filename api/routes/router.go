package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hifravl/toolstock-backend/api/controllers"
	"github.com/hifravl/toolstock-backend/api/middleware"
	internalauth "github.com/hifravl/toolstock-backend/internal/auth"
	"github.com/hifravl/toolstock-backend/internal/catalog"
	"github.com/hifravl/toolstock-backend/internal/requests"
	"github.com/hifravl/toolstock-backend/internal/usage"
	"github.com/hifravl/toolstock-backend/internal/users"
	"github.com/hifravl/toolstock-backend/pkg/auth/session"
	"github.com/hifravl/toolstock-backend/pkg/config"
	"github.com/hifravl/toolstock-backend/pkg/db"
	"github.com/hifravl/toolstock-backend/pkg/enums"
	"github.com/hifravl/toolstock-backend/pkg/logger"
	"github.com/hifravl/toolstock-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Params bundles everything the router wires into handlers.
type Params struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              db.Pinger
	Redis           *redis.Client
	SessionManager  sessionManager
	AuthService     internalauth.Service
	RegisterService internalauth.RegisterService
	CatalogService  catalog.Service
	RequestService  requests.Service
	UsageService    usage.Service
	UsersRepo       *users.Repository
	MetricsGatherer prometheus.Gatherer
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

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
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	if p.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).Post("/register", controllers.AuthRegister(p.RegisterService, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.AuthService, logg))
		r.With(middleware.Auth(cfg.JWT, p.SessionManager, logg)).Post("/logout", controllers.AuthLogout(p.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.SessionManager, logg))

		r.Get("/ping", controllers.PrivatePing())
		r.Get("/users/me", controllers.UsersMe(p.UsersRepo, logg))

		r.Get("/catalog", controllers.CatalogView(p.CatalogService, logg))
		r.Route("/tools", func(r chi.Router) {
			r.Get("/", controllers.ToolsList(p.CatalogService, logg))
			r.Get("/{toolId}", controllers.ToolGet(p.CatalogService, logg))
		})

		r.Route("/requests", func(r chi.Router) {
			r.Post("/", controllers.RequestCreate(p.RequestService, logg))
			r.Get("/", controllers.RequestsListOwn(p.RequestService, logg))
		})

		r.Route("/usage", func(r chi.Router) {
			r.Post("/", controllers.UsageRecord(p.UsageService, logg))
			r.Get("/", controllers.UsageOwnHistory(p.UsageService, logg))
			r.Get("/tools/{toolId}/allowance", controllers.UsageAllowance(p.UsageService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.SessionManager, logg))
		r.Use(middleware.RequireRole(string(enums.RoleAdmin), logg))

		r.Get("/ping", controllers.AdminPing())
		r.Get("/users", controllers.AdminUsersList(p.UsersRepo, logg))

		r.Route("/tools", func(r chi.Router) {
			r.Post("/", controllers.ToolCreate(p.CatalogService, logg))
			r.Patch("/{toolId}", controllers.ToolUpdate(p.CatalogService, logg))
			r.Delete("/{toolId}", controllers.ToolDelete(p.CatalogService, logg))
			r.Get("/{toolId}/usage", controllers.AdminToolUsageHistory(p.UsageService, logg))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", controllers.CategoryCreate(p.CatalogService, logg))
			r.Patch("/{categoryId}", controllers.CategoryUpdate(p.CatalogService, logg))
			r.Delete("/{categoryId}", controllers.CategoryDelete(p.CatalogService, logg))
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Post("/import", controllers.CatalogImport(p.CatalogService, logg))
			r.Get("/export", controllers.CatalogExport(p.CatalogService, logg))
		})

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", controllers.AdminRequestsList(p.RequestService, logg))
			r.Post("/{requestId}/approve", controllers.AdminRequestApprove(p.RequestService, logg))
			r.Post("/{requestId}/reject", controllers.AdminRequestReject(p.RequestService, logg))
			r.Put("/{requestId}", controllers.AdminRequestEdit(p.RequestService, logg))
			r.Delete("/{requestId}", controllers.AdminRequestDelete(p.RequestService, logg))
		})
	})

	return r
}
