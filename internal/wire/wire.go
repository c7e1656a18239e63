package wire

import (
	"net/http"

	"marketplace-api/internal/adaptor"
	"marketplace-api/internal/data/repository"
	"marketplace-api/internal/usecase"
	"marketplace-api/pkg/middleware"
	"marketplace-api/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Deps are the long-lived collaborators built by the caller. DB may be nil
// when the memory store is in use.
type Deps struct {
	Repo       *repository.Repository
	DB         adaptor.Pinger
	Config     *utils.Config
	Logger     *zap.Logger
	Extensions usecase.Extensions
	Limiter    *middleware.IPRateLimiter
}

// App menyimpan semua dependencies
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
	Limiter *middleware.IPRateLimiter
}

// Wiring menginisialisasi semua dependencies
func Wiring(deps Deps) *App {
	if deps.Limiter == nil {
		deps.Limiter = middleware.NewIPRateLimiter(deps.Config.RateLimit.RPS, deps.Config.RateLimit.Burst)
	}

	service := usecase.NewService(deps.Repo, deps.Config, deps.Logger, deps.Extensions)
	handler := adaptor.NewHandler(service, deps.Logger)

	return &App{
		Router:  setupRouter(handler, service, deps),
		Service: service,
		Limiter: deps.Limiter,
	}
}

// setupRouter konfigurasi Chi router
func setupRouter(handler *adaptor.Handler, service *usecase.Service, deps Deps) *chi.Mux {
	r := chi.NewRouter()
	m := deps.Extensions.Metrics

	// Apply global middleware
	r.Use(chimw.RequestID)
	if deps.Config.App.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Recover(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Metrics(m))
	r.Use(middleware.CORS(deps.Config.CORS))

	authn := middleware.Authenticate(service.Auth, deps.Logger)
	limit := middleware.RateLimit(deps.Limiter, deps.Logger)

	r.Route("/api/auth", func(r chi.Router) {
		wireAuth(r, handler.Auth, authn, limit)
		wireUser(r, handler.User, authn)
	})
	if handler.Product != nil {
		wireProduct(r, handler.Product, authn)
	} else {
		deps.Logger.Warn("Product routes disabled, store has no product repository")
	}

	r.Get("/health", adaptor.Health(deps.DB, deps.Logger))
	r.Method(http.MethodGet, "/metrics", m.Handler())

	return r
}
