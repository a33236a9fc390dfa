package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/alubilles/membership-api/internal/adapters/httpapi/oas"
	"github.com/alubilles/membership-api/internal/platform/logging"
	"github.com/alubilles/membership-api/internal/platform/metrics"
)

type RouterOptions struct {
	// AdminMiddleware authenticates /admin routes. Nil rejects every admin request.
	AdminMiddleware func(http.Handler) http.Handler
	// RegistrationLimiter throttles POST /registrations when set.
	RegistrationLimiter *RateLimiter
	Metrics             *metrics.Metrics
	Logger              *zap.Logger
}

// NewRouter constructs the API HTTP router with admin routes locked.
func NewRouter(si oas.ServerInterface) http.Handler {
	return NewRouterWithOptions(si, RouterOptions{})
}

// NewRouterWithOptions constructs the API HTTP router.
//
// This is a thin adapter: the oas layer binds parameters, and this package wires
// routes and middleware around a ServerInterface implementation.
func NewRouterWithOptions(si oas.ServerInterface, opts RouterOptions) http.Handler {
	m := metrics.OrNew(opts.Metrics)
	log := logging.OrNop(opts.Logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newObserveMiddleware(log, m))
	r.Use(middleware.Recoverer)

	// Infra endpoints, unauthenticated.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	adminMW := opts.AdminMiddleware
	if adminMW == nil {
		adminMW = denyAll
	}
	var regMW []oas.MiddlewareFunc
	if opts.RegistrationLimiter != nil {
		regMW = append(regMW, opts.RegistrationLimiter.Middleware)
	}

	_ = oas.HandlerWithOptions(si, oas.ChiServerOptions{
		BaseRouter:              r,
		RegistrationMiddlewares: regMW,
		AdminMiddlewares:        []oas.MiddlewareFunc{adminMW},
		ErrorHandlerFunc:        paramErrorHandler,
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeOASError(w, r, http.StatusNotFound, "NOT_FOUND", "no such route", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeOASError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})
	return r
}

func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeOASError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "admin authentication is not configured", nil)
	})
}
