package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/atinyakov/GophChat/internal/middleware"
)

const (
	apiPrefix = "/api/v1"

	loginBurst = 5
)

// NewRouter constructs the HTTP handler of the chat API.
//
// Routes:
//
//	POST /api/v1/login             → authHandler.Login (rate limited)
//	POST /api/v1/users.register    → authHandler.Register (rate limited)
//	POST /api/v1/logout            → authHandler.Logout
//	POST /api/v1/push.token        → authHandler.PushToken
//	GET  /api/v1/permissions.listAll
//	GET  /api/v1/emoji-custom.list
//	GET  /api/v1/roles.list
//	GET  /api/v1/commands.list
//	GET  /api/v1/users.presence
//	GET  /metrics
//
// Every /api/v1 route but login and users.register requires the
// X-User-Id and X-Auth-Token headers.
func NewRouter(
	authHandler *AuthHandler,
	catalogHandler *CatalogHandler,
	metrics *middleware.Metrics,
	loginRate rate.Limit,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(metrics.Instrument)
	r.Use(middleware.WithRequestLogging(logger))

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route(apiPrefix, func(r chi.Router) {
		r.Use(chiMiddleware.AllowContentType("application/json"))
		r.Use(middleware.TokenAuth(authHandler.AuthService,
			apiPrefix+"/login",
			apiPrefix+"/users.register",
		))

		// Public endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(loginRate, loginBurst))
			r.Post("/login", authHandler.Login)
			r.Post("/users.register", authHandler.Register)
		})

		r.Post("/logout", authHandler.Logout)
		r.Post("/push.token", authHandler.PushToken)

		r.Get("/permissions.listAll", catalogHandler.Permissions)
		r.Get("/emoji-custom.list", catalogHandler.Emojis)
		r.Get("/roles.list", catalogHandler.Roles)
		r.Get("/commands.list", catalogHandler.Commands)
		r.Get("/users.presence", catalogHandler.Presence)
	})

	return r
}
