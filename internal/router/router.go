package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-directory-admin/internal/config"
	"go-directory-admin/internal/handler"
	"go-directory-admin/internal/middleware"
)

type Handlers struct {
	Auth  *handler.AuthHandler
	User  *handler.UserHandler
	Group *handler.GroupHandler
	Audit *handler.AuditHandler
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimitMiddleware.Handler)
	// Browser sessions carry the access token in a cookie; promote it to the
	// bearer header before any route or guard looks at the request.
	r.Use(middleware.CookieToHeader)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/auth", func(auth chi.Router) {
		auth.Use(middleware.Timeout(cfg.RequestTimeout))

		auth.Post("/", h.Auth.Authorize)
		auth.Get("/refresh", h.Auth.Refresh)
		auth.Post("/logout", h.Auth.Logout)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.With(authMiddleware.RequireAuth).Get("/me", h.User.Me)
		api.With(authMiddleware.RequireAdmin).Get("/users", h.User.List)
		api.With(authMiddleware.RequireAdmin).Get("/groups", h.Group.List)
		api.With(authMiddleware.RequireAdmin).Get("/audit", h.Audit.List)
	})

	return r
}
