package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/httprate"

	"github.com/frahmantamala/school-admin/internal"
	"github.com/frahmantamala/school-admin/internal/audit"
	"github.com/frahmantamala/school-admin/internal/auth"
	"github.com/frahmantamala/school-admin/internal/metrics"
	"github.com/frahmantamala/school-admin/internal/permission"
	"github.com/frahmantamala/school-admin/internal/role"
	"github.com/frahmantamala/school-admin/internal/transport"
	"github.com/frahmantamala/school-admin/internal/transport/middleware"
	"github.com/frahmantamala/school-admin/internal/transport/swagger"
	"github.com/frahmantamala/school-admin/internal/user"
)

// Handlers bundles everything RegisterAllRoutes mounts. Nil handlers skip their routes.
type Handlers struct {
	Auth  *auth.Handler
	Gate  *auth.Gate
	Users *user.Handler
	Roles *role.Handler
	Audit *audit.Handler
	Spec  *swagger.Spec
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, cfg *internal.Config, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.RequestID)
	proxies, err := transport.ParseTrustedProxies(cfg.Server.TrustedProxyList())
	if err != nil {
		logger.Warn("ignoring trusted proxies", "error", err)
		proxies = nil
	}
	router.Use(middleware.ClientInfo(proxies))
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.CORS(cfg.Server.Origins()))
	router.Use(middleware.LoggingMiddleware(logger))
	if cfg.Observability.Metrics.Enabled {
		router.Use(middleware.Instrument)
		router.Handle(cfg.Observability.Metrics.Path, metrics.Handler())
	}

	// Serve OpenAPI spec at root (outside API prefix)
	if h.Spec != nil {
		router.Get("/openapi.yml", h.Spec.ServeHTTP)
		router.Handle("/swagger/*", swagger.Handler())
	}

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if h.Auth == nil {
			return
		}

		r.Route("/auth", func(ar chi.Router) {
			ar.With(loginLimiter(cfg.Security)...).Post("/login", h.Auth.Login)
			ar.Post("/logout", h.Auth.Logout)

			ar.Group(func(pr chi.Router) {
				pr.Use(h.Auth.AuthMiddleware)
				pr.Get("/me", h.Auth.Me)
				pr.Get("/sessions", h.Auth.ListSessions)
			})
		})

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			if h.Users != nil {
				pr.With(h.Gate.RequirePermission(permission.UserRead)).Get("/users/{id}", h.Users.GetUser)
				pr.With(h.Gate.RequirePermission(permission.UserUpdate)).Patch("/users/{id}/status", h.Users.UpdateStatus)
			}

			// Administrative routes gated on the configured admin roles
			pr.Group(func(admin chi.Router) {
				admin.Use(h.Gate.RequireRoles(cfg.Security.AdminRoles...))

				admin.Delete("/sessions/cleanup", h.Auth.CleanupSessions)
				admin.Delete("/sessions/{id}", h.Auth.TerminateSession)

				if h.Roles != nil {
					admin.Route("/roles", func(rr chi.Router) {
						rr.Get("/", h.Roles.ListRoles)
						rr.Post("/", h.Roles.CreateRole)
						rr.Get("/permissions/list", h.Roles.ListPermissions)
						rr.Post("/initialize", h.Roles.InitializeDefaults)
						rr.Post("/assign", h.Roles.AssignRole)
						rr.Post("/remove", h.Roles.UnassignRole)
						rr.Get("/{id}", h.Roles.GetRole)
						rr.Put("/{id}", h.Roles.UpdateRole)
						rr.Delete("/{id}", h.Roles.DeleteRole)
						rr.Patch("/{id}/toggle-status", h.Roles.ToggleStatus)
					})
				}

				if h.Audit != nil {
					admin.Route("/audit-logs", func(lr chi.Router) {
						lr.Get("/", h.Audit.ListLogs)
						lr.Get("/stats", h.Audit.GetStats)
						lr.Get("/export/{format}", h.Audit.Export)
						lr.Delete("/cleanup", h.Audit.Cleanup)
						lr.Get("/{id}", h.Audit.GetLog)
					})
				}
			})
		})
	})
}

// loginLimiter applies a per-IP budget to login attempts. A zero limit disables it.
func loginLimiter(sec internal.SecurityConfig) []func(http.Handler) http.Handler {
	if sec.LoginRateLimit <= 0 {
		return nil
	}
	return []func(http.Handler) http.Handler{
		httprate.LimitByIP(sec.LoginRateLimit, sec.LoginRateWindow),
	}
}
