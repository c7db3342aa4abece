package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/school-admin/internal"
	"github.com/frahmantamala/school-admin/internal/core/events"
	"github.com/frahmantamala/school-admin/internal/metrics"
	"github.com/frahmantamala/school-admin/internal/transport"
)

const (
	ActionUnauthorizedAccess = "unauthorized_access"
	RouteResourceType        = "route"
)

// Gate enforces role allow-lists and permission membership. It must run after AuthMiddleware,
// and every denial is audited.
type Gate struct {
	*transport.BaseHandler
	roles     RoleLookup
	publisher events.Publisher
}

func NewGate(roles RoleLookup, publisher events.Publisher, logger *slog.Logger) *Gate {
	return &Gate{
		BaseHandler: transport.NewBaseHandler(logger),
		roles:       roles,
		publisher:   publisher,
	}
}

// RequireRoles admits callers whose role name is in allowed.
func (g *Gate) RequireRoles(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := internal.IdentityFromContext(r.Context())
			if !ok {
				g.WriteError(w, r, internal.ErrAuthenticationRequired)
				return
			}

			if _, ok := set[identity.Role]; !ok {
				g.deny(w, r, identity, "role", map[string]interface{}{
					"required_roles": allowed,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission admits callers whose active role grants permission.
func (g *Gate) RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := internal.IdentityFromContext(r.Context())
			if !ok {
				g.WriteError(w, r, internal.ErrAuthenticationRequired)
				return
			}

			allowed, err := g.HasPermission(r.Context(), identity, permission)
			if err != nil {
				g.Logger.ErrorContext(r.Context(), "permission lookup failed, denying",
					"user_id", identity.ID, "role", identity.Role, "error", err)
			}
			if !allowed {
				g.deny(w, r, identity, "permission", map[string]interface{}{
					"required_permission": permission,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// HasPermission fails closed: a missing, inactive or unreadable role grants nothing.
func (g *Gate) HasPermission(ctx context.Context, identity *internal.Identity, permission string) (bool, error) {
	if identity == nil || identity.Role == "" {
		return false, nil
	}
	role, err := g.roles.GetByName(ctx, identity.Role)
	if err != nil {
		return false, err
	}
	if role == nil || !role.IsActive {
		return false, nil
	}
	for _, p := range role.Permissions {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}

func (g *Gate) deny(w http.ResponseWriter, r *http.Request, identity *internal.Identity, gate string, required map[string]interface{}) {
	ctx := r.Context()
	metrics.AuthzDeniedTotal.WithLabelValues(gate).Inc()

	attempt := map[string]interface{}{
		"path":   r.URL.Path,
		"method": r.Method,
		"role":   identity.Role,
	}
	for k, v := range required {
		attempt[k] = v
	}

	g.publisher.Notify(ctx, events.NewAuditEvent(ctx, ActionUnauthorizedAccess, RouteResourceType,
		events.StringResourceID(r.URL.Path), nil, attempt))

	g.Logger.WarnContext(ctx, "access denied",
		"user_id", identity.ID,
		"role", identity.Role,
		"gate", gate,
		"path", r.URL.Path)

	g.WriteError(w, r, internal.ErrInsufficientPermission)
}
