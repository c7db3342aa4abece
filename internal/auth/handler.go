package auth

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/school-admin/internal"
	"github.com/frahmantamala/school-admin/internal/transport"
)

type ServiceAPI interface {
	Login(ctx context.Context, dto LoginDTO) (*LoginResult, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, authorization string) (*internal.Identity, error)
	ListSessions(ctx context.Context, userID int64) ([]*Session, error)
	TerminateSession(ctx context.Context, id int64) error
	CleanupSessions(ctx context.Context, olderThanDays int) (*CleanupResult, error)
}

type Handler struct {
	*transport.BaseHandler
	Service              ServiceAPI
	DefaultRetentionDays int
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI, defaultRetentionDays int) *Handler {
	return &Handler{
		BaseHandler:          baseHandler,
		Service:              svc,
		DefaultRetentionDays: defaultRetentionDays,
	}
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteError(w, r, err)
		return
	}

	result, err := h.Service.Login(r.Context(), dto)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// Logout handles POST /auth/logout. The token does not need to be live.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := transport.ExtractTokenFromHeader(r)
	if token == "" {
		h.WriteError(w, r, internal.ErrAuthenticationRequired)
		return
	}

	if err := h.Service.Logout(r.Context(), token); err != nil {
		h.WriteError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Me handles GET /auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, r, internal.ErrAuthenticationRequired)
		return
	}
	h.WriteJSON(w, http.StatusOK, identity)
}

// ListSessions handles GET /auth/sessions
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	identity, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, r, internal.ErrAuthenticationRequired)
		return
	}

	sessions, err := h.Service.ListSessions(r.Context(), identity.ID)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// TerminateSession handles DELETE /sessions/{id}
func (h *Handler) TerminateSession(w http.ResponseWriter, r *http.Request) {
	id, err := transport.PathInt64(chi.URLParam(r, "id"), "id")
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	if err := h.Service.TerminateSession(r.Context(), id); err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "Session terminated"})
}

// CleanupSessions handles DELETE /sessions/cleanup?olderThan=N
func (h *Handler) CleanupSessions(w http.ResponseWriter, r *http.Request) {
	days, err := transport.QueryIntStrict(r, "olderThan", h.DefaultRetentionDays)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	result, err := h.Service.CleanupSessions(r.Context(), days)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

// AuthMiddleware rejects the request unless the bearer token maps to a live session of an active user.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := h.Service.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			h.WriteError(w, r, err)
			return
		}

		ctx := internal.ContextWithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
