package user

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/school-admin/internal/core/common/validation"
	coreuser "github.com/frahmantamala/school-admin/internal/core/user"
	"github.com/frahmantamala/school-admin/internal/transport"
)

type ServiceAPI interface {
	GetByID(ctx context.Context, id int64) (*coreuser.User, error)
	SetActive(ctx context.Context, id int64, active bool) (*coreuser.User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

// GetUser handles GET /users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := transport.PathInt64(chi.URLParam(r, "id"), "id")
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	u, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ToResponse(u))
}

// UpdateStatus handles PATCH /users/{id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := transport.PathInt64(chi.URLParam(r, "id"), "id")
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	var dto UpdateStatusDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteError(w, r, err)
		return
	}
	if appErr := validation.Struct(dto); appErr != nil {
		h.WriteError(w, r, appErr)
		return
	}

	u, err := h.Service.SetActive(r.Context(), id, *dto.IsActive)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ToResponse(u))
}
