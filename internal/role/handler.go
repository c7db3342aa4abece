package role

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/school-admin/internal/core/common/pagination"
	coreuser "github.com/frahmantamala/school-admin/internal/core/user"
	"github.com/frahmantamala/school-admin/internal/transport"
	"github.com/frahmantamala/school-admin/internal/user"
)

type ServiceAPI interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Get(ctx context.Context, id int64) (*Role, error)
	Permissions() PermissionsResponse
	Create(ctx context.Context, dto CreateRoleDTO) (*Role, error)
	Update(ctx context.Context, id int64, dto UpdateRoleDTO) (*Role, error)
	Delete(ctx context.Context, id int64) error
	ToggleActive(ctx context.Context, id int64) (*Role, error)
	InitializeDefaults(ctx context.Context) ([]*Role, error)
	AssignRole(ctx context.Context, dto AssignRoleDTO) (*coreuser.User, error)
	UnassignRole(ctx context.Context, dto UnassignRoleDTO) (*coreuser.User, error)
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

// ListRoles handles GET /roles?search=&page=&limit=
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	params := ListParams{
		Search: r.URL.Query().Get("search"),
		Page:   transport.QueryInt(r, "page", 1),
		Limit:  transport.QueryInt(r, "limit", pagination.DefaultLimit),
	}

	result, err := h.Service.List(r.Context(), params)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

// ListPermissions handles GET /roles/permissions/list
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, h.Service.Permissions())
}

func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	id, err := transport.PathInt64(chi.URLParam(r, "id"), "id")
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	role, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, role.ToResponse())
}

func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var dto CreateRoleDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteError(w, r, err)
		return
	}

	role, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, role.ToResponse())
}

func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := transport.PathInt64(chi.URLParam(r, "id"), "id")
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	var dto UpdateRoleDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteError(w, r, err)
		return
	}

	role, err := h.Service.Update(r.Context(), id, dto)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, role.ToResponse())
}

func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := transport.PathInt64(chi.URLParam(r, "id"), "id")
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "Role deleted successfully"})
}

// ToggleStatus handles PATCH /roles/{id}/toggle-status
func (h *Handler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := transport.PathInt64(chi.URLParam(r, "id"), "id")
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	role, err := h.Service.ToggleActive(r.Context(), id)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, role.ToResponse())
}

// InitializeDefaults handles POST /roles/initialize
func (h *Handler) InitializeDefaults(w http.ResponseWriter, r *http.Request) {
	created, err := h.Service.InitializeDefaults(r.Context())
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	out := InitializeResult{Created: make([]RoleResponse, 0, len(created))}
	for _, role := range created {
		out.Created = append(out.Created, role.ToResponse())
	}
	h.WriteJSON(w, http.StatusOK, out)
}

// AssignRole handles POST /roles/assign
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	var dto AssignRoleDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteError(w, r, err)
		return
	}

	u, err := h.Service.AssignRole(r.Context(), dto)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, AssignmentResponse{User: user.ToResponse(u)})
}

// UnassignRole handles POST /roles/remove
func (h *Handler) UnassignRole(w http.ResponseWriter, r *http.Request) {
	var dto UnassignRoleDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteError(w, r, err)
		return
	}

	u, err := h.Service.UnassignRole(r.Context(), dto)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, AssignmentResponse{User: user.ToResponse(u)})
}
