package role

import (
	"time"

	"github.com/frahmantamala/school-admin/internal/core/common/pagination"
	"github.com/frahmantamala/school-admin/internal/user"
)

type CreateRoleDTO struct {
	Name        string   `json:"name" validate:"required,max=50"`
	Description string   `json:"description" validate:"max=255"`
	Permissions []string `json:"permissions" validate:"required"`
}

// UpdateRoleDTO fields left nil are not changed.
type UpdateRoleDTO struct {
	Name        *string   `json:"name" validate:"omitempty,min=1,max=50"`
	Description *string   `json:"description" validate:"omitempty,max=255"`
	Permissions *[]string `json:"permissions"`
}

type AssignRoleDTO struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
	RoleID int64 `json:"role_id" validate:"required,gt=0"`
}

type UnassignRoleDTO struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

type ListParams struct {
	Search string
	Page   int
	Limit  int
}

type RoleResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ListResult struct {
	Roles      []RoleResponse  `json:"roles"`
	Pagination pagination.Meta `json:"pagination"`
}

type PermissionsResponse struct {
	Categories  map[string][]string `json:"categories"`
	Permissions []string            `json:"permissions"`
}

type InitializeResult struct {
	Created []RoleResponse `json:"created"`
}

type AssignmentResponse struct {
	User user.UserResponse `json:"user"`
}
