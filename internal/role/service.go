package role

import (
	"context"
	"log/slog"
	"strings"

	"github.com/frahmantamala/school-admin/internal"
	"github.com/frahmantamala/school-admin/internal/core/common/pagination"
	"github.com/frahmantamala/school-admin/internal/core/common/validation"
	roleDatamodel "github.com/frahmantamala/school-admin/internal/core/datamodel/role"
	userDatamodel "github.com/frahmantamala/school-admin/internal/core/datamodel/user"
	"github.com/frahmantamala/school-admin/internal/core/events"
	coreuser "github.com/frahmantamala/school-admin/internal/core/user"
	"github.com/frahmantamala/school-admin/internal/permission"
	"github.com/frahmantamala/school-admin/internal/user"
)

type RepositoryAPI interface {
	List(ctx context.Context, search string, limit, offset int) ([]*roleDatamodel.Role, int64, error)
	GetByID(ctx context.Context, id int64) (*roleDatamodel.Role, error)
	GetByName(ctx context.Context, name string) (*roleDatamodel.Role, error)
	Create(ctx context.Context, r *roleDatamodel.Role) error
	Update(ctx context.Context, r *roleDatamodel.Role) error
	Delete(ctx context.Context, id int64) error
}

// UserRepository is the slice of the user store role assignment writes to.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	UpdateRole(ctx context.Context, id int64, role string) error
}

type Service struct {
	repo        RepositoryAPI
	users       UserRepository
	publisher   events.Publisher
	defaultRole string
	logger      *slog.Logger
}

func NewService(repo RepositoryAPI, users UserRepository, publisher events.Publisher, defaultRole string, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		users:       users,
		publisher:   publisher,
		defaultRole: defaultRole,
		logger:      logger,
	}
}

func (s *Service) audit(ctx context.Context, action, resourceType string, id int64, oldValues, newValues interface{}) {
	s.publisher.Notify(ctx, events.NewAuditEvent(ctx, action, resourceType, events.ResourceID(id), oldValues, newValues))
}

func (s *Service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	page, limit := pagination.Normalize(params.Page, params.Limit)

	rows, total, err := s.repo.List(ctx, strings.TrimSpace(params.Search), limit, pagination.Offset(page, limit))
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list roles", "error", err)
		return nil, internal.NewInternalError("failed to list roles", err)
	}

	roles := make([]RoleResponse, 0, len(rows))
	for _, row := range rows {
		roles = append(roles, FromDataModel(row).ToResponse())
	}

	return &ListResult{
		Roles:      roles,
		Pagination: pagination.NewMeta(page, limit, total),
	}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Role, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load role", err)
	}
	if row == nil {
		return nil, internal.ErrRoleNotFound
	}
	return FromDataModel(row), nil
}

func (s *Service) Permissions() PermissionsResponse {
	return PermissionsResponse{
		Categories:  permission.Categories(),
		Permissions: permission.All(),
	}
}

func (s *Service) ensureNameFree(ctx context.Context, name string) error {
	existing, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return internal.NewInternalError("failed to check role name", err)
	}
	if existing != nil {
		return internal.ErrDuplicateName
	}
	return nil
}

func checkPermissions(perms []string) error {
	if bad := permission.Invalid(perms); len(bad) > 0 {
		return internal.NewInvalidPermissionSetError(bad)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, dto CreateRoleDTO) (*Role, error) {
	dto.Name = strings.TrimSpace(dto.Name)
	if appErr := validation.Struct(dto); appErr != nil {
		return nil, appErr
	}
	if err := checkPermissions(dto.Permissions); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, dto.Name); err != nil {
		return nil, err
	}

	row := &roleDatamodel.Role{
		Name:        dto.Name,
		Description: dto.Description,
		Permissions: permission.Normalize(dto.Permissions),
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		// a concurrent insert can win the unique index between the check and the write
		if again := s.ensureNameFree(ctx, dto.Name); again != nil {
			return nil, again
		}
		s.logger.ErrorContext(ctx, "failed to create role", "name", dto.Name, "error", err)
		return nil, internal.NewInternalError("failed to create role", err)
	}

	created := FromDataModel(row)
	s.audit(ctx, "create", ResourceType, created.ID, nil, created.Snapshot())
	s.logger.InfoContext(ctx, "role created", "role_id", created.ID, "name", created.Name)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, dto UpdateRoleDTO) (*Role, error) {
	v := validation.NewValidator()
	if dto.Name != nil {
		trimmed := strings.TrimSpace(*dto.Name)
		dto.Name = &trimmed
		v.Field("name", trimmed).Required().MaxLength(50)
	}
	if dto.Description != nil {
		v.Field("description", *dto.Description).MaxLength(255)
	}
	if dto.Permissions != nil {
		v.Field("permissions", *dto.Permissions).Required().Custom(func(value interface{}) *internal.AppError {
			if err := checkPermissions(value.([]string)); err != nil {
				appErr, _ := internal.IsAppError(err)
				return appErr
			}
			return nil
		})
	}
	if appErr := v.Validate(); appErr != nil {
		return nil, appErr
	}

	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load role", err)
	}
	if row == nil {
		return nil, internal.ErrRoleNotFound
	}
	before := FromDataModel(row).Snapshot()

	if dto.Name != nil && *dto.Name != row.Name {
		if err := s.ensureNameFree(ctx, *dto.Name); err != nil {
			return nil, err
		}
		row.Name = *dto.Name
	}
	if dto.Description != nil {
		row.Description = *dto.Description
	}
	if dto.Permissions != nil {
		row.Permissions = permission.Normalize(*dto.Permissions)
	}

	if err := s.repo.Update(ctx, row); err != nil {
		if dto.Name != nil {
			// another writer can take the name between the check and the save
			if taken, lookupErr := s.repo.GetByName(ctx, row.Name); lookupErr == nil && taken != nil && taken.ID != id {
				return nil, internal.ErrDuplicateName
			}
		}
		s.logger.ErrorContext(ctx, "failed to update role", "role_id", id, "error", err)
		return nil, internal.NewInternalError("failed to update role", err)
	}

	updated := FromDataModel(row)
	s.audit(ctx, "update", ResourceType, id, before, updated.Snapshot())
	return updated, nil
}

// Delete removes the row permanently. Users still holding the role name keep it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete role", "role_id", id, "error", err)
		return internal.NewInternalError("failed to delete role", err)
	}

	s.audit(ctx, "delete", ResourceType, id, existing.Snapshot(), map[string]interface{}{
		"id":      id,
		"name":    existing.Name,
		"deleted": true,
	})
	s.logger.InfoContext(ctx, "role deleted", "role_id", id, "name", existing.Name)
	return nil
}

func (s *Service) ToggleActive(ctx context.Context, id int64) (*Role, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load role", err)
	}
	if row == nil {
		return nil, internal.ErrRoleNotFound
	}
	before := FromDataModel(row).Snapshot()

	row.IsActive = !row.IsActive
	if err := s.repo.Update(ctx, row); err != nil {
		return nil, internal.NewInternalError("failed to update role status", err)
	}

	toggled := FromDataModel(row)
	s.audit(ctx, "toggle_status", ResourceType, id, before, toggled.Snapshot())
	return toggled, nil
}

// InitializeDefaults creates each registry template whose name is not taken yet.
func (s *Service) InitializeDefaults(ctx context.Context) ([]*Role, error) {
	var created []*Role
	for _, tpl := range permission.DefaultRoleTemplates() {
		existing, err := s.repo.GetByName(ctx, tpl.Name)
		if err != nil {
			return created, internal.NewInternalError("failed to check role name", err)
		}
		if existing != nil {
			continue
		}

		row := &roleDatamodel.Role{
			Name:        tpl.Name,
			Description: tpl.Description,
			Permissions: permission.Normalize(tpl.Permissions),
			IsActive:    true,
		}
		if err := s.repo.Create(ctx, row); err != nil {
			return created, internal.NewInternalError("failed to create default role", err)
		}
		created = append(created, FromDataModel(row))
	}

	if len(created) > 0 {
		names := make([]string, len(created))
		for i, r := range created {
			names[i] = r.Name
		}
		s.publisher.Notify(ctx, events.NewAuditEvent(ctx, "initialize_defaults", ResourceType, nil, nil,
			map[string]interface{}{"created": names}))
		s.logger.InfoContext(ctx, "default roles initialized", "created", names)
	}
	return created, nil
}

func (s *Service) loadUser(ctx context.Context, id int64) (*coreuser.User, error) {
	row, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if row == nil {
		return nil, internal.ErrUserNotFound
	}
	return user.FromDataModel(row), nil
}

// AssignRole copies the role's name onto the user. Later renames of the role do not follow.
func (s *Service) AssignRole(ctx context.Context, dto AssignRoleDTO) (*coreuser.User, error) {
	if appErr := validation.Struct(dto); appErr != nil {
		return nil, appErr
	}

	u, err := s.loadUser(ctx, dto.UserID)
	if err != nil {
		return nil, err
	}
	r, err := s.Get(ctx, dto.RoleID)
	if err != nil {
		return nil, err
	}
	if !u.CanBeAssignedRole() {
		return nil, internal.ErrUserNotEligible
	}

	if err := s.users.UpdateRole(ctx, u.ID, r.Name); err != nil {
		return nil, internal.NewInternalError("failed to assign role", err)
	}

	previous := u.Role
	u.Role = r.Name
	s.audit(ctx, "assign_role", user.ResourceType, u.ID,
		map[string]interface{}{"role": previous},
		map[string]interface{}{"role": r.Name, "role_id": r.ID})
	s.logger.InfoContext(ctx, "role assigned", "user_id", u.ID, "role", r.Name)
	return u, nil
}

func (s *Service) UnassignRole(ctx context.Context, dto UnassignRoleDTO) (*coreuser.User, error) {
	if appErr := validation.Struct(dto); appErr != nil {
		return nil, appErr
	}

	u, err := s.loadUser(ctx, dto.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateRole(ctx, u.ID, s.defaultRole); err != nil {
		return nil, internal.NewInternalError("failed to remove role", err)
	}

	previous := u.Role
	u.Role = s.defaultRole
	s.audit(ctx, "unassign_role", user.ResourceType, u.ID,
		map[string]interface{}{"role": previous},
		map[string]interface{}{"role": s.defaultRole})
	return u, nil
}
