package postgres

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	roleDatamodel "github.com/frahmantamala/school-admin/internal/core/datamodel/role"
	"github.com/frahmantamala/school-admin/internal/role"
)

type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

var _ role.RepositoryAPI = (*RoleRepository)(nil)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// List matches search against name and description, case-insensitively.
func (r *RoleRepository) List(ctx context.Context, search string, limit, offset int) ([]*roleDatamodel.Role, int64, error) {
	query := r.db.WithContext(ctx).Model(&roleDatamodel.Role{})
	if search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
		query = query.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var roles []*roleDatamodel.Role
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&roles).Error
	if err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

func (r *RoleRepository) GetByID(ctx context.Context, id int64) (*roleDatamodel.Role, error) {
	var m roleDatamodel.Role
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *RoleRepository) GetByName(ctx context.Context, name string) (*roleDatamodel.Role, error) {
	var m roleDatamodel.Role
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *RoleRepository) Create(ctx context.Context, m *roleDatamodel.Role) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *RoleRepository) Update(ctx context.Context, m *roleDatamodel.Role) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *RoleRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&roleDatamodel.Role{}, id).Error
}
