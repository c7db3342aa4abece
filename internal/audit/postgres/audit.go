package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/school-admin/internal/audit"
	auditDatamodel "github.com/frahmantamala/school-admin/internal/core/datamodel/audit"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

var (
	_ audit.RepositoryAPI = (*AuditRepository)(nil)
	_ audit.Writer        = (*AuditRepository)(nil)
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

func (r *AuditRepository) Insert(ctx context.Context, entry *auditDatamodel.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *AuditRepository) base(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("audit_logs AS a").
		Joins("LEFT JOIN users u ON u.id = a.user_id")
}

func applyFilter(q *gorm.DB, f audit.Filter) *gorm.DB {
	if f.UserID != nil {
		q = q.Where("a.user_id = ?", *f.UserID)
	}
	if f.Action != "" {
		q = q.Where(`LOWER(a.action) LIKE ? ESCAPE '\'`, containsPattern(f.Action))
	}
	if f.ResourceType != "" {
		q = q.Where("a.resource_type = ?", f.ResourceType)
	}
	if f.ResourceID != "" {
		q = q.Where("a.resource_id = ?", f.ResourceID)
	}
	if f.StartDate != nil {
		q = q.Where("a.created_at >= ?", f.StartDate.UTC())
	}
	if f.EndDate != nil {
		q = q.Where("a.created_at <= ?", f.EndDate.UTC())
	}
	if f.Search != "" {
		p := containsPattern(f.Search)
		q = q.Where(`(LOWER(a.action) LIKE ? ESCAPE '\' OR LOWER(a.resource_type) LIKE ? ESCAPE '\' OR LOWER(COALESCE(a.resource_id, '')) LIKE ? ESCAPE '\' OR LOWER(COALESCE(a.ip_address, '')) LIKE ? ESCAPE '\')`,
			p, p, p, p)
	}
	return q
}

func (r *AuditRepository) Find(ctx context.Context, filter audit.Filter, limit, offset int) ([]*auditDatamodel.AuditLogView, int64, error) {
	var total int64
	if err := applyFilter(r.base(ctx), filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := applyFilter(r.base(ctx), filter).
		Select("a.*, u.name AS actor_name, u.username AS actor_username").
		Order("a.created_at DESC").
		Order("a.id DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}

	var rows []*auditDatamodel.AuditLogView
	if err := q.Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *AuditRepository) GetByID(ctx context.Context, id int64) (*auditDatamodel.AuditLogView, error) {
	var rows []*auditDatamodel.AuditLogView
	err := r.base(ctx).
		Select("a.*, u.name AS actor_name, u.username AS actor_username").
		Where("a.id = ?", id).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// DeleteBefore removes rows created at or before cutoff.
func (r *AuditRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at <= ?", cutoff.UTC()).Delete(&auditDatamodel.AuditLog{})
	return res.RowsAffected, res.Error
}
