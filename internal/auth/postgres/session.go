package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/school-admin/internal/auth"
	sessionDatamodel "github.com/frahmantamala/school-admin/internal/core/datamodel/session"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) auth.SessionRepositoryAPI {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, s *sessionDatamodel.Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*sessionDatamodel.Session, error) {
	var s sessionDatamodel.Session
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// GetByToken hits the unique index on sessions.token.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*sessionDatamodel.Session, error) {
	var s sessionDatamodel.Session
	err := r.db.WithContext(ctx).Where("token = ?", token).Take(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) DeactivateByToken(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Model(&sessionDatamodel.Session{}).
		Where("token = ?", token).
		Update("is_active", false).Error
}

func (r *SessionRepository) Deactivate(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&sessionDatamodel.Session{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

func (r *SessionRepository) ListActiveByUser(ctx context.Context, userID int64, now time.Time) ([]*sessionDatamodel.Session, error) {
	var sessions []*sessionDatamodel.Session
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ? AND expires_at > ?", userID, true, now).
		Order("created_at DESC, id DESC").
		Find(&sessions).Error
	return sessions, err
}

func (r *SessionRepository) DeleteStale(ctx context.Context, createdBefore, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at <= ? AND (is_active = ? OR expires_at <= ?)", createdBefore, false, now).
		Delete(&sessionDatamodel.Session{})
	return res.RowsAffected, res.Error
}
