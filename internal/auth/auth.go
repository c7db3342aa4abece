package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frahmantamala/school-admin/internal"
	roleDatamodel "github.com/frahmantamala/school-admin/internal/core/datamodel/role"
	sessionDatamodel "github.com/frahmantamala/school-admin/internal/core/datamodel/session"
	userDatamodel "github.com/frahmantamala/school-admin/internal/core/datamodel/user"
)

const SessionResourceType = "session"

// UserRepository is the slice of the user store the auth flow reads.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error)
}

type SessionRepositoryAPI interface {
	Create(ctx context.Context, s *sessionDatamodel.Session) error
	GetByID(ctx context.Context, id int64) (*sessionDatamodel.Session, error)
	GetByToken(ctx context.Context, token string) (*sessionDatamodel.Session, error)
	DeactivateByToken(ctx context.Context, token string) error
	Deactivate(ctx context.Context, id int64) error
	ListActiveByUser(ctx context.Context, userID int64, now time.Time) ([]*sessionDatamodel.Session, error)
	DeleteStale(ctx context.Context, createdBefore, now time.Time) (int64, error)
}

// RoleLookup resolves a user's role name to its persisted definition.
type RoleLookup interface {
	GetByName(ctx context.Context, name string) (*roleDatamodel.Role, error)
}

type TokenSigner interface {
	Sign(userID int64, issuedAt, expiresAt time.Time) (string, error)
	Parse(token string) (*Claims, error)
}

// Claims carries the session owner in Subject and a random jti; the session row remains the source of truth.
type Claims struct {
	jwt.RegisteredClaims
}

type Session struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// IsLive is the session half of the validity rule; the owning user must also be active.
func (s *Session) IsLive(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}

func (s *Session) snapshot() map[string]interface{} {
	return map[string]interface{}{
		"id":         s.ID,
		"user_id":    s.UserID,
		"expires_at": s.ExpiresAt,
		"ip_address": s.IPAddress,
		"user_agent": s.UserAgent,
		"is_active":  s.IsActive,
	}
}

func sessionFromDataModel(m *sessionDatamodel.Session) *Session {
	if m == nil {
		return nil
	}
	return &Session{
		ID:        m.ID,
		UserID:    m.UserID,
		Token:     m.Token,
		ExpiresAt: m.ExpiresAt,
		IPAddress: m.IPAddress,
		UserAgent: m.UserAgent,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
	}
}

type LoginResult struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expires_at"`
	User      *internal.Identity `json:"user"`
}

type CleanupResult struct {
	DeletedCount  int64 `json:"deleted_count"`
	OlderThanDays int   `json:"older_than_days"`
}
