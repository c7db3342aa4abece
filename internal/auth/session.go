package auth

import (
	"context"
	"time"

	"github.com/frahmantamala/school-admin/internal"
	sessionDatamodel "github.com/frahmantamala/school-admin/internal/core/datamodel/session"
)

// DefaultSessionTTL is the fixed lifetime of a login session.
const DefaultSessionTTL = 24 * time.Hour

// SessionStore owns session rows. Sessions are only soft-invalidated here;
// rows are removed solely by Cleanup.
type SessionStore struct {
	repo SessionRepositoryAPI
	ttl  time.Duration
	now  func() time.Time
}

func NewSessionStore(repo SessionRepositoryAPI, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		repo: repo,
		ttl:  ttl,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source.
func (s *SessionStore) WithClock(now func() time.Time) *SessionStore {
	s.now = now
	return s
}

func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

func (s *SessionStore) Now() time.Time {
	return s.now()
}

// CreateSession inserts an active row expiring ttl from now.
func (s *SessionStore) CreateSession(ctx context.Context, userID int64, token, clientIP, userAgent string) (*Session, error) {
	return s.createSession(ctx, userID, token, clientIP, userAgent, s.now().Add(s.ttl))
}

func (s *SessionStore) createSession(ctx context.Context, userID int64, token, clientIP, userAgent string, expiresAt time.Time) (*Session, error) {
	row := &sessionDatamodel.Session{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		IPAddress: clientIP,
		UserAgent: userAgent,
		IsActive:  true,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, internal.NewInternalError("failed to create session", err)
	}
	return sessionFromDataModel(row), nil
}

// Invalidate deactivates the session holding token. Unknown or already inactive tokens are not an error;
// the returned session is nil when nothing was active.
func (s *SessionStore) Invalidate(ctx context.Context, token string) (*Session, error) {
	row, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, internal.NewInternalError("failed to load session", err)
	}
	if row == nil || !row.IsActive {
		return nil, nil
	}
	if err := s.repo.DeactivateByToken(ctx, token); err != nil {
		return nil, internal.NewInternalError("failed to invalidate session", err)
	}
	sess := sessionFromDataModel(row)
	sess.IsActive = false
	return sess, nil
}

// Live returns the session for token, or nil if it is absent, inactive or expired.
func (s *SessionStore) Live(ctx context.Context, token string) (*Session, error) {
	row, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, internal.NewInternalError("failed to load session", err)
	}
	sess := sessionFromDataModel(row)
	if sess == nil || !sess.IsLive(s.now()) {
		return nil, nil
	}
	return sess, nil
}

func (s *SessionStore) ListActive(ctx context.Context, userID int64) ([]*Session, error) {
	rows, err := s.repo.ListActiveByUser(ctx, userID, s.now())
	if err != nil {
		return nil, internal.NewInternalError("failed to list sessions", err)
	}
	out := make([]*Session, 0, len(rows))
	for _, row := range rows {
		out = append(out, sessionFromDataModel(row))
	}
	return out, nil
}

// Terminate deactivates a session by id and returns its state before the change.
func (s *SessionStore) Terminate(ctx context.Context, id int64) (*Session, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load session", err)
	}
	if row == nil {
		return nil, internal.ErrSessionNotFound
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return nil, internal.NewInternalError("failed to terminate session", err)
	}
	return sessionFromDataModel(row), nil
}

// Cleanup removes inactive or expired sessions created at least olderThanDays ago.
func (s *SessionStore) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	if olderThanDays < 1 {
		return 0, internal.NewValidationFieldError("olderThan", "olderThan must be at least 1 day", internal.ErrCodeValidationFailed)
	}
	now := s.now()
	cutoff := now.AddDate(0, 0, -olderThanDays)
	n, err := s.repo.DeleteStale(ctx, cutoff, now)
	if err != nil {
		return 0, internal.NewInternalError("failed to clean up sessions", err)
	}
	return n, nil
}
