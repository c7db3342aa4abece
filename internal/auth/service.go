package auth

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/frahmantamala/school-admin/internal"
	"github.com/frahmantamala/school-admin/internal/core/common/validation"
	"github.com/frahmantamala/school-admin/internal/core/events"
	"github.com/frahmantamala/school-admin/internal/metrics"
)

type Service struct {
	verifier  *Verifier
	sessions  *SessionStore
	signer    TokenSigner
	users     UserRepository
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(verifier *Verifier, sessions *SessionStore, signer TokenSigner, users UserRepository, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		verifier:  verifier,
		sessions:  sessions,
		signer:    signer,
		users:     users,
		publisher: publisher,
		logger:    logger,
	}
}

// Login verifies credentials and issues a session token.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (*LoginResult, error) {
	if appErr := validation.Struct(dto); appErr != nil {
		return nil, appErr
	}

	u, err := s.verifier.Verify(ctx, dto.Username, dto.Password)
	if err != nil {
		metrics.LoginTotal.WithLabelValues("invalid_credentials").Inc()
		s.logger.WarnContext(ctx, "login rejected", "reason", "invalid_credentials")
		return nil, err
	}
	if !u.IsActive {
		metrics.LoginTotal.WithLabelValues("inactive").Inc()
		return nil, internal.ErrUserInactive
	}
	if !u.IsApproved {
		metrics.LoginTotal.WithLabelValues("not_approved").Inc()
		return nil, internal.ErrUserNotApproved
	}

	now := s.sessions.Now()
	expiresAt := now.Add(s.sessions.TTL())
	token, err := s.signer.Sign(u.ID, now, expiresAt)
	if err != nil {
		return nil, internal.NewInternalError("failed to issue token", err)
	}

	client := internal.ClientInfoFromContext(ctx)
	sess, err := s.sessions.createSession(ctx, u.ID, token, client.IPAddress, client.UserAgent, expiresAt)
	if err != nil {
		return nil, err
	}

	identity := identityOf(u.ID, u.Username, u.Email, u.Role, u.Name)
	auditCtx := internal.ContextWithIdentity(ctx, identity)
	s.publisher.Notify(auditCtx, events.NewAuditEvent(auditCtx, "login", SessionResourceType,
		events.ResourceID(sess.ID), nil, sess.snapshot()))

	metrics.LoginTotal.WithLabelValues("success").Inc()
	s.logger.InfoContext(ctx, "user logged in", "user_id", u.ID, "session_id", sess.ID)

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: identity}, nil
}

// Logout is idempotent: an unknown or already closed token succeeds without an audit entry.
func (s *Service) Logout(ctx context.Context, token string) error {
	sess, err := s.sessions.Invalidate(ctx, token)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}

	auditCtx := ctx
	if _, ok := internal.IdentityFromContext(ctx); !ok {
		auditCtx = internal.ContextWithIdentity(ctx, &internal.Identity{ID: sess.UserID})
	}
	old := sess.snapshot()
	old["is_active"] = true
	s.publisher.Notify(auditCtx, events.NewAuditEvent(auditCtx, "logout", SessionResourceType,
		events.ResourceID(sess.ID), old, sess.snapshot()))

	s.logger.InfoContext(ctx, "user logged out", "user_id", sess.UserID, "session_id", sess.ID)
	return nil
}

// Authenticate resolves an Authorization header value to the caller's identity.
func (s *Service) Authenticate(ctx context.Context, authorization string) (*internal.Identity, error) {
	token, ok := bearerToken(authorization)
	if !ok {
		return nil, internal.ErrAuthenticationRequired
	}

	claims, err := s.signer.Parse(token)
	if err != nil {
		return nil, internal.ErrInvalidOrExpiredSession
	}

	sess, err := s.sessions.Live(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess == nil || claims.Subject != strconv.FormatInt(sess.UserID, 10) {
		return nil, internal.ErrInvalidOrExpiredSession
	}

	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load session owner", err)
	}
	if u == nil || !u.IsActive {
		return nil, internal.ErrInvalidOrExpiredSession
	}

	return identityOf(u.ID, u.Username, u.Email, u.Role, u.Name), nil
}

func (s *Service) ListSessions(ctx context.Context, userID int64) ([]*Session, error) {
	return s.sessions.ListActive(ctx, userID)
}

func (s *Service) TerminateSession(ctx context.Context, id int64) error {
	before, err := s.sessions.Terminate(ctx, id)
	if err != nil {
		return err
	}

	after := *before
	after.IsActive = false
	s.publisher.Notify(ctx, events.NewAuditEvent(ctx, "terminate_session", SessionResourceType,
		events.ResourceID(id), before.snapshot(), after.snapshot()))
	return nil
}

func (s *Service) CleanupSessions(ctx context.Context, olderThanDays int) (*CleanupResult, error) {
	n, err := s.sessions.Cleanup(ctx, olderThanDays)
	if err != nil {
		return nil, err
	}

	result := &CleanupResult{DeletedCount: n, OlderThanDays: olderThanDays}
	s.publisher.Notify(ctx, events.NewAuditEvent(ctx, "cleanup", "sessions", nil, nil, result))
	s.logger.InfoContext(ctx, "sessions cleaned up", "deleted", n, "older_than_days", olderThanDays)
	return result, nil
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

func identityOf(id int64, username, email, role, name string) *internal.Identity {
	return &internal.Identity{ID: id, Username: username, Email: email, Role: role, Name: name}
}
