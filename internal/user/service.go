package user

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/school-admin/internal"
	userDatamodel "github.com/frahmantamala/school-admin/internal/core/datamodel/user"
	"github.com/frahmantamala/school-admin/internal/core/events"
	coreuser "github.com/frahmantamala/school-admin/internal/core/user"
)

const ResourceType = "user"

type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error)
	Create(ctx context.Context, u *userDatamodel.User) error
	UpdateRole(ctx context.Context, id int64, role string) error
	UpdateActive(ctx context.Context, id int64, active bool) error
}

type Service struct {
	repo      RepositoryAPI
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *Service) GetByID(ctx context.Context, id int64) (*coreuser.User, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if row == nil {
		return nil, internal.ErrUserNotFound
	}
	return FromDataModel(row), nil
}

// SetActive flips the account flag. Deactivation takes effect on the user's next authenticated request.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) (*coreuser.User, error) {
	before, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateActive(ctx, id, active); err != nil {
		s.logger.ErrorContext(ctx, "failed to update user status", "user_id", id, "error", err)
		return nil, internal.NewInternalError("failed to update user status", err)
	}

	after := *before
	after.IsActive = active

	s.publisher.Notify(ctx, events.NewAuditEvent(ctx, "update_status", ResourceType,
		events.ResourceID(id), before.Snapshot(), after.Snapshot()))

	s.logger.InfoContext(ctx, "user status updated", "user_id", id, "is_active", active)
	return &after, nil
}
