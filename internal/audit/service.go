package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/school-admin/internal"
	"github.com/frahmantamala/school-admin/internal/core/common/pagination"
	auditDatamodel "github.com/frahmantamala/school-admin/internal/core/datamodel/audit"
	"github.com/frahmantamala/school-admin/internal/core/events"
)

type RepositoryAPI interface {
	// Find returns matching rows newest first. limit <= 0 returns every match.
	Find(ctx context.Context, filter Filter, limit, offset int) ([]*auditDatamodel.AuditLogView, int64, error)
	GetByID(ctx context.Context, id int64) (*auditDatamodel.AuditLogView, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type StatsReader interface {
	Stats(ctx context.Context, now time.Time) (*Stats, error)
}

type QueryResult struct {
	Logs       []*Entry        `json:"logs"`
	Pagination pagination.Meta `json:"pagination"`
}

type ExportResult struct {
	Body        []byte
	ContentType string
	Filename    string
	Count       int
}

type Service struct {
	repo        RepositoryAPI
	stats       StatsReader
	publisher   events.Publisher
	exportLimit int
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(repo RepositoryAPI, stats StatsReader, publisher events.Publisher, exportLimit int, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		stats:       stats,
		publisher:   publisher,
		exportLimit: exportLimit,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock replaces the time source used for cleanup cutoffs and stats windows.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func toEntries(rows []*auditDatamodel.AuditLogView) []*Entry {
	out := make([]*Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return out
}

func (s *Service) Query(ctx context.Context, filter Filter, page, limit int) (*QueryResult, error) {
	page, limit = pagination.Normalize(page, limit)

	rows, total, err := s.repo.Find(ctx, filter.normalized(), limit, pagination.Offset(page, limit))
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to query audit logs", "error", err)
		return nil, internal.NewInternalError("failed to query audit logs", err)
	}

	return &QueryResult{
		Logs:       toEntries(rows),
		Pagination: pagination.NewMeta(page, limit, total),
	}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Entry, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load audit log", err)
	}
	if row == nil {
		return nil, internal.ErrAuditLogNotFound
	}
	return FromDataModel(row), nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.stats.Stats(ctx, s.now().UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to compute audit stats", "error", err)
		return nil, internal.NewInternalError("failed to compute audit stats", err)
	}
	return stats, nil
}

// Export renders every row matching filter. The export is audited after the read so it
// never appears in its own output.
func (s *Service) Export(ctx context.Context, format string, filter Filter) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != FormatCSV && format != FormatJSON {
		return nil, internal.NewValidationFieldError("format", "format must be one of: csv json", internal.ErrCodeValidationFailed)
	}

	filter = filter.normalized()
	rows, _, err := s.repo.Find(ctx, filter, s.exportLimit, 0)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to read audit logs for export", "error", err)
		return nil, internal.NewInternalError("failed to export audit logs", err)
	}
	entries := toEntries(rows)

	now := s.now().UTC()
	result := &ExportResult{
		Count:    len(entries),
		Filename: fmt.Sprintf("audit-logs-%s.%s", now.Format("20060102-150405"), format),
	}
	switch format {
	case FormatCSV:
		result.Body = EncodeCSV(entries)
		result.ContentType = "text/csv; charset=utf-8"
	case FormatJSON:
		body, err := EncodeJSON(entries, filter, now)
		if err != nil {
			return nil, internal.NewInternalError("failed to encode audit export", err)
		}
		result.Body = body
		result.ContentType = "application/json"
	}

	s.publisher.Notify(ctx, events.NewAuditEvent(ctx, actionExport, ResourceType, nil, nil, map[string]interface{}{
		"format":  format,
		"count":   result.Count,
		"filters": filter,
	}))
	return result, nil
}

// Cleanup hard-deletes entries created at or before now minus olderThanDays.
func (s *Service) Cleanup(ctx context.Context, olderThanDays int) (*CleanupResult, error) {
	if olderThanDays < 1 {
		return nil, internal.NewValidationFieldError("olderThan", "olderThan must be at least 1 day", internal.ErrCodeValidationFailed)
	}

	cutoff := s.now().UTC().AddDate(0, 0, -olderThanDays)
	deleted, err := s.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to clean up audit logs", "older_than_days", olderThanDays, "error", err)
		return nil, internal.NewInternalError("failed to clean up audit logs", err)
	}

	result := &CleanupResult{DeletedCount: deleted, OlderThanDays: olderThanDays, Cutoff: cutoff}
	s.publisher.Notify(ctx, events.NewAuditEvent(ctx, actionCleanup, ResourceType, nil, nil, map[string]interface{}{
		"deleted_count":   deleted,
		"older_than_days": olderThanDays,
		"cutoff":          cutoff,
	}))
	s.logger.InfoContext(ctx, "audit logs cleaned up", "deleted", deleted, "older_than_days", olderThanDays)
	return result, nil
}
