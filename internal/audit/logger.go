package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/school-admin/internal/core/common/redact"
	auditDatamodel "github.com/frahmantamala/school-admin/internal/core/datamodel/audit"
	"github.com/frahmantamala/school-admin/internal/core/events"
	"github.com/frahmantamala/school-admin/internal/metrics"
)

type Writer interface {
	Insert(ctx context.Context, entry *auditDatamodel.AuditLog) error
}

// Logger persists audit events. It never reports failure to the code that triggered the event.
type Logger struct {
	writer Writer
	logger *slog.Logger
	now    func() time.Time
}

func NewLogger(writer Writer, logger *slog.Logger) *Logger {
	return &Logger{
		writer: writer,
		logger: logger,
		now:    time.Now,
	}
}

// Subscribe attaches the logger to bus as the handler for audit events.
func (l *Logger) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeAudit, l.Handle)
}

func (l *Logger) Handle(ctx context.Context, event events.Event) error {
	ae, ok := event.(*events.AuditEvent)
	if !ok {
		l.logger.WarnContext(ctx, "unexpected event on audit topic", "event_type", event.EventType())
		return nil
	}
	l.Record(ctx, ae)
	return nil
}

func (l *Logger) Record(ctx context.Context, ae *events.AuditEvent) {
	row := &auditDatamodel.AuditLog{
		UserID:       ae.ActorID,
		Action:       ae.Action,
		ResourceType: ae.ResourceType,
		ResourceID:   ae.ResourceID,
		OldValues:    l.snapshot(ctx, ae, "old_values", ae.OldValues),
		NewValues:    l.snapshot(ctx, ae, "new_values", ae.NewValues),
		IPAddress:    ae.IPAddress,
		UserAgent:    ae.UserAgent,
		CreatedAt:    l.now().UTC(),
	}

	if err := l.writer.Insert(ctx, row); err != nil {
		metrics.AuditWriteFailuresTotal.Inc()
		l.logger.ErrorContext(ctx, "failed to write audit log",
			"action", ae.Action,
			"resource_type", ae.ResourceType,
			"error", err)
	}
}

func (l *Logger) snapshot(ctx context.Context, ae *events.AuditEvent, field string, v interface{}) *string {
	if v == nil {
		return nil
	}
	text, err := redact.JSON(v)
	if err != nil {
		l.logger.WarnContext(ctx, "audit snapshot not serializable",
			"action", ae.Action,
			"field", field,
			"error", err)
		return nil
	}
	return &text
}
