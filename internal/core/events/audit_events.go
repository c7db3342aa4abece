package events

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/school-admin/internal"
)

const EventTypeAudit = "audit.recorded"

// AuditEvent describes one privileged mutation after it has been committed.
type AuditEvent struct {
	BaseEvent
	ActorID      *int64
	Action       string
	ResourceType string
	ResourceID   *string
	OldValues    interface{}
	NewValues    interface{}
	IPAddress    string
	UserAgent    string
}

// NewAuditEvent takes the actor and client metadata from ctx. A ctx without an identity records a system action.
func NewAuditEvent(ctx context.Context, action, resourceType string, resourceID *string, oldValues, newValues interface{}) *AuditEvent {
	client := internal.ClientInfoFromContext(ctx)
	return &AuditEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeAudit,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"action":        action,
				"resource_type": resourceType,
			},
		},
		ActorID:      internal.ActorIDFromContext(ctx),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		OldValues:    oldValues,
		NewValues:    newValues,
		IPAddress:    client.IPAddress,
		UserAgent:    client.UserAgent,
	}
}

// ResourceID formats a numeric id for AuditEvent.ResourceID.
func ResourceID(id int64) *string {
	s := strconv.FormatInt(id, 10)
	return &s
}

func StringResourceID(id string) *string {
	return &id
}
