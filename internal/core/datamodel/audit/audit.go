package audit

import "time"

// AuditLog rows are insert-only.
type AuditLog struct {
	ID           int64     `gorm:"primaryKey"`
	UserID       *int64    `gorm:"column:user_id;index"`
	Action       string    `gorm:"column:action;not null;index"`
	ResourceType string    `gorm:"column:resource_type;not null;index"`
	ResourceID   *string   `gorm:"column:resource_id"`
	OldValues    *string   `gorm:"column:old_values;type:text"`
	NewValues    *string   `gorm:"column:new_values;type:text"`
	IPAddress    string    `gorm:"column:ip_address"`
	UserAgent    string    `gorm:"column:user_agent"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;index"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// AuditLogView is an audit row joined with the acting user's display fields.
// Both are nil for system actions and for actors that no longer exist.
type AuditLogView struct {
	AuditLog
	ActorName     *string `gorm:"column:actor_name"`
	ActorUsername *string `gorm:"column:actor_username"`
}
