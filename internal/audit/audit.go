package audit

import (
	"strings"
	"time"

	auditDatamodel "github.com/frahmantamala/school-admin/internal/core/datamodel/audit"
)

const (
	ResourceType   = "audit_logs"
	dateOnlyLayout = "2006-01-02"
	FormatCSV      = "csv"
	FormatJSON     = "json"
	actionExport   = "export"
	actionCleanup  = "cleanup"
)

// Entry is a stored audit record as returned to readers.
type Entry struct {
	ID            int64     `json:"id"`
	UserID        *int64    `json:"user_id"`
	ActorName     *string   `json:"actor_name"`
	ActorUsername *string   `json:"actor_username"`
	Action        string    `json:"action"`
	ResourceType  string    `json:"resource_type"`
	ResourceID    *string   `json:"resource_id"`
	OldValues     *string   `json:"old_values"`
	NewValues     *string   `json:"new_values"`
	IPAddress     string    `json:"ip_address"`
	UserAgent     string    `json:"user_agent"`
	CreatedAt     time.Time `json:"created_at"`
}

func FromDataModel(v *auditDatamodel.AuditLogView) *Entry {
	if v == nil {
		return nil
	}
	return &Entry{
		ID:            v.ID,
		UserID:        v.UserID,
		ActorName:     v.ActorName,
		ActorUsername: v.ActorUsername,
		Action:        v.Action,
		ResourceType:  v.ResourceType,
		ResourceID:    v.ResourceID,
		OldValues:     v.OldValues,
		NewValues:     v.NewValues,
		IPAddress:     v.IPAddress,
		UserAgent:     v.UserAgent,
		CreatedAt:     v.CreatedAt,
	}
}

// Filter narrows queries and exports. Zero fields do not filter.
type Filter struct {
	UserID       *int64     `json:"user_id,omitempty"`
	Action       string     `json:"action,omitempty"`
	ResourceType string     `json:"resource_type,omitempty"`
	ResourceID   string     `json:"resource_id,omitempty"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	Search       string     `json:"search,omitempty"`
}

func (f Filter) normalized() Filter {
	f.Action = strings.TrimSpace(f.Action)
	f.ResourceType = strings.TrimSpace(f.ResourceType)
	f.ResourceID = strings.TrimSpace(f.ResourceID)
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// ParseDate accepts RFC3339 or a bare date. A bare end date covers the whole day.
func ParseDate(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateOnlyLayout, raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t.UTC(), nil
}

const (
	StatsTopLimit    = 5
	StatsActorsLimit = 10
)

type NameCount struct {
	Name  string `json:"name" db:"name"`
	Count int64  `json:"count" db:"count"`
}

type ActorCount struct {
	UserID   int64  `json:"user_id" db:"user_id"`
	Name     string `json:"name" db:"name"`
	Username string `json:"username" db:"username"`
	Count    int64  `json:"count" db:"count"`
}

type Stats struct {
	TotalCount            int64        `json:"total_count"`
	Last24hCount          int64        `json:"last_24h_count"`
	TopActions            []NameCount  `json:"top_actions"`
	TopResourceTypes      []NameCount  `json:"top_resource_types"`
	ActiveActorsLast7Days []ActorCount `json:"active_actors_last_7_days"`
}

type CleanupResult struct {
	DeletedCount  int64     `json:"deleted_count"`
	OlderThanDays int       `json:"older_than_days"`
	Cutoff        time.Time `json:"cutoff"`
}
