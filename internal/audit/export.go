package audit

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

var csvColumns = []string{
	"id", "created_at", "user_id", "actor_name", "action", "resource_type",
	"resource_id", "old_values", "new_values", "ip_address", "user_agent",
}

type jsonExport struct {
	ExportedAt time.Time `json:"exported_at"`
	TotalCount int       `json:"total_count"`
	Filters    Filter    `json:"filters"`
	Logs       []*Entry  `json:"logs"`
}

// EncodeCSV writes one header row and one row per entry. Every field is quoted.
func EncodeCSV(entries []*Entry) []byte {
	var buf bytes.Buffer
	writeCSVRow(&buf, csvColumns)
	for _, e := range entries {
		writeCSVRow(&buf, CSVRecord(e))
	}
	return buf.Bytes()
}

// CSVRecord flattens e in csvColumns order. Nil values become empty strings.
func CSVRecord(e *Entry) []string {
	userID := ""
	if e.UserID != nil {
		userID = strconv.FormatInt(*e.UserID, 10)
	}
	return []string{
		strconv.FormatInt(e.ID, 10),
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
		userID,
		deref(e.ActorName),
		e.Action,
		e.ResourceType,
		deref(e.ResourceID),
		deref(e.OldValues),
		deref(e.NewValues),
		e.IPAddress,
		e.UserAgent,
	}
}

func writeCSVRow(buf *bytes.Buffer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(f, `"`, `""`))
		buf.WriteByte('"')
	}
	buf.WriteString("\r\n")
}

func EncodeJSON(entries []*Entry, filter Filter, exportedAt time.Time) ([]byte, error) {
	if entries == nil {
		entries = []*Entry{}
	}
	return json.MarshalIndent(jsonExport{
		ExportedAt: exportedAt.UTC(),
		TotalCount: len(entries),
		Filters:    filter,
		Logs:       entries,
	}, "", "  ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
