package audit

import (
	"encoding/json"
	"time"

	auditDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/audit"
)

// Entry is one recorded mutation. Old and new values are stored as JSON.
type Entry struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId,omitempty"`
	Action     string          `json:"action"`
	Resource   string          `json:"resource"`
	ResourceID string          `json:"resourceId,omitempty"`
	OldValues  json.RawMessage `json:"oldValues,omitempty"`
	NewValues  json.RawMessage `json:"newValues,omitempty"`
	IPAddress  string          `json:"ipAddress,omitempty"`
	UserAgent  string          `json:"userAgent,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func ToDataModel(e *Entry) *auditDatamodel.AuditLog {
	return &auditDatamodel.AuditLog{
		ID:         e.ID,
		UserID:     e.UserID,
		Action:     e.Action,
		Resource:   e.Resource,
		ResourceID: e.ResourceID,
		OldValues:  rawToPtr(e.OldValues),
		NewValues:  rawToPtr(e.NewValues),
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
		CreatedAt:  e.CreatedAt,
	}
}

func FromDataModel(a *auditDatamodel.AuditLog) *Entry {
	return &Entry{
		ID:         a.ID,
		UserID:     a.UserID,
		Action:     a.Action,
		Resource:   a.Resource,
		ResourceID: a.ResourceID,
		OldValues:  ptrToRaw(a.OldValues),
		NewValues:  ptrToRaw(a.NewValues),
		IPAddress:  a.IPAddress,
		UserAgent:  a.UserAgent,
		CreatedAt:  a.CreatedAt,
	}
}

func FromDataModels(rows []auditDatamodel.AuditLog) []Entry {
	out := make([]Entry, 0, len(rows))
	for i := range rows {
		out = append(out, *FromDataModel(&rows[i]))
	}
	return out
}

// Marshal encodes v for the old/new value columns; nil stays nil.
func Marshal(v interface{}) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	return b, nil
}

func rawToPtr(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	s := string(raw)
	return &s
}

func ptrToRaw(s *string) json.RawMessage {
	if s == nil || *s == "" {
		return nil
	}
	return json.RawMessage(*s)
}
