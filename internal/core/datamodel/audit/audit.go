package audit

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

type AuditLog struct {
	ID         string    `gorm:"primaryKey;column:id;type:varchar(26)"`
	UserID     string    `gorm:"column:user_id;index"`
	Action     string    `gorm:"column:action;not null;index"`
	Resource   string    `gorm:"column:resource;not null;index"`
	ResourceID string    `gorm:"column:resource_id"`
	OldValues  *string   `gorm:"column:old_values;type:jsonb"`
	NewValues  *string   `gorm:"column:new_values;type:jsonb"`
	IPAddress  string    `gorm:"column:ip_address"`
	UserAgent  string    `gorm:"column:user_agent"`
	CreatedAt  time.Time `gorm:"column:created_at;index"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// BeforeCreate assigns a ULID so ids sort by creation time.
func (a *AuditLog) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = ulid.Make().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return nil
}
