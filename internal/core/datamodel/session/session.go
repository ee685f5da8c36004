package session

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Session struct {
	ID             string     `gorm:"primaryKey;column:id;type:uuid"`
	UserID         string     `gorm:"column:user_id;type:uuid;not null;index"`
	TokenID        string     `gorm:"column:token_id;uniqueIndex;not null"`
	ExpiresAt      time.Time  `gorm:"column:expires_at;not null"`
	LastAccessedAt *time.Time `gorm:"column:last_accessed_at"`
	IPAddress      string     `gorm:"column:ip_address"`
	UserAgent      string     `gorm:"column:user_agent"`
	IsActive       bool       `gorm:"column:is_active;not null"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (Session) TableName() string {
	return "sessions"
}

func (s *Session) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
