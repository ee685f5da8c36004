package session

import (
	"time"

	sessionDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/session"
)

// Session tracks one refresh token, identified by its jti.
type Session struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	TokenID        string     `json:"-"`
	ExpiresAt      time.Time  `json:"expiresAt"`
	LastAccessedAt *time.Time `json:"lastAccessedAt,omitempty"`
	IPAddress      string     `json:"ipAddress,omitempty"`
	UserAgent      string     `json:"userAgent,omitempty"`
	IsActive       bool       `json:"isActive"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

func FromDataModel(s *sessionDatamodel.Session) *Session {
	return &Session{
		ID:             s.ID,
		UserID:         s.UserID,
		TokenID:        s.TokenID,
		ExpiresAt:      s.ExpiresAt,
		LastAccessedAt: s.LastAccessedAt,
		IPAddress:      s.IPAddress,
		UserAgent:      s.UserAgent,
		IsActive:       s.IsActive,
		CreatedAt:      s.CreatedAt,
	}
}
