package invitation

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	invitationDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/invitation"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

const (
	TokenBytes = 32
	TTL        = 7 * 24 * time.Hour
)

type Invitation struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	UserID    string    `json:"userId"`
	InvitedBy string    `json:"invitedBy"`
	Status    Status    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (i *Invitation) IsPending() bool {
	return i.Status == StatusPending
}

// Overdue reports whether a pending invitation has passed its expiry.
func (i *Invitation) Overdue(now time.Time) bool {
	return i.ExpiresAt.Before(now)
}

// GenerateToken returns 256 random bits, hex encoded.
func GenerateToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate invitation token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func ToDataModel(i *Invitation) *invitationDatamodel.Invitation {
	return &invitationDatamodel.Invitation{
		ID:        i.ID,
		UserID:    i.UserID,
		Email:     i.Email,
		Token:     i.Token,
		InvitedBy: i.InvitedBy,
		Status:    string(i.Status),
		ExpiresAt: i.ExpiresAt,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

func FromDataModel(i *invitationDatamodel.Invitation) *Invitation {
	return &Invitation{
		ID:        i.ID,
		Token:     i.Token,
		Email:     i.Email,
		UserID:    i.UserID,
		InvitedBy: i.InvitedBy,
		Status:    Status(i.Status),
		ExpiresAt: i.ExpiresAt,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

func FromDataModels(rows []invitationDatamodel.Invitation) []Invitation {
	out := make([]Invitation, 0, len(rows))
	for i := range rows {
		out = append(out, *FromDataModel(&rows[i]))
	}
	return out
}
