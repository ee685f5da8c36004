package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/launchkit/saas-starter-kit/internal"
)

const (
	EventTypeRoleCreated            = "role.created"
	EventTypeRoleUpdated            = "role.updated"
	EventTypeRolePermissionsChanged = "role.permissions_replaced"

	EventTypeUserCreated      = "user.created"
	EventTypeUserUpdated      = "user.updated"
	EventTypeUserRoleAssigned = "user.role_assigned"
	EventTypeUserRoleRemoved  = "user.role_removed"

	EventTypeInvitationCreated   = "invitation.created"
	EventTypeInvitationAccepted  = "invitation.accepted"
	EventTypeInvitationCancelled = "invitation.cancelled"
)

// Keys carried in BaseEvent.Data by every audited event.
const (
	KeyActorID    = "actor_id"
	KeyResource   = "resource"
	KeyResourceID = "resource_id"
	KeyOldValues  = "old_values"
	KeyNewValues  = "new_values"
	KeyIPAddress  = "ip_address"
	KeyUserAgent  = "user_agent"
)

// AuditedChange describes a mutation that the audit subscriber records.
type AuditedChange struct {
	ActorID    string
	Resource   string
	ResourceID string
	OldValues  interface{}
	NewValues  interface{}
	IPAddress  string
	UserAgent  string
}

// ChangeFromContext fills the actor and caller metadata from the request context.
func ChangeFromContext(ctx context.Context, resource, resourceID string, oldValues, newValues interface{}) AuditedChange {
	meta := internal.RequestMetaFromContext(ctx)
	return AuditedChange{
		ActorID:    internal.UserIDFromContext(ctx),
		Resource:   resource,
		ResourceID: resourceID,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
	}
}

func NewAuditedEvent(eventType string, change AuditedChange) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			KeyActorID:    change.ActorID,
			KeyResource:   change.Resource,
			KeyResourceID: change.ResourceID,
			KeyOldValues:  change.OldValues,
			KeyNewValues:  change.NewValues,
			KeyIPAddress:  change.IPAddress,
			KeyUserAgent:  change.UserAgent,
		},
	}
}

type InvitationCreatedEvent struct {
	BaseEvent
	InvitationID  string    `json:"invitation_id"`
	Email         string    `json:"email"`
	Token         string    `json:"token"`
	InvitedByName string    `json:"invited_by_name"`
	ExpiresAt     time.Time `json:"expires_at"`
}

func NewInvitationCreatedEvent(change AuditedChange, invitationID, email, token, invitedByName string, expiresAt time.Time) *InvitationCreatedEvent {
	base := NewAuditedEvent(EventTypeInvitationCreated, change)
	base.Data["email"] = email
	base.Data["invited_by_name"] = invitedByName
	return &InvitationCreatedEvent{
		BaseEvent:     base,
		InvitationID:  invitationID,
		Email:         email,
		Token:         token,
		InvitedByName: invitedByName,
		ExpiresAt:     expiresAt,
	}
}

// StringValue reads a string entry from an event payload.
func StringValue(e Event, key string) string {
	data, ok := e.Payload().(map[string]interface{})
	if !ok {
		return ""
	}
	s, _ := data[key].(string)
	return s
}

// Value reads a raw entry from an event payload.
func Value(e Event, key string) interface{} {
	data, ok := e.Payload().(map[string]interface{})
	if !ok {
		return nil
	}
	return data[key]
}
