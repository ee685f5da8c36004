package audit

import (
	"context"
	"fmt"

	"github.com/launchkit/saas-starter-kit/internal/core/events"
)

// AuditedEventTypes are the bus events that produce audit entries.
var AuditedEventTypes = []string{
	events.EventTypeRoleCreated,
	events.EventTypeRoleUpdated,
	events.EventTypeRolePermissionsChanged,
	events.EventTypeUserCreated,
	events.EventTypeUserUpdated,
	events.EventTypeUserRoleAssigned,
	events.EventTypeUserRoleRemoved,
	events.EventTypeInvitationCreated,
	events.EventTypeInvitationAccepted,
	events.EventTypeInvitationCancelled,
}

type Subscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

// RegisterEventHandlers records an audit entry for every audited event.
func (s *Service) RegisterEventHandlers(bus Subscriber) {
	for _, eventType := range AuditedEventTypes {
		bus.Subscribe(eventType, s.HandleEvent)
	}
}

func (s *Service) HandleEvent(ctx context.Context, event events.Event) error {
	oldValues, err := Marshal(events.Value(event, events.KeyOldValues))
	if err != nil {
		return fmt.Errorf("encode old values: %w", err)
	}
	newValues, err := Marshal(events.Value(event, events.KeyNewValues))
	if err != nil {
		return fmt.Errorf("encode new values: %w", err)
	}

	_, err = s.Record(ctx, Entry{
		UserID:     events.StringValue(event, events.KeyActorID),
		Action:     event.EventType(),
		Resource:   events.StringValue(event, events.KeyResource),
		ResourceID: events.StringValue(event, events.KeyResourceID),
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  events.StringValue(event, events.KeyIPAddress),
		UserAgent:  events.StringValue(event, events.KeyUserAgent),
		CreatedAt:  event.OccurredAt().UTC(),
	})
	return err
}
