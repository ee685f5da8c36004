package mailer

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/launchkit/saas-starter-kit/internal/core/events"
)

type InvitationEmail struct {
	To            string
	AppName       string
	InvitedByName string
	InviteURL     string
	ExpiresInDays int
}

var invitationHTML = htmltemplate.Must(htmltemplate.New("invitation.html").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Invitation to {{.AppName}}</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto;">
    <div style="background: #3b82f6; color: white; padding: 20px; text-align: center;">
      <h1>{{.AppName}}</h1>
    </div>
    <div style="padding: 30px 20px;">
      <h2>You've been invited!</h2>
      <p>Hello,</p>
      <p><strong>{{.InvitedByName}}</strong> has invited you to join <strong>{{.AppName}}</strong>.</p>
      <p>Click the button below to accept your invitation and create your account:</p>
      <a href="{{.InviteURL}}" style="display: inline-block; background: #3b82f6; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px;">Accept Invitation</a>
      <p>Or copy and paste this link into your browser:</p>
      <p><a href="{{.InviteURL}}">{{.InviteURL}}</a></p>
      <p><strong>Note:</strong> This invitation will expire in {{.ExpiresInDays}} days.</p>
    </div>
    <div style="text-align: center; color: #666; font-size: 12px; padding: 20px;">
      <p>This invitation was sent by {{.AppName}}</p>
      <p>If you didn't expect this invitation, you can safely ignore this email.</p>
    </div>
  </div>
</body>
</html>
`))

var invitationText = texttemplate.Must(texttemplate.New("invitation.txt").Parse(`You've been invited to join {{.AppName}}!

{{.InvitedByName}} has invited you to join {{.AppName}}.

To accept your invitation and create your account, visit:
{{.InviteURL}}

This invitation will expire in {{.ExpiresInDays}} days.

If you didn't expect this invitation, you can safely ignore this email.

---
{{.AppName}}
`))

func InviteURL(frontendURL, token string) string {
	return strings.TrimRight(frontendURL, "/") + "/invite/" + token
}

func (e InvitationEmail) Render() (Message, error) {
	var html, text bytes.Buffer
	if err := invitationHTML.Execute(&html, e); err != nil {
		return Message{}, fmt.Errorf("render invitation html: %w", err)
	}
	if err := invitationText.Execute(&text, e); err != nil {
		return Message{}, fmt.Errorf("render invitation text: %w", err)
	}
	return Message{
		To:      e.To,
		Subject: fmt.Sprintf("You've been invited to join %s", e.AppName),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

type Queue interface {
	Enqueue(msg Message) error
}

type Subscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

// InvitationNotifier turns invitation.created events into queued emails.
type InvitationNotifier struct {
	queue       Queue
	appName     string
	frontendURL string
	logger      *slog.Logger
	now         func() time.Time
}

func NewInvitationNotifier(queue Queue, appName, frontendURL string, logger *slog.Logger) *InvitationNotifier {
	return &InvitationNotifier{
		queue:       queue,
		appName:     appName,
		frontendURL: frontendURL,
		logger:      logger,
		now:         time.Now,
	}
}

func (n *InvitationNotifier) RegisterEventHandlers(bus Subscriber) {
	bus.Subscribe(events.EventTypeInvitationCreated, n.HandleInvitationCreated)
}

func (n *InvitationNotifier) HandleInvitationCreated(ctx context.Context, event events.Event) error {
	created, ok := event.(*events.InvitationCreatedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T for %s", event, event.EventType())
	}

	inviter := created.InvitedByName
	if inviter == "" {
		inviter = "An administrator"
	}

	msg, err := InvitationEmail{
		To:            created.Email,
		AppName:       n.appName,
		InvitedByName: inviter,
		InviteURL:     InviteURL(n.frontendURL, created.Token),
		ExpiresInDays: expiresInDays(created.ExpiresAt, n.now()),
	}.Render()
	if err != nil {
		return err
	}

	if err := n.queue.Enqueue(msg); err != nil {
		n.logger.Warn("invitation email not queued",
			"invitation_id", created.InvitationID,
			"error", err)
		return err
	}
	n.logger.Info("invitation email queued", "invitation_id", created.InvitationID)
	return nil
}

func expiresInDays(expiresAt, now time.Time) int {
	days := int(expiresAt.Sub(now).Round(24*time.Hour) / (24 * time.Hour))
	if days < 1 {
		return 1
	}
	return days
}
