package invitation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/internal/core/common/validation"
	invitationDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/invitation"
	"github.com/launchkit/saas-starter-kit/internal/core/events"
	"github.com/launchkit/saas-starter-kit/internal/user"
)

type RepositoryAPI interface {
	// List returns every invitation that was not cancelled, newest first.
	List(ctx context.Context) ([]invitationDatamodel.Invitation, error)
	GetByToken(ctx context.Context, token string) (*invitationDatamodel.Invitation, error)
	FindPendingByEmail(ctx context.Context, email string) (*invitationDatamodel.Invitation, error)
	Create(ctx context.Context, row *invitationDatamodel.Invitation) error
	// Accept activates the invited user and marks the invitation accepted in
	// one transaction. It returns ErrInvitationUsed when the invitation is no
	// longer pending at write time.
	Accept(ctx context.Context, invitationID, userID, passwordHash string) error
	// Transition moves a pending invitation to status; it reports whether a row changed.
	Transition(ctx context.Context, invitationID string, status Status) (bool, error)
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
}

type Service struct {
	repo      RepositoryAPI
	users     UserLookup
	hasher    PasswordHasher
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo RepositoryAPI, users UserLookup, hasher PasswordHasher, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		users:     users,
		hasher:    hasher,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) List(ctx context.Context) ([]Invitation, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list invitations", "error", err)
		return nil, internal.NewInternalError("failed to list invitations", err)
	}
	return FromDataModels(rows), nil
}

func (s *Service) GetByToken(ctx context.Context, token string) (*Invitation, error) {
	if !ValidToken(token) {
		return nil, internal.ErrInvitationNotFound
	}
	row, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, internal.NewInternalError("failed to get invitation", err)
	}
	if row == nil {
		return nil, internal.ErrInvitationNotFound
	}
	return FromDataModel(row), nil
}

// Create issues a pending invitation for an existing user. The email goes out
// asynchronously after the row is written; delivery problems never undo it.
func (s *Service) Create(ctx context.Context, dto CreateInvitationDTO, invitedBy string) (*Invitation, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	email := user.NormalizeEmail(dto.Email)
	userID, appErr := validation.ParseID(dto.UserID)
	if appErr != nil {
		return nil, appErr
	}
	dto.UserID = userID

	if _, err := s.users.GetByID(ctx, dto.UserID); err != nil {
		return nil, err
	}

	pending, err := s.repo.FindPendingByEmail(ctx, email)
	if err != nil {
		return nil, internal.NewInternalError("failed to check invitations", err)
	}
	if pending != nil {
		return nil, internal.ErrInvitationPending
	}

	token, err := GenerateToken()
	if err != nil {
		return nil, internal.NewInternalError("failed to create invitation", err)
	}

	row := &invitationDatamodel.Invitation{
		UserID:    dto.UserID,
		Email:     email,
		Token:     token,
		InvitedBy: invitedBy,
		Status:    string(StatusPending),
		ExpiresAt: s.now().Add(TTL),
	}
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to create invitation", "error", err)
		return nil, internal.NewInternalError("failed to create invitation", err)
	}
	inv := FromDataModel(row)

	s.logger.Info("invitation created", "invitation_id", inv.ID, "user_id", inv.UserID)
	events.PublishOrLog(ctx, s.publisher, s.logger, events.NewInvitationCreatedEvent(
		events.ChangeFromContext(ctx, "invitation", inv.ID, nil, map[string]interface{}{
			"email":     inv.Email,
			"userId":    inv.UserID,
			"expiresAt": inv.ExpiresAt,
		}),
		inv.ID, inv.Email, inv.Token, s.inviterName(ctx, invitedBy), inv.ExpiresAt,
	))
	return inv, nil
}

// Accept sets the invited user's password and activates the account.
// An expired invitation is marked expired and rejected.
func (s *Service) Accept(ctx context.Context, token string, dto AcceptInvitationDTO) (*AcceptResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	inv, err := s.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !inv.IsPending() {
		return nil, internal.ErrInvitationUsed
	}
	if inv.Overdue(s.now()) {
		if _, err := s.repo.Transition(ctx, inv.ID, StatusExpired); err != nil {
			s.logger.Error("failed to mark invitation expired", "invitation_id", inv.ID, "error", err)
		}
		return nil, internal.ErrInvitationExpired
	}

	hash, err := s.hasher.Hash(dto.Password)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	if err := s.repo.Accept(ctx, inv.ID, inv.UserID, hash); err != nil {
		var appErr *internal.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		s.logger.Error("failed to accept invitation", "invitation_id", inv.ID, "error", err)
		return nil, internal.NewInternalError("failed to accept invitation", err)
	}

	s.logger.Info("invitation accepted", "invitation_id", inv.ID, "user_id", inv.UserID)
	change := events.ChangeFromContext(ctx, "invitation", inv.ID,
		map[string]interface{}{"status": string(StatusPending)},
		map[string]interface{}{"status": string(StatusAccepted)})
	if change.ActorID == "" {
		change.ActorID = inv.UserID
	}
	events.PublishOrLog(ctx, s.publisher, s.logger, events.NewAuditedEvent(events.EventTypeInvitationAccepted, change))

	return &AcceptResult{UserID: inv.UserID, Message: "Invitation accepted successfully"}, nil
}

// Cancel withdraws a pending invitation. Cancelling twice is a no-op; an
// accepted or expired invitation cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, token string) error {
	inv, err := s.GetByToken(ctx, token)
	if err != nil {
		return err
	}

	switch inv.Status {
	case StatusCancelled:
		return nil
	case StatusPending:
	default:
		return internal.ErrInvitationUsed
	}

	changed, err := s.repo.Transition(ctx, inv.ID, StatusCancelled)
	if err != nil {
		return internal.NewInternalError("failed to cancel invitation", err)
	}
	if !changed {
		// lost a race; only a concurrent cancel leaves us with nothing to report
		current, err := s.GetByToken(ctx, token)
		if err != nil {
			return err
		}
		if current.Status == StatusCancelled {
			return nil
		}
		return internal.ErrInvitationUsed
	}

	s.logger.Info("invitation cancelled", "invitation_id", inv.ID)
	events.PublishOrLog(ctx, s.publisher, s.logger, events.NewAuditedEvent(
		events.EventTypeInvitationCancelled,
		events.ChangeFromContext(ctx, "invitation", inv.ID,
			map[string]interface{}{"status": string(StatusPending)},
			map[string]interface{}{"status": string(StatusCancelled)}),
	))
	return nil
}

// ExpireOverdue flips every overdue pending invitation to expired.
func (s *Service) ExpireOverdue(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, internal.NewInternalError("failed to expire invitations", err)
	}
	if n > 0 {
		s.logger.Info("overdue invitations expired", "count", n)
	}
	return n, nil
}

func (s *Service) inviterName(ctx context.Context, invitedBy string) string {
	if invitedBy == "" {
		return ""
	}
	u, err := s.users.GetByID(ctx, invitedBy)
	if err != nil {
		s.logger.Warn("failed to load inviter", "user_id", invitedBy, "error", err)
		return ""
	}
	return u.DisplayName()
}
