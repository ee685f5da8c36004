package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/launchkit/saas-starter-kit/internal"
	sessionDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/session"
)

type RepositoryAPI interface {
	Create(ctx context.Context, s *sessionDatamodel.Session) error
	// FindActiveByTokenID returns nil unless the session is active and unexpired at now.
	FindActiveByTokenID(ctx context.Context, tokenID string, now time.Time) (*sessionDatamodel.Session, error)
	// Consume deactivates the session only if it is still active and unexpired at, returning the rows changed.
	Consume(ctx context.Context, tokenID string, at time.Time) (int64, error)
	DeactivateByTokenID(ctx context.Context, tokenID string) (int64, error)
	DeactivateAllForUser(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) Create(ctx context.Context, userID, tokenID string, expiresAt time.Time, meta internal.RequestMeta) (*Session, error) {
	row := &sessionDatamodel.Session{
		UserID:    userID,
		TokenID:   tokenID,
		ExpiresAt: expiresAt,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		IsActive:  true,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to create session", "user_id", userID, "error", err)
		return nil, internal.NewInternalError("failed to create session", err)
	}
	return FromDataModel(row), nil
}

// FindActiveByTokenID returns ErrSessionNotFound for unknown, revoked or expired sessions.
func (s *Service) FindActiveByTokenID(ctx context.Context, tokenID string) (*Session, error) {
	row, err := s.repo.FindActiveByTokenID(ctx, tokenID, s.now())
	if err != nil {
		return nil, internal.NewInternalError("failed to load session", err)
	}
	if row == nil {
		return nil, internal.ErrSessionNotFound
	}
	return FromDataModel(row), nil
}

// Consume redeems a refresh session exactly once. Only one of several
// concurrent callers for the same token id succeeds; the rest get ErrSessionNotFound.
func (s *Service) Consume(ctx context.Context, tokenID string) error {
	n, err := s.repo.Consume(ctx, tokenID, s.now())
	if err != nil {
		return internal.NewInternalError("failed to consume session", err)
	}
	if n == 0 {
		return internal.ErrSessionNotFound
	}
	return nil
}

// Deactivate is a no-op for unknown token ids.
func (s *Service) Deactivate(ctx context.Context, tokenID string) error {
	if _, err := s.repo.DeactivateByTokenID(ctx, tokenID); err != nil {
		return internal.NewInternalError("failed to deactivate session", err)
	}
	return nil
}

func (s *Service) DeactivateAllForUser(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.DeactivateAllForUser(ctx, userID)
	if err != nil {
		return 0, internal.NewInternalError("failed to deactivate sessions", err)
	}
	return n, nil
}

// CleanupExpired deletes sessions past their expiry and returns how many went.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, internal.NewInternalError("failed to clean up sessions", err)
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", "count", n)
	}
	return n, nil
}
