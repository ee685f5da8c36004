package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/launchkit/saas-starter-kit/internal"
	auditDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/audit"
)

type RepositoryAPI interface {
	Create(ctx context.Context, row *auditDatamodel.AuditLog) error
	List(ctx context.Context, f Filter) ([]auditDatamodel.AuditLog, int64, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
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

func (s *Service) Record(ctx context.Context, e Entry) (*Entry, error) {
	row := ToDataModel(&e)
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to record audit entry", "action", e.Action, "error", err)
		return nil, internal.NewInternalError("failed to record audit entry", err)
	}
	return FromDataModel(row), nil
}

// List returns matching entries newest first together with the total match count.
func (s *Service) List(ctx context.Context, f Filter) ([]Entry, int64, error) {
	if err := f.Validate(); err != nil {
		return nil, 0, err
	}
	rows, total, err := s.repo.List(ctx, f.Normalize())
	if err != nil {
		s.logger.Error("failed to list audit logs", "error", err)
		return nil, 0, internal.NewInternalError("failed to list audit logs", err)
	}
	return FromDataModels(rows), total, nil
}

// CleanupOlderThan deletes entries older than days and reports how many went.
func (s *Service) CleanupOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	cutoff := s.now().AddDate(0, 0, -days)
	n, err := s.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, internal.NewInternalError("failed to clean up audit logs", err)
	}
	if n > 0 {
		s.logger.Info("old audit logs removed", "count", n, "cutoff", cutoff)
	}
	return n, nil
}
