package permission

import (
	"context"
	"log/slog"
	"strings"

	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/internal/core/common/dberrors"
	permissionDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/permission"
)

type RepositoryAPI interface {
	List(ctx context.Context) ([]permissionDatamodel.Permission, error)
	GetByID(ctx context.Context, id string) (*permissionDatamodel.Permission, error)
	GetByIDs(ctx context.Context, ids []string) ([]permissionDatamodel.Permission, error)
	GetByResourceAction(ctx context.Context, resource, action string) (*permissionDatamodel.Permission, error)
	GetByName(ctx context.Context, name string) (*permissionDatamodel.Permission, error)
	Create(ctx context.Context, p *permissionDatamodel.Permission) error
	UpdateDescription(ctx context.Context, id, description string) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// List returns the whole catalog ordered by (resource, action).
func (s *Service) List(ctx context.Context) ([]Permission, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list permissions", "error", err)
		return nil, internal.NewInternalError("failed to list permissions", err)
	}
	return FromDataModels(rows), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*Permission, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to get permission", err)
	}
	if row == nil {
		return nil, internal.ErrPermissionNotFound
	}
	return FromDataModel(row), nil
}

// FindByResourceAction returns nil when the pair is not in the catalog.
func (s *Service) FindByResourceAction(ctx context.Context, resource, action string) (*Permission, error) {
	row, err := s.repo.GetByResourceAction(ctx, NormalizeSegment(resource), NormalizeSegment(action))
	if err != nil {
		return nil, internal.NewInternalError("failed to find permission", err)
	}
	if row == nil {
		return nil, nil
	}
	return FromDataModel(row), nil
}

func (s *Service) Create(ctx context.Context, dto CreatePermissionDTO) (*Permission, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	p := NewPermission(dto.Resource, dto.Action, dto.Description)

	existing, err := s.repo.GetByResourceAction(ctx, p.Resource, p.Action)
	if err != nil {
		return nil, internal.NewInternalError("failed to check permission", err)
	}
	if existing == nil {
		existing, err = s.repo.GetByName(ctx, p.Name)
		if err != nil {
			return nil, internal.NewInternalError("failed to check permission", err)
		}
	}
	if existing != nil {
		return nil, internal.ErrPermissionExists
	}

	row := ToDataModel(p)
	if err := s.repo.Create(ctx, row); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return nil, internal.ErrPermissionExists
		}
		s.logger.Error("failed to create permission", "name", p.Name, "error", err)
		return nil, internal.NewInternalError("failed to create permission", err)
	}

	s.logger.Info("permission created", "permission_id", row.ID, "name", row.Name)
	return FromDataModel(row), nil
}

// Update only touches the description; (resource, action) is the permission's identity.
func (s *Service) Update(ctx context.Context, id string, dto UpdatePermissionDTO) (*Permission, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if dto.Description == nil {
		return current, nil
	}

	if err := s.repo.UpdateDescription(ctx, id, strings.TrimSpace(*dto.Description)); err != nil {
		return nil, internal.NewInternalError("failed to update permission", err)
	}
	return s.GetByID(ctx, id)
}

