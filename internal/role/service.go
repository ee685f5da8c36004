package role

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/internal/core/common/dberrors"
	"github.com/launchkit/saas-starter-kit/internal/core/common/validation"
	roleDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/role"
	"github.com/launchkit/saas-starter-kit/internal/core/events"
)

type RepositoryAPI interface {
	List(ctx context.Context, includeInactive bool) ([]roleDatamodel.Role, error)
	GetByID(ctx context.Context, id string) (*roleDatamodel.Role, error)
	GetByName(ctx context.Context, name string) (*roleDatamodel.Role, error)
	Create(ctx context.Context, r *roleDatamodel.Role, permissionIDs []string) error
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	// ReplacePermissions swaps the whole permission set in one transaction.
	ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string) error
	AddPermission(ctx context.Context, roleID, permissionID string) error
	RemovePermission(ctx context.Context, roleID, permissionID string) error
}

type Service struct {
	repo      RepositoryAPI
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *Service) List(ctx context.Context, includeInactive bool) ([]Role, error) {
	rows, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		s.logger.Error("failed to list roles", "error", err)
		return nil, internal.NewInternalError("failed to list roles", err)
	}
	return FromDataModels(rows), nil
}

// FindByID returns nil when the role does not exist.
func (s *Service) FindByID(ctx context.Context, id string) (*Role, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to get role", err)
	}
	if row == nil {
		return nil, nil
	}
	return FromDataModel(row), nil
}

// FindByName normalizes name before the lookup and returns nil when absent.
func (s *Service) FindByName(ctx context.Context, name string) (*Role, error) {
	row, err := s.repo.GetByName(ctx, NormalizeName(name))
	if err != nil {
		return nil, internal.NewInternalError("failed to get role", err)
	}
	if row == nil {
		return nil, nil
	}
	return FromDataModel(row), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*Role, error) {
	r, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, internal.ErrRoleNotFound
	}
	return r, nil
}

func (s *Service) Create(ctx context.Context, dto CreateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	r := NewRole(dto.Name, dto.Description)
	existing, err := s.repo.GetByName(ctx, r.Name)
	if err != nil {
		return nil, internal.NewInternalError("failed to check role name", err)
	}
	if existing != nil {
		return nil, internal.ErrRoleNameTaken
	}

	row := ToDataModel(r)
	permissionIDs, appErr := validation.CanonicalIDs(dto.PermissionIDs)
	if appErr != nil {
		return nil, appErr
	}
	if err := s.repo.Create(ctx, row, permissionIDs); err != nil {
		return nil, s.mapWriteError("failed to create role", err)
	}

	created, err := s.GetByID(ctx, row.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("role created", "role_id", created.ID, "name", created.Name)
	events.PublishOrLog(ctx, s.publisher, s.logger, events.NewAuditedEvent(
		events.EventTypeRoleCreated,
		events.ChangeFromContext(ctx, "role", created.ID, nil, snapshot(created)),
	))
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, dto UpdateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if dto.IsEmpty() {
		return current, nil
	}

	fields := make(map[string]interface{})
	if dto.Name != nil {
		name := NormalizeName(*dto.Name)
		if name != current.Name {
			taken, err := s.repo.GetByName(ctx, name)
			if err != nil {
				return nil, internal.NewInternalError("failed to check role name", err)
			}
			if taken != nil {
				return nil, internal.ErrRoleNameTaken
			}
			fields["name"] = name
		}
	}
	if dto.Description != nil {
		fields["description"] = strings.TrimSpace(*dto.Description)
	}
	if dto.IsActive != nil {
		fields["is_active"] = *dto.IsActive
	}
	if len(fields) == 0 {
		return current, nil
	}

	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, s.mapWriteError("failed to update role", err)
	}

	updated, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("role updated", "role_id", id)
	events.PublishOrLog(ctx, s.publisher, s.logger, events.NewAuditedEvent(
		events.EventTypeRoleUpdated,
		events.ChangeFromContext(ctx, "role", id, snapshot(current), snapshot(updated)),
	))
	return updated, nil
}

// ReplacePermissions makes permissionIDs the role's exact permission set.
// Unknown ids reject the whole call and leave the role unchanged.
func (s *Service) ReplacePermissions(ctx context.Context, roleID string, dto ReplacePermissionsDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	before, err := s.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}

	permissionIDs, appErr := validation.CanonicalIDs(dto.PermissionIDs)
	if appErr != nil {
		return nil, appErr
	}
	if err := s.repo.ReplacePermissions(ctx, roleID, permissionIDs); err != nil {
		return nil, s.mapWriteError("failed to replace role permissions", err)
	}

	after, err := s.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("role permissions replaced", "role_id", roleID, "count", len(after.Permissions))
	events.PublishOrLog(ctx, s.publisher, s.logger, events.NewAuditedEvent(
		events.EventTypeRolePermissionsChanged,
		events.ChangeFromContext(ctx, "role", roleID,
			map[string]interface{}{"permissions": before.PermissionNames()},
			map[string]interface{}{"permissions": after.PermissionNames()}),
	))
	return after, nil
}

func (s *Service) AddPermission(ctx context.Context, roleID, permissionID string) (*Role, error) {
	if err := s.repo.AddPermission(ctx, roleID, permissionID); err != nil {
		return nil, s.mapWriteError("failed to add role permission", err)
	}
	return s.GetByID(ctx, roleID)
}

func (s *Service) RemovePermission(ctx context.Context, roleID, permissionID string) (*Role, error) {
	if err := s.repo.RemovePermission(ctx, roleID, permissionID); err != nil {
		return nil, s.mapWriteError("failed to remove role permission", err)
	}
	return s.GetByID(ctx, roleID)
}

// repositories report domain failures as *AppError; anything else is internal
func (s *Service) mapWriteError(msg string, err error) error {
	var appErr *internal.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if dberrors.IsUniqueViolation(err) {
		return internal.ErrRoleNameTaken
	}
	s.logger.Error(msg, "error", err)
	return internal.NewInternalError(msg, err)
}

func snapshot(r *Role) map[string]interface{} {
	return map[string]interface{}{
		"name":        r.Name,
		"description": r.Description,
		"isActive":    r.IsActive,
	}
}
