package user

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/internal/core/common/dberrors"
	"github.com/launchkit/saas-starter-kit/internal/core/common/validation"
	userDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/user"
	"github.com/launchkit/saas-starter-kit/internal/core/events"
	"github.com/launchkit/saas-starter-kit/internal/role"
)

type RepositoryAPI interface {
	List(ctx context.Context, opts ListOptions) ([]userDatamodel.User, int64, error)
	// GetByID and the other lookups hydrate roles and their permissions; nil when absent.
	GetByID(ctx context.Context, id string) (*userDatamodel.User, error)
	GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error)
	Create(ctx context.Context, u *userDatamodel.User, roleIDs []string) error
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	AssignRole(ctx context.Context, userID, roleID string) error
	RemoveRole(ctx context.Context, userID, roleID string) error
}

type RoleFinder interface {
	FindByName(ctx context.Context, name string) (*role.Role, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// SessionRevoker ends every session of a user when the account is deactivated.
type SessionRevoker interface {
	DeactivateAllForUser(ctx context.Context, userID string) (int64, error)
}

type Service struct {
	repo      RepositoryAPI
	roles     RoleFinder
	hasher    PasswordHasher
	sessions  SessionRevoker
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, roles RoleFinder, hasher PasswordHasher, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		roles:  roles,
		hasher: hasher,
		logger: logger,
	}
}

func (s *Service) WithSessionRevoker(r SessionRevoker) *Service {
	s.sessions = r
	return s
}

func (s *Service) WithPublisher(p events.Publisher) *Service {
	s.publisher = p
	return s
}

// ListWithRoles returns one page of users, newest first, with roles hydrated.
func (s *Service) ListWithRoles(ctx context.Context, opts ListOptions) ([]User, int64, error) {
	rows, total, err := s.repo.List(ctx, opts.Normalize())
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, 0, internal.NewInternalError("failed to list users", err)
	}
	return FromDataModels(rows), total, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to get user", err)
	}
	if row == nil {
		return nil, internal.ErrUserNotFound
	}
	return FromDataModel(row), nil
}

// FindByEmail returns nil when no user has the email.
func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	row, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, internal.NewInternalError("failed to get user", err)
	}
	if row == nil {
		return nil, nil
	}
	return FromDataModel(row), nil
}

// Create inserts a user. Without roleIds the default "user" role is assigned.
// Without a password the account stays pending until an invitation is accepted.
func (s *Service) Create(ctx context.Context, dto CreateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	email := NormalizeEmail(dto.Email)
	username := strings.TrimSpace(dto.Username)
	if err := s.ensureAvailable(ctx, email, username); err != nil {
		return nil, err
	}

	roleIDs, err := s.resolveRoleIDs(ctx, dto.RoleIDs)
	if err != nil {
		return nil, err
	}

	u := &User{
		Email:        email,
		Username:     username,
		FirstName:    strings.TrimSpace(dto.FirstName),
		LastName:     strings.TrimSpace(dto.LastName),
		IsActive:     true,
		Status:       StatusPending,
		TempPassword: dto.TempPassword,
	}
	if dto.Password != "" {
		hash, err := s.hasher.Hash(dto.Password)
		if err != nil {
			return nil, internal.NewInternalError("failed to hash password", err)
		}
		u.PasswordHash = hash
		u.Status = StatusActive
	}

	row := ToDataModel(u)
	if err := s.repo.Create(ctx, row, roleIDs); err != nil {
		return nil, s.mapWriteError("failed to create user", err)
	}

	created, err := s.GetByID(ctx, row.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user created", "user_id", created.ID, "status", created.Status)
	events.PublishOrLog(ctx, s.publisher, s.logger, events.NewAuditedEvent(
		events.EventTypeUserCreated,
		events.ChangeFromContext(ctx, "user", created.ID, nil, snapshot(created)),
	))
	return created, nil
}

// Update patches profile fields. Deactivating a user ends all of their sessions.
func (s *Service) Update(ctx context.Context, id string, dto UpdateUserDTO) (*User, error) {
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
	if dto.Username != nil {
		username := strings.TrimSpace(*dto.Username)
		if username != current.Username {
			taken, err := s.repo.GetByUsername(ctx, username)
			if err != nil {
				return nil, internal.NewInternalError("failed to check username", err)
			}
			if taken != nil {
				return nil, internal.ErrUsernameTaken
			}
			fields["username"] = username
		}
	}
	if dto.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*dto.FirstName)
	}
	if dto.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*dto.LastName)
	}
	deactivating := false
	if dto.IsActive != nil && *dto.IsActive != current.IsActive {
		fields["is_active"] = *dto.IsActive
		if *dto.IsActive {
			// a reactivated account goes back to pending until it has a password
			if current.PasswordHash == "" {
				fields["status"] = string(StatusPending)
			} else {
				fields["status"] = string(StatusActive)
			}
		} else {
			fields["status"] = string(StatusInactive)
			deactivating = true
		}
	}
	if len(fields) == 0 {
		return current, nil
	}

	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, s.mapWriteError("failed to update user", err)
	}

	if deactivating && s.sessions != nil {
		n, err := s.sessions.DeactivateAllForUser(ctx, id)
		if err != nil {
			s.logger.Error("failed to revoke sessions of deactivated user", "user_id", id, "error", err)
			return nil, internal.NewInternalError("failed to revoke sessions", err)
		}
		s.logger.Info("sessions revoked", "user_id", id, "count", n)
	}

	updated, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	events.PublishOrLog(ctx, s.publisher, s.logger, events.NewAuditedEvent(
		events.EventTypeUserUpdated,
		events.ChangeFromContext(ctx, "user", id, snapshot(current), snapshot(updated)),
	))
	return updated, nil
}

// AssignRole is idempotent; assigning a role the user already holds is a no-op.
func (s *Service) AssignRole(ctx context.Context, userID string, dto AssignRoleDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	roleID, appErr := validation.ParseID(dto.RoleID)
	if appErr != nil {
		return nil, appErr
	}

	if err := s.repo.AssignRole(ctx, userID, roleID); err != nil {
		return nil, s.mapWriteError("failed to assign role", err)
	}

	updated, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("role assigned", "user_id", userID, "role_id", roleID)
	events.PublishOrLog(ctx, s.publisher, s.logger, events.NewAuditedEvent(
		events.EventTypeUserRoleAssigned,
		events.ChangeFromContext(ctx, "user", userID, nil, map[string]interface{}{"roleId": roleID}),
	))
	return updated, nil
}

// RemoveRole is idempotent; removing a role the user does not hold is a no-op.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID string) (*User, error) {
	if err := s.repo.RemoveRole(ctx, userID, roleID); err != nil {
		return nil, s.mapWriteError("failed to remove role", err)
	}

	updated, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("role removed", "user_id", userID, "role_id", roleID)
	events.PublishOrLog(ctx, s.publisher, s.logger, events.NewAuditedEvent(
		events.EventTypeUserRoleRemoved,
		events.ChangeFromContext(ctx, "user", userID, map[string]interface{}{"roleId": roleID}, nil),
	))
	return updated, nil
}

// RecordLogin stamps lastLoginAt.
func (s *Service) RecordLogin(ctx context.Context, id string, at time.Time) error {
	if err := s.repo.Update(ctx, id, map[string]interface{}{"last_login_at": at}); err != nil {
		return s.mapWriteError("failed to record login", err)
	}
	return nil
}

func (s *Service) ensureAvailable(ctx context.Context, email, username string) error {
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return internal.NewInternalError("failed to check email", err)
	}
	if existing != nil {
		return internal.ErrEmailTaken
	}
	existing, err = s.repo.GetByUsername(ctx, username)
	if err != nil {
		return internal.NewInternalError("failed to check username", err)
	}
	if existing != nil {
		return internal.ErrUsernameTaken
	}
	return nil
}

func (s *Service) resolveRoleIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) > 0 {
		out, appErr := validation.CanonicalIDs(ids)
		if appErr != nil {
			return nil, appErr
		}
		return out, nil
	}

	def, err := s.roles.FindByName(ctx, role.DefaultRoleName)
	if err != nil {
		return nil, err
	}
	if def == nil {
		s.logger.Error("default role is missing; run the seeder", "role", role.DefaultRoleName)
		return nil, internal.ErrDefaultRoleMissing
	}
	return []string{def.ID}, nil
}

func (s *Service) mapWriteError(msg string, err error) error {
	var appErr *internal.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if dberrors.IsUniqueViolation(err) {
		if strings.Contains(err.Error(), "username") {
			return internal.ErrUsernameTaken
		}
		return internal.ErrEmailTaken
	}
	s.logger.Error(msg, "error", err)
	return internal.NewInternalError(msg, err)
}

func snapshot(u *User) map[string]interface{} {
	return map[string]interface{}{
		"email":     u.Email,
		"username":  u.Username,
		"firstName": u.FirstName,
		"lastName":  u.LastName,
		"isActive":  u.IsActive,
		"status":    string(u.Status),
		"roles":     u.RoleNames(),
	}
}
