package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/internal/core/common/dberrors"
	roleDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/role"
	userDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/user"
	"github.com/launchkit/saas-starter-kit/internal/user"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.RepositoryAPI {
	return &UserRepository{db: db}
}

// withRoles preloads roles and their permissions in a stable order.
func withRoles(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Roles", func(db *gorm.DB) *gorm.DB { return db.Order("roles.name ASC") }).
		Preload("Roles.Permissions", func(db *gorm.DB) *gorm.DB {
			return db.Order("permissions.resource ASC").Order("permissions.action ASC")
		})
}

func (r *UserRepository) List(ctx context.Context, opts user.ListOptions) ([]userDatamodel.User, int64, error) {
	base := r.db.WithContext(ctx).Model(&userDatamodel.User{})
	if !opts.IncludeInactive {
		base = base.Where("status <> ?", string(user.StatusInactive))
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []userDatamodel.User
	err := withRoles(base.Session(&gorm.Session{})).
		Order("created_at DESC").
		Order("id ASC").
		Limit(opts.Limit).
		Offset(opts.Offset).
		Find(&users).Error
	return users, total, err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*userDatamodel.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *UserRepository) Create(ctx context.Context, u *userDatamodel.User, roleIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(roleIDs) > 0 {
			var count int64
			if err := tx.Model(&roleDatamodel.Role{}).Where("id IN ?", roleIDs).Count(&count).Error; err != nil {
				return err
			}
			if count != int64(len(roleIDs)) {
				return internal.ErrRoleNotFound
			}
		}
		if err := tx.Omit(clause.Associations).Create(u).Error; err != nil {
			return err
		}
		return insertUserRoles(tx, u.ID, roleIDs)
	})
}

func (r *UserRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}

// AssignRole inserts the user_roles row with ON CONFLICT DO NOTHING so a
// repeated assignment is a no-op.
func (r *UserRepository) AssignRole(ctx context.Context, userID, roleID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &userDatamodel.User{}, userID, internal.ErrUserNotFound); err != nil {
			return err
		}
		if err := exists(tx, &roleDatamodel.Role{}, roleID, internal.ErrRoleNotFound); err != nil {
			return err
		}
		return insertUserRoles(tx, userID, []string{roleID})
	})
}

func (r *UserRepository) RemoveRole(ctx context.Context, userID, roleID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Delete(&userDatamodel.UserRole{}).Error
}

func (r *UserRepository) first(ctx context.Context, query string, args ...interface{}) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := withRoles(r.db.WithContext(ctx)).Where(query, args...).First(&u).Error
	if err != nil {
		if dberrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func exists(tx *gorm.DB, model interface{}, id string, notFound error) error {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return notFound
	}
	return nil
}

func insertUserRoles(tx *gorm.DB, userID string, roleIDs []string) error {
	if len(roleIDs) == 0 {
		return nil
	}
	rows := make([]userDatamodel.UserRole, 0, len(roleIDs))
	for _, id := range roleIDs {
		rows = append(rows, userDatamodel.UserRole{UserID: userID, RoleID: id})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}
