package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/internal/core/common/dberrors"
	permissionDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/permission"
	roleDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/role"
	"github.com/launchkit/saas-starter-kit/internal/role"
)

type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) role.RepositoryAPI {
	return &RoleRepository{db: db}
}

func orderedPermissions(db *gorm.DB) *gorm.DB {
	return db.Order("permissions.resource ASC").Order("permissions.action ASC")
}

func (r *RoleRepository) List(ctx context.Context, includeInactive bool) ([]roleDatamodel.Role, error) {
	var roles []roleDatamodel.Role
	q := r.db.WithContext(ctx).Preload("Permissions", orderedPermissions).Order("name ASC")
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	err := q.Find(&roles).Error
	return roles, err
}

func (r *RoleRepository) GetByID(ctx context.Context, id string) (*roleDatamodel.Role, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *RoleRepository) GetByName(ctx context.Context, name string) (*roleDatamodel.Role, error) {
	return r.first(ctx, "name = ?", name)
}

func (r *RoleRepository) Create(ctx context.Context, row *roleDatamodel.Role, permissionIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensurePermissionsExist(tx, permissionIDs); err != nil {
			return err
		}
		// Omit associations; the join rows are written explicitly below.
		if err := tx.Omit(clause.Associations).Create(row).Error; err != nil {
			return err
		}
		return insertRolePermissions(tx, row.ID, permissionIDs)
	})
}

func (r *RoleRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&roleDatamodel.Role{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrRoleNotFound
	}
	return nil
}

func (r *RoleRepository) ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureRoleExists(tx, roleID); err != nil {
			return err
		}
		if err := ensurePermissionsExist(tx, permissionIDs); err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", roleID).Delete(&roleDatamodel.RolePermission{}).Error; err != nil {
			return err
		}
		if err := insertRolePermissions(tx, roleID, permissionIDs); err != nil {
			return err
		}
		return tx.Model(&roleDatamodel.Role{}).Where("id = ?", roleID).Update("updated_at", time.Now()).Error
	})
}

func (r *RoleRepository) AddPermission(ctx context.Context, roleID, permissionID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureRoleExists(tx, roleID); err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&permissionDatamodel.Permission{}).Where("id = ?", permissionID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return internal.ErrPermissionNotFound
		}
		return insertRolePermissions(tx, roleID, []string{permissionID})
	})
}

func (r *RoleRepository) RemovePermission(ctx context.Context, roleID, permissionID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureRoleExists(tx, roleID); err != nil {
			return err
		}
		return tx.Where("role_id = ? AND permission_id = ?", roleID, permissionID).
			Delete(&roleDatamodel.RolePermission{}).Error
	})
}

func (r *RoleRepository) first(ctx context.Context, query string, args ...interface{}) (*roleDatamodel.Role, error) {
	var row roleDatamodel.Role
	err := r.db.WithContext(ctx).Preload("Permissions", orderedPermissions).Where(query, args...).First(&row).Error
	if err != nil {
		if dberrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func ensureRoleExists(tx *gorm.DB, roleID string) error {
	var count int64
	if err := tx.Model(&roleDatamodel.Role{}).Where("id = ?", roleID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return internal.ErrRoleNotFound
	}
	return nil
}

func ensurePermissionsExist(tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	var found []string
	if err := tx.Model(&permissionDatamodel.Permission{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return err
	}
	if len(found) == len(ids) {
		return nil
	}

	known := make(map[string]struct{}, len(found))
	for _, id := range found {
		known[id] = struct{}{}
	}
	missing := make([]string, 0, len(ids)-len(found))
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	return internal.ErrUnknownPermission.WithDetails(map[string]interface{}{"unknownIds": missing})
}

func insertRolePermissions(tx *gorm.DB, roleID string, permissionIDs []string) error {
	if len(permissionIDs) == 0 {
		return nil
	}
	rows := make([]roleDatamodel.RolePermission, 0, len(permissionIDs))
	for _, id := range permissionIDs {
		rows = append(rows, roleDatamodel.RolePermission{RoleID: roleID, PermissionID: id})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}
