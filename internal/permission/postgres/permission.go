package postgres

import (
	"context"

	"gorm.io/gorm"

	permissionDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/permission"
	"github.com/launchkit/saas-starter-kit/internal/core/common/dberrors"
	"github.com/launchkit/saas-starter-kit/internal/permission"
)

type PermissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) permission.RepositoryAPI {
	return &PermissionRepository{db: db}
}

func (r *PermissionRepository) List(ctx context.Context) ([]permissionDatamodel.Permission, error) {
	var perms []permissionDatamodel.Permission
	err := r.db.WithContext(ctx).Order("resource ASC").Order("action ASC").Find(&perms).Error
	return perms, err
}

func (r *PermissionRepository) GetByID(ctx context.Context, id string) (*permissionDatamodel.Permission, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *PermissionRepository) GetByIDs(ctx context.Context, ids []string) ([]permissionDatamodel.Permission, error) {
	var perms []permissionDatamodel.Permission
	if len(ids) == 0 {
		return perms, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&perms).Error
	return perms, err
}

func (r *PermissionRepository) GetByResourceAction(ctx context.Context, resource, action string) (*permissionDatamodel.Permission, error) {
	return r.first(ctx, "resource = ? AND action = ?", resource, action)
}

func (r *PermissionRepository) GetByName(ctx context.Context, name string) (*permissionDatamodel.Permission, error) {
	return r.first(ctx, "name = ?", name)
}

func (r *PermissionRepository) Create(ctx context.Context, p *permissionDatamodel.Permission) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PermissionRepository) UpdateDescription(ctx context.Context, id, description string) error {
	return r.db.WithContext(ctx).
		Model(&permissionDatamodel.Permission{}).
		Where("id = ?", id).
		Update("description", description).Error
}

func (r *PermissionRepository) first(ctx context.Context, query string, args ...interface{}) (*permissionDatamodel.Permission, error) {
	var p permissionDatamodel.Permission
	err := r.db.WithContext(ctx).Where(query, args...).First(&p).Error
	if err != nil {
		if dberrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
