package role

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	permissionDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/permission"
)

type Role struct {
	ID          string                           `gorm:"primaryKey;column:id;type:uuid"`
	Name        string                           `gorm:"column:name;uniqueIndex;not null"`
	Description string                           `gorm:"column:description"`
	IsActive    bool                             `gorm:"column:is_active;not null"`
	Permissions []permissionDatamodel.Permission `gorm:"many2many:role_permissions"`
	CreatedAt   time.Time                        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                        `gorm:"column:updated_at;autoUpdateTime"`
}

func (Role) TableName() string {
	return "roles"
}

func (r *Role) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// RolePermission is a row of the role_permissions join table.
type RolePermission struct {
	RoleID       string `gorm:"primaryKey;column:role_id;type:uuid"`
	PermissionID string `gorm:"primaryKey;column:permission_id;type:uuid"`
}

func (RolePermission) TableName() string {
	return "role_permissions"
}
