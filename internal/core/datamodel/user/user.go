package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	roleDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/role"
)

type User struct {
	ID           string               `gorm:"primaryKey;column:id;type:uuid"`
	Email        string               `gorm:"column:email;uniqueIndex;not null"`
	Username     string               `gorm:"column:username;uniqueIndex;not null"`
	PasswordHash string               `gorm:"column:password_hash;not null"`
	FirstName    string               `gorm:"column:first_name"`
	LastName     string               `gorm:"column:last_name"`
	IsActive     bool                 `gorm:"column:is_active;not null"`
	IsVerified   bool                 `gorm:"column:is_verified;not null"`
	Status       string               `gorm:"column:status;not null"`
	TempPassword bool                 `gorm:"column:temp_password;not null"`
	LastLoginAt  *time.Time           `gorm:"column:last_login_at"`
	Roles        []roleDatamodel.Role `gorm:"many2many:user_roles"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type UserRole struct {
	UserID string `gorm:"primaryKey;column:user_id;type:uuid"`
	RoleID string `gorm:"primaryKey;column:role_id;type:uuid"`
}

func (UserRole) TableName() string {
	return "user_roles"
}
