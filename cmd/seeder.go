package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	permissionDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/permission"
	roleDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/role"
	userDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/user"
	"github.com/launchkit/saas-starter-kit/internal/permission"
	"github.com/launchkit/saas-starter-kit/internal/role"
	"github.com/launchkit/saas-starter-kit/internal/user"
	"github.com/launchkit/saas-starter-kit/pkg/password"
)

const (
	seedAdminEmail    = "admin@example.com"
	seedAdminUsername = "admin"
	seedAdminPassword = "admin123"
)

type seedPermission struct {
	Resource    string
	Action      string
	Description string
}

var seedPermissions = []seedPermission{
	{"users", "create", "Create users"},
	{"users", "read", "View users"},
	{"users", "update", "Update users"},
	{"users", "delete", "Delete users"},
	{"roles", "create", "Create roles"},
	{"roles", "read", "View roles"},
	{"roles", "update", "Update roles"},
	{"roles", "delete", "Delete roles"},
	{"permissions", "read", "View permissions"},
	{"audit", "read", "View audit logs"},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the permission catalog, default roles and admin user",
	Long:  `Seed the database with the permission catalog, the admin and user roles, and a development admin account. Safe to run repeatedly.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gdb, err := initGorm(db, false)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		hasher, err := password.NewArgon2(password.DefaultParams())
		if err != nil {
			log.Fatalf("failed to init hasher: %v", err)
		}

		if err := seed(cmd.Context(), gdb, hasher); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
		fmt.Println("Seed completed")
	},
}

func seed(ctx context.Context, db *gorm.DB, hasher *password.Argon2) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		perms := make(map[string]string, len(seedPermissions))
		for _, sp := range seedPermissions {
			p := permission.NewPermission(sp.Resource, sp.Action, sp.Description)
			row := permissionDatamodel.Permission{}
			err := tx.Where(permissionDatamodel.Permission{Resource: p.Resource, Action: p.Action}).
				Attrs(permissionDatamodel.Permission{Name: p.Name, Description: p.Description}).
				FirstOrCreate(&row).Error
			if err != nil {
				return fmt.Errorf("permission %s: %w", p.Name, err)
			}
			perms[row.Name] = row.ID
		}

		all := make([]string, 0, len(perms))
		for _, id := range perms {
			all = append(all, id)
		}

		adminRoleID, err := seedRole(tx, role.AdminRoleName, "Full administrative access", all)
		if err != nil {
			return err
		}
		if _, err := seedRole(tx, role.DefaultRoleName, "Standard user access", []string{perms[permission.UsersRead]}); err != nil {
			return err
		}

		return seedAdmin(tx, hasher, adminRoleID)
	})
}

func seedRole(tx *gorm.DB, name, description string, permissionIDs []string) (string, error) {
	row := roleDatamodel.Role{}
	err := tx.Where(roleDatamodel.Role{Name: name}).
		Attrs(roleDatamodel.Role{Description: description, IsActive: true}).
		Omit(clause.Associations).
		FirstOrCreate(&row).Error
	if err != nil {
		return "", fmt.Errorf("role %s: %w", name, err)
	}

	links := make([]roleDatamodel.RolePermission, 0, len(permissionIDs))
	for _, pid := range permissionIDs {
		links = append(links, roleDatamodel.RolePermission{RoleID: row.ID, PermissionID: pid})
	}
	if len(links) > 0 {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
			return "", fmt.Errorf("role %s permissions: %w", name, err)
		}
	}
	fmt.Printf("Seeded role %s with %d permissions\n", name, len(permissionIDs))
	return row.ID, nil
}

func seedAdmin(tx *gorm.DB, hasher *password.Argon2, adminRoleID string) error {
	var existing userDatamodel.User
	err := tx.Where("email = ?", seedAdminEmail).First(&existing).Error
	switch {
	case err == nil:
		fmt.Println("admin user already exists; ensuring admin role")
	case errors.Is(err, gorm.ErrRecordNotFound):
		hash, err := hasher.Hash(seedAdminPassword)
		if err != nil {
			return err
		}
		existing = userDatamodel.User{
			Email:        seedAdminEmail,
			Username:     seedAdminUsername,
			PasswordHash: hash,
			FirstName:    "Admin",
			LastName:     "User",
			IsActive:     true,
			IsVerified:   true,
			Status:       string(user.StatusActive),
		}
		if err := tx.Omit(clause.Associations).Create(&existing).Error; err != nil {
			return fmt.Errorf("admin user: %w", err)
		}
		fmt.Println("Seeded admin user:", seedAdminEmail)
	default:
		return err
	}

	link := userDatamodel.UserRole{UserID: existing.ID, RoleID: adminRoleID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
		return fmt.Errorf("admin role assignment: %w", err)
	}
	return nil
}

