package role

import (
	"regexp"
	"strings"
	"time"

	roleDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/role"
	"github.com/launchkit/saas-starter-kit/internal/permission"
)

const (
	AdminRoleName   = "admin"
	DefaultRoleName = "user"
)

// Role is a named bundle of permissions. An inactive role grants nothing.
type Role struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Description string                  `json:"description,omitempty"`
	IsActive    bool                    `json:"isActive"`
	Permissions []permission.Permission `json:"permissions"`
	CreatedAt   time.Time               `json:"createdAt"`
	UpdatedAt   time.Time               `json:"updatedAt"`
}

var invalidNameChars = regexp.MustCompile(`[^a-z_]`)

// NormalizeName maps "Billing Admin" to "billing_admin".
func NormalizeName(name string) string {
	return invalidNameChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
}

func NewRole(name, description string) *Role {
	return &Role{
		Name:        NormalizeName(name),
		Description: strings.TrimSpace(description),
		IsActive:    true,
		Permissions: []permission.Permission{},
	}
}

func (r *Role) PermissionNames() []string {
	names := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		names = append(names, p.Name)
	}
	return names
}

func ToDataModel(r *Role) *roleDatamodel.Role {
	return &roleDatamodel.Role{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func FromDataModel(r *roleDatamodel.Role) *Role {
	return &Role{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		IsActive:    r.IsActive,
		Permissions: permission.FromDataModels(r.Permissions),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func FromDataModels(rows []roleDatamodel.Role) []Role {
	out := make([]Role, 0, len(rows))
	for i := range rows {
		out = append(out, *FromDataModel(&rows[i]))
	}
	return out
}
