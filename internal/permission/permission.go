package permission

import (
	"regexp"
	"strings"
	"time"

	permissionDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/permission"
)

// Permission is an atomic (resource, action) capability. Name is always resource:action.
type Permission struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Catalog permissions the API gates on.
const (
	UsersCreate     = "users:create"
	UsersRead       = "users:read"
	UsersUpdate     = "users:update"
	UsersDelete     = "users:delete"
	RolesCreate     = "roles:create"
	RolesRead       = "roles:read"
	RolesUpdate     = "roles:update"
	RolesDelete     = "roles:delete"
	PermissionsRead = "permissions:read"
	AuditRead       = "audit:read"
)

var segmentPattern = regexp.MustCompile(`^[a-z][a-z_]*$`)

func NameFor(resource, action string) string {
	return resource + ":" + action
}

func NormalizeSegment(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func NewPermission(resource, action, description string) *Permission {
	resource = NormalizeSegment(resource)
	action = NormalizeSegment(action)
	return &Permission{
		Resource:    resource,
		Action:      action,
		Name:        NameFor(resource, action),
		Description: strings.TrimSpace(description),
	}
}

func ToDataModel(p *Permission) *permissionDatamodel.Permission {
	return &permissionDatamodel.Permission{
		ID:          p.ID,
		Name:        p.Name,
		Resource:    p.Resource,
		Action:      p.Action,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func FromDataModel(p *permissionDatamodel.Permission) *Permission {
	return &Permission{
		ID:          p.ID,
		Name:        p.Name,
		Resource:    p.Resource,
		Action:      p.Action,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func FromDataModels(rows []permissionDatamodel.Permission) []Permission {
	out := make([]Permission, 0, len(rows))
	for i := range rows {
		out = append(out, *FromDataModel(&rows[i]))
	}
	return out
}
