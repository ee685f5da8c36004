package user

import (
	"sort"

	"github.com/launchkit/saas-starter-kit/internal/permission"
	"github.com/launchkit/saas-starter-kit/internal/role"
)

// PermissionSet is a user's effective permissions keyed by "resource:action".
// It is derived per request and never stored.
type PermissionSet map[string]struct{}

func (s PermissionSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the permission names in sorted order.
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PermissionsOf unions the permissions of u's active roles. A nil or
// inactive user has none.
func PermissionsOf(u *User) PermissionSet {
	set := make(PermissionSet)
	if u == nil || !u.IsActive {
		return set
	}
	for _, r := range u.Roles {
		if !r.IsActive {
			continue
		}
		for _, p := range r.Permissions {
			set[p.Name] = struct{}{}
		}
	}
	return set
}

func HasPermission(u *User, name string) bool {
	return PermissionsOf(u).Has(name)
}

// HasAnyPermission is false for an empty list.
func HasAnyPermission(u *User, names []string) bool {
	set := PermissionsOf(u)
	for _, name := range names {
		if set.Has(name) {
			return true
		}
	}
	return false
}

// HasAllPermissions is true for an empty list.
func HasAllPermissions(u *User, names []string) bool {
	set := PermissionsOf(u)
	for _, name := range names {
		if !set.Has(name) {
			return false
		}
	}
	return true
}

// IsAdmin checks for a role named "admin", regardless of that role's
// active flag. Renaming the admin role revokes admin status.
func IsAdmin(u *User) bool {
	if u == nil || !u.IsActive {
		return false
	}
	for _, r := range u.Roles {
		if r.Name == role.AdminRoleName {
			return true
		}
	}
	return false
}

func CanManageUsers(u *User) bool {
	return HasAnyPermission(u, []string{permission.UsersCreate, permission.UsersUpdate, permission.UsersDelete})
}

func CanViewUsers(u *User) bool {
	return HasPermission(u, permission.UsersRead)
}

func CanManageRoles(u *User) bool {
	return HasAnyPermission(u, []string{permission.RolesCreate, permission.RolesUpdate, permission.RolesDelete})
}

func CanViewRoles(u *User) bool {
	return HasPermission(u, permission.RolesRead)
}
