package user

import (
	"regexp"

	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/internal/core/common/validation"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

type ListOptions struct {
	Limit           int
	Offset          int
	IncludeInactive bool
}

// Normalize applies the listing defaults: limit 20 clamped to [1,100], offset >= 0.
func (o ListOptions) Normalize() ListOptions {
	switch {
	case o.Limit <= 0:
		o.Limit = DefaultListLimit
	case o.Limit > MaxListLimit:
		o.Limit = MaxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

type CreateUserDTO struct {
	Email        string   `json:"email"`
	Username     string   `json:"username"`
	FirstName    string   `json:"firstName,omitempty"`
	LastName     string   `json:"lastName,omitempty"`
	Password     string   `json:"password,omitempty"`
	RoleIDs      []string `json:"roleIds,omitempty"`
	TempPassword bool     `json:"tempPassword,omitempty"`
}

func (d CreateUserDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().MaxLength(255).Email()
	v.Field("username", d.Username).Required().MinLength(3).MaxLength(50).
		Matches(usernamePattern, "username may only contain letters, digits, '.', '_' and '-'")
	v.Field("firstName", d.FirstName).MaxLength(100)
	v.Field("lastName", d.LastName).MaxLength(100)
	if d.Password != "" {
		v.Field("password", d.Password).MinLength(8).MaxLength(128)
	}
	v.Field("roleIds", d.RoleIDs).UUID()
	return v.Validate()
}

type UpdateUserDTO struct {
	Username  *string `json:"username,omitempty"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	IsActive  *bool   `json:"isActive,omitempty"`
}

func (d UpdateUserDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	if d.Username != nil {
		v.Field("username", d.Username).Required().MinLength(3).MaxLength(50).
			Matches(usernamePattern, "username may only contain letters, digits, '.', '_' and '-'")
	}
	v.Field("firstName", d.FirstName).MaxLength(100)
	v.Field("lastName", d.LastName).MaxLength(100)
	return v.Validate()
}

func (d UpdateUserDTO) IsEmpty() bool {
	return d.Username == nil && d.FirstName == nil && d.LastName == nil && d.IsActive == nil
}

type AssignRoleDTO struct {
	RoleID string `json:"roleId"`
}

func (d AssignRoleDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("roleId", d.RoleID).Required().UUID()
	return v.Validate()
}
