package role

import (
	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/internal/core/common/validation"
)

type CreateRoleDTO struct {
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	PermissionIDs []string `json:"permissionIds,omitempty"`
}

func (d CreateRoleDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(50)
	v.Field("normalizedName", NormalizeName(d.Name)).Custom(nonBlankName)
	v.Field("description", d.Description).MaxLength(255)
	v.Field("permissionIds", d.PermissionIDs).UUID()
	return v.Validate()
}

type UpdateRoleDTO struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

func (d UpdateRoleDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	if d.Name != nil {
		v.Field("name", d.Name).Required().MaxLength(50)
		v.Field("normalizedName", NormalizeName(*d.Name)).Custom(nonBlankName)
	}
	v.Field("description", d.Description).MaxLength(255)
	return v.Validate()
}

func (d UpdateRoleDTO) IsEmpty() bool {
	return d.Name == nil && d.Description == nil && d.IsActive == nil
}

type ReplacePermissionsDTO struct {
	PermissionIDs []string `json:"permissionIds"`
}

func (d ReplacePermissionsDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("permissionIds", d.PermissionIDs).UUID()
	return v.Validate()
}

type RolesResponse struct {
	Roles []Role `json:"roles"`
}

// a name made only of underscores carries no letters
func nonBlankName(value interface{}) *internal.AppError {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	for _, c := range s {
		if c != '_' {
			return nil
		}
	}
	return internal.NewValidationFieldError("name", "name must contain at least one letter", internal.ErrCodeValidationFailed)
}
