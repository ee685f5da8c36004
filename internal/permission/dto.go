package permission

import (
	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/internal/core/common/validation"
)

type CreatePermissionDTO struct {
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`
}

func (d CreatePermissionDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("resource", NormalizeSegment(d.Resource)).
		Required().
		MaxLength(50).
		Matches(segmentPattern, "resource must contain only lowercase letters and underscores")
	v.Field("action", NormalizeSegment(d.Action)).
		Required().
		MaxLength(50).
		Matches(segmentPattern, "action must contain only lowercase letters and underscores")
	v.Field("description", d.Description).MaxLength(255)
	return v.Validate()
}

type UpdatePermissionDTO struct {
	Description *string `json:"description,omitempty"`
}

func (d UpdatePermissionDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("description", d.Description).MaxLength(255)
	return v.Validate()
}

type PermissionsResponse struct {
	Permissions []Permission `json:"permissions"`
}
