package invitation

import (
	"regexp"

	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/internal/core/common/validation"
)

var tokenPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

type CreateInvitationDTO struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

func (d CreateInvitationDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("userId", d.UserID).Required().UUID()
	v.Field("email", d.Email).Required().MaxLength(255).Email()
	return v.Validate()
}

type AcceptInvitationDTO struct {
	Password string `json:"password"`
}

func (d AcceptInvitationDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("password", d.Password).Required().MinLength(8).MaxLength(128)
	return v.Validate()
}

type AcceptResult struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

type InvitationsResponse struct {
	Invitations []Invitation `json:"invitations"`
}

// ValidToken reports whether token has the shape GenerateToken produces.
func ValidToken(token string) bool {
	return tokenPattern.MatchString(token)
}
