package auth

import (
	"time"

	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/internal/core/common/validation"
	"github.com/launchkit/saas-starter-kit/internal/user"
)

type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d LoginDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required()
	return v.Validate()
}

type RegisterDTO struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

func (d RegisterDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().MaxLength(255).Email()
	v.Field("username", d.Username).Required().MinLength(3).MaxLength(50)
	v.Field("password", d.Password).Required().MinLength(8).MaxLength(128)
	v.Field("firstName", d.FirstName).MaxLength(100)
	v.Field("lastName", d.LastName).MaxLength(100)
	return v.Validate()
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refreshToken"`
}

func (d RefreshTokenDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("refreshToken", d.RefreshToken).Required()
	return v.Validate()
}

type LogoutDTO struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// LoginResult is returned by Login and Refresh.
type LoginResult struct {
	User         *user.User `json:"user"`
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	ExpiresAt    time.Time  `json:"expiresAt"`
}

// MeResponse is the current user with their effective permissions.
type MeResponse struct {
	User        *user.User `json:"user"`
	Permissions []string   `json:"permissions"`
	IsAdmin     bool       `json:"isAdmin"`
}
