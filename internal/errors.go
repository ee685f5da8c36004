package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeBadRequest      ErrorType = "BAD_REQUEST"
	ErrorTypeValidation      ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound        ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized    ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden       ErrorType = "FORBIDDEN"
	ErrorTypeConflict        ErrorType = "CONFLICT"
	ErrorTypeTooManyRequests ErrorType = "TOO_MANY_REQUESTS"
	ErrorTypeInternal        ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidID        ErrorCode = "INVALID_ID"
	ErrCodeInvalidBody      ErrorCode = "INVALID_BODY"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUnauthenticated    ErrorCode = "UNAUTHENTICATED"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeInsufficientAccess ErrorCode = "INSUFFICIENT_PERMISSIONS"
	ErrCodeTooManyAttempts    ErrorCode = "TOO_MANY_ATTEMPTS"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"

	ErrCodeUserNotFound       ErrorCode = "USER_NOT_FOUND"
	ErrCodeEmailTaken         ErrorCode = "EMAIL_TAKEN"
	ErrCodeUsernameTaken      ErrorCode = "USERNAME_TAKEN"
	ErrCodeRoleNotFound       ErrorCode = "ROLE_NOT_FOUND"
	ErrCodeRoleNameTaken      ErrorCode = "ROLE_NAME_TAKEN"
	ErrCodeDefaultRoleMissing ErrorCode = "DEFAULT_ROLE_MISSING"
	ErrCodePermissionNotFound ErrorCode = "PERMISSION_NOT_FOUND"
	ErrCodePermissionExists   ErrorCode = "PERMISSION_EXISTS"
	ErrCodeUnknownPermission  ErrorCode = "UNKNOWN_PERMISSION"

	ErrCodeInvitationNotFound ErrorCode = "INVITATION_NOT_FOUND"
	ErrCodeInvitationUsed     ErrorCode = "INVITATION_NOT_PENDING"
	ErrCodeInvitationExpired  ErrorCode = "INVITATION_EXPIRED"
	ErrCodeInvitationPending  ErrorCode = "INVITATION_ALREADY_PENDING"

	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

type AppError struct {
	Type       ErrorType   `json:"error"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			messages := make([]string, len(validationErrors.Errors))
			for i, err := range validationErrors.Errors {
				messages[i] = err.Message
			}
			return strings.Join(messages, "; ")
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on type and code so sentinel errors work with errors.Is
// even after WithCause/WithDetails copies.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithCause returns a copy carrying cause, leaving shared sentinels untouched.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

func (e *AppError) WithMessage(message string) *AppError {
	cp := *e
	cp.Message = message
	return &cp
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewBadRequestError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeBadRequest,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewTooManyRequestsError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeTooManyRequests,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       ErrCodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrInvalidID   = NewBadRequestError("Invalid id format", ErrCodeInvalidID)
	ErrInvalidBody = NewBadRequestError("Invalid request body", ErrCodeInvalidBody)

	ErrInvalidCredentials = NewUnauthorizedError("Invalid credentials", ErrCodeInvalidCredentials)
	ErrUnauthenticated    = NewUnauthorizedError("Authentication required", ErrCodeUnauthenticated)
	ErrInvalidToken       = NewUnauthorizedError("Invalid or expired token", ErrCodeInvalidToken)
	ErrForbidden          = NewForbiddenError("Insufficient permissions", ErrCodeInsufficientAccess)
	ErrTooManyAttempts    = NewTooManyRequestsError("Too many login attempts, try again later", ErrCodeTooManyAttempts)
	ErrRateLimited        = NewTooManyRequestsError("Rate limit exceeded", ErrCodeRateLimited)

	ErrUserNotFound       = NewNotFoundError("User not found", ErrCodeUserNotFound)
	ErrEmailTaken         = NewConflictError("Email is already registered", ErrCodeEmailTaken)
	ErrUsernameTaken      = NewConflictError("Username is already taken", ErrCodeUsernameTaken)
	ErrRoleNotFound       = NewNotFoundError("Role not found", ErrCodeRoleNotFound)
	ErrRoleNameTaken      = NewConflictError("Role name is already taken", ErrCodeRoleNameTaken)
	ErrPermissionNotFound = NewNotFoundError("Permission not found", ErrCodePermissionNotFound)
	ErrPermissionExists   = NewConflictError("Permission already exists", ErrCodePermissionExists)
	ErrUnknownPermission  = NewBadRequestError("Unknown permission id", ErrCodeUnknownPermission)

	ErrInvitationNotFound = NewNotFoundError("Invitation not found", ErrCodeInvitationNotFound)
	ErrInvitationUsed     = NewConflictError("Invitation already used or cancelled", ErrCodeInvitationUsed)
	ErrInvitationExpired  = NewConflictError("Invitation has expired", ErrCodeInvitationExpired)
	ErrInvitationPending  = NewConflictError("A pending invitation already exists for this email", ErrCodeInvitationPending)

	ErrSessionNotFound = NewUnauthorizedError("Session not found or expired", ErrCodeSessionNotFound)

	ErrDefaultRoleMissing = &AppError{
		Type:       ErrorTypeInternal,
		Code:       ErrCodeDefaultRoleMissing,
		Message:    "Default user role not found",
		StatusCode: http.StatusInternalServerError,
	}
)

// IsAppError unwraps err looking for an *AppError.
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error   ErrorType   `json:"error"`
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ToHTTPResponse renders the error body. The cause is only exposed when
// exposeCause is set (development).
func (e *AppError) ToHTTPResponse(exposeCause bool) (int, Response) {
	msg := e.Message
	if e.Type == ErrorTypeInternal {
		if exposeCause && e.Cause != nil {
			msg = fmt.Sprintf("%s: %v", e.Message, e.Cause)
		} else {
			msg = "Internal server error"
		}
	}
	status := e.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return status, Response{
		Error:   e.Type,
		Code:    e.Code,
		Message: msg,
		Details: e.Details,
	}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	_, resp := e.ToHTTPResponse(false)
	return json.Marshal(resp)
}
