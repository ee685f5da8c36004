package audit

import (
	"time"

	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/internal/core/common/validation"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

type Filter struct {
	UserID    string
	Resource  string
	Action    string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// Normalize applies limit 50 clamped to [1,100] and offset >= 0.
func (f Filter) Normalize() Filter {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultListLimit
	case f.Limit > MaxListLimit:
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

func (f Filter) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("userId", f.UserID).UUID()
	v.Field("resource", f.Resource).MaxLength(50)
	v.Field("action", f.Action).MaxLength(100)
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return internal.NewValidationFieldError("endDate", "endDate must not be before startDate", internal.ErrCodeValidationFailed)
	}
	return v.Validate()
}
