package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, f Filter) ([]Entry, int64, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// GetAuditLogs handles GET /audit-logs
func (h *Handler) GetAuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := Filter{
		UserID:   q.Get("userId"),
		Resource: q.Get("resource"),
		Action:   q.Get("action"),
		Limit:    transport.QueryInt(r, "limit", DefaultListLimit),
		Offset:   transport.QueryInt(r, "offset", 0),
	}

	var err error
	if f.StartDate, err = parseDate(q.Get("startDate")); err != nil {
		h.WriteAppError(w, r, internal.NewValidationFieldError("startDate", "startDate must be an RFC 3339 timestamp or YYYY-MM-DD", internal.ErrCodeValidationFailed))
		return
	}
	if f.EndDate, err = parseDate(q.Get("endDate")); err != nil {
		h.WriteAppError(w, r, internal.NewValidationFieldError("endDate", "endDate must be an RFC 3339 timestamp or YYYY-MM-DD", internal.ErrCodeValidationFailed))
		return
	}
	f = f.Normalize()

	entries, total, err := h.Service.List(r.Context(), f)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, transport.NewPaginated(entries, total, f.Limit, f.Offset))
}

func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
