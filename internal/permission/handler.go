package permission

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/launchkit/saas-starter-kit/internal/core/common/validation"
	"github.com/launchkit/saas-starter-kit/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context) ([]Permission, error)
	GetByID(ctx context.Context, id string) (*Permission, error)
	Create(ctx context.Context, dto CreatePermissionDTO) (*Permission, error)
	Update(ctx context.Context, id string, dto UpdatePermissionDTO) (*Permission, error)
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

// GetPermissions handles GET /permissions
func (h *Handler) GetPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.Service.List(r.Context())
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, PermissionsResponse{Permissions: perms})
}

// GetPermission handles GET /permissions/{id}
func (h *Handler) GetPermission(w http.ResponseWriter, r *http.Request) {
	id, appErr := validation.ParseID(chi.URLParam(r, "id"))
	if appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}

	p, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

// CreatePermission handles POST /permissions
func (h *Handler) CreatePermission(w http.ResponseWriter, r *http.Request) {
	var dto CreatePermissionDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	p, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, p)
}

// UpdatePermission handles PATCH /permissions/{id}
func (h *Handler) UpdatePermission(w http.ResponseWriter, r *http.Request) {
	id, appErr := validation.ParseID(chi.URLParam(r, "id"))
	if appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}

	var dto UpdatePermissionDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	p, err := h.Service.Update(r.Context(), id, dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}
