package role

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/launchkit/saas-starter-kit/internal/core/common/validation"
	"github.com/launchkit/saas-starter-kit/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, includeInactive bool) ([]Role, error)
	GetByID(ctx context.Context, id string) (*Role, error)
	Create(ctx context.Context, dto CreateRoleDTO) (*Role, error)
	Update(ctx context.Context, id string, dto UpdateRoleDTO) (*Role, error)
	ReplacePermissions(ctx context.Context, roleID string, dto ReplacePermissionsDTO) (*Role, error)
	AddPermission(ctx context.Context, roleID, permissionID string) (*Role, error)
	RemovePermission(ctx context.Context, roleID, permissionID string) (*Role, error)
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

// GetRoles handles GET /roles
func (h *Handler) GetRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Service.List(r.Context(), transport.QueryBool(r, "includeInactive"))
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, RolesResponse{Roles: roles})
}

// GetRole handles GET /roles/{id}
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	id, appErr := validation.ParseID(chi.URLParam(r, "id"))
	if appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}

	role, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, role)
}

// CreateRole handles POST /roles
func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var dto CreateRoleDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	role, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, role)
}

// UpdateRole handles PATCH /roles/{id}
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, appErr := validation.ParseID(chi.URLParam(r, "id"))
	if appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}

	var dto UpdateRoleDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	role, err := h.Service.Update(r.Context(), id, dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, role)
}

// ReplaceRolePermissions handles PUT /roles/{id}/permissions
func (h *Handler) ReplaceRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, appErr := validation.ParseID(chi.URLParam(r, "id"))
	if appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}

	var dto ReplacePermissionsDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	role, err := h.Service.ReplacePermissions(r.Context(), id, dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, role)
}

// AddRolePermission handles POST /roles/{id}/permissions/{permissionId}
func (h *Handler) AddRolePermission(w http.ResponseWriter, r *http.Request) {
	roleID, permissionID, ok := h.rolePermissionParams(w, r)
	if !ok {
		return
	}

	role, err := h.Service.AddPermission(r.Context(), roleID, permissionID)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, role)
}

// RemoveRolePermission handles DELETE /roles/{id}/permissions/{permissionId}
func (h *Handler) RemoveRolePermission(w http.ResponseWriter, r *http.Request) {
	roleID, permissionID, ok := h.rolePermissionParams(w, r)
	if !ok {
		return
	}

	role, err := h.Service.RemovePermission(r.Context(), roleID, permissionID)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, role)
}

func (h *Handler) rolePermissionParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	roleID, appErr := validation.ParseID(chi.URLParam(r, "id"))
	if appErr != nil {
		h.WriteAppError(w, r, appErr)
		return "", "", false
	}
	permissionID, appErr := validation.ParseID(chi.URLParam(r, "permissionId"))
	if appErr != nil {
		h.WriteAppError(w, r, appErr)
		return "", "", false
	}
	return roleID, permissionID, true
}
