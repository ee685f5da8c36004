package user

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/launchkit/saas-starter-kit/internal/core/common/validation"
	"github.com/launchkit/saas-starter-kit/internal/transport"
)

type ServiceAPI interface {
	ListWithRoles(ctx context.Context, opts ListOptions) ([]User, int64, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, dto CreateUserDTO) (*User, error)
	Update(ctx context.Context, id string, dto UpdateUserDTO) (*User, error)
	AssignRole(ctx context.Context, userID string, dto AssignRoleDTO) (*User, error)
	RemoveRole(ctx context.Context, userID, roleID string) (*User, error)
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

// GetUsers handles GET /users?limit=&offset=&includeInactive=
func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	opts := ListOptions{
		Limit:           transport.QueryInt(r, "limit", DefaultListLimit),
		Offset:          transport.QueryInt(r, "offset", 0),
		IncludeInactive: transport.QueryBool(r, "includeInactive"),
	}.Normalize()

	users, total, err := h.Service.ListWithRoles(r.Context(), opts)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, transport.NewPaginated(users, total, opts.Limit, opts.Offset))
}

// GetUser handles GET /users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, appErr := validation.ParseID(chi.URLParam(r, "id"))
	if appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}

	u, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// CreateUser handles POST /users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var dto CreateUserDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	u, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, u)
}

// UpdateUser handles PATCH /users/{id}
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, appErr := validation.ParseID(chi.URLParam(r, "id"))
	if appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}

	var dto UpdateUserDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	u, err := h.Service.Update(r.Context(), id, dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// AssignUserRole handles POST /users/{id}/roles
func (h *Handler) AssignUserRole(w http.ResponseWriter, r *http.Request) {
	id, appErr := validation.ParseID(chi.URLParam(r, "id"))
	if appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}

	var dto AssignRoleDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	u, err := h.Service.AssignRole(r.Context(), id, dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// RemoveUserRole handles DELETE /users/{id}/roles/{roleId}
func (h *Handler) RemoveUserRole(w http.ResponseWriter, r *http.Request) {
	id, appErr := validation.ParseID(chi.URLParam(r, "id"))
	if appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}
	roleID, appErr := validation.ParseID(chi.URLParam(r, "roleId"))
	if appErr != nil {
		h.WriteAppError(w, r, appErr)
		return
	}

	u, err := h.Service.RemoveRole(r.Context(), id, roleID)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}
