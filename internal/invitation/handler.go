package invitation

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context) ([]Invitation, error)
	GetByToken(ctx context.Context, token string) (*Invitation, error)
	Create(ctx context.Context, dto CreateInvitationDTO, invitedBy string) (*Invitation, error)
	Accept(ctx context.Context, token string, dto AcceptInvitationDTO) (*AcceptResult, error)
	Cancel(ctx context.Context, token string) error
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

// GetInvitations handles GET /invitations
func (h *Handler) GetInvitations(w http.ResponseWriter, r *http.Request) {
	invitations, err := h.Service.List(r.Context())
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, InvitationsResponse{Invitations: invitations})
}

// GetInvitation handles GET /invitations/{token}
func (h *Handler) GetInvitation(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Service.GetByToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, inv)
}

// CreateInvitation handles POST /invitations
func (h *Handler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	actorID := internal.UserIDFromContext(r.Context())
	if actorID == "" {
		h.WriteAppError(w, r, internal.ErrUnauthenticated)
		return
	}

	var dto CreateInvitationDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	inv, err := h.Service.Create(r.Context(), dto, actorID)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, inv)
}

// AcceptInvitation handles POST /invitations/{token}/accept
func (h *Handler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var dto AcceptInvitationDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	result, err := h.Service.Accept(r.Context(), chi.URLParam(r, "token"), dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

// CancelInvitation handles DELETE /invitations/{token}
func (h *Handler) CancelInvitation(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Cancel(r.Context(), chi.URLParam(r, "token")); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
