package user

import (
	"context"
	"net/http"

	"github.com/frahmantamala/reimbursement-management/internal"
	"github.com/frahmantamala/reimbursement-management/internal/transport"
)

type ServiceAPI interface {
	GetProfile(ctx context.Context, id string) (*User, error)
	UpdateBankAccount(ctx context.Context, id string, dto UpdateBankAccountDTO) (*User, error)
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

// GetCurrentUser handles GET /members/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, internal.ErrInvalidToken)
		return
	}

	u, err := h.Service.GetProfile(r.Context(), identity.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, u)
}

// UpdateBankAccount handles PUT /members/me/bank-account
func (h *Handler) UpdateBankAccount(w http.ResponseWriter, r *http.Request) {
	identity, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, internal.ErrInvalidToken)
		return
	}

	var dto UpdateBankAccountDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteBadRequest(w, err)
		return
	}

	u, err := h.Service.UpdateBankAccount(r.Context(), identity.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, u)
}
