package application

import (
	"context"
	"net/http"

	"github.com/frahmantamala/reimbursement-management/internal"
	"github.com/frahmantamala/reimbursement-management/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	CreateApplication(ctx context.Context, userID string, dto CreateApplicationDTO) (*Application, error)
	UpdateApplication(ctx context.Context, appID, userID string, dto UpdateApplicationDTO) (*Application, error)
	GetApplication(ctx context.Context, appID string, actor internal.Identity) (*Application, error)
	ListMyApplications(ctx context.Context, userID string, limit, offset int) ([]*Application, error)
	ListApplications(ctx context.Context, status string, limit, offset int) ([]*Application, error)
	SubmitApplication(ctx context.Context, appID, userID string, dto SubmitApplicationDTO) (*Application, error)
	ApproveApplication(ctx context.Context, appID, adminID string, dto ApproveApplicationDTO) (*Application, error)
	ReturnApplication(ctx context.Context, appID, adminID string, dto CommentDTO) (*Application, error)
	RejectApplication(ctx context.Context, appID, adminID string, dto CommentDTO) (*Application, error)
	DeleteApplication(ctx context.Context, appID, userID string) error
	AddComment(ctx context.Context, appID string, actor internal.Identity, dto CommentDTO) (*Comment, error)
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

// identity writes 401 and returns false when the auth middleware did not run.
func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (internal.Identity, bool) {
	identity, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, internal.ErrInvalidToken)
		return internal.Identity{}, false
	}
	return identity, true
}

func (h *Handler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var dto CreateApplicationDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteBadRequest(w, err)
		return
	}

	app, err := h.Service.CreateApplication(r.Context(), identity.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, app)
}

func (h *Handler) UpdateApplication(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var dto UpdateApplicationDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteBadRequest(w, err)
		return
	}

	app, err := h.Service.UpdateApplication(r.Context(), chi.URLParam(r, "id"), identity.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) GetApplication(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	app, err := h.Service.GetApplication(r.Context(), chi.URLParam(r, "id"), identity)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) ListMyApplications(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	limit, offset := h.Pagination(r)
	apps, err := h.Service.ListMyApplications(r.Context(), identity.ID, limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ListApplicationsResponse{Applications: apps, Limit: limit, Offset: offset})
}

// ListApplications is the administrator view, optionally filtered by ?status=.
func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	limit, offset := h.Pagination(r)
	apps, err := h.Service.ListApplications(r.Context(), r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ListApplicationsResponse{Applications: apps, Limit: limit, Offset: offset})
}

func (h *Handler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var dto SubmitApplicationDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteBadRequest(w, err)
		return
	}

	app, err := h.Service.SubmitApplication(r.Context(), chi.URLParam(r, "id"), identity.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) ApproveApplication(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var dto ApproveApplicationDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteBadRequest(w, err)
		return
	}

	app, err := h.Service.ApproveApplication(r.Context(), chi.URLParam(r, "id"), identity.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) ReturnApplication(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.ReturnApplication)
}

func (h *Handler) RejectApplication(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.RejectApplication)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, appID, adminID string, dto CommentDTO) (*Application, error)) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var dto CommentDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteBadRequest(w, err)
		return
	}

	app, err := op(r.Context(), chi.URLParam(r, "id"), identity.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) DeleteApplication(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteApplication(r.Context(), chi.URLParam(r, "id"), identity.ID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var dto CommentDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteBadRequest(w, err)
		return
	}

	comment, err := h.Service.AddComment(r.Context(), chi.URLParam(r, "id"), identity, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, comment)
}
