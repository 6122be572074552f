package payment

import (
	"context"
	"net/http"

	"github.com/frahmantamala/reimbursement-management/internal"
	"github.com/frahmantamala/reimbursement-management/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	ListReady(ctx context.Context) ([]*ReadyApplication, error)
	GenerateBatch(ctx context.Context, adminID string, dto GenerateBatchDTO) (*BatchResult, error)
	FindByBatchID(ctx context.Context, batchID string) (*BatchResponse, error)
	Download(ctx context.Context, batchID string) (*Export, error)
	Summary(ctx context.Context, batchID string) (*Export, error)
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

func (h *Handler) ListReady(w http.ResponseWriter, r *http.Request) {
	ready, err := h.Service.ListReady(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ReadyResponse{Applications: ready})
}

func (h *Handler) GenerateBatch(w http.ResponseWriter, r *http.Request) {
	identity, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, internal.ErrInvalidToken)
		return
	}

	var dto GenerateBatchDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteBadRequest(w, err)
		return
	}

	result, err := h.Service.GenerateBatch(r.Context(), identity.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := h.Service.FindByBatchID(r.Context(), chi.URLParam(r, "batchId"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, batch)
}

func (h *Handler) DownloadBatch(w http.ResponseWriter, r *http.Request) {
	h.serveExport(w, r, h.Service.Download)
}

func (h *Handler) DownloadSummary(w http.ResponseWriter, r *http.Request) {
	h.serveExport(w, r, h.Service.Summary)
}

func (h *Handler) serveExport(w http.ResponseWriter, r *http.Request, render func(ctx context.Context, batchID string) (*Export, error)) {
	export, err := render(r.Context(), chi.URLParam(r, "batchId"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteFile(w, export.ContentType, export.Filename, export.Data)
}
