package category

import (
	"context"
	"net/http"

	"github.com/frahmantamala/reimbursement-management/internal/transport"
)

type ServiceAPI interface {
	GetActiveCategories(ctx context.Context) ([]CategoryResponse, error)
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

func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Service.GetActiveCategories(r.Context())
	if err != nil {
		h.Logger.Error("GetCategories: failed to get categories", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, CategoriesResponse{
		Categories: categories,
	})
}
