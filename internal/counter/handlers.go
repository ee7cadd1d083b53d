package counter

import (
	"context"
	"net/http"
	"strconv"

	"github.com/noah-isme/backend-gudang/internal/common"
)

// CountLister lists counter rows for month-end review.
type CountLister interface {
	ListCounts(ctx context.Context, limit, offset int) ([]Count, int64, error)
}

// Handler exposes the month-end count listing.
type Handler struct {
	Store CountLister
}

// List handles GET /api/v1/inventory/counts.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "counter store not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 50)
	counts, total, err := h.Store.ListCounts(r.Context(), perPage, (page-1)*perPage)
	if err != nil {
		common.JSONError(w, http.StatusBadGateway, "COLLABORATOR_FAILURE", "counter store error", map[string]any{"error": err.Error()})
		return
	}
	if counts == nil {
		counts = []Count{}
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       counts,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}
