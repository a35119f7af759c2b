// Package store exposes the read-only catalog, inventory and record listings.
package store

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovc-dev/ovc/backend/internal/model/catalog"
	"github.com/ovc-dev/ovc/backend/internal/service/inventory"
	"github.com/ovc-dev/ovc/backend/internal/service/records"
	"github.com/ovc-dev/ovc/backend/pkg/utils"
)

// Handler serves the store read endpoints.
type Handler struct {
	catalog *catalog.Store
	ledger  *inventory.Ledger
	sink    *records.FileSink
	log     *zap.Logger
}

// New creates the read handler.
func New(catalogStore *catalog.Store, ledger *inventory.Ledger, sink *records.FileSink, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		catalog: catalogStore,
		ledger:  ledger,
		sink:    sink,
		log:     log,
	}
}

// RegisterRoutes registers the read routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/store_info", h.handleStoreInfo)
	r.Get("/products", h.handleProducts)
	r.Get("/staff", h.handleStaff)
	r.Get("/orders", h.handleOrders)
	r.Get("/meetings", h.handleMeetings)
}

func (h *Handler) handleStoreInfo(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.catalog.Profile())
}

func (h *Handler) handleProducts(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{"products": h.ledger.Snapshot()})
}

func (h *Handler) handleStaff(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{"staff": h.catalog.Staff()})
}

func (h *Handler) handleOrders(w http.ResponseWriter, _ *http.Request) {
	orders, err := h.sink.Orders()
	if err != nil {
		h.log.Error("list orders failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to read orders")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *Handler) handleMeetings(w http.ResponseWriter, _ *http.Request) {
	meetings, err := h.sink.Meetings()
	if err != nil {
		h.log.Error("list meetings failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to read meetings")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"meetings": meetings})
}
