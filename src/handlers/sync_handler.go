package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/investmentmanagement137/portfolio-sub000/src/logger"
	"github.com/investmentmanagement137/portfolio-sub000/src/services"
	"github.com/investmentmanagement137/portfolio-sub000/src/utils"
)

type SyncHandler struct {
	priceService     services.PriceService
	portfolioService *services.PortfolioService
}

func NewSyncHandler(priceService services.PriceService, portfolioService *services.PortfolioService) *SyncHandler {
	return &SyncHandler{
		priceService:     priceService,
		portfolioService: portfolioService,
	}
}

// HandleSync is the manual price-refresh trigger. A feed failure is
// recoverable: the previous price table stays intact and the client is
// told so.
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	if err := h.priceService.Refresh(r.Context()); err != nil {
		if errors.Is(err, services.ErrFeedUnavailable) {
			utils.SendJSONError(w, "Price feed is unavailable; previous prices are retained.", http.StatusBadGateway)
			return
		}
		logger.L.Error("Unexpected error refreshing prices", "error", err)
		utils.SendJSONError(w, "An internal error occurred during price sync.", http.StatusInternalServerError)
		return
	}

	state := h.portfolioService.Recompute()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"summary":     state.Portfolio.Summary,
		"refreshedAt": h.priceService.LastRefreshed(),
	}); err != nil {
		logger.L.Error("Error encoding sync response", "error", err)
	}
}
