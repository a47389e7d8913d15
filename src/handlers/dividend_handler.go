package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/investmentmanagement137/portfolio-sub000/src/logger"
	"github.com/investmentmanagement137/portfolio-sub000/src/models"
	"github.com/investmentmanagement137/portfolio-sub000/src/services"
	"github.com/investmentmanagement137/portfolio-sub000/src/utils"
)

type DividendHandler struct {
	portfolioService *services.PortfolioService
}

func NewDividendHandler(portfolioService *services.PortfolioService) *DividendHandler {
	return &DividendHandler{
		portfolioService: portfolioService,
	}
}

type dividendViewResponse struct {
	View   string                 `json:"view"`
	Events []models.DividendEvent `json:"events"`
	Totals models.DividendTotals  `json:"totals"`
}

// HandleGetDividends returns one ledger partition, optionally sorted for
// presentation. The ledger itself stays in insertion order; sorting here
// is purely a view concern.
func (h *DividendHandler) HandleGetDividends(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	view := query.Get("view")
	if view == "" {
		view = "historical"
	}

	events, err := h.portfolioService.DividendView(view, query.Get("sort"), query.Get("order"))
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	response := dividendViewResponse{View: view, Events: events}
	if state := h.portfolioService.State(); state != nil {
		response.Totals = state.Dividends.Totals
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.L.Error("Error encoding dividends response", "view", view, "error", err)
	}
}
