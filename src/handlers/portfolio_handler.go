package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/investmentmanagement137/portfolio-sub000/src/logger"
	"github.com/investmentmanagement137/portfolio-sub000/src/models"
	"github.com/investmentmanagement137/portfolio-sub000/src/services"
	"github.com/investmentmanagement137/portfolio-sub000/src/utils"
)

type PortfolioHandler struct {
	portfolioService *services.PortfolioService
}

func NewPortfolioHandler(portfolioService *services.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: portfolioService,
	}
}

// HandleGetPortfolio returns the valued holdings ledger with the
// cash-flow-adjusted summary. Responses carry an ETag so unchanged derived
// state answers 304.
func (h *PortfolioHandler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	state := h.portfolioService.State()
	if state == nil {
		// Nothing ingested yet: an empty portfolio, not an error.
		state = models.EmptyDerivedState()
	}

	if etag, err := utils.GenerateETag(state); err == nil {
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		logger.L.Error("Error encoding portfolio response", "error", err)
	}
}

// HandleGetHolding returns one holding with its attributable dividend cash
// flow folded in.
func (h *PortfolioHandler) HandleGetHolding(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if symbol == "" {
		utils.SendJSONError(w, "symbol path parameter is required", http.StatusBadRequest)
		return
	}

	detail, found := h.portfolioService.HoldingDetail(symbol)
	if !found {
		utils.SendJSONError(w, "no current holding for symbol "+symbol, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(detail); err != nil {
		logger.L.Error("Error encoding holding response", "symbol", symbol, "error", err)
	}
}

// HandleGetAllocation returns the sector allocation of the current
// holdings set as percentages of market value.
func (h *PortfolioHandler) HandleGetAllocation(w http.ResponseWriter, r *http.Request) {
	allocation := map[string]float64{}
	if state := h.portfolioService.State(); state != nil && state.Portfolio.SectorAllocation != nil {
		allocation = state.Portfolio.SectorAllocation
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(allocation); err != nil {
		logger.L.Error("Error encoding allocation response", "error", err)
	}
}

// HandleGetStatus reports the load lifecycle, last derivation time and
// price-table freshness.
func (h *PortfolioHandler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.portfolioService.Status()); err != nil {
		logger.L.Error("Error encoding status response", "error", err)
	}
}
