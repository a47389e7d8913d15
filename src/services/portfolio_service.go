package services

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/investmentmanagement137/portfolio-sub000/src/database"
	"github.com/investmentmanagement137/portfolio-sub000/src/logger"
	"github.com/investmentmanagement137/portfolio-sub000/src/models"
	"github.com/investmentmanagement137/portfolio-sub000/src/processors"
	"github.com/patrickmn/go-cache"
)

const (
	ckDividendView = "dividend_view_%d_%s_%s_%s"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

// StatusReport is the load-lifecycle view exposed by GET /api/status.
type StatusReport struct {
	Status           models.LifecycleState `json:"status"`
	LastError        string                `json:"last_error,omitempty"`
	ComputedAt       *time.Time            `json:"computed_at,omitempty"`
	LastPriceRefresh *time.Time            `json:"last_price_refresh,omitempty"`
	LastUpdated      string                `json:"last_updated,omitempty"`
}

// PortfolioService owns the single current derived state. All raw-input
// changes and price refreshes funnel through Recompute, which rebuilds the
// whole projection; nothing is patched incrementally.
type PortfolioService struct {
	prices            PriceService
	holdingsProcessor *processors.HoldingsProcessor
	dividendProcessor *processors.DividendProcessor
	reportCache       *cache.Cache

	mu        sync.Mutex
	inputs    models.RawInputs
	state     *models.DerivedState
	status    models.LifecycleState
	lastError string
	deriving  bool
	pending   bool
	// generation counts completed derivations. Cached views are keyed by
	// it so a view computed from an older state can never be served after
	// a re-derivation, even if its cache insert lands after the flush.
	generation uint64
}

func NewPortfolioService(
	prices PriceService,
	holdingsProcessor *processors.HoldingsProcessor,
	dividendProcessor *processors.DividendProcessor,
	reportCache *cache.Cache,
) *PortfolioService {
	return &PortfolioService{
		prices:            prices,
		holdingsProcessor: holdingsProcessor,
		dividendProcessor: dividendProcessor,
		reportCache:       reportCache,
		status:            models.StatusIdle,
	}
}

// SetAnalysisPayload replaces the webhook-derived raw input and rebuilds.
func (s *PortfolioService) SetAnalysisPayload(p *models.AnalysisPayload) *models.DerivedState {
	s.mu.Lock()
	s.inputs.Payload = p
	s.mu.Unlock()
	return s.Recompute()
}

// SetSnapshotRows replaces the generic-JSON holdings snapshot and rebuilds.
func (s *PortfolioService) SetSnapshotRows(rows []models.RawRecord) *models.DerivedState {
	s.mu.Lock()
	s.inputs.SnapshotRows = rows
	s.mu.Unlock()
	return s.Recompute()
}

// SetWaccRows replaces the cost-basis report rows and rebuilds.
func (s *PortfolioService) SetWaccRows(rows []models.RawRecord) *models.DerivedState {
	s.mu.Lock()
	s.inputs.WaccRows = rows
	s.mu.Unlock()
	return s.Recompute()
}

// Recompute re-derives the whole state from the current raw inputs and a
// price-table snapshot. A single derivation runs at a time; triggers that
// arrive while one is in flight coalesce into exactly one follow-up pass,
// so the final state always reflects every completed input.
func (s *PortfolioService) Recompute() *models.DerivedState {
	s.mu.Lock()
	if s.deriving {
		s.pending = true
		state := s.state
		s.mu.Unlock()
		if state == nil {
			// First derivation still in flight; callers always get a
			// usable state, never nil.
			return models.EmptyDerivedState()
		}
		return state
	}
	s.deriving = true
	s.status = models.StatusLoading

	var state models.DerivedState
	for {
		s.pending = false
		inputs := s.inputs
		s.mu.Unlock()

		snapshot := s.prices.Snapshot()
		state = deriveState(inputs, snapshot, s.holdingsProcessor, s.dividendProcessor)

		s.mu.Lock()
		if !s.pending {
			break
		}
	}
	s.state = &state
	s.generation++
	s.deriving = false
	s.status = models.StatusReady
	s.lastError = ""
	s.mu.Unlock()

	s.reportCache.Flush()
	s.persistLastComputed(state.ComputedAt)

	logger.L.Info("Derived state rebuilt",
		"holdings", len(state.Portfolio.Holdings),
		"historicalDividends", len(state.Dividends.Historical),
		"activeDividends", len(state.Dividends.Active))
	return &state
}

// deriveState is the pure derivation over raw inputs and a fixed price
// snapshot: normalize each holdings source, select exactly one by
// priority, value it, build the dividend ledger and fold the active
// dividend cash flow into the summary.
func deriveState(
	inputs models.RawInputs,
	prices processors.PriceMap,
	hp *processors.HoldingsProcessor,
	dp *processors.DividendProcessor,
) models.DerivedState {
	var sources models.RawHoldingSources

	var histRows, dividendHoldingRows []models.RawRecord
	if inputs.Payload != nil {
		histRows = inputs.Payload.HistoricalDividends
		dividendHoldingRows = inputs.Payload.DividendHoldings

		webhookRows := dividendHoldingRows
		if len(webhookRows) == 0 {
			webhookRows = inputs.Payload.MeroshareHoldings
		}
		sources.Webhook = hp.Normalize(webhookRows, models.ShapeWebhook)
	}
	sources.GenericJSON = hp.Normalize(inputs.SnapshotRows, models.ShapeGenericJSON)
	sources.WaccReport = hp.Normalize(inputs.WaccRows, models.ShapeWaccReport)

	raw, shape := hp.SelectSource(sources)
	if shape != "" {
		logger.L.Debug("Selected holdings source", "shape", shape, "rows", len(raw))
	}
	portfolio := hp.Materialize(raw, prices)

	// The dividend-holdings list is active by position, but an explicit
	// historical marker on its rows overrides that.
	var histEvents, activeSourceEvents []models.DividendEvent
	if dp.ClassifyList(dividendHoldingRows) == processors.DividendListHistorical {
		histEvents = dp.Normalize(dividendHoldingRows)
	} else {
		activeSourceEvents = dp.Normalize(dividendHoldingRows)
	}

	events := dp.Merge(dp.Normalize(histRows), histEvents, activeSourceEvents)
	ledger := dp.Materialize(events, processors.HeldSymbols(portfolio.Holdings))

	portfolio.Summary = processors.ApplyCashFlow(portfolio.Summary, ledger.Totals.Active)

	return models.DerivedState{
		Portfolio:  portfolio,
		Dividends:  ledger,
		ComputedAt: time.Now(),
	}
}

// persistLastComputed is best-effort: a persistence failure never blocks
// in-memory availability of freshly computed results.
func (s *PortfolioService) persistLastComputed(at time.Time) {
	if database.DB == nil {
		return
	}
	if err := database.Put(database.KeyLastUpdated, []byte(at.UTC().Format(time.RFC3339))); err != nil {
		logger.L.Warn("Failed to persist last-computed timestamp", "error", err)
	}
}

// SetError records a recoverable ingestion failure. A later successful
// ingest or sync moves the lifecycle back to ready.
func (s *PortfolioService) SetError(msg string) {
	s.mu.Lock()
	s.status = models.StatusError
	s.lastError = msg
	s.mu.Unlock()
}

// State returns the current derived state, or nil before the first
// successful derivation.
func (s *PortfolioService) State() *models.DerivedState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// stateAndGeneration reads the state and its derivation generation in one
// critical section, so a cached view is always keyed by the generation of
// the state it was computed from.
func (s *PortfolioService) stateAndGeneration() (*models.DerivedState, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.generation
}

func (s *PortfolioService) Status() StatusReport {
	s.mu.Lock()
	report := StatusReport{
		Status:    s.status,
		LastError: s.lastError,
	}
	if s.state != nil {
		at := s.state.ComputedAt
		report.ComputedAt = &at
	}
	s.mu.Unlock()

	if t := s.prices.LastRefreshed(); !t.IsZero() {
		report.LastPriceRefresh = &t
	}
	if database.DB != nil {
		if value, found, err := database.Get(database.KeyLastUpdated); err == nil && found {
			report.LastUpdated = string(value)
		}
	}
	return report
}

// DividendView returns a presentation-sorted copy of one ledger partition.
// Sorting is a consumer concern; the ledger itself stays in insertion
// order. Views are cached until the next re-derivation.
func (s *PortfolioService) DividendView(view, sortKey, order string) ([]models.DividendEvent, error) {
	if view != "historical" && view != "active" {
		return nil, fmt.Errorf("unknown dividend view %q", view)
	}
	switch sortKey {
	case "", "date", "amount", "symbol":
	default:
		return nil, fmt.Errorf("unknown sort key %q", sortKey)
	}
	if order != "" && order != "asc" && order != "desc" {
		return nil, fmt.Errorf("unknown sort order %q", order)
	}

	state, generation := s.stateAndGeneration()
	cacheKey := fmt.Sprintf(ckDividendView, generation, view, sortKey, order)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.([]models.DividendEvent), nil
	}

	if state == nil {
		return []models.DividendEvent{}, nil
	}

	source := state.Dividends.Historical
	if view == "active" {
		source = state.Dividends.Active
	}
	events := make([]models.DividendEvent, len(source))
	copy(events, source)

	if sortKey != "" {
		desc := order == "desc"
		sort.SliceStable(events, func(i, j int) bool {
			if desc {
				i, j = j, i
			}
			switch sortKey {
			case "amount":
				return events[i].Amount < events[j].Amount
			case "symbol":
				return events[i].Symbol < events[j].Symbol
			default:
				return events[i].BookClosureDate < events[j].BookClosureDate
			}
		})
	}

	s.reportCache.Set(cacheKey, events, cache.DefaultExpiration)
	return events, nil
}

// HoldingDetail returns one holding with its attributable active-dividend
// cash flow, or false when the symbol is not currently held.
func (s *PortfolioService) HoldingDetail(symbol string) (models.HoldingWithCashFlow, bool) {
	state := s.State()
	if state == nil {
		return models.HoldingWithCashFlow{}, false
	}
	bySymbol := processors.ActiveDividendsBySymbol(state.Dividends)
	for _, h := range state.Portfolio.Holdings {
		if h.Symbol == symbol {
			return processors.HoldingCashFlow(h, bySymbol), true
		}
	}
	return models.HoldingWithCashFlow{}, false
}
