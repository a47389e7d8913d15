package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/investmentmanagement137/portfolio-sub000/src/logger"
	"github.com/investmentmanagement137/portfolio-sub000/src/processors"
)

// feedResponse mirrors the external price endpoint:
// { "all recent price": [ { "Script": "...", "Price": 123.4 | "1,234.50" } ] }
// Price arrives either as a JSON number or as a grouped string; both go
// through the same numeric parsing as the normalizer.
type feedResponse struct {
	Prices []feedEntry `json:"all recent price"`
}

type feedEntry struct {
	Script string `json:"Script"`
	Price  any    `json:"Price"`
}

type priceServiceImpl struct {
	httpClient *http.Client
	feedURL    string

	mu          sync.RWMutex
	table       processors.PriceMap
	refreshedAt time.Time
	// appliedSeq guards against a slow stale response overwriting the
	// result of a refresh that started later.
	nextSeq    uint64
	appliedSeq uint64
}

// NewPriceService creates the price table service. The table starts empty;
// absence of a symbol is a valid state resolved to a 0-price fallback by
// downstream consumers.
func NewPriceService(feedURL string, timeout time.Duration) PriceService {
	return &priceServiceImpl{
		httpClient: &http.Client{Timeout: timeout},
		feedURL:    feedURL,
		table:      processors.PriceMap{},
	}
}

func (s *priceServiceImpl) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.nextSeq++
	seq := s.nextSeq
	s.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return fmt.Errorf("%w: building feed request: %v", ErrFeedUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		logger.L.Warn("Price feed fetch failed, keeping previous table", "error", err)
		return fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.L.Warn("Price feed returned non-OK status, keeping previous table", "status", resp.StatusCode)
		return fmt.Errorf("%w: feed returned status %d", ErrFeedUnavailable, resp.StatusCode)
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		logger.L.Warn("Price feed response undecodable, keeping previous table", "error", err)
		return fmt.Errorf("%w: decoding feed response: %v", ErrFeedUnavailable, err)
	}

	table := make(processors.PriceMap, len(feed.Prices))
	skipped := 0
	for _, entry := range feed.Prices {
		if entry.Script == "" {
			skipped++
			continue
		}
		price, ok := processors.ParseNumber(entry.Price)
		if !ok {
			skipped++
			continue
		}
		table[entry.Script] = price
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.appliedSeq {
		logger.L.Warn("Discarding stale price feed response", "seq", seq, "appliedSeq", s.appliedSeq)
		return nil
	}
	s.appliedSeq = seq
	s.table = table
	s.refreshedAt = time.Now()
	logger.L.Info("Price table refreshed", "symbols", len(table), "skipped", skipped)
	return nil
}

func (s *priceServiceImpl) Lookup(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.table[symbol]
	return price, ok
}

// Snapshot copies the current table so a derivation pass never observes a
// half-written one.
func (s *priceServiceImpl) Snapshot() processors.PriceMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make(processors.PriceMap, len(s.table))
	for symbol, price := range s.table {
		snapshot[symbol] = price
	}
	return snapshot
}

func (s *priceServiceImpl) LastRefreshed() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}
