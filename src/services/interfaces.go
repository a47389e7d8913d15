package services

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/investmentmanagement137/portfolio-sub000/src/models"
	"github.com/investmentmanagement137/portfolio-sub000/src/processors"
)

var (
	// ErrParsingFailed covers unreadable uploads and malformed batch files.
	ErrParsingFailed = errors.New("parsing failed")
	// ErrAnalysisFailed covers analysis-webhook unreachability or non-2xx
	// answers. Recoverable; prior good state is retained.
	ErrAnalysisFailed = errors.New("analysis webhook failed")
	// ErrFeedUnavailable covers price-feed fetch failures. Recoverable;
	// the previous price table stays intact.
	ErrFeedUnavailable = errors.New("price feed unavailable")
	// ErrNoCachedUpload means re-derivation was requested but no cached
	// upload bytes exist. Hard error: the operation cannot proceed.
	ErrNoCachedUpload = errors.New("no cached upload available")
)

// PriceService owns the symbol -> last-traded-price table.
type PriceService interface {
	processors.PriceLookup

	// Refresh fetches the external feed and replaces the table wholesale.
	// On failure the previous table is left untouched.
	Refresh(ctx context.Context) error
	// Snapshot returns an immutable copy for a whole derivation pass.
	Snapshot() processors.PriceMap
	LastRefreshed() time.Time
}

// AnalysisClient calls the remote webhook that converts raw broker files
// into the structured positional payload.
type AnalysisClient interface {
	Analyze(ctx context.Context, costBasis, transactions UploadFile) ([]byte, error)
}

// UploadFile is one uploaded document handed to the ingestion gateway.
type UploadFile struct {
	Name string
	Data []byte
}

// UploadService is the ingestion gateway: it accepts uploaded documents,
// runs them through the webhook or the local parsers, persists the raw
// inputs and triggers re-derivation.
type UploadService interface {
	ProcessAnalysisUpload(ctx context.Context, costBasis, transactions UploadFile) (*models.DerivedState, error)
	ProcessHoldingsSnapshot(ctx context.Context, file io.Reader) (*models.DerivedState, error)
	ProcessWaccReport(ctx context.Context, file io.Reader) (*models.DerivedState, error)
	// Rederive rebuilds state from the cached upload bytes without a new
	// upload. Returns ErrNoCachedUpload when nothing is cached.
	Rederive(ctx context.Context) (*models.DerivedState, error)
	// LoadPersisted warms raw inputs from the persistence gateway at
	// startup; tolerant of any missing key.
	LoadPersisted()
}
