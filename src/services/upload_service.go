package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/investmentmanagement137/portfolio-sub000/src/database"
	"github.com/investmentmanagement137/portfolio-sub000/src/logger"
	"github.com/investmentmanagement137/portfolio-sub000/src/models"
	"github.com/investmentmanagement137/portfolio-sub000/src/parsers"
)

// uploadBundle is the JSON envelope for cached original upload bytes,
// kept so the analysis can be re-run without a re-upload.
type uploadBundle struct {
	CostBasisName    string `json:"cost_basis_name"`
	CostBasisData    []byte `json:"cost_basis_data"`
	TransactionsName string `json:"transactions_name"`
	TransactionsData []byte `json:"transactions_data"`
}

type uploadServiceImpl struct {
	analysisClient AnalysisClient
	portfolio      *PortfolioService
}

func NewUploadService(analysisClient AnalysisClient, portfolio *PortfolioService) UploadService {
	return &uploadServiceImpl{
		analysisClient: analysisClient,
		portfolio:      portfolio,
	}
}

// ProcessAnalysisUpload sends the cost-basis and transaction-history files
// to the analysis webhook, ingests the structured payload and rebuilds the
// derived state. The original bytes and the payload are persisted so a
// later re-derivation needs no re-upload.
func (s *uploadServiceImpl) ProcessAnalysisUpload(ctx context.Context, costBasis, transactions UploadFile) (*models.DerivedState, error) {
	logger.L.Info("ProcessAnalysisUpload START",
		"costBasisFile", costBasis.Name, "transactionsFile", transactions.Name)

	responseBody, err := s.analysisClient.Analyze(ctx, costBasis, transactions)
	if err != nil {
		s.portfolio.SetError(err.Error())
		return nil, err
	}

	payload, err := parsers.ParseAnalysisPayload(responseBody)
	if err != nil {
		s.portfolio.SetError(err.Error())
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	// The cost-basis file doubles as the lowest-priority holdings source.
	waccRows, err := parsers.ParseCSV(bytes.NewReader(costBasis.Data))
	if err != nil {
		logger.L.Warn("Cost-basis file not locally parseable, relying on webhook payload only", "error", err)
		waccRows = nil
	}

	s.persistUpload(costBasis, transactions, responseBody, waccRows)

	s.portfolio.mu.Lock()
	s.portfolio.inputs.Payload = payload
	s.portfolio.inputs.WaccRows = waccRows
	s.portfolio.mu.Unlock()
	state := s.portfolio.Recompute()

	logger.L.Info("ProcessAnalysisUpload END", "holdings", len(state.Portfolio.Holdings))
	return state, nil
}

// ProcessHoldingsSnapshot ingests an uploaded holdings-snapshot file
// (JSON or tabular) as the generic-JSON holdings source.
func (s *uploadServiceImpl) ProcessHoldingsSnapshot(ctx context.Context, file io.Reader) (*models.DerivedState, error) {
	rows, err := parsers.ParseHoldingsSnapshot(file)
	if err != nil {
		s.portfolio.SetError(err.Error())
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	if encoded, err := json.Marshal(rows); err == nil {
		if err := database.Put(database.KeySnapshotRows, encoded); err != nil {
			logger.L.Warn("Failed to persist holdings snapshot rows", "error", err)
		}
	}

	return s.portfolio.SetSnapshotRows(rows), nil
}

// ProcessWaccReport ingests a standalone cost-basis report as the
// lowest-priority holdings source.
func (s *uploadServiceImpl) ProcessWaccReport(ctx context.Context, file io.Reader) (*models.DerivedState, error) {
	rows, err := parsers.ParseCSV(file)
	if err != nil {
		s.portfolio.SetError(err.Error())
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	if encoded, err := json.Marshal(rows); err == nil {
		if err := database.Put(database.KeyCostBasisRows, encoded); err != nil {
			logger.L.Warn("Failed to persist cost-basis rows", "error", err)
		}
	}

	return s.portfolio.SetWaccRows(rows), nil
}

// Rederive re-runs the analysis on the cached original upload bytes.
// Missing cached bytes are a hard, reported error: the operation cannot
// proceed and must say so rather than silently doing nothing.
func (s *uploadServiceImpl) Rederive(ctx context.Context) (*models.DerivedState, error) {
	value, found, err := database.Get(database.KeyUploadBundle)
	if err != nil {
		return nil, fmt.Errorf("reading cached upload: %w", err)
	}
	if !found {
		return nil, ErrNoCachedUpload
	}

	var bundle uploadBundle
	if err := json.Unmarshal(value, &bundle); err != nil {
		return nil, fmt.Errorf("%w: cached upload bundle corrupt: %v", ErrNoCachedUpload, err)
	}

	logger.L.Info("Re-deriving from cached upload",
		"costBasisFile", bundle.CostBasisName, "transactionsFile", bundle.TransactionsName)
	return s.ProcessAnalysisUpload(ctx,
		UploadFile{Name: bundle.CostBasisName, Data: bundle.CostBasisData},
		UploadFile{Name: bundle.TransactionsName, Data: bundle.TransactionsData},
	)
}

// LoadPersisted warms the raw inputs from the persistence gateway at
// startup, enabling re-derivation without re-fetching. Every miss or decode
// failure is tolerated; whatever loads contributes to one initial rebuild.
func (s *uploadServiceImpl) LoadPersisted() {
	loaded := false

	if value, found, err := database.Get(database.KeyAnalysisPayload); err == nil && found {
		if payload, err := parsers.ParseAnalysisPayload(value); err == nil && !payload.Empty() {
			s.portfolio.mu.Lock()
			s.portfolio.inputs.Payload = payload
			s.portfolio.mu.Unlock()
			loaded = true
		}
	}
	if rows, ok := loadRows(database.KeySnapshotRows); ok {
		s.portfolio.mu.Lock()
		s.portfolio.inputs.SnapshotRows = rows
		s.portfolio.mu.Unlock()
		loaded = true
	}
	if rows, ok := loadRows(database.KeyCostBasisRows); ok {
		s.portfolio.mu.Lock()
		s.portfolio.inputs.WaccRows = rows
		s.portfolio.mu.Unlock()
		loaded = true
	}

	if loaded {
		logger.L.Info("Warmed raw inputs from persistence gateway")
		s.portfolio.Recompute()
	}
}

func loadRows(key string) ([]models.RawRecord, bool) {
	value, found, err := database.Get(key)
	if err != nil || !found {
		return nil, false
	}
	var rows []models.RawRecord
	if err := json.Unmarshal(value, &rows); err != nil {
		logger.L.Warn("Persisted rows undecodable, ignoring", "key", key, "error", err)
		return nil, false
	}
	return rows, len(rows) > 0
}

// persistUpload is best-effort: failures are logged, never surfaced, and
// never block the in-memory result.
func (s *uploadServiceImpl) persistUpload(costBasis, transactions UploadFile, responseBody []byte, waccRows []models.RawRecord) {
	if database.DB == nil {
		return
	}

	bundle, err := json.Marshal(uploadBundle{
		CostBasisName:    costBasis.Name,
		CostBasisData:    costBasis.Data,
		TransactionsName: transactions.Name,
		TransactionsData: transactions.Data,
	})
	if err == nil {
		if err := database.Put(database.KeyUploadBundle, bundle); err != nil {
			logger.L.Warn("Failed to persist upload bundle", "error", err)
		}
	}

	if err := database.Put(database.KeyAnalysisPayload, responseBody); err != nil {
		logger.L.Warn("Failed to persist analysis payload", "error", err)
	}

	if waccRows != nil {
		if encoded, err := json.Marshal(waccRows); err == nil {
			if err := database.Put(database.KeyCostBasisRows, encoded); err != nil {
				logger.L.Warn("Failed to persist cost-basis rows", "error", err)
			}
		}
	}
}
