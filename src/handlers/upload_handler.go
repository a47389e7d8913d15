package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/investmentmanagement137/portfolio-sub000/src/config"
	"github.com/investmentmanagement137/portfolio-sub000/src/logger"
	"github.com/investmentmanagement137/portfolio-sub000/src/models"
	"github.com/investmentmanagement137/portfolio-sub000/src/security/validation"
	"github.com/investmentmanagement137/portfolio-sub000/src/services"
	"github.com/investmentmanagement137/portfolio-sub000/src/utils"
)

type UploadHandler struct {
	uploadService services.UploadService
}

func NewUploadHandler(service services.UploadService) *UploadHandler {
	return &UploadHandler{
		uploadService: service,
	}
}

// readUploadFile pulls one named file out of the multipart form and runs
// it through content validation.
func readUploadFile(r *http.Request, field string) (services.UploadFile, error) {
	file, fileHeader, err := r.FormFile(field)
	if err != nil {
		return services.UploadFile{}, fmt.Errorf("failed to retrieve file from request; ensure '%s' field is used", field)
	}
	defer file.Close()

	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		return services.UploadFile{}, fmt.Errorf("file too large, max %d MB", config.Cfg.MaxUploadSizeBytes/(1024*1024))
	}

	if err := validation.ValidateClientContentType(fileHeader.Header.Get("Content-Type")); err != nil {
		return services.UploadFile{}, err
	}
	if _, err := validation.ValidateFileContentByMagicBytes(file); err != nil {
		return services.UploadFile{}, err
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return services.UploadFile{}, fmt.Errorf("failed to read uploaded file '%s'", fileHeader.Filename)
	}
	return services.UploadFile{Name: fileHeader.Filename, Data: data}, nil
}

// HandleAnalysisUpload accepts the cost-basis report and transaction
// history as a multipart upload, forwards them to the analysis webhook and
// rebuilds the derived state from the structured result.
func (h *UploadHandler) HandleAnalysisUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	costBasis, err := readUploadFile(r, "wacc_report")
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	transactions, err := readUploadFile(r, "transaction_history")
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	logger.L.Info("Processing analysis upload", "costBasisFile", costBasis.Name, "transactionsFile", transactions.Name)
	state, err := h.uploadService.ProcessAnalysisUpload(r.Context(), costBasis, transactions)
	if err != nil {
		h.writeUploadError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(state); err != nil {
		logger.L.Error("Error encoding JSON response for upload result", "error", err)
	}
}

// HandleHoldingsSnapshot accepts an optional holdings-snapshot file as
// JSON or tabular data.
func (h *UploadHandler) HandleHoldingsSnapshot(w http.ResponseWriter, r *http.Request) {
	h.handleSingleFileUpload(w, r, h.uploadService.ProcessHoldingsSnapshot)
}

// HandleWaccReport accepts a standalone cost-basis report without running
// the webhook analysis.
func (h *UploadHandler) HandleWaccReport(w http.ResponseWriter, r *http.Request) {
	h.handleSingleFileUpload(w, r, h.uploadService.ProcessWaccReport)
}

func (h *UploadHandler) handleSingleFileUpload(
	w http.ResponseWriter,
	r *http.Request,
	process func(ctx context.Context, file io.Reader) (*models.DerivedState, error),
) {
	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	upload, err := readUploadFile(r, "file")
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	state, err := process(r.Context(), bytes.NewReader(upload.Data))
	if err != nil {
		h.writeUploadError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(state); err != nil {
		logger.L.Error("Error encoding JSON response for upload result", "error", err)
	}
}

// HandleRederive rebuilds state from the cached original upload bytes.
// A missing cache is a hard error the client must hear about.
func (h *UploadHandler) HandleRederive(w http.ResponseWriter, r *http.Request) {
	state, err := h.uploadService.Rederive(r.Context())
	if err != nil {
		if errors.Is(err, services.ErrNoCachedUpload) {
			logger.L.Warn("Re-derivation requested with no cached upload")
			utils.SendJSONError(w, "No cached upload available; upload the broker files first.", http.StatusNotFound)
			return
		}
		h.writeUploadError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(state); err != nil {
		logger.L.Error("Error encoding JSON response for re-derivation result", "error", err)
	}
}

func (h *UploadHandler) writeUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrParsingFailed):
		logger.L.Warn("Upload processing failed due to parsing errors", "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error parsing uploaded file: %v", err), http.StatusBadRequest)
	case errors.Is(err, services.ErrAnalysisFailed):
		logger.L.Warn("Upload processing failed at the analysis webhook", "error", err)
		utils.SendJSONError(w, "The analysis service is unavailable; previous data is retained. Please try again later.", http.StatusBadGateway)
	default:
		logger.L.Error("Internal error processing upload", "error", err)
		utils.SendJSONError(w, "An internal error occurred while processing the file. Please try again later.", http.StatusInternalServerError)
	}
}
