package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/investmentmanagement137/portfolio-sub000/src/logger"
)

type analysisClientImpl struct {
	httpClient *http.Client
	webhookURL string
}

// NewAnalysisClient creates the client for the remote analysis webhook. It
// posts the cost-basis and transaction-history files as a multipart upload
// and returns the raw positional-array response body.
func NewAnalysisClient(webhookURL string, timeout time.Duration) AnalysisClient {
	return &analysisClientImpl{
		httpClient: &http.Client{Timeout: timeout},
		webhookURL: webhookURL,
	}
}

func (c *analysisClientImpl) Analyze(ctx context.Context, costBasis, transactions UploadFile) ([]byte, error) {
	if c.webhookURL == "" {
		return nil, fmt.Errorf("%w: no webhook URL configured", ErrAnalysisFailed)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, part := range []struct {
		field string
		file  UploadFile
	}{
		{"wacc_report", costBasis},
		{"transaction_history", transactions},
	} {
		fw, err := writer.CreateFormFile(part.field, part.file.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: building multipart body: %v", ErrAnalysisFailed, err)
		}
		if _, err := fw.Write(part.file.Data); err != nil {
			return nil, fmt.Errorf("%w: writing multipart body: %v", ErrAnalysisFailed, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%w: closing multipart body: %v", ErrAnalysisFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, &body)
	if err != nil {
		return nil, fmt.Errorf("%w: building webhook request: %v", ErrAnalysisFailed, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.L.Warn("Analysis webhook unreachable", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.L.Warn("Analysis webhook returned non-OK status", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: webhook returned status %d", ErrAnalysisFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading webhook response: %v", ErrAnalysisFailed, err)
	}
	logger.L.Info("Analysis webhook call completed", "bytes", len(data), "duration", time.Since(start))
	return data, nil
}
