package columns

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"remittance-reconciliation-service/internal/models"
	apperrors "remittance-reconciliation-service/pkg/errors"
)

// InferenceClientConfig configures the HTTP column-inference client.
type InferenceClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// InferenceClient calls the external column-inference service over HTTP.
// It implements Inferrer.
type InferenceClient struct {
	config     InferenceClientConfig
	httpClient *http.Client
}

// NewInferenceClient creates a new inference client.
func NewInferenceClient(config InferenceClientConfig) (*InferenceClient, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("inference base URL is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}

	return &InferenceClient{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
	}, nil
}

type inferenceRequest struct {
	Rows [][]string `json:"rows"`
}

type inferenceResponse struct {
	DateCol   *int `json:"date_col"`
	AmountCol *int `json:"amount_col"`
	NameCol   *int `json:"name_col"`
}

// InferColumns sends the sample rows and returns the proposed layout. The
// response is treated as untrusted: missing fields are an error here, and
// the resolver re-validates the indices before use.
func (c *InferenceClient) InferColumns(ctx context.Context, sample [][]string) (models.ColumnMap, error) {
	body, err := json.Marshal(inferenceRequest{Rows: sample})
	if err != nil {
		return models.ColumnMap{}, apperrors.CollaboratorError(apperrors.CodeInferenceFailed, "column-inference", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/columns/infer", bytes.NewReader(body))
	if err != nil {
		return models.ColumnMap{}, apperrors.CollaboratorError(apperrors.CodeInferenceFailed, "column-inference", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.ColumnMap{}, apperrors.CollaboratorError(apperrors.CodeInferenceFailed, "column-inference", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.ColumnMap{}, apperrors.CollaboratorError(apperrors.CodeInferenceFailed, "column-inference",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return models.ColumnMap{}, apperrors.CollaboratorError(apperrors.CodeInferenceFailed, "column-inference", err)
	}

	var parsed inferenceResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return models.ColumnMap{}, apperrors.CollaboratorError(apperrors.CodeInvalidResponse, "column-inference", err)
	}

	if parsed.DateCol == nil || parsed.AmountCol == nil || parsed.NameCol == nil {
		return models.ColumnMap{}, apperrors.CollaboratorError(apperrors.CodeInvalidResponse, "column-inference",
			fmt.Errorf("response missing one or more column indices"))
	}

	return models.ColumnMap{
		DateCol:   *parsed.DateCol,
		AmountCol: *parsed.AmountCol,
		NameCol:   *parsed.NameCol,
	}, nil
}
