// Package translit provides the HTTP client for the external phonetic
// transliteration service. The service receives an ordered list of
// kanji-bearing names and returns one phonetic rendering per line, in the
// order submitted. It is best-effort: callers degrade to non-transliterated
// forms when the call fails or comes back short.
package translit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "remittance-reconciliation-service/pkg/errors"
)

// ClientConfig configures the transliteration HTTP client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client calls the transliteration service. It satisfies
// canonical.Transliterator.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
}

// NewClient creates a new transliteration client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("transliteration base URL is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 20 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
	}, nil
}

type translitRequest struct {
	Names []string `json:"names"`
}

type translitResponse struct {
	Readings string `json:"readings"`
}

// TransliterateBatch submits all names in one call and splits the response
// by line. The returned slice may be shorter than the input; it is never
// longer.
func (c *Client) TransliterateBatch(ctx context.Context, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(translitRequest{Names: names})
	if err != nil {
		return nil, apperrors.CollaboratorError(apperrors.CodeTranslitFailed, "transliteration", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/transliterate", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.CollaboratorError(apperrors.CodeTranslitFailed, "transliteration", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.CollaboratorError(apperrors.CodeTranslitFailed, "transliteration", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.CollaboratorError(apperrors.CodeTranslitFailed, "transliteration",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.CollaboratorError(apperrors.CodeTranslitFailed, "transliteration", err)
	}

	var parsed translitResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, apperrors.CollaboratorError(apperrors.CodeInvalidResponse, "transliteration", err)
	}

	return SplitReadings(parsed.Readings, len(names)), nil
}

// SplitReadings splits a line-per-name response, trimming trailing blank
// lines and capping at the number of names requested.
func SplitReadings(readings string, max int) []string {
	lines := strings.Split(strings.ReplaceAll(readings, "\r\n", "\n"), "\n")

	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > max {
		lines = lines[:max]
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = strings.TrimSpace(line)
	}
	return out
}
