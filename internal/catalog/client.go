// Package catalog is the client for the external catalog retrieval API.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"catalog-export/internal/common/errors"
)

// Client talks to the catalog search and count endpoints. The catalog
// guarantees a stable sort order across calls against the same filter,
// which is what makes offset pagination sound.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type searchRequest struct {
	Filter     Filter     `json:"filter"`
	Columns    []string   `json:"columns,omitempty"`
	Pagination pagination `json:"pagination"`
}

type pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type searchResponse struct {
	Items []AssetRecord `json:"items"`
}

type countRequest struct {
	Filter Filter `json:"filter"`
}

type countResponse struct {
	Total int `json:"total"`
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Count returns the total number of records matching the filter.
func (c *Client) Count(ctx context.Context, filter Filter) (int, error) {
	var out countResponse
	if err := c.post(ctx, "/assets/count", countRequest{Filter: filter}, &out); err != nil {
		if isTimeout(err) {
			return 0, errors.NewCatalogTimeoutError(err)
		}
		return 0, errors.NewCatalogCountFailedError(err)
	}
	return out.Total, nil
}

// Page returns up to limit records for the filter starting at offset.
// columns optionally restricts which attributes the catalog materializes.
func (c *Client) Page(ctx context.Context, filter Filter, columns []string, limit, offset int) ([]AssetRecord, error) {
	req := searchRequest{
		Filter:     filter,
		Columns:    columns,
		Pagination: pagination{Limit: limit, Offset: offset},
	}

	var out searchResponse
	if err := c.post(ctx, "/assets/search", req, &out); err != nil {
		if isTimeout(err) {
			return nil, errors.NewCatalogTimeoutError(err)
		}
		return nil, errors.NewCatalogPageFailedError(offset, err)
	}
	return out.Items, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func isTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return stderrors.As(err, &t) && t.Timeout()
}
