// Package ner talks to the clinical NER sidecar that wraps the
// token-classification model. The model itself is an external collaborator;
// this client only knows its one-endpoint HTTP contract.
package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/DandyChux/raecer-bot/app/config"
	"github.com/DandyChux/raecer-bot/app/service/store"
	"github.com/samber/do"
)

type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	baseURL    string
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.NERTimeout(),
		},
		baseURL: strings.TrimSuffix(cfg.NER.BaseURL, "/"),
	}, nil
}

type extractRequest struct {
	Text string `json:"text"`
}

type extractResponse struct {
	Entities map[string][]string `json:"entities"`
}

// Extract returns the clinical entities detected in text, grouped by
// category. Empty or whitespace-only input yields an empty map without a
// network call.
func (c *Client) Extract(ctx context.Context, text string) (store.EntityMap, error) {
	if strings.TrimSpace(text) == "" {
		return store.EntityMap{}, nil
	}

	body, err := json.Marshal(extractRequest{Text: text})
	if err != nil {
		return store.EntityMap{}, fmt.Errorf("failed to marshal extract request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return store.EntityMap{}, fmt.Errorf("failed to build extract request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return store.EntityMap{}, fmt.Errorf("extract request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return store.EntityMap{}, fmt.Errorf("extract request returned status %d", resp.StatusCode)
	}

	var parsed extractResponse
	if err = json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return store.EntityMap{}, fmt.Errorf("failed to decode extract response: %w", err)
	}

	return store.EntityMapFrom(parsed.Entities), nil
}
