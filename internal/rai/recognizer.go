package rai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPRecognizer calls a spaCy-style named-entity recognition sidecar over
// HTTP. The sidecar exposes POST /entities accepting {"text": ...} and
// returning the entities with byte offsets.
type HTTPRecognizer struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPRecognizer creates a recognizer client for the sidecar at baseURL.
func NewHTTPRecognizer(baseURL string) *HTTPRecognizer {
	if baseURL == "" {
		baseURL = "http://localhost:8060"
	}
	return &HTTPRecognizer{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type entitiesRequest struct {
	Text string `json:"text"`
}

type entityPayload struct {
	Text      string `json:"text"`
	Label     string `json:"label"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
}

type entitiesResponse struct {
	Entities []entityPayload `json:"entities"`
}

// Entities returns the named entities found in text, in document order.
func (r *HTTPRecognizer) Entities(ctx context.Context, text string) ([]Entity, error) {
	reqBody, err := json.Marshal(entitiesRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("rai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/entities", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("rai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rai: send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("rai: recognizer status %d: %s", resp.StatusCode, string(body))
	}

	var result entitiesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("rai: decode response: %w", err)
	}

	entities := make([]Entity, 0, len(result.Entities))
	for _, e := range result.Entities {
		entities = append(entities, Entity{
			Text:  e.Text,
			Label: e.Label,
			Start: e.StartChar,
			End:   e.EndChar,
		})
	}
	return entities, nil
}

// Reachable checks whether a recognizer sidecar is responding at baseURL.
func Reachable(baseURL string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
