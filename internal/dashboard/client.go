// Package dashboard pushes live telemetry events to an external dashboard endpoint.
//
// Every push is fire-and-forget: a short per-push timeout bounds the caller's
// wait, failures never surface as errors, and nothing is retried or queued.
// The first failed push logs one warning; later failures are silent while
// push attempts continue, so a dashboard that comes up mid-session starts
// receiving events without intervention.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Client sends JSON events to the dashboard update endpoint.
// A nil Client, or one constructed with an empty URL, drops every event.
// All methods are safe for concurrent use.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
	warnOnce   sync.Once
}

// NewClient creates a dashboard client. An empty url disables the client
// without error. timeout bounds each individual push.
func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Enabled reports whether pushes have a destination.
func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

type methodPerformanceEvent struct {
	Type       string  `json:"type"`
	Name       string  `json:"name"`
	DurationMs float64 `json:"duration_ms"`
}

type tokenCounts struct {
	Prompt     int64 `json:"prompt"`
	Completion int64 `json:"completion"`
	Total      int64 `json:"total"`
}

type methodUsageEvent struct {
	Type   string      `json:"type"`
	Name   string      `json:"name"`
	Tokens tokenCounts `json:"tokens"`
}

type interactionTimeEvent struct {
	Type       string  `json:"type"`
	DurationMs float64 `json:"duration_ms"`
}

type qualityFeedbackEvent struct {
	Type  string `json:"type"`
	Score int    `json:"score"`
}

type alertBody struct {
	Type    string `json:"type"`
	Details string `json:"details"`
}

type raiAlertEvent struct {
	Type  string    `json:"type"`
	Alert alertBody `json:"alert"`
}

type bareEvent struct {
	Type string `json:"type"`
}

// MethodPerformance reports one completed invocation of a named operation.
func (c *Client) MethodPerformance(name string, durationMs float64) {
	c.push(methodPerformanceEvent{Type: "method_performance", Name: name, DurationMs: durationMs})
}

// MethodUsage reports token usage for a named operation.
func (c *Client) MethodUsage(name string, prompt, completion, total int64) {
	c.push(methodUsageEvent{
		Type:   "method_llm_usage",
		Name:   name,
		Tokens: tokenCounts{Prompt: prompt, Completion: completion, Total: total},
	})
}

// InteractionTime reports one end-to-end interaction duration.
func (c *Client) InteractionTime(durationMs float64) {
	c.push(interactionTimeEvent{Type: "interaction_time", DurationMs: durationMs})
}

// QualityFeedback reports one user quality rating.
func (c *Client) QualityFeedback(score int) {
	c.push(qualityFeedbackEvent{Type: "quality_feedback", Score: score})
}

// Alert reports one responsible-AI alert.
func (c *Client) Alert(alertType, details string) {
	c.push(raiAlertEvent{Type: "rai_alert", Alert: alertBody{Type: alertType, Details: details}})
}

// Error reports one failed invocation.
func (c *Client) Error() {
	c.push(bareEvent{Type: "error"})
}

// SessionEnd tells the dashboard the session is over.
func (c *Client) SessionEnd() {
	c.push(bareEvent{Type: "session_end"})
}

func (c *Client) push(payload any) {
	if !c.Enabled() {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		// Payload structs are plain data; this cannot happen in practice.
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.httpClient.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.warnOnce.Do(func() {
			c.logger.Warn("could not connect to dashboard; is it running?",
				"url", c.url, "error", err)
		})
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
