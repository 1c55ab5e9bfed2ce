package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureServer records every JSON body posted to it.
type captureServer struct {
	mu     sync.Mutex
	bodies []map[string]any
	srv    *httptest.Server
}

func newCaptureServer(t *testing.T) *captureServer {
	t.Helper()
	cs := &captureServer{}
	cs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		cs.mu.Lock()
		cs.bodies = append(cs.bodies, body)
		cs.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(cs.srv.Close)
	return cs
}

func (cs *captureServer) received() []map[string]any {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]map[string]any(nil), cs.bodies...)
}

func TestClientPushesAllEventTypes(t *testing.T) {
	cs := newCaptureServer(t)
	c := NewClient(cs.srv.URL, time.Second, slog.Default())

	c.MethodPerformance("generate", 12.5)
	c.MethodUsage("generate", 10, 20, 30)
	c.InteractionTime(99)
	c.QualityFeedback(4)
	c.Alert("EMAIL", "Found at index 3")
	c.Error()
	c.SessionEnd()

	got := cs.received()
	require.Len(t, got, 7)

	assert.Equal(t, "method_performance", got[0]["type"])
	assert.Equal(t, "generate", got[0]["name"])
	assert.Equal(t, 12.5, got[0]["duration_ms"])

	assert.Equal(t, "method_llm_usage", got[1]["type"])
	tokens, ok := got[1]["tokens"].(map[string]any)
	require.True(t, ok, "tokens should be an object")
	assert.Equal(t, float64(10), tokens["prompt"])
	assert.Equal(t, float64(20), tokens["completion"])
	assert.Equal(t, float64(30), tokens["total"])

	assert.Equal(t, "interaction_time", got[2]["type"])
	assert.Equal(t, "quality_feedback", got[3]["type"])
	assert.Equal(t, float64(4), got[3]["score"])

	assert.Equal(t, "rai_alert", got[4]["type"])
	alert, ok := got[4]["alert"].(map[string]any)
	require.True(t, ok, "alert should be an object")
	assert.Equal(t, "EMAIL", alert["type"])
	assert.Equal(t, "Found at index 3", alert["details"])

	assert.Equal(t, "error", got[5]["type"])
	assert.Equal(t, "session_end", got[6]["type"])
}

func TestClientDisabledWithEmptyURL(t *testing.T) {
	c := NewClient("", time.Second, slog.Default())
	assert.False(t, c.Enabled())

	// Must be a no-op, not a fault.
	c.MethodPerformance("x", 1)
	c.SessionEnd()
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.False(t, c.Enabled())
	c.Error()
	c.SessionEnd()
}

// warnCounter is a slog.Handler that counts warn-or-higher records.
type warnCounter struct {
	mu    sync.Mutex
	warns int
}

func newWarnCounter() *warnCounter { return &warnCounter{} }

func (h *warnCounter) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *warnCounter) Handle(_ context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		h.mu.Lock()
		h.warns++
		h.mu.Unlock()
	}
	return nil
}

func (h *warnCounter) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *warnCounter) WithGroup(_ string) slog.Handler      { return h }

func (h *warnCounter) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.warns
}

func TestUnreachableEndpointWarnsExactlyOnce(t *testing.T) {
	h := newWarnCounter()
	logger := slog.New(h)

	// Port 1 is essentially guaranteed to refuse connections.
	c := NewClient("http://127.0.0.1:1/update", 100*time.Millisecond, logger)

	for i := 0; i < 100; i++ {
		c.MethodPerformance("x", 1)
	}

	assert.Equal(t, 1, h.count())
}
