package kansatsu

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestCheckTextRecordsAlerts(t *testing.T) {
	a, _ := newTestAgent(t)

	res := a.CheckText(context.Background(),
		"Reach me at jane@example.com or 555-867-5309 after 5pm.")
	require.True(t, res.PIIFound)
	require.Equal(t, 2, res.Count)
	require.Equal(t, PIIEmail, res.Findings[0].Category)
	require.Equal(t, PIIPhoneUS, res.Findings[1].Category)

	s := a.Summary()
	require.Len(t, s.Alerts, 2)
	require.Equal(t, string(PIIEmail), s.Alerts[0].Type)
}

func TestCheckTextAnnotatesActiveSpan(t *testing.T) {
	a, recorder := newTestAgent(t)

	ctx, span := a.Tracer().Start(context.Background(), "handle_request")
	res := a.CheckText(ctx, "SSN is 123-45-6789")
	span.End()

	require.True(t, res.PIIFound)

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	var sawRedacted bool
	for _, ev := range spans[0].Events() {
		if ev.Name != "rai_alert" {
			continue
		}
		for _, kv := range ev.Attributes {
			if string(kv.Key) == "match_text" {
				require.NotContains(t, kv.Value.AsString(), "123-45")
				sawRedacted = true
			}
		}
	}
	require.True(t, sawRedacted)
}

func TestCheckTextCleanInput(t *testing.T) {
	a, _ := newTestAgent(t)

	res := a.CheckText(context.Background(), "The weather in spring is mild.")
	require.False(t, res.PIIFound)
	require.Zero(t, res.Count)
	require.Empty(t, a.Summary().Alerts)
}

func TestSummaryRendering(t *testing.T) {
	a, _ := newTestAgent(t, WithServiceName("render-test"))

	a.RecordCall("generate", 120*time.Millisecond)
	a.RecordCall("generate", 80*time.Millisecond)
	a.RecordCall("classify", 10*time.Millisecond)
	a.RecordUsage("generate", Usage{PromptTokens: 100, CompletionTokens: 60, TotalTokens: 160})
	a.RecordQualityScore(4)
	a.RecordQualityScore(5)
	a.RecordInteractionTime(2 * time.Second)
	a.RecordError()

	s := a.Summary()
	require.Equal(t, "render-test", s.ServiceName)
	require.Equal(t, int64(3), s.TotalCalls)
	require.Equal(t, int64(1), s.Errors)
	require.InDelta(t, 4.5, s.AvgQualityScore, 1e-9)
	require.InDelta(t, 2000, s.AvgInteractionTimeMs, 1e-6)
	// Sorted by total duration: generate (200ms) before classify (10ms).
	require.Equal(t, "generate", s.Methods[0].Name)
	require.Equal(t, "classify", s.Methods[1].Name)

	text := s.String()
	require.Contains(t, text, "render-test")
	require.Contains(t, text, "Total monitored calls: 3")
	require.Contains(t, text, "generate")
	require.Contains(t, text, "Average quality score: 4.50")
}

func TestSummaryEmptySession(t *testing.T) {
	a, _ := newTestAgent(t)

	s := a.Summary()
	require.Zero(t, s.TotalCalls)
	require.Zero(t, s.AvgQualityScore)
	require.Zero(t, s.AvgInteractionTimeMs)
	require.Contains(t, s.String(), "No methods were monitored")
}

func TestShutdownSendsSessionEnd(t *testing.T) {
	var mu sync.Mutex
	var types []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var ev struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(body, &ev))
		mu.Lock()
		types = append(types, ev.Type)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	a, err := New(
		WithTracerProvider(tp),
		WithDashboardURL(srv.URL),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	a.RecordCall("generate", 50*time.Millisecond)
	require.NoError(t, a.Shutdown(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"method_performance", "session_end"}, types)
}

func TestOptionOverridesConfig(t *testing.T) {
	t.Setenv("KANSATSU_SERVICE_NAME", "from-env")

	a, _ := newTestAgent(t, WithServiceName("from-option"))
	require.Equal(t, "from-option", a.Summary().ServiceName)

	b, _ := newTestAgent(t)
	require.Equal(t, "from-env", b.Summary().ServiceName)
}

func TestCustomRecognizerWiring(t *testing.T) {
	rec := stubPublicRecognizer{entities: []Entity{
		{Text: "Alice", Label: "PERSON", Start: 0, End: 5},
	}}
	a, _ := newTestAgent(t, WithRecognizer(rec))

	res := a.CheckText(context.Background(), "Alice went home.")
	require.True(t, res.PIIFound)
	require.Equal(t, PIIPersonName, res.Findings[0].Category)
	require.True(t, strings.Contains(res.Findings[0].Detail, "Alice"))
}

type stubPublicRecognizer struct {
	entities []Entity
}

func (s stubPublicRecognizer) Entities(ctx context.Context, text string) ([]Entity, error) {
	return s.entities, nil
}
