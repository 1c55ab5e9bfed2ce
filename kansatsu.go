// Package kansatsu instruments LLM-backed applications: it wraps operations
// with OpenTelemetry tracing, aggregates session metrics, scans text for
// PII/PHI, and pushes live events to an optional dashboard.
package kansatsu

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashita-ai/kansatsu/internal/config"
	"github.com/ashita-ai/kansatsu/internal/dashboard"
	"github.com/ashita-ai/kansatsu/internal/metrics"
	"github.com/ashita-ai/kansatsu/internal/rai"
	"github.com/ashita-ai/kansatsu/internal/telemetry"
)

// Agent is the session-scoped observability core. Construct one per process
// with New; all methods are safe for concurrent use.
type Agent struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *metrics.Registry
	dash     *dashboard.Client
	scanner  *rai.Scanner
	tracer   trace.Tracer

	extractors []UsageExtractor

	// otelShutdown is non-nil only when New initialized the global providers
	// itself; an injected tracer provider is never shut down by the Agent.
	otelShutdown telemetry.Shutdown

	callCounter  metric.Int64Counter
	errorCounter metric.Int64Counter
	tokenCounter metric.Int64Counter
}

// New creates an Agent from environment configuration and options.
// Options win over environment variables.
func New(opts ...Option) (*Agent, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("kansatsu: load config: %w", err)
	}
	if o.serviceName != "" {
		cfg.ServiceName = o.serviceName
	}
	if o.version != "" {
		cfg.ServiceVersion = o.version
	}
	if o.dashboardURL != nil {
		cfg.DashboardURL = *o.dashboardURL
	}
	if o.dashboardTimeout > 0 {
		cfg.DashboardTimeout = o.dashboardTimeout
	}
	if o.nerServiceURL != "" {
		cfg.NERServiceURL = o.nerServiceURL
	}

	logger.Info("kansatsu starting",
		"service", cfg.ServiceName,
		"version", cfg.ServiceVersion,
	)

	a := &Agent{
		cfg:      cfg,
		logger:   logger,
		registry: metrics.New(),
	}

	var tp trace.TracerProvider
	if o.tracerProvider != nil {
		tp = o.tracerProvider
	} else {
		shutdown, err := telemetry.Init(context.Background(),
			cfg.OTELEndpoint, cfg.ServiceName, cfg.ServiceVersion, cfg.OTELInsecure)
		if err != nil {
			return nil, fmt.Errorf("kansatsu: init telemetry: %w", err)
		}
		a.otelShutdown = shutdown
		tp = otel.GetTracerProvider()
	}
	a.tracer = tp.Tracer(cfg.ServiceName,
		trace.WithInstrumentationVersion(cfg.ServiceVersion))

	a.dash = dashboard.NewClient(cfg.DashboardURL, cfg.DashboardTimeout, logger)
	if !a.dash.Enabled() {
		logger.Info("dashboard sink disabled")
	}

	var recognizer rai.Recognizer
	switch {
	case o.recognizer != nil:
		recognizer = recognizerAdapter{o.recognizer}
	case cfg.NERServiceURL != "":
		if rai.Reachable(cfg.NERServiceURL) {
			logger.Info("NER sidecar detected; statistical PII detection enabled",
				"url", cfg.NERServiceURL)
			recognizer = rai.NewHTTPRecognizer(cfg.NERServiceURL)
		} else {
			logger.Warn("NER sidecar not reachable; statistical PII detection disabled",
				"url", cfg.NERServiceURL)
		}
	default:
		logger.Warn("no NER recognizer configured; statistical PII detection disabled")
	}
	a.scanner = rai.NewScanner(recognizer, func(cat rai.Category, detail string) {
		a.RecordAlert(PIICategory(cat), detail)
	}, logger)

	a.extractors = o.extractors
	if a.extractors == nil {
		a.extractors = DefaultUsageExtractors()
	}

	meter := telemetry.Meter(cfg.ServiceName)
	a.callCounter, err = meter.Int64Counter("kansatsu.calls",
		metric.WithDescription("Completed monitored invocations"))
	if err != nil {
		return nil, fmt.Errorf("kansatsu: create call counter: %w", err)
	}
	a.errorCounter, err = meter.Int64Counter("kansatsu.errors",
		metric.WithDescription("Failed monitored invocations"))
	if err != nil {
		return nil, fmt.Errorf("kansatsu: create error counter: %w", err)
	}
	a.tokenCounter, err = meter.Int64Counter("kansatsu.tokens",
		metric.WithDescription("LLM tokens consumed"))
	if err != nil {
		return nil, fmt.Errorf("kansatsu: create token counter: %w", err)
	}

	return a, nil
}

// Tracer returns the Agent's tracer for callers that open their own spans
// around monitored operations.
func (a *Agent) Tracer() trace.Tracer {
	return a.tracer
}

// RecordCall counts one completed invocation of a named operation. Monitor
// calls this automatically; call it directly only for work wrapped by other
// means.
func (a *Agent) RecordCall(name string, d time.Duration) {
	ms := millis(d)
	a.registry.RecordCall(name, ms)
	a.dash.MethodPerformance(name, ms)
	a.callCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("method", name)))
}

// RecordUsage adds token usage for a named operation.
func (a *Agent) RecordUsage(name string, u Usage) {
	a.registry.RecordUsage(name,
		int64(u.PromptTokens), int64(u.CompletionTokens), int64(u.TotalTokens))
	a.dash.MethodUsage(name,
		int64(u.PromptTokens), int64(u.CompletionTokens), int64(u.TotalTokens))
	a.tokenCounter.Add(context.Background(), int64(u.TotalTokens),
		metric.WithAttributes(attribute.String("method", name)))
}

// RecordQualityScore records one user quality rating, typically 1-5.
func (a *Agent) RecordQualityScore(score int) {
	a.registry.RecordQualityScore(score)
	a.dash.QualityFeedback(score)
}

// RecordInteractionTime records one end-to-end interaction duration, spanning
// whatever the application considers a full user exchange.
func (a *Agent) RecordInteractionTime(d time.Duration) {
	ms := millis(d)
	a.registry.RecordInteractionTime(ms)
	a.dash.InteractionTime(ms)
}

// RecordError counts one failed invocation.
func (a *Agent) RecordError() {
	a.registry.RecordError()
	a.dash.Error()
	a.errorCounter.Add(context.Background(), 1)
}

// RecordAlert records one responsible-AI alert. CheckText calls this for
// every finding; call it directly for alerts raised by other checks.
func (a *Agent) RecordAlert(category PIICategory, details string) {
	a.registry.RecordAlert(string(category), details)
	a.dash.Alert(string(category), details)
}

// CheckText scans text for PII/PHI through the three-tier detection pipeline.
// Findings are recorded as alerts and annotated, redacted, on the span in ctx.
func (a *Agent) CheckText(ctx context.Context, text string) ScanResult {
	span := trace.SpanFromContext(ctx)
	res := a.scanner.Scan(ctx, text, span)

	out := ScanResult{
		PIIFound: res.PIIFound,
		Count:    res.Count,
		Findings: make([]Finding, 0, len(res.Findings)),
	}
	for _, f := range res.Findings {
		out.Findings = append(out.Findings, Finding{
			Category: PIICategory(f.Category),
			Detail:   f.Detail,
			Start:    f.Start,
			End:      f.End,
		})
	}
	return out
}

// Summary returns a point-in-time view of the session metrics.
func (a *Agent) Summary() Summary {
	snap := a.registry.Snapshot()

	s := Summary{
		ServiceName:          a.cfg.ServiceName,
		TotalCalls:           snap.TotalCalls,
		Errors:               snap.Errors,
		InteractionCount:     snap.InteractionCount,
		AvgInteractionTimeMs: snap.AvgInteractionTimeMs,
		PromptTokens:         snap.PromptTokens,
		CompletionTokens:     snap.CompletionTokens,
		TotalTokens:          snap.TotalTokens,
		QualityCount:         snap.QualityCount,
		AvgQualityScore:      snap.AvgQualityScore,
		Alerts:               make([]Alert, 0, len(snap.Alerts)),
		Methods:              make([]MethodSummary, 0, len(snap.Methods)),
	}
	for _, al := range snap.Alerts {
		s.Alerts = append(s.Alerts, Alert{Type: al.Type, Details: al.Details})
	}
	for _, m := range snap.Methods {
		s.Methods = append(s.Methods, MethodSummary{
			Name:             m.Name,
			Calls:            m.Calls,
			TotalDurationMs:  m.TotalDurationMs,
			AvgDurationMs:    m.AvgDurationMs,
			PromptTokens:     m.PromptTokens,
			CompletionTokens: m.CompletionTokens,
			TotalTokens:      m.TotalTokens,
			AvgTokens:        m.AvgTokens,
		})
	}
	return s
}

// Shutdown ends the session: it notifies the dashboard, flushes telemetry
// providers the Agent owns, and logs a final summary line. The Agent must not
// be used after Shutdown returns.
func (a *Agent) Shutdown(ctx context.Context) error {
	a.logger.Info("kansatsu shutting down", "service", a.cfg.ServiceName)

	a.dash.SessionEnd()

	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			return fmt.Errorf("kansatsu: shutdown telemetry: %w", err)
		}
	}

	snap := a.registry.Snapshot()
	a.logger.Info("session ended",
		"total_calls", snap.TotalCalls,
		"errors", snap.Errors,
		"total_tokens", snap.TotalTokens,
		"alerts", len(snap.Alerts),
	)
	return nil
}

// recognizerAdapter bridges the public Recognizer interface to the internal
// scanning pipeline.
type recognizerAdapter struct {
	r Recognizer
}

func (ra recognizerAdapter) Entities(ctx context.Context, text string) ([]rai.Entity, error) {
	entities, err := ra.r.Entities(ctx, text)
	if err != nil {
		return nil, err
	}
	out := make([]rai.Entity, 0, len(entities))
	for _, e := range entities {
		out = append(out, rai.Entity{Text: e.Text, Label: e.Label, Start: e.Start, End: e.End})
	}
	return out, nil
}
