package kansatsu

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Option configures an Agent.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported — callers use the With* functions.
type resolvedOptions struct {
	logger           *slog.Logger
	serviceName      string
	version          string
	dashboardURL     *string
	dashboardTimeout time.Duration
	nerServiceURL    string
	recognizer       Recognizer
	tracerProvider   trace.TracerProvider
	extractors       []UsageExtractor
}

// WithLogger sets the structured logger for the Agent.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithServiceName overrides the service name from config (KANSATSU_SERVICE_NAME env var).
func WithServiceName(name string) Option {
	return func(o *resolvedOptions) { o.serviceName = name }
}

// WithVersion overrides the service version reported on the trace resource
// (KANSATSU_SERVICE_VERSION env var).
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithDashboardURL overrides the dashboard endpoint from config
// (KANSATSU_DASHBOARD_URL env var). An empty string disables the sink.
func WithDashboardURL(url string) Option {
	return func(o *resolvedOptions) { o.dashboardURL = &url }
}

// WithDashboardTimeout overrides the per-push timeout
// (KANSATSU_DASHBOARD_TIMEOUT env var).
func WithDashboardTimeout(timeout time.Duration) Option {
	return func(o *resolvedOptions) { o.dashboardTimeout = timeout }
}

// WithNERServiceURL overrides the NER sidecar base URL (KANSATSU_NER_URL env var).
func WithNERServiceURL(url string) Option {
	return func(o *resolvedOptions) { o.nerServiceURL = url }
}

// WithRecognizer replaces the auto-detected HTTP NER sidecar with a custom
// Recognizer implementation.
func WithRecognizer(r Recognizer) Option {
	return func(o *resolvedOptions) { o.recognizer = r }
}

// WithTracerProvider uses the given tracer provider instead of initializing
// OpenTelemetry globally. The Agent then takes no ownership of provider
// shutdown.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *resolvedOptions) { o.tracerProvider = tp }
}

// WithUsageExtractors replaces the built-in token-usage extractor chain.
// Extractors are tried in the given order; the first match wins.
func WithUsageExtractors(extractors ...UsageExtractor) Option {
	return func(o *resolvedOptions) { o.extractors = extractors }
}
