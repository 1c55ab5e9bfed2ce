package kansatsu

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Op is a unit of work Monitor can instrument: one argument, one result,
// one error.
type Op[A, R any] func(ctx context.Context, arg A) (R, error)

// CallOption configures one Monitor wrapping.
type CallOption func(*callOptions)

type callOptions struct {
	name        string
	trackTokens bool
	logIO       bool
}

// WithSpanName overrides the span name derived from the operation's function
// identifier.
func WithSpanName(name string) CallOption {
	return func(o *callOptions) { o.name = name }
}

// WithTokenTracking enables token-usage extraction from the operation result.
func WithTokenTracking() CallOption {
	return func(o *callOptions) { o.trackTokens = true }
}

// WithIOLogging attaches truncated renderings of the argument and result as
// span events.
func WithIOLogging() CallOption {
	return func(o *callOptions) { o.logIO = true }
}

// ioEventLimit caps the length of function_input/function_output payloads.
const ioEventLimit = 1000

// Monitor wraps op with tracing, timing, and metering. The returned
// operation has the identical signature and is fully transparent: it returns
// exactly the result and error op produces, and its only effects are the
// tracing/metrics/telemetry side channels.
//
// The wrapper holds no invocation-spanning state and is safe for unlimited
// concurrent use. It imposes no timeout of its own; op may block as long as
// the caller's ctx allows.
func Monitor[A, R any](a *Agent, op Op[A, R], opts ...CallOption) Op[A, R] {
	co := callOptions{}
	for _, fn := range opts {
		fn(&co)
	}
	name := co.name
	if name == "" {
		name = opName(op)
	}

	return func(ctx context.Context, arg A) (R, error) {
		ctx, span := a.tracer.Start(ctx, name)
		start := time.Now()
		defer func() {
			// Exactly once per invocation — success, error, or panic unwind.
			elapsed := time.Since(start)
			a.RecordCall(name, elapsed)
			span.SetAttributes(attribute.Float64("duration.ms", millis(elapsed)))
			span.End()
			a.logger.Debug("monitored call finished", "name", name, "duration_ms", millis(elapsed))
		}()

		if co.logIO {
			span.AddEvent("function_input", trace.WithAttributes(
				attribute.String("input", renderInput(arg)),
			))
		}

		result, err := op(ctx, arg)
		if err != nil {
			a.RecordError()
			a.logger.Error("monitored call failed", "name", name, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "operation failed: "+err.Error())
			span.SetAttributes(attribute.String("error.type", fmt.Sprintf("%T", err)))
			return result, err
		}

		span.SetStatus(codes.Ok, "")

		if co.trackTokens {
			if u, ok := a.extractUsage(result); ok && u.TotalTokens > 0 {
				a.RecordUsage(name, u)
				span.SetAttributes(
					attribute.Int("llm.usage.prompt_tokens", u.PromptTokens),
					attribute.Int("llm.usage.completion_tokens", u.CompletionTokens),
					attribute.Int("llm.usage.total_tokens", u.TotalTokens),
				)
			}
		}

		if co.logIO {
			span.AddEvent("function_output", trace.WithAttributes(
				attribute.String("output", renderOutput(result)),
			))
		}

		return result, nil
	}
}

// renderInput serializes an argument for a function_input event. A
// serialization fault is replaced with a fixed placeholder; it never
// propagates.
func renderInput(arg any) string {
	raw, err := json.Marshal(arg)
	if err != nil {
		return "Could not serialize input."
	}
	return truncate(string(raw), ioEventLimit)
}

func renderOutput(result any) string {
	if tp, ok := result.(TextProvider); ok {
		return truncate(tp.Text(), ioEventLimit)
	}
	return truncate(fmt.Sprintf("%v", result), ioEventLimit)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

// opName derives a span name from the operation's function identifier.
func opName(fn any) string {
	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if f == nil {
		return "operation"
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
