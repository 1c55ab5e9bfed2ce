package kansatsu

import "context"

// Entity is a named entity returned by a Recognizer. Start and End are byte
// offsets into the scanned text.
type Entity struct {
	Text  string
	Label string
	Start int
	End   int
}

// Recognizer is the statistical named-entity recognition capability behind
// tier 3 of CheckText. When provided via WithRecognizer, it replaces the
// auto-detected HTTP sidecar. Implementations must be safe for concurrent
// use; a failed call degrades the statistical tier for that scan only.
type Recognizer interface {
	Entities(ctx context.Context, text string) ([]Entity, error)
}

// UsageExtractor probes an operation result for token usage. Extractors run
// in priority order; the first one that matches wins and no further shapes
// are probed.
type UsageExtractor func(result any) (Usage, bool)

// UsageMetadataProvider is the usage-metadata response shape
// (prompt/candidates/total counts, as returned by Gemini-style APIs).
type UsageMetadataProvider interface {
	UsageMetadata() (promptTokens, candidateTokens, totalTokens int)
}

// UsageProvider is the prompt/completion/total response shape. OpenAI
// chat and completion responses are recognized directly without this
// interface; implement it for other providers with the same shape.
type UsageProvider interface {
	TokenUsage() (promptTokens, completionTokens, totalTokens int)
}

// IOUsageProvider is the input/output response shape (Anthropic-style).
// The total is derived as the sum of the two.
type IOUsageProvider interface {
	IOTokenUsage() (inputTokens, outputTokens int)
}

// TextProvider exposes the conventional textual rendering of a result,
// preferred over a generic string conversion for function_output events.
type TextProvider interface {
	Text() string
}
