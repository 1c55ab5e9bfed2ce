// Package metrics holds the in-process metrics state for one observability session.
//
// A Registry is constructed once per Agent and lives for the process lifetime.
// It is never persisted; Snapshot computes derived values (averages, sort
// order) at read time so nothing stale is ever stored.
package metrics

import (
	"sort"
	"sync"
)

// MethodStats accumulates per-operation counters. All fields are
// monotonically non-decreasing.
type MethodStats struct {
	Calls            int64
	TotalDurationMs  float64
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

// Alert is one recorded responsible-AI alert.
type Alert struct {
	Type    string
	Details string
}

// Registry aggregates call, token, quality, and alert metrics.
//
// All methods are safe for arbitrary concurrent use. Each mutating method
// performs exactly one locked update so multi-field changes are atomic; the
// lock is never held across I/O.
type Registry struct {
	mu sync.Mutex

	totalCalls             int64
	errors                 int64
	interactionCount       int64
	totalInteractionTimeMs float64
	promptTokens           int64
	completionTokens       int64
	totalTokens            int64
	qualityScores          []int
	alerts                 []Alert
	methods                map[string]*MethodStats
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		methods: make(map[string]*MethodStats),
	}
}

// method returns the stats entry for name, creating it on first use.
// Caller must hold r.mu.
func (r *Registry) method(name string) *MethodStats {
	ms, ok := r.methods[name]
	if !ok {
		ms = &MethodStats{}
		r.methods[name] = ms
	}
	return ms
}

// RecordCall counts one completed invocation of the named operation.
func (r *Registry) RecordCall(name string, durationMs float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.totalCalls++
	ms := r.method(name)
	ms.Calls++
	ms.TotalDurationMs += durationMs
}

// RecordUsage adds token usage to the named operation and the session totals.
func (r *Registry) RecordUsage(name string, prompt, completion, total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ms := r.method(name)
	ms.PromptTokens += prompt
	ms.CompletionTokens += completion
	ms.TotalTokens += total
	r.promptTokens += prompt
	r.completionTokens += completion
	r.totalTokens += total
}

// RecordQualityScore appends one user quality rating.
func (r *Registry) RecordQualityScore(score int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.qualityScores = append(r.qualityScores, score)
}

// RecordInteractionTime counts one completed end-to-end interaction.
func (r *Registry) RecordInteractionTime(durationMs float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.interactionCount++
	r.totalInteractionTimeMs += durationMs
}

// RecordError counts one failed invocation.
func (r *Registry) RecordError() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors++
}

// RecordAlert appends one responsible-AI alert.
func (r *Registry) RecordAlert(alertType, details string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.alerts = append(r.alerts, Alert{Type: alertType, Details: details})
}

// MethodSummary is the per-operation slice of a Snapshot.
type MethodSummary struct {
	Name             string
	Calls            int64
	TotalDurationMs  float64
	AvgDurationMs    float64
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
	AvgTokens        float64
}

// Summary is a point-in-time view of the Registry. Averages are computed at
// read time and guarded against empty denominators (reported as zero).
type Summary struct {
	TotalCalls           int64
	Errors               int64
	InteractionCount     int64
	AvgInteractionTimeMs float64
	PromptTokens         int64
	CompletionTokens     int64
	TotalTokens          int64
	QualityCount         int
	AvgQualityScore      float64
	Alerts               []Alert
	// Methods is sorted by total duration, descending.
	Methods []MethodSummary
}

// Snapshot returns a consistent copy of the current state.
func (r *Registry) Snapshot() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{
		TotalCalls:       r.totalCalls,
		Errors:           r.errors,
		InteractionCount: r.interactionCount,
		PromptTokens:     r.promptTokens,
		CompletionTokens: r.completionTokens,
		TotalTokens:      r.totalTokens,
		QualityCount:     len(r.qualityScores),
		Alerts:           append([]Alert(nil), r.alerts...),
	}

	if r.interactionCount > 0 {
		s.AvgInteractionTimeMs = r.totalInteractionTimeMs / float64(r.interactionCount)
	}
	if len(r.qualityScores) > 0 {
		var sum int
		for _, score := range r.qualityScores {
			sum += score
		}
		s.AvgQualityScore = float64(sum) / float64(len(r.qualityScores))
	}

	s.Methods = make([]MethodSummary, 0, len(r.methods))
	for name, ms := range r.methods {
		entry := MethodSummary{
			Name:             name,
			Calls:            ms.Calls,
			TotalDurationMs:  ms.TotalDurationMs,
			PromptTokens:     ms.PromptTokens,
			CompletionTokens: ms.CompletionTokens,
			TotalTokens:      ms.TotalTokens,
		}
		if ms.Calls > 0 {
			entry.AvgDurationMs = ms.TotalDurationMs / float64(ms.Calls)
			entry.AvgTokens = float64(ms.TotalTokens) / float64(ms.Calls)
		}
		s.Methods = append(s.Methods, entry)
	}
	sort.Slice(s.Methods, func(i, j int) bool {
		return s.Methods[i].TotalDurationMs > s.Methods[j].TotalDurationMs
	})

	return s
}
