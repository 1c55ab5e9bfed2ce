package kansatsu

import (
	openai "github.com/sashabaranov/go-openai"
)

// DefaultUsageExtractors returns the built-in extractor chain, in the
// priority order Monitor probes response shapes:
//
//  1. usage-metadata (prompt/candidates/total);
//  2. usage with prompt/completion/total fields, including OpenAI chat and
//     completion responses;
//  3. usage with input/output fields, total derived as their sum.
func DefaultUsageExtractors() []UsageExtractor {
	return []UsageExtractor{
		ExtractUsageMetadata,
		ExtractChatUsage,
		ExtractIOUsage,
	}
}

// ExtractUsageMetadata matches results implementing UsageMetadataProvider.
func ExtractUsageMetadata(result any) (Usage, bool) {
	p, ok := result.(UsageMetadataProvider)
	if !ok {
		return Usage{}, false
	}
	prompt, candidates, total := p.UsageMetadata()
	return Usage{PromptTokens: prompt, CompletionTokens: candidates, TotalTokens: total}, true
}

// ExtractChatUsage matches the prompt/completion/total shape: OpenAI chat
// and legacy completion responses, or any UsageProvider.
func ExtractChatUsage(result any) (Usage, bool) {
	switch r := result.(type) {
	case *openai.ChatCompletionResponse:
		if r == nil {
			return Usage{}, false
		}
		return usageFromOpenAI(r.Usage), true
	case openai.ChatCompletionResponse:
		return usageFromOpenAI(r.Usage), true
	case *openai.CompletionResponse:
		if r == nil {
			return Usage{}, false
		}
		return usageFromOpenAI(r.Usage), true
	case openai.CompletionResponse:
		return usageFromOpenAI(r.Usage), true
	case UsageProvider:
		prompt, completion, total := r.TokenUsage()
		return Usage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: total}, true
	}
	return Usage{}, false
}

// ExtractIOUsage matches results implementing IOUsageProvider.
func ExtractIOUsage(result any) (Usage, bool) {
	p, ok := result.(IOUsageProvider)
	if !ok {
		return Usage{}, false
	}
	in, out := p.IOTokenUsage()
	return Usage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out}, true
}

func usageFromOpenAI(u openai.Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

// extractUsage runs the Agent's extractor chain over a result.
func (a *Agent) extractUsage(result any) (Usage, bool) {
	for _, extract := range a.extractors {
		if u, ok := extract(result); ok {
			return u, true
		}
	}
	return Usage{}, false
}
