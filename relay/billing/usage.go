// Package billing extracts token usage from upstream responses and prices
// it against a BillingPlan's PriceRules, grounded on
// service/utils/billing.rs's parse_usage_info/calculate_cost pair.
package billing

import (
	"encoding/json"

	"github.com/cyder-hub/cyder-gateway/model"
)

// Usage is the token accounting pulled out of one upstream response body,
// independent of which dialect produced it.
type Usage struct {
	InputTokens     int32
	OutputTokens    int32
	ReasoningTokens int32
	CachedTokens    int32
	TotalTokens     int32
}

// ParseUsage extracts Usage from a raw upstream response body, using the
// field layout of the dialect that produced it. It returns ok=false when the
// body carries no usage block at all (e.g. a provider error payload).
func ParseUsage(body []byte, providerType model.ProviderType) (usage Usage, ok bool) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return Usage{}, false
	}

	switch providerType {
	case model.ProviderTypeGemini, model.ProviderTypeVertex:
		return parseGeminiUsage(doc)
	case model.ProviderTypeOllama:
		return parseOllamaUsage(doc)
	default:
		return parseOpenAIUsage(doc)
	}
}

func parseOpenAIUsage(doc map[string]json.RawMessage) (Usage, bool) {
	raw, present := doc["usage"]
	if !present || string(raw) == "null" {
		return Usage{}, false
	}

	var u struct {
		PromptTokens     int32 `json:"prompt_tokens"`
		CompletionTokens int32 `json:"completion_tokens"`
		TotalTokens      int32 `json:"total_tokens"`
		Details          struct {
			ReasoningTokens int32 `json:"reasoning_tokens"`
		} `json:"completion_tokens_details"`
	}
	if err := json.Unmarshal(raw, &u); err != nil {
		return Usage{}, false
	}

	reasoning := u.Details.ReasoningTokens
	if reasoning == 0 {
		if calc := u.TotalTokens - u.PromptTokens - u.CompletionTokens; calc > 0 {
			reasoning = calc
		}
	}

	return Usage{
		InputTokens:     u.PromptTokens,
		OutputTokens:    u.CompletionTokens,
		ReasoningTokens: reasoning,
		TotalTokens:     u.TotalTokens,
	}, true
}

func parseGeminiUsage(doc map[string]json.RawMessage) (Usage, bool) {
	raw, present := doc["usageMetadata"]
	if !present || string(raw) == "null" {
		return Usage{}, false
	}

	var u struct {
		PromptTokenCount     int32 `json:"promptTokenCount"`
		CandidatesTokenCount int32 `json:"candidatesTokenCount"`
		TotalTokenCount      int32 `json:"totalTokenCount"`
		ThoughtsTokenCount   int32 `json:"thoughtsTokenCount"`
		CachedContentTokens  int32 `json:"cachedContentTokenCount"`
	}
	if err := json.Unmarshal(raw, &u); err != nil {
		return Usage{}, false
	}

	return Usage{
		InputTokens:     u.PromptTokenCount,
		OutputTokens:    u.CandidatesTokenCount,
		ReasoningTokens: u.ThoughtsTokenCount,
		CachedTokens:    u.CachedContentTokens,
		TotalTokens:     u.TotalTokenCount,
	}, true
}

func parseOllamaUsage(doc map[string]json.RawMessage) (Usage, bool) {
	promptRaw, hasPrompt := doc["prompt_eval_count"]
	evalRaw, hasEval := doc["eval_count"]
	if !hasPrompt && !hasEval {
		return Usage{}, false
	}

	var prompt, eval int32
	_ = json.Unmarshal(promptRaw, &prompt)
	_ = json.Unmarshal(evalRaw, &eval)

	return Usage{
		InputTokens:  prompt,
		OutputTokens: eval,
		TotalTokens:  prompt + eval,
	}, true
}
