package billing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cyder-hub/cyder-gateway/model"
)

func TestParseUsage_OpenAI(t *testing.T) {
	body := []byte(`{"usage":{"prompt_tokens":5,"completion_tokens":7,"total_tokens":12}}`)

	u, ok := ParseUsage(body, model.ProviderTypeOpenAI)
	require.True(t, ok)
	require.Equal(t, int32(5), u.InputTokens)
	require.Equal(t, int32(7), u.OutputTokens)
	require.Equal(t, int32(12), u.TotalTokens)
}

func TestParseUsage_OpenAI_ReasoningFallback(t *testing.T) {
	body := []byte(`{"usage":{"prompt_tokens":5,"completion_tokens":7,"total_tokens":20}}`)

	u, ok := ParseUsage(body, model.ProviderTypeOpenAI)
	require.True(t, ok)
	require.Equal(t, int32(8), u.ReasoningTokens, "missing reasoning_tokens falls back to total-prompt-completion")
}

func TestParseUsage_Gemini(t *testing.T) {
	body := []byte(`{"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":4,"totalTokenCount":7}}`)

	u, ok := ParseUsage(body, model.ProviderTypeGemini)
	require.True(t, ok)
	require.Equal(t, int32(3), u.InputTokens)
	require.Equal(t, int32(4), u.OutputTokens)
}

func TestParseUsage_Ollama(t *testing.T) {
	body := []byte(`{"prompt_eval_count":2,"eval_count":9,"done":true}`)

	u, ok := ParseUsage(body, model.ProviderTypeOllama)
	require.True(t, ok)
	require.Equal(t, int32(2), u.InputTokens)
	require.Equal(t, int32(9), u.OutputTokens)
}

func TestParseUsage_MissingUsageBlock(t *testing.T) {
	_, ok := ParseUsage([]byte(`{"id":"1"}`), model.ProviderTypeOpenAI)
	require.False(t, ok)
}
