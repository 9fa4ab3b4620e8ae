package dialect

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cyder-hub/cyder-gateway/relay/ir"
)

func TestOpenAI_DecodeRequest_TextMessage(t *testing.T) {
	body := []byte(`{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}],"temperature":0.5}`)

	req, err := NewOpenAI().DecodeRequest(body)
	require.NoError(t, err)
	require.Equal(t, "gpt-4o", req.Model)
	require.Len(t, req.Messages, 1)
	require.Equal(t, ir.RoleUser, req.Messages[0].Role)
	require.Equal(t, "hi", req.Messages[0].Text)
	require.NotNil(t, req.Temperature)
	require.Equal(t, 0.5, *req.Temperature)
}

func TestOpenAI_DecodeRequest_ToolCallMessage(t *testing.T) {
	body := []byte(`{"messages":[{"role":"assistant","tool_calls":[{"id":"call_1","type":"function","function":{"name":"get_weather","arguments":"{\"city\":\"nyc\"}"}}]}]}`)

	req, err := NewOpenAI().DecodeRequest(body)
	require.NoError(t, err)
	require.Len(t, req.Messages, 1)
	require.Len(t, req.Messages[0].ToolCalls, 1)
	require.Equal(t, "call_1", req.Messages[0].ToolCalls[0].ID)
	require.Equal(t, "get_weather", req.Messages[0].ToolCalls[0].Name)
}

func TestOpenAI_EncodeRequest_RoundTrip(t *testing.T) {
	d := NewOpenAI()
	req := &ir.Request{
		Model: "gpt-4o",
		Messages: []ir.Message{
			{Role: ir.RoleUser, Text: "hello"},
		},
		Stream: true,
		Stop:   []string{"STOP"},
	}

	raw, err := d.EncodeRequest(req)
	require.NoError(t, err)

	decoded, err := d.DecodeRequest(raw)
	require.NoError(t, err)
	require.Equal(t, "gpt-4o", decoded.Model)
	require.True(t, decoded.Stream)
	require.Equal(t, []string{"STOP"}, decoded.Stop)
	require.Equal(t, "hello", decoded.Messages[0].Text)
}

func TestOpenAI_DecodeChunk_ToolCallIndexStability(t *testing.T) {
	d := NewOpenAI()
	state := NewStreamState()

	first := []byte(`{"id":"1","model":"gpt-4o","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_9","type":"function","function":{"name":"f","arguments":""}}]}}]}`)
	second := []byte(`{"id":"1","model":"gpt-4o","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"a\":1}"}}]}}]}`)

	c1, ok, err := d.DecodeChunk(first, state)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "call_9", c1.Choices[0].Delta.ToolCalls[0].ID)

	c2, ok, err := d.DecodeChunk(second, state)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "call_9", c2.Choices[0].Delta.ToolCalls[0].ID, "id omitted on later deltas should be recovered from state")
}

func TestOpenAI_TerminalSentinel(t *testing.T) {
	require.Equal(t, []byte("[DONE]"), NewOpenAI().TerminalSentinel())
}
