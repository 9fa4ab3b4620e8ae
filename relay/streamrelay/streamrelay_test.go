package streamrelay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cyder-hub/cyder-gateway/model"
	"github.com/cyder-hub/cyder-gateway/relay/dialect"
)

type bufSink struct {
	strings.Builder
	flushed int
}

func (b *bufSink) Flush() { b.flushed++ }

func sseResponse(body string) *http.Response {
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body))}
}

func TestRelayStream_TranslatesOpenAIChunksToClient(t *testing.T) {
	body := "data: {\"id\":\"1\",\"model\":\"gpt-4o\",\"choices\":[{\"index\":0,\"delta\":{\"role\":\"assistant\",\"content\":\"hi\"}}]}\n\n" +
		"data: [DONE]\n\n"

	reg := dialect.NewRegistry()
	openai, _ := reg.Get("openai")

	sink := &bufSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result, err := RelayStream(ctx, cancel, sseResponse(body), openai, openai, sink, time.Second)
	require.NoError(t, err)
	require.Equal(t, StatusDone, result.Status)

	out := sink.String()
	require.Contains(t, out, "\"content\":\"hi\"")
	require.Contains(t, out, "[DONE]")
}

func TestRelayStream_NonSuccessStatusReturnsUpstreamError(t *testing.T) {
	reg := dialect.NewRegistry()
	openai, _ := reg.Get("openai")
	sink := &bufSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resp := &http.Response{StatusCode: http.StatusBadGateway, Body: io.NopCloser(strings.NewReader("boom"))}
	result, err := RelayStream(ctx, cancel, resp, openai, openai, sink, time.Second)
	require.Error(t, err)
	require.Equal(t, StatusError, result.Status)
}

type stallReader struct{ delay time.Duration }

func (r stallReader) Read(p []byte) (int, error) {
	time.Sleep(r.delay)
	return 0, io.EOF
}

func TestRelayStream_FirstByteTimeoutCancelsContext(t *testing.T) {
	reg := dialect.NewRegistry()
	openai, _ := reg.Get("openai")
	sink := &bufSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resp := &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(stallReader{delay: 200 * time.Millisecond})}
	_, err := RelayStream(ctx, cancel, resp, openai, openai, sink, 10*time.Millisecond)
	require.Error(t, err)
	require.Equal(t, context.Canceled, ctx.Err())
}

func TestRelayUnary_TranslatesAndWritesJSON(t *testing.T) {
	body := []byte(`{"id":"1","model":"gpt-4o","choices":[{"index":0,"message":{"role":"assistant","content":"hi"}}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`)

	reg := dialect.NewRegistry()
	openai, _ := reg.Get("openai")

	rec := httptest.NewRecorder()
	result, err := RelayUnary(&http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(string(body)))}, openai, openai, rec, model.ProviderTypeOpenAI)
	require.NoError(t, err)
	require.Equal(t, StatusDone, result.Status)
	require.NotNil(t, result.Usage)
	require.Equal(t, int32(3), result.Usage.TotalTokens)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRelayUnary_NonSuccessStatusReturnsError(t *testing.T) {
	reg := dialect.NewRegistry()
	openai, _ := reg.Get("openai")
	rec := httptest.NewRecorder()

	resp := &http.Response{StatusCode: http.StatusTooManyRequests, Body: io.NopCloser(strings.NewReader("rate limited"))}
	_, err := RelayUnary(resp, openai, openai, rec, model.ProviderTypeOpenAI)
	require.Error(t, err)
}
