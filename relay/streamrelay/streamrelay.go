// Package streamrelay is the state machine that drives one upstream
// response to completion: buffering a unary response or forwarding an SSE
// stream chunk-by-chunk, translating each chunk between the upstream and
// client dialects and folding usage into an accumulator that survives to
// stream end.
package streamrelay

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/cyder-hub/cyder-gateway/common/gatewayerr"
	"github.com/cyder-hub/cyder-gateway/common/logger"
	"github.com/cyder-hub/cyder-gateway/model"
	"github.com/cyder-hub/cyder-gateway/relay/billing"
	"github.com/cyder-hub/cyder-gateway/relay/dialect"
	"github.com/cyder-hub/cyder-gateway/relay/ir"
	"github.com/cyder-hub/cyder-gateway/relay/splitter"
)

// Status is the terminal state a relay ends in, recorded on the RequestLog.
type Status string

const (
	StatusDone      Status = "DONE"
	StatusError     Status = "ERROR"
	StatusCancelled Status = "CANCELLED"
)

// maxTruncatedUpstreamBody bounds how much of a non-2xx upstream body is
// captured verbatim in the error, per spec.md's truncation limit.
const maxTruncatedUpstreamBody = 2000

// Sink is where translated bytes go: the client connection, abstracted so
// tests don't need a real gin.Context.
type Sink interface {
	io.Writer
	Flush()
}

// SetEventStreamHeaders sets the response headers an SSE relay must send
// before the first chunk, so the client's HTTP stack doesn't buffer it.
func SetEventStreamHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// Result summarizes how a relay ended, for billing and logging.
type Result struct {
	Status Status
	Usage  *ir.Usage
	Reason string
}

// RelayUnary buffers the full upstream body, translates it once, and
// writes a single JSON response. Used for non-streaming requests.
// providerType only feeds the ParseUsage fallback below; it has no effect
// on translation, which is entirely driven by upstreamDialect/clientDialect.
func RelayUnary(resp *http.Response, upstreamDialect, clientDialect dialect.Translator, w http.ResponseWriter, providerType model.ProviderType) (Result, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Status: StatusError}, gatewayerr.Wrap(gatewayerr.UpstreamError, err, "read upstream body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{Status: StatusError, Reason: "upstream error"}, gatewayerr.Upstream(resp.StatusCode, truncate(string(body)))
	}

	irResp, err := upstreamDialect.DecodeResponse(body)
	if err != nil {
		return Result{Status: StatusError}, gatewayerr.Wrap(gatewayerr.TranslationError, err, "decode upstream response")
	}

	out, err := clientDialect.EncodeResponse(irResp)
	if err != nil {
		return Result{Status: StatusError}, gatewayerr.Wrap(gatewayerr.TranslationError, err, "encode client response")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)

	if irResp.Usage == nil {
		irResp.Usage = fallbackUsage(body, providerType)
	}

	return Result{Status: StatusDone, Usage: irResp.Usage}, nil
}

// fallbackUsage re-parses the raw upstream body for a usage block when the
// dialect's own decode found none (e.g. a shape the dialect's struct tags
// don't expect). Returns nil, not a zero Usage, so the caller still falls
// through to the tiktoken-based estimate in that case.
func fallbackUsage(body []byte, providerType model.ProviderType) *ir.Usage {
	u, ok := billing.ParseUsage(body, providerType)
	if !ok {
		return nil
	}
	return &ir.Usage{PromptTokens: u.InputTokens, CompletionTokens: u.OutputTokens, TotalTokens: u.TotalTokens}
}

// RelayStream reads upstream line-by-line, translating each chunk from
// upstreamDialect to clientDialect and writing an SSE event per chunk. It
// owns the AwaitingFirstByte -> Streaming -> (Done|ClientGone|UpstreamError)
// transition: cancel aborts the upstream read on first-byte timeout or
// client disconnect.
func RelayStream(ctx context.Context, cancel context.CancelFunc, resp *http.Response, upstreamDialect, clientDialect dialect.Translator, sink Sink, firstByteTimeout time.Duration) (Result, error) {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxTruncatedUpstreamBody))
		return Result{Status: StatusError, Reason: "upstream error"}, gatewayerr.Upstream(resp.StatusCode, truncate(string(body)))
	}

	state := dialect.NewStreamState()
	sp := splitter.New(resp.Body)
	usage := &ir.Usage{}
	sawFirstByte := false

	for {
		payload, ok, err := nextEvent(ctx, cancel, sp, firstByteTimeout, sawFirstByte)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return Result{Status: StatusCancelled, Usage: accumulated(usage)}, nil
			}
			return Result{Status: StatusError, Usage: accumulated(usage)}, err
		}
		sawFirstByte = true
		if !ok {
			break
		}

		if payload == "" {
			continue
		}
		if term := upstreamDialect.TerminalSentinel(); term != nil && bytes.Equal([]byte(payload), term) {
			break
		}

		irChunk, ok, err := upstreamDialect.DecodeChunk([]byte(payload), state)
		if err != nil {
			logger.Logger.Warn("failed to decode upstream chunk, skipping",
				zap.String("dialect", upstreamDialect.Name()), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}

		foldUsage(usage, irChunk.Usage)

		out, err := clientDialect.EncodeChunk(irChunk, state)
		if err != nil {
			return Result{Status: StatusError, Usage: accumulated(usage)},
				gatewayerr.Wrap(gatewayerr.TranslationError, err, "encode client chunk")
		}

		if _, werr := writeSSE(sink, out); werr != nil {
			cancel()
			return Result{Status: StatusCancelled, Usage: accumulated(usage), Reason: "client disconnected"}, nil
		}
	}

	if term := clientDialect.TerminalSentinel(); term != nil {
		_, _ = writeSSE(sink, term)
	}

	return Result{Status: StatusDone, Usage: accumulated(usage)}, nil
}

type scanResult struct {
	payload string
	ok      bool
	err     error
}

// nextEvent reads the next splitter event, applying the first-byte
// deadline only while no byte has yet been observed; subsequent reads are
// unbounded (spec.md's "no hard cap" overall timeout).
func nextEvent(ctx context.Context, cancel context.CancelFunc, sp *splitter.Splitter, firstByteTimeout time.Duration, sawFirstByte bool) (string, bool, error) {
	resultCh := make(chan scanResult, 1)
	go func() {
		payload, ok := sp.Next()
		resultCh <- scanResult{payload: payload, ok: ok, err: sp.Err()}
	}()

	if sawFirstByte {
		select {
		case r := <-resultCh:
			return r.payload, r.ok, r.err
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
	}

	select {
	case r := <-resultCh:
		return r.payload, r.ok, r.err
	case <-time.After(firstByteTimeout):
		cancel()
		return "", false, gatewayerr.New(gatewayerr.UpstreamTimeout, "upstream timeout")
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

func writeSSE(sink Sink, payload []byte) (int, error) {
	n, err := sink.Write(append(append([]byte("data: "), payload...), '\n', '\n'))
	if err != nil {
		return n, err
	}
	sink.Flush()
	return n, nil
}

func foldUsage(acc *ir.Usage, u *ir.Usage) {
	if u == nil {
		return
	}
	acc.PromptTokens = u.PromptTokens
	acc.CompletionTokens = u.CompletionTokens
	acc.TotalTokens = u.TotalTokens
}

func accumulated(u *ir.Usage) *ir.Usage {
	if u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0 {
		return nil
	}
	return u
}

func truncate(s string) string {
	if len(s) <= maxTruncatedUpstreamBody {
		return s
	}
	return s[:maxTruncatedUpstreamBody]
}
