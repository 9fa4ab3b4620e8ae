// Package controller holds the gin handlers for the three client-facing
// dialects, each wiring Resolver -> AccessGate -> Preparer -> UpstreamClient
// -> StreamRelay -> Logger/Billing into one request.
package controller

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/cyder-hub/cyder-gateway/app"
	"github.com/cyder-hub/cyder-gateway/common/ctxkey"
	"github.com/cyder-hub/cyder-gateway/common/gatewayerr"
	"github.com/cyder-hub/cyder-gateway/common/logger"
	"github.com/cyder-hub/cyder-gateway/model"
	"github.com/cyder-hub/cyder-gateway/relay/accessgate"
	"github.com/cyder-hub/cyder-gateway/relay/billing"
	"github.com/cyder-hub/cyder-gateway/relay/dialect"
	"github.com/cyder-hub/cyder-gateway/relay/ir"
	"github.com/cyder-hub/cyder-gateway/relay/prepare"
	"github.com/cyder-hub/cyder-gateway/relay/streamrelay"
	"github.com/cyder-hub/cyder-gateway/relay/upstream"
)

// relayOutcome is what one completed relay needs for logging, independent
// of whether it streamed or was unary.
type relayOutcome struct {
	statusCode int
	usage      billing.Usage
	errCode    int
	errMsg     string
	cancelled  bool
}

// Relay handles one chat/generate request in clientDialectName, with
// modelString already extracted by the caller (body field for
// OpenAI/Anthropic, path segment for Gemini). forceStream overrides the
// client dialect's own stream flag when the route itself says whether to
// stream (Gemini's generateContent vs streamGenerateContent action); pass
// nil to trust the decoded request body (OpenAI/Anthropic).
func Relay(a *app.App, clientDialectName, modelString string, forceStream *bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		key := c.MustGet(ctxkey.SystemAPIKey).(*model.SystemApiKey)
		reqLog := newPendingLog(a, key, modelString, c)
		fail := func(err error) {
			respondErr(c, err)
			failLog(a, reqLog, err, start)
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			fail(gatewayerr.Wrap(gatewayerr.BadHeader, err, "read request body"))
			return
		}
		reqLog.RequestBody = truncateBody(body)

		resolved, err := a.Resolver.Resolve(c.Request.Context(), modelString)
		if err != nil {
			fail(err)
			return
		}
		reqLog.ProviderID = resolved.Provider.ID
		reqLog.ModelID = resolved.Model.ID
		reqLog.ModelName = resolved.Model.ModelName
		reqLog.RealModelName = resolved.Model.RealModelName

		if verdict := checkAccess(c.Request.Context(), a, key, resolved.Provider.ID, resolved.Model.ID); !verdict.Allowed {
			fail(gatewayerr.New(gatewayerr.AccessDenied, verdict.Reason))
			return
		}

		clientDialect, _ := a.Dialects.Get(clientDialectName)
		upstreamDialect, ok := a.Dialects.Get(providerDialectName(resolved.Provider.Type))
		if !ok {
			fail(gatewayerr.New(gatewayerr.InternalError, "no translator for provider type"))
			return
		}

		irReq, err := clientDialect.DecodeRequest(body)
		if err != nil {
			fail(gatewayerr.Wrap(gatewayerr.TranslationError, err, "decode client request"))
			return
		}
		if forceStream != nil {
			irReq.Stream = *forceStream
		}
		reqLog.IsStream = irReq.Stream

		outBody, err := upstreamDialect.EncodeRequest(irReq)
		if err != nil {
			fail(gatewayerr.Wrap(gatewayerr.TranslationError, err, "encode upstream request"))
			return
		}

		prepared, err := a.Preparer.Prepare(c.Request.Context(), resolved.Provider, resolved.Model, prepare.Inbound{
			Header: c.Request.Header,
			Query:  c.Request.URL.Query(),
			Body:   outBody,
			Stream: irReq.Stream,
		})
		if err != nil {
			fail(err)
			return
		}
		reqLog.ProviderApiKeyID = prepared.ProviderKey.ID
		reqLog.UpstreamURI = prepared.URL

		req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodPost, prepared.URL, newBodyReader(prepared.Body))
		if err != nil {
			fail(gatewayerr.Wrap(gatewayerr.InternalError, err, "build upstream request"))
			return
		}
		req.Header = prepared.Header

		reqLog.LLMSentAtMs = time.Now().UnixMilli()
		resp, err := a.Upstream.Do(c.Request.Context(), req, resolved.Provider.UseProxy)
		if err != nil {
			fail(gatewayerr.Wrap(gatewayerr.UpstreamError, err, "dispatch upstream request"))
			return
		}

		outcome := relay(c, irReq.Stream, resp, upstreamDialect, clientDialect, resolved.Provider.Type)
		if outcome.usage == (billing.Usage{}) {
			outcome.usage = estimateUsage(resolved.Model.ModelName, irReq)
		}
		if outcome.statusCode >= 200 && outcome.statusCode < 300 {
			reqLog.ResponseBody = ""
		} else {
			reqLog.ResponseBody = truncateBody([]byte(outcome.errMsg))
		}
		finalizeLog(a, reqLog, resolved, outcome, start)
	}
}

// estimateUsage fills in a token count when the upstream response carried no
// usage block at all, so a PROMPT/COMPLETION price rule still has something
// to bill against. Only the prompt side can be estimated here: the reply
// text isn't retained past the relay write, so the completion side is left
// at zero rather than guessed from the response's byte length.
func estimateUsage(modelName string, req *ir.Request) billing.Usage {
	var text string
	for _, m := range req.Messages {
		text += m.Content
	}
	tokens := billing.EstimateTokens(modelName, text)
	return billing.Usage{InputTokens: tokens, TotalTokens: tokens}
}

func relay(c *gin.Context, stream bool, resp *http.Response, upstreamDialect, clientDialect dialect.Translator, providerType model.ProviderType) relayOutcome {
	if stream {
		streamrelay.SetEventStreamHeaders(c.Writer.Header())
		c.Writer.WriteHeader(http.StatusOK)

		ctx, cancel := contextWithCancel(c)
		defer cancel()

		result, err := streamrelay.RelayStream(ctx, cancel, resp, upstreamDialect, clientDialect, c.Writer, upstream.FirstByteDeadline())
		return outcomeFromResult(result, err)
	}

	result, err := streamrelay.RelayUnary(resp, upstreamDialect, clientDialect, c.Writer, providerType)
	return outcomeFromResult(result, err)
}

func outcomeFromResult(result streamrelay.Result, err error) relayOutcome {
	o := relayOutcome{statusCode: http.StatusOK, usage: usageFromIR(result.Usage), cancelled: result.Status == streamrelay.StatusCancelled}
	if err != nil {
		ge, ok := gatewayerr.As(err)
		if ok {
			o.statusCode = statusOrDefault(ge.HTTPStatus())
			o.errCode = ge.Code()
		} else {
			o.statusCode = http.StatusInternalServerError
		}
		o.errMsg = err.Error()
		logger.Logger.Warn("relay ended in error", zap.Error(err))
	}
	return o
}

func usageFromIR(u *ir.Usage) billing.Usage {
	if u == nil {
		return billing.Usage{}
	}
	return billing.Usage{InputTokens: u.PromptTokens, OutputTokens: u.CompletionTokens, TotalTokens: u.TotalTokens}
}

func checkAccess(ctx context.Context, a *app.App, key *model.SystemApiKey, providerID, modelID int64) accessgate.Verdict {
	if key.AccessControlPolicyID == nil {
		return accessgate.Verdict{Allowed: true}
	}
	policy, found, err := a.Caches.AccessControlPolicyByID.Get(ctx, itoa(*key.AccessControlPolicyID))
	if err != nil || !found {
		return accessgate.Verdict{Allowed: false, Reason: "access control policy unavailable"}
	}
	return accessgate.Evaluate(policy, providerID, modelID)
}

func providerDialectName(t model.ProviderType) string {
	switch t {
	case model.ProviderTypeGemini, model.ProviderTypeVertex:
		return "gemini"
	case model.ProviderTypeOllama:
		return "ollama"
	default: // OpenAI, Vertex OpenAI
		return "openai"
	}
}

func respondErr(c *gin.Context, err error) {
	ge, ok := gatewayerr.As(err)
	if !ok {
		ge = gatewayerr.New(gatewayerr.InternalError, err.Error())
	}
	c.JSON(statusOrDefault(ge.HTTPStatus()), ge.ToEnvelope())
}

func statusOrDefault(status int) int {
	if status == 0 {
		return http.StatusInternalServerError
	}
	return status
}
