package controller

import (
	"bytes"
	"context"
	"io"
	"time"
	"unicode/utf8"

	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/cyder-hub/cyder-gateway/app"
	"github.com/cyder-hub/cyder-gateway/cache"
	"github.com/cyder-hub/cyder-gateway/common/ctxkey"
	"github.com/cyder-hub/cyder-gateway/common/gatewayerr"
	"github.com/cyder-hub/cyder-gateway/common/helper"
	"github.com/cyder-hub/cyder-gateway/common/logger"
	"github.com/cyder-hub/cyder-gateway/model"
	"github.com/cyder-hub/cyder-gateway/relay/billing"
	"github.com/cyder-hub/cyder-gateway/relay/resolver"
)

func newBodyReader(b []byte) io.Reader { return bytes.NewReader(b) }

func contextWithCancel(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithCancel(c.Request.Context())
}

func itoa(id int64) string { return cache.IDKey(id) }

// maxTruncatedBody bounds how much of a request/response body an ERROR log
// row keeps verbatim, matching streamrelay's own upstream-body truncation.
// truncateBody cuts back to the nearest UTF-8 rune start at or before it.
const maxTruncatedBody = 2000

func truncateBody(b []byte) string {
	if len(b) > maxTruncatedBody {
		n := maxTruncatedBody
		for n > 0 && !utf8.RuneStart(b[n]) {
			n--
		}
		b = b[:n]
	}
	return string(b)
}

// newPendingLog inserts a PENDING RequestLog the moment a request arrives,
// before the model is even resolved, so every exit path - including a
// resolve miss - has a row to transition to ERROR/CANCELLED/SUCCESS. The
// row is owned exclusively by this request until finalizeLog updates it.
func newPendingLog(a *app.App, key *model.SystemApiKey, modelString string, c *gin.Context) *model.RequestLog {
	now := time.Now()
	log := &model.RequestLog{
		ID:             a.IDs.Next(),
		RequestID:      c.GetString(helper.RequestIdKey),
		Status:         model.RequestLogStatusPending,
		SystemApiKeyID: key.ID,
		ClientIP:       c.ClientIP(),
		RequestURI:     c.Request.RequestURI,
		ModelName:      modelString,
		ExternalID:     c.GetString(ctxkey.ExternalID),
		Channel:        c.GetString(ctxkey.Channel),
		CreatedAtMs:    now.UnixMilli(),
	}
	if err := a.Store.InsertRequestLog(log); err != nil {
		logger.Logger.Error("failed to insert pending request log", zap.Error(err), zap.Int64("request_log_id", log.ID))
	}
	return log
}

// failLog transitions a pending log straight to ERROR for a failure path
// that ends before any upstream response is relayed (resolve miss, access
// denied, translation/prepare errors, or a failed upstream dispatch).
func failLog(a *app.App, log *model.RequestLog, err error, start time.Time) {
	ge, ok := gatewayerr.As(err)
	log.Status = model.RequestLogStatusError
	log.LatencyMs = time.Since(start).Milliseconds()
	log.ErrorMsg = truncateBody([]byte(err.Error()))
	if ok {
		log.StatusCode = statusOrDefault(ge.HTTPStatus())
		log.ErrorCode = ge.Code()
	} else {
		log.StatusCode = 500
	}
	if err := a.Store.UpdateRequestLog(log); err != nil {
		logger.Logger.Error("failed to update request log", zap.Error(err), zap.Int64("request_log_id", log.ID))
	}
}

// finalizeLog prices the relay's usage against the resolved model's billing
// plan (when any) and transitions the pending log to its terminal status,
// the way failLog does for earlier paths.
func finalizeLog(a *app.App, log *model.RequestLog, resolved resolver.Resolved, outcome relayOutcome, start time.Time) {
	cost := priceUsage(a, resolved.Model.BillingPlanID, outcome.usage)

	log.Status = model.RequestLogStatusSuccess
	if outcome.errCode != 0 || outcome.statusCode >= 300 {
		log.Status = model.RequestLogStatusError
	}
	if outcome.cancelled {
		log.Status = model.RequestLogStatusCancelled
	}
	log.StatusCode = outcome.statusCode
	log.PromptTokens = int64(outcome.usage.InputTokens)
	log.CompletionTokens = int64(outcome.usage.OutputTokens)
	log.TotalTokens = int64(outcome.usage.TotalTokens)
	log.CostMicroUnits = cost
	log.LatencyMs = time.Since(start).Milliseconds()
	log.ErrorCode = outcome.errCode
	log.CompletedAtMs = time.Now().UnixMilli()
	log.ResponseSentAtMs = log.CompletedAtMs
	if outcome.errMsg != "" {
		log.ErrorMsg = truncateBody([]byte(outcome.errMsg))
	}

	if err := a.Store.UpdateRequestLog(log); err != nil {
		logger.Logger.Error("failed to update request log", zap.Error(err), zap.Int64("request_log_id", log.ID))
	}
}

func priceUsage(a *app.App, planID *int64, usage billing.Usage) int64 {
	if planID == nil {
		return 0
	}
	plan, found, err := a.Caches.BillingPlanByID.Get(context.Background(), itoa(*planID))
	if err != nil || !found {
		return 0
	}
	return billing.CalculateCost(usage, plan.PriceRules, time.Now().UnixMilli())
}
