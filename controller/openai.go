package controller

import (
	"bytes"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"github.com/cyder-hub/cyder-gateway/app"
	"github.com/cyder-hub/cyder-gateway/common/gatewayerr"
)

// RelayOpenAI handles chat/completions, embeddings, and rerank: the model
// string rides the "model" JSON field, so the body is peeked once before
// Relay consumes it.
func RelayOpenAI(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			respondErr(c, gatewayerr.Wrap(gatewayerr.BadHeader, err, "read request body"))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		modelString := gjson.GetBytes(body, "model").String()
		Relay(a, "openai", modelString, nil)(c)
	}
}
