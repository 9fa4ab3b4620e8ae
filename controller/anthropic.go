package controller

import (
	"bytes"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"github.com/cyder-hub/cyder-gateway/app"
	"github.com/cyder-hub/cyder-gateway/common/gatewayerr"
)

// RelayAnthropic handles /anthropic/v1/messages: same body-peek-then-relay
// shape as RelayOpenAI, just against the anthropic client dialect.
func RelayAnthropic(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			respondErr(c, gatewayerr.Wrap(gatewayerr.BadHeader, err, "read request body"))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		modelString := gjson.GetBytes(body, "model").String()
		Relay(a, "anthropic", modelString, nil)(c)
	}
}
