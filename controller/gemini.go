package controller

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cyder-hub/cyder-gateway/app"
	"github.com/cyder-hub/cyder-gateway/common/gatewayerr"
)

// RelayGemini handles `/gemini/v1beta/models/{model}:{action}`. Gin routes
// the whole "{model}:{action}" text as one path parameter; the colon isn't
// a gin path separator, so it's split here instead.
func RelayGemini(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		modelString, action, ok := splitModelAction(c.Param("modelAction"))
		if !ok {
			respondErr(c, gatewayerr.New(gatewayerr.BadHeader, "path must be {model}:{action}"))
			return
		}

		stream := action == "streamGenerateContent"
		Relay(a, "gemini", modelString, &stream)(c)
	}
}

func splitModelAction(raw string) (model, action string, ok bool) {
	raw = strings.TrimPrefix(raw, "/")
	i := strings.LastIndex(raw, ":")
	if i < 0 {
		return "", "", false
	}
	return raw[:i], raw[i+1:], true
}
