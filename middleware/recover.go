package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/cyder-hub/cyder-gateway/common/gatewayerr"
	"github.com/cyder-hub/cyder-gateway/common/logger"
)

// RelayPanicRecover turns a panic anywhere downstream into a gatewayerr
// InternalError envelope instead of tearing down the connection.
func RelayPanicRecover() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Logger.Error("panic detected",
					zap.Any("panic", err),
					zap.String("stacktrace", string(debug.Stack())),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path))
				ge := gatewayerr.New(gatewayerr.InternalError, fmt.Sprintf("panic: %v", err))
				c.JSON(http.StatusInternalServerError, ge.ToEnvelope())
				c.Abort()
			}
		}()
		c.Next()
	}
}
