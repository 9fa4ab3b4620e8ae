// Package router wires the three client-facing dialect prefixes onto a
// gin.Engine, the way the teacher's router package groups admin/relay
// routes under their own middleware stacks.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/cyder-hub/cyder-gateway/app"
	"github.com/cyder-hub/cyder-gateway/controller"
	"github.com/cyder-hub/cyder-gateway/middleware"
)

// SetRouter registers /openai, /anthropic, and /gemini route groups, each
// gated by its dialect's Authenticate middleware, plus a bare /healthz.
func SetRouter(server *gin.Engine, a *app.App) {
	server.GET("/healthz", func(c *gin.Context) { c.Status(200) })

	openai := server.Group("/openai", middleware.Authenticate("openai", a.Caches))
	registerOpenAICompatible(openai, a)

	v1 := server.Group("/openai/v1", middleware.Authenticate("openai", a.Caches))
	registerOpenAICompatible(v1, a)

	anthropic := server.Group("/anthropic", middleware.Authenticate("anthropic", a.Caches))
	registerAnthropic(anthropic, a)

	anthropicV1 := server.Group("/anthropic/v1", middleware.Authenticate("anthropic", a.Caches))
	registerAnthropic(anthropicV1, a)

	gemini := server.Group("/gemini/v1beta", middleware.Authenticate("gemini", a.Caches))
	gemini.GET("/models", controller.ListModelsGemini(a))
	gemini.Any("/models/:modelAction", controller.RelayGemini(a))
}

func registerOpenAICompatible(g *gin.RouterGroup, a *app.App) {
	g.POST("/chat/completions", controller.RelayOpenAI(a))
	g.POST("/embeddings", controller.RelayOpenAI(a))
	g.POST("/rerank", controller.RelayOpenAI(a))
	g.GET("/models", controller.ListModels(a))
}

func registerAnthropic(g *gin.RouterGroup, a *app.App) {
	g.POST("/messages", controller.RelayAnthropic(a))
	g.GET("/models", controller.ListModels(a))
}
