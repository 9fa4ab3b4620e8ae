package main

import (
	"os"

	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cyder-hub/cyder-gateway/app"
	"github.com/cyder-hub/cyder-gateway/common/config"
	"github.com/cyder-hub/cyder-gateway/common/logger"
	"github.com/cyder-hub/cyder-gateway/middleware"
	"github.com/cyder-hub/cyder-gateway/model"
	"github.com/cyder-hub/cyder-gateway/router"
)

func main() {
	logger.Logger.Info("cyder-gateway starting")

	if os.Getenv("GIN_MODE") != gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := model.InitDB(); err != nil {
		logger.Logger.Fatal("database init error", zap.Error(err))
	}
	defer func() {
		if err := model.CloseDB(); err != nil {
			logger.Logger.Error("failed to close database", zap.Error(err))
		}
	}()

	gw, err := app.New(model.NewGormStore(model.DB))
	if err != nil {
		logger.Logger.Fatal("failed to build gateway app", zap.Error(err))
	}

	server := gin.New()
	server.RedirectTrailingSlash = false
	server.Use(gin.Recovery(), middleware.RelayPanicRecover(), middleware.RequestId())

	if config.EnablePrometheusMetrics {
		server.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	router.SetRouter(server, gw)

	logger.Logger.Info("server started", zap.String("address", "http://localhost:"+config.ServerPort))
	if err := server.Run(":" + config.ServerPort); err != nil {
		logger.Logger.Fatal("failed to start HTTP server", zap.Error(err))
	}
}
