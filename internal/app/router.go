package app

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/exam-room-api/internal/handler"
	"github.com/noah-isme/exam-room-api/internal/middleware"
	"github.com/noah-isme/exam-room-api/pkg/config"
	"github.com/noah-isme/exam-room-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/exam-room-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/exam-room-api/pkg/middleware/requestid"
)

// NewRouter builds the HTTP engine for c.
func NewRouter(c *Container) *gin.Engine {
	cfg := c.Config
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(c.Logger, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(c.Metrics, "/metrics"))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(c.Metrics, c.Checks())
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	handler.NewAllocationHandler(c.Allocations).Register(api)
	handler.NewSummaryHandler(c.Summaries).Register(api)

	return r
}
