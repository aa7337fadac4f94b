package server

import (
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/handler"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/monitor"

	_ "github.com/koyahness/Proof-of-Attendance-POA-mini-app/docs/swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handlers 业务路由依赖
type Handlers struct {
	Health   *handler.HealthHandler
	Claim    *handler.ClaimHandler
	Identity *handler.IdentityHandler
	Frame    *handler.FrameHandler
}

// NewHTTPRouter 初始化并返回一个 Gin Engine
func NewHTTPRouter(h Handlers) *gin.Engine {
	monitor.Init()

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(monitor.PrometheusMiddleware())

	health := h.Health
	if health == nil {
		health = handler.NewHealthHandler("", nil)
	}
	r.GET("/health", health.Check)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	{
		if h.Claim != nil {
			api.GET("/contract/call", h.Claim.GetCall)

			claims := api.Group("/claims")
			claims.POST("", h.Claim.Submit)
			claims.GET("/:address", h.Claim.History)
			claims.GET("/:address/state", h.Claim.State)
		}

		if h.Identity != nil {
			api.GET("/identity/:address", h.Identity.Get)
		}

		if h.Frame != nil {
			api.POST("/frames", h.Frame.Add)
			api.GET("/frames/:fid", h.Frame.Get)
		}
	}

	return r
}
