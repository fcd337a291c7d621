package api

import (
	"github.com/gin-gonic/gin"
	"github.com/mkraft/subsync/internal/api/handler"
	"github.com/mkraft/subsync/internal/api/middleware"
	"github.com/mkraft/subsync/internal/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	jobHandler *handler.JobHandler,
	subscriberHandler *handler.SubscriberHandler,
	cfg *config.ServerConfig,
) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}))

	healthHandler := handler.NewHealthHandler()

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/jobs", jobHandler.CreateJob)
		v1.GET("/jobs", jobHandler.ListJobs)
		v1.GET("/jobs/:id", jobHandler.GetJob)
		v1.POST("/jobs/:id/cancel", jobHandler.CancelJob)
		v1.POST("/jobs/:id/pause", jobHandler.PauseJob)
		v1.POST("/jobs/:id/resume", jobHandler.ResumeJob)
		v1.GET("/jobs/:id/report", jobHandler.GetReport)

		v1.GET("/subscribers/:key", subscriberHandler.GetSubscriber)
	}

	return r
}
