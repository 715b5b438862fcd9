package routers

import (
	"github.com/gin-gonic/gin"

	"smartbin/internal/server/handlers/levels"
	"smartbin/internal/server/handlers/sorting"
	"smartbin/internal/server/middlewares"
	"smartbin/pkg/logger"
)

func newEngine(log logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.CORS())
	r.Use(middlewares.Logger(log))
	r.Use(middlewares.ErrorHandler(log))
	return r
}

func health(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": service,
			"message": "Service is running",
		})
	}
}

// SetupOrchestratorRoutes 编排器路由
func SetupOrchestratorRoutes(h *sorting.SortingHandler, log logger.Logger) *gin.Engine {
	r := newEngine(log)

	r.GET("/health", health("orchestrator"))
	r.GET("/status", h.Status)
	r.POST("/start", h.Start)
	r.POST("/empty_check_all", h.EmptyCheckAll)
	r.POST("/test_arduino", h.TestArduino)

	return r
}

// SetupRegistryRoutes 登记服务路由，imagesDir 非空时以 /images 提供上传图片
func SetupRegistryRoutes(h *levels.LevelsHandler, imagesDir string, log logger.Logger) *gin.Engine {
	r := newEngine(log)

	r.GET("/health", health("registry"))
	r.POST("/update", h.Update)
	r.GET("/data", h.Data)
	r.POST("/begin", h.Begin)
	r.POST("/upload", h.Upload)
	r.POST("/alert", h.Alert)

	if imagesDir != "" {
		r.Static("/images", imagesDir)
	}

	api := r.Group("/api")
	{
		api.GET("/levels", h.Levels)
		api.GET("/levels/logs", h.LevelLogs)
		api.POST("/levels/delete", h.DeleteLevelLog)
		api.POST("/levels/reset", h.ResetLevels)

		api.GET("/logs", h.ImageLogs)
		api.POST("/logs/delete", h.DeleteImageLog)
		api.GET("/stats", h.Stats)
		api.GET("/alerts", h.AlertLogs)

		api.GET("/events", h.Events)
	}

	return r
}
