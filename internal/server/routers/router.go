package routers

import (
	"github.com/gin-gonic/gin"

	"leakscan/internal/server/handlers/analysis"
	"leakscan/internal/server/middlewares"
)

// SetupRoutes 配置所有路由，使用 Route Group 分类
func SetupRoutes(analysisHandler *analysis.AnalysisHandler) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.CORS())
	r.Use(middlewares.ErrorHandler())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "leakscan",
			"message": "Service is running",
		})
	})

	v1 := r.Group("/api/v1")
	{
		// 上传分析（:domain ∈ supermarket/telecom）
		v1.POST("/:domain/predict", analysisHandler.Predict)

		// 会话结果
		v1.GET("/results/:session_id", analysisHandler.Results)
		v1.GET("/sessions", analysisHandler.Sessions)

		// 产物与报告
		v1.GET("/download/:type/:session_id", analysisHandler.Download)
		v1.GET("/report/:session_id", analysisHandler.GetReport)
	}

	return r
}
