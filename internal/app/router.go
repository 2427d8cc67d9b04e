package app

import (
	"examina_backend/docs"
	"examina_backend/internal/config"
	"examina_backend/internal/middleware"
	"examina_backend/internal/model"
	"examina_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/profile", c.auth.GetProfile)

		// 模拟考试
		student := authGroup.Group("/student")
		student.Use(middleware.RoleMiddleware(model.Student))
		{
			student.POST("/mock-exams", c.mockExam.Create)
			student.POST("/mock-exams/quick-start", c.mockExam.QuickStart)
			student.GET("/mock-exams", c.mockExam.List)
			student.GET("/mock-exams/stats", c.mockExam.Stats)
			student.GET("/mock-exams/:id", c.mockExam.Get)
			student.POST("/mock-exams/:id/start", c.mockExam.Start)
			student.POST("/mock-exams/:id/score", c.mockExam.SubmitScore)
			student.DELETE("/mock-exams/:id", c.mockExam.Delete)
			student.GET("/mock-exams/:id/export", c.mockExam.Export)
		}
	}
}
