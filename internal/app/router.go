package app

import (
	"academician_hub_backend/docs"
	"academician_hub_backend/internal/config"
	"academician_hub_backend/internal/middleware"
	"academician_hub_backend/internal/model"
	"academician_hub_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.Health)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/profile", c.auth.Profile)

		// 课程目录
		authGroup.GET("/courses", c.course.ListCourses)
		authGroup.GET("/courses/:id", c.course.GetCourse)
		authGroup.GET("/courses/:id/lessons", c.course.GetCourseLessons)

		// 结课与奖励
		authGroup.POST("/lessons/:lessonId/complete", c.lesson.CompleteLesson)
		authGroup.GET("/leaderboard", c.progress.GetLeaderboard)

		// 进度模块
		progress := authGroup.Group("/progress")
		{
			progress.GET("", c.progress.GetAllProgress)
			progress.GET("/stats/overview", c.progress.GetStatsOverview)
			progress.GET("/:courseId", c.progress.GetCourseProgress)
			progress.GET("/:courseId/:level", c.progress.GetRawProgress)
			progress.GET("/:courseId/:level/units", c.progress.GetUnits)
			progress.GET("/:courseId/:level/units/:ordinal", c.progress.GetUnit)
			progress.POST("/:courseId/:level/units/:ordinal/assignment", c.progress.SubmitAssignment)
			progress.POST("/:courseId/:level/units/:ordinal/quiz", c.progress.SubmitQuiz)
		}

		// 管理员接口
		admin := authGroup.Group("/admin")
		admin.Use(middleware.RoleMiddleware(model.Admin))
		{
			admin.POST("/rewards/replay", c.admin.ReplayPendingRewards)
			admin.GET("/users/:userId/progress/:courseId/:level", c.admin.GetUserProgress)
		}
	}
}
