package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nmearl/cds-api/config"
	"github.com/nmearl/cds-api/internal/api/handler"
	"github.com/nmearl/cds-api/internal/api/middleware"
	"github.com/nmearl/cds-api/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 可为 nil，此时限流中间件直接放行
func Setup(cfg *config.Config, h *handler.Handler, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	signUpLimit := middleware.RateLimit(rdb, cfg.RateLimit, "sign_up")
	loginLimit := middleware.RateLimit(rdb, cfg.RateLimit, "login")
	verifyLimit := middleware.RateLimit(rdb, cfg.RateLimit, "verify")

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 学生账号
		students := v1.Group("/students")
		{
			students.POST("/sign-up", signUpLimit, h.Account.SignUpStudent)
			students.PUT("/login", loginLimit, h.Account.LoginStudent)
			students.POST("/verify/:code", verifyLimit, h.Account.VerifyStudent)
			students.GET("", h.Account.ListStudents)
			students.GET("/:id/classes", h.Class.GetClassesForStudent)
			students.GET("/:id/options", h.Story.GetStudentOptions)
			students.PUT("/:id/options", h.Story.UpdateStudentOptions)
		}

		// 教师账号
		educators := v1.Group("/educators")
		{
			educators.POST("/sign-up", signUpLimit, h.Account.SignUpEducator)
			educators.PUT("/login", loginLimit, h.Account.LoginEducator)
			educators.POST("/verify/:code", verifyLimit, h.Account.VerifyEducator)
			educators.GET("", h.Account.ListEducators)
			educators.GET("/:id/classes", h.Class.GetClassesForEducator)
		}

		// 班级模块
		classes := v1.Group("/classes")
		{
			classes.POST("", h.Class.CreateClass)
			classes.DELETE("/:id", h.Class.DeleteClass)
			classes.GET("/validate-code/:code", h.Class.ValidateClassroomCode)
			classes.GET("/:id/students", h.Class.GetStudentsForClass)
			classes.POST("/:id/students", h.Class.AddStudentToClass)
		}

		// 花名册与导出
		v1.GET("/roster-info/:classID", h.Roster.GetRosterInfo)
		v1.GET("/roster-info/:classID/:storyName", h.Roster.GetRosterInfoForStory)
		v1.GET("/export/roster/:classID", h.Export.ExportRoster)

		// 故事进度
		v1.GET("/story-state/:studentID/:storyName", h.Story.GetStoryState)
		v1.PUT("/story-state/:studentID/:storyName", h.Story.UpdateStoryState)

		// hubbles_law 故事
		hubble := v1.Group("/hubbles_law")
		{
			hubble.PUT("/submit-measurement", h.Hubble.SubmitMeasurement)
			hubble.PUT("/sample-measurement", h.Hubble.SubmitSampleMeasurement)
			hubble.DELETE("/measurement/:studentID/:galaxyIdentifier", h.Hubble.RemoveMeasurement)
			hubble.DELETE("/sample-measurement/:studentID/:measurementNumber", h.Hubble.RemoveSampleMeasurement)

			hubble.GET("/measurements/:studentID", h.Hubble.GetStudentMeasurements)
			hubble.GET("/measurements/:studentID/:galaxyID", h.Hubble.GetMeasurement)
			hubble.GET("/sample-measurements", h.Hubble.GetSampleMeasurements)
			hubble.GET("/sample-measurements/:studentID", h.Hubble.GetStudentSampleMeasurements)
			hubble.GET("/sample-measurements/:studentID/:measurementNumber", h.Hubble.GetSampleMeasurement)

			hubble.GET("/sample-galaxy", h.Hubble.GetSampleGalaxy)
			hubble.GET("/galaxies", h.Hubble.GetGalaxies)
			hubble.GET("/galaxies/:id", h.Hubble.GetGalaxy)

			hubble.PUT("/mark-galaxy-bad", h.Hubble.MarkGalaxyBad)
			hubble.POST("/mark-spectrum-bad", h.Hubble.MarkSpectrumBad)
			hubble.POST("/mark-tileload-bad", h.Hubble.MarkTileloadBad)
			hubble.POST("/set-spectrum-status", h.Hubble.SetSpectrumStatus)
		}
	}

	return r
}
