package api

import (
	"alcyxob/course-app/internal/cache"
	"alcyxob/course-app/internal/domain"
	"alcyxob/course-app/internal/logger"
	"alcyxob/course-app/internal/service"
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Services are the handlers' dependencies. A nil Materials disables the
// material routes (no object storage configured).
type Services struct {
	Content   service.ContentService
	Sequencer service.Sequencer
	Progress  service.ProgressService
	Stats     service.StatsService
	Materials service.MaterialService
}

type RouterConfig struct {
	JWTSecret         string
	CORSOrigins       []string
	RateCounter       cache.RateCounter // nil disables rate limiting
	ProgressPerMinute int
	// HealthCheck backs /healthz, typically a database ping.
	HealthCheck func(ctx context.Context) error
}

func SetupRoutes(router *gin.Engine, cfg RouterConfig, svcs Services, log *logger.Logger) {
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	contentHandler := NewContentHandler(svcs.Content, svcs.Sequencer, log)
	progressHandler := NewProgressHandler(svcs.Progress, svcs.Stats, log)

	authMiddleware := AuthMiddleware(cfg.JWTSecret)
	optionalAuth := OptionalAuthMiddleware(cfg.JWTSecret)
	adminOnly := RoleMiddleware(domain.RoleAdmin)
	progressLimit := RateLimit(cfg.RateCounter, "progress", cfg.ProgressPerMinute, time.Minute, log)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/healthz", func(c *gin.Context) {
		if cfg.HealthCheck != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := cfg.HealthCheck(ctx); err != nil {
				log.Warn("health check failed", "error", err)
				abortWithError(c, http.StatusServiceUnavailable, "unhealthy")
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiV1 := router.Group("/api/v1")

	// --- Public content ---
	courses := apiV1.Group("/courses")
	{
		courses.GET("", contentHandler.ListCourses)
		courses.GET("/:courseId", contentHandler.GetCourse)
		courses.POST("/metadata", contentHandler.GetMetadataForCourses)
		courses.GET("/:courseId/metadata", contentHandler.GetCourseMetadata)
		courses.GET("/:courseId/hierarchy", contentHandler.GetHierarchy)
		courses.GET("/:courseId/lessons", contentHandler.ListLessons)
	}
	lessons := apiV1.Group("/lessons")
	{
		lessons.GET("/:lessonId", contentHandler.GetLesson)
		lessons.GET("/:lessonId/next", contentHandler.GetNextLesson)
		lessons.GET("/:lessonId/previous", contentHandler.GetPreviousLesson)
	}

	// --- Stats (anonymous callers get zeros) ---
	apiV1.GET("/me/courses/:courseId/stats", optionalAuth, progressHandler.GetCourseStats)
	apiV1.POST("/me/stats", optionalAuth, progressHandler.GetStatsForCourses)

	// --- Per-user progress ---
	me := apiV1.Group("/me")
	me.Use(authMiddleware)
	{
		me.GET("/progress", progressHandler.ListAllProgress)
		me.GET("/courses/:courseId/progress", progressHandler.ListCourseProgress)
		me.DELETE("/courses/:courseId/progress", progressHandler.ResetProgress)
		me.GET("/courses/:courseId/resume", progressHandler.GetResumePoint)
		me.GET("/lessons/:lessonId/progress", progressHandler.GetLessonProgress)
		me.PUT("/lessons/:lessonId/progress", progressLimit, progressHandler.UpsertProgress)
		me.PUT("/lessons/:lessonId/completion", progressHandler.ToggleCompletion)
	}

	// --- Admin ---
	admin := apiV1.Group("/admin")
	admin.Use(authMiddleware, adminOnly)
	{
		admin.POST("/courses/sync", contentHandler.SyncCourse)
	}

	if svcs.Materials != nil {
		materialHandler := NewMaterialHandler(svcs.Materials, log)
		courses.GET("/:courseId/materials", materialHandler.ListMaterials)
		admin.POST("/courses/:courseId/materials/upload-url", materialHandler.RequestUploadURL)
		admin.POST("/courses/:courseId/materials", materialHandler.ConfirmUpload)
		admin.DELETE("/materials/:materialId", materialHandler.DeleteMaterial)
	}
}

func corsConfig(origins []string) cors.Config {
	config := cors.DefaultConfig()
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", requestIDHeader}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.ExposeHeaders = []string{requestIDHeader}

	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
		config.AllowCredentials = true
	}
	return config
}
