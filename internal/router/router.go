package router

import (
	"github.com/gin-gonic/gin"

	"github.com/guilamu/gravity-extract/internal/config"
	"github.com/guilamu/gravity-extract/internal/handler"
	"github.com/guilamu/gravity-extract/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	cfg *config.Config,
	extractH *handler.ExtractHandler,
	profileH *handler.ProfileHandler,
	modelH *handler.ModelHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Extraction pipeline
	ext := v1.Group("/extract")
	ext.POST("/upload", extractH.Upload)
	ext.POST("/analyze", extractH.Analyze)
	ext.POST("/detect-fields", extractH.DetectFields)
	ext.POST("/automap", extractH.Automap)
	ext.POST("/populate", extractH.Populate)

	// Archived uploads
	v1.GET("/uploads/url", extractH.UploadURL)
	v1.DELETE("/uploads", extractH.DeleteUpload)

	// Model catalog
	v1.GET("/models", modelH.List)

	// Mapping profiles. The static routes must register before the
	// parameterized ones so gin does not treat them as slugs.
	profiles := v1.Group("/profiles")
	profiles.GET("", profileH.List)
	profiles.POST("", profileH.Save)
	profiles.GET("/master-fields", profileH.MasterFields)
	profiles.POST("/import", profileH.Import)
	profiles.GET("/:slug", profileH.Get)
	profiles.DELETE("/:slug", profileH.Delete)
	profiles.POST("/:slug/duplicate", profileH.Duplicate)
	profiles.GET("/:slug/export", profileH.Export)

	return r
}
