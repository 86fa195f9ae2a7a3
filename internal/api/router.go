package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/videoqa/internal/api/handler"
	"github.com/timmy/videoqa/internal/api/middleware"
	"github.com/timmy/videoqa/internal/config"
	"github.com/timmy/videoqa/internal/logger"
)

// Handlers groups the endpoint handlers mounted by SetupRouter.
type Handlers struct {
	Health *handler.HealthHandler
	Video  *handler.VideoHandler
	QA     *handler.QAHandler
	Admin  *handler.AdminHandler
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(h Handlers, cfg *config.ServerConfig, log *logger.Logger) *gin.Engine {
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
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cfg.CORS))

	r.GET("/health", h.Health.Health)

	v1 := r.Group("/api/v1")
	{
		videos := v1.Group("/videos")
		videos.POST("", h.Video.CreateVideo)
		videos.GET("", h.Video.ListVideos)
		videos.POST("/transcribe", h.Video.Transcribe)
		videos.GET("/:id", h.Video.GetVideo)
		videos.PUT("/:id", h.Video.UpdateVideo)
		videos.DELETE("/:id", h.Video.DeleteVideo)
		videos.POST("/:id/reindex", h.Video.ReindexVideo)
		videos.GET("/:id/transcript", h.Video.GetTranscript)
		videos.POST("/:id/qa", h.QA.AskPlaceholder)

		qa := v1.Group("/qa")
		qa.POST("/ask", h.QA.Ask)
		qa.GET("/history/:video_id", h.QA.History)

		if h.Admin != nil {
			admin := v1.Group("/admin")
			admin.POST("/reindex", h.Admin.TriggerReindex)
			admin.GET("/reindex", h.Admin.GetReindexStatus)
		}
	}

	return r
}
