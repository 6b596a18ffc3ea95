package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/legoreviews/internal/api/handler"
	"github.com/timmy/legoreviews/internal/api/middleware"
	"github.com/timmy/legoreviews/internal/config"
	"github.com/timmy/legoreviews/internal/logger"
	"github.com/timmy/legoreviews/internal/service"
	"gorm.io/gorm"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	db *gorm.DB,
	dataset *service.DatasetService,
	serverCfg *config.ServerConfig,
	log *logger.Logger,
) *gin.Engine {
	switch serverCfg.Mode {
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
	r.Use(middleware.CORS(serverCfg.CORS))

	healthHandler := handler.NewHealthHandler(db)
	datasetHandler := handler.NewDatasetHandler(dataset)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/stats", datasetHandler.GetStats)
		v1.GET("/sets", datasetHandler.ListSets)
		v1.GET("/sets/:number", datasetHandler.GetSet)
		v1.GET("/videos", datasetHandler.ListVideos)
		v1.GET("/videos/:id", datasetHandler.GetVideo)
	}

	return r
}
