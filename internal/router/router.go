package router

import (
	"net/http"
	"time"

	"inkcloud/internal/handler"
	"inkcloud/internal/middleware"
	"inkcloud/internal/types"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

func NewRouter(
	serverHandler *handler.Server,
	configManager types.ConfigManager,
) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Register global middleware
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Logger(configManager.GetLogConfig()))
	router.Use(middleware.CORS(configManager.GetCORSConfig()))
	startTime := time.Now()
	router.Use(func(c *gin.Context) {
		c.Set("serverStartTime", startTime)
		c.Next()
	})

	// Register routes
	registerSystemRoutes(router, serverHandler)
	registerAPIRoutes(router, serverHandler)

	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	})

	return router
}

// registerSystemRoutes registers system-level routes
func registerSystemRoutes(router *gin.Engine, serverHandler *handler.Server) {
	router.GET("/health", serverHandler.Health)
}

// registerAPIRoutes registers API routes
func registerAPIRoutes(router *gin.Engine, serverHandler *handler.Server) {
	api := router.Group("/api")

	// Public
	registerPublicAPIRoutes(api, serverHandler)

	// Authenticated
	protectedAPI := api.Group("")
	protectedAPI.Use(middleware.Auth(serverHandler.AuthService))
	registerProtectedAPIRoutes(protectedAPI, serverHandler)
}

// registerPublicAPIRoutes registers public API routes
func registerPublicAPIRoutes(api *gin.RouterGroup, serverHandler *handler.Server) {
	api.POST("/auth/login", serverHandler.Login)
}

// registerProtectedAPIRoutes registers authenticated API routes
func registerProtectedAPIRoutes(api *gin.RouterGroup, serverHandler *handler.Server) {
	// The stream is registered before gzip, which would buffer websocket frames.
	api.GET("/settings/stream", serverHandler.StreamSettings)

	compressed := api.Group("")
	compressed.Use(gzip.Gzip(gzip.DefaultCompression))

	compressed.POST("/focus", serverHandler.Focus)

	settings := compressed.Group("/settings")
	{
		settings.GET("", serverHandler.ListSettings)
		settings.GET("/metrics", serverHandler.SettingsMetrics)
		settings.GET("/export", serverHandler.ExportSettings)
		settings.POST("/import", serverHandler.ImportSettings)

		settings.POST("/blacklist/entries", serverHandler.AddBlacklistEntries)
		settings.DELETE("/blacklist/entries", serverHandler.RemoveBlacklistEntries)
		settings.POST("/blacklist/clear", serverHandler.ClearBlacklist)
		settings.POST("/notifications/toggle", serverHandler.ToggleNotifications)

		settings.GET("/:domain", serverHandler.GetSetting)
		settings.PUT("/:domain", serverHandler.ReplaceSetting)
		settings.PATCH("/:domain", serverHandler.PatchSetting)
		settings.POST("/:domain/refresh", serverHandler.RefreshSetting)
	}

	session := compressed.Group("/session")
	{
		session.GET("/tenant", serverHandler.GetTenant)
		session.PUT("/tenant", serverHandler.SetTenant)
	}
}
