package http

import (
	"github.com/gin-gonic/gin"

	"aegiswallet/internal/infrastructure/config"
	"aegiswallet/internal/interfaces/http/handlers"
	"aegiswallet/internal/interfaces/http/middleware"
	"aegiswallet/internal/shared/logger"
)

// Router wires the HTTP surface of the sync engine.
type Router struct {
	engine         *gin.Engine
	syncHandler    *handlers.CalendarSyncHandler
	webhookHandler *handlers.WebhookHandler
	logger         logger.Interface
}

// NewRouter creates a Router.
func NewRouter(
	cfg *config.Config,
	syncHandler *handlers.CalendarSyncHandler,
	webhookHandler *handlers.WebhookHandler,
	log logger.Interface,
) *Router {
	gin.SetMode(ginMode(cfg.Server.Mode))

	return &Router{
		engine:         gin.New(),
		syncHandler:    syncHandler,
		webhookHandler: webhookHandler,
		logger:         log,
	}
}

func ginMode(mode string) string {
	switch mode {
	case "release", "production":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	}
	return gin.DebugMode
}

// SetupRoutes configures all HTTP routes.
func (r *Router) SetupRoutes(cfg *config.Config) {
	r.engine.Use(middleware.Logger(r.logger))
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.engine.Group("/api/v1")
	{
		calendar := v1.Group("/calendar")
		{
			calendar.GET("/connect", r.syncHandler.Connect)
			calendar.GET("/callback", r.syncHandler.Callback)
			calendar.POST("/sync", r.syncHandler.SyncNow)
			calendar.GET("/status", r.syncHandler.Status)
			calendar.DELETE("/connection", r.syncHandler.Disconnect)

			calendar.POST("/webhook", r.webhookHandler.Notify)
		}
	}
}

// Engine exposes the underlying gin engine for serving and tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Run starts the HTTP server on the configured address.
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
