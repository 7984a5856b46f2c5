package http

import (
	"github.com/gin-gonic/gin"
	"github.com/layer-3/labledger/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, registryService *service.RegistryService) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	authHandlers := NewAuthHandlers(authService)
	registryHandlers := NewRegistryHandlers(registryService)

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/nonce", authHandlers.Nonce)
		auth.POST("/verify", authHandlers.Verify)
	}

	// Public registry reads
	api := router.Group("/api")
	{
		api.GET("/contracts", registryHandlers.Contracts)
		api.GET("/identities", registryHandlers.Identities)
		api.GET("/identities/:address", registryHandlers.Identity)
		api.GET("/events", registryHandlers.Events)
		api.GET("/events/:id", registryHandlers.Event)
	}

	// Session-bound routes
	protected := router.Group("/api")
	protected.Use(AuthMiddleware(authService))
	{
		protected.GET("/me", registryHandlers.Me)
		protected.POST("/identities", registryHandlers.RegisterIdentity)
		protected.PUT("/identities", registryHandlers.UpdateIdentity)
		protected.POST("/events", registryHandlers.CreateEvent)
		protected.GET("/admin/summary", AdminOnly(), registryHandlers.AdminSummary)
	}

	return router
}
