package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/layer-3/garuda/ports"
)

// SetupRouter sets up the Gin router.
func SetupRouter(handlers *AuthHandlers, tokenizer ports.Tokenizer) *gin.Engine {
	router := gin.Default()

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/connect", handlers.Connect)
		auth.POST("/password", handlers.PasswordLogin)
		auth.GET("/oauth/url", handlers.OAuthURL)
		auth.POST("/oauth/callback", handlers.OAuthCallback)
		auth.POST("/validate", handlers.Validate)
		auth.POST("/logout", handlers.Logout)
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(tokenizer))
	{
		api.GET("/me", handlers.Me)
	}

	router.GET("/healthz", func(c *gin.Context) { c.Status(200) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
