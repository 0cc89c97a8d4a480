// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AtRiskMedia/tractstack-storyblok/internal/application/container"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/presentation/http/handlers"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/presentation/http/middleware"
	"github.com/AtRiskMedia/tractstack-storyblok/pkg/config"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(container.Logger.HTTP()))
	r.Use(middleware.CORSMiddleware(container.Preview.AllowedOrigins))

	// Initialize handlers
	healthHandlers := handlers.NewHealthHandlers(container.Pipeline, container.Hub)
	storyblokHandlers := handlers.NewStoryblokHandlers(container.Pipeline, container.Hub, container.Preview.WebhookSecret, container.Logger)
	pageHandlers := handlers.NewPageHandlers(container.Pipeline, container.Logger)

	r.GET("/healthz", healthHandlers.GetHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/storyblok")
	{
		api.GET("/scripts", storyblokHandlers.GetScripts)
		api.POST("/webhook", storyblokHandlers.PostWebhook)
		api.GET("/bridge", storyblokHandlers.ServeBridge)
	}

	preview := middleware.PreviewMiddleware(middleware.PreviewConfig{
		PreviewToken:   container.Preview.PreviewToken,
		JWTSecret:      container.Preview.JWTSecret,
		DefaultVersion: container.Preview.DefaultVersion,
		TokenTTL:       config.PreviewTokenTTL,
		SessionTTL:     config.PreviewSessionTTL,
		SecureCookie:   gin.Mode() == gin.ReleaseMode,
	}, container.Logger.Preview())

	r.NoRoute(preview, pageHandlers.GetPage)

	return r
}
