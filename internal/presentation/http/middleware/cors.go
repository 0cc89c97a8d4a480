package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var localOrigins = []string{
	"http://localhost:3000",
	"http://localhost:4321",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:4321",
	"http://[::1]:3000", // IPv6 localhost
	"http://[::1]:4321", // IPv6 localhost
}

// CORSMiddleware allows the visual editor and local dev hosts
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	origins := append([]string(nil), localOrigins...)
	for _, o := range allowedOrigins {
		if o != "" {
			origins = append(origins, o)
		}
	}

	config := cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{
			"GET", "POST", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			"X-Requested-With", "Cache-Control",
			"Webhook-Signature",
		},
		AllowCredentials: true,
		ExposeHeaders: []string{
			"Content-Type", "Cache-Control",
		},
	}

	return cors.New(config)
}
