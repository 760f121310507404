package routes

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "poll-service/docs"
	"poll-service/internal/middleware"
	"poll-service/internal/poll"
	"poll-service/internal/ws"
)

// SetupRoutes configures all the routes for the application
func SetupRoutes(router *gin.Engine, pollHandler *poll.PollHandler, hub *ws.Hub) {
	router.Use(middleware.CORS())
	router.Use(middleware.LogApi())

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check route
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Realtime subscriptions
	router.GET("/ws", ws.ServeWs(hub))

	pollHandler.RegisterRoutes(router)
}
