package routes

import (
	"stock_alert_backend/controllers"
	"stock_alert_backend/middleware"
	"stock_alert_backend/services"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, monitor *services.PriceMonitor, jwtSecret string) {
	monitorController := controllers.NewMonitorController(monitor)

	// API v1 group
	api := router.Group("/api/v1")
	{
		monitorRoutes := api.Group("/monitor")
		{
			monitorRoutes.GET("/market", monitorController.GetMarketStatus)
			monitorRoutes.GET("/status", monitorController.GetStatus)

			// Manual trigger is an administrative operation
			monitorRoutes.POST("/check", middleware.JWTAuthMiddleware(jwtSecret), monitorController.RunCheck)
		}
	}
}
