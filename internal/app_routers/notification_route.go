package approuters

import (
	"Planora/internal/configuration"

	"github.com/gin-gonic/gin"
)

func NotificationRouters(router *gin.Engine, container *configuration.Container) {
	notificationRoute := router.Group("/api/notifications")
	{
		notificationRoute.GET("", container.NotificationHandler.List)
		notificationRoute.PATCH("/:id", container.NotificationHandler.MarkRead)
		notificationRoute.DELETE("/:id", container.NotificationHandler.Delete)
	}
}
