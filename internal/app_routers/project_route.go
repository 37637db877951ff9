package approuters

import (
	"Planora/internal/configuration"

	"github.com/gin-gonic/gin"
)

func ProjectRouters(router *gin.Engine, container *configuration.Container) {
	projectRoute := router.Group("/api/projects")
	{
		projectRoute.GET("/accessible", container.ProjectHandler.GetAccessibleProjects)
		projectRoute.GET("/:projectId/messages", container.ProjectHandler.GetProjectMessages)
		projectRoute.POST("/:projectId/managers", container.ProjectHandler.AddManager)
		projectRoute.DELETE("/:projectId/managers/:managerId", container.ProjectHandler.RemoveManager)
	}
}
