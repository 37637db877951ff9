package handler

import (
	"errors"
	"net/http"
	"strconv"

	"Planora/internal/repo"
	"Planora/internal/service"

	"github.com/gin-gonic/gin"
)

type ProjectHandler interface {
	GetAccessibleProjects(c *gin.Context)
	GetProjectMessages(c *gin.Context)
	AddManager(c *gin.Context)
	RemoveManager(c *gin.Context)
}

type projectHandler struct {
	service service.ProjectService
}

func NewProjectHandler(service service.ProjectService) ProjectHandler {
	return &projectHandler{service: service}
}

// GetAccessibleProjects returns the project ids the caller may see,
// computed fresh from the access resolver.
func (h *projectHandler) GetAccessibleProjects(c *gin.Context) {
	actor, ok := identityFromRequest(c)
	if !ok {
		return
	}

	ids, err := h.service.AccessibleProjectIDs(c.Request.Context(), actor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve projects"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"projectIds": ids})
}

func (h *projectHandler) GetProjectMessages(c *gin.Context) {
	actor, ok := identityFromRequest(c)
	if !ok {
		return
	}

	page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page number"})
		return
	}

	msgs, err := h.service.ProjectMessages(c.Request.Context(), actor, c.Param("projectId"), page)
	if err != nil {
		if errors.Is(err, service.ErrForbidden) {
			c.JSON(http.StatusForbidden, gin.H{"error": "no access to project"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

type addManagerRequest struct {
	ManagerID string `json:"managerId" binding:"required"`
}

func (h *projectHandler) AddManager(c *gin.Context) {
	actor, ok := identityFromRequest(c)
	if !ok {
		return
	}

	var req addManagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "managerId is required"})
		return
	}

	err := h.service.AddManager(c.Request.Context(), actor, c.Param("projectId"), req.ManagerID)
	if err != nil {
		h.writeMembershipError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "manager added"})
}

func (h *projectHandler) RemoveManager(c *gin.Context) {
	actor, ok := identityFromRequest(c)
	if !ok {
		return
	}

	err := h.service.RemoveManager(c.Request.Context(), actor, c.Param("projectId"), c.Param("managerId"))
	if err != nil {
		h.writeMembershipError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "manager removed"})
}

func (h *projectHandler) writeMembershipError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "no write access to project"})
	case errors.Is(err, repo.ErrProjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
	case errors.Is(err, repo.ErrManagerNotInProject):
		c.JSON(http.StatusNotFound, gin.H{"error": "actor is not a manager of this project"})
	case errors.Is(err, repo.ErrLastManager):
		c.JSON(http.StatusConflict, gin.H{"error": "a project must retain at least one manager"})
	case errors.Is(err, repo.ErrInvalidProjectID), errors.Is(err, repo.ErrInvalidActorID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership update failed"})
	}
}
