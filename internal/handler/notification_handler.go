package handler

import (
	"errors"
	"net/http"
	"strconv"

	"Planora/internal/repo"
	"Planora/internal/service"

	"github.com/gin-gonic/gin"
)

type NotificationHandler interface {
	List(c *gin.Context)
	MarkRead(c *gin.Context)
	Delete(c *gin.Context)
}

type notificationHandler struct {
	service service.NotificationService
}

func NewNotificationHandler(service service.NotificationService) NotificationHandler {
	return &notificationHandler{service: service}
}

// List returns one newest-first page of the caller's notifications plus
// the running unread count.
func (h *notificationHandler) List(c *gin.Context) {
	actor, ok := identityFromRequest(c)
	if !ok {
		return
	}

	page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page number"})
		return
	}
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	unreadOnly := c.Query("unreadOnly") == "true"

	list, err := h.service.List(c.Request.Context(), actor.ActorID, page, limit, unreadOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
		return
	}

	c.JSON(http.StatusOK, list)
}

type markReadRequest struct {
	IsRead bool `json:"isRead"`
}

// MarkRead toggles the read flag of one of the caller's notifications.
func (h *notificationHandler) MarkRead(c *gin.Context) {
	actor, ok := identityFromRequest(c)
	if !ok {
		return
	}

	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	updated, err := h.service.MarkRead(c.Request.Context(), c.Param("id"), actor.ActorID, req.IsRead, "")
	if err != nil {
		if errors.Is(err, repo.ErrNotificationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update notification"})
		return
	}

	c.JSON(http.StatusOK, updated)
}

// Delete removes one of the caller's notifications permanently.
func (h *notificationHandler) Delete(c *gin.Context) {
	actor, ok := identityFromRequest(c)
	if !ok {
		return
	}

	wasUnread, err := h.service.Delete(c.Request.Context(), c.Param("id"), actor.ActorID)
	if err != nil {
		if errors.Is(err, repo.ErrNotificationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete notification"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"wasUnread": wasUnread})
}
