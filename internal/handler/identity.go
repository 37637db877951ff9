package handler

import (
	"net/http"

	"Planora/internal/model"

	"github.com/gin-gonic/gin"
)

// identityFromRequest reads the actor identity the surrounding session
// layer attached to the request. Missing or malformed identity aborts
// with 401; there is no separate credential exchange here.
func identityFromRequest(c *gin.Context) (model.Identity, bool) {
	actorID := c.GetHeader("X-Actor-Id")
	roleStr := c.GetHeader("X-Actor-Role")

	if actorID == "" || roleStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing actor identity"})
		return model.Identity{}, false
	}

	role, err := model.ParseRole(roleStr)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown role"})
		return model.Identity{}, false
	}

	return model.Identity{ActorID: actorID, Role: role}, true
}
