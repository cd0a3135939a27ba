package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	chat "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/application/domain"
)

// viewerFrom extracts the opaque, pre-validated identity attached to the
// request. Session issuance and verification happen upstream; here the
// identity is trusted as given.
func viewerFrom(c *gin.Context) (string, chat.Role, bool) {
	userID := c.Query("user_id")
	role := chat.Role(c.Query("role"))
	if userID == "" || !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and role (customer|vendor) are required"})
		return "", "", false
	}
	return userID, role, true
}
