package middlewares

import (
	"net/http"

	"podium/models"

	"github.com/gin-gonic/gin"
)

const ownerContextKey = "owner"

// Identity resolves the caller to an Owner from the X-User-Id or
// X-Session-Id header and stores it in the request context. Registered
// identity wins when both are present.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetHeader("X-User-Id"); userID != "" {
			c.Set(ownerContextKey, models.RegisteredOwner(userID))
		} else if sessionID := c.GetHeader("X-Session-Id"); sessionID != "" {
			c.Set(ownerContextKey, models.GuestOwner(sessionID))
		}
		c.Next()
	}
}

// RequireOwner aborts with 401 when the request carries no identity.
func RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(ownerContextKey); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "a user id or session id is required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// OwnerFrom returns the Owner resolved by the Identity middleware.
func OwnerFrom(c *gin.Context) (models.Owner, bool) {
	v, ok := c.Get(ownerContextKey)
	if !ok {
		return models.Owner{}, false
	}
	owner, ok := v.(models.Owner)
	return owner, ok
}
