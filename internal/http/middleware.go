package http

import (
	"strings"

	"github.com/gin-gonic/gin"

	"clipstream/internal/service"
)

const userIDKey = "userID"

// AccessVerifier validates an access token and yields the bound user id.
type AccessVerifier interface {
	VerifyAccess(token string) (int64, error)
}

// requireAuth resolves the access token from the transport cookie or the
// Authorization header and stores the authenticated user id on the context.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(accessTokenCookie)
		if err != nil || token == "" {
			header := c.GetHeader("Authorization")
			if rest, ok := strings.CutPrefix(header, "Bearer "); ok {
				token = strings.TrimSpace(rest)
			}
		}
		if token == "" {
			respondError(c, service.ErrUnauthenticated)
			c.Abort()
			return
		}

		userID, err := h.verifier.VerifyAccess(token)
		if err != nil {
			respondError(c, service.ErrUnauthenticated)
			c.Abort()
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

func authenticatedUserID(c *gin.Context) int64 {
	id, _ := c.Get(userIDKey)
	userID, _ := id.(int64)
	return userID
}
