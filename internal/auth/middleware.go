package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// userIDKey is the Gin context key holding the authenticated user id.
	// The access logger reads the same key.
	userIDKey = "userID"
	userKey   = "authUser"

	msgUnauthorized = "Unauthorized"
	msgInvalidToken = "Invalid token"
)

// DenyFunc writes the 401 response. err is ErrMissingToken or wraps
// ErrInvalidToken.
type DenyFunc func(c *gin.Context, status int, err error, msg string)

// RequireUser admits requests that carry a valid bearer token. The user id is
// stored under "userID" for handlers and logging. A nil deny writes
// {"error": msg}.
func RequireUser(v Verifier, deny DenyFunc) gin.HandlerFunc {
	if deny == nil {
		deny = respondUnauthorized
	}
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if strings.TrimSpace(header) == "" {
			deny(c, http.StatusUnauthorized, ErrMissingToken, msgUnauthorized)
			return
		}
		token, ok := extractBearerToken(header)
		if !ok || v == nil {
			deny(c, http.StatusUnauthorized, ErrInvalidToken, msgInvalidToken)
			return
		}
		u, err := v.Verify(c.Request.Context(), token)
		if err != nil || u == nil || u.ID == "" {
			if err == nil {
				err = ErrInvalidToken
			}
			deny(c, http.StatusUnauthorized, err, msgInvalidToken)
			return
		}
		c.Set(userIDKey, u.ID)
		c.Set(userKey, u)
		c.Next()
	}
}

// UserID returns the authenticated user id, or "".
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c *gin.Context) *User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*User); ok {
			return u
		}
	}
	return nil
}

func extractBearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

func respondUnauthorized(c *gin.Context, status int, _ error, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
