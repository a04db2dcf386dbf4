package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// tokenCtxKey is the Gin context key holding the caller's creator token.
const tokenCtxKey = "creator_token"

// TokenHeader is the header the boundary layer reads the creator token from.
const TokenHeader = "X-Creator-Token"

// CreatorTokenMiddleware extracts the creator token into the request context.
// Unlike a global API key, the token can only be verified against a specific
// event, so handlers call EventStore.VerifyToken themselves; an absent token
// simply fails that check.
func CreatorTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(tokenCtxKey, strings.TrimSpace(c.GetHeader(TokenHeader)))
		c.Next()
	}
}

// CreatorToken returns the creator token from the request context, "" when
// none was presented.
func CreatorToken(c *gin.Context) string {
	v, _ := c.Get(tokenCtxKey)
	s, _ := v.(string)
	return s
}
