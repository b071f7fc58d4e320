package middleware

import (
	"net/http"

	"github.com/docflow/docflow/portal/internal/sessions"
	"github.com/docflow/docflow/portal/internal/tokens"
	"github.com/docflow/docflow/portal/internal/transport"
	"github.com/docflow/docflow/portal/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// ClaimsKey holds the inspected token claims as map[string]interface{}.
	ClaimsKey = "claims"
	// TokenKey holds the raw backend token.
	TokenKey = "token"

	SessionCookie   = "docflow_session"
	RequestIDHeader = "X-Request-ID"
)

// TokenCookie forwards the browser's backend token. It reads the `token`
// cookie (or header), drops it when revoked on logout, and puts it on the
// request context for the api client. With an empty secret the claims are
// read without verification and the backend decides whether the token is
// valid. With a secret, a token that fails the HS256 check or has expired is
// dropped before it reaches the backend.
func TokenCookie(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, err := c.Cookie(transport.TokenCookie)
		if err != nil || tok == "" {
			tok = c.GetHeader("token")
		}
		if tok == "" {
			c.Next()
			return
		}
		revoked, err := sessions.IsTokenRevoked(c.Request.Context(), tok)
		if err != nil {
			logger.Warnf("token: revocation check: %v", err)
		}
		if revoked {
			c.Next()
			return
		}

		var claims *tokens.Claims
		if secret != "" {
			claims, err = tokens.Verify(tok, secret)
			if err != nil {
				logger.Debugf("token: dropped: %v", err)
				c.Next()
				return
			}
		} else {
			claims, err = tokens.Inspect(tok)
		}

		c.Set(TokenKey, tok)
		c.Request = c.Request.WithContext(transport.WithToken(c.Request.Context(), tok))
		if err == nil {
			c.Set(ClaimsKey, map[string]interface{}{
				"sub":   claims.Subject,
				"email": claims.Email,
				"role":  string(claims.Role),
				"exp":   claims.ExpiresAt.Unix(),
			})
		}
		c.Next()
	}
}

// RequireToken rejects requests that reached it without a usable token.
func RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(TokenKey); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		c.Next()
	}
}

// RequestID tags every request and response with an id.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
