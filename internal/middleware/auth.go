package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/partyd/internal/auditctx"
	iauth "github.com/charlesng35/partyd/internal/auth"
	"github.com/charlesng35/partyd/pkg/errors"
	"github.com/charlesng35/partyd/pkg/response"
)

const (
	CtxClaimsKey     = "authClaims"
	CtxPlayerIDKey   = "playerID"
	CtxPlayerNameKey = "playerName"
	CtxSessionIDKey  = "sessionID"
)

// Auth enforces player token authentication using the supplied JWT service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := jwt.ValidatePlayerToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		SetClaims(c, claims)
		c.Request = c.Request.WithContext(auditctx.WithActor(c.Request.Context(), auditctx.Actor{
			PlayerID:  claims.PlayerID,
			Name:      claims.Name,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}))
		c.Next()
	}
}

// SetClaims propagates the player identity into the request context.
func SetClaims(c *gin.Context, claims *iauth.Claims) {
	c.Set(CtxClaimsKey, claims)
	c.Set(CtxPlayerIDKey, claims.PlayerID)
	c.Set(CtxPlayerNameKey, claims.Name)
	if claims.SessionID != "" {
		c.Set(CtxSessionIDKey, claims.SessionID)
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	if len(header) < 8 || !strings.EqualFold(header[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}
