package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/partyd/internal/middleware"
	"github.com/charlesng35/partyd/internal/party"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentPlayer returns the authenticated player of the request.
func currentPlayer(c *gin.Context) party.PlayerID {
	return party.PlayerID(c.GetString(middleware.CtxPlayerIDKey))
}
