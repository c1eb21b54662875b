package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/partyd/internal/handlers"
)

func registerPartyRoutes(api *gin.RouterGroup, deps Dependencies) {
	partyHandler := handlers.NewPartyHandler(deps.Parties)

	p := api.Group("/party")
	{
		p.POST("", partyHandler.Create)
		p.GET("", partyHandler.Roster)
		p.DELETE("", partyHandler.Disband)
		p.POST("/leave", partyHandler.Leave)
		p.POST("/kick", partyHandler.Kick)
		p.POST("/transfer", partyHandler.Transfer)

		p.GET("/invites", partyHandler.PendingInvites)
		p.POST("/invites", partyHandler.Invite)
		p.POST("/invites/accept", partyHandler.Accept)
		p.POST("/invites/deny", partyHandler.Deny)
		p.DELETE("/invites/:player", partyHandler.Revoke)
	}

	if deps.Audit != nil {
		auditHandler := handlers.NewAuditHandler(deps.Audit)
		p.GET("/history", auditHandler.History)
	}
}
