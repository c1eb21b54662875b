package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/charlesng35/partyd/internal/invitations"
	"github.com/charlesng35/partyd/internal/party"
	"github.com/charlesng35/partyd/internal/services"
	appErrors "github.com/charlesng35/partyd/pkg/errors"
	"github.com/charlesng35/partyd/pkg/response"
)

// PartyHandler exposes the party lifecycle to authenticated players.
type PartyHandler struct {
	svc *services.PartyService
}

// NewPartyHandler constructs a PartyHandler.
func NewPartyHandler(svc *services.PartyService) *PartyHandler {
	return &PartyHandler{svc: svc}
}

// targetRequest names another player either by id or by display name.
type targetRequest struct {
	PlayerID string `json:"player_id" validate:"required_without=Name,omitempty,max=128"`
	Name     string `json:"name" validate:"omitempty,playername"`
}

// fromRequest optionally names the inviter whose invitation is answered.
type fromRequest struct {
	InviterID string `json:"inviter_id" validate:"omitempty,max=128"`
	From      string `json:"from" validate:"omitempty,playername"`
}

type partyDTO struct {
	ID        party.ID         `json:"id"`
	Owner     party.PlayerID   `json:"owner"`
	Members   []party.PlayerID `json:"members"`
	CreatedAt time.Time        `json:"created_at"`
}

type invitationDTO struct {
	invitations.Invitation
	ExpiresIn int `json:"expires_in"`
}

func toPartyDTO(p party.Party) partyDTO {
	return partyDTO{ID: p.ID, Owner: p.Owner, Members: p.Members, CreatedAt: p.CreatedAt}
}

func toInvitationDTO(inv invitations.Invitation, now time.Time) invitationDTO {
	remaining := int(inv.ExpiresAt.Sub(now).Round(time.Second).Seconds())
	inv.IssuedAt = inv.IssuedAt.UTC()
	inv.ExpiresAt = inv.ExpiresAt.UTC()
	return invitationDTO{Invitation: inv, ExpiresIn: max(remaining, 0)}
}

// POST /api/party
func (h *PartyHandler) Create(c *gin.Context) {
	created, err := h.svc.Create(requestContext(c), currentPlayer(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, toPartyDTO(created))
}

// GET /api/party
func (h *PartyHandler) Roster(c *gin.Context) {
	roster, err := h.svc.Roster(requestContext(c), currentPlayer(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, roster)
}

// DELETE /api/party
func (h *PartyHandler) Disband(c *gin.Context) {
	former, err := h.svc.Disband(requestContext(c), currentPlayer(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"former_members": former})
}

// POST /api/party/leave
func (h *PartyHandler) Leave(c *gin.Context) {
	outcome, err := h.svc.Leave(requestContext(c), currentPlayer(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, outcome)
}

// GET /api/party/invites
func (h *PartyHandler) PendingInvites(c *gin.Context) {
	now := time.Now()
	pending := lo.Map(h.svc.PendingInvitations(currentPlayer(c)), func(inv invitations.Invitation, _ int) invitationDTO {
		return toInvitationDTO(inv, now)
	})
	response.Success(c, http.StatusOK, pending)
}

// POST /api/party/invites
func (h *PartyHandler) Invite(c *gin.Context) {
	var req targetRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)
	var (
		inv invitations.Invitation
		err error
	)
	if req.PlayerID != "" {
		inv, err = h.svc.Invite(ctx, currentPlayer(c), party.PlayerID(req.PlayerID))
	} else {
		inv, err = h.svc.InviteByName(ctx, currentPlayer(c), req.Name)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, toInvitationDTO(inv, time.Now()))
}

// POST /api/party/invites/accept
func (h *PartyHandler) Accept(c *gin.Context) {
	var req fromRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)
	var (
		joined party.Party
		err    error
	)
	if req.InviterID != "" {
		joined, err = h.svc.Accept(ctx, currentPlayer(c), party.PlayerID(req.InviterID))
	} else {
		joined, err = h.svc.AcceptFrom(ctx, currentPlayer(c), req.From)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, toPartyDTO(joined))
}

// POST /api/party/invites/deny
func (h *PartyHandler) Deny(c *gin.Context) {
	var req fromRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)
	var (
		denied invitations.Invitation
		err    error
	)
	if req.InviterID != "" {
		denied, err = h.svc.Deny(ctx, currentPlayer(c), party.PlayerID(req.InviterID))
	} else {
		denied, err = h.svc.DenyFrom(ctx, currentPlayer(c), req.From)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, denied)
}

// DELETE /api/party/invites/:player
func (h *PartyHandler) Revoke(c *gin.Context) {
	invitee := party.PlayerID(c.Param("player"))
	if invitee == "" {
		response.Error(c, appErrors.NewBadRequest("player is required"))
		return
	}
	if err := h.svc.Revoke(requestContext(c), currentPlayer(c), invitee); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": invitee})
}

// POST /api/party/kick
func (h *PartyHandler) Kick(c *gin.Context) {
	var req targetRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)
	var (
		roster services.Roster
		err    error
	)
	if req.PlayerID != "" {
		roster, err = h.svc.Kick(ctx, currentPlayer(c), party.PlayerID(req.PlayerID))
	} else {
		roster, err = h.svc.KickByName(ctx, currentPlayer(c), req.Name)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, roster)
}

// POST /api/party/transfer
func (h *PartyHandler) Transfer(c *gin.Context) {
	var req targetRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)
	var (
		roster services.Roster
		err    error
	)
	if req.PlayerID != "" {
		roster, err = h.svc.Transfer(ctx, currentPlayer(c), party.PlayerID(req.PlayerID))
	} else {
		roster, err = h.svc.TransferByName(ctx, currentPlayer(c), req.Name)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, roster)
}
