package invitations

import (
	"time"

	"github.com/charlesng35/partyd/internal/party"
)

// TTL is how long an invitation stays valid after it is issued.
const TTL = 60 * time.Second

// Invitation is a time-boxed offer for Invitee to join PartyID, issued by Inviter.
type Invitation struct {
	ID        string         `json:"id"`
	Inviter   party.PlayerID `json:"inviter"`
	Invitee   party.PlayerID `json:"invitee"`
	PartyID   party.ID       `json:"party_id"`
	IssuedAt  time.Time      `json:"issued_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// IsExpired reports whether the invitation is no longer valid at now. It depends only on
// stored timestamps, so every read path can re-check it without coordination.
func (i Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
