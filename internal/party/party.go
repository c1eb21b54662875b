package party

import (
	"slices"
	"time"

	"github.com/samber/lo"
)

// PlayerID is the opaque handle of a connected or previously seen player.
type PlayerID string

// ID identifies a registered party.
type ID string

// Party is an immutable snapshot of a registered party. Members are listed in join order
// and the slice is owned by the caller.
type Party struct {
	ID        ID         `json:"id"`
	Owner     PlayerID   `json:"owner"`
	Members   []PlayerID `json:"members"`
	CreatedAt time.Time  `json:"created_at"`
}

// HasMember reports whether the player belongs to the party.
func (p Party) HasMember(player PlayerID) bool {
	return lo.Contains(p.Members, player)
}

// Size returns the number of members.
func (p Party) Size() int {
	return len(p.Members)
}

// Successor returns the member that inherits ownership when the owner leaves: the
// earliest joined member other than the owner.
func (p Party) Successor() (PlayerID, bool) {
	return lo.Find(p.Members, func(member PlayerID) bool {
		return member != p.Owner
	})
}

// Others returns the members other than the given player, in join order.
func (p Party) Others(player PlayerID) []PlayerID {
	return lo.Without(p.Members, player)
}

// state is the registry-owned mutable form of a party.
type state struct {
	id        ID
	owner     PlayerID
	members   []PlayerID
	createdAt time.Time
}

func (s *state) snapshot() Party {
	return Party{
		ID:        s.id,
		Owner:     s.owner,
		Members:   slices.Clone(s.members),
		CreatedAt: s.createdAt,
	}
}

func (s *state) hasMember(player PlayerID) bool {
	return slices.Contains(s.members, player)
}
