package party

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/charlesng35/partyd/pkg/errors"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	var seq atomic.Int64
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return NewRegistry(
		WithClock(func() time.Time { return now }),
		WithIDGenerator(func() string { return fmt.Sprintf("party-%d", seq.Add(1)) }),
	)
}

func TestRegistry_CreateIndexesOwner(t *testing.T) {
	reg := newTestRegistry(t)

	p, err := reg.Create("alice")
	require.NoError(t, err)
	require.Equal(t, ID("party-1"), p.ID)
	require.Equal(t, PlayerID("alice"), p.Owner)
	require.Equal(t, []PlayerID{"alice"}, p.Members)
	require.False(t, p.CreatedAt.IsZero())

	byPlayer, ok := reg.GetByPlayer("alice")
	require.True(t, ok)
	require.Equal(t, p.ID, byPlayer.ID)
	require.Equal(t, 1, reg.Count())
}

func TestRegistry_CreateRejectsGroupedOwner(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.Create("alice")
	require.NoError(t, err)

	_, err = reg.Create("alice")
	require.ErrorIs(t, err, apperrors.ErrAlreadyInParty)
	require.Equal(t, 1, reg.Count())
}

func TestRegistry_AddMember(t *testing.T) {
	reg := newTestRegistry(t)
	first, _ := reg.Create("alice")
	second, _ := reg.Create("carol")

	require.NoError(t, reg.AddMember(first.ID, "bob"))
	require.ErrorIs(t, reg.AddMember(second.ID, "bob"), apperrors.ErrAlreadyInParty)
	require.ErrorIs(t, reg.AddMember(first.ID, "bob"), apperrors.ErrAlreadyInParty)
	require.ErrorIs(t, reg.AddMember("missing", "dave"), apperrors.ErrPartyNotFound)

	got, ok := reg.Get(first.ID)
	require.True(t, ok)
	require.Equal(t, []PlayerID{"alice", "bob"}, got.Members)
}

func TestRegistry_RemoveMember(t *testing.T) {
	reg := newTestRegistry(t)
	p, _ := reg.Create("alice")
	require.NoError(t, reg.AddMember(p.ID, "bob"))

	require.ErrorIs(t, reg.RemoveMember(p.ID, "alice"), apperrors.ErrCannotRemoveOwner)
	require.ErrorIs(t, reg.RemoveMember(p.ID, "zed"), apperrors.ErrNotAMember)
	require.NoError(t, reg.RemoveMember(p.ID, "bob"))

	_, ok := reg.GetByPlayer("bob")
	require.False(t, ok)
	got, _ := reg.Get(p.ID)
	require.Equal(t, []PlayerID{"alice"}, got.Members)
}

func TestRegistry_TransferOwnership(t *testing.T) {
	reg := newTestRegistry(t)
	p, _ := reg.Create("alice")
	require.NoError(t, reg.AddMember(p.ID, "bob"))

	require.ErrorIs(t, reg.TransferOwnership(p.ID, "zed"), apperrors.ErrNotAMember)
	require.NoError(t, reg.TransferOwnership(p.ID, "bob"))

	got, _ := reg.Get(p.ID)
	require.Equal(t, PlayerID("bob"), got.Owner)
	require.Equal(t, []PlayerID{"alice", "bob"}, got.Members)

	require.NoError(t, reg.RemoveMember(p.ID, "alice"))
	got, _ = reg.Get(p.ID)
	require.Equal(t, []PlayerID{"bob"}, got.Members)
}

func TestRegistry_DisbandIsTerminalAndIdempotent(t *testing.T) {
	reg := newTestRegistry(t)
	p, _ := reg.Create("alice")
	require.NoError(t, reg.AddMember(p.ID, "bob"))
	require.NoError(t, reg.AddMember(p.ID, "carol"))

	former := reg.Disband(p.ID)
	require.Equal(t, []PlayerID{"alice", "bob", "carol"}, former)

	_, ok := reg.Get(p.ID)
	require.False(t, ok)
	for _, member := range former {
		_, ok := reg.GetByPlayer(member)
		require.False(t, ok, "member %s still indexed", member)
	}

	require.Nil(t, reg.Disband(p.ID))
	require.Equal(t, 0, reg.Count())
}

func TestRegistry_SnapshotsAreDetached(t *testing.T) {
	reg := newTestRegistry(t)
	p, _ := reg.Create("alice")
	p.Members[0] = "mallory"
	p.Members = append(p.Members, "eve")

	got, _ := reg.Get(p.ID)
	require.Equal(t, []PlayerID{"alice"}, got.Members)
	require.Equal(t, PlayerID("alice"), got.Owner)
}

func TestRegistry_UpdateIsAtomic(t *testing.T) {
	reg := newTestRegistry(t)
	p, _ := reg.Create("alice")
	require.NoError(t, reg.AddMember(p.ID, "bob"))

	err := reg.Update(func(tx *Tx) error {
		if err := tx.TransferOwnership(p.ID, "bob"); err != nil {
			return err
		}
		return tx.RemoveMember(p.ID, "alice")
	})
	require.NoError(t, err)

	got, _ := reg.Get(p.ID)
	require.Equal(t, PlayerID("bob"), got.Owner)
	require.Equal(t, []PlayerID{"bob"}, got.Members)
}

func TestParty_Successor(t *testing.T) {
	p := Party{Owner: "alice", Members: []PlayerID{"alice", "bob", "carol"}}
	next, ok := p.Successor()
	require.True(t, ok)
	require.Equal(t, PlayerID("bob"), next)

	p = Party{Owner: "bob", Members: []PlayerID{"alice", "bob"}}
	next, ok = p.Successor()
	require.True(t, ok)
	require.Equal(t, PlayerID("alice"), next)

	_, ok = Party{Owner: "alice", Members: []PlayerID{"alice"}}.Successor()
	require.False(t, ok)
}

func TestRegistry_ConcurrentMembershipKeepsInvariants(t *testing.T) {
	reg := NewRegistry()

	const owners = 8
	const players = 64
	parties := make([]ID, 0, owners)
	for i := 0; i < owners; i++ {
		p, err := reg.Create(PlayerID(fmt.Sprintf("owner-%d", i)))
		require.NoError(t, err)
		parties = append(parties, p.ID)
	}

	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			for i := 0; i < 500; i++ {
				player := PlayerID(fmt.Sprintf("player-%d", rnd.Intn(players)))
				id := parties[rnd.Intn(len(parties))]
				switch rnd.Intn(4) {
				case 0, 1:
					_ = reg.AddMember(id, player)
				case 2:
					_ = reg.RemoveMember(id, player)
				case 3:
					_ = reg.TransferOwnership(id, player)
				}
			}
		}(int64(w))
	}
	wg.Wait()

	seen := make(map[PlayerID]ID)
	for _, p := range reg.List() {
		require.True(t, p.HasMember(p.Owner), "owner %s not a member of %s", p.Owner, p.ID)
		for _, member := range p.Members {
			prev, dup := seen[member]
			require.False(t, dup, "player %s in %s and %s", member, prev, p.ID)
			seen[member] = p.ID

			indexed, ok := reg.GetByPlayer(member)
			require.True(t, ok)
			require.Equal(t, p.ID, indexed.ID)
		}
	}
}
