package invitations

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/partyd/internal/party"
	apperrors "github.com/charlesng35/partyd/pkg/errors"
)

type fakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

func newTestLedger(clock *fakeClock) *Ledger {
	var seq atomic.Int64
	return NewLedger(
		WithClock(clock.Now),
		WithIDGenerator(func() string { return fmt.Sprintf("inv-%d", seq.Add(1)) }),
	)
}

func TestInvitation_ExpiryIsMonotonic(t *testing.T) {
	clock := newFakeClock()
	ledger := newTestLedger(clock)

	inv, err := ledger.Issue("alice", "bob", "party-1")
	require.NoError(t, err)
	require.Equal(t, inv.IssuedAt.Add(TTL), inv.ExpiresAt)
	require.False(t, inv.IsExpired(clock.Now()))

	require.False(t, inv.IsExpired(inv.ExpiresAt), "expiry is strict")
	require.True(t, inv.IsExpired(inv.ExpiresAt.Add(time.Nanosecond)))
	for _, later := range []time.Duration{61 * time.Second, time.Hour, 24 * time.Hour} {
		require.True(t, inv.IsExpired(inv.IssuedAt.Add(later)))
	}
}

func TestInvitation_ExpiryKeepsMonotonicReading(t *testing.T) {
	ledger := NewLedger(WithClock(time.Now))

	inv, err := ledger.Issue("alice", "bob", "party-1")
	require.NoError(t, err)

	// Both stamps carry the monotonic reading ("m=" suffix), so IsExpired against
	// time.Now is immune to wall clock steps.
	require.Contains(t, inv.IssuedAt.String(), "m=")
	require.Contains(t, inv.ExpiresAt.String(), "m=")
	require.Equal(t, TTL, inv.ExpiresAt.Sub(inv.IssuedAt))
	require.False(t, inv.IsExpired(time.Now()))
}

func TestLedger_IssueRejectsLiveDuplicate(t *testing.T) {
	clock := newFakeClock()
	ledger := newTestLedger(clock)

	_, err := ledger.Issue("alice", "bob", "party-1")
	require.NoError(t, err)

	_, err = ledger.Issue("alice", "bob", "party-1")
	require.ErrorIs(t, err, apperrors.ErrDuplicateInvite)

	_, err = ledger.Issue("carol", "bob", "party-2")
	require.NoError(t, err, "other parties are not blocked")

	clock.Advance(TTL + time.Second)
	_, err = ledger.Issue("alice", "bob", "party-1")
	require.NoError(t, err, "expired invitations do not block new ones")
}

func TestLedger_ConsumedInvitationDoesNotBlock(t *testing.T) {
	ledger := newTestLedger(newFakeClock())

	inv, err := ledger.Issue("alice", "bob", "party-1")
	require.NoError(t, err)
	require.True(t, ledger.Consume("bob", inv))
	require.False(t, ledger.Consume("bob", inv), "second consume is a no-op")

	_, err = ledger.Issue("alice", "bob", "party-1")
	require.NoError(t, err)
}

func TestLedger_FindLive(t *testing.T) {
	clock := newFakeClock()
	ledger := newTestLedger(clock)

	first, _ := ledger.Issue("alice", "bob", "party-1")
	clock.Advance(30 * time.Second)
	second, _ := ledger.Issue("carol", "bob", "party-2")

	got, ok := ledger.FindLiveByInviter("bob", "carol")
	require.True(t, ok)
	require.Equal(t, second.ID, got.ID)

	got, ok = ledger.FindAnyLive("bob")
	require.True(t, ok)
	require.Equal(t, first.ID, got.ID, "oldest live invitation wins")

	got, ok = ledger.FindLiveForParty("bob", "party-2")
	require.True(t, ok)
	require.Equal(t, second.ID, got.ID)

	clock.Advance(31 * time.Second)
	_, ok = ledger.FindLiveByInviter("bob", "alice")
	require.False(t, ok, "first invitation expired")
	got, ok = ledger.FindAnyLive("bob")
	require.True(t, ok)
	require.Equal(t, second.ID, got.ID)
	require.Len(t, ledger.Live("bob"), 1)

	_, ok = ledger.FindAnyLive("nobody")
	require.False(t, ok)
}

func TestLedger_SweepExpired(t *testing.T) {
	clock := newFakeClock()
	ledger := newTestLedger(clock)

	_, _ = ledger.Issue("alice", "bob", "party-1")
	_, _ = ledger.Issue("alice", "carol", "party-1")
	clock.Advance(TTL)
	_, _ = ledger.Issue("dave", "erin", "party-2")
	clock.Advance(time.Second)

	require.Equal(t, 3, ledger.Len())
	require.Equal(t, 2, ledger.SweepExpired())
	require.Equal(t, 1, ledger.Len())
	require.Equal(t, 0, ledger.SweepExpired())
}

func TestLedger_DropParty(t *testing.T) {
	ledger := newTestLedger(newFakeClock())

	_, _ = ledger.Issue("alice", "bob", "party-1")
	_, _ = ledger.Issue("alice", "carol", "party-1")
	kept, _ := ledger.Issue("dave", "bob", "party-2")

	require.Equal(t, 2, ledger.DropParty("party-1"))
	require.Equal(t, 1, ledger.Len())

	got, ok := ledger.FindAnyLive("bob")
	require.True(t, ok)
	require.Equal(t, kept.ID, got.ID)
	_, ok = ledger.FindAnyLive("carol")
	require.False(t, ok)
}

func TestLedger_LiveReturnsDetachedSlice(t *testing.T) {
	ledger := newTestLedger(newFakeClock())
	_, _ = ledger.Issue("alice", "bob", "party-1")

	live := ledger.Live("bob")
	live[0].PartyID = "tampered"

	got, ok := ledger.FindAnyLive("bob")
	require.True(t, ok)
	require.Equal(t, party.ID("party-1"), got.PartyID)
}

// Replays the same random operation sequence against two ledgers sharing a clock.
// One of them sweeps before every step; every read must agree.
func TestLedger_SweepIsCommutativeWithReads(t *testing.T) {
	players := []party.PlayerID{"alice", "bob", "carol", "dave"}
	parties := []party.ID{"party-1", "party-2", "party-3"}

	for seed := int64(1); seed <= 20; seed++ {
		clock := newFakeClock()
		plain := newTestLedger(clock)
		swept := newTestLedger(clock)
		rnd := rand.New(rand.NewSource(seed))

		for step := 0; step < 300; step++ {
			if rnd.Intn(3) == 0 {
				swept.SweepExpired()
			}

			invitee := players[rnd.Intn(len(players))]
			inviter := players[rnd.Intn(len(players))]
			target := parties[rnd.Intn(len(parties))]

			switch rnd.Intn(6) {
			case 0:
				a, errA := plain.Issue(inviter, invitee, target)
				b, errB := swept.Issue(inviter, invitee, target)
				require.Equal(t, errA, errB, "seed %d step %d", seed, step)
				require.Equal(t, a, b, "seed %d step %d", seed, step)
			case 1:
				a, okA := plain.FindLiveByInviter(invitee, inviter)
				b, okB := swept.FindLiveByInviter(invitee, inviter)
				require.Equal(t, okA, okB, "seed %d step %d", seed, step)
				require.Equal(t, a, b, "seed %d step %d", seed, step)
			case 2:
				a, okA := plain.FindAnyLive(invitee)
				b, okB := swept.FindAnyLive(invitee)
				require.Equal(t, okA, okB, "seed %d step %d", seed, step)
				require.Equal(t, a, b, "seed %d step %d", seed, step)
				if okA && rnd.Intn(2) == 0 {
					require.Equal(t, plain.Consume(invitee, a), swept.Consume(invitee, b))
				}
			case 3:
				require.Equal(t, plain.Live(invitee), swept.Live(invitee), "seed %d step %d", seed, step)
			default:
				clock.Advance(time.Duration(rnd.Intn(40)) * time.Second)
			}
		}
	}
}

func TestLedger_ConcurrentIssueAllowsOneLiveInvite(t *testing.T) {
	ledger := NewLedger()

	var wg sync.WaitGroup
	var accepted atomic.Int64
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Issue("alice", "bob", "party-1"); err == nil {
				accepted.Add(1)
			}
			ledger.SweepExpired()
		}()
	}
	wg.Wait()

	require.Equal(t, int64(1), accepted.Load())
	require.Len(t, ledger.Live("bob"), 1)
}
