package invitations

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/charlesng35/partyd/internal/party"
	apperrors "github.com/charlesng35/partyd/pkg/errors"
	"github.com/charlesng35/partyd/pkg/logger"
	"github.com/charlesng35/partyd/pkg/metrics"
)

// Ledger holds pending invitations per invitee, in issue order. Every read filters out
// expired entries itself, so SweepExpired only reclaims memory.
type Ledger struct {
	mu      sync.Mutex
	pending map[party.PlayerID][]Invitation
	size    int
	idGen   func() string
	now     func() time.Time
	log     *zap.Logger
}

// Option customises the Ledger.
type Option func(*Ledger)

// WithClock overrides the clock used for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithIDGenerator overrides invitation id allocation.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) {
		if gen != nil {
			l.idGen = gen
		}
	}
}

// NewLedger constructs an empty Ledger.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		pending: make(map[party.PlayerID][]Invitation),
		idGen:   uuid.NewString,
		now:     time.Now,
		log:     logger.WithModule("invitations"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Issue records a new invitation. It fails with ErrDuplicateInvite while the invitee
// still holds a live invitation to the same party.
func (l *Ledger) Issue(inviter, invitee party.PlayerID, partyID party.ID) (Invitation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(invitee, now)

	if _, dup := lo.Find(l.pending[invitee], func(inv Invitation) bool {
		return inv.PartyID == partyID
	}); dup {
		return Invitation{}, apperrors.ErrDuplicateInvite
	}

	// Timestamps keep the monotonic clock reading so a wall clock step cannot revive an
	// expired invitation.
	inv := Invitation{
		ID:        l.idGen(),
		Inviter:   inviter,
		Invitee:   invitee,
		PartyID:   partyID,
		IssuedAt:  now,
		ExpiresAt: now.Add(TTL),
	}
	l.pending[invitee] = append(l.pending[invitee], inv)
	l.resizeLocked(1)

	return inv, nil
}

// FindLiveByInviter returns the first live invitation the invitee holds from inviter.
func (l *Ledger) FindLiveByInviter(invitee, inviter party.PlayerID) (Invitation, bool) {
	return l.findLive(invitee, func(inv Invitation) bool {
		return inv.Inviter == inviter
	})
}

// FindLiveForParty returns the live invitation the invitee holds for the party.
func (l *Ledger) FindLiveForParty(invitee party.PlayerID, partyID party.ID) (Invitation, bool) {
	return l.findLive(invitee, func(inv Invitation) bool {
		return inv.PartyID == partyID
	})
}

// FindAnyLive returns the invitee's oldest live invitation. It is a best-effort fallback
// for when the inviter cannot be resolved, and may pick the wrong one among several.
func (l *Ledger) FindAnyLive(invitee party.PlayerID) (Invitation, bool) {
	return l.findLive(invitee, func(Invitation) bool { return true })
}

// Live returns the invitee's live invitations in issue order.
func (l *Ledger) Live(invitee party.PlayerID) []Invitation {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	return lo.Filter(l.pending[invitee], func(inv Invitation, _ int) bool {
		return !inv.IsExpired(now)
	})
}

// Consume removes the invitation from the invitee's pending list. It reports whether
// anything was removed.
func (l *Ledger) Consume(invitee party.PlayerID, inv Invitation) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	list := l.pending[invitee]
	idx := slices.IndexFunc(list, func(candidate Invitation) bool {
		return candidate.ID == inv.ID
	})
	if idx < 0 {
		return false
	}

	l.setLocked(invitee, slices.Delete(slices.Clone(list), idx, idx+1))
	l.resizeLocked(-1)
	return true
}

// DropParty removes every invitation that targets the party, live or not.
func (l *Ledger) DropParty(partyID party.ID) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for invitee, list := range l.pending {
		kept := lo.Reject(list, func(inv Invitation, _ int) bool {
			return inv.PartyID == partyID
		})
		if dropped := len(list) - len(kept); dropped > 0 {
			removed += dropped
			l.setLocked(invitee, kept)
		}
	}
	l.resizeLocked(-removed)
	return removed
}

// SweepExpired removes expired invitations for every invitee and returns how many were
// reclaimed.
func (l *Ledger) SweepExpired() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for invitee := range l.pending {
		removed += l.pruneLocked(invitee, now)
	}

	if removed > 0 {
		metrics.InvitationsSwept.Add(float64(removed))
		l.log.Debug("expired invitations swept", zap.Int("removed", removed))
	}
	return removed
}

// Len returns the number of stored invitations, including expired ones not yet swept.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Now returns the ledger clock reading.
func (l *Ledger) Now() time.Time {
	return l.now()
}

func (l *Ledger) findLive(invitee party.PlayerID, match func(Invitation) bool) (Invitation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	return lo.Find(l.pending[invitee], func(inv Invitation) bool {
		return !inv.IsExpired(now) && match(inv)
	})
}

func (l *Ledger) pruneLocked(invitee party.PlayerID, now time.Time) int {
	list := l.pending[invitee]
	kept := lo.Reject(list, func(inv Invitation, _ int) bool {
		return inv.IsExpired(now)
	})
	removed := len(list) - len(kept)
	if removed > 0 {
		l.setLocked(invitee, kept)
		l.resizeLocked(-removed)
	}
	return removed
}

func (l *Ledger) setLocked(invitee party.PlayerID, list []Invitation) {
	if len(list) == 0 {
		delete(l.pending, invitee)
		return
	}
	l.pending[invitee] = list
}

func (l *Ledger) resizeLocked(delta int) {
	l.size += delta
	metrics.InvitationsPending.Set(float64(l.size))
}
