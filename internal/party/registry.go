package party

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	apperrors "github.com/charlesng35/partyd/pkg/errors"
	"github.com/charlesng35/partyd/pkg/logger"
	"github.com/charlesng35/partyd/pkg/metrics"
)

// Registry owns every live party and the player to party index. All mutations run under
// one lock, so the single-membership invariant is never observably broken.
type Registry struct {
	mu       sync.RWMutex
	parties  map[ID]*state
	byPlayer map[PlayerID]ID
	idGen    func() string
	now      func() time.Time
	log      *zap.Logger
}

// Option customises the Registry.
type Option func(*Registry)

// WithClock overrides the clock used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator overrides party id allocation, primarily for tests.
func WithIDGenerator(gen func() string) Option {
	return func(r *Registry) {
		if gen != nil {
			r.idGen = gen
		}
	}
}

// NewRegistry constructs an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		parties:  make(map[ID]*state),
		byPlayer: make(map[PlayerID]ID),
		idGen:    uuid.NewString,
		now:      time.Now,
		log:      logger.WithModule("party"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Update runs fn with exclusive access to the registry. Every mutation made through tx is
// observed by other callers as one atomic step. fn must check its preconditions before
// mutating: a returned error does not roll back mutations already applied.
func (r *Registry) Update(fn func(tx *Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &Tx{r: r}
	err := fn(tx)
	tx.r = nil

	metrics.PartiesActive.Set(float64(len(r.parties)))
	metrics.PartyMembers.Set(float64(len(r.byPlayer)))
	return err
}

// Create registers a new party owned by owner.
func (r *Registry) Create(owner PlayerID) (Party, error) {
	var created Party
	err := r.Update(func(tx *Tx) error {
		var err error
		created, err = tx.Create(owner)
		return err
	})
	return created, err
}

// AddMember indexes player into the party.
func (r *Registry) AddMember(id ID, player PlayerID) error {
	return r.Update(func(tx *Tx) error {
		return tx.AddMember(id, player)
	})
}

// RemoveMember removes a non-owner member from the party.
func (r *Registry) RemoveMember(id ID, player PlayerID) error {
	return r.Update(func(tx *Tx) error {
		return tx.RemoveMember(id, player)
	})
}

// TransferOwnership hands ownership to an existing member.
func (r *Registry) TransferOwnership(id ID, newOwner PlayerID) error {
	return r.Update(func(tx *Tx) error {
		return tx.TransferOwnership(id, newOwner)
	})
}

// Disband removes the party and every member's index entry. It is a no-op for a party
// that is no longer registered.
func (r *Registry) Disband(id ID) []PlayerID {
	var former []PlayerID
	_ = r.Update(func(tx *Tx) error {
		former = tx.Disband(id)
		return nil
	})
	return former
}

// Get returns a snapshot of the party.
func (r *Registry) Get(id ID) (Party, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.parties[id]
	if !ok {
		return Party{}, false
	}
	return st.snapshot(), true
}

// GetByPlayer returns a snapshot of the party the player belongs to.
func (r *Registry) GetByPlayer(player PlayerID) (Party, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.byPlayerLocked(player)
}

// List returns snapshots of all registered parties.
func (r *Registry) List() []Party {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.MapToSlice(r.parties, func(_ ID, st *state) Party {
		return st.snapshot()
	})
}

// Count returns the number of registered parties.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.parties)
}

func (r *Registry) byPlayerLocked(player PlayerID) (Party, bool) {
	id, ok := r.byPlayer[player]
	if !ok {
		return Party{}, false
	}
	st, ok := r.parties[id]
	assert(ok, "player %s indexed to unregistered party %s", player, id)
	return st.snapshot(), true
}

// Tx exposes registry operations while the registry lock is held. It is only valid
// inside the Update callback that produced it.
type Tx struct {
	r *Registry
}

// Get returns a snapshot of the party.
func (tx *Tx) Get(id ID) (Party, bool) {
	st, ok := tx.r.parties[id]
	if !ok {
		return Party{}, false
	}
	return st.snapshot(), true
}

// GetByPlayer returns a snapshot of the party the player belongs to.
func (tx *Tx) GetByPlayer(player PlayerID) (Party, bool) {
	return tx.r.byPlayerLocked(player)
}

// Create registers a new party with owner as its only member.
func (tx *Tx) Create(owner PlayerID) (Party, error) {
	r := tx.r
	if _, exists := r.byPlayer[owner]; exists {
		return Party{}, apperrors.ErrAlreadyInParty
	}

	st := &state{
		id:        ID(r.idGen()),
		owner:     owner,
		members:   []PlayerID{owner},
		createdAt: r.now().UTC(),
	}
	assert(r.parties[st.id] == nil, "party id %s allocated twice", st.id)

	r.parties[st.id] = st
	r.byPlayer[owner] = st.id
	r.checkInvariants(st)

	r.log.Debug("party created", logger.Party(string(st.id)), logger.Player(string(owner)))
	return st.snapshot(), nil
}

// AddMember indexes player into the party.
func (tx *Tx) AddMember(id ID, player PlayerID) error {
	r := tx.r
	st, ok := r.parties[id]
	if !ok {
		return apperrors.ErrPartyNotFound
	}
	if _, exists := r.byPlayer[player]; exists {
		return apperrors.ErrAlreadyInParty
	}

	st.members = append(st.members, player)
	r.byPlayer[player] = id
	r.checkInvariants(st)
	return nil
}

// RemoveMember removes player from the party. The owner can never be removed; ownership
// has to be transferred or the party disbanded first.
func (tx *Tx) RemoveMember(id ID, player PlayerID) error {
	r := tx.r
	st, ok := r.parties[id]
	if !ok {
		return apperrors.ErrPartyNotFound
	}
	if !st.hasMember(player) {
		return apperrors.ErrNotAMember
	}
	if st.owner == player {
		return apperrors.ErrCannotRemoveOwner
	}

	st.members = lo.Without(st.members, player)
	delete(r.byPlayer, player)

	if len(st.members) == 0 {
		delete(r.parties, id)
		return nil
	}
	r.checkInvariants(st)
	return nil
}

// TransferOwnership hands ownership to an existing member without changing membership.
func (tx *Tx) TransferOwnership(id ID, newOwner PlayerID) error {
	r := tx.r
	st, ok := r.parties[id]
	if !ok {
		return apperrors.ErrPartyNotFound
	}
	if !st.hasMember(newOwner) {
		return apperrors.ErrNotAMember
	}

	st.owner = newOwner
	r.checkInvariants(st)
	return nil
}

// Disband deregisters the party and clears every member's index entry, returning the
// former members in join order. Disbanding an unknown party returns nil.
func (tx *Tx) Disband(id ID) []PlayerID {
	r := tx.r
	st, ok := r.parties[id]
	if !ok {
		return nil
	}

	former := st.members
	for _, member := range former {
		if r.byPlayer[member] == id {
			delete(r.byPlayer, member)
		}
	}
	st.members = nil
	delete(r.parties, id)

	r.log.Debug("party disbanded", logger.Party(string(id)), zap.Int("members", len(former)))
	return former
}

func (r *Registry) checkInvariants(st *state) {
	assert(len(st.members) > 0, "party %s registered without members", st.id)
	assert(st.hasMember(st.owner), "party %s owner %s is not a member", st.id, st.owner)
	for _, member := range st.members {
		assert(r.byPlayer[member] == st.id, "party %s member %s indexed to %q", st.id, member, r.byPlayer[member])
	}
}

// assert panics on internal invariant violations. They are programming defects, never
// user facing outcomes.
func assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("party: invariant violated: "+format, args...))
	}
}
