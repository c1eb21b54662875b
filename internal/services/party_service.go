package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/charlesng35/partyd/internal/auditctx"
	"github.com/charlesng35/partyd/internal/invitations"
	"github.com/charlesng35/partyd/internal/messages"
	"github.com/charlesng35/partyd/internal/party"
	apperrors "github.com/charlesng35/partyd/pkg/errors"
	"github.com/charlesng35/partyd/pkg/logger"
	"github.com/charlesng35/partyd/pkg/metrics"
)

// Notice keys emitted by the party service.
const (
	NoticeCreated         = "party.created"
	NoticeInviteSent      = "party.invite.sent"
	NoticeInviteReceived  = "party.invite.received"
	NoticeInviteDeclined  = "party.invite.declined"
	NoticeInviteDenied    = "party.invite.denied"
	NoticeInviteRevoked   = "party.invite.revoked"
	NoticeInviteWithdrawn = "party.invite.withdrawn"
	NoticeJoined          = "party.joined"
	NoticeMemberJoined    = "party.member_joined"
	NoticeLeft            = "party.left"
	NoticeMemberLeft      = "party.member_left"
	NoticeOwnerChanged    = "party.owner_changed"
	NoticeKicked          = "party.kicked"
	NoticeMemberKicked    = "party.member_kicked"
	NoticeDisbanded       = "party.disbanded"
)

// LeaveOutcome describes what happened to the party when a player left it.
type LeaveOutcome struct {
	PartyID   party.ID       `json:"party_id"`
	Disbanded bool           `json:"disbanded"`
	NewOwner  party.PlayerID `json:"new_owner,omitempty"`
}

// RosterMember is one line of a party roster.
type RosterMember struct {
	ID     party.PlayerID `json:"id"`
	Name   string         `json:"name"`
	Online bool           `json:"online"`
	Owner  bool           `json:"owner"`
}

// Roster is a read-only view of a party for display.
type Roster struct {
	PartyID   party.ID       `json:"party_id"`
	Owner     party.PlayerID `json:"owner"`
	CreatedAt time.Time      `json:"created_at"`
	Members   []RosterMember `json:"members"`
}

// PartyService runs the party protocols (create, invite, accept, deny, revoke, leave,
// kick, transfer, disband) over the registry and the invitation ledger.
//
// Each protocol executes inside one registry transaction, so multi-step changes such as
// leave-with-successor are atomic to concurrent callers. Ledger calls happen while the
// registry lock is held; the ledger never calls back into the registry. Notifications and
// audit records are emitted only after the transaction has committed.
type PartyService struct {
	parties  *party.Registry
	invites  *invitations.Ledger
	notifier Notifier
	presence PresenceDirectory
	audit    AuditRecorder
	log      *zap.Logger
}

// PartyServiceOption customises the PartyService.
type PartyServiceOption func(*PartyService)

// WithNotifier sets where notices are delivered.
func WithNotifier(n Notifier) PartyServiceOption {
	return func(s *PartyService) {
		s.notifier = n
	}
}

// WithPresence sets the directory used for name resolution and rosters.
func WithPresence(p PresenceDirectory) PartyServiceOption {
	return func(s *PartyService) {
		s.presence = p
	}
}

// WithAuditRecorder sets the audit sink.
func WithAuditRecorder(a AuditRecorder) PartyServiceOption {
	return func(s *PartyService) {
		s.audit = a
	}
}

// NewPartyService constructs a PartyService.
func NewPartyService(parties *party.Registry, invites *invitations.Ledger, opts ...PartyServiceOption) (*PartyService, error) {
	if parties == nil {
		return nil, errors.New("party service: registry is required")
	}
	if invites == nil {
		return nil, errors.New("party service: invitation ledger is required")
	}

	svc := &PartyService{
		parties: parties,
		invites: invites,
		log:     logger.WithModule("party-service"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create starts a new party owned by owner.
func (s *PartyService) Create(ctx context.Context, owner party.PlayerID) (party.Party, error) {
	op := s.begin("create", owner, "")

	var created party.Party
	err := s.parties.Update(func(tx *party.Tx) error {
		var err error
		created, err = tx.Create(owner)
		if err != nil {
			return err
		}
		op.partyID = created.ID
		op.notify(owner, NoticeCreated, "")
		return nil
	})

	s.finish(ctx, op, err)
	return created, err
}

// Invite issues an invitation from inviter to invitee. A solo inviter gets a new party
// first; all preconditions are checked before that party is created.
func (s *PartyService) Invite(ctx context.Context, inviter, invitee party.PlayerID) (invitations.Invitation, error) {
	op := s.begin("invite", inviter, invitee)

	var issued invitations.Invitation
	err := s.parties.Update(func(tx *party.Tx) error {
		if inviter == invitee {
			return apperrors.ErrSelfInvite
		}
		current, grouped := tx.GetByPlayer(inviter)
		if grouped && current.Owner != inviter {
			return apperrors.ErrNotOwner
		}
		if _, busy := tx.GetByPlayer(invitee); busy {
			return apperrors.ErrInviteeAlreadyGrouped
		}
		if !grouped {
			created, err := tx.Create(inviter)
			if err != nil {
				return err
			}
			current = created
			op.notify(inviter, NoticeCreated, "")
		}

		var err error
		issued, err = s.invites.Issue(inviter, invitee, current.ID)
		if err != nil {
			return err
		}
		op.partyID = current.ID
		op.notify(inviter, NoticeInviteSent, invitee)
		op.notify(invitee, NoticeInviteReceived, inviter)
		return nil
	})

	s.finish(ctx, op, err)
	return issued, err
}

// Accept joins invitee to the party of the live invitation sent by inviter. An empty
// inviter accepts the oldest live invitation.
func (s *PartyService) Accept(ctx context.Context, invitee, inviter party.PlayerID) (party.Party, error) {
	op := s.begin("accept", invitee, inviter)

	var joined party.Party
	err := s.parties.Update(func(tx *party.Tx) error {
		if _, grouped := tx.GetByPlayer(invitee); grouped {
			return apperrors.ErrAlreadyInParty
		}
		inv, err := s.liveInvitation(tx, invitee, inviter)
		if err != nil {
			return err
		}
		if err := tx.AddMember(inv.PartyID, invitee); err != nil {
			return err
		}
		s.invites.Consume(invitee, inv)

		joined, _ = tx.Get(inv.PartyID)
		op.partyID = joined.ID
		op.notify(invitee, NoticeJoined, joined.Owner)
		op.notifyAll(joined.Others(invitee), NoticeMemberJoined, invitee)
		return nil
	})

	s.finish(ctx, op, err)
	return joined, err
}

// Deny declines the live invitation sent by inviter, or the oldest one when inviter is empty.
func (s *PartyService) Deny(ctx context.Context, invitee, inviter party.PlayerID) (invitations.Invitation, error) {
	op := s.begin("deny", invitee, inviter)

	var denied invitations.Invitation
	err := s.parties.Update(func(tx *party.Tx) error {
		inv, err := s.liveInvitation(tx, invitee, inviter)
		if err != nil {
			return err
		}
		s.invites.Consume(invitee, inv)

		denied = inv
		op.partyID = inv.PartyID
		op.notify(invitee, NoticeInviteDeclined, inv.Inviter)
		op.notify(inv.Inviter, NoticeInviteDenied, invitee)
		return nil
	})

	s.finish(ctx, op, err)
	return denied, err
}

// Revoke withdraws the live invitation the owner's party sent to invitee.
func (s *PartyService) Revoke(ctx context.Context, owner, invitee party.PlayerID) error {
	op := s.begin("revoke", owner, invitee)

	err := s.parties.Update(func(tx *party.Tx) error {
		current, err := requireOwner(tx, owner)
		if err != nil {
			return err
		}
		inv, ok := s.invites.FindLiveForParty(invitee, current.ID)
		if !ok {
			return apperrors.ErrNoSuchInvite
		}
		s.invites.Consume(invitee, inv)

		op.partyID = current.ID
		op.notify(invitee, NoticeInviteRevoked, owner)
		op.notify(owner, NoticeInviteWithdrawn, invitee)
		return nil
	})

	s.finish(ctx, op, err)
	return err
}

// Leave removes player from their party. An owner leaving alone disbands the party; an
// owner leaving others behind hands ownership to the earliest joined remaining member.
func (s *PartyService) Leave(ctx context.Context, player party.PlayerID) (LeaveOutcome, error) {
	op := s.begin("leave", player, "")

	var outcome LeaveOutcome
	err := s.parties.Update(func(tx *party.Tx) error {
		current, ok := tx.GetByPlayer(player)
		if !ok {
			return apperrors.ErrPartyNotFound
		}
		outcome.PartyID = current.ID
		op.partyID = current.ID
		rest := current.Others(player)

		switch {
		case current.Owner == player && len(rest) == 0:
			tx.Disband(current.ID)
			s.invites.DropParty(current.ID)
			outcome.Disbanded = true
		case current.Owner == player:
			successor, _ := current.Successor()
			if err := tx.TransferOwnership(current.ID, successor); err != nil {
				return err
			}
			if err := tx.RemoveMember(current.ID, player); err != nil {
				return err
			}
			outcome.NewOwner = successor
			op.notifyAll(rest, NoticeMemberLeft, player)
			op.notifyAll(rest, NoticeOwnerChanged, successor)
		default:
			if err := tx.RemoveMember(current.ID, player); err != nil {
				return err
			}
			op.notifyAll(rest, NoticeMemberLeft, player)
		}
		op.notify(player, NoticeLeft, "")
		return nil
	})

	s.finish(ctx, op, err)
	return outcome, err
}

// Kick removes target from the owner's party and returns the roster as it stood right
// after the removal.
func (s *PartyService) Kick(ctx context.Context, owner, target party.PlayerID) (Roster, error) {
	op := s.begin("kick", owner, target)

	var after party.Party
	err := s.parties.Update(func(tx *party.Tx) error {
		current, err := requireOwner(tx, owner)
		if err != nil {
			return err
		}
		if err := tx.RemoveMember(current.ID, target); err != nil {
			return err
		}
		after, _ = tx.Get(current.ID)

		op.partyID = current.ID
		op.notify(target, NoticeKicked, owner)
		op.notifyAll(current.Others(target), NoticeMemberKicked, target)
		return nil
	})

	s.finish(ctx, op, err)
	if err != nil {
		return Roster{}, err
	}
	return s.rosterOf(after), nil
}

// Transfer hands ownership of the owner's party to another member and returns the
// resulting roster.
func (s *PartyService) Transfer(ctx context.Context, owner, newOwner party.PlayerID) (Roster, error) {
	op := s.begin("transfer", owner, newOwner)

	var after party.Party
	err := s.parties.Update(func(tx *party.Tx) error {
		current, err := requireOwner(tx, owner)
		if err != nil {
			return err
		}
		op.partyID = current.ID
		if newOwner == owner {
			after = current
			return nil
		}
		if err := tx.TransferOwnership(current.ID, newOwner); err != nil {
			return err
		}
		after, _ = tx.Get(current.ID)
		op.notifyAll(current.Members, NoticeOwnerChanged, newOwner)
		return nil
	})

	s.finish(ctx, op, err)
	if err != nil {
		return Roster{}, err
	}
	return s.rosterOf(after), nil
}

// Disband dissolves the owner's party and drops its pending invitations. It returns the
// former members.
func (s *PartyService) Disband(ctx context.Context, owner party.PlayerID) ([]party.PlayerID, error) {
	op := s.begin("disband", owner, "")

	var former []party.PlayerID
	err := s.parties.Update(func(tx *party.Tx) error {
		current, err := requireOwner(tx, owner)
		if err != nil {
			return err
		}
		former = tx.Disband(current.ID)
		s.invites.DropParty(current.ID)

		op.partyID = current.ID
		op.notifyAll(former, NoticeDisbanded, owner)
		return nil
	})

	s.finish(ctx, op, err)
	return former, err
}

// Roster returns the party of player with display names and presence.
func (s *PartyService) Roster(_ context.Context, player party.PlayerID) (Roster, error) {
	current, ok := s.parties.GetByPlayer(player)
	if !ok {
		return Roster{}, apperrors.ErrPartyNotFound
	}
	return s.rosterOf(current), nil
}

func (s *PartyService) rosterOf(current party.Party) Roster {
	return Roster{
		PartyID:   current.ID,
		Owner:     current.Owner,
		CreatedAt: current.CreatedAt,
		Members: lo.Map(current.Members, func(member party.PlayerID, _ int) RosterMember {
			return RosterMember{
				ID:     member,
				Name:   s.displayName(member),
				Online: s.presence != nil && s.presence.IsOnline(member),
				Owner:  member == current.Owner,
			}
		}),
	}
}

// PendingInvitations returns the live invitations addressed to player.
func (s *PartyService) PendingInvitations(player party.PlayerID) []invitations.Invitation {
	return s.invites.Live(player)
}

// InviteByName resolves an online player by display name and invites them.
func (s *PartyService) InviteByName(ctx context.Context, inviter party.PlayerID, name string) (invitations.Invitation, error) {
	invitee, ok := s.resolveOnline(name)
	if !ok {
		return invitations.Invitation{}, apperrors.ErrPlayerOffline
	}
	return s.Invite(ctx, inviter, invitee)
}

// AcceptFrom accepts the invitation sent by the named player. When the name does not
// resolve to an online player, the oldest live invitation is accepted instead.
func (s *PartyService) AcceptFrom(ctx context.Context, invitee party.PlayerID, inviterName string) (party.Party, error) {
	inviter, _ := s.resolveOnline(inviterName)
	return s.Accept(ctx, invitee, inviter)
}

// DenyFrom declines the invitation sent by the named player, with the same fallback as AcceptFrom.
func (s *PartyService) DenyFrom(ctx context.Context, invitee party.PlayerID, inviterName string) (invitations.Invitation, error) {
	inviter, _ := s.resolveOnline(inviterName)
	return s.Deny(ctx, invitee, inviter)
}

// KickByName removes the named member. Offline members are matched by their last known
// display name.
func (s *PartyService) KickByName(ctx context.Context, owner party.PlayerID, name string) (Roster, error) {
	target, ok := s.resolveMember(owner, name)
	if !ok {
		return Roster{}, apperrors.ErrPlayerOffline
	}
	return s.Kick(ctx, owner, target)
}

// TransferByName hands ownership to the named member, resolved like KickByName.
func (s *PartyService) TransferByName(ctx context.Context, owner party.PlayerID, name string) (Roster, error) {
	target, ok := s.resolveMember(owner, name)
	if !ok {
		return Roster{}, apperrors.ErrPlayerOffline
	}
	return s.Transfer(ctx, owner, target)
}

// liveInvitation finds the invitation to act on, discarding ones whose party no longer
// exists. An empty inviter matches any inviter.
func (s *PartyService) liveInvitation(tx *party.Tx, invitee, inviter party.PlayerID) (invitations.Invitation, error) {
	for {
		var (
			inv invitations.Invitation
			ok  bool
		)
		if inviter == "" {
			inv, ok = s.invites.FindAnyLive(invitee)
		} else {
			inv, ok = s.invites.FindLiveByInviter(invitee, inviter)
		}
		if !ok {
			return invitations.Invitation{}, apperrors.ErrNoSuchInvite
		}
		if _, exists := tx.Get(inv.PartyID); exists {
			return inv, nil
		}
		s.invites.Consume(invitee, inv)
	}
}

func requireOwner(tx *party.Tx, actor party.PlayerID) (party.Party, error) {
	current, ok := tx.GetByPlayer(actor)
	if !ok || current.Owner != actor {
		return party.Party{}, apperrors.ErrNotOwner
	}
	return current, nil
}

func (s *PartyService) resolveOnline(name string) (party.PlayerID, bool) {
	name = strings.TrimSpace(name)
	if name == "" || s.presence == nil {
		return "", false
	}
	return s.presence.ResolveOnline(name)
}

func (s *PartyService) resolveMember(owner party.PlayerID, name string) (party.PlayerID, bool) {
	if id, ok := s.resolveOnline(name); ok {
		return id, true
	}
	current, ok := s.parties.GetByPlayer(owner)
	if !ok || s.presence == nil {
		return "", false
	}
	return lo.Find(current.Members, func(member party.PlayerID) bool {
		known, ok := s.presence.DisplayNameOf(member)
		return ok && strings.EqualFold(known, strings.TrimSpace(name))
	})
}

func (s *PartyService) displayName(player party.PlayerID) string {
	if s.presence != nil {
		if name, ok := s.presence.DisplayNameOf(player); ok && name != "" {
			return name
		}
	}
	return string(player)
}

type delivery struct {
	to      party.PlayerID
	key     string
	subject party.PlayerID
}

// operation accumulates what a protocol call did so it can be reported after commit.
type operation struct {
	name    string
	actor   party.PlayerID
	target  party.PlayerID
	partyID party.ID
	outbox  []delivery
}

func (s *PartyService) begin(name string, actor, target party.PlayerID) *operation {
	return &operation{name: name, actor: actor, target: target}
}

func (op *operation) notify(to party.PlayerID, key string, subject party.PlayerID) {
	op.outbox = append(op.outbox, delivery{to: to, key: key, subject: subject})
}

func (op *operation) notifyAll(to []party.PlayerID, key string, subject party.PlayerID) {
	for _, player := range to {
		op.notify(player, key, subject)
	}
}

func (s *PartyService) finish(ctx context.Context, op *operation, err error) {
	result := "success"
	if err != nil {
		result = apperrors.FromError(err).Code
	}
	metrics.PartyOperations.WithLabelValues(op.name, result).Inc()

	if s.audit != nil {
		entry := AuditEntry{
			Action:  "party." + op.name,
			Actor:   string(op.actor),
			Target:  string(op.target),
			PartyID: string(op.partyID),
			Result:  result,
		}
		if actor, ok := auditctx.FromContext(ctx); ok {
			entry.Metadata = actor.Metadata()
		}
		s.audit.Record(entry)
	}

	if err != nil {
		s.log.Debug("party operation rejected",
			zap.String("operation", op.name),
			logger.Player(string(op.actor)),
			zap.String("result", result),
		)
		return
	}

	for _, d := range op.outbox {
		s.deliver(ctx, d)
	}
}

func (s *PartyService) deliver(ctx context.Context, d delivery) {
	if s.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("notifier panic", logger.Player(string(d.to)), zap.String("key", d.key), zap.Any("panic", r))
		}
	}()

	notice := messages.New(d.key)
	if d.subject != "" {
		notice.Args = []any{s.displayName(d.subject)}
	}
	if err := s.notifier.Notify(ctx, d.to, notice); err != nil {
		s.log.Warn("notification failed", logger.Player(string(d.to)), zap.String("key", d.key), zap.Error(err))
	}
}
