package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/partyd/internal/handlers/testutil"
	"github.com/charlesng35/partyd/internal/models"
	"github.com/charlesng35/partyd/internal/party"
	"github.com/charlesng35/partyd/internal/services"
)

type partyPayload struct {
	ID      string   `json:"id"`
	Owner   string   `json:"owner"`
	Members []string `json:"members"`
}

type invitePayload struct {
	ID        string `json:"id"`
	Inviter   string `json:"inviter"`
	Invitee   string `json:"invitee"`
	PartyID   string `json:"party_id"`
	ExpiresIn int    `json:"expires_in"`
}

func TestPartyHandler_InviteAcceptRoster(t *testing.T) {
	env := testutil.NewEnv(t)
	alice := env.Token("p-alice", "Alice")
	bob := env.Token("p-bob", "Bob")

	resp := env.Expect(http.StatusCreated, http.MethodPost, "/api/party/invites", map[string]string{"name": "bob"}, alice)
	var inv invitePayload
	testutil.DecodeInto(t, resp.Data, &inv)
	require.Equal(t, "p-alice", inv.Inviter)
	require.Equal(t, "p-bob", inv.Invitee)
	require.NotEmpty(t, inv.PartyID)
	require.InDelta(t, 60, inv.ExpiresIn, 1)

	resp = env.Expect(http.StatusOK, http.MethodGet, "/api/party/invites", nil, bob)
	var pending []invitePayload
	testutil.DecodeInto(t, resp.Data, &pending)
	require.Len(t, pending, 1)
	require.Equal(t, inv.ID, pending[0].ID)

	resp = env.Expect(http.StatusOK, http.MethodPost, "/api/party/invites/accept", map[string]string{"from": "Alice"}, bob)
	var joined partyPayload
	testutil.DecodeInto(t, resp.Data, &joined)
	require.Equal(t, inv.PartyID, joined.ID)
	require.Equal(t, []string{"p-alice", "p-bob"}, joined.Members)

	resp = env.Expect(http.StatusOK, http.MethodGet, "/api/party", nil, bob)
	var roster services.Roster
	testutil.DecodeInto(t, resp.Data, &roster)
	require.Equal(t, party.PlayerID("p-alice"), roster.Owner)
	require.Len(t, roster.Members, 2)
	require.Equal(t, "Alice", roster.Members[0].Name)
	require.True(t, roster.Members[0].Owner)
	require.True(t, roster.Members[1].Online)

	require.Empty(t, env.Ledger.Live("p-bob"))
}

func TestPartyHandler_CreateTwiceConflicts(t *testing.T) {
	env := testutil.NewEnv(t)
	alice := env.Token("p-alice", "Alice")

	env.Expect(http.StatusCreated, http.MethodPost, "/api/party", nil, alice)
	resp := env.Expect(http.StatusConflict, http.MethodPost, "/api/party", nil, alice)
	require.False(t, resp.Success)
	require.Equal(t, "party.already_in_party", resp.Error.Code)
}

func TestPartyHandler_InviteErrors(t *testing.T) {
	env := testutil.NewEnv(t)
	alice := env.Token("p-alice", "Alice")

	resp := env.Expect(http.StatusBadRequest, http.MethodPost, "/api/party/invites", map[string]string{"player_id": "p-alice"}, alice)
	require.Equal(t, "party.self_invite", resp.Error.Code)

	resp = env.Expect(http.StatusNotFound, http.MethodPost, "/api/party/invites", map[string]string{"name": "nobody"}, alice)
	require.Equal(t, "party.player_offline", resp.Error.Code)

	resp = env.Expect(http.StatusBadRequest, http.MethodPost, "/api/party/invites", map[string]string{}, alice)
	require.Equal(t, "BAD_REQUEST", resp.Error.Code)
	require.NotNil(t, resp.Error.Details)

	resp = env.Expect(http.StatusBadRequest, http.MethodPost, "/api/party/invites", map[string]string{"name": "not a name!"}, alice)
	require.Equal(t, "BAD_REQUEST", resp.Error.Code)

	w := env.Request(http.MethodPost, "/api/party/invites", nil, alice)
	require.Equal(t, http.StatusBadRequest, w.Code)

	require.Zero(t, env.Registry.Count(), "rejected invites must not create a party")
}

func TestPartyHandler_DuplicateInvite(t *testing.T) {
	env := testutil.NewEnv(t)
	alice := env.Token("p-alice", "Alice")
	env.Token("p-bob", "Bob")

	env.Expect(http.StatusCreated, http.MethodPost, "/api/party/invites", map[string]string{"player_id": "p-bob"}, alice)
	resp := env.Expect(http.StatusConflict, http.MethodPost, "/api/party/invites", map[string]string{"player_id": "p-bob"}, alice)
	require.Equal(t, "party.duplicate_invite", resp.Error.Code)
}

func TestPartyHandler_DenyAndRevoke(t *testing.T) {
	env := testutil.NewEnv(t)
	alice := env.Token("p-alice", "Alice")
	bob := env.Token("p-bob", "Bob")
	carol := env.Token("p-carol", "Carol")

	env.Expect(http.StatusCreated, http.MethodPost, "/api/party/invites", map[string]string{"player_id": "p-bob"}, alice)
	env.Expect(http.StatusCreated, http.MethodPost, "/api/party/invites", map[string]string{"player_id": "p-carol"}, alice)

	resp := env.Expect(http.StatusOK, http.MethodPost, "/api/party/invites/deny", map[string]string{"inviter_id": "p-alice"}, bob)
	var denied invitePayload
	testutil.DecodeInto(t, resp.Data, &denied)
	require.Equal(t, "p-bob", denied.Invitee)

	resp = env.Expect(http.StatusNotFound, http.MethodPost, "/api/party/invites/accept", nil, bob)
	require.Equal(t, "party.no_such_invite", resp.Error.Code)

	resp = env.Expect(http.StatusForbidden, http.MethodDelete, "/api/party/invites/p-carol", nil, bob)
	require.Equal(t, "party.not_owner", resp.Error.Code)

	env.Expect(http.StatusOK, http.MethodDelete, "/api/party/invites/p-carol", nil, alice)
	resp = env.Expect(http.StatusNotFound, http.MethodPost, "/api/party/invites/accept", map[string]string{"inviter_id": "p-alice"}, carol)
	require.Equal(t, "party.no_such_invite", resp.Error.Code)
}

func TestPartyHandler_KickTransferLeaveDisband(t *testing.T) {
	env := testutil.NewEnv(t)
	alice := env.Token("p-alice", "Alice")
	bob := env.Token("p-bob", "Bob")
	carol := env.Token("p-carol", "Carol")

	for _, invitee := range []struct{ id, token string }{{"p-bob", bob}, {"p-carol", carol}} {
		env.Expect(http.StatusCreated, http.MethodPost, "/api/party/invites", map[string]string{"player_id": invitee.id}, alice)
		env.Expect(http.StatusOK, http.MethodPost, "/api/party/invites/accept", nil, invitee.token)
	}

	resp := env.Expect(http.StatusForbidden, http.MethodPost, "/api/party/kick", map[string]string{"player_id": "p-carol"}, bob)
	require.Equal(t, "party.not_owner", resp.Error.Code)

	resp = env.Expect(http.StatusOK, http.MethodPost, "/api/party/kick", map[string]string{"name": "carol"}, alice)
	var roster services.Roster
	testutil.DecodeInto(t, resp.Data, &roster)
	require.Len(t, roster.Members, 2)

	resp = env.Expect(http.StatusOK, http.MethodPost, "/api/party/transfer", map[string]string{"player_id": "p-bob"}, alice)
	testutil.DecodeInto(t, resp.Data, &roster)
	require.Equal(t, party.PlayerID("p-bob"), roster.Owner)

	resp = env.Expect(http.StatusOK, http.MethodPost, "/api/party/leave", nil, bob)
	var outcome services.LeaveOutcome
	testutil.DecodeInto(t, resp.Data, &outcome)
	require.False(t, outcome.Disbanded)
	require.Equal(t, party.PlayerID("p-alice"), outcome.NewOwner)

	resp = env.Expect(http.StatusOK, http.MethodDelete, "/api/party", nil, alice)
	var disbanded struct {
		FormerMembers []string `json:"former_members"`
	}
	testutil.DecodeInto(t, resp.Data, &disbanded)
	require.Equal(t, []string{"p-alice"}, disbanded.FormerMembers)
	require.Zero(t, env.Registry.Count())

	resp = env.Expect(http.StatusNotFound, http.MethodGet, "/api/party", nil, alice)
	require.Equal(t, "party.not_found", resp.Error.Code)
	resp = env.Expect(http.StatusNotFound, http.MethodPost, "/api/party/leave", nil, alice)
	require.Equal(t, "party.not_found", resp.Error.Code)
}

func TestPartyHandler_RequiresAuthentication(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Expect(http.StatusUnauthorized, http.MethodGet, "/api/party", nil, "")
	require.False(t, resp.Success)

	resp = env.Expect(http.StatusUnauthorized, http.MethodGet, "/api/party", nil, "not-a-token")
	require.False(t, resp.Success)
}

func TestAuditHandler_History(t *testing.T) {
	env := testutil.NewEnv(t)
	alice := env.Token("p-alice", "Alice")
	env.Token("p-bob", "Bob")

	env.Expect(http.StatusCreated, http.MethodPost, "/api/party/invites", map[string]string{"player_id": "p-bob"}, alice)
	env.Expect(http.StatusBadRequest, http.MethodPost, "/api/party/invites", map[string]string{"player_id": "p-alice"}, alice)

	require.Eventually(t, func() bool {
		var count int64
		env.DB.Model(&models.PartyAuditLog{}).Count(&count)
		return count == 2
	}, 2*time.Second, 10*time.Millisecond)

	resp := env.Expect(http.StatusOK, http.MethodGet, "/api/party/history", nil, alice)
	var logs []models.PartyAuditLog
	testutil.DecodeInto(t, resp.Data, &logs)
	require.Len(t, logs, 2)
	require.NotNil(t, resp.Meta)
	require.Equal(t, 2, resp.Meta.Total)

	resp = env.Expect(http.StatusOK, http.MethodGet, "/api/party/history?result=success", nil, alice)
	testutil.DecodeInto(t, resp.Data, &logs)
	require.Len(t, logs, 1)
	require.Equal(t, "party.invite", logs[0].Action)
	require.Equal(t, "p-bob", logs[0].Target)
	require.Contains(t, string(logs[0].Metadata), testutil.UserAgent)

	resp = env.Expect(http.StatusOK, http.MethodGet, "/api/party/history?result=party.self_invite", nil, alice)
	testutil.DecodeInto(t, resp.Data, &logs)
	require.Len(t, logs, 1)
}
