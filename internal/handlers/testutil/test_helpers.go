package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/partyd/internal/api"
	iauth "github.com/charlesng35/partyd/internal/auth"
	sharedtestutil "github.com/charlesng35/partyd/internal/database/testutil"
	"github.com/charlesng35/partyd/internal/invitations"
	"github.com/charlesng35/partyd/internal/messages"
	"github.com/charlesng35/partyd/internal/party"
	"github.com/charlesng35/partyd/internal/presence"
	"github.com/charlesng35/partyd/internal/realtime"
	"github.com/charlesng35/partyd/internal/services"
	"github.com/charlesng35/partyd/pkg/response"
)

// UserAgent is sent with every request issued through Env.
const UserAgent = "partyd-tests/1.0"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	JWT      *iauth.JWTService
	Registry *party.Registry
	Ledger   *invitations.Ledger
	Presence *presence.Directory
	Hub      *realtime.Hub
	Parties  *services.PartyService
	Audit    *services.AuditService
}

// NewEnv provisions a fresh handler test environment with the audit trail migrated.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:   "test-suite-super-secret-key-32-bytes!!",
		Issuer:   "test-suite",
		TokenTTL: time.Hour,
	})
	require.NoError(t, err)

	catalog, err := messages.LoadEmbedded()
	require.NoError(t, err)

	registry := party.NewRegistry()
	ledger := invitations.NewLedger()
	directory := presence.NewDirectory()
	hub := realtime.NewHub()

	auditSvc, err := services.NewAuditService(db)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	auditSvc.Start(ctx)
	t.Cleanup(func() {
		_ = auditSvc.Close()
		cancel()
	})

	partySvc, err := services.NewPartyService(registry, ledger,
		services.WithNotifier(realtime.NewNotifier(hub, catalog, messages.BaseLocale)),
		services.WithPresence(directory),
		services.WithAuditRecorder(auditSvc),
	)
	require.NoError(t, err)

	router, err := api.NewRouter(api.Dependencies{
		Parties:  partySvc,
		Registry: registry,
		Ledger:   ledger,
		Hub:      hub,
		JWT:      jwtSvc,
		Audit:    auditSvc,
		DB:       db,
	})
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		JWT:      jwtSvc,
		Registry: registry,
		Ledger:   ledger,
		Presence: directory,
		Hub:      hub,
		Parties:  partySvc,
		Audit:    auditSvc,
	}
}

// Token issues a bearer token for player and marks them online under name.
func (e *Env) Token(player, name string) string {
	e.T.Helper()

	token, err := e.JWT.GeneratePlayerToken(iauth.PlayerTokenInput{PlayerID: player, Name: name})
	require.NoError(e.T, err)
	e.Presence.Connect(party.PlayerID(player), name)
	return token
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	req.Header.Set("User-Agent", UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// Expect performs the request and asserts the status code, returning the decoded envelope.
func (e *Env) Expect(status int, method, path string, body any, token string) APIResponse {
	e.T.Helper()

	w := e.Request(method, path, body, token)
	require.Equal(e.T, status, w.Code, w.Body.String())
	return DecodeResponse(e.T, w)
}
