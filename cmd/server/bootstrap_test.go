package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/charlesng35/partyd/internal/app"
	iauth "github.com/charlesng35/partyd/internal/auth"
	"github.com/charlesng35/partyd/internal/party"
	"github.com/charlesng35/partyd/internal/realtime"
)

const testSecret = "bootstrap-test-secret-0123456789abcdef"

func writeConfig(t *testing.T, dir string) {
	t.Helper()
	content := "auth:\n  jwt:\n    secret: " + testSecret + "\n    issuer: partyd-test\n" +
		"audit:\n  database:\n    driver: sqlite\n    path: " + filepath.Join(dir, "audit.sqlite") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))
}

func TestRunIssuesPlayerToken(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir)

	var out bytes.Buffer
	err := run(context.Background(), []string{"-config", dir, "-issue-token", "Alice", "-player-id", "p-alice"}, &out)
	require.NoError(t, err)

	cfg, err := app.LoadConfig("", dir)
	require.NoError(t, err)
	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	claims, err := jwtSvc.ValidatePlayerToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	require.Equal(t, "p-alice", claims.PlayerID)
	require.Equal(t, "Alice", claims.Name)
}

func TestRunIssueTokenRequiresConfiguredSecret(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"-config", t.TempDir(), "-issue-token", "Alice"}, &out)
	require.ErrorContains(t, err, "auth.jwt.secret")
	require.Empty(t, out.String())
}

func TestRunRejectsInvalidPlayerName(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir)

	err := run(context.Background(), []string{"-config", dir, "-issue-token", "not a name"}, &bytes.Buffer{})
	require.ErrorContains(t, err, "invalid player name")
}

func TestRunMissingConfigPath(t *testing.T) {
	err := run(context.Background(), []string{"-config", filepath.Join(t.TempDir(), "nope")}, &bytes.Buffer{})
	require.ErrorContains(t, err, "does not exist")
}

func TestBootstrapRuntimeTracksPresence(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir)
	cfg, err := app.LoadConfig("", dir)
	require.NoError(t, err)

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, stack.Shutdown(context.Background())) })

	server := httptest.NewServer(stack.Router)
	t.Cleanup(server.Close)

	dial := func(id, name, stream string) *websocket.Conn {
		token, err := stack.JWT.GeneratePlayerToken(iauth.PlayerTokenInput{PlayerID: id, Name: name})
		require.NoError(t, err)
		url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/" + stream + "?token=" + token
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		return conn
	}

	watcher := dial("p-bob", "Bob", realtime.StreamPresence)
	t.Cleanup(func() { _ = watcher.Close() })
	require.Eventually(t, func() bool { return stack.Presence.IsOnline("p-bob") }, time.Second, 10*time.Millisecond)

	alice := dial("p-alice", "Alice", realtime.StreamParty)
	require.Eventually(t, func() bool { return stack.Presence.IsOnline("p-alice") }, time.Second, 10*time.Millisecond)

	require.NoError(t, watcher.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Event string        `json:"event"`
		Data  presenceEvent `json:"data"`
	}
	// The watcher sees its own online event first.
	for msg.Data.PlayerID != "p-alice" {
		_, raw, err := watcher.ReadMessage()
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &msg))
	}
	require.Equal(t, realtime.EventOnline, msg.Event)

	id, ok := stack.Presence.ResolveOnline("alice")
	require.True(t, ok)
	require.Equal(t, party.PlayerID("p-alice"), id)

	require.NoError(t, alice.Close())
	require.Eventually(t, func() bool { return !stack.Presence.IsOnline("p-alice") }, 2*time.Second, 10*time.Millisecond)

	name, ok := stack.Presence.DisplayNameOf("p-alice")
	require.True(t, ok)
	require.Equal(t, "Alice", name)
}

func TestBootstrapRuntimeServesHealthAndMetrics(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir)
	cfg, err := app.LoadConfig("", dir)
	require.NoError(t, err)

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, stack.Shutdown(context.Background())) })

	for _, path := range []string{"/health", cfg.Monitoring.Prometheus.Endpoint} {
		w := httptest.NewRecorder()
		stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code, path)
	}

	w := httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Contains(t, w.Body.String(), `"component":"maintenance"`)
	require.Contains(t, w.Body.String(), `"component":"database"`)
}
