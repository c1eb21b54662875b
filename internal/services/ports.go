//go:generate go run go.uber.org/mock/mockgen -source=ports.go -destination=../mocks/mock_ports.go -package=mocks

package services

import (
	"context"

	"github.com/charlesng35/partyd/internal/messages"
	"github.com/charlesng35/partyd/internal/party"
)

// Notifier delivers a notice to a player. Delivery is best effort: errors are logged by
// the caller and never retried.
type Notifier interface {
	Notify(ctx context.Context, player party.PlayerID, notice messages.Notice) error
}

// PresenceDirectory resolves display names to connected players and reports presence.
type PresenceDirectory interface {
	ResolveOnline(name string) (party.PlayerID, bool)
	IsOnline(player party.PlayerID) bool
	DisplayNameOf(player party.PlayerID) (string, bool)
}

// AuditRecorder receives a record of every committed or rejected lifecycle operation.
// Implementations must not block.
type AuditRecorder interface {
	Record(entry AuditEntry)
}
