package realtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/charlesng35/partyd/internal/messages"
	"github.com/charlesng35/partyd/internal/party"
	"github.com/charlesng35/partyd/pkg/logger"
)

// NoticePayload is the data of a party stream message.
type NoticePayload struct {
	Key  string `json:"key"`
	Text string `json:"text"`
	Args []any  `json:"args,omitempty"`
}

// Notifier renders party notices and pushes them to the player's party stream.
type Notifier struct {
	hub     *Hub
	catalog *messages.Catalog
	locale  string
	log     *zap.Logger
}

// NewNotifier constructs a Notifier rendering in locale. A nil catalog sends raw keys.
func NewNotifier(hub *Hub, catalog *messages.Catalog, locale string) *Notifier {
	if locale == "" {
		locale = messages.BaseLocale
	}
	return &Notifier{
		hub:     hub,
		catalog: catalog,
		locale:  locale,
		log:     logger.WithModule("realtime"),
	}
}

// Notify delivers notice to every party stream connection of player. Players without a
// live connection miss the notice.
func (n *Notifier) Notify(ctx context.Context, player party.PlayerID, notice messages.Notice) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text := notice.Key
	if n.catalog != nil {
		text = n.catalog.Render(n.locale, notice)
	}

	delivered := n.hub.BroadcastToUser(StreamParty, string(player), Message{
		Event: notice.Key,
		Data: NoticePayload{
			Key:  notice.Key,
			Text: text,
			Args: notice.Args,
		},
	})
	if delivered == 0 {
		n.log.Debug("notice not delivered, player offline", logger.Player(string(player)), zap.String("key", notice.Key))
	}
	return nil
}
