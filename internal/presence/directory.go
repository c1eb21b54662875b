package presence

import (
	"strings"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/charlesng35/partyd/internal/party"
	"github.com/charlesng35/partyd/pkg/logger"
)

// Directory tracks which players hold a live connection and the display name each one
// last connected with. Disconnecting never touches party membership.
type Directory struct {
	mu       sync.RWMutex
	sessions map[party.PlayerID]int
	names    map[party.PlayerID]string
	online   map[string][]party.PlayerID
	log      *zap.Logger
}

// NewDirectory constructs an empty Directory.
func NewDirectory() *Directory {
	return &Directory{
		sessions: make(map[party.PlayerID]int),
		names:    make(map[party.PlayerID]string),
		online:   make(map[string][]party.PlayerID),
		log:      logger.WithModule("presence"),
	}
}

// Connect records one more live connection for player under name. It reports whether the
// player just came online.
func (d *Directory) Connect(player party.PlayerID, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		name = string(player)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if previous, ok := d.names[player]; ok && foldName(previous) != foldName(name) {
		d.releaseNameLocked(player, previous)
	}
	d.names[player] = name
	if key := foldName(name); !lo.Contains(d.online[key], player) {
		d.online[key] = append(d.online[key], player)
	}
	d.sessions[player]++

	cameOnline := d.sessions[player] == 1
	if cameOnline {
		d.log.Debug("player online", logger.Player(string(player)), zap.String("name", name))
	}
	return cameOnline
}

// Disconnect releases one live connection of player. It reports whether the player went
// offline. The display name stays known for rosters.
func (d *Directory) Disconnect(player party.PlayerID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	count, ok := d.sessions[player]
	if !ok {
		return false
	}
	if count > 1 {
		d.sessions[player] = count - 1
		return false
	}

	delete(d.sessions, player)
	d.releaseNameLocked(player, d.names[player])
	d.log.Debug("player offline", logger.Player(string(player)))
	return true
}

// ResolveOnline finds the online player using name, ignoring case. When several online
// players share a name the one that claimed it first wins.
func (d *Directory) ResolveOnline(name string) (party.PlayerID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	holders := d.online[foldName(name)]
	if len(holders) == 0 {
		return "", false
	}
	return holders[0], true
}

// IsOnline reports whether player holds at least one live connection.
func (d *Directory) IsOnline(player party.PlayerID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sessions[player] > 0
}

// DisplayNameOf returns the last known display name of player.
func (d *Directory) DisplayNameOf(player party.PlayerID) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	name, ok := d.names[player]
	return name, ok
}

// OnlineCount returns the number of distinct online players.
func (d *Directory) OnlineCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}

func (d *Directory) releaseNameLocked(player party.PlayerID, name string) {
	key := foldName(name)
	holders := lo.Without(d.online[key], player)
	if len(holders) == 0 {
		delete(d.online, key)
		return
	}
	d.online[key] = holders
}

func foldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
