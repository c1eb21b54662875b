package realtime

// Named realtime streams.
const (
	StreamParty    = "party"
	StreamPresence = "presence"
)

// Events published on StreamPresence.
const (
	EventOnline  = "online"
	EventOffline = "offline"
)
