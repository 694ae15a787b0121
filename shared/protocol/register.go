package protocol

import (
	"github.com/caldern/emberfield-mp/shared/netcomponents"
	"github.com/leap-fish/necs/esync"
)

// Sync ID constants - ID 1 is reserved by necs for NetworkId.
const (
	SyncIDNetPlayerState uint = 10
)

// Version is the wire protocol version exchanged during the join handshake.
const Version = "0.3.0"

// RegisterComponents registers the esync-synced components for serialization.
// Both server and client must call this before any network operation.
// Player state carries no interpolation: it is discrete metadata, and
// positions never ride esync at all.
func RegisterComponents() error {
	return esync.RegisterComponent(
		SyncIDNetPlayerState,
		netcomponents.NetPlayerStateData{},
		netcomponents.NetPlayerState,
	)
}
