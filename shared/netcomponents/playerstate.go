package netcomponents

import "github.com/yohamta/donburi"

// NetPlayerStateData carries the slow-changing player metadata synced through
// esync snapshots. Position and rotation deliberately do not live here; they
// flow through the explicit PlayerMove/PlayerMoved messages so the client's
// reconciler owns what is rendered.
type NetPlayerStateData struct {
	Name       string
	Level      int
	Experience int
	Health     int
	IsLocal    bool // client-side only, never set by the server
}

var NetPlayerState = donburi.NewComponentType[NetPlayerStateData]()
