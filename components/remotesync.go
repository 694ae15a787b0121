package components

import (
	"time"

	"github.com/yohamta/donburi"
)

// RemoteSyncData stores reconciliation state for one remote entity between
// server snapshots. Snapshot intake writes only the Target*, Vel*, and
// LastSnapshotAt fields; the reconciler owns everything else along with the
// entity's rendered Position. That split is what lets snapshots race the
// frame loop without tearing.
type RemoteSyncData struct {
	HasTarget bool // false until the first snapshot arrives

	TargetX, TargetY, TargetZ float64
	TargetYaw                 float64
	HasTargetYaw              bool

	VelX, VelY, VelZ float64
	HasVel           bool
	ServerVel        bool // velocity came from the server, not derived locally

	LastSnapshotAt time.Time

	// Previous rendered sample, for deriving a velocity when the server
	// does not supply one.
	PrevX, PrevY, PrevZ float64
	PrevAt              time.Time
	HasPrev             bool
}

var RemoteSync = donburi.NewComponentType[RemoteSyncData]()
