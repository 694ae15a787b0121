package messages

import "github.com/leap-fish/necs/esync"

// PlayerMove is the client-to-server position report, rate-limited by the
// outbound throttle. It is immutable once constructed and sent at most once.
// RotationY is the yaw in radians; HasRotation distinguishes "no rotation
// supplied" from a legitimate zero yaw.
type PlayerMove struct {
	X, Y, Z     float64
	RotationY   float64
	HasRotation bool
	Timestamp   int64 // client clock, Unix ms
	IsAutoMove  bool  // movement produced by auto-move rather than direct input
}

// Vector3 is a plain position or Euler rotation triple on the wire.
type Vector3 struct {
	X, Y, Z float64
}

// PlayerMoved is the server-to-client snapshot for one remote entity.
// Rotation is a full Euler triple but only Y (yaw) drives reconciliation.
// Velocity is the server's estimate and may be absent (HasVelocity false),
// in which case the client derives one locally.
type PlayerMoved struct {
	PlayerID    esync.NetworkId
	Position    Vector3
	Rotation    Vector3
	HasRotation bool
	Velocity    Vector3
	HasVelocity bool
}

// PlayerJoined announces a new remote entity and its spawn transform.
type PlayerJoined struct {
	PlayerID   esync.NetworkId
	PlayerName string
	Position   Vector3
	RotationY  float64
}

// PlayerLeft announces that a remote entity is gone and its state must be
// dropped. Snapshots for this id arriving afterwards are stale.
type PlayerLeft struct {
	PlayerID esync.NetworkId
}
