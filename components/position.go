package components

import "github.com/yohamta/donburi"

// PositionData is the rendered transform of an entity: for the local player
// it is the authoritative simulated position, for remote entities it is what
// the reconciler currently displays, never the raw network target.
type PositionData struct {
	X, Y, Z float64
}

var Position = donburi.NewComponentType[PositionData]()

// RotationData is the rendered yaw in radians.
type RotationData struct {
	Yaw float64
}

var Rotation = donburi.NewComponentType[RotationData]()
