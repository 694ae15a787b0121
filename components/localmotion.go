package components

import "github.com/yohamta/donburi"

// LocalMotionData is the motion state owned exclusively by the local motion
// producer and mutated once per simulation tick. Its presence marks the
// local player entity.
type LocalMotionData struct {
	VerticalVel float64 // nonzero only while airborne
	Airborne    bool
}

var LocalMotion = donburi.NewComponentType[LocalMotionData]()
