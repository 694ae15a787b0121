package components

import "github.com/yohamta/donburi"

// InputIntentData is the per-tick input sampled before the motion step:
// directional flags relative to the camera facing, plus a jump attempt.
// CameraYaw is supplied by the camera source and resolves the movement
// basis vectors. AutoMove marks intent produced by auto-pathing rather
// than direct key input.
type InputIntentData struct {
	Forward  bool
	Backward bool
	Left     bool
	Right    bool
	Jump     bool

	CameraYaw float64
	AutoMove  bool
}

var InputIntent = donburi.NewComponentType[InputIntentData]()
