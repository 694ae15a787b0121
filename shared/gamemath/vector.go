// Package gamemath contains the vector and angle helpers shared by the
// client simulation, the reconciler, and the server's plausibility checks.
package gamemath

import "math"

// Vec3 is a point or displacement in continuous world coordinates.
// Y is up; movement happens on the XZ plane.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// LengthSq returns the squared 3D length.
func (v Vec3) LengthSq() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Length returns the 3D length.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.LengthSq())
}

// DistSq returns the squared 3D distance between a and b.
func DistSq(a, b Vec3) float64 {
	return b.Sub(a).LengthSq()
}

// DistXZ returns the horizontal distance between a and b, ignoring Y.
func DistXZ(a, b Vec3) float64 {
	dx := b.X - a.X
	dz := b.Z - a.Z
	return math.Hypot(dx, dz)
}

// NormalizeXZ scales the horizontal component of v to unit length, leaving
// Y untouched. A zero horizontal vector is returned unchanged, so combined
// key input can never exceed single-direction speed after scaling.
func NormalizeXZ(v Vec3) Vec3 {
	l := math.Hypot(v.X, v.Z)
	if l == 0 {
		return v
	}
	return Vec3{v.X / l, v.Y, v.Z / l}
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NormalizeAngle wraps an angle in radians to [-pi, pi].
func NormalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// RotateYawToward moves current toward target by fraction of the
// shortest-path angular difference. fraction 1 lands exactly on target.
func RotateYawToward(current, target, fraction float64) float64 {
	diff := NormalizeAngle(target - current)
	return NormalizeAngle(current + diff*fraction)
}

// YawFromDirection derives a facing angle from a horizontal movement
// vector, matching the atan2(moveX, moveZ) convention of the wire format.
func YawFromDirection(dx, dz float64) float64 {
	return math.Atan2(dx, dz)
}
