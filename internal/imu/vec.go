// Package imu provides the vector and quaternion primitives used by the
// gait engine's sensor-fusion path, plus the raw sample types produced by
// motion and location providers.
//
// Quaternions use the (w, x, y, z) component order with Hamilton product
// semantics. Unit quaternions are assumed for rotation; Conj is the inverse.
package imu

import "math"

// Tolerances for degenerate vector/quaternion inputs. Inputs below these
// magnitudes have no well-defined direction and are rejected rather than
// normalised into noise.
const (
	// MinVecNormSquared is the minimum squared magnitude for a vector to
	// have a usable direction.
	MinVecNormSquared = 1e-12
	// MinCrossNormSquared is the minimum squared cross-product magnitude
	// for RotationBetween to produce a stable axis.
	MinCrossNormSquared = 1e-12
)

// Vec3 is a 3-component vector.
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

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Cross returns the cross product v × o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

// Norm returns the Euclidean magnitude of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalize returns the unit vector in the direction of v.
// Returns ok=false when v is too small to have a usable direction.
func (v Vec3) Normalize() (Vec3, bool) {
	n2 := v.Dot(v)
	if n2 < MinVecNormSquared {
		return Vec3{}, false
	}
	inv := 1.0 / math.Sqrt(n2)
	return v.Scale(inv), true
}

// AngleTo returns the angle in radians between v and o.
// Returns ok=false when either vector is degenerate.
func (v Vec3) AngleTo(o Vec3) (float64, bool) {
	vn, okV := v.Normalize()
	on, okO := o.Normalize()
	if !okV || !okO {
		return 0, false
	}
	d := vn.Dot(on)
	// Clamp for acos; rounding can push |d| fractionally past 1.
	if d > 1 {
		d = 1
	} else if d < -1 {
		d = -1
	}
	return math.Acos(d), true
}
