package imu

import "math"

// Quat is a quaternion in (w, x, y, z) order. Rotation operations assume a
// unit quaternion; callers that accumulate products should renormalise
// periodically via Normalize.
type Quat struct {
	W, X, Y, Z float64
}

// Identity returns the identity rotation.
func Identity() Quat {
	return Quat{W: 1}
}

// Mul returns the Hamilton product q * o. Applying the result rotates by o
// first, then by q.
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
	}
}

// Conj returns the conjugate of q, which is the inverse for unit quaternions.
func (q Quat) Conj() Quat {
	return Quat{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
}

// Norm returns the magnitude of q.
func (q Quat) Norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Normalize returns q scaled to unit magnitude. A degenerate quaternion
// (norm too small to trust) yields the identity.
func (q Quat) Normalize() Quat {
	n2 := q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z
	if n2 < MinVecNormSquared {
		return Identity()
	}
	inv := 1.0 / math.Sqrt(n2)
	return Quat{W: q.W * inv, X: q.X * inv, Y: q.Y * inv, Z: q.Z * inv}
}

// Rotate applies the rotation q to v, computing q * v * q⁻¹ with v treated
// as a pure quaternion.
func (q Quat) Rotate(v Vec3) Vec3 {
	// Expanded form of q * (0,v) * conj(q); avoids two full products.
	tx := 2 * (q.Y*v.Z - q.Z*v.Y)
	ty := 2 * (q.Z*v.X - q.X*v.Z)
	tz := 2 * (q.X*v.Y - q.Y*v.X)
	return Vec3{
		X: v.X + q.W*tx + (q.Y*tz - q.Z*ty),
		Y: v.Y + q.W*ty + (q.Z*tx - q.X*tz),
		Z: v.Z + q.W*tz + (q.X*ty - q.Y*tx),
	}
}

// FromAxisAngle builds the rotation of angle radians about axis.
// A degenerate axis yields the identity.
func FromAxisAngle(axis Vec3, angle float64) Quat {
	n, ok := axis.Normalize()
	if !ok {
		return Identity()
	}
	half := angle / 2
	s := math.Sin(half)
	return Quat{W: math.Cos(half), X: n.X * s, Y: n.Y * s, Z: n.Z * s}
}

// RotationBetween returns the minimal rotation carrying unit direction a
// onto unit direction b (Rodrigues construction: axis = a × b, angle from
// the dot product). Returns ok=false when either input is degenerate or the
// vectors are near-parallel/antiparallel, where the axis is numerically
// unstable; callers should skip the correction for that cycle.
func RotationBetween(a, b Vec3) (Quat, bool) {
	an, okA := a.Normalize()
	bn, okB := b.Normalize()
	if !okA || !okB {
		return Identity(), false
	}

	cross := an.Cross(bn)
	if cross.Dot(cross) < MinCrossNormSquared {
		// Parallel: nothing to correct. Antiparallel: a 180° rotation has
		// no unique axis, so refuse rather than pick one arbitrarily.
		if an.Dot(bn) > 0 {
			return Identity(), true
		}
		return Identity(), false
	}

	d := an.Dot(bn)
	if d > 1 {
		d = 1
	} else if d < -1 {
		d = -1
	}
	return FromAxisAngle(cross, math.Acos(d)), true
}
