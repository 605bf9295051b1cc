package imu

import (
	"math"
	"testing"
)

const tol = 1e-9

func vecsClose(a, b Vec3, eps float64) bool {
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps && math.Abs(a.Z-b.Z) < eps
}

func TestRotateIdentity(t *testing.T) {
	v := Vec3{1.5, -2.5, 9.81}
	got := Identity().Rotate(v)
	if !vecsClose(got, v, tol) {
		t.Errorf("identity rotation changed vector: %+v -> %+v", v, got)
	}
}

func TestRotate90AboutZ(t *testing.T) {
	q := FromAxisAngle(Vec3{Z: 1}, math.Pi/2)
	got := q.Rotate(Vec3{X: 1})
	want := Vec3{Y: 1}
	if !vecsClose(got, want, 1e-12) {
		t.Errorf("90° about Z: got %+v, want %+v", got, want)
	}
}

func TestConjInvertsRotation(t *testing.T) {
	q := FromAxisAngle(Vec3{X: 0.3, Y: -0.7, Z: 0.2}, 1.234)
	v := Vec3{0.4, -1.1, 2.6}
	roundTrip := q.Conj().Rotate(q.Rotate(v))
	if !vecsClose(roundTrip, v, 1e-12) {
		t.Errorf("conj round trip: got %+v, want %+v", roundTrip, v)
	}
}

func TestMulComposesRotations(t *testing.T) {
	// Two quarter turns about Z equal one half turn.
	quarter := FromAxisAngle(Vec3{Z: 1}, math.Pi/2)
	half := quarter.Mul(quarter)
	got := half.Rotate(Vec3{X: 1})
	want := Vec3{X: -1}
	if !vecsClose(got, want, 1e-12) {
		t.Errorf("composed rotation: got %+v, want %+v", got, want)
	}
}

func TestNormalizeDegenerate(t *testing.T) {
	q := Quat{}.Normalize()
	if q != Identity() {
		t.Errorf("degenerate quaternion should normalise to identity, got %+v", q)
	}
}

func TestRotationBetween(t *testing.T) {
	a := Vec3{X: 1}
	b := Vec3{Y: 1}
	q, ok := RotationBetween(a, b)
	if !ok {
		t.Fatal("RotationBetween returned ok=false for orthogonal vectors")
	}
	got := q.Rotate(a)
	if !vecsClose(got, b, 1e-12) {
		t.Errorf("RotationBetween rotation: got %+v, want %+v", got, b)
	}
}

func TestRotationBetweenParallel(t *testing.T) {
	q, ok := RotationBetween(Vec3{Z: -1}, Vec3{Z: -2})
	if !ok {
		t.Fatal("parallel vectors should be ok (identity correction)")
	}
	if q != Identity() {
		t.Errorf("parallel vectors: want identity, got %+v", q)
	}
}

func TestRotationBetweenDegenerate(t *testing.T) {
	if _, ok := RotationBetween(Vec3{}, Vec3{Z: 1}); ok {
		t.Error("zero vector should not produce a rotation")
	}
	// Antiparallel has no unique minimal axis.
	if _, ok := RotationBetween(Vec3{Z: 1}, Vec3{Z: -1}); ok {
		t.Error("antiparallel vectors should not produce a rotation")
	}
}

func TestAngleTo(t *testing.T) {
	angle, ok := Vec3{X: 1}.AngleTo(Vec3{Y: 1})
	if !ok {
		t.Fatal("AngleTo returned ok=false")
	}
	if math.Abs(angle-math.Pi/2) > tol {
		t.Errorf("angle = %v, want %v", angle, math.Pi/2)
	}

	var zero Vec3
	if _, ok := zero.AngleTo(Vec3{X: 1}); ok {
		t.Error("AngleTo with zero vector should be ok=false")
	}
}
