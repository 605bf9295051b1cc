package gait

import "testing"

func TestGaitFromSpeedBands(t *testing.T) {
	cases := []struct {
		speed float64
		want  Gait
	}{
		{0.0, GaitStationary},
		{0.49, GaitStationary},
		{0.5, GaitWalk},
		{1.5, GaitWalk},
		{1.69, GaitWalk},
		{1.7, GaitTrot},
		{3.49, GaitTrot},
		{3.5, GaitCanter}, // boundary resolves to canter
		{5.5, GaitCanter}, // upper canter boundary is inclusive
		{5.51, GaitGallop},
		{12.0, GaitGallop},
	}
	for _, tc := range cases {
		if got := GaitFromSpeed(tc.speed); got != tc.want {
			t.Errorf("GaitFromSpeed(%v) = %v, want %v", tc.speed, got, tc.want)
		}
	}
}

func TestGaitFromSpeedNegative(t *testing.T) {
	// Bad GPS fixes report negative speeds; treat as stationary.
	if got := GaitFromSpeed(-1.0); got != GaitStationary {
		t.Errorf("GaitFromSpeed(-1) = %v, want stationary", got)
	}
}

func TestGaitIndexOrder(t *testing.T) {
	for i, g := range Gaits {
		if g.Index() != i {
			t.Errorf("%v.Index() = %d, want %d", g, g.Index(), i)
		}
	}
	if Gait("pace").Index() != -1 {
		t.Error("unknown gait should index to -1")
	}
}

func TestSpeedRangesCoverContiguously(t *testing.T) {
	for i := 1; i < len(Gaits); i++ {
		prev := SpeedRangeFor(Gaits[i-1])
		cur := SpeedRangeFor(Gaits[i])
		if prev.MaxMps != cur.MinMps {
			t.Errorf("gap between %v and %v: %v != %v", Gaits[i-1], Gaits[i], prev.MaxMps, cur.MinMps)
		}
	}
}
