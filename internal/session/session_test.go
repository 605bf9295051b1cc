package session

import (
	"math"
	"testing"
	"time"

	"github.com/tetratrack/gaitd/internal/gait"
	"github.com/tetratrack/gaitd/internal/imu"
)

func TestRecorderSegmentsAndDurations(t *testing.T) {
	start := time.Date(2026, 5, 12, 9, 0, 0, 0, time.UTC)
	r := NewRecorder(start)

	r.RecordGaitChange(start.Add(30*time.Second), gait.GaitChange{From: gait.GaitStationary, To: gait.GaitWalk})
	r.RecordGaitChange(start.Add(90*time.Second), gait.GaitChange{From: gait.GaitWalk, To: gait.GaitTrot})
	s := r.Finish(start.Add(150 * time.Second))

	if s.SessionID == "" {
		t.Error("summary missing session ID")
	}
	if got := s.GaitDurations[gait.GaitStationary]; got != 30*time.Second {
		t.Errorf("stationary duration = %v, want 30s", got)
	}
	if got := s.GaitDurations[gait.GaitWalk]; got != 60*time.Second {
		t.Errorf("walk duration = %v, want 60s", got)
	}
	if got := s.GaitDurations[gait.GaitTrot]; got != 60*time.Second {
		t.Errorf("trot duration = %v, want 60s", got)
	}
	if len(s.Segments) != 3 {
		t.Fatalf("segments = %d, want 3", len(s.Segments))
	}
	if len(s.Transitions) != 2 {
		t.Errorf("transitions = %d, want 2", len(s.Transitions))
	}
	if s.Segments[1].Gait != gait.GaitWalk || s.Segments[1].Elapsed != 60*time.Second {
		t.Errorf("middle segment = %v/%v, want walk/60s", s.Segments[1].Gait, s.Segments[1].Elapsed)
	}
}

func TestRecorderSpeedAndDistance(t *testing.T) {
	start := time.Now()
	r := NewRecorder(start)

	speeds := []float64{1.0, 2.0, 3.0}
	for i, sp := range speeds {
		r.RecordLocation(imu.LocationSample{SpeedMps: sp, DistanceM: float64(i+1) * 10})
	}
	s := r.Finish(start.Add(time.Minute))

	if math.Abs(s.AvgSpeedMps-2.0) > 1e-9 {
		t.Errorf("avg speed = %v, want 2.0", s.AvgSpeedMps)
	}
	if s.MaxSpeedMps != 3.0 {
		t.Errorf("max speed = %v, want 3.0", s.MaxSpeedMps)
	}
	if s.DistanceM != 30 {
		t.Errorf("distance = %v, want 30", s.DistanceM)
	}
}

func TestRecorderGallopAudit(t *testing.T) {
	start := time.Now()
	r := NewRecorder(start)

	// canter → gallop (0.8s) → canter → gallop (0.5s) → trot
	r.RecordGaitChange(start.Add(10*time.Second), gait.GaitChange{From: gait.GaitStationary, To: gait.GaitCanter})
	r.RecordGaitChange(start.Add(20*time.Second), gait.GaitChange{From: gait.GaitCanter, To: gait.GaitGallop})
	r.RecordGaitChange(start.Add(20*time.Second+800*time.Millisecond), gait.GaitChange{From: gait.GaitGallop, To: gait.GaitCanter})
	r.RecordGaitChange(start.Add(30*time.Second), gait.GaitChange{From: gait.GaitCanter, To: gait.GaitGallop})
	r.RecordGaitChange(start.Add(30*time.Second+500*time.Millisecond), gait.GaitChange{From: gait.GaitGallop, To: gait.GaitTrot})
	s := r.Finish(start.Add(60 * time.Second))

	if math.Abs(s.GallopSeconds-1.3) > 1e-9 {
		t.Errorf("gallop seconds = %v, want 1.3", s.GallopSeconds)
	}
	if math.Abs(s.LongestGallopRun-0.8) > 1e-9 {
		t.Errorf("longest gallop run = %v, want 0.8", s.LongestGallopRun)
	}
}

func TestRecorderRecalibrations(t *testing.T) {
	start := time.Now()
	r := NewRecorder(start)
	r.RecordRecalibration(start.Add(5*time.Second), gait.Recalibration{DriftAngleRad: math.Pi / 6, Count: 1})
	s := r.Finish(start.Add(10 * time.Second))

	if len(s.Recalibrations) != 1 {
		t.Fatalf("recalibrations = %d, want 1", len(s.Recalibrations))
	}
	if math.Abs(s.Recalibrations[0].AngleDeg-30) > 1e-9 {
		t.Errorf("angle = %v°, want 30°", s.Recalibrations[0].AngleDeg)
	}
}
