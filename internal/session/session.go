// Package session accumulates the output of a gait analyzer over one ride
// and reduces it to a persistable summary: per-gait durations, the
// transition log, distance and speed aggregates, and a gallop audit used to
// watch for over-classification in the field.
package session

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/tetratrack/gaitd/internal/gait"
	"github.com/tetratrack/gaitd/internal/imu"
)

// Segment is one contiguous stretch of a single committed gait.
type Segment struct {
	Gait    gait.Gait     `json:"gait"`
	Start   time.Time     `json:"start"`
	End     time.Time     `json:"end"`
	Elapsed time.Duration `json:"elapsed"`
}

// Transition is one committed gait change.
type Transition struct {
	At   time.Time `json:"at"`
	From gait.Gait `json:"from"`
	To   gait.Gait `json:"to"`
}

// RecalibrationEvent records one automatic drift correction during a ride.
type RecalibrationEvent struct {
	At       time.Time `json:"at"`
	AngleDeg float64   `json:"angle_deg"`
	Ordinal  int       `json:"ordinal"`
}

// Summary is the persistable reduction of a finished ride.
type Summary struct {
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`

	DistanceM   float64 `json:"distance_m"`
	AvgSpeedMps float64 `json:"avg_speed_mps"`
	MaxSpeedMps float64 `json:"max_speed_mps"`

	// Per-gait time, keyed by gait name.
	GaitDurations map[gait.Gait]time.Duration `json:"gait_durations"`

	Segments       []Segment            `json:"segments"`
	Transitions    []Transition         `json:"transitions"`
	Recalibrations []RecalibrationEvent `json:"recalibrations"`

	// Gallop audit: watched because boundary-zone canter is the known
	// failure mode for spurious gallop classification.
	GallopSeconds    float64 `json:"gallop_seconds"`
	LongestGallopRun float64 `json:"longest_gallop_run_seconds"`
}

// Recorder accumulates one ride. Wire its hooks to a GaitAnalyzer's
// callbacks and feed it the same location stream; call Finish to produce
// the Summary. Like the analyzer it expects a single logical event stream.
type Recorder struct {
	sessionID string
	startedAt time.Time

	currentGait  gait.Gait
	segmentStart time.Time

	distanceM float64
	speedSum  float64
	speedN    int
	maxSpeed  float64

	durations      map[gait.Gait]time.Duration
	segments       []Segment
	transitions    []Transition
	recalibrations []RecalibrationEvent
}

// NewRecorder starts recording a ride beginning now at stationary.
func NewRecorder(start time.Time) *Recorder {
	return &Recorder{
		sessionID:    uuid.New().String(),
		startedAt:    start,
		currentGait:  gait.GaitStationary,
		segmentStart: start,
		durations:    make(map[gait.Gait]time.Duration),
	}
}

// SessionID returns the ride's unique identifier.
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// RecordGaitChange logs a committed gait change at the given time. Wire to
// GaitAnalyzer.OnGaitChange.
func (r *Recorder) RecordGaitChange(at time.Time, change gait.GaitChange) {
	r.closeSegment(at)
	r.currentGait = change.To
	r.segmentStart = at
	r.transitions = append(r.transitions, Transition{At: at, From: change.From, To: change.To})
}

// RecordLocation folds one GPS sample into the distance/speed aggregates.
func (r *Recorder) RecordLocation(loc imu.LocationSample) {
	if loc.DistanceM > r.distanceM {
		r.distanceM = loc.DistanceM
	}
	r.speedSum += loc.SpeedMps
	r.speedN++
	if loc.SpeedMps > r.maxSpeed {
		r.maxSpeed = loc.SpeedMps
	}
}

// RecordRecalibration logs an automatic drift correction. Wire to
// FrameTransformer.OnRecalibrate.
func (r *Recorder) RecordRecalibration(at time.Time, rec gait.Recalibration) {
	r.recalibrations = append(r.recalibrations, RecalibrationEvent{
		At:       at,
		AngleDeg: rec.DriftAngleRad * 180 / math.Pi,
		Ordinal:  rec.Count,
	})
}

func (r *Recorder) closeSegment(at time.Time) {
	elapsed := at.Sub(r.segmentStart)
	if elapsed < 0 {
		elapsed = 0
	}
	r.durations[r.currentGait] += elapsed
	r.segments = append(r.segments, Segment{
		Gait:    r.currentGait,
		Start:   r.segmentStart,
		End:     at,
		Elapsed: elapsed,
	})
}

// Finish closes the open segment and produces the ride summary.
func (r *Recorder) Finish(at time.Time) Summary {
	r.closeSegment(at)

	s := Summary{
		SessionID:      r.sessionID,
		StartedAt:      r.startedAt,
		EndedAt:        at,
		DistanceM:      r.distanceM,
		MaxSpeedMps:    r.maxSpeed,
		GaitDurations:  r.durations,
		Segments:       r.segments,
		Transitions:    r.transitions,
		Recalibrations: r.recalibrations,
	}
	if r.speedN > 0 {
		s.AvgSpeedMps = r.speedSum / float64(r.speedN)
	}

	var longest float64
	var total float64
	for _, seg := range s.Segments {
		if seg.Gait != gait.GaitGallop {
			continue
		}
		secs := seg.Elapsed.Seconds()
		total += secs
		if secs > longest {
			longest = secs
		}
	}
	s.GallopSeconds = total
	s.LongestGallopRun = longest

	return s
}
