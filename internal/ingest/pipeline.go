// Package ingest receives motion and location samples from the network and
// drives a single gait analysis stream with an attached ride recorder.
package ingest

import (
	"errors"
	"log"
	"math"
	"sync"
	"time"

	"github.com/tetratrack/gaitd/internal/config"
	"github.com/tetratrack/gaitd/internal/db"
	"github.com/tetratrack/gaitd/internal/gait"
	"github.com/tetratrack/gaitd/internal/imu"
	"github.com/tetratrack/gaitd/internal/session"
	"github.com/tetratrack/gaitd/internal/timeutil"
)

var (
	ErrSessionActive   = errors.New("a session is already active")
	ErrNoActiveSession = errors.New("no active session")
)

// Pipeline owns the analyzer and the current ride recorder. Samples from
// any source (UDP, pcap replay, FIT import) funnel through HandleMotion
// and HandleLocation; sessions are started and stopped via the API.
type Pipeline struct {
	mu       sync.Mutex
	cfg      *config.TuningConfig
	analyzer *gait.GaitAnalyzer
	recorder *session.Recorder
	database *db.DB
	clock    timeutil.Clock
}

// NewPipeline builds an idle pipeline. database may be nil, in which case
// finished summaries are logged and discarded.
func NewPipeline(cfg *config.TuningConfig, database *db.DB, clock timeutil.Clock) *Pipeline {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	p := &Pipeline{
		cfg:      cfg,
		database: database,
		clock:    clock,
	}
	p.analyzer = p.newAnalyzer()
	return p
}

func (p *Pipeline) newAnalyzer() *gait.GaitAnalyzer {
	a := gait.NewGaitAnalyzer(gait.AnalyzerConfigFromTuning(p.cfg))
	a.OnGaitChange = func(change gait.GaitChange) {
		log.Printf("gait change: %s -> %s", change.From, change.To)
		if p.recorder != nil {
			p.recorder.RecordGaitChange(p.clock.Now(), change)
		}
	}
	a.Frame().OnRecalibrate = func(rec gait.Recalibration) {
		log.Printf("frame recalibration #%d: drift %.1f deg", rec.Count, rec.DriftAngleRad*180/math.Pi)
		if p.recorder != nil {
			p.recorder.RecordRecalibration(p.clock.Now(), rec)
		}
	}
	return a
}

// Analyzer exposes the underlying analyzer for read-only state queries.
func (p *Pipeline) Analyzer() *gait.GaitAnalyzer {
	return p.analyzer
}

// Config returns the active tuning configuration.
func (p *Pipeline) Config() *config.TuningConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// Reconfigure merges partial tuning updates. The merged configuration
// takes effect for analysis on the next session start; an active session
// keeps its parameters until it ends.
func (p *Pipeline) Reconfigure(partial *config.TuningConfig) (*config.TuningConfig, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	merged := p.cfg.Merge(partial)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	p.cfg = merged
	return merged, nil
}

// Active reports whether a ride session is in progress.
func (p *Pipeline) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recorder != nil
}

// StartSession begins a new ride. The analyzer is rebuilt with the current
// tuning so parameter changes land at a session boundary, but mount
// calibration carries over.
func (p *Pipeline) StartSession() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.recorder != nil {
		return "", ErrSessionActive
	}

	prev := p.analyzer.Frame()
	p.analyzer = p.newAnalyzer()
	p.analyzer.Frame().AdoptCalibration(prev)

	p.recorder = session.NewRecorder(p.clock.Now())
	p.analyzer.StartAnalyzing()
	log.Printf("session %s started", p.recorder.SessionID())
	return p.recorder.SessionID(), nil
}

// StopSession ends the active ride, persists its summary, and returns it.
func (p *Pipeline) StopSession() (*session.Summary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.recorder == nil {
		return nil, ErrNoActiveSession
	}

	p.analyzer.StopAnalyzing()
	summary := p.recorder.Finish(p.clock.Now())
	p.recorder = nil

	log.Printf("session %s finished: %.0fm, %d transitions, %.1fs gallop",
		summary.SessionID, summary.DistanceM, len(summary.Transitions), summary.GallopSeconds)

	if p.database != nil {
		if err := p.database.SaveSummary(&summary); err != nil {
			return &summary, err
		}
	}
	return &summary, nil
}

// Calibrate captures the current device orientation as the mount frame.
func (p *Pipeline) Calibrate(orientation imu.Quat) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.analyzer.Frame().Calibrate(orientation)
	log.Printf("mount frame calibrated")
}

// HandleMotion feeds one motion sample to the analyzer.
func (p *Pipeline) HandleMotion(sample imu.MotionSample) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.analyzer.ProcessMotion(sample)
}

// HandleLocation feeds one GPS sample to the analyzer and the recorder.
func (p *Pipeline) HandleLocation(loc imu.LocationSample) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.analyzer.ProcessLocation(loc)
	if p.recorder != nil {
		p.recorder.RecordLocation(loc)
	}
}

// State is a point-in-time snapshot of the analysis stream for the API.
type State struct {
	Analyzing       bool                  `json:"analyzing"`
	SessionID       string                `json:"session_id,omitempty"`
	Gait            gait.Gait             `json:"gait"`
	Probabilities   map[gait.Gait]float64 `json:"probabilities"`
	Features        gait.FeatureVector    `json:"features"`
	SpeedMps        float64               `json:"speed_mps"`
	DistanceM       float64               `json:"distance_m"`
	BounceAmplitude float64               `json:"bounce_amplitude"`
	BounceFrequency float64               `json:"bounce_frequency_hz"`
	Calibrated      bool                  `json:"calibrated"`
	Recalibrations  int                   `json:"recalibrations"`
	CapturedAt      time.Time             `json:"captured_at"`
}

// Snapshot captures the current stream state.
func (p *Pipeline) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := State{
		Analyzing:       p.analyzer.Analyzing(),
		Gait:            p.analyzer.CurrentGait(),
		Probabilities:   p.analyzer.Probabilities(),
		Features:        p.analyzer.LastFeatures(),
		SpeedMps:        p.analyzer.SpeedAverage(),
		DistanceM:       p.analyzer.DistanceM(),
		BounceAmplitude: p.analyzer.BounceAmplitude(),
		BounceFrequency: p.analyzer.BounceFrequency(),
		Calibrated:      p.analyzer.Frame().Calibrated(),
		Recalibrations:  p.analyzer.Frame().Recalibrations(),
		CapturedAt:      p.clock.Now(),
	}
	if p.recorder != nil {
		s.SessionID = p.recorder.SessionID()
	}
	return s
}
