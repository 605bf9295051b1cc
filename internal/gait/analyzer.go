package gait

import (
	"math"

	"github.com/tetratrack/gaitd/internal/config"
	"github.com/tetratrack/gaitd/internal/imu"
)

// AnalyzerConfig holds the tunable parameters for a GaitAnalyzer.
type AnalyzerConfig struct {
	ConfirmationThreshold int     // consecutive matching candidates before the visible gait changes
	SpeedWindow           int     // rolling GPS speed average length
	MotionWindow          int     // motion ring buffer / FFT window (samples)
	MinMotionSamples      int     // buffer fill before bounce metrics are published
	SampleRateHz          float64 // motion provider cadence
	TicksPerAnalysis      int     // motion samples between feature/HMM ticks

	Frame FrameConfig
	HMM   HMMConfig
}

// AnalyzerConfigFromTuning builds an AnalyzerConfig from a loaded
// TuningConfig. Use this in production code where the TuningConfig is
// already loaded.
func AnalyzerConfigFromTuning(cfg *config.TuningConfig) AnalyzerConfig {
	sampleRate := cfg.GetSampleRateHz()
	ticks := int(math.Round(sampleRate / cfg.GetAnalysisRateHz()))
	if ticks < 1 {
		ticks = 1
	}
	return AnalyzerConfig{
		ConfirmationThreshold: cfg.GetConfirmationThreshold(),
		SpeedWindow:           cfg.GetSpeedWindow(),
		MotionWindow:          cfg.GetMotionWindow(),
		MinMotionSamples:      cfg.GetMinMotionSamples(),
		SampleRateHz:          sampleRate,
		TicksPerAnalysis:      ticks,
		Frame:                 FrameConfigFromTuning(cfg),
		HMM:                   HMMConfigFromTuning(cfg),
	}
}

// DefaultAnalyzerConfig returns the built-in defaults.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfigFromTuning(config.EmptyTuningConfig())
}

// GaitChange is one committed transition of the visible gait.
type GaitChange struct {
	From Gait `json:"from"`
	To   Gait `json:"to"`
}

// GaitAnalyzer maintains per-ride gait classification state. It ingests
// location and motion samples from a single logical stream, blends GPS and
// motion evidence through the gait HMM, and commits visible gait changes
// only after a run of confirming observations.
//
// Not safe for concurrent use: one instance per sample stream, no internal
// locking, no blocking calls.
type GaitAnalyzer struct {
	cfg AnalyzerConfig

	analyzing bool

	currentGait   Gait
	lastCandidate Gait
	confirmCount  int

	frame     *FrameTransformer
	hmm       *GaitHMM
	extractor *featureExtractor

	// Horse-frame motion ring buffers, all sharing head/count.
	vertical   []float64
	lateral    []float64
	yawRate    []float64
	head       int
	count      int
	sinceTick  int
	lastVector FeatureVector

	// Rolling GPS speed.
	speeds    []float64
	speedHead int
	speedN    int
	distanceM float64

	bounceAmplitude float64
	bounceFrequency float64

	lead           CanterLead
	leadConfidence float64
	rhythmQuality  float64

	// OnGaitChange, when set, fires synchronously exactly once per
	// committed gait change.
	OnGaitChange func(change GaitChange)
}

// NewGaitAnalyzer creates an idle analyzer.
func NewGaitAnalyzer(cfg AnalyzerConfig) *GaitAnalyzer {
	a := &GaitAnalyzer{
		cfg:           cfg,
		frame:         NewFrameTransformer(cfg.Frame),
		hmm:           NewGaitHMM(cfg.HMM),
		extractor:     newFeatureExtractor(cfg.MotionWindow, cfg.SampleRateHz),
		vertical:      make([]float64, cfg.MotionWindow),
		lateral:       make([]float64, cfg.MotionWindow),
		yawRate:       make([]float64, cfg.MotionWindow),
		speeds:        make([]float64, cfg.SpeedWindow),
		currentGait:   GaitStationary,
		lastCandidate: GaitStationary,
		lead:          LeadUnknown,
	}
	return a
}

// Frame returns the analyzer's frame transformer. Calibration on it
// persists across StartAnalyzing/StopAnalyzing cycles.
func (a *GaitAnalyzer) Frame() *FrameTransformer {
	return a.frame
}

// Analyzing reports whether the analyzer is consuming samples.
func (a *GaitAnalyzer) Analyzing() bool {
	return a.analyzing
}

// CurrentGait returns the committed, user-visible gait.
func (a *GaitAnalyzer) CurrentGait() Gait {
	return a.currentGait
}

// BounceAmplitude returns the RMS of horse-frame vertical acceleration over
// the current motion window (m/s²). Zero until the buffer has filled past
// the minimum sample count.
func (a *GaitAnalyzer) BounceAmplitude() float64 {
	return a.bounceAmplitude
}

// BounceFrequency returns the dominant vertical oscillation frequency (Hz).
func (a *GaitAnalyzer) BounceFrequency() float64 {
	return a.bounceFrequency
}

// LastFeatures returns the feature vector from the most recent analysis
// tick.
func (a *GaitAnalyzer) LastFeatures() FeatureVector {
	return a.lastVector
}

// Probabilities returns the HMM's current per-gait belief.
func (a *GaitAnalyzer) Probabilities() map[Gait]float64 {
	return a.hmm.Probabilities()
}

// HMM returns the analyzer's probabilistic model, for diagnostics.
func (a *GaitAnalyzer) HMM() *GaitHMM {
	return a.hmm
}

// SetCanterLead records an externally detected canter lead. Ignored while
// idle.
func (a *GaitAnalyzer) SetCanterLead(lead CanterLead, confidence float64) {
	if !a.analyzing {
		return
	}
	a.lead = lead
	a.leadConfidence = confidence
}

// CanterLead returns the current lead and its confidence.
func (a *GaitAnalyzer) CanterLead() (CanterLead, float64) {
	return a.lead, a.leadConfidence
}

// SetRhythmQuality records an externally computed rhythm quality scalar.
// Ignored while idle.
func (a *GaitAnalyzer) SetRhythmQuality(q float64) {
	if !a.analyzing {
		return
	}
	a.rhythmQuality = q
}

// RhythmQuality returns the current rhythm quality scalar.
func (a *GaitAnalyzer) RhythmQuality() float64 {
	return a.rhythmQuality
}

// DistanceM returns the latest cumulative distance reported by the
// location stream.
func (a *GaitAnalyzer) DistanceM() float64 {
	return a.distanceM
}

// StartAnalyzing begins consuming samples. A second call without an
// intervening StopAnalyzing is a no-op: resetting mid-session would
// silently discard confirmation state while samples are in flight.
func (a *GaitAnalyzer) StartAnalyzing() {
	if a.analyzing {
		return
	}
	a.clearDerivedState()
	a.analyzing = true
}

// StopAnalyzing stops consuming samples. Idempotent; frame calibration is
// left intact so a resumed ride does not need recalibration.
func (a *GaitAnalyzer) StopAnalyzing() {
	a.analyzing = false
}

// Reset fully clears the analyzer: stops analysis, returns the gait to
// stationary, and drops all derived metrics and calibration.
func (a *GaitAnalyzer) Reset() {
	a.analyzing = false
	a.clearDerivedState()
	a.frame.Reset()
}

func (a *GaitAnalyzer) clearDerivedState() {
	a.currentGait = GaitStationary
	a.lastCandidate = GaitStationary
	a.confirmCount = 0
	a.head = 0
	a.count = 0
	a.sinceTick = 0
	a.speedHead = 0
	a.speedN = 0
	a.distanceM = 0
	a.bounceAmplitude = 0
	a.bounceFrequency = 0
	a.lastVector = FeatureVector{}
	a.lead = LeadUnknown
	a.leadConfidence = 0
	a.rhythmQuality = 0
	a.hmm.Reset()
}

// ProcessLocation ingests one GPS sample. A no-op while idle. While
// analyzing it feeds the rolling speed average, whose value maps to a
// candidate gait through the canonical speed bands.
func (a *GaitAnalyzer) ProcessLocation(loc imu.LocationSample) {
	if !a.analyzing {
		return
	}

	a.speeds[a.speedHead] = loc.SpeedMps
	a.speedHead = (a.speedHead + 1) % len(a.speeds)
	if a.speedN < len(a.speeds) {
		a.speedN++
	}
	if loc.DistanceM > a.distanceM {
		a.distanceM = loc.DistanceM
	}

	a.observeCandidate(GaitFromSpeed(a.SpeedAverage()))
}

// SpeedAverage returns the rolling GPS speed average (m/s).
func (a *GaitAnalyzer) SpeedAverage() float64 {
	if a.speedN == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < a.speedN; i++ {
		sum += a.speeds[i]
	}
	return sum / float64(a.speedN)
}

// ProcessMotion ingests one motion sample. A no-op while idle. While
// analyzing the sample is transformed into the horse frame, pushed into the
// ring buffer, and every analysis tick the window is reduced to a feature
// vector and fed through the HMM.
func (a *GaitAnalyzer) ProcessMotion(sample imu.MotionSample) {
	if !a.analyzing {
		return
	}

	accel, rot := a.frame.Transform(sample)

	a.vertical[a.head] = accel.Vertical
	a.lateral[a.head] = accel.Lateral
	a.yawRate[a.head] = rot.Yaw
	a.head = (a.head + 1) % len(a.vertical)
	if a.count < len(a.vertical) {
		a.count++
	}

	if a.count >= a.cfg.MinMotionSamples {
		a.bounceAmplitude = rms(a.orderedWindow(a.vertical))
	}

	a.sinceTick++
	if a.sinceTick < a.cfg.TicksPerAnalysis {
		return
	}
	a.sinceTick = 0

	// Spectral features need the full window; until then the GPS path
	// carries classification alone.
	if a.count < len(a.vertical) {
		return
	}

	fv := a.extractor.Extract(
		a.orderedWindow(a.vertical),
		a.orderedWindow(a.lateral),
		a.orderedWindow(a.yawRate),
		a.SpeedAverage(),
	)
	a.bounceFrequency = fv.StrideFrequencyHz
	a.observeFeatures(fv)
}

// InjectFeatures feeds a synthetic feature vector directly into the
// HMM/confirmation path, bypassing sensor ingestion. A no-op while idle.
// Used by deterministic tests and model diagnostics.
func (a *GaitAnalyzer) InjectFeatures(fv FeatureVector) {
	if !a.analyzing {
		return
	}
	a.observeFeatures(fv)
}

// observeFeatures runs one HMM tick and derives the candidate gait: the
// model's best gait when its belief is confident, otherwise the GPS band
// for the feature vector's speed.
func (a *GaitAnalyzer) observeFeatures(fv FeatureVector) {
	a.lastVector = fv
	best := a.hmm.Update(fv)

	candidate := best
	if !a.hmm.Confident() {
		candidate = GaitFromSpeed(fv.SpeedMps)
	}
	a.observeCandidate(candidate)
}

// observeCandidate applies confirmation hysteresis: a candidate matching
// the previous one increments the run counter, a differing candidate starts
// a new run at 1. Only a run reaching the confirmation threshold commits a
// visible gait change, so a single outlier can never flip the state.
func (a *GaitAnalyzer) observeCandidate(candidate Gait) {
	if candidate == a.lastCandidate {
		a.confirmCount++
	} else {
		a.lastCandidate = candidate
		a.confirmCount = 1
	}

	if a.confirmCount < a.cfg.ConfirmationThreshold || candidate == a.currentGait {
		return
	}

	change := GaitChange{From: a.currentGait, To: candidate}
	a.currentGait = candidate
	if a.OnGaitChange != nil {
		a.OnGaitChange(change)
	}
}

// orderedWindow copies the ring contents into chronological order.
func (a *GaitAnalyzer) orderedWindow(ring []float64) []float64 {
	out := make([]float64, a.count)
	if a.count < len(ring) {
		copy(out, ring[:a.count])
		return out
	}
	n := copy(out, ring[a.head:])
	copy(out[n:], ring[:a.head])
	return out
}
