package gait

import (
	"math"
	"testing"
	"time"

	"github.com/tetratrack/gaitd/internal/imu"
)

func newTestAnalyzer() *GaitAnalyzer {
	return NewGaitAnalyzer(DefaultAnalyzerConfig())
}

func locSample(speed, distance float64) imu.LocationSample {
	return imu.LocationSample{Timestamp: time.Now(), SpeedMps: speed, DistanceM: distance}
}

func TestWalkCommitsAfterConfirmation(t *testing.T) {
	a := newTestAnalyzer()
	var changes []GaitChange
	a.OnGaitChange = func(c GaitChange) { changes = append(changes, c) }

	a.StartAnalyzing()
	for i := 0; i < 10; i++ {
		a.ProcessLocation(locSample(1.5, 1.5*float64(i+1)))
	}

	if got := a.CurrentGait(); got != GaitWalk {
		t.Errorf("gait after 10 walk-speed samples = %v, want walk", got)
	}
	if len(changes) != 1 {
		t.Fatalf("gait changes = %d, want exactly 1", len(changes))
	}
	if changes[0].From != GaitStationary || changes[0].To != GaitWalk {
		t.Errorf("change = %v→%v, want stationary→walk", changes[0].From, changes[0].To)
	}
}

func TestAlternatingSpeedsNeverCommit(t *testing.T) {
	a := newTestAnalyzer()
	a.StartAnalyzing()

	// Walk-range and trot-range speeds alternating so the averaged
	// candidate never repeats three times in a row.
	speeds := []float64{0.6, 3.4, 0.6, 3.4, 0.6, 3.4, 0.6, 3.4, 0.6, 3.4}
	for i, s := range speeds {
		a.ProcessLocation(locSample(s, float64(i)))
	}

	if got := a.CurrentGait(); got != GaitStationary {
		t.Errorf("gait after alternating speeds = %v, want stationary (never committed)", got)
	}
}

func TestSingleOutlierNeverFlipsCommittedGait(t *testing.T) {
	a := newTestAnalyzer()
	var changes []GaitChange
	a.OnGaitChange = func(c GaitChange) { changes = append(changes, c) }

	a.StartAnalyzing()
	for i := 0; i < 10; i++ {
		a.InjectFeatures(canterFeatures())
	}
	if a.CurrentGait() != GaitCanter {
		t.Fatalf("setup: gait = %v, want canter", a.CurrentGait())
	}
	committed := len(changes)

	// One gallop-looking tick, then canter resumes.
	a.InjectFeatures(gallopFeatures())
	if got := a.CurrentGait(); got != GaitCanter {
		t.Errorf("gait after single outlier = %v, want canter", got)
	}
	for i := 0; i < 10; i++ {
		a.InjectFeatures(canterFeatures())
	}
	if got := a.CurrentGait(); got != GaitCanter {
		t.Errorf("gait after outlier recovery = %v, want canter", got)
	}
	if len(changes) != committed {
		t.Errorf("outlier caused %d extra gait changes", len(changes)-committed)
	}
}

func TestStartAnalyzingIdempotent(t *testing.T) {
	a := newTestAnalyzer()
	a.StartAnalyzing()
	a.ProcessLocation(locSample(1.5, 1))
	a.ProcessLocation(locSample(1.5, 2))

	// A second start must not reset the two confirmations accumulated so
	// far: the very next sample completes the run.
	a.StartAnalyzing()
	a.ProcessLocation(locSample(1.5, 3))

	if got := a.CurrentGait(); got != GaitWalk {
		t.Errorf("gait = %v, want walk (confirmation state preserved across redundant start)", got)
	}
}

func TestIdleCallsAreNoOps(t *testing.T) {
	a := newTestAnalyzer()

	a.StopAnalyzing() // stop while already idle
	a.ProcessLocation(locSample(5.0, 100))
	a.ProcessMotion(imu.MotionSample{Attitude: imu.Identity(), Gravity: imu.Vec3{Z: -9.81}})
	a.InjectFeatures(gallopFeatures())
	a.SetCanterLead(LeadLeft, 0.9)
	a.SetRhythmQuality(0.8)

	if a.Analyzing() {
		t.Error("analyzer should still be idle")
	}
	if got := a.CurrentGait(); got != GaitStationary {
		t.Errorf("idle gait = %v, want stationary", got)
	}
	if a.SpeedAverage() != 0 || a.DistanceM() != 0 {
		t.Error("idle location processing mutated state")
	}
	if lead, _ := a.CanterLead(); lead != LeadUnknown {
		t.Errorf("idle lead = %v, want unknown", lead)
	}
	if a.RhythmQuality() != 0 {
		t.Error("idle rhythm quality mutated")
	}
}

func TestStopPreservesCalibration(t *testing.T) {
	a := newTestAnalyzer()
	a.Frame().Calibrate(imu.Identity())
	a.StartAnalyzing()
	a.StopAnalyzing()
	if !a.Frame().Calibrated() {
		t.Error("StopAnalyzing must not clear frame calibration")
	}
}

func TestResetClearsEverything(t *testing.T) {
	a := newTestAnalyzer()
	a.Frame().Calibrate(imu.Identity())
	a.StartAnalyzing()
	for i := 0; i < 5; i++ {
		a.InjectFeatures(trotFeatures())
	}
	a.SetCanterLead(LeadRight, 0.7)
	a.SetRhythmQuality(0.6)

	a.Reset()

	if a.Analyzing() {
		t.Error("Reset should stop analysis")
	}
	if got := a.CurrentGait(); got != GaitStationary {
		t.Errorf("gait after reset = %v, want stationary", got)
	}
	if a.BounceAmplitude() != 0 || a.BounceFrequency() != 0 {
		t.Error("Reset should clear bounce metrics")
	}
	if lead, conf := a.CanterLead(); lead != LeadUnknown || conf != 0 {
		t.Error("Reset should clear canter lead")
	}
	if a.Frame().Calibrated() {
		t.Error("Reset should clear frame calibration")
	}
}

func TestMotionPipelineBounceMetrics(t *testing.T) {
	a := newTestAnalyzer()
	a.StartAnalyzing()

	// 2.34 Hz vertical oscillation, an exact FFT bin at 50 Hz / 128
	// samples so the window holds whole cycles.
	const (
		freq = 6.0 * 50.0 / 128.0
		amp  = 2.0
		rate = 50.0
	)
	for i := 0; i < 200; i++ {
		ts := float64(i) / rate
		a.ProcessMotion(imu.MotionSample{
			Timestamp:    time.Now(),
			Acceleration: imu.Vec3{X: 0.3 * math.Sin(2*math.Pi*freq*ts), Z: amp * math.Sin(2*math.Pi*freq*ts)},
			RotationRate: imu.Vec3{Z: 0.1},
			Gravity:      imu.Vec3{Z: -9.81},
			Attitude:     imu.Identity(),
		})
	}

	wantRMS := amp / math.Sqrt2
	if got := a.BounceAmplitude(); math.Abs(got-wantRMS) > 0.2 {
		t.Errorf("bounce amplitude = %v, want ~%v", got, wantRMS)
	}
	if got := a.BounceFrequency(); math.Abs(got-freq) > 0.4 {
		t.Errorf("bounce frequency = %v, want ~%v", got, freq)
	}
	fv := a.LastFeatures()
	if fv.StrideFrequencyHz == 0 {
		t.Error("feature extraction never ran")
	}
	if fv.YawRateRMS < 0.05 {
		t.Errorf("yaw rate RMS = %v, want ~0.1", fv.YawRateRMS)
	}
}

// TestAdversarialCanterSessionGallopBound drives a synthetic 60-second ride
// (walk→trot→canter with energetic boundary-zone sub-segments→trot→walk) at
// the 4 Hz analysis cadence and checks the committed-gait gallop bound:
// total gallop time under 2% of the session and no contiguous gallop run of
// a second or more.
func TestAdversarialCanterSessionGallopBound(t *testing.T) {
	a := newTestAnalyzer()
	a.StartAnalyzing()

	const tick = 0.25 // seconds per tick at 4 Hz

	var ticks []FeatureVector
	appendN := func(n int, fn func(i int) FeatureVector) {
		for i := 0; i < n; i++ {
			ticks = append(ticks, fn(i))
		}
	}

	appendN(40, func(int) FeatureVector { return walkFeatures() }) // 0-10s
	appendN(40, func(int) FeatureVector { return trotFeatures() }) // 10-20s
	strides := []float64{2.8, 3.0, 3.1}
	appendN(80, func(i int) FeatureVector { // 20-40s: canter, energetic every other 2s block
		if (i/8)%2 == 1 {
			return energeticCanterFeatures(strides[i%len(strides)])
		}
		return canterFeatures()
	})
	appendN(40, func(int) FeatureVector { return trotFeatures() }) // 40-50s
	appendN(40, func(int) FeatureVector { return walkFeatures() }) // 50-60s

	var (
		gallopTicks int
		runTicks    int
		maxRunTicks int
		sawCanter   bool
	)
	for _, fv := range ticks {
		a.InjectFeatures(fv)
		switch a.CurrentGait() {
		case GaitGallop:
			gallopTicks++
			runTicks++
			if runTicks > maxRunTicks {
				maxRunTicks = runTicks
			}
		case GaitCanter:
			sawCanter = true
			runTicks = 0
		default:
			runTicks = 0
		}
	}

	if !sawCanter {
		t.Fatal("session never reached canter; test input is not exercising the boundary")
	}

	sessionSecs := float64(len(ticks)) * tick
	gallopSecs := float64(gallopTicks) * tick
	if gallopSecs >= 0.02*sessionSecs {
		t.Errorf("gallop time = %.2fs (%.1f%% of session), want < 2%%",
			gallopSecs, 100*gallopSecs/sessionSecs)
	}
	if maxRun := float64(maxRunTicks) * tick; maxRun >= 1.0 {
		t.Errorf("longest gallop run = %.2fs, want < 1s", maxRun)
	}
}

func TestLeadAndRhythmSideChannel(t *testing.T) {
	a := newTestAnalyzer()
	a.StartAnalyzing()
	a.SetCanterLead(LeadLeft, 0.85)
	a.SetRhythmQuality(0.72)

	lead, conf := a.CanterLead()
	if lead != LeadLeft || conf != 0.85 {
		t.Errorf("lead = %v/%v, want left/0.85", lead, conf)
	}
	if got := a.RhythmQuality(); got != 0.72 {
		t.Errorf("rhythm = %v, want 0.72", got)
	}
}
