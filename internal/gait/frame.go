package gait

import (
	"math"

	"github.com/tetratrack/gaitd/internal/config"
	"github.com/tetratrack/gaitd/internal/imu"
)

// HorseAccel is a device acceleration remapped into the horse's reference
// frame (m/s²).
type HorseAccel struct {
	Forward  float64
	Lateral  float64
	Vertical float64
}

// HorseRotation is a device rotation rate remapped into the horse's
// reference frame (rad/s).
type HorseRotation struct {
	Pitch float64
	Roll  float64
	Yaw   float64
}

// FrameConfig holds the drift-correction parameters for a FrameTransformer.
type FrameConfig struct {
	DriftThresholdRad float64 // EMA-vs-expected gravity angle that triggers correction
	CheckInterval     int     // samples between drift checks
	InitialCooldown   int     // samples before the first auto-recalibration
	SteadyCooldown    int     // samples between subsequent auto-recalibrations
	GravityEMAAlpha   float64 // EMA smoothing for the observed gravity direction
}

// FrameConfigFromTuning builds a FrameConfig from a loaded TuningConfig.
func FrameConfigFromTuning(cfg *config.TuningConfig) FrameConfig {
	return FrameConfig{
		DriftThresholdRad: cfg.GetDriftThresholdDeg() * math.Pi / 180,
		CheckInterval:     cfg.GetDriftCheckInterval(),
		InitialCooldown:   cfg.GetDriftInitialCooldown(),
		SteadyCooldown:    cfg.GetDriftSteadyCooldown(),
		GravityEMAAlpha:   cfg.GetGravityEMAAlpha(),
	}
}

// DefaultFrameConfig returns the built-in drift-correction defaults.
func DefaultFrameConfig() FrameConfig {
	return FrameConfigFromTuning(config.EmptyTuningConfig())
}

// expectedGravity is the gravity direction in a correctly calibrated horse
// frame: straight down.
var expectedGravity = imu.Vec3{Z: -1}

// minGravityEMANorm guards the drift check against an EMA that has not
// accumulated a usable direction yet (or averaged out to near zero during
// free fall / airtime over a fence).
const minGravityEMANorm = 0.5

// Recalibration describes one automatic drift correction.
type Recalibration struct {
	DriftAngleRad float64 // angle between observed and expected gravity at correction time
	Count         int     // 1-based recalibration ordinal within this transformer's life
}

// FrameTransformer converts device-frame vectors into horse-frame vectors
// using quaternion rotation, maintaining a self-correcting calibration
// offset between the device's mounting orientation and the horse's frame.
//
// Not safe for concurrent use; call from a single sample stream.
type FrameTransformer struct {
	cfg FrameConfig

	calibration imu.Quat
	calibrated  bool

	// Drift tracking: EMA of the horse-frame gravity direction, expected to
	// stay near (0,0,-1) when calibration is good.
	gravityEMA     imu.Vec3
	emaSeeded      bool
	sinceCheck     int
	sinceRecal     int
	recalibrations int

	// OnRecalibrate, when set, fires synchronously after each automatic
	// drift correction.
	OnRecalibrate func(Recalibration)
}

// NewFrameTransformer creates a transformer with identity calibration.
func NewFrameTransformer(cfg FrameConfig) *FrameTransformer {
	return &FrameTransformer{
		cfg:         cfg,
		calibration: imu.Identity(),
	}
}

// Calibrate sets the calibration so that the horse frame aligns with the
// device's orientation at this moment: the calibration quaternion is the
// conjugate (inverse) of the current device attitude. Call while the device
// is mounted and the horse stands square.
func (ft *FrameTransformer) Calibrate(orientation imu.Quat) {
	ft.calibration = orientation.Normalize().Conj()
	ft.calibrated = true
	ft.resetDriftTracking()
}

// AdoptCalibration copies another transformer's mount correction so a new
// transformer can take over a stream without forcing the rider to
// recalibrate. Drift tracking starts fresh.
func (ft *FrameTransformer) AdoptCalibration(other *FrameTransformer) {
	if other == nil || !other.calibrated {
		return
	}
	ft.calibration = other.calibration
	ft.calibrated = true
	ft.resetDriftTracking()
}

// Calibrated reports whether an explicit or automatic calibration is active.
func (ft *FrameTransformer) Calibrated() bool {
	return ft.calibrated
}

// Recalibrations returns how many automatic drift corrections have applied.
func (ft *FrameTransformer) Recalibrations() int {
	return ft.recalibrations
}

// Reset returns the transformer to identity calibration and clears drift
// state. Used when the rider restarts tracking.
func (ft *FrameTransformer) Reset() {
	ft.calibration = imu.Identity()
	ft.calibrated = false
	ft.recalibrations = 0
	ft.resetDriftTracking()
}

func (ft *FrameTransformer) resetDriftTracking() {
	ft.gravityEMA = imu.Vec3{}
	ft.emaSeeded = false
	ft.sinceCheck = 0
	ft.sinceRecal = 0
}

// frameQuat composes the calibration with the current device attitude when
// calibrated; otherwise transforms by the raw device attitude alone.
func (ft *FrameTransformer) frameQuat(orientation imu.Quat) imu.Quat {
	if ft.calibrated {
		return ft.calibration.Mul(orientation)
	}
	return orientation
}

// AccelToHorseFrame rotates a device-frame acceleration into the horse
// frame. Device X maps to horse lateral, device Y to horse forward, and the
// vertical axis is unchanged.
func (ft *FrameTransformer) AccelToHorseFrame(accel imu.Vec3, orientation imu.Quat) HorseAccel {
	v := ft.frameQuat(orientation).Rotate(accel)
	return HorseAccel{Lateral: v.X, Forward: v.Y, Vertical: v.Z}
}

// RotationToHorseFrame rotates a device-frame rotation rate into the horse
// frame (pitch about lateral, roll about forward, yaw about vertical).
func (ft *FrameTransformer) RotationToHorseFrame(rate imu.Vec3, orientation imu.Quat) HorseRotation {
	v := ft.frameQuat(orientation).Rotate(rate)
	return HorseRotation{Pitch: v.X, Roll: v.Y, Yaw: v.Z}
}

// Transform converts one motion sample into horse-frame acceleration and
// rotation, and advances the drift tracker with the sample's gravity
// reading. Any automatic recalibration happens synchronously inside this
// call, before the returned vectors are computed.
func (ft *FrameTransformer) Transform(sample imu.MotionSample) (HorseAccel, HorseRotation) {
	ft.observeGravity(sample.Gravity, sample.Attitude)
	accel := ft.AccelToHorseFrame(sample.Acceleration, sample.Attitude)
	rot := ft.RotationToHorseFrame(sample.RotationRate, sample.Attitude)
	return accel, rot
}

// observeGravity folds one gravity reading into the drift EMA and runs the
// periodic drift check.
func (ft *FrameTransformer) observeGravity(gravity imu.Vec3, orientation imu.Quat) {
	dir, ok := ft.frameQuat(orientation).Rotate(gravity).Normalize()
	if !ok {
		// Gravity magnitude near zero: ambiguous direction, skip.
		return
	}

	if !ft.emaSeeded {
		ft.gravityEMA = dir
		ft.emaSeeded = true
	} else {
		a := ft.cfg.GravityEMAAlpha
		ft.gravityEMA = ft.gravityEMA.Scale(1 - a).Add(dir.Scale(a))
	}

	ft.sinceCheck++
	ft.sinceRecal++
	if ft.sinceCheck < ft.cfg.CheckInterval {
		return
	}
	ft.sinceCheck = 0
	ft.maybeRecalibrate()
}

// cooldown returns the live cooldown: short before the very first
// recalibration so an in-hand miscalibration gets fixed quickly, longer
// afterwards so vigorous motion cannot churn the calibration.
func (ft *FrameTransformer) cooldown() int {
	if ft.recalibrations == 0 {
		return ft.cfg.InitialCooldown
	}
	return ft.cfg.SteadyCooldown
}

// maybeRecalibrate applies a minimal-rotation correction when the averaged
// gravity direction has drifted past the threshold and the cooldown has
// elapsed. Degenerate geometry skips the correction for this cycle; the
// next check interval will retry.
func (ft *FrameTransformer) maybeRecalibrate() {
	if ft.sinceRecal < ft.cooldown() {
		return
	}
	if ft.gravityEMA.Norm() < minGravityEMANorm {
		return
	}

	angle, ok := ft.gravityEMA.AngleTo(expectedGravity)
	if !ok || angle <= ft.cfg.DriftThresholdRad {
		return
	}

	correction, ok := imu.RotationBetween(ft.gravityEMA, expectedGravity)
	if !ok {
		return
	}

	// Correction and drift-state reset are one atomic step: a half-applied
	// recalibration would double-correct at the next check.
	ft.calibration = correction.Mul(ft.calibration).Normalize()
	ft.calibrated = true
	ft.recalibrations++
	ft.resetDriftTracking()

	if ft.OnRecalibrate != nil {
		ft.OnRecalibrate(Recalibration{DriftAngleRad: angle, Count: ft.recalibrations})
	}
}
