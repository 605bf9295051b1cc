package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// EmissionParams holds the per-gait Gaussian emission profile used by the
// gait HMM. Each feature is scored as a z against (mean, sigma). These are
// the knobs recalibrated against labelled ride data; code never hardcodes
// them outside the defaults here.
type EmissionParams struct {
	StrideMean  float64 `json:"stride_mean"`
	StrideSigma float64 `json:"stride_sigma"`
	H2Mean      float64 `json:"h2_mean"`
	H2Sigma     float64 `json:"h2_sigma"`
	VRMSMean    float64 `json:"vrms_mean"`
	VRMSSigma   float64 `json:"vrms_sigma"`
	SpeedMean   float64 `json:"speed_mean"`
	SpeedSigma  float64 `json:"speed_sigma"`
}

// TuningConfig represents the root configuration for tuning parameters.
// The schema matches the /api/gait/params endpoint so the same JSON can be
// used for both startup configuration and runtime updates. All fields are
// optional; the Get* accessors supply defaults for anything unset, so
// partial configs are safe.
type TuningConfig struct {
	// Frame transformer / drift correction params
	DriftThresholdDeg    *float64 `json:"drift_threshold_deg,omitempty"`
	DriftCheckInterval   *int     `json:"drift_check_interval,omitempty"`   // samples between drift checks
	DriftInitialCooldown *int     `json:"drift_initial_cooldown,omitempty"` // samples before first recalibration
	DriftSteadyCooldown  *int     `json:"drift_steady_cooldown,omitempty"`  // samples between later recalibrations
	GravityEMAAlpha      *float64 `json:"gravity_ema_alpha,omitempty"`

	// Analyzer params
	ConfirmationThreshold *int     `json:"confirmation_threshold,omitempty"` // consecutive candidates to commit
	SpeedWindow           *int     `json:"speed_window,omitempty"`           // rolling speed average length
	MotionWindow          *int     `json:"motion_window,omitempty"`          // ring buffer / FFT window samples
	MinMotionSamples      *int     `json:"min_motion_samples,omitempty"`     // buffer fill before bounce metrics
	SampleRateHz          *float64 `json:"sample_rate_hz,omitempty"`         // motion provider cadence
	AnalysisRateHz        *float64 `json:"analysis_rate_hz,omitempty"`       // feature/HMM tick rate

	// HMM params
	TransitionInertia *float64 `json:"transition_inertia,omitempty"` // self-transition probability
	DecisionThreshold *float64 `json:"decision_threshold,omitempty"` // posterior mass to commit a gait
	GallopMarginHz    *float64 `json:"gallop_margin_hz,omitempty"`   // extra stride separation for gallop

	// Per-gait emission profiles, keyed by gait name ("walk", "trot", ...).
	// Gaits absent from the map use the built-in defaults.
	Emissions map[string]EmissionParams `json:"emissions,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// The Get* accessors make an empty config equivalent to the defaults, so
// this is also the config used when no defaults file is present.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size. Fields omitted from the JSON file retain their default
// values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching the current directory and common parent
// directories. Falls back to the built-in defaults (an empty config) when no
// file is found, so library consumers and tests work without the file.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	return EmptyTuningConfig()
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.DriftThresholdDeg != nil {
		if *c.DriftThresholdDeg <= 0 || *c.DriftThresholdDeg >= 90 {
			return fmt.Errorf("drift_threshold_deg must be in (0, 90), got %f", *c.DriftThresholdDeg)
		}
	}
	if c.GravityEMAAlpha != nil {
		if *c.GravityEMAAlpha <= 0 || *c.GravityEMAAlpha > 1 {
			return fmt.Errorf("gravity_ema_alpha must be in (0, 1], got %f", *c.GravityEMAAlpha)
		}
	}
	if c.ConfirmationThreshold != nil && *c.ConfirmationThreshold < 1 {
		return fmt.Errorf("confirmation_threshold must be at least 1, got %d", *c.ConfirmationThreshold)
	}
	if c.TransitionInertia != nil {
		if *c.TransitionInertia <= 0 || *c.TransitionInertia >= 1 {
			return fmt.Errorf("transition_inertia must be in (0, 1), got %f", *c.TransitionInertia)
		}
	}
	if c.DecisionThreshold != nil {
		if *c.DecisionThreshold <= 0 || *c.DecisionThreshold >= 1 {
			return fmt.Errorf("decision_threshold must be in (0, 1), got %f", *c.DecisionThreshold)
		}
	}
	if c.MotionWindow != nil && *c.MotionWindow < 16 {
		return fmt.Errorf("motion_window must be at least 16 samples, got %d", *c.MotionWindow)
	}
	if c.SampleRateHz != nil && *c.SampleRateHz <= 0 {
		return fmt.Errorf("sample_rate_hz must be positive, got %f", *c.SampleRateHz)
	}
	if c.AnalysisRateHz != nil && *c.AnalysisRateHz <= 0 {
		return fmt.Errorf("analysis_rate_hz must be positive, got %f", *c.AnalysisRateHz)
	}
	for name, em := range c.Emissions {
		if em.StrideSigma <= 0 || em.H2Sigma <= 0 || em.VRMSSigma <= 0 || em.SpeedSigma <= 0 {
			return fmt.Errorf("emission sigmas for %q must be positive", name)
		}
	}
	return nil
}

// GetDriftThresholdDeg returns the drift_threshold_deg value or the default.
func (c *TuningConfig) GetDriftThresholdDeg() float64 {
	if c.DriftThresholdDeg == nil {
		return 20.0 // saddle mount default; tighten for chest mounts
	}
	return *c.DriftThresholdDeg
}

// GetDriftCheckInterval returns the drift_check_interval value or the default.
func (c *TuningConfig) GetDriftCheckInterval() int {
	if c.DriftCheckInterval == nil {
		return 100 // ~2s at 50Hz
	}
	return *c.DriftCheckInterval
}

// GetDriftInitialCooldown returns the drift_initial_cooldown value or the default.
func (c *TuningConfig) GetDriftInitialCooldown() int {
	if c.DriftInitialCooldown == nil {
		return 250 // fix in-hand miscalibration fast (~5s at 50Hz)
	}
	return *c.DriftInitialCooldown
}

// GetDriftSteadyCooldown returns the drift_steady_cooldown value or the default.
func (c *TuningConfig) GetDriftSteadyCooldown() int {
	if c.DriftSteadyCooldown == nil {
		return 1000 // ~20s at 50Hz; avoids reacting to vigorous motion
	}
	return *c.DriftSteadyCooldown
}

// GetGravityEMAAlpha returns the gravity_ema_alpha value or the default.
func (c *TuningConfig) GetGravityEMAAlpha() float64 {
	if c.GravityEMAAlpha == nil {
		return 0.02
	}
	return *c.GravityEMAAlpha
}

// GetConfirmationThreshold returns the confirmation_threshold value or the default.
func (c *TuningConfig) GetConfirmationThreshold() int {
	if c.ConfirmationThreshold == nil {
		return 3
	}
	return *c.ConfirmationThreshold
}

// GetSpeedWindow returns the speed_window value or the default.
func (c *TuningConfig) GetSpeedWindow() int {
	if c.SpeedWindow == nil {
		return 3
	}
	return *c.SpeedWindow
}

// GetMotionWindow returns the motion_window value or the default.
func (c *TuningConfig) GetMotionWindow() int {
	if c.MotionWindow == nil {
		return 128
	}
	return *c.MotionWindow
}

// GetMinMotionSamples returns the min_motion_samples value or the default.
func (c *TuningConfig) GetMinMotionSamples() int {
	if c.MinMotionSamples == nil {
		return 20
	}
	return *c.MinMotionSamples
}

// GetSampleRateHz returns the sample_rate_hz value or the default.
func (c *TuningConfig) GetSampleRateHz() float64 {
	if c.SampleRateHz == nil {
		return 50.0
	}
	return *c.SampleRateHz
}

// GetAnalysisRateHz returns the analysis_rate_hz value or the default.
func (c *TuningConfig) GetAnalysisRateHz() float64 {
	if c.AnalysisRateHz == nil {
		return 4.0
	}
	return *c.AnalysisRateHz
}

// GetTransitionInertia returns the transition_inertia value or the default.
func (c *TuningConfig) GetTransitionInertia() float64 {
	if c.TransitionInertia == nil {
		return 0.90
	}
	return *c.TransitionInertia
}

// GetDecisionThreshold returns the decision_threshold value or the default.
func (c *TuningConfig) GetDecisionThreshold() float64 {
	if c.DecisionThreshold == nil {
		return 0.60
	}
	return *c.DecisionThreshold
}

// GetGallopMarginHz returns the gallop_margin_hz value or the default.
func (c *TuningConfig) GetGallopMarginHz() float64 {
	if c.GallopMarginHz == nil {
		return 0.25
	}
	return *c.GallopMarginHz
}

// defaultEmissions holds the built-in per-gait emission profiles. Means and
// sigmas were fitted on labelled schooling rides; the stride-frequency bands
// put the canter/gallop boundary near 3.0 Hz before the gallop margin is
// applied.
var defaultEmissions = map[string]EmissionParams{
	"stationary": {StrideMean: 0.0, StrideSigma: 0.50, H2Mean: 0.10, H2Sigma: 0.30, VRMSMean: 0.05, VRMSSigma: 0.15, SpeedMean: 0.1, SpeedSigma: 0.40},
	"walk":       {StrideMean: 1.0, StrideSigma: 0.35, H2Mean: 0.40, H2Sigma: 0.30, VRMSMean: 0.35, VRMSSigma: 0.25, SpeedMean: 1.1, SpeedSigma: 0.50},
	"trot":       {StrideMean: 2.1, StrideSigma: 0.40, H2Mean: 1.20, H2Sigma: 0.50, VRMSMean: 1.40, VRMSSigma: 0.60, SpeedMean: 2.6, SpeedSigma: 0.90},
	"canter":     {StrideMean: 2.5, StrideSigma: 0.40, H2Mean: 0.80, H2Sigma: 0.40, VRMSMean: 2.20, VRMSSigma: 0.90, SpeedMean: 4.5, SpeedSigma: 1.00},
	"gallop":     {StrideMean: 3.4, StrideSigma: 0.35, H2Mean: 0.60, H2Sigma: 0.40, VRMSMean: 3.20, VRMSSigma: 1.00, SpeedMean: 6.5, SpeedSigma: 1.50},
}

// GetEmission returns the emission profile for the named gait, falling back
// to the built-in defaults for gaits absent from the config.
func (c *TuningConfig) GetEmission(gait string) EmissionParams {
	if c.Emissions != nil {
		if em, ok := c.Emissions[gait]; ok {
			return em
		}
	}
	return defaultEmissions[gait]
}

// Merge overlays the non-nil fields of other onto a copy of c and returns
// the result. Used by the params API to apply partial runtime updates.
func (c *TuningConfig) Merge(other *TuningConfig) *TuningConfig {
	merged := *c
	if other == nil {
		return &merged
	}
	if other.DriftThresholdDeg != nil {
		merged.DriftThresholdDeg = other.DriftThresholdDeg
	}
	if other.DriftCheckInterval != nil {
		merged.DriftCheckInterval = other.DriftCheckInterval
	}
	if other.DriftInitialCooldown != nil {
		merged.DriftInitialCooldown = other.DriftInitialCooldown
	}
	if other.DriftSteadyCooldown != nil {
		merged.DriftSteadyCooldown = other.DriftSteadyCooldown
	}
	if other.GravityEMAAlpha != nil {
		merged.GravityEMAAlpha = other.GravityEMAAlpha
	}
	if other.ConfirmationThreshold != nil {
		merged.ConfirmationThreshold = other.ConfirmationThreshold
	}
	if other.SpeedWindow != nil {
		merged.SpeedWindow = other.SpeedWindow
	}
	if other.MotionWindow != nil {
		merged.MotionWindow = other.MotionWindow
	}
	if other.MinMotionSamples != nil {
		merged.MinMotionSamples = other.MinMotionSamples
	}
	if other.SampleRateHz != nil {
		merged.SampleRateHz = other.SampleRateHz
	}
	if other.AnalysisRateHz != nil {
		merged.AnalysisRateHz = other.AnalysisRateHz
	}
	if other.TransitionInertia != nil {
		merged.TransitionInertia = other.TransitionInertia
	}
	if other.DecisionThreshold != nil {
		merged.DecisionThreshold = other.DecisionThreshold
	}
	if other.GallopMarginHz != nil {
		merged.GallopMarginHz = other.GallopMarginHz
	}
	if other.Emissions != nil {
		em := make(map[string]EmissionParams, len(merged.Emissions)+len(other.Emissions))
		for k, v := range merged.Emissions {
			em[k] = v
		}
		for k, v := range other.Emissions {
			em[k] = v
		}
		merged.Emissions = em
	}
	return &merged
}
