package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if got := cfg.GetDriftThresholdDeg(); got != 20.0 {
		t.Errorf("GetDriftThresholdDeg() = %v, want 20.0", got)
	}
	if got := cfg.GetConfirmationThreshold(); got != 3 {
		t.Errorf("GetConfirmationThreshold() = %v, want 3", got)
	}
	if got := cfg.GetTransitionInertia(); got != 0.90 {
		t.Errorf("GetTransitionInertia() = %v, want 0.90", got)
	}
	if got := cfg.GetGallopMarginHz(); got != 0.25 {
		t.Errorf("GetGallopMarginHz() = %v, want 0.25", got)
	}
	if got := cfg.GetMotionWindow(); got != 128 {
		t.Errorf("GetMotionWindow() = %v, want 128", got)
	}
}

func TestEmissionFallback(t *testing.T) {
	cfg := EmptyTuningConfig()
	em := cfg.GetEmission("walk")
	if em.StrideMean != 1.0 {
		t.Errorf("walk stride mean = %v, want 1.0", em.StrideMean)
	}

	// Config override replaces the default for that gait only.
	cfg.Emissions = map[string]EmissionParams{
		"walk": {StrideMean: 1.2, StrideSigma: 0.3, H2Sigma: 0.3, VRMSSigma: 0.2, SpeedSigma: 0.5},
	}
	if got := cfg.GetEmission("walk").StrideMean; got != 1.2 {
		t.Errorf("overridden walk stride mean = %v, want 1.2", got)
	}
	if got := cfg.GetEmission("trot").StrideMean; got != 2.1 {
		t.Errorf("trot stride mean = %v, want default 2.1", got)
	}
}

func TestLoadTuningConfigPartial(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.json")
	content := `{"drift_threshold_deg": 15.0, "confirmation_threshold": 5}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("LoadTuningConfig: %v", err)
	}
	if got := cfg.GetDriftThresholdDeg(); got != 15.0 {
		t.Errorf("GetDriftThresholdDeg() = %v, want 15.0", got)
	}
	if got := cfg.GetConfirmationThreshold(); got != 5 {
		t.Errorf("GetConfirmationThreshold() = %v, want 5", got)
	}
	// Unset fields fall back to defaults.
	if got := cfg.GetTransitionInertia(); got != 0.90 {
		t.Errorf("GetTransitionInertia() = %v, want default 0.90", got)
	}
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	if _, err := LoadTuningConfig("tuning.yaml"); err == nil {
		t.Error("expected error for non-.json extension")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		cfg  TuningConfig
	}{
		{"drift threshold too high", TuningConfig{DriftThresholdDeg: ptrFloat64(95)}},
		{"inertia out of range", TuningConfig{TransitionInertia: ptrFloat64(1.5)}},
		{"zero confirmation", TuningConfig{ConfirmationThreshold: ptrInt(0)}},
		{"tiny motion window", TuningConfig{MotionWindow: ptrInt(4)}},
		{"zero emission sigma", TuningConfig{Emissions: map[string]EmissionParams{"walk": {StrideSigma: 0, H2Sigma: 1, VRMSSigma: 1, SpeedSigma: 1}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := EmptyTuningConfig()
	base.DriftThresholdDeg = ptrFloat64(18)

	update := &TuningConfig{ConfirmationThreshold: ptrInt(4)}
	merged := base.Merge(update)

	if got := merged.GetDriftThresholdDeg(); got != 18 {
		t.Errorf("merged drift threshold = %v, want 18 (preserved)", got)
	}
	if got := merged.GetConfirmationThreshold(); got != 4 {
		t.Errorf("merged confirmation threshold = %v, want 4 (updated)", got)
	}
	// Base unchanged.
	if got := base.GetConfirmationThreshold(); got != 3 {
		t.Errorf("base confirmation threshold = %v, want 3", got)
	}
}
