// gait-sim exercises the transition dynamics of the gait classifier
// against a configurable tuning, printing convergence times and optionally
// rendering the probability trajectories as PNGs. Used to sanity-check
// tuning changes before they ship to devices.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/tetratrack/gaitd/internal/config"
	"github.com/tetratrack/gaitd/internal/gait"
	"github.com/tetratrack/gaitd/internal/report"
)

var (
	configPath = flag.String("config", "", "Tuning config JSON file (built-in defaults when empty)")
	maxSteps   = flag.Int("max-steps", 40, "Maximum analysis ticks per transition")
	rateHz     = flag.Float64("rate", 4.0, "Analysis tick rate in Hz")
	plotDir    = flag.String("plot-dir", "", "Write trajectory PNGs to this directory (skip plots when empty)")
)

// transitions every ride exercises, with representative evidence for the
// target gait.
var scenarios = []struct {
	from, to gait.Gait
	features gait.FeatureVector
}{
	{gait.GaitStationary, gait.GaitWalk, gait.FeatureVector{StrideFrequencyHz: 1.0, HarmonicRatioH2: 0.4, VerticalRMS: 0.35, SpeedMps: 1.1}},
	{gait.GaitWalk, gait.GaitTrot, gait.FeatureVector{StrideFrequencyHz: 2.1, HarmonicRatioH2: 1.2, VerticalRMS: 1.4, SpeedMps: 2.6}},
	{gait.GaitTrot, gait.GaitCanter, gait.FeatureVector{StrideFrequencyHz: 2.5, HarmonicRatioH2: 0.8, VerticalRMS: 2.2, SpeedMps: 4.5}},
	{gait.GaitCanter, gait.GaitGallop, gait.FeatureVector{StrideFrequencyHz: 3.4, HarmonicRatioH2: 0.6, VerticalRMS: 3.2, SpeedMps: 6.5}},
	{gait.GaitCanter, gait.GaitTrot, gait.FeatureVector{StrideFrequencyHz: 2.1, HarmonicRatioH2: 1.2, VerticalRMS: 1.4, SpeedMps: 2.6}},
	{gait.GaitTrot, gait.GaitWalk, gait.FeatureVector{StrideFrequencyHz: 1.0, HarmonicRatioH2: 0.4, VerticalRMS: 0.35, SpeedMps: 1.1}},
}

func main() {
	flag.Parse()

	var tuning *config.TuningConfig
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
	} else {
		tuning = config.MustLoadDefaultConfig()
	}

	hmm := gait.NewGaitHMM(gait.HMMConfigFromTuning(tuning))
	threshold := tuning.GetDecisionThreshold()

	fmt.Printf("%-12s %-12s %8s %10s %10s\n", "FROM", "TO", "TICKS", "SECONDS", "CONVERGED")

	failures := 0
	for _, sc := range scenarios {
		dyn := hmm.SimulateTransitionDynamics(sc.from, sc.to, sc.features, *maxSteps, *rateHz)
		fmt.Printf("%-12s %-12s %8d %10.2f %10v\n", dyn.From, dyn.To, dyn.Steps, dyn.Seconds, dyn.Converged)
		if !dyn.Converged {
			failures++
		}

		if *plotDir != "" {
			name := fmt.Sprintf("%s_to_%s.png", dyn.From, dyn.To)
			if err := writePlot(filepath.Join(*plotDir, name), dyn, threshold); err != nil {
				log.Fatalf("Failed to write plot %s: %v", name, err)
			}
		}
	}

	if failures > 0 {
		fmt.Fprintf(os.Stderr, "%d transition(s) failed to converge within %d ticks\n", failures, *maxSteps)
		os.Exit(1)
	}
}

func writePlot(path string, dyn gait.TransitionDynamics, threshold float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return report.RenderDynamicsPNG(f, dyn, threshold)
}
