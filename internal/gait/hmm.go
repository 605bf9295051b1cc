package gait

import (
	"math"

	"github.com/tetratrack/gaitd/internal/config"
)

// probFloor keeps every gait reachable: a posterior pinned to exactly zero
// could never recover mass no matter how strong later evidence is.
const probFloor = 1e-6

// emissionTemper scales the summed per-feature log-likelihood. The features
// are strongly correlated (stride frequency, harmonics and bounce all rise
// together), so treating them as independent Gaussians at full sharpness
// lets one tick of boundary-zone evidence overturn an established belief.
const emissionTemper = 0.5

// HMMConfig holds the transition and emission parameters for a GaitHMM.
type HMMConfig struct {
	TransitionInertia float64 // self-transition probability
	DecisionThreshold float64 // posterior mass required to commit
	GallopMarginHz    float64 // added to the gallop stride mean, widening the canter/gallop gap
	Emissions         map[Gait]config.EmissionParams
}

// HMMConfigFromTuning builds an HMMConfig from a loaded TuningConfig.
func HMMConfigFromTuning(cfg *config.TuningConfig) HMMConfig {
	em := make(map[Gait]config.EmissionParams, len(Gaits))
	for _, g := range Gaits {
		em[g] = cfg.GetEmission(string(g))
	}
	return HMMConfig{
		TransitionInertia: cfg.GetTransitionInertia(),
		DecisionThreshold: cfg.GetDecisionThreshold(),
		GallopMarginHz:    cfg.GetGallopMarginHz(),
		Emissions:         em,
	}
}

// DefaultHMMConfig returns the built-in model defaults.
func DefaultHMMConfig() HMMConfig {
	return HMMConfigFromTuning(config.EmptyTuningConfig())
}

// GaitHMM blends per-gait emission likelihoods with a sticky transition
// prior to produce smoothed gait probabilities. A fresh model starts with
// its mass on stationary.
//
// Not safe for concurrent use.
type GaitHMM struct {
	cfg        HMMConfig
	probs      [5]float64 // indexed by Gait.Index()
	transition [5][5]float64
}

// NewGaitHMM creates a model with the given configuration.
func NewGaitHMM(cfg HMMConfig) *GaitHMM {
	h := &GaitHMM{cfg: cfg}
	h.buildTransition()
	h.Reset()
	return h
}

// buildTransition constructs the sticky transition matrix: each gait keeps
// TransitionInertia of its mass, and the remainder decays exponentially
// with gait distance so adjacent gaits are favoured over jumps.
func (h *GaitHMM) buildTransition() {
	inertia := h.cfg.TransitionInertia
	for i := range Gaits {
		var weightSum float64
		for j := range Gaits {
			if i == j {
				continue
			}
			weightSum += math.Exp(-float64(abs(i - j)))
		}
		for j := range Gaits {
			if i == j {
				h.transition[i][j] = inertia
				continue
			}
			h.transition[i][j] = (1 - inertia) * math.Exp(-float64(abs(i-j))) / weightSum
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Reset returns the model to its initial stationary belief.
func (h *GaitHMM) Reset() {
	h.ResetTo(GaitStationary)
}

// ResetTo concentrates the belief on the given gait, leaving the floor
// probability on the others.
func (h *GaitHMM) ResetTo(g Gait) {
	idx := g.Index()
	if idx < 0 {
		idx = 0
	}
	for i := range h.probs {
		h.probs[i] = probFloor
	}
	h.probs[idx] = 1
	h.normalize()
}

// Probabilities returns the current per-gait probability mass.
func (h *GaitHMM) Probabilities() map[Gait]float64 {
	out := make(map[Gait]float64, len(Gaits))
	for i, g := range Gaits {
		out[g] = h.probs[i]
	}
	return out
}

// emissionLogLikelihood scores fv against the gait's Gaussian profile.
// Features are treated as independent; the result is the summed -z²/2.
func (h *GaitHMM) emissionLogLikelihood(g Gait, fv FeatureVector) float64 {
	em := h.cfg.Emissions[g]

	strideMean := em.StrideMean
	if g == GaitGallop {
		// The separation margin pushes the gallop profile away from the
		// canter/gallop stride boundary so energetic canter strides do not
		// score as gallop.
		strideMean += h.cfg.GallopMarginHz
	}

	logL := 0.0
	logL += gaussLogTerm(fv.StrideFrequencyHz, strideMean, em.StrideSigma)
	logL += gaussLogTerm(fv.HarmonicRatioH2, em.H2Mean, em.H2Sigma)
	logL += gaussLogTerm(fv.VerticalRMS, em.VRMSMean, em.VRMSSigma)
	logL += gaussLogTerm(fv.SpeedMps, em.SpeedMean, em.SpeedSigma)
	return emissionTemper * logL
}

func gaussLogTerm(x, mean, sigma float64) float64 {
	if sigma <= 0 {
		return 0
	}
	z := (x - mean) / sigma
	return -0.5 * z * z
}

// Update folds one feature vector into the belief: transition prior, then
// emission likelihood, then renormalisation. Returns the most likely gait
// after the update.
func (h *GaitHMM) Update(fv FeatureVector) Gait {
	// Prediction step through the transition matrix.
	var predicted [5]float64
	for j := range Gaits {
		for i := range Gaits {
			predicted[j] += h.probs[i] * h.transition[i][j]
		}
	}

	// Correction step. Log-likelihoods are shifted by their max before
	// exponentiation so a badly-matched tick cannot underflow all gaits.
	var logL [5]float64
	maxLogL := math.Inf(-1)
	for i, g := range Gaits {
		logL[i] = h.emissionLogLikelihood(g, fv)
		if logL[i] > maxLogL {
			maxLogL = logL[i]
		}
	}
	for i := range Gaits {
		h.probs[i] = predicted[i]*math.Exp(logL[i]-maxLogL) + probFloor
	}
	h.normalize()

	return h.Best()
}

func (h *GaitHMM) normalize() {
	var sum float64
	for _, p := range h.probs {
		sum += p
	}
	if sum <= 0 {
		for i := range h.probs {
			h.probs[i] = 1.0 / float64(len(h.probs))
		}
		return
	}
	for i := range h.probs {
		h.probs[i] /= sum
	}
}

// Best returns the gait with the highest probability mass.
func (h *GaitHMM) Best() Gait {
	best := 0
	for i := range h.probs {
		if h.probs[i] > h.probs[best] {
			best = i
		}
	}
	return Gaits[best]
}

// Confident reports whether the best gait's mass has crossed the decision
// threshold.
func (h *GaitHMM) Confident() bool {
	return h.probs[h.Best().Index()] >= h.cfg.DecisionThreshold
}

// TransitionDynamics reports how a simulated transition unfolded.
type TransitionDynamics struct {
	From       Gait      `json:"from"`
	To         Gait      `json:"to"`
	Steps      int       `json:"steps"`   // ticks until the target crossed the decision threshold
	Seconds    float64   `json:"seconds"` // Steps at the given update rate
	Converged  bool      `json:"converged"`
	Trajectory []float64 `json:"trajectory"` // target-gait probability after each tick
}

// SimulateTransitionDynamics repeatedly feeds a fixed feature vector
// favouring the target gait into a model reset to the source gait, and
// reports how long the target takes to cross the decision threshold.
//
// This is a model-sensitivity diagnostic, not part of the live pipeline:
// too-fast convergence means the model over-trusts single-tick emission
// evidence, too-slow means excess inertia. The live model is untouched; the
// simulation runs on a copy.
func (h *GaitHMM) SimulateTransitionDynamics(from, to Gait, fv FeatureVector, maxSteps int, updateRateHz float64) TransitionDynamics {
	sim := NewGaitHMM(h.cfg)
	sim.ResetTo(from)

	dyn := TransitionDynamics{
		From:       from,
		To:         to,
		Trajectory: make([]float64, 0, maxSteps),
	}

	toIdx := to.Index()
	for step := 1; step <= maxSteps; step++ {
		sim.Update(fv)
		p := sim.probs[toIdx]
		dyn.Trajectory = append(dyn.Trajectory, p)
		if p >= sim.cfg.DecisionThreshold {
			dyn.Steps = step
			dyn.Converged = true
			break
		}
	}
	if !dyn.Converged {
		dyn.Steps = maxSteps
	}
	if updateRateHz > 0 {
		dyn.Seconds = float64(dyn.Steps) / updateRateHz
	}
	return dyn
}
