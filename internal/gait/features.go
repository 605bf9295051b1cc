package gait

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// Stride-frequency search band (Hz). Below the floor the spectrum is mostly
// GPS-speed wobble and breathing; above the ceiling nothing a horse does.
const (
	strideBandMinHz = 0.4
	strideBandMaxHz = 5.0
)

// FeatureVector is one analysis tick's worth of derived signal features,
// computed from the sliding window of horse-frame motion samples (or
// injected synthetically in tests and model diagnostics).
type FeatureVector struct {
	StrideFrequencyHz float64 `json:"stride_frequency_hz"`
	HarmonicRatioH2   float64 `json:"harmonic_ratio_h2"` // mag(2f)/mag(f)
	HarmonicRatioH3   float64 `json:"harmonic_ratio_h3"` // mag(3f)/mag(f)
	SpectralEntropy   float64 `json:"spectral_entropy"`  // normalised [0,1]
	LateralCoherence  float64 `json:"lateral_coherence"` // |corr(lateral, vertical)|
	VerticalRMS       float64 `json:"vertical_rms"`      // m/s²
	YawRateRMS        float64 `json:"yaw_rate_rms"`      // rad/s
	SpeedMps          float64 `json:"speed_mps"`

	// Optional watch-derived terms; zero when no paired watch.
	ArmSymmetry float64 `json:"arm_symmetry,omitempty"`
	YawEnergy   float64 `json:"yaw_energy,omitempty"`
}

// featureExtractor turns a window of horse-frame samples into a
// FeatureVector. The FFT plan is cached per window size.
type featureExtractor struct {
	sampleRateHz float64
	fft          *fourier.FFT
	n            int

	// scratch buffers reused across ticks
	series []float64
	coeffs []complex128
	mags   []float64
}

func newFeatureExtractor(windowSize int, sampleRateHz float64) *featureExtractor {
	return &featureExtractor{
		sampleRateHz: sampleRateHz,
		fft:          fourier.NewFFT(windowSize),
		n:            windowSize,
		series:       make([]float64, windowSize),
		coeffs:       make([]complex128, windowSize/2+1),
		mags:         make([]float64, windowSize/2+1),
	}
}

// rms returns the root mean square of xs.
func rms(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x * x
	}
	return math.Sqrt(sum / float64(len(xs)))
}

// detrendInto copies xs minus its mean into dst.
func detrendInto(dst, xs []float64) {
	mean := stat.Mean(xs, nil)
	for i, x := range xs {
		dst[i] = x - mean
	}
}

// Extract computes the feature vector for the given horse-frame component
// series. All slices must have the extractor's window length; speedMps is
// the current rolling GPS speed.
func (fe *featureExtractor) Extract(vertical, lateral, yawRate []float64, speedMps float64) FeatureVector {
	fv := FeatureVector{
		VerticalRMS: rms(vertical),
		YawRateRMS:  rms(yawRate),
		SpeedMps:    speedMps,
	}

	if corr := stat.Correlation(lateral, vertical, nil); !math.IsNaN(corr) {
		fv.LateralCoherence = math.Abs(corr)
	}

	detrendInto(fe.series, vertical)
	coeffs := fe.fft.Coefficients(fe.coeffs, fe.series)

	binHz := fe.sampleRateHz / float64(fe.n)
	var totalPower float64
	for i, c := range coeffs {
		fe.mags[i] = math.Hypot(real(c), imag(c))
		if i > 0 {
			totalPower += fe.mags[i] * fe.mags[i]
		}
	}

	// Dominant bin within the stride band.
	lo := int(math.Ceil(strideBandMinHz / binHz))
	hi := int(math.Floor(strideBandMaxHz / binHz))
	if lo < 1 {
		lo = 1
	}
	if hi > len(fe.mags)-1 {
		hi = len(fe.mags) - 1
	}
	peak := lo
	for i := lo; i <= hi; i++ {
		if fe.mags[i] > fe.mags[peak] {
			peak = i
		}
	}
	if hi >= lo && fe.mags[peak] > 0 {
		fv.StrideFrequencyHz = float64(peak) * binHz
		fv.HarmonicRatioH2 = harmonicRatio(fe.mags, peak, 2)
		fv.HarmonicRatioH3 = harmonicRatio(fe.mags, peak, 3)
	}

	// Normalised spectral entropy over the positive-frequency power
	// spectrum: 0 for a pure tone, 1 for white noise.
	if totalPower > 0 {
		var entropy float64
		for i := 1; i < len(fe.mags); i++ {
			p := fe.mags[i] * fe.mags[i] / totalPower
			if p > 0 {
				entropy -= p * math.Log(p)
			}
		}
		fv.SpectralEntropy = entropy / math.Log(float64(len(fe.mags)-1))
	}

	return fv
}

// harmonicRatio returns mag(k*peak)/mag(peak), searching ±1 bin around the
// harmonic to absorb FFT bin quantisation.
func harmonicRatio(mags []float64, peak, k int) float64 {
	if mags[peak] == 0 {
		return 0
	}
	target := peak * k
	best := 0.0
	for i := target - 1; i <= target+1; i++ {
		if i >= 1 && i < len(mags) && mags[i] > best {
			best = mags[i]
		}
	}
	return best / mags[peak]
}
