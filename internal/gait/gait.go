// Package gait implements the real-time gait classification engine: the
// horse-frame transformer with drift self-correction, windowed spectral
// feature extraction, the probabilistic gait state model, and the analyzer
// that ties them together behind a single-threaded sample-stream API.
package gait

// Gait is the classified gait of horse and rider.
type Gait string

const (
	// GaitStationary indicates the horse is standing still
	GaitStationary Gait = "stationary"
	// GaitWalk indicates a four-beat walk
	GaitWalk Gait = "walk"
	// GaitTrot indicates a two-beat trot
	GaitTrot Gait = "trot"
	// GaitCanter indicates a three-beat canter
	GaitCanter Gait = "canter"
	// GaitGallop indicates a four-beat gallop
	GaitGallop Gait = "gallop"
)

// Gaits lists all gaits in ascending speed order. Index positions are used
// by the HMM transition prior, which favours moves between adjacent gaits.
var Gaits = []Gait{GaitStationary, GaitWalk, GaitTrot, GaitCanter, GaitGallop}

// GPS speed boundaries between gaits (m/s). The upper canter boundary is
// inclusive: exactly 5.5 m/s classifies as canter.
const (
	WalkSpeedMin   = 0.5
	TrotSpeedMin   = 1.7
	CanterSpeedMin = 3.5
	CanterSpeedMax = 5.5
)

// SpeedRange is the canonical GPS speed band for a gait, used as a
// classification fallback and as a prior when motion features are available.
type SpeedRange struct {
	MinMps float64
	MaxMps float64 // inclusive; +Inf-like sentinel for gallop
}

// speedRanges maps each gait to its canonical band. Gallop has no upper
// bound; 100 m/s stands in for infinity.
var speedRanges = map[Gait]SpeedRange{
	GaitStationary: {0, WalkSpeedMin},
	GaitWalk:       {WalkSpeedMin, TrotSpeedMin},
	GaitTrot:       {TrotSpeedMin, CanterSpeedMin},
	GaitCanter:     {CanterSpeedMin, CanterSpeedMax},
	GaitGallop:     {CanterSpeedMax, 100},
}

// SpeedRangeFor returns the canonical speed band for g.
func SpeedRangeFor(g Gait) SpeedRange {
	return speedRanges[g]
}

// GaitFromSpeed maps a GPS speed in m/s to a gait. Total and deterministic
// over [0, ∞); negative speeds (bad fixes) classify as stationary.
func GaitFromSpeed(speedMps float64) Gait {
	switch {
	case speedMps < WalkSpeedMin:
		return GaitStationary
	case speedMps < TrotSpeedMin:
		return GaitWalk
	case speedMps < CanterSpeedMin:
		return GaitTrot
	case speedMps <= CanterSpeedMax:
		return GaitCanter
	default:
		return GaitGallop
	}
}

// Index returns the position of g in Gaits, or -1 for an unknown gait.
func (g Gait) Index() int {
	for i, v := range Gaits {
		if v == g {
			return i
		}
	}
	return -1
}

// String returns the gait name.
func (g Gait) String() string {
	return string(g)
}

// CanterLead identifies which foreleg leads in canter.
type CanterLead string

const (
	LeadUnknown CanterLead = "unknown"
	LeadLeft    CanterLead = "left"
	LeadRight   CanterLead = "right"
)
