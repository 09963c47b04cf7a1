// Package envelope provides gate-driven envelope generators for audio synthesis.
//
// The shaped AHDSR generator and the gate follower both run one sample per
// Tick with all segment coefficients computed ahead of time, so the per-sample
// cost is a single multiply-add and nothing on the tick path allocates.
package envelope

import (
	"math"

	"github.com/justyntemme/envnode/pkg/dsp"
)

const (
	// MinRatio is the smallest accepted target ratio.
	MinRatio = 1e-6
	// LinearRatio is the target ratio used for the flattest curve setting.
	LinearRatio = 100.0
	// SteepRatio is the target ratio used for the steepest curve setting.
	SteepRatio = 1e-4

	// Tolerance is the distance at which a segment counts as having reached its target.
	Tolerance = 1e-6
)

// Coefficient returns the per-sample multiplier of a one-pole recurrence that
// covers a segment of the given length in samples. ratio sets how far beyond
// the target the asymptote sits, relative to the segment height.
func Coefficient(samples, ratio float64) float64 {
	if samples <= 0 {
		return 0
	}
	if ratio < MinRatio {
		ratio = MinRatio
	}
	return math.Exp(-math.Log((1.0+ratio)/ratio) / samples)
}

// Rebase returns the additive term of the recurrence for a cached coefficient
// and a new start value.
func Rebase(coef, base, target, ratio float64) float64 {
	if ratio < MinRatio {
		ratio = MinRatio
	}
	asymptote := target + ratio*(target-base)
	return asymptote * (1.0 - coef)
}

// CalculateCoefficients converts a segment time and curvature into the pair
// (coefBase, coef) so that iterating
//
//	value = coefBase + value*coef
//
// moves from base toward target and crosses target after timeMs. The
// recurrence heads for an asymptote beyond target and keeps going once it
// crosses, so callers must clamp or snap at target themselves. A
// non-positive time yields coef 0, which lands on target in one sample.
func CalculateCoefficients(sampleRate, timeMs, base, target, ratio float64) (coefBase, coef float64) {
	if timeMs <= 0 || sampleRate <= 0 {
		return target, 0
	}
	if timeMs < dsp.MinEnvelopeTimeMs {
		timeMs = dsp.MinEnvelopeTimeMs
	}
	if ratio < MinRatio {
		ratio = MinRatio
	}

	coef = Coefficient(dsp.MsToSamples(timeMs, sampleRate), ratio)
	coefBase = Rebase(coef, base, target, ratio)
	return coefBase, coef
}

// CurveToRatio maps a curve amount in [0, 1] onto a target ratio, from an
// almost linear ramp at 0 to a steep exponential approach at 1. The mapping
// is geometric so the midpoint sounds halfway between the two.
func CurveToRatio(curve float64) float64 {
	curve = clamp(curve, 0, 1)
	return math.Exp(math.Log(LinearRatio) + curve*(math.Log(SteepRatio)-math.Log(LinearRatio)))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
