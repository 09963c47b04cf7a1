package envelope

import (
	"math"

	"github.com/justyntemme/envnode/pkg/dsp"
)

// settleLevel is the fraction of the distance left when a OnePole time has elapsed.
const settleLevel = 0.01

// OnePole is an attack/release one-pole smoother. Rising input uses the
// attack coefficient and falling input the release coefficient.
type OnePole struct {
	sampleRate  float64
	attack      float64 // ms
	release     float64 // ms
	attackCoef  float64
	releaseCoef float64
	value       float64
}

// NewOnePole creates a smoother with attack and release times in milliseconds
func NewOnePole(sampleRate, attackMs, releaseMs float64) OnePole {
	f := OnePole{
		sampleRate: sampleRate,
		attack:     math.Max(0, attackMs),
		release:    math.Max(0, releaseMs),
	}
	f.updateCoefficients()
	return f
}

// SetSampleRate sets the sample rate
func (f *OnePole) SetSampleRate(sampleRate float64) {
	f.sampleRate = sampleRate
	f.updateCoefficients()
}

// SetAttack sets the attack time in milliseconds
func (f *OnePole) SetAttack(ms float64) {
	f.attack = math.Max(0, ms)
	f.updateCoefficients()
}

// SetRelease sets the release time in milliseconds
func (f *OnePole) SetRelease(ms float64) {
	f.release = math.Max(0, ms)
	f.updateCoefficients()
}

// updateCoefficients recalculates the exponential coefficients
func (f *OnePole) updateCoefficients() {
	f.attackCoef = calcCoef(f.attack, f.sampleRate)
	f.releaseCoef = calcCoef(f.release, f.sampleRate)
}

// calcCoef returns the coefficient that leaves settleLevel of the distance after timeMs
func calcCoef(timeMs, sampleRate float64) float64 {
	samples := dsp.MsToSamples(timeMs, sampleRate)
	if samples <= 0 {
		return 0
	}
	return math.Exp(math.Log(settleLevel) / samples)
}

// Next moves the smoother one sample toward input
func (f *OnePole) Next(input float64) float64 {
	coef := f.releaseCoef
	if input > f.value {
		coef = f.attackCoef
	}
	f.value = input + (f.value-input)*coef
	return f.value
}

// Reset clears the smoother state
func (f *OnePole) Reset() {
	f.value = 0
}

// Value returns the current smoother output
func (f *OnePole) Value() float64 {
	return f.value
}

// Attack returns the attack time in milliseconds
func (f *OnePole) Attack() float64 {
	return f.attack
}

// Release returns the release time in milliseconds
func (f *OnePole) Release() float64 {
	return f.release
}
