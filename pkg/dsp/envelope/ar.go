package envelope

import "math"

// SmoothingEpsilon is the distance below which a GateFollower stops smoothing.
const SmoothingEpsilon = 1e-4

// GateFollower is a two-segment envelope that chases a binary gate with a
// one-pole smoother. It is a cheaper alternative to the AHDSR state.
type GateFollower struct {
	env       OnePole
	target    float64
	lastValue float64
	active    bool
	smoothing bool
}

// NewGateFollower creates a follower with attack and release in milliseconds
func NewGateFollower(sampleRate, attackMs, releaseMs float64) *GateFollower {
	g := &GateFollower{}
	g.Init(sampleRate, attackMs, releaseMs)
	return g
}

// Init configures the follower and resets it
func (g *GateFollower) Init(sampleRate, attackMs, releaseMs float64) {
	g.env = NewOnePole(sampleRate, attackMs, releaseMs)
	g.Reset()
}

// Reset returns the follower to a closed, settled gate
func (g *GateFollower) Reset() {
	g.env.Reset()
	g.target = 0
	g.lastValue = 0
	g.active = false
	g.smoothing = false
}

// SetSampleRate sets the sample rate
func (g *GateFollower) SetSampleRate(sampleRate float64) {
	g.env.SetSampleRate(sampleRate)
}

// SetAttack sets the attack time in milliseconds
func (g *GateFollower) SetAttack(ms float64) {
	g.env.SetAttack(ms)
}

// SetRelease sets the release time in milliseconds
func (g *GateFollower) SetRelease(ms float64) {
	g.env.SetRelease(ms)
}

// SetGate sets the target to 1 (on) or 0 (off) and starts smoothing
func (g *GateFollower) SetGate(on bool) {
	if on {
		g.target = 1.0
	} else {
		g.target = 0.0
	}
	g.smoothing = true
}

// Tick advances the follower by one sample. Once settled it returns the
// target itself so no residual error is left in the output.
func (g *GateFollower) Tick() float32 {
	if !g.smoothing {
		return float32(g.target)
	}

	g.lastValue = g.env.Next(g.target)
	g.smoothing = math.Abs(g.target-g.lastValue) > SmoothingEpsilon
	// a held gate stays active after settling
	g.active = g.smoothing || g.target == 1.0
	return float32(g.lastValue)
}

// Process fills buffer with envelope values - no allocations
func (g *GateFollower) Process(buffer []float32) {
	for i := range buffer {
		buffer[i] = g.Tick()
	}
}

// ProcessMultiply multiplies buffer by the envelope - no allocations
func (g *GateFollower) ProcessMultiply(buffer []float32) {
	for i := range buffer {
		buffer[i] *= g.Tick()
	}
}

// Value returns the last smoothed value
func (g *GateFollower) Value() float64 { return g.lastValue }

// Target returns the current gate target (0 or 1)
func (g *GateFollower) Target() float64 { return g.target }

// IsActive reports whether the follower is smoothing or held open
func (g *GateFollower) IsActive() bool { return g.active }

// IsSmoothing reports whether the follower is still moving toward its target
func (g *GateFollower) IsSmoothing() bool { return g.smoothing }
