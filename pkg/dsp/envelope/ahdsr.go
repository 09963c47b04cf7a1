package envelope

import (
	"math"

	"github.com/justyntemme/envnode/pkg/dsp"
)

// Stage represents the current envelope stage
type Stage int

const (
	// StageAttack rises toward the attack level
	StageAttack Stage = iota
	// StageHold keeps the attack level for the hold time
	StageHold
	// StageDecay falls toward the sustain level
	StageDecay
	// StageSustain holds the sustain level until gate-off
	StageSustain
	// StageRetrigger restarts the attack of an already active voice
	StageRetrigger
	// StageRelease falls toward zero after gate-off
	StageRelease
	// StageIdle produces silence
	StageIdle
)

// String returns the stage name
func (s Stage) String() string {
	switch s {
	case StageAttack:
		return "Attack"
	case StageHold:
		return "Hold"
	case StageDecay:
		return "Decay"
	case StageSustain:
		return "Sustain"
	case StageRetrigger:
		return "Retrigger"
	case StageRelease:
		return "Release"
	case StageIdle:
		return "Idle"
	default:
		return "Unknown"
	}
}

// Chain indexes the per-voice modulation multipliers
type Chain int

const (
	// AttackTimeChain scales the attack time
	AttackTimeChain Chain = iota
	// AttackLevelChain scales the attack level
	AttackLevelChain
	// DecayTimeChain scales the decay time
	DecayTimeChain
	// SustainLevelChain scales the sustain level
	SustainLevelChain
	// ReleaseTimeChain scales the release time
	ReleaseTimeChain
	// NumChains is the number of modulation chains
	NumChains
)

// sustainShare is the share of the UI path drawn for the sustain segment,
// relative to the sum of all timed segments.
const sustainShare = 0.25

// Params holds the envelope settings shared by every voice of one generator.
// Setters clamp their input and report whether the stored value changed.
// Params is not synchronized; the owner applies changes on the audio thread.
type Params struct {
	sampleRate float64

	attackMs    float64
	attackLevel float64
	attackCurve float64
	attackRatio float64

	holdMs      float64
	holdSamples int

	decayMs    float64
	decayCurve float64
	ratioDR    float64

	sustain   float64
	releaseMs float64
}

// NewParams creates envelope parameters with default settings
func NewParams(sampleRate float64) *Params {
	p := &Params{
		sampleRate:  sampleRate,
		attackMs:    10.0,
		attackLevel: 1.0,
		holdMs:      20.0,
		decayMs:     300.0,
		sustain:     0.5,
		releaseMs:   20.0,
	}
	p.SetAttackCurve(0.5)
	p.SetDecayCurve(1.0)
	p.updateHold()
	return p
}

func clampTime(ms float64) float64 {
	return clamp(ms, dsp.MinEnvelopeTimeMs, dsp.MaxEnvelopeTimeMs)
}

func (p *Params) updateHold() {
	if p.holdMs <= dsp.MinEnvelopeTimeMs {
		p.holdSamples = 0
		return
	}
	p.holdSamples = int(math.Round(dsp.MsToSamples(p.holdMs, p.sampleRate)))
}

// SetSampleRate sets the sample rate used for all coefficients
func (p *Params) SetSampleRate(sampleRate float64) bool {
	if sampleRate <= 0 || sampleRate == p.sampleRate {
		return false
	}
	p.sampleRate = sampleRate
	p.updateHold()
	return true
}

// SetAttack sets the attack time in milliseconds
func (p *Params) SetAttack(ms float64) bool {
	ms = clampTime(ms)
	if ms == p.attackMs {
		return false
	}
	p.attackMs = ms
	return true
}

// SetAttackLevel sets the peak level reached by the attack (0-1)
func (p *Params) SetAttackLevel(level float64) bool {
	level = clamp(level, dsp.MinLevel, dsp.MaxLevel)
	if level == p.attackLevel {
		return false
	}
	p.attackLevel = level
	return true
}

// SetAttackCurve sets the attack shape, 0 for a linear ramp up to 1 for a steep exponential
func (p *Params) SetAttackCurve(curve float64) bool {
	curve = clamp(curve, 0, 1)
	if curve == p.attackCurve && p.attackRatio != 0 {
		return false
	}
	p.attackCurve = curve
	p.attackRatio = CurveToRatio(curve)
	return true
}

// SetTargetRatioA sets the attack target ratio directly
func (p *Params) SetTargetRatioA(ratio float64) bool {
	ratio = math.Max(MinRatio, ratio)
	if ratio == p.attackRatio {
		return false
	}
	p.attackRatio = ratio
	return true
}

// SetHold sets the hold time in milliseconds. Times at the minimum skip the hold stage.
func (p *Params) SetHold(ms float64) bool {
	ms = clampTime(ms)
	if ms == p.holdMs {
		return false
	}
	p.holdMs = ms
	p.updateHold()
	return true
}

// SetDecay sets the decay time in milliseconds
func (p *Params) SetDecay(ms float64) bool {
	ms = clampTime(ms)
	if ms == p.decayMs {
		return false
	}
	p.decayMs = ms
	return true
}

// SetDecayCurve sets the shape shared by decay and release, like SetAttackCurve
func (p *Params) SetDecayCurve(curve float64) bool {
	curve = clamp(curve, 0, 1)
	if curve == p.decayCurve && p.ratioDR != 0 {
		return false
	}
	p.decayCurve = curve
	p.ratioDR = CurveToRatio(curve)
	return true
}

// SetTargetRatioDR sets the decay/release target ratio directly
func (p *Params) SetTargetRatioDR(ratio float64) bool {
	ratio = math.Max(MinRatio, ratio)
	if ratio == p.ratioDR {
		return false
	}
	p.ratioDR = ratio
	return true
}

// SetSustain sets the sustain level (0-1)
func (p *Params) SetSustain(level float64) bool {
	level = clamp(level, dsp.MinLevel, dsp.MaxLevel)
	if level == p.sustain {
		return false
	}
	p.sustain = level
	return true
}

// SetRelease sets the release time in milliseconds
func (p *Params) SetRelease(ms float64) bool {
	ms = clampTime(ms)
	if ms == p.releaseMs {
		return false
	}
	p.releaseMs = ms
	return true
}

// SampleRate returns the sample rate
func (p *Params) SampleRate() float64 { return p.sampleRate }

// Attack returns the attack time in milliseconds
func (p *Params) Attack() float64 { return p.attackMs }

// AttackLevel returns the attack peak level
func (p *Params) AttackLevel() float64 { return p.attackLevel }

// AttackCurve returns the attack curve amount (0-1)
func (p *Params) AttackCurve() float64 { return p.attackCurve }

// Hold returns the hold time in milliseconds
func (p *Params) Hold() float64 { return p.holdMs }

// HoldSamples returns the hold time in samples, 0 when hold is skipped
func (p *Params) HoldSamples() int { return p.holdSamples }

// Decay returns the decay time in milliseconds
func (p *Params) Decay() float64 { return p.decayMs }

// DecayCurve returns the decay/release curve amount (0-1)
func (p *Params) DecayCurve() float64 { return p.decayCurve }

// Sustain returns the sustain level
func (p *Params) Sustain() float64 { return p.sustain }

// Release returns the release time in milliseconds
func (p *Params) Release() float64 { return p.releaseMs }

// TargetRatioA returns the attack target ratio
func (p *Params) TargetRatioA() float64 { return p.attackRatio }

// TargetRatioDR returns the decay/release target ratio
func (p *Params) TargetRatioDR() float64 { return p.ratioDR }

// State is the per-voice record of a shaped AHDSR envelope. The zero value
// is unusable; call Init with the shared parameters first.
type State struct {
	params *Params

	stage       Stage
	value       float64
	holdCounter int
	elapsed     int // samples spent in the current stage, kept across blocks

	mod [NumChains]float64

	attackTime  float64
	attackLevel float64
	attackBase  float64
	attackCoef  float64

	decayTime    float64
	decayBase    float64
	decayCoef    float64
	decayDown    bool
	sustainLevel float64

	releaseTime float64
	releaseBase float64
	releaseCoef float64

	lastSustainValue float64
	active           bool
}

// NewState creates a voice state bound to params
func NewState(params *Params) *State {
	s := &State{}
	s.Init(params)
	return s
}

// Init binds the state to params and resets it to idle
func (s *State) Init(params *Params) {
	s.params = params
	for i := range s.mod {
		s.mod[i] = 1.0
	}
	s.Reset()
	s.Refresh()
}

// Reset returns the voice to idle immediately
func (s *State) Reset() {
	s.stage = StageIdle
	s.value = 0
	s.holdCounter = 0
	s.elapsed = 0
	s.lastSustainValue = 0
	s.active = false
}

// Refresh recomputes every cached segment coefficient
func (s *State) Refresh() {
	s.RefreshAttack()
	s.RefreshDecay()
	s.RefreshRelease()
}

// RefreshAttack recomputes the attack coefficients
func (s *State) RefreshAttack() {
	p := s.params
	s.attackTime = p.attackMs * s.mod[AttackTimeChain]
	s.attackLevel = clamp(p.attackLevel*s.mod[AttackLevelChain], dsp.MinLevel, dsp.MaxLevel)
	s.attackBase, s.attackCoef = CalculateCoefficients(p.sampleRate, s.attackTime, 0, s.attackLevel, p.attackRatio)
}

// RefreshDecay recomputes the decay coefficients and the sustain level
func (s *State) RefreshDecay() {
	p := s.params
	s.decayTime = p.decayMs * s.mod[DecayTimeChain]
	s.sustainLevel = clamp(p.sustain*s.mod[SustainLevelChain], dsp.MinLevel, dsp.MaxLevel)
	s.decayDown = s.attackLevel >= s.sustainLevel
	s.decayBase, s.decayCoef = CalculateCoefficients(p.sampleRate, s.decayTime, s.attackLevel, s.sustainLevel, p.ratioDR)
}

// RefreshRelease recomputes the release coefficients. The release always
// starts from the value captured at gate-off, never the current sustain setting.
func (s *State) RefreshRelease() {
	p := s.params
	s.releaseTime = p.releaseMs * s.mod[ReleaseTimeChain]
	s.releaseBase, s.releaseCoef = CalculateCoefficients(p.sampleRate, s.releaseTime, s.lastSustainValue, 0, p.ratioDR)
}

// SetModValue sets a per-voice modulation multiplier and refreshes the affected segments
func (s *State) SetModValue(chain Chain, value float64) {
	if chain < 0 || chain >= NumChains {
		return
	}
	value = math.Max(0, value)
	if s.mod[chain] == value {
		return
	}
	s.mod[chain] = value

	switch chain {
	case AttackTimeChain:
		s.RefreshAttack()
	case AttackLevelChain:
		s.RefreshAttack()
		s.RefreshDecay()
	case DecayTimeChain, SustainLevelChain:
		s.RefreshDecay()
	case ReleaseTimeChain:
		s.RefreshRelease()
	}
}

// ModValue returns a per-voice modulation multiplier
func (s *State) ModValue(chain Chain) float64 {
	if chain < 0 || chain >= NumChains {
		return 0
	}
	return s.mod[chain]
}

// SetGate opens or closes the gate. Opening an active voice retriggers it;
// closing an idle voice does nothing.
func (s *State) SetGate(on bool) {
	if on {
		if s.stage == StageIdle {
			s.setStage(StageAttack)
			s.value = 0
		} else {
			s.setStage(StageRetrigger)
		}
		s.holdCounter = 0
		return
	}

	if s.stage != StageIdle {
		s.lastSustainValue = s.value
		s.RefreshRelease()
		s.setStage(StageRelease)
	}
}

func (s *State) setStage(stage Stage) {
	s.stage = stage
	s.elapsed = 0
}

// Tick advances the envelope by one sample and returns the new value
func (s *State) Tick() float32 {
	switch s.stage {
	case StageIdle:
		s.value = 0

	case StageRetrigger:
		s.setStage(StageAttack)
		s.tickAttack()

	case StageAttack:
		s.tickAttack()

	case StageHold:
		s.holdCounter++
		if s.holdCounter >= s.params.holdSamples {
			s.setStage(StageDecay)
		}

	case StageDecay:
		s.value = s.decayBase + s.value*s.decayCoef
		if (s.decayDown && s.value <= s.sustainLevel+Tolerance) ||
			(!s.decayDown && s.value >= s.sustainLevel-Tolerance) {
			s.value = s.sustainLevel
			s.setStage(StageSustain)
		}

	case StageSustain:
		s.value = s.sustainLevel

	case StageRelease:
		s.value = s.releaseBase + s.value*s.releaseCoef
		if s.value <= Tolerance {
			s.value = 0
			s.setStage(StageIdle)
		}
	}

	s.elapsed++
	s.active = s.stage != StageIdle
	return float32(s.value)
}

func (s *State) tickAttack() {
	if s.value < s.attackLevel-Tolerance {
		s.value = s.attackBase + s.value*s.attackCoef
		if s.value < s.attackLevel-Tolerance {
			return
		}
		s.value = s.attackLevel
	}

	// A retrigger from above the attack level keeps its value and moves on.
	if s.params.holdSamples > 0 {
		s.setStage(StageHold)
	} else {
		s.setStage(StageDecay)
	}
}

// Process fills buffer with envelope values - no allocations
func (s *State) Process(buffer []float32) {
	for i := range buffer {
		buffer[i] = s.Tick()
	}
}

// ProcessMultiply multiplies buffer by the envelope - no allocations
func (s *State) ProcessMultiply(buffer []float32) {
	for i := range buffer {
		buffer[i] *= s.Tick()
	}
}

// UIPosition returns the normalized position (0-1) of the voice along a path
// made of all segments, given the time spent in the current stage. It only
// reads state and is meant for monitoring.
func (s *State) UIPosition(elapsedMs float64) float64 {
	a := s.attackTime
	h := s.params.holdMs
	if s.params.holdSamples == 0 {
		h = 0
	}
	d := s.decayTime
	r := s.releaseTime
	sus := (a + h + d + r) * sustainShare
	total := a + h + d + sus + r
	if total <= 0 || elapsedMs < 0 {
		return 0
	}

	var pos float64
	switch s.stage {
	case StageAttack, StageRetrigger:
		pos = math.Min(elapsedMs, a)
	case StageHold:
		pos = a + math.Min(elapsedMs, h)
	case StageDecay:
		pos = a + h + math.Min(elapsedMs, d)
	case StageSustain:
		pos = a + h + d + sus*0.5
	case StageRelease:
		pos = a + h + d + sus + math.Min(elapsedMs, r)
	default:
		return 0
	}
	return pos / total
}

// Stage returns the current envelope stage
func (s *State) Stage() Stage { return s.stage }

// Value returns the last output value
func (s *State) Value() float64 { return s.value }

// IsActive reports whether the voice produced output on its last tick
func (s *State) IsActive() bool { return s.active }

// ElapsedSamples returns the number of ticks spent in the current stage
func (s *State) ElapsedSamples() int { return s.elapsed }

// LastSustainValue returns the value captured when the release started
func (s *State) LastSustainValue() float64 { return s.lastSustainValue }

// SustainLevel returns the modulated sustain level of this voice
func (s *State) SustainLevel() float64 { return s.sustainLevel }

// AttackLevel returns the modulated attack level of this voice
func (s *State) AttackLevel() float64 { return s.attackLevel }
