package node

import (
	"fmt"

	"github.com/justyntemme/envnode/pkg/dsp"
	"github.com/justyntemme/envnode/pkg/dsp/envelope"
	"github.com/justyntemme/envnode/pkg/framework/monitor"
	"github.com/justyntemme/envnode/pkg/framework/param"
	"github.com/justyntemme/envnode/pkg/framework/voice"
	"github.com/justyntemme/envnode/pkg/midi"
)

// AHDSR parameter ids
const (
	AHDSRAttack uint32 = iota
	AHDSRAttackLevel
	AHDSRDecay
	AHDSRHold
	AHDSRSustain
	AHDSRRelease
	AHDSRAttackCurve
	AHDSRGate
)

// AHDSR defaults
const (
	DefaultAttackMs    = 10.0
	DefaultAttackLevel = 1.0
	DefaultHoldMs      = 20.0
	DefaultDecayMs     = 300.0
	DefaultSustain     = 0.5
	DefaultReleaseMs   = 20.0
	DefaultAttackCurve = 0.5
)

// AHDSR is a polyphonic attack-hold-decay-sustain-release envelope node.
// Timing and level parameters are shared by all voices; each voice keeps its
// own stage, value and modulation multipliers.
type AHDSR struct {
	base

	params *envelope.Params
	voices voice.Slots[envelope.State]

	attack, attackLevel, decay, hold *param.Parameter
	sustain, release, attackCurve    *param.Parameter

	throttle  monitor.Throttle
	sink      monitor.Sink
	stageSink monitor.StageSink
}

// NewAHDSR creates an AHDSR node with default parameters. Call Prepare
// before processing.
func NewAHDSR() *AHDSR {
	n := &AHDSR{params: envelope.NewParams(dsp.SampleRate44k1)}

	n.attack = timeParam(AHDSRAttack, "Attack", "A", DefaultAttackMs)
	n.attackLevel = levelParam(AHDSRAttackLevel, "AttackLevel", "AL", DefaultAttackLevel)
	n.decay = timeParam(AHDSRDecay, "Decay", "D", DefaultDecayMs)
	n.hold = timeParam(AHDSRHold, "Hold", "H", DefaultHoldMs)
	n.sustain = levelParam(AHDSRSustain, "Sustain", "S", DefaultSustain)
	n.release = timeParam(AHDSRRelease, "Release", "R", DefaultReleaseMs)
	n.attackCurve = param.New(AHDSRAttackCurve, "AttackCurve").
		ShortName("C").
		Range(0, 1).
		Default(DefaultAttackCurve).
		Formatter(param.CurveFormatter, nil).
		Build()
	gate := param.New(AHDSRGate, "Gate").ShortName("G").Toggle().Build()

	n.setup("ahdsr", gate,
		n.attack, n.attackLevel, n.decay, n.hold, n.sustain, n.release, n.attackCurve)
	return n
}

func timeParam(id uint32, name, short string, def float64) *param.Parameter {
	return param.New(id, name).
		ShortName(short).
		Range(0, dsp.MaxEnvelopeTimeMs).
		SkewCentre(dsp.EnvelopeTimeCentreMs).
		Default(def).
		Unit("ms").
		Formatter(param.TimeFormatter, param.TimeParser).
		Build()
}

func levelParam(id uint32, name, short string, def float64) *param.Parameter {
	return param.New(id, name).
		ShortName(short).
		Range(dsp.MinLevel, dsp.MaxLevel).
		Default(def).
		Formatter(param.LevelFormatter, param.LevelParser).
		Build()
}

// Prepare allocates the voice slots and applies the current parameters.
// It allocates and must not run on the audio thread.
func (n *AHDSR) Prepare(specs Specs) error {
	if err := specs.Validate(); err != nil {
		return fmt.Errorf("ahdsr prepare: %w", err)
	}
	n.specs = specs
	n.params.SetSampleRate(specs.SampleRate)
	n.voices.Prepare(specs.NumVoices)
	for i := range n.voices.All() {
		n.voices.At(i).Init(n.params)
	}
	n.invalidate()
	n.syncParams(n.applyParam)
	n.keys.Reset()
	n.throttle.LimitToFrameRate(specs.SampleRate, dsp.MonitorFrameRate)
	n.prepared = true

	n.log.With("rate", specs.SampleRate, "block", specs.BlockSize, "voices", specs.NumVoices).
		Info("prepared")
	return nil
}

// Reset returns every voice to idle.
func (n *AHDSR) Reset() {
	for i := range n.voices.All() {
		n.voices.At(i).Reset()
	}
	n.keys.Reset()
	n.throttle.Reset()
}

// ResetVoice silences voice index, or every voice when all is set, and
// reports the change of activity to the listener.
func (n *AHDSR) ResetVoice(index int, all bool) {
	for i := range n.voices.All() {
		if !all && i != index {
			continue
		}
		s := n.voices.At(i)
		wasActive, last := s.IsActive(), s.Value()
		s.Reset()
		n.post.Run(i, wasActive, last, false, 0)
	}
	if all {
		n.keys.Reset()
	}
}

// SetVoiceIndex selects the voice rendered by the next calls. -1 selects none,
// which makes gate writes reach every voice.
func (n *AHDSR) SetVoiceIndex(index int) {
	n.voices.SetCurrent(index)
}

// VoiceIndex returns the selected voice, or -1.
func (n *AHDSR) VoiceIndex() int {
	return n.voices.CurrentIndex()
}

// NumVoices returns the number of prepared voices.
func (n *AHDSR) NumVoices() int {
	return n.voices.Len()
}

// HandleEvent gates voices from note events.
func (n *AHDSR) HandleEvent(e midi.Event) {
	n.handleEvent(e, n.voices.IsPolyphonic(), n.setVoiceGate)
}

func (n *AHDSR) setVoiceGate(on bool) {
	voices := n.voices.Active()
	for i := range voices {
		voices[i].SetGate(on)
	}
}

// Process multiplies every channel of data by the selected voice's envelope.
// It does nothing before Prepare.
func (n *AHDSR) Process(data [][]float32) {
	s := n.begin()
	if s == nil {
		return
	}
	wasActive, last := s.IsActive(), s.Value()
	processBlock(s, data)
	n.post.Run(n.voiceIndex(), wasActive, last, s.IsActive(), s.Value())

	numSamples := 0
	if len(data) > 0 {
		numSamples = len(data[0])
	}
	n.updateMonitor(s, numSamples)
}

// ProcessFrame multiplies one frame of channel values by a single envelope
// step of the selected voice.
func (n *AHDSR) ProcessFrame(frame []float32) {
	s := n.begin()
	if s == nil {
		return
	}
	wasActive, last := s.IsActive(), s.Value()
	processFrame(s, frame)
	n.post.Run(n.voiceIndex(), wasActive, last, s.IsActive(), s.Value())
	n.updateMonitor(s, 1)
}

// begin applies pending parameter and gate writes and returns the voice to render.
func (n *AHDSR) begin() *envelope.State {
	if !n.prepared {
		return nil
	}
	n.syncParams(n.applyParam)
	if on, ok := n.takeGate(); ok {
		n.setVoiceGate(on)
	}
	return n.voices.Current()
}

func (n *AHDSR) voiceIndex() int {
	if i := n.voices.CurrentIndex(); i >= 0 {
		return i
	}
	return 0
}

func (n *AHDSR) applyParam(id uint32, v float64) {
	p := n.params
	var changed bool
	switch id {
	case AHDSRAttack:
		changed = p.SetAttack(v)
	case AHDSRAttackLevel:
		changed = p.SetAttackLevel(v)
	case AHDSRDecay:
		changed = p.SetDecay(v)
	case AHDSRHold:
		// Hold is read from the shared params on every tick.
		p.SetHold(v)
		return
	case AHDSRSustain:
		changed = p.SetSustain(v)
	case AHDSRRelease:
		changed = p.SetRelease(v)
	case AHDSRAttackCurve:
		changed = p.SetAttackCurve(v)
	}
	if !changed {
		return
	}

	voices := n.voices.All()
	for i := range voices {
		s := &voices[i]
		switch id {
		case AHDSRAttack, AHDSRAttackCurve:
			s.RefreshAttack()
		case AHDSRAttackLevel:
			s.RefreshAttack()
			s.RefreshDecay()
		case AHDSRDecay, AHDSRSustain:
			s.RefreshDecay()
		case AHDSRRelease:
			s.RefreshRelease()
		}
	}
}

func (n *AHDSR) updateMonitor(s *envelope.State, numSamples int) {
	if n.sink == nil || !n.throttle.ShouldUpdate(numSamples) {
		return
	}
	elapsed := dsp.SamplesToMs(float64(s.ElapsedSamples()), n.specs.SampleRate)
	pos := s.UIPosition(elapsed)
	if n.stageSink != nil {
		n.stageSink.SendState(pos, s.Value(), s.Stage())
		return
	}
	n.sink.SendPosition(pos)
}

// SetMonitor sets the receiver of display positions. Nil disables monitoring.
func (n *AHDSR) SetMonitor(sink monitor.Sink) {
	n.sink = sink
	n.stageSink, _ = sink.(monitor.StageSink)
}

// SetVoiceModulation sets a modulation multiplier of one voice.
func (n *AHDSR) SetVoiceModulation(index int, chain envelope.Chain, value float64) error {
	if !n.prepared {
		return ErrNotPrepared
	}
	s := n.voices.At(index)
	if s == nil {
		return fmt.Errorf("voice %d out of range (%d voices)", index, n.voices.Len())
	}
	s.SetModValue(chain, value)
	return nil
}

// ModValue returns the selected voice's last envelope value.
func (n *AHDSR) ModValue() float64 {
	if s := n.voices.Current(); s != nil {
		return s.Value()
	}
	return 0
}

// IsActive reports whether the selected voice is producing output.
func (n *AHDSR) IsActive() bool {
	if s := n.voices.Current(); s != nil {
		return s.IsActive()
	}
	return false
}

// IsVoiceActive reports whether voice index is producing output.
func (n *AHDSR) IsVoiceActive(index int) bool {
	if s := n.voices.At(index); s != nil {
		return s.IsActive()
	}
	return false
}

// Stage returns the selected voice's stage.
func (n *AHDSR) Stage() envelope.Stage {
	if s := n.voices.Current(); s != nil {
		return s.Stage()
	}
	return envelope.StageIdle
}

// Voice returns the state of voice index for inspection, or nil.
func (n *AHDSR) Voice(index int) *envelope.State {
	return n.voices.At(index)
}

// SetAttack sets the attack time in milliseconds (0-10000).
func (n *AHDSR) SetAttack(ms float64) { n.attack.SetPlainValue(ms) }

// SetAttackLevel sets the attack peak (0-1).
func (n *AHDSR) SetAttackLevel(level float64) { n.attackLevel.SetPlainValue(level) }

// SetHold sets the hold time in milliseconds (0-10000).
func (n *AHDSR) SetHold(ms float64) { n.hold.SetPlainValue(ms) }

// SetDecay sets the decay time in milliseconds (0-10000).
func (n *AHDSR) SetDecay(ms float64) { n.decay.SetPlainValue(ms) }

// SetSustain sets the sustain level (0-1).
func (n *AHDSR) SetSustain(level float64) { n.sustain.SetPlainValue(level) }

// SetRelease sets the release time in milliseconds (0-10000).
func (n *AHDSR) SetRelease(ms float64) { n.release.SetPlainValue(ms) }

// SetAttackCurve sets the attack shape, 0 linear to 1 steep.
func (n *AHDSR) SetAttackCurve(curve float64) { n.attackCurve.SetPlainValue(curve) }

var (
	_ voice.ActivityReporter = (*AHDSR)(nil)
	_ voice.Resetter         = (*AHDSR)(nil)
)
