package node

import (
	"fmt"

	"github.com/justyntemme/envnode/pkg/dsp"
	"github.com/justyntemme/envnode/pkg/dsp/envelope"
	"github.com/justyntemme/envnode/pkg/framework/param"
	"github.com/justyntemme/envnode/pkg/framework/voice"
	"github.com/justyntemme/envnode/pkg/midi"
)

// SimpleAR parameter ids
const (
	ARAttack uint32 = iota
	ARRelease
	ARGate
)

// SimpleAR defaults
const (
	DefaultARAttackMs  = 10.0
	DefaultARReleaseMs = 10.0
)

// SimpleAR is a gate follower node: each voice chases 1 while its gate is
// open and 0 once it closes.
type SimpleAR struct {
	base

	voices          voice.Slots[envelope.GateFollower]
	attack, release *param.Parameter
}

// NewSimpleAR creates a SimpleAR node with default parameters.
func NewSimpleAR() *SimpleAR {
	n := &SimpleAR{}
	n.attack = followerTimeParam(ARAttack, "Attack", "A", DefaultARAttackMs)
	n.release = followerTimeParam(ARRelease, "Release", "R", DefaultARReleaseMs)
	gate := param.New(ARGate, "Gate").ShortName("G").Toggle().Build()

	n.setup("simple_ar", gate, n.attack, n.release)
	return n
}

func followerTimeParam(id uint32, name, short string, def float64) *param.Parameter {
	return param.New(id, name).
		ShortName(short).
		Range(0, dsp.MaxGateFollowerTimeMs).
		SkewCentre(dsp.GateFollowerCentreMs).
		Default(def).
		Unit("ms").
		Formatter(param.TimeFormatter, param.TimeParser).
		Build()
}

// Prepare allocates the voice slots and applies the current parameters.
func (n *SimpleAR) Prepare(specs Specs) error {
	if err := specs.Validate(); err != nil {
		return fmt.Errorf("simple_ar prepare: %w", err)
	}
	n.specs = specs
	n.voices.Prepare(specs.NumVoices)
	voices := n.voices.All()
	for i := range voices {
		voices[i].Init(specs.SampleRate, n.attack.GetPlainValue(), n.release.GetPlainValue())
	}
	n.invalidate()
	n.syncParams(n.applyParam)
	n.keys.Reset()
	n.prepared = true

	n.log.With("rate", specs.SampleRate, "voices", specs.NumVoices).Info("prepared")
	return nil
}

// Reset returns every voice to 0.
func (n *SimpleAR) Reset() {
	voices := n.voices.All()
	for i := range voices {
		voices[i].Reset()
	}
	n.keys.Reset()
}

// ResetVoice silences voice index, or every voice when all is set.
func (n *SimpleAR) ResetVoice(index int, all bool) {
	voices := n.voices.All()
	for i := range voices {
		if !all && i != index {
			continue
		}
		wasActive, last := voices[i].IsActive(), voices[i].Value()
		voices[i].Reset()
		n.post.Run(i, wasActive, last, false, 0)
	}
	if all {
		n.keys.Reset()
	}
}

// SetVoiceIndex selects the voice rendered by the next calls, -1 for none.
func (n *SimpleAR) SetVoiceIndex(index int) {
	n.voices.SetCurrent(index)
}

// NumVoices returns the number of prepared voices.
func (n *SimpleAR) NumVoices() int {
	return n.voices.Len()
}

// HandleEvent gates voices from note events.
func (n *SimpleAR) HandleEvent(e midi.Event) {
	n.handleEvent(e, n.voices.IsPolyphonic(), n.setVoiceGate)
}

func (n *SimpleAR) setVoiceGate(on bool) {
	voices := n.voices.Active()
	for i := range voices {
		voices[i].SetGate(on)
	}
}

// Process multiplies every channel of data by the selected voice's follower.
func (n *SimpleAR) Process(data [][]float32) {
	g := n.begin()
	if g == nil {
		return
	}
	wasActive, last := g.IsActive(), g.Value()
	processBlock(g, data)
	n.post.Run(n.voiceIndex(), wasActive, last, g.IsActive(), g.Value())
}

// ProcessFrame multiplies one frame by a single follower step.
func (n *SimpleAR) ProcessFrame(frame []float32) {
	g := n.begin()
	if g == nil {
		return
	}
	wasActive, last := g.IsActive(), g.Value()
	processFrame(g, frame)
	n.post.Run(n.voiceIndex(), wasActive, last, g.IsActive(), g.Value())
}

func (n *SimpleAR) begin() *envelope.GateFollower {
	if !n.prepared {
		return nil
	}
	n.syncParams(n.applyParam)
	if on, ok := n.takeGate(); ok {
		n.setVoiceGate(on)
	}
	return n.voices.Current()
}

func (n *SimpleAR) voiceIndex() int {
	if i := n.voices.CurrentIndex(); i >= 0 {
		return i
	}
	return 0
}

func (n *SimpleAR) applyParam(id uint32, v float64) {
	voices := n.voices.All()
	for i := range voices {
		switch id {
		case ARAttack:
			voices[i].SetAttack(v)
		case ARRelease:
			voices[i].SetRelease(v)
		}
	}
}

// ModValue returns the selected voice's last value.
func (n *SimpleAR) ModValue() float64 {
	if g := n.voices.Current(); g != nil {
		return g.Value()
	}
	return 0
}

// IsActive reports whether the selected voice is open or still moving.
func (n *SimpleAR) IsActive() bool {
	if g := n.voices.Current(); g != nil {
		return g.IsActive()
	}
	return false
}

// IsVoiceActive reports whether voice index is open or still moving.
func (n *SimpleAR) IsVoiceActive(index int) bool {
	if g := n.voices.At(index); g != nil {
		return g.IsActive()
	}
	return false
}

// SetAttack sets the attack time in milliseconds (0-1000).
func (n *SimpleAR) SetAttack(ms float64) { n.attack.SetPlainValue(ms) }

// SetRelease sets the release time in milliseconds (0-1000).
func (n *SimpleAR) SetRelease(ms float64) { n.release.SetPlainValue(ms) }

var (
	_ voice.ActivityReporter = (*SimpleAR)(nil)
	_ voice.Resetter         = (*SimpleAR)(nil)
)
