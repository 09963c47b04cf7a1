package node

import (
	"fmt"

	"github.com/justyntemme/envnode/pkg/dsp"
	"github.com/justyntemme/envnode/pkg/framework/debug"
	"github.com/justyntemme/envnode/pkg/framework/param"
	"github.com/justyntemme/envnode/pkg/framework/voice"
	"github.com/justyntemme/envnode/pkg/midi"
)

// SilentKiller parameter ids
const (
	SilentKillerThreshold uint32 = iota
	SilentKillerActive
)

// Silence threshold range and default in dB
const (
	MinSilenceThresholdDb     = -120.0
	MaxSilenceThresholdDb     = -60.0
	DefaultSilenceThresholdDb = -100.0
)

// SilentKiller frees voices that have died away. A note-on marks the
// selected voice. Once no note is held, the first block whose first channel
// peaks below the threshold clears the mark and hands the voice to the
// Resetter. Audio passes through unchanged.
//
// Held notes are counted across all voices, so a voice is not freed while
// any note is down.
type SilentKiller struct {
	specs    Specs
	prepared bool

	registry          *param.Registry
	threshold, active *param.Parameter

	voices   voice.Slots[bool]
	held     voice.GateTracker
	resetter voice.Resetter
	log      *debug.Logger
}

// NewSilentKiller creates a SilentKiller with default parameters.
func NewSilentKiller() *SilentKiller {
	k := &SilentKiller{}
	k.threshold = param.New(SilentKillerThreshold, "Threshold").
		ShortName("T").
		Range(MinSilenceThresholdDb, MaxSilenceThresholdDb).
		Steps(int32(MaxSilenceThresholdDb-MinSilenceThresholdDb)).
		Default(DefaultSilenceThresholdDb).
		Unit("dB").
		Formatter(param.DecibelFormatter, param.DecibelParser).
		Build()
	k.active = param.New(SilentKillerActive, "Active").ShortName("On").Toggle().Default(1).Build()

	k.registry = param.NewRegistry()
	if err := k.registry.Add(k.threshold, k.active); err != nil {
		panic(fmt.Sprintf("silent_killer: %v", err))
	}
	k.log = debug.Default().Named("silent_killer")
	return k
}

// Prepare allocates one mark per voice.
func (k *SilentKiller) Prepare(specs Specs) error {
	if err := specs.Validate(); err != nil {
		return fmt.Errorf("silent_killer prepare: %w", err)
	}
	k.specs = specs
	k.voices.Prepare(specs.NumVoices)
	k.held.Reset()
	k.prepared = true
	return nil
}

// Reset clears every mark and forgets held notes.
func (k *SilentKiller) Reset() {
	marks := k.voices.All()
	for i := range marks {
		marks[i] = false
	}
	k.held.Reset()
}

// SetVoiceIndex selects the voice checked by the next Process call.
func (k *SilentKiller) SetVoiceIndex(index int) {
	k.voices.SetCurrent(index)
}

// NumVoices returns the number of prepared voices.
func (k *SilentKiller) NumVoices() int {
	return k.voices.Len()
}

// SetResetter sets the receiver of voice resets.
func (k *SilentKiller) SetResetter(r voice.Resetter) {
	k.resetter = r
}

// SetLogger replaces the logger.
func (k *SilentKiller) SetLogger(l *debug.Logger) {
	if l != nil {
		k.log = l
	}
}

// Parameters exposes the threshold and active switch.
func (k *SilentKiller) Parameters() *param.Registry {
	return k.registry
}

// SetParameter writes a parameter by id in plain units.
func (k *SilentKiller) SetParameter(id uint32, plain float64) error {
	p := k.registry.Get(id)
	if p == nil {
		return fmt.Errorf("%w: id %d", ErrUnknownParameter, id)
	}
	p.SetPlainValue(plain)
	return nil
}

// SetThreshold sets the silence threshold in dB (-120 to -60).
func (k *SilentKiller) SetThreshold(db float64) { k.threshold.SetPlainValue(db) }

// SetActive switches voice freeing on or off.
func (k *SilentKiller) SetActive(on bool) {
	if on {
		k.active.SetPlainValue(1)
	} else {
		k.active.SetPlainValue(0)
	}
}

// IsMarked reports whether voice index has sounded since it was last freed.
func (k *SilentKiller) IsMarked(index int) bool {
	if m := k.voices.At(index); m != nil {
		return *m
	}
	return false
}

// HandleEvent tracks held notes and marks the selected voice on note-on.
func (k *SilentKiller) HandleEvent(e midi.Event) {
	if cc, ok := e.(midi.ControlChangeEvent); ok {
		if cc.Controller == midi.CCAllNotesOff || cc.Controller == midi.CCAllSoundOff {
			k.held.Reset()
		}
		return
	}

	key, ok := midi.NoteKey(e)
	if !ok {
		return
	}
	if !midi.IsNoteOn(e) {
		k.held.NoteOff(key)
		return
	}
	k.held.NoteOn(key)
	if m := k.voices.Current(); m != nil {
		*m = true
	}
}

// Process checks the first channel of data and frees the selected voice when
// it has gone silent. It does nothing before Prepare.
func (k *SilentKiller) Process(data [][]float32) {
	if !k.prepared || len(data) == 0 {
		return
	}
	m := k.voices.Current()
	if !*m || k.active.GetPlainValue() <= dsp.GateThreshold || k.held.IsOpen() {
		return
	}
	if float64(dsp.Peak(data[0])) >= dsp.DbToGain(k.threshold.GetPlainValue()) {
		return
	}

	*m = false
	index := k.voices.CurrentIndex()
	if index < 0 {
		index = 0
	}
	k.log.With("voice", index).Debug("silent, freeing")
	if k.resetter != nil {
		k.resetter.ResetVoice(index, false)
	}
}

// VoiceManager parameter ids
const (
	VoiceManagerKillVoice uint32 = iota
	VoiceManagerKillAll
)

// VoiceManager turns parameter writes into voice resets. Writing Kill Voice
// below 0.5 frees the selected voice and writing Kill All below 0.5 frees
// every voice. Both rest at 1.
type VoiceManager struct {
	registry           *param.Registry
	killVoice, killAll *param.Parameter

	current  int
	resetter voice.Resetter
}

// NewVoiceManager creates a VoiceManager with no voice selected.
func NewVoiceManager() *VoiceManager {
	m := &VoiceManager{current: -1}
	m.killVoice = param.New(VoiceManagerKillVoice, "Kill Voice").ShortName("K").Toggle().Default(1).Build()
	m.killAll = param.New(VoiceManagerKillAll, "Kill All").ShortName("KA").Toggle().Default(1).Build()

	m.registry = param.NewRegistry()
	if err := m.registry.Add(m.killVoice, m.killAll); err != nil {
		panic(fmt.Sprintf("voice_manager: %v", err))
	}
	return m
}

// SetVoiceIndex selects the voice Kill Voice frees. Negative values select none.
func (m *VoiceManager) SetVoiceIndex(index int) {
	if index < 0 {
		index = -1
	}
	m.current = index
}

// SetResetter sets the receiver of voice resets.
func (m *VoiceManager) SetResetter(r voice.Resetter) {
	m.resetter = r
}

// Parameters exposes the kill switches.
func (m *VoiceManager) Parameters() *param.Registry {
	return m.registry
}

// SetParameter writes a kill switch by id.
func (m *VoiceManager) SetParameter(id uint32, plain float64) error {
	p := m.registry.Get(id)
	if p == nil {
		return fmt.Errorf("%w: id %d", ErrUnknownParameter, id)
	}
	p.SetPlainValue(plain)
	if plain >= dsp.GateThreshold {
		return nil
	}
	switch id {
	case VoiceManagerKillVoice:
		m.KillVoice(m.current)
	case VoiceManagerKillAll:
		m.KillAllVoices()
	}
	return nil
}

// KillVoice frees voice index. Negative indices are ignored.
func (m *VoiceManager) KillVoice(index int) {
	if index < 0 || m.resetter == nil {
		return
	}
	m.resetter.ResetVoice(index, false)
}

// KillAllVoices frees every voice.
func (m *VoiceManager) KillAllVoices() {
	if m.resetter != nil {
		m.resetter.ResetVoice(0, true)
	}
}
