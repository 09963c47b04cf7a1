package node

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/justyntemme/envnode/pkg/dsp/envelope"
	"github.com/justyntemme/envnode/pkg/framework/debug"
	"github.com/justyntemme/envnode/pkg/framework/monitor"
	"github.com/justyntemme/envnode/pkg/framework/state"
	"github.com/justyntemme/envnode/pkg/framework/voice"
	"github.com/justyntemme/envnode/pkg/midi"
)

type notification struct {
	kind  string
	voice int
	value float64
}

type recorder struct {
	got []notification
}

func (r *recorder) OnModValue(voice int, value float64) {
	r.got = append(r.got, notification{"mod", voice, value})
}

func (r *recorder) OnActivity(voice int, value float64) {
	r.got = append(r.got, notification{"activity", voice, value})
}

var quiet = debug.New(io.Discard, "", 0)

func prepared(t *testing.T, voices int) *AHDSR {
	t.Helper()
	n := NewAHDSR()
	n.SetLogger(quiet)
	if err := n.Prepare(Specs{SampleRate: 44100, BlockSize: 64, NumVoices: voices}); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	return n
}

func TestPostProcessor(t *testing.T) {
	rec := &recorder{}
	var p PostProcessor
	p.SetListener(rec)

	p.Run(3, false, 0, true, 0.1)
	p.Run(3, true, 0.1, true, 0.1)
	p.Run(3, true, 0.1, true, 0.2)
	p.Run(3, true, 0.2, false, 0)

	want := []notification{
		{"mod", 3, 0.1},
		{"activity", 3, 1},
		{"mod", 3, 0},
		{"mod", 3, 0.2},
		{"activity", 3, 0},
		{"mod", 3, 0},
	}
	if len(rec.got) != len(want) {
		t.Fatalf("got %v, want %v", rec.got, want)
	}
	for i := range want {
		if rec.got[i] != want[i] {
			t.Errorf("notification %d = %v, want %v", i, rec.got[i], want[i])
		}
	}

	p.SetListener(nil)
	p.Run(0, false, 0, true, 1)
}

func TestPrepareErrors(t *testing.T) {
	n := NewAHDSR()
	n.SetLogger(quiet)

	bad := []Specs{
		{SampleRate: 0, NumVoices: 1},
		{SampleRate: 44100, NumVoices: 0},
		{SampleRate: 44100, NumVoices: MaxVoices + 1},
		{SampleRate: 44100, BlockSize: -1, NumVoices: 1},
	}
	for _, s := range bad {
		if err := n.Prepare(s); !errors.Is(err, ErrInvalidSpecs) {
			t.Errorf("Prepare(%+v) = %v, want ErrInvalidSpecs", s, err)
		}
	}
	if n.IsPrepared() {
		t.Error("node should not be prepared after failures")
	}
	if err := n.SetVoiceModulation(0, envelope.AttackTimeChain, 1); !errors.Is(err, ErrNotPrepared) {
		t.Errorf("SetVoiceModulation before Prepare = %v", err)
	}

	// Processing before Prepare leaves data untouched.
	data := [][]float32{{1, 1}}
	n.Process(data)
	if data[0][0] != 1 {
		t.Error("Process before Prepare modified data")
	}
}

func TestSetParameter(t *testing.T) {
	n := prepared(t, 1)

	if err := n.SetParameter(99, 1); !errors.Is(err, ErrUnknownParameter) {
		t.Errorf("unknown id: %v", err)
	}
	if err := n.SetParameterString("Nope", "1"); !errors.Is(err, ErrUnknownParameter) {
		t.Errorf("unknown name: %v", err)
	}
	if err := n.SetParameterString("Release", "1.5 s"); err != nil {
		t.Fatalf("SetParameterString: %v", err)
	}
	if err := n.SetParameterString("S", "25%"); err != nil {
		t.Fatalf("SetParameterString: %v", err)
	}

	n.ProcessFrame([]float32{1})
	if got := n.params.Release(); math.Abs(got-1500) > 1e-6 {
		t.Errorf("release = %f, want 1500", got)
	}
	if got := n.params.Sustain(); math.Abs(got-0.25) > 1e-9 {
		t.Errorf("sustain = %f, want 0.25", got)
	}
	if n.Parameters().Count() != 8 {
		t.Errorf("AHDSR has %d parameters, want 8", n.Parameters().Count())
	}
}

func TestParameterSyncIsIdempotent(t *testing.T) {
	n := prepared(t, 2)

	calls := 0
	count := func(uint32, float64) { calls++ }

	n.syncParams(count)
	if calls != 0 {
		t.Fatalf("sync after Prepare applied %d parameters", calls)
	}

	n.SetSustain(0.7)
	n.syncParams(count)
	if calls != 1 {
		t.Errorf("changed sustain applied %d times, want 1", calls)
	}

	n.SetSustain(0.7)
	n.syncParams(count)
	if calls != 1 {
		t.Errorf("rewriting the same value applied again (%d calls)", calls)
	}
}

func TestMonoOverlappingNotes(t *testing.T) {
	n := prepared(t, 1)
	ids := midi.NewIDSource()
	frame := []float32{1}

	a := ids.NoteOn(0, 60, 100, 0)
	b := ids.NoteOn(0, 64, 100, 0)

	n.HandleEvent(a)
	n.ProcessFrame(frame)
	if n.Stage() != envelope.StageAttack {
		t.Fatalf("stage after first note = %v", n.Stage())
	}

	n.HandleEvent(b)
	if n.Stage() == envelope.StageRetrigger {
		t.Error("second held note should not retrigger a mono node")
	}

	n.HandleEvent(ids.NoteOff(0, 60, 0))
	if n.Stage() == envelope.StageRelease {
		t.Error("gate closed while a note is still held")
	}

	n.HandleEvent(ids.NoteOff(0, 64, 0))
	if n.Stage() != envelope.StageRelease {
		t.Errorf("stage after last note-off = %v, want Release", n.Stage())
	}

	// A stray note-off is ignored.
	n.HandleEvent(ids.NoteOff(0, 72, 0))
	if n.Stage() != envelope.StageRelease {
		t.Errorf("stray note-off changed stage to %v", n.Stage())
	}
}

func TestAllNotesOff(t *testing.T) {
	n := prepared(t, 1)
	ids := midi.NewIDSource()

	n.HandleEvent(ids.NoteOn(0, 60, 100, 0))
	n.HandleEvent(ids.NoteOn(0, 62, 100, 0))
	n.ProcessFrame([]float32{1})

	n.HandleEvent(midi.ControlChangeEvent{Controller: midi.CCAllNotesOff})
	if n.Stage() != envelope.StageRelease {
		t.Fatalf("stage after all-notes-off = %v", n.Stage())
	}

	// The tracker forgot both notes, so a new note opens the gate again.
	n.HandleEvent(ids.NoteOn(0, 65, 100, 0))
	if n.Stage() != envelope.StageRetrigger {
		t.Errorf("stage after new note = %v, want Retrigger", n.Stage())
	}
}

func TestPolyphonicSlots(t *testing.T) {
	n := prepared(t, 4)
	ids := midi.NewIDSource()
	assigner := voice.NewAssigner(n.NumVoices())

	first := ids.NoteOn(0, 60, 100, 0)
	slot := assigner.NoteOn(first.Key(), n)
	n.SetVoiceIndex(slot)
	n.HandleEvent(first)

	second := ids.NoteOn(0, 67, 100, 0)
	other := assigner.NoteOn(second.Key(), n)
	if other == slot {
		t.Fatalf("assigner reused slot %d", slot)
	}
	n.SetVoiceIndex(other)
	n.HandleEvent(second)

	for i := 0; i < n.NumVoices(); i++ {
		want := envelope.StageIdle
		if i == slot || i == other {
			want = envelope.StageAttack
		}
		if got := n.Voice(i).Stage(); got != want {
			t.Errorf("voice %d stage = %v, want %v", i, got, want)
		}
	}

	// Every note reaches its slot directly, so a repeat retriggers.
	n.HandleEvent(second)
	if n.Stage() != envelope.StageRetrigger {
		t.Errorf("repeat note stage = %v, want Retrigger", n.Stage())
	}

	n.SetVoiceIndex(slot)
	n.HandleEvent(ids.NoteOff(0, 60, 0))
	if n.Voice(slot).Stage() != envelope.StageIdle && n.Voice(slot).Stage() != envelope.StageRelease {
		t.Errorf("voice %d stage after note-off = %v", slot, n.Voice(slot).Stage())
	}
	if n.Voice(other).Stage() != envelope.StageRetrigger {
		t.Error("note-off for one slot reached another")
	}
}

func TestGateWithoutSelectedVoiceReachesAll(t *testing.T) {
	n := prepared(t, 3)
	n.SetVoiceIndex(-1)
	n.SetGate(1)
	n.ProcessFrame([]float32{1})

	for i := 0; i < n.NumVoices(); i++ {
		if n.Voice(i).Stage() == envelope.StageIdle {
			t.Errorf("voice %d was not gated", i)
		}
	}
}

func TestNodeScenario(t *testing.T) {
	n := prepared(t, 1)
	n.SetAttack(0)
	n.SetAttackLevel(1)
	n.SetHold(0)
	n.SetDecay(100)
	n.SetSustain(0.5)
	n.SetRelease(50)
	n.SetGate(1)

	frame := []float32{1}
	n.ProcessFrame(frame)
	if frame[0] < 0.99 {
		t.Fatalf("first sample = %f, want >= 0.99", frame[0])
	}

	decay := 1
	for n.Stage() != envelope.StageSustain && decay < 100000 {
		frame[0] = 1
		n.ProcessFrame(frame)
		decay++
	}
	if decay < 4410-50 || decay > 4410+50 {
		t.Errorf("reached sustain after %d samples, want about 4410", decay)
	}

	block := [][]float32{make([]float32, 512)}
	for i := 0; i < 10; i++ {
		for j := range block[0] {
			block[0][j] = 1
		}
		n.Process(block)
	}
	if block[0][511] != 0.5 {
		t.Errorf("sustain value = %f, want 0.5", block[0][511])
	}

	n.SetGate(0)
	release := 0
	for {
		frame[0] = 1
		n.ProcessFrame(frame)
		release++
		if n.Stage() == envelope.StageIdle || release > 100000 {
			break
		}
	}
	if release < 2205-50 || release > 2205+50 {
		t.Errorf("release took %d samples, want about 2205", release)
	}
	if n.IsActive() || n.ModValue() != 0 {
		t.Errorf("after release active=%v value=%f", n.IsActive(), n.ModValue())
	}
}

func TestFrameAndBlockMatch(t *testing.T) {
	const total = 4096

	blockNode := prepared(t, 1)
	frameNode := prepared(t, 1)
	for _, n := range []*AHDSR{blockNode, frameNode} {
		n.SetAttack(5)
		n.SetHold(2)
		n.SetDecay(20)
		n.SetSustain(0.3)
		n.SetRelease(15)
		n.SetGate(1)
	}

	left := make([]float32, total)
	right := make([]float32, total)
	for i := range left {
		left[i], right[i] = 1, 1
	}
	for start := 0; start < total; start += 64 {
		blockNode.Process([][]float32{left[start : start+64], right[start : start+64]})
	}

	framed := make([]float32, total)
	frame := make([]float32, 2)
	for i := range framed {
		frame[0], frame[1] = 1, 1
		frameNode.ProcessFrame(frame)
		framed[i] = frame[0]
		if frame[1] != frame[0] {
			t.Fatalf("frame channels differ at %d", i)
		}
	}

	for _, ch := range [][]float32{left, right} {
		diff, idx, err := debug.CompareBuffers(ch, framed)
		if err != nil {
			t.Fatal(err)
		}
		if diff != 0 {
			t.Errorf("block and frame output differ by %g at sample %d", diff, idx)
		}
	}
}

func TestNodeNotifiesListener(t *testing.T) {
	n := NewSimpleAR()
	n.SetLogger(quiet)
	if err := n.Prepare(Specs{SampleRate: 44100, NumVoices: 1}); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	n.SetListener(rec)

	n.SetGate(1)
	frame := []float32{1}
	n.ProcessFrame(frame)

	if len(rec.got) != 3 {
		t.Fatalf("got %v, want mod, activity, mod", rec.got)
	}
	if rec.got[0].kind != "mod" || rec.got[0].value <= 0 {
		t.Errorf("first notification %v", rec.got[0])
	}
	if rec.got[1] != (notification{"activity", 0, 1}) || rec.got[2] != (notification{"mod", 0, 0}) {
		t.Errorf("activity notifications %v", rec.got[1:])
	}

	// Fully open and settled: no more value changes.
	for i := 0; i < 44100; i++ {
		frame[0] = 1
		n.ProcessFrame(frame)
	}
	rec.got = rec.got[:0]
	n.ProcessFrame(frame)
	if len(rec.got) != 0 {
		t.Errorf("settled follower still notifies: %v", rec.got)
	}

	n.SetGate(0)
	for i := 0; i < 44100 && n.IsActive(); i++ {
		frame[0] = 1
		n.ProcessFrame(frame)
	}
	last := rec.got[len(rec.got)-2:]
	if last[0] != (notification{"activity", 0, 0}) || last[1] != (notification{"mod", 0, 0}) {
		t.Errorf("closing notifications %v", last)
	}
}

func TestSimpleARGateFollowing(t *testing.T) {
	n := NewSimpleAR()
	n.SetLogger(quiet)
	if err := n.Prepare(Specs{SampleRate: 44100, NumVoices: 2}); err != nil {
		t.Fatal(err)
	}
	n.SetAttack(10)
	n.SetVoiceIndex(1)
	n.HandleEvent(midi.NoteOnEvent{NoteNumber: 60, Velocity: 90})

	block := [][]float32{make([]float32, 441)}
	for i := range block[0] {
		block[0][i] = 1
	}
	n.Process(block)

	if v := n.ModValue(); v < 0.98 || v > 0.995 {
		t.Errorf("value after attack time = %f, want about 0.99", v)
	}
	if !n.IsVoiceActive(1) || n.IsVoiceActive(0) {
		t.Error("only voice 1 should be active")
	}
}

func TestMonitorUpdates(t *testing.T) {
	n := NewAHDSR()
	n.SetLogger(quiet)
	if err := n.Prepare(Specs{SampleRate: 48000, BlockSize: 1600, NumVoices: 1}); err != nil {
		t.Fatal(err)
	}
	sink := monitor.NewChannelSink(8)
	n.SetMonitor(sink)
	n.SetGate(1)

	block := [][]float32{make([]float32, 800)}
	n.Process(block)
	select {
	case u := <-sink.Updates():
		t.Fatalf("update before a frame elapsed: %+v", u)
	default:
	}

	n.Process(block)
	select {
	case u := <-sink.Updates():
		if !u.HasState {
			t.Error("ChannelSink should receive stage updates")
		}
		if u.Position <= 0 || u.Position > 1 {
			t.Errorf("position = %f", u.Position)
		}
	default:
		t.Fatal("expected an update after 1600 samples")
	}
}

func TestVoiceModulation(t *testing.T) {
	n := prepared(t, 2)
	n.SetAttack(10)
	n.SetHold(0)
	if err := n.SetVoiceModulation(1, envelope.AttackTimeChain, 2); err != nil {
		t.Fatal(err)
	}
	if err := n.SetVoiceModulation(5, envelope.AttackTimeChain, 2); err == nil {
		t.Error("expected out of range error")
	}

	// With no voice selected a note reaches every voice.
	n.SetVoiceIndex(-1)
	n.HandleEvent(midi.NoteOnEvent{NoteNumber: 60, Velocity: 100})

	attackLen := func(i int) int {
		n.SetVoiceIndex(i)
		count := 0
		for n.Stage() != envelope.StageDecay && count < 10000 {
			n.ProcessFrame([]float32{1})
			count++
		}
		return count
	}

	fast, slow := attackLen(0), attackLen(1)
	if slow < fast*2-2 || slow > fast*2+2 {
		t.Errorf("modulated attack took %d samples, plain %d", slow, fast)
	}
}

func TestPresetRoundTrip(t *testing.T) {
	src := prepared(t, 1)
	src.SetDecay(1234)
	src.SetSustain(0.25)
	src.SetGate(1)

	var buf bytes.Buffer
	if err := state.NewManager("ahdsr", src.Parameters(), src.GateID()).Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	dst := prepared(t, 1)
	if err := state.NewManager("ahdsr", dst.Parameters(), dst.GateID()).Load(&buf); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := dst.decay.GetPlainValue(); math.Abs(got-1234) > 1e-6 {
		t.Errorf("decay = %f, want 1234", got)
	}
	if got := dst.sustain.GetPlainValue(); math.Abs(got-0.25) > 1e-9 {
		t.Errorf("sustain = %f, want 0.25", got)
	}

	frame := []float32{1}
	dst.ProcessFrame(frame)
	if dst.IsActive() {
		t.Error("gate was restored from a preset")
	}
}

func TestSharedAttackChangeReachesEveryVoice(t *testing.T) {
	n := prepared(t, 3)
	n.SetAttack(1000)
	n.SetHold(20)

	n.SetVoiceIndex(-1)
	n.SetGate(1)
	n.ProcessFrame([]float32{1})

	for v := 0; v < n.NumVoices(); v++ {
		n.SetVoiceIndex(v)
		for i := 0; i < 100; i++ {
			n.ProcessFrame([]float32{1})
		}
		if s := n.Voice(v); s.Stage() != envelope.StageAttack || s.Value() > 0.5 {
			t.Fatalf("voice %d before change: stage %v value %f", v, s.Stage(), s.Value())
		}
	}

	// Only voice 0 renders the block that applies the change.
	n.SetAttack(1)
	n.SetVoiceIndex(0)
	n.ProcessFrame([]float32{1})

	for v := 0; v < n.NumVoices(); v++ {
		n.SetVoiceIndex(v)
		for i := 0; i < 100 && n.Stage() == envelope.StageAttack; i++ {
			n.ProcessFrame([]float32{1})
		}
		if s := n.Voice(v); s.Stage() != envelope.StageHold || s.Value() != 1 {
			t.Errorf("voice %d after change: stage %v value %f, want Hold at 1", v, s.Stage(), s.Value())
		}
	}
}

func TestGateThreshold(t *testing.T) {
	n := prepared(t, 1)

	n.SetGate(0.5)
	n.ProcessFrame([]float32{1})
	if n.Stage() != envelope.StageIdle {
		t.Errorf("gate 0.5 opened the voice (stage %v)", n.Stage())
	}

	n.SetGate(0.51)
	n.ProcessFrame([]float32{1})
	if n.Stage() != envelope.StageAttack {
		t.Errorf("gate 0.51 stage = %v, want Attack", n.Stage())
	}
}

func TestOutOfRangeVoiceIndexKeepsSelection(t *testing.T) {
	n := prepared(t, 3)
	n.SetVoiceIndex(1)
	n.SetVoiceIndex(7)
	n.SetVoiceIndex(-2)
	if n.VoiceIndex() != 1 {
		t.Fatalf("voice index = %d, want 1", n.VoiceIndex())
	}

	n.SetGate(1)
	n.ProcessFrame([]float32{1})
	for i := 0; i < n.NumVoices(); i++ {
		gated := n.Voice(i).Stage() != envelope.StageIdle
		if gated != (i == 1) {
			t.Errorf("voice %d gated = %v", i, gated)
		}
	}
}

type constantGenerator struct {
	value float32
	ticks int
}

func (g *constantGenerator) Tick() float32  { g.ticks++; return g.value }
func (g *constantGenerator) IsActive() bool { return true }
func (g *constantGenerator) SetGate(bool)   {}
func (g *constantGenerator) Value() float64 { return float64(g.value) }
func (g *constantGenerator) Reset()         {}

func TestProcessBlockUnevenChannels(t *testing.T) {
	g := &constantGenerator{value: 0.5}
	data := [][]float32{{1, 1}, {1, 1, 1, 1}, {1}}
	processBlock(g, data)

	if g.ticks != 4 {
		t.Errorf("generator ticked %d times, want 4", g.ticks)
	}
	for c, ch := range data {
		for i, v := range ch {
			if v != 0.5 {
				t.Errorf("channel %d sample %d = %f, want 0.5", c, i, v)
			}
		}
	}
}

type resetCall struct {
	index int
	all   bool
}

type resetLog struct {
	calls []resetCall
}

func (r *resetLog) ResetVoice(index int, all bool) {
	r.calls = append(r.calls, resetCall{index, all})
}

func filled(n int, v float32) [][]float32 {
	ch := make([]float32, n)
	for i := range ch {
		ch[i] = v
	}
	return [][]float32{ch}
}

func TestSilentKillerFreesSilentVoice(t *testing.T) {
	k := NewSilentKiller()
	k.SetLogger(quiet)
	if err := k.Prepare(Specs{SampleRate: 44100, BlockSize: 64, NumVoices: 2}); err != nil {
		t.Fatal(err)
	}
	log := &resetLog{}
	k.SetResetter(log)
	ids := midi.NewIDSource()

	// -120 dB is below the default -100 dB threshold.
	quietBlock := filled(64, 1e-6)

	k.SetVoiceIndex(1)
	k.Process(quietBlock)
	if len(log.calls) != 0 {
		t.Fatalf("unmarked voice was freed: %v", log.calls)
	}

	k.HandleEvent(ids.NoteOn(0, 60, 100, 0))
	if !k.IsMarked(1) || k.IsMarked(0) {
		t.Fatal("note-on should mark only the selected voice")
	}
	k.Process(quietBlock)
	if len(log.calls) != 0 {
		t.Fatalf("voice freed while its note is held: %v", log.calls)
	}

	k.HandleEvent(ids.NoteOff(0, 60, 0))
	k.Process(filled(64, 0.5))
	if len(log.calls) != 0 {
		t.Fatalf("audible voice was freed: %v", log.calls)
	}

	k.Process(quietBlock)
	if len(log.calls) != 1 || log.calls[0] != (resetCall{1, false}) {
		t.Fatalf("reset calls = %v, want voice 1", log.calls)
	}
	if k.IsMarked(1) {
		t.Error("freed voice is still marked")
	}

	k.Process(quietBlock)
	if len(log.calls) != 1 {
		t.Errorf("voice freed twice: %v", log.calls)
	}
}

func TestSilentKillerSettings(t *testing.T) {
	k := NewSilentKiller()
	k.SetLogger(quiet)
	if err := k.Prepare(Specs{SampleRate: 44100, NumVoices: 1}); err != nil {
		t.Fatal(err)
	}
	log := &resetLog{}
	k.SetResetter(log)

	if got := k.threshold.GetPlainValue(); math.Abs(got-DefaultSilenceThresholdDb) > 1e-9 {
		t.Errorf("default threshold = %f", got)
	}
	if err := k.SetParameter(7, 0); !errors.Is(err, ErrUnknownParameter) {
		t.Errorf("unknown id: %v", err)
	}

	mark := func() {
		k.HandleEvent(midi.NoteOnEvent{NoteNumber: 60, Velocity: 100})
		k.HandleEvent(midi.NoteOffEvent{NoteNumber: 60})
	}
	mark()

	k.SetActive(false)
	k.Process(filled(32, 0))
	if len(log.calls) != 0 {
		t.Fatalf("inactive killer freed a voice: %v", log.calls)
	}

	// -66 dB is audible at the default threshold but silent at -60 dB.
	k.SetActive(true)
	k.Process(filled(32, 0.0005))
	if len(log.calls) != 0 {
		t.Fatalf("voice above threshold was freed: %v", log.calls)
	}
	if err := k.SetParameter(SilentKillerThreshold, -60); err != nil {
		t.Fatal(err)
	}
	k.Process(filled(32, 0.0005))
	if len(log.calls) != 1 || log.calls[0] != (resetCall{0, false}) {
		t.Errorf("reset calls = %v, want voice 0", log.calls)
	}

	// All-notes-off forgets a stuck note.
	k.HandleEvent(midi.NoteOnEvent{NoteNumber: 64, Velocity: 100})
	k.HandleEvent(midi.ControlChangeEvent{Controller: midi.CCAllNotesOff})
	k.Process(filled(32, 0))
	if len(log.calls) != 2 {
		t.Errorf("voice not freed after all-notes-off: %v", log.calls)
	}
}

func TestSilentKillerCutsInaudibleRelease(t *testing.T) {
	n := prepared(t, 2)
	n.SetRelease(5000)
	k := NewSilentKiller()
	k.SetLogger(quiet)
	if err := k.Prepare(n.Specs()); err != nil {
		t.Fatal(err)
	}
	assigner := voice.NewAssigner(n.NumVoices())
	k.SetResetter(voice.Resetters{assigner, n})
	ids := midi.NewIDSource()

	on := ids.NoteOn(0, 60, 100, 0)
	slot := assigner.NoteOn(on.Key(), n)
	n.SetVoiceIndex(slot)
	k.SetVoiceIndex(slot)
	n.HandleEvent(on)
	k.HandleEvent(on)

	render := func() {
		data := filled(64, 0)
		n.Process(data)
		k.Process(data)
	}
	render()

	off := ids.NoteOff(0, 60, 0)
	assigner.NoteOff(off.Key())
	n.HandleEvent(off)
	k.HandleEvent(off)
	if n.Stage() != envelope.StageRelease {
		t.Fatalf("stage after note-off = %v", n.Stage())
	}

	render()
	if n.IsVoiceActive(slot) {
		t.Fatalf("voice %d still active after a silent block (stage %v)", slot, n.Voice(slot).Stage())
	}

	// Round robin skips to the other slot first, then returns to the freed one.
	assigner.NoteOn(ids.NoteOn(0, 62, 100, 0).Key(), n)
	if s := assigner.NoteOn(ids.NoteOn(0, 64, 100, 0).Key(), n); s != slot {
		t.Errorf("freed slot %d not reused, got %d", slot, s)
	}
}

func TestNodeResetVoice(t *testing.T) {
	n := prepared(t, 3)
	rec := &recorder{}
	n.SetListener(rec)

	n.SetVoiceIndex(-1)
	n.SetGate(1)
	n.ProcessFrame([]float32{1})
	for i := 1; i < n.NumVoices(); i++ {
		n.SetVoiceIndex(i)
		n.ProcessFrame([]float32{1})
	}
	rec.got = nil

	n.ResetVoice(1, false)
	if n.IsVoiceActive(1) || !n.IsVoiceActive(0) || !n.IsVoiceActive(2) {
		t.Error("ResetVoice(1) should silence only voice 1")
	}
	if len(rec.got) != 2 || rec.got[0] != (notification{"activity", 1, 0}) {
		t.Errorf("notifications = %v, want voice 1 going idle", rec.got)
	}

	n.ResetVoice(0, true)
	for i := 0; i < n.NumVoices(); i++ {
		if n.IsVoiceActive(i) {
			t.Errorf("voice %d active after reset of all voices", i)
		}
	}

	ar := NewSimpleAR()
	ar.SetLogger(quiet)
	if err := ar.Prepare(Specs{SampleRate: 44100, NumVoices: 2}); err != nil {
		t.Fatal(err)
	}
	ar.SetGate(1)
	ar.ProcessFrame([]float32{1})
	ar.ResetVoice(0, false)
	if ar.IsVoiceActive(0) {
		t.Error("SimpleAR voice 0 active after ResetVoice")
	}
}

func TestVoiceManager(t *testing.T) {
	m := NewVoiceManager()
	log := &resetLog{}
	m.SetResetter(log)

	if err := m.SetParameter(VoiceManagerKillVoice, 0); err != nil {
		t.Fatal(err)
	}
	if len(log.calls) != 0 {
		t.Fatalf("kill without a selected voice reset %v", log.calls)
	}

	m.SetVoiceIndex(2)
	m.SetParameter(VoiceManagerKillVoice, 1)
	m.SetParameter(VoiceManagerKillVoice, 0.5)
	m.SetParameter(VoiceManagerKillVoice, 0.2)
	m.SetParameter(VoiceManagerKillAll, 0)

	want := []resetCall{{2, false}, {0, true}}
	if len(log.calls) != len(want) {
		t.Fatalf("reset calls = %v, want %v", log.calls, want)
	}
	for i := range want {
		if log.calls[i] != want[i] {
			t.Errorf("call %d = %v, want %v", i, log.calls[i], want[i])
		}
	}

	if err := m.SetParameter(9, 0); !errors.Is(err, ErrUnknownParameter) {
		t.Errorf("unknown id: %v", err)
	}
	if m.Parameters().Count() != 2 {
		t.Errorf("VoiceManager has %d parameters, want 2", m.Parameters().Count())
	}
}
