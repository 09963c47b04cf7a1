package node

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/justyntemme/envnode/pkg/dsp"
	"github.com/justyntemme/envnode/pkg/framework/debug"
	"github.com/justyntemme/envnode/pkg/framework/param"
	"github.com/justyntemme/envnode/pkg/framework/voice"
	"github.com/justyntemme/envnode/pkg/midi"
)

const (
	gateNone int32 = -1
	gateOff  int32 = 0
	gateOn   int32 = 1
)

// base holds what every envelope node shares: the parameter surface, the
// pending gate written by control threads and the mono key tracker.
type base struct {
	specs    Specs
	prepared bool

	registry *param.Registry
	synced   []*param.Parameter
	applied  []float64
	gate     *param.Parameter

	pendingGate atomic.Int32
	keys        voice.GateTracker
	post        PostProcessor
	log         *debug.Logger
}

func (b *base) setup(name string, gate *param.Parameter, params ...*param.Parameter) {
	b.registry = param.NewRegistry()
	if err := b.registry.Add(append(params, gate)...); err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}
	b.synced = params
	b.applied = make([]float64, len(params))
	b.gate = gate
	b.pendingGate.Store(gateNone)
	b.log = debug.Default().Named(name)
	b.invalidate()
}

// invalidate forces the next sync to apply every parameter.
func (b *base) invalidate() {
	for i := range b.applied {
		b.applied[i] = math.NaN()
	}
}

// syncParams applies every parameter whose value changed since the last sync.
func (b *base) syncParams(apply func(id uint32, plain float64)) {
	for i, p := range b.synced {
		v := p.GetPlainValue()
		if v == b.applied[i] {
			continue
		}
		b.applied[i] = v
		apply(p.ID, v)
	}
}

// takeGate returns the gate written since the last call, if any.
func (b *base) takeGate() (on, ok bool) {
	switch b.pendingGate.Swap(gateNone) {
	case gateOn:
		return true, true
	case gateOff:
		return false, true
	}
	return false, false
}

// SetGate opens (v above dsp.GateThreshold) or closes the gate of the
// selected voices, or of every voice when none is selected. It takes effect
// at the next render call.
func (b *base) SetGate(v float64) {
	b.gate.SetPlainValue(v)
	if v > dsp.GateThreshold {
		b.pendingGate.Store(gateOn)
	} else {
		b.pendingGate.Store(gateOff)
	}
}

// SetParameter writes a parameter by id in plain units.
func (b *base) SetParameter(id uint32, plain float64) error {
	p := b.registry.Get(id)
	if p == nil {
		return fmt.Errorf("%w: id %d", ErrUnknownParameter, id)
	}
	if p == b.gate {
		b.SetGate(plain)
		return nil
	}
	p.SetPlainValue(plain)
	return nil
}

// SetParameterString parses a value such as "250ms" or "50%" for the named
// parameter and writes it.
func (b *base) SetParameterString(name, value string) error {
	p := b.registry.GetByName(name)
	if p == nil {
		return fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	n, err := p.ParseValue(value)
	if err != nil {
		return err
	}
	return b.SetParameter(p.ID, p.Denormalize(n))
}

// Parameters exposes the node's parameters.
func (b *base) Parameters() *param.Registry {
	return b.registry
}

// GateID returns the id of the gate parameter.
func (b *base) GateID() uint32 {
	return b.gate.ID
}

// SetListener sets the receiver of modulation output.
func (b *base) SetListener(l Listener) {
	b.post.SetListener(l)
}

// SetLogger replaces the node's logger.
func (b *base) SetLogger(l *debug.Logger) {
	if l != nil {
		b.log = l
	}
}

// Specs returns the specs of the last successful Prepare.
func (b *base) Specs() Specs {
	return b.specs
}

// IsPrepared reports whether Prepare has succeeded.
func (b *base) IsPrepared() bool {
	return b.prepared
}

// handleEvent routes note events to gate. Polyphonic nodes gate the selected
// voice on every note. Monophonic nodes open on the first held note and close
// when the last one is released. All-notes-off closes the gate.
func (b *base) handleEvent(e midi.Event, poly bool, gate func(on bool)) {
	if cc, ok := e.(midi.ControlChangeEvent); ok {
		if cc.Controller == midi.CCAllNotesOff || cc.Controller == midi.CCAllSoundOff {
			b.keys.Reset()
			gate(false)
		}
		return
	}

	key, ok := midi.NoteKey(e)
	if !ok {
		return
	}
	on := midi.IsNoteOn(e)
	if poly {
		gate(on)
		return
	}
	if on {
		if b.keys.NoteOn(key) {
			gate(true)
		}
	} else if b.keys.NoteOff(key) {
		gate(false)
	}
}
