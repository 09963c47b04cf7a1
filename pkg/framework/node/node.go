// Package node wraps envelope generators as host-facing nodes: voice slots,
// note handling, a lock-free parameter surface, modulation output and
// display monitoring.
package node

import (
	"errors"
	"fmt"
)

// MaxVoices is the largest voice count Prepare accepts.
const MaxVoices = 256

var (
	// ErrNotPrepared is returned by calls that need Prepare to have run.
	ErrNotPrepared = errors.New("node not prepared")
	// ErrUnknownParameter is returned for parameter ids a node does not own.
	ErrUnknownParameter = errors.New("unknown parameter")
	// ErrInvalidSpecs is returned by Prepare for unusable processing specs.
	ErrInvalidSpecs = errors.New("invalid processing specs")
)

// Specs describe the processing environment passed to Prepare.
type Specs struct {
	SampleRate float64
	BlockSize  int
	NumVoices  int
}

// Validate reports whether the specs can be prepared.
func (s Specs) Validate() error {
	switch {
	case s.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %v", ErrInvalidSpecs, s.SampleRate)
	case s.BlockSize < 0:
		return fmt.Errorf("%w: block size %d", ErrInvalidSpecs, s.BlockSize)
	case s.NumVoices < 1 || s.NumVoices > MaxVoices:
		return fmt.Errorf("%w: %d voices (1-%d)", ErrInvalidSpecs, s.NumVoices, MaxVoices)
	}
	return nil
}

// Listener receives a node's modulation output. OnModValue carries the
// envelope value, OnActivity carries 1 when a voice starts and 0 when it
// goes idle. Both are called on the audio thread and must not block.
type Listener interface {
	OnModValue(voice int, value float64)
	OnActivity(voice int, value float64)
}

// ListenerFuncs adapts a pair of functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	ModValue func(voice int, value float64)
	Activity func(voice int, value float64)
}

// OnModValue implements Listener.
func (l ListenerFuncs) OnModValue(voice int, value float64) {
	if l.ModValue != nil {
		l.ModValue(voice, value)
	}
}

// OnActivity implements Listener.
func (l ListenerFuncs) OnActivity(voice int, value float64) {
	if l.Activity != nil {
		l.Activity(voice, value)
	}
}

// PostProcessor turns the before and after state of one render call into
// Listener notifications.
type PostProcessor struct {
	listener Listener
}

// SetListener replaces the listener. Nil disables notifications.
func (p *PostProcessor) SetListener(l Listener) {
	p.listener = l
}

// Run notifies the listener. A changed value is forwarded only while the
// voice is active. A change of activity sends the new activity followed by a
// zero mod value.
func (p *PostProcessor) Run(voice int, wasActive bool, lastValue float64, active bool, value float64) {
	if p.listener == nil {
		return
	}
	if active && value != lastValue {
		p.listener.OnModValue(voice, value)
	}
	if active != wasActive {
		activity := 0.0
		if active {
			activity = 1.0
		}
		p.listener.OnActivity(voice, activity)
		p.listener.OnModValue(voice, 0)
	}
}
