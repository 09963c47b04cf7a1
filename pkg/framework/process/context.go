// Package process drives nodes over audio blocks with sample-accurate
// event timing.
package process

import (
	"github.com/justyntemme/envnode/pkg/dsp"
	"github.com/justyntemme/envnode/pkg/midi"
)

// Processor is a node that can be driven by a Context.
type Processor interface {
	midi.Handler
	Process(data [][]float32)
}

// Context holds one block of channel data plus the events that fall inside
// it. Render never allocates once the context is built.
type Context struct {
	Channels   [][]float32
	SampleRate float64

	events []midi.Event
	views  [][]float32
}

// NewContext creates a context with numChannels buffers of maxBlockSize
// samples and room for maxEvents events per block.
func NewContext(numChannels, maxBlockSize, maxEvents int, sampleRate float64) *Context {
	channels := make([][]float32, numChannels)
	for ch := range channels {
		channels[ch] = make([]float32, maxBlockSize)
	}
	return &Context{
		Channels:   channels,
		SampleRate: sampleRate,
		events:     make([]midi.Event, 0, maxEvents),
		views:      make([][]float32, numChannels),
	}
}

// SetBlockSize resizes every channel to n samples within its capacity.
func (c *Context) SetBlockSize(n int) {
	for ch := range c.Channels {
		if n > cap(c.Channels[ch]) {
			n = cap(c.Channels[ch])
		}
		c.Channels[ch] = c.Channels[ch][:n]
	}
}

// NumSamples returns the number of samples in the block
func (c *Context) NumSamples() int {
	if len(c.Channels) == 0 {
		return 0
	}
	return len(c.Channels[0])
}

// NumChannels returns the number of channels
func (c *Context) NumChannels() int {
	return len(c.Channels)
}

// AddEvent inserts an event keeping the list ordered by offset. Events with
// equal offsets keep their insertion order. Events past capacity are dropped
// and reported with false.
func (c *Context) AddEvent(e midi.Event) bool {
	if len(c.events) == cap(c.events) {
		return false
	}
	c.events = append(c.events, e)
	for i := len(c.events) - 1; i > 0 && c.events[i-1].SampleOffset() > e.SampleOffset(); i-- {
		c.events[i], c.events[i-1] = c.events[i-1], c.events[i]
	}
	return true
}

// AddEvents adds every event in events
func (c *Context) AddEvents(events []midi.Event) {
	for _, e := range events {
		c.AddEvent(e)
	}
}

// Events returns the pending events in offset order
func (c *Context) Events() []midi.Event {
	return c.events
}

// ClearEvents drops all pending events
func (c *Context) ClearEvents() {
	for i := range c.events {
		c.events[i] = nil
	}
	c.events = c.events[:0]
}

// Clear zeros every channel
func (c *Context) Clear() {
	for _, ch := range c.Channels {
		dsp.Clear(ch)
	}
}

// Fill sets every sample of every channel to v
func (c *Context) Fill(v float32) {
	for _, ch := range c.Channels {
		dsp.Fill(ch, v)
	}
}

// Render processes the block with p, splitting it at every event offset so
// each event takes effect on its exact sample. Events are consumed.
func (c *Context) Render(p Processor) {
	n := c.NumSamples()
	pos := 0

	for _, e := range c.events {
		off := int(e.SampleOffset())
		if off < 0 {
			off = 0
		}
		if off > n {
			off = n
		}
		if off > pos {
			c.processRange(p, pos, off)
			pos = off
		}
		p.HandleEvent(e)
	}
	if pos < n {
		c.processRange(p, pos, n)
	}
	c.ClearEvents()
}

func (c *Context) processRange(p Processor, start, end int) {
	for ch, buf := range c.Channels {
		c.views[ch] = buf[start:end]
	}
	p.Process(c.views)
}
