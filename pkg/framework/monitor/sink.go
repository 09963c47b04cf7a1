package monitor

import (
	"sync/atomic"

	"github.com/justyntemme/envnode/pkg/dsp/envelope"
)

// Sink receives the display position of the envelope being monitored,
// normalized to 0-1 along the whole envelope path.
type Sink interface {
	SendPosition(pos float64)
}

// StageSink is implemented by sinks that also want the current value and
// stage alongside the position.
type StageSink interface {
	Sink
	SendState(pos, value float64, stage envelope.Stage)
}

// Update is one message delivered by a ChannelSink.
type Update struct {
	Position float64
	Value    float64
	Stage    envelope.Stage
	HasState bool
}

// ChannelSink forwards updates to a buffered channel. Sends never block;
// updates that do not fit are dropped and counted.
type ChannelSink struct {
	ch      chan Update
	dropped atomic.Uint64
}

// NewChannelSink creates a sink with room for size pending updates.
func NewChannelSink(size int) *ChannelSink {
	if size < 1 {
		size = 1
	}
	return &ChannelSink{ch: make(chan Update, size)}
}

// SendPosition implements Sink.
func (s *ChannelSink) SendPosition(pos float64) {
	s.send(Update{Position: pos})
}

// SendState implements StageSink.
func (s *ChannelSink) SendState(pos, value float64, stage envelope.Stage) {
	s.send(Update{Position: pos, Value: value, Stage: stage, HasState: true})
}

func (s *ChannelSink) send(u Update) {
	select {
	case s.ch <- u:
	default:
		s.dropped.Add(1)
	}
}

// Updates returns the receive side of the sink.
func (s *ChannelSink) Updates() <-chan Update { return s.ch }

// Dropped returns the number of updates discarded because the channel was full.
func (s *ChannelSink) Dropped() uint64 { return s.dropped.Load() }
