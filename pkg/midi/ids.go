package midi

import "sync"

// IDSource builds note events with unique event ids. A note-off receives the
// id of the most recent note-on for the same channel and note.
type IDSource struct {
	mu     sync.Mutex
	nextID uint32
	open   [16][128]uint32
}

// NewIDSource creates an id source starting at id 1
func NewIDSource() *IDSource {
	return &IDSource{nextID: 1}
}

// NoteOn returns a note-on event with a fresh id
func (s *IDSource) NoteOn(channel, note, velocity uint8, offset int32) NoteOnEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	if s.nextID == 0 {
		s.nextID = 1
	}
	s.open[channel&0x0f][note&0x7f] = id

	return NoteOnEvent{
		BaseEvent:  BaseEvent{EventChannel: channel, Offset: offset, EventID: id},
		NoteNumber: note,
		Velocity:   velocity,
	}
}

// NoteOff returns a note-off event paired with the last note-on of that note.
// Without an open note-on the event carries id 0.
func (s *IDSource) NoteOff(channel, note uint8, offset int32) NoteOffEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.open[channel&0x0f][note&0x7f]
	s.open[channel&0x0f][note&0x7f] = 0

	return NoteOffEvent{
		BaseEvent:  BaseEvent{EventChannel: channel, Offset: offset, EventID: id},
		NoteNumber: note,
	}
}
