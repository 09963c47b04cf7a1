// Package voice provides per-voice storage and gate bookkeeping for polyphonic nodes.
package voice

// Slots is a flat arena of per-voice records indexed by voice slot. The
// current slot is chosen by the host before each render call.
type Slots[T any] struct {
	voices  []T
	current int
}

// Prepare allocates numVoices zeroed records. It allocates and must run
// before audio processing starts.
func (s *Slots[T]) Prepare(numVoices int) {
	if numVoices < 1 {
		numVoices = 1
	}
	s.voices = make([]T, numVoices)
	s.current = -1
}

// Len returns the number of voice slots
func (s *Slots[T]) Len() int {
	return len(s.voices)
}

// IsPolyphonic reports whether there is more than one slot
func (s *Slots[T]) IsPolyphonic() bool {
	return len(s.voices) > 1
}

// SetCurrent selects the slot being rendered. -1 clears the selection. Any
// other out of range index is ignored and the selection is left unchanged.
func (s *Slots[T]) SetCurrent(index int) {
	if index == -1 {
		s.current = -1
		return
	}
	if index < 0 || index >= len(s.voices) {
		return
	}
	s.current = index
}

// CurrentIndex returns the selected slot, or -1 when none is selected
func (s *Slots[T]) CurrentIndex() int {
	return s.current
}

// Current returns the selected record, or the first record when none is
// selected. It returns nil before Prepare.
func (s *Slots[T]) Current() *T {
	if len(s.voices) == 0 {
		return nil
	}
	if s.current < 0 {
		return &s.voices[0]
	}
	return &s.voices[s.current]
}

// Active returns the selected record as a one-element slice, or every record
// when no slot is selected.
func (s *Slots[T]) Active() []T {
	if s.current < 0 {
		return s.voices
	}
	return s.voices[s.current : s.current+1]
}

// All returns every record
func (s *Slots[T]) All() []T {
	return s.voices
}

// At returns the record in slot index, or nil when out of range
func (s *Slots[T]) At(index int) *T {
	if index < 0 || index >= len(s.voices) {
		return nil
	}
	return &s.voices[index]
}
