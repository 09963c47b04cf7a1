package voice

// ActivityReporter tells the Assigner whether a slot is still sounding
type ActivityReporter interface {
	IsVoiceActive(index int) bool
}

// Resetter frees voice slots. With all set every slot is reset and index is ignored.
type Resetter interface {
	ResetVoice(index int, all bool)
}

// ResetterFunc adapts a function to Resetter
type ResetterFunc func(index int, all bool)

// ResetVoice calls f
func (f ResetterFunc) ResetVoice(index int, all bool) { f(index, all) }

// Resetters forwards a reset to each receiver in order
type Resetters []Resetter

// ResetVoice forwards to every receiver
func (r Resetters) ResetVoice(index int, all bool) {
	for _, rs := range r {
		rs.ResetVoice(index, all)
	}
}

// Assigner maps held notes to voice slots in round-robin order. It never
// steals: a note arriving with every slot busy is dropped.
type Assigner struct {
	keys          []uint32
	held          []bool
	lastTriggered int
}

// NewAssigner creates an assigner for numVoices slots
func NewAssigner(numVoices int) *Assigner {
	if numVoices < 1 {
		numVoices = 1
	}
	return &Assigner{
		keys:          make([]uint32, numVoices),
		held:          make([]bool, numVoices),
		lastTriggered: numVoices - 1,
	}
}

// NoteOn returns the slot for a new note, or -1 when none is free. A key
// that is already held keeps its slot so the voice retriggers.
func (a *Assigner) NoteOn(key uint32, activity ActivityReporter) int {
	if idx := a.find(key); idx >= 0 {
		return idx
	}

	n := len(a.keys)
	for i := 0; i < n; i++ {
		idx := (a.lastTriggered + i + 1) % n
		if a.held[idx] || (activity != nil && activity.IsVoiceActive(idx)) {
			continue
		}
		a.lastTriggered = idx
		a.keys[idx] = key
		a.held[idx] = true
		return idx
	}
	return -1
}

// NoteOff releases the slot holding key and returns it, or -1 when the key is unknown
func (a *Assigner) NoteOff(key uint32) int {
	idx := a.find(key)
	if idx >= 0 {
		a.held[idx] = false
	}
	return idx
}

// HeldCount returns the number of slots holding a note
func (a *Assigner) HeldCount() int {
	count := 0
	for _, h := range a.held {
		if h {
			count++
		}
	}
	return count
}

// Reset releases every slot
func (a *Assigner) Reset() {
	for i := range a.held {
		a.held[i] = false
	}
	a.lastTriggered = len(a.keys) - 1
}

// ResetVoice releases slot index, or every slot when all is set. Out of
// range indices are ignored.
func (a *Assigner) ResetVoice(index int, all bool) {
	if all {
		a.Reset()
		return
	}
	if index >= 0 && index < len(a.held) {
		a.held[index] = false
	}
}

func (a *Assigner) find(key uint32) int {
	for i, k := range a.keys {
		if a.held[i] && k == key {
			return i
		}
	}
	return -1
}
