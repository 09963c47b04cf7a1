package voice

// MaxHeldNotes is the number of notes a GateTracker can hold at once
const MaxHeldNotes = 128

// GateTracker turns overlapping note events into a single logical gate for
// monophonic nodes. Only the first held note opens the gate and only the
// last released note closes it.
type GateTracker struct {
	held  [MaxHeldNotes]uint32
	count int
}

// NoteOn registers a held note and reports whether the gate just opened.
// Duplicate keys and notes beyond MaxHeldNotes are ignored.
func (g *GateTracker) NoteOn(key uint32) bool {
	if g.indexOf(key) >= 0 || g.count == MaxHeldNotes {
		return false
	}
	g.held[g.count] = key
	g.count++
	return g.count == 1
}

// NoteOff releases a held note and reports whether the gate just closed.
// Unknown keys are ignored.
func (g *GateTracker) NoteOff(key uint32) bool {
	i := g.indexOf(key)
	if i < 0 {
		return false
	}
	g.count--
	g.held[i] = g.held[g.count]
	return g.count == 0
}

// Count returns the number of held notes
func (g *GateTracker) Count() int {
	return g.count
}

// IsOpen reports whether any note is held
func (g *GateTracker) IsOpen() bool {
	return g.count > 0
}

// Reset forgets every held note
func (g *GateTracker) Reset() {
	g.count = 0
}

func (g *GateTracker) indexOf(key uint32) int {
	for i := 0; i < g.count; i++ {
		if g.held[i] == key {
			return i
		}
	}
	return -1
}
