package envelope

// Generator is the capability shared by every envelope voice record.
type Generator interface {
	// Tick advances one sample and returns the new value
	Tick() float32
	// IsActive reports whether the voice is producing output
	IsActive() bool
	// SetGate opens or closes the gate
	SetGate(on bool)
	// Value returns the last output value
	Value() float64
	// Reset returns the voice to idle
	Reset()
}

var (
	_ Generator = (*State)(nil)
	_ Generator = (*GateFollower)(nil)
)
