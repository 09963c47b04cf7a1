// Package oscillator provides the test carriers that envelopes are rendered onto
package oscillator

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// Waveform selects the oscillator shape
type Waveform int

const (
	Sine Waveform = iota
	Saw
	Square
	Triangle
	// Noise is white noise. Frequency is ignored.
	Noise
)

func (w Waveform) String() string {
	switch w {
	case Sine:
		return "sine"
	case Saw:
		return "saw"
	case Square:
		return "square"
	case Triangle:
		return "triangle"
	case Noise:
		return "noise"
	}
	return "unknown"
}

// ParseWaveform maps a name such as "sine" to a Waveform
func ParseWaveform(s string) (Waveform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sine", "sin":
		return Sine, nil
	case "saw", "sawtooth":
		return Saw, nil
	case "square", "sq":
		return Square, nil
	case "triangle", "tri":
		return Triangle, nil
	case "noise", "white":
		return Noise, nil
	}
	return Sine, fmt.Errorf("unknown waveform %q", s)
}

// Oscillator generates a naive periodic waveform
type Oscillator struct {
	sampleRate float64
	frequency  float64
	phase      float64
	phaseInc   float64
	waveform   Waveform
	rand       *rand.Rand
}

// New creates a 440 Hz sine oscillator
func New(sampleRate float64) *Oscillator {
	o := &Oscillator{sampleRate: sampleRate, rand: rand.New(rand.NewSource(1))}
	o.SetFrequency(440.0)
	return o
}

// SetFrequency sets the oscillator frequency
func (o *Oscillator) SetFrequency(freq float64) {
	o.frequency = freq
	if o.sampleRate > 0 {
		o.phaseInc = freq / o.sampleRate
	}
}

// SetWaveform selects the shape
func (o *Oscillator) SetWaveform(w Waveform) {
	o.waveform = w
}

// Frequency returns the oscillator frequency
func (o *Oscillator) Frequency() float64 {
	return o.frequency
}

// SetSeed sets the random seed for reproducible noise.
func (o *Oscillator) SetSeed(seed int64) {
	o.rand = rand.New(rand.NewSource(seed))
}

// Reset resets the oscillator phase to 0
func (o *Oscillator) Reset() {
	o.phase = 0.0
}

// Next returns one sample and advances the phase
func (o *Oscillator) Next() float32 {
	var sample float64
	switch o.waveform {
	case Saw:
		sample = 2.0*o.phase - 1.0
	case Square:
		sample = 1.0
		if o.phase >= 0.5 {
			sample = -1.0
		}
	case Triangle:
		if o.phase < 0.5 {
			sample = 4.0*o.phase - 1.0
		} else {
			sample = 3.0 - 4.0*o.phase
		}
	case Noise:
		sample = o.rand.Float64()*2.0 - 1.0
	default:
		sample = math.Sin(2.0 * math.Pi * o.phase)
	}

	o.phase += o.phaseInc
	if o.phase >= 1.0 {
		o.phase -= math.Floor(o.phase)
	}
	return float32(sample)
}

// Process fills buffer with the waveform - no allocations
func (o *Oscillator) Process(buffer []float32) {
	for i := range buffer {
		buffer[i] = o.Next()
	}
}
