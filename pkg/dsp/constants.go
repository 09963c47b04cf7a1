// Package dsp provides digital signal processing utilities and constants shared by the envelope engine.
package dsp

import "math"

// Common audio constants used throughout the DSP packages and nodes.
const (
	// Common sample rates
	SampleRate44k1 = 44100.0
	SampleRate48k  = 48000.0
	SampleRate96k  = 96000.0

	// Buffer sizes
	MinBufferSize     = 32
	DefaultBufferSize = 512
	MaxBufferSize     = 8192

	// Channel counts
	Mono   = 1
	Stereo = 2

	// Envelope time ranges (in milliseconds)
	MinEnvelopeTimeMs     = 0.001 // shortest segment, still one sample at any rate
	MaxEnvelopeTimeMs     = 10000.0
	EnvelopeTimeCentreMs  = 300.0 // skew centre for AHDSR time controls
	MaxGateFollowerTimeMs = 1000.0
	GateFollowerCentreMs  = 100.0

	// Level ranges
	MinLevel = 0.0
	MaxLevel = 1.0

	// Gate values above this threshold are "on"
	GateThreshold = 0.5

	// Monitor refresh rate for position feeds (frames per second)
	MonitorFrameRate = 30.0
)

// DbToGain converts a decibel value to linear amplitude.
func DbToGain(db float64) float64 {
	return math.Pow(10.0, db/20.0)
}

// MsToSamples converts a duration in milliseconds to a (fractional) sample count.
func MsToSamples(ms, sampleRate float64) float64 {
	return ms * 0.001 * sampleRate
}

// SamplesToMs converts a sample count to milliseconds.
func SamplesToMs(samples, sampleRate float64) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return 1000.0 * samples / sampleRate
}
