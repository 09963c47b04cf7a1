// Package monitor carries envelope display data from the audio thread to a
// UI without blocking the audio thread.
package monitor

import (
	"math"

	"github.com/justyntemme/envnode/pkg/dsp"
)

// Throttle limits how often a per-block callback fires, measured in samples
// so it stays deterministic offline.
type Throttle struct {
	interval int
	counter  int
}

// LimitToFrameRate sets the update interval to one per frame at fps.
// A non-positive rate disables throttling.
func (t *Throttle) LimitToFrameRate(sampleRate, fps float64) {
	if sampleRate <= 0 || fps <= 0 {
		t.interval = 0
	} else {
		t.interval = int(math.Round(dsp.MsToSamples(1000/fps, sampleRate)))
	}
	t.counter = 0
}

// Interval returns the number of samples between updates.
func (t *Throttle) Interval() int { return t.interval }

// ShouldUpdate accounts for numSamples and reports whether an update is due.
func (t *Throttle) ShouldUpdate(numSamples int) bool {
	if t.interval <= 0 {
		return true
	}
	t.counter += numSamples
	if t.counter < t.interval {
		return false
	}
	t.counter %= t.interval
	return true
}

// Reset restarts the interval.
func (t *Throttle) Reset() {
	t.counter = 0
}
