package dsp

import "math"

// Buffer utilities for common audio operations

// Clear zeroes a buffer - no allocations
func Clear(buffer []float32) {
	for i := range buffer {
		buffer[i] = 0
	}
}

// Fill sets every sample of buffer to value - no allocations
func Fill(buffer []float32, value float32) {
	for i := range buffer {
		buffer[i] = value
	}
}

// Scale multiplies buffer by a constant - no allocations
func Scale(buffer []float32, scale float32) {
	for i := range buffer {
		buffer[i] *= scale
	}
}

// Multiply multiplies dst by src sample by sample - no allocations
func Multiply(dst, src []float32) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		dst[i] *= src[i]
	}
}

// Peak returns the peak absolute value in the buffer
func Peak(buffer []float32) float32 {
	peak := float32(0)
	for _, s := range buffer {
		abs := float32(math.Abs(float64(s)))
		if abs > peak {
			peak = abs
		}
	}
	return peak
}

// Clip hard-clips buffer to [-limit, limit] - no allocations
func Clip(buffer []float32, limit float32) {
	for i, s := range buffer {
		if s > limit {
			buffer[i] = limit
		} else if s < -limit {
			buffer[i] = -limit
		}
	}
}
