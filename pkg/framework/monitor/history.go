package monitor

import (
	"sync/atomic"
)

// History is a single-producer single-consumer ring of envelope values.
// The audio thread writes, a UI goroutine drains. Writes that do not fit are
// dropped rather than overwriting unread data.
type History struct {
	data     []float32
	readPos  atomic.Uint64
	writePos atomic.Uint64
	size     uint64
	mask     uint64

	overruns atomic.Uint64
}

// NewHistory creates a ring holding at least capacity values.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	size := nextPowerOf2(uint64(capacity))
	return &History{
		data: make([]float32, size),
		size: size,
		mask: size - 1,
	}
}

// Write appends values and returns how many were stored.
func (h *History) Write(values []float32) int {
	writePos := h.writePos.Load()
	readPos := h.readPos.Load()

	free := h.size - (writePos - readPos)
	n := uint64(len(values))
	if n > free {
		n = free
		h.overruns.Add(1)
	}
	for i := uint64(0); i < n; i++ {
		h.data[(writePos+i)&h.mask] = values[i]
	}
	h.writePos.Store(writePos + n)
	return int(n)
}

// Push appends a single value.
func (h *History) Push(v float32) bool {
	writePos := h.writePos.Load()
	if writePos-h.readPos.Load() >= h.size {
		h.overruns.Add(1)
		return false
	}
	h.data[writePos&h.mask] = v
	h.writePos.Store(writePos + 1)
	return true
}

// Read drains up to len(dst) values into dst and returns the count.
func (h *History) Read(dst []float32) int {
	readPos := h.readPos.Load()
	writePos := h.writePos.Load()

	n := writePos - readPos
	if n > uint64(len(dst)) {
		n = uint64(len(dst))
	}
	for i := uint64(0); i < n; i++ {
		dst[i] = h.data[(readPos+i)&h.mask]
	}
	h.readPos.Store(readPos + n)
	return int(n)
}

// Len returns the number of unread values.
func (h *History) Len() int {
	return int(h.writePos.Load() - h.readPos.Load())
}

// Cap returns the ring capacity.
func (h *History) Cap() int { return int(h.size) }

// Overruns returns how many writes were truncated.
func (h *History) Overruns() uint64 { return h.overruns.Load() }

// Reset discards unread values. Only safe while no writer is running.
func (h *History) Reset() {
	h.readPos.Store(0)
	h.writePos.Store(0)
	h.overruns.Store(0)
}

func nextPowerOf2(n uint64) uint64 {
	p := uint64(1)
	for p < n {
		p <<= 1
	}
	return p
}
