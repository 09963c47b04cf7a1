package debug

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Profiler collects timings for named sections.
type Profiler struct {
	mu           sync.Mutex
	measurements map[string]*Measurement
	maxSamples   int
}

// Measurement holds timing statistics for a profiled section.
type Measurement struct {
	Name    string
	Count   uint64
	Total   time.Duration
	Min     time.Duration
	Max     time.Duration
	samples []time.Duration
	next    int
}

// NewProfiler creates a profiler that keeps the last maxSamples timings of
// each section for percentiles.
func NewProfiler(maxSamples int) *Profiler {
	if maxSamples < 1 {
		maxSamples = 1
	}
	return &Profiler{
		measurements: make(map[string]*Measurement),
		maxSamples:   maxSamples,
	}
}

// Start begins timing a named section and returns the function that ends it.
func (p *Profiler) Start(name string) func() {
	start := time.Now()
	return func() {
		p.Record(name, time.Since(start))
	}
}

// Record adds one timing for name.
func (p *Profiler) Record(name string, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.measurements[name]
	if !ok {
		m = &Measurement{Name: name, Min: elapsed, Max: elapsed}
		p.measurements[name] = m
	}
	m.Count++
	m.Total += elapsed
	if elapsed < m.Min {
		m.Min = elapsed
	}
	if elapsed > m.Max {
		m.Max = elapsed
	}
	if len(m.samples) < p.maxSamples {
		m.samples = append(m.samples, elapsed)
	} else {
		m.samples[m.next] = elapsed
		m.next = (m.next + 1) % p.maxSamples
	}
}

// Get returns a copy of the measurement for name.
func (p *Profiler) Get(name string) (Measurement, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.measurements[name]
	if !ok {
		return Measurement{}, false
	}
	c := *m
	c.samples = append([]time.Duration(nil), m.samples...)
	return c, true
}

// Reset clears all measurements.
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.measurements = make(map[string]*Measurement)
}

// Report formats every measurement, sorted by name.
func (p *Profiler) Report() string {
	p.mu.Lock()
	names := make([]string, 0, len(p.measurements))
	for name := range p.measurements {
		names = append(names, name)
	}
	p.mu.Unlock()

	if len(names) == 0 {
		return "no measurements recorded"
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		m, _ := p.Get(name)
		fmt.Fprintf(&sb, "%s: count=%d avg=%v min=%v max=%v p99=%v\n",
			name, m.Count, m.Average(), m.Min, m.Max, m.Percentile(99))
	}
	return sb.String()
}

// Average returns the mean time.
func (m Measurement) Average() time.Duration {
	if m.Count == 0 {
		return 0
	}
	return m.Total / time.Duration(m.Count)
}

// Percentile returns the p-th percentile (0-100) of the retained samples.
func (m Measurement) Percentile(p float64) time.Duration {
	if len(m.samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), m.samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)-1) * p / 100)
	return sorted[idx]
}

// BlockProfiler times process calls and relates them to the real-time
// budget of one block.
type BlockProfiler struct {
	*Profiler
	sampleRate float64
	blockSize  int
}

// BlockSection is the section name used by BlockProfiler.
const BlockSection = "process"

// NewBlockProfiler creates a profiler for blocks of blockSize at sampleRate.
func NewBlockProfiler(sampleRate float64, blockSize int) *BlockProfiler {
	return &BlockProfiler{
		Profiler:   NewProfiler(1000),
		sampleRate: sampleRate,
		blockSize:  blockSize,
	}
}

// Time runs fn and records it as one block.
func (b *BlockProfiler) Time(fn func()) {
	stop := b.Start(BlockSection)
	fn()
	stop()
}

// Budget returns the wall-clock duration of one block.
func (b *BlockProfiler) Budget() time.Duration {
	if b.sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.blockSize) * float64(time.Second) / b.sampleRate)
}

// Load returns the average block time as a percentage of the budget.
func (b *BlockProfiler) Load() float64 {
	m, ok := b.Get(BlockSection)
	budget := b.Budget()
	if !ok || budget == 0 {
		return 0
	}
	return float64(m.Average()) / float64(budget) * 100
}
