package debug

import (
	"fmt"
	"math"
	"strings"
)

// AnalysisResult summarizes a rendered envelope or modulated buffer.
type AnalysisResult struct {
	Samples    int
	Peak       float32
	PeakIndex  int
	Final      float32
	RMS        float32
	NaNCount   int
	OutOfRange int // samples outside [-limit, limit]
	// LastActive is the index of the last sample above the silence floor,
	// or -1 for a silent buffer.
	LastActive int
}

// Analyzer inspects buffers against a level limit and a silence floor.
type Analyzer struct {
	Limit        float32
	SilenceFloor float32
}

// NewAnalyzer returns an analyzer for unipolar envelopes with an allowed
// peak of 1.
func NewAnalyzer() *Analyzer {
	return &Analyzer{Limit: 1.0 + 1e-6, SilenceFloor: 1e-6}
}

// Analyze scans buffer once.
func (a *Analyzer) Analyze(buffer []float32) AnalysisResult {
	res := AnalysisResult{Samples: len(buffer), LastActive: -1}
	if len(buffer) == 0 {
		return res
	}

	var sumSquares float64
	for i, s := range buffer {
		if math.IsNaN(float64(s)) {
			res.NaNCount++
			continue
		}
		abs := s
		if abs < 0 {
			abs = -abs
		}
		if abs > res.Peak {
			res.Peak = abs
			res.PeakIndex = i
		}
		if abs > a.Limit {
			res.OutOfRange++
		}
		if abs > a.SilenceFloor {
			res.LastActive = i
		}
		sumSquares += float64(s) * float64(s)
	}
	res.Final = buffer[len(buffer)-1]
	res.RMS = float32(math.Sqrt(sumSquares / float64(len(buffer))))
	return res
}

// Check returns a human readable list of problems found in buffer.
func (a *Analyzer) Check(buffer []float32, name string) []string {
	res := a.Analyze(buffer)

	var issues []string
	if res.NaNCount > 0 {
		issues = append(issues, fmt.Sprintf("%s: contains %d NaN values", name, res.NaNCount))
	}
	if res.OutOfRange > 0 {
		issues = append(issues, fmt.Sprintf("%s: %d samples exceed %.3f (peak %.3f)", name, res.OutOfRange, a.Limit, res.Peak))
	}
	return issues
}

// CompareBuffers returns the largest absolute difference between a and b
// and where it occurs. Buffers of different length are an error.
func CompareBuffers(a, b []float32) (maxDiff float32, index int, err error) {
	if len(a) != len(b) {
		return 0, 0, fmt.Errorf("buffer length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		if d > maxDiff {
			maxDiff = d
			index = i
		}
	}
	return maxDiff, index, nil
}

// PrintBuffer draws a unipolar buffer as rows of text, top row first.
// Each column averages len(buffer)/width samples.
func PrintBuffer(buffer []float32, width, height int) string {
	if len(buffer) == 0 {
		return "empty buffer"
	}
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 10
	}
	if width > len(buffer) {
		width = len(buffer)
	}

	peak := float32(0)
	for _, s := range buffer {
		if s > peak {
			peak = s
		}
	}
	if peak == 0 {
		return "silent buffer"
	}

	levels := make([]int, width)
	per := float64(len(buffer)) / float64(width)
	for col := range levels {
		start := int(float64(col) * per)
		end := int(float64(col+1) * per)
		if end <= start {
			end = start + 1
		}
		var sum float32
		for _, s := range buffer[start:end] {
			sum += s
		}
		avg := sum / float32(end-start)
		levels[col] = int(math.Round(float64(avg/peak) * float64(height)))
	}

	var sb strings.Builder
	for row := height; row >= 1; row-- {
		for _, lvl := range levels {
			if lvl >= row {
				sb.WriteRune('█')
			} else {
				sb.WriteRune(' ')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

var defaultAnalyzer = NewAnalyzer()

// AnalyzeBuffer analyzes buffer with the default analyzer.
func AnalyzeBuffer(buffer []float32) AnalysisResult {
	return defaultAnalyzer.Analyze(buffer)
}

// CheckEnvelope logs every problem found in buffer as a warning.
func CheckEnvelope(buffer []float32, name string) {
	for _, issue := range defaultAnalyzer.Check(buffer, name) {
		Warn("%s", issue)
	}
}
