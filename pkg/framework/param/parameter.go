// Package param holds the lock-free parameter values shared between the
// control surface and the processing thread.
package param

import (
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
)

// Parameter is a single automatable value. The normalized value is stored
// atomically so a control thread may write while the audio thread reads.
type Parameter struct {
	ID           uint32
	Name         string
	ShortName    string
	Unit         string
	Min          float64
	Max          float64
	DefaultValue float64 // normalized
	StepCount    int32
	Flags        uint32

	// Skew shapes the normalized range. 1 is linear, values below 1 give
	// more resolution near Min.
	Skew float64

	value atomic.Uint64

	formatFunc func(float64) string
	parseFunc  func(string) (float64, error)
}

// Flags for parameters
const (
	CanAutomate uint32 = 1 << 0
	IsReadOnly  uint32 = 1 << 1
	IsList      uint32 = 1 << 3
	IsHidden    uint32 = 1 << 4
)

// SkewForCentre returns the skew that maps a normalized value of 0.5 to
// centre.
func SkewForCentre(min, max, centre float64) float64 {
	if max <= min || centre <= min || centre >= max {
		return 1
	}
	return math.Log(0.5) / math.Log((centre-min)/(max-min))
}

// GetValue returns the current normalized value (0-1)
func (p *Parameter) GetValue() float64 {
	return math.Float64frombits(p.value.Load())
}

// SetValue sets the normalized value (0-1)
func (p *Parameter) SetValue(value float64) {
	p.value.Store(math.Float64bits(p.snap(clamp01(value))))
}

// GetPlainValue returns the current value in the parameter's own units.
func (p *Parameter) GetPlainValue() float64 {
	return p.Denormalize(p.GetValue())
}

// SetPlainValue stores a value given in the parameter's own units.
func (p *Parameter) SetPlainValue(plain float64) {
	p.SetValue(p.Normalize(plain))
}

// Reset restores the default value.
func (p *Parameter) Reset() {
	p.SetValue(p.DefaultValue)
}

// SetFormatter sets custom value formatting
func (p *Parameter) SetFormatter(format func(float64) string, parse func(string) (float64, error)) {
	p.formatFunc = format
	p.parseFunc = parse
}

// FormatValue returns formatted parameter value
func (p *Parameter) FormatValue(normalized float64) string {
	plain := p.Denormalize(normalized)
	if p.formatFunc != nil {
		return p.formatFunc(plain)
	}
	if p.StepCount > 0 {
		return fmt.Sprintf("%.0f", plain)
	}
	return fmt.Sprintf("%.2f", plain)
}

// ParseValue parses string to normalized value
func (p *Parameter) ParseValue(str string) (float64, error) {
	var (
		plain float64
		err   error
	)
	if p.parseFunc != nil {
		plain, err = p.parseFunc(str)
	} else {
		plain, err = strconv.ParseFloat(str, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("parameter %q: %w", p.Name, err)
	}
	return p.Normalize(plain), nil
}

// Normalize converts plain value to normalized (0-1)
func (p *Parameter) Normalize(plain float64) float64 {
	if p.Max <= p.Min {
		return 0
	}
	proportion := clamp01((plain - p.Min) / (p.Max - p.Min))
	if p.Skew > 0 && p.Skew != 1 && proportion > 0 {
		proportion = math.Pow(proportion, p.Skew)
	}
	return p.snap(proportion)
}

// Denormalize converts normalized (0-1) to plain value
func (p *Parameter) Denormalize(normalized float64) float64 {
	proportion := p.snap(clamp01(normalized))
	if p.Skew > 0 && p.Skew != 1 && proportion > 0 {
		proportion = math.Exp(math.Log(proportion) / p.Skew)
	}
	return p.Min + proportion*(p.Max-p.Min)
}

func (p *Parameter) snap(normalized float64) float64 {
	if p.StepCount <= 0 {
		return normalized
	}
	steps := float64(p.StepCount)
	return math.Round(normalized*steps) / steps
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
