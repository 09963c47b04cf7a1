package node

import "github.com/justyntemme/envnode/pkg/dsp/envelope"

// processBlock multiplies every channel by the generator, one tick per frame.
// Channels may differ in length. The generator ticks once per frame of the
// longest channel and shorter channels skip the frames they lack.
func processBlock[G envelope.Generator](g G, data [][]float32) {
	if len(data) == 0 {
		return
	}
	if len(data) == 1 {
		ch := data[0]
		for i := range ch {
			ch[i] *= g.Tick()
		}
		return
	}
	n := 0
	for _, ch := range data {
		n = max(n, len(ch))
	}
	for i := 0; i < n; i++ {
		v := g.Tick()
		for _, ch := range data {
			if i < len(ch) {
				ch[i] *= v
			}
		}
	}
}

// processFrame multiplies one frame of interleaved channels by a single tick.
func processFrame[G envelope.Generator](g G, frame []float32) {
	v := g.Tick()
	for i := range frame {
		frame[i] *= v
	}
}
