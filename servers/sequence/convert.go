package sequence

import (
	toolapi "github.com/mrxlab/go-toolapi"
)

// Events reduces a block sequence to its instantaneous event stream. RF
// pulses collapse to their center, gradients to moments over time, ADC
// windows to one sample event per readout point with the k-space trajectory
// expressed as per-sample deltas.
func Events(blocks []Block) []toolapi.SeqEvent {
	var events []toolapi.SeqEvent
	for i := range blocks {
		block := &blocks[i]
		switch {
		case block.RF != nil && block.ADC != nil:
			// blockFromValue rejects this combination; guard anyway.
			panic("not supported: cannot specify rf and adc in same block")
		case block.RF != nil:
			events = append(events, convertRF(block)...)
		case block.ADC != nil:
			events = append(events, convertADC(block)...)
		default:
			events = append(events, convertSpoiler(block))
		}
	}
	return events
}

// convertRF collapses the pulse to its center: the gradient moments before
// the center, the instantaneous pulse, then the moments after it.
func convertRF(block *Block) []toolapi.SeqEvent {
	rf := block.RF
	tCenter := rf.Delay + rf.Duration/2
	duration := block.Duration()

	gx1, gx2 := splitMoment(block.GX, tCenter)
	gy1, gy2 := splitMoment(block.GY, tCenter)
	gz1, gz2 := splitMoment(block.GZ, tCenter)

	return []toolapi.SeqEvent{
		{Op: toolapi.SeqFid, KT: toolapi.Vec4{gx1, gy1, gz1, tCenter}},
		{Op: toolapi.SeqPulse, Angle: rf.FlipAngle, Phase: rf.PhaseOffset},
		{Op: toolapi.SeqFid, KT: toolapi.Vec4{gx2, gy2, gz2, duration - tCenter}},
	}
}

// convertADC emits one sample event per readout point, interleaved with the
// gradient-moment deltas that reach it, and closes with the moment to the
// end of the block.
func convertADC(block *Block) []toolapi.SeqEvent {
	adc := block.ADC

	times := make([]float64, 0, adc.SampleCount+1)
	for t := uint64(0); t < adc.SampleCount; t++ {
		times = append(times, adc.Delay+(float64(t)+0.5)*adc.DwellTime)
	}
	times = append(times, block.Duration())

	integrate := func(g *TrapGradient, t float64) float64 {
		if g == nil {
			return 0
		}
		before, _ := integrateTrap(g, t)
		return before
	}

	var events []toolapi.SeqEvent
	var state [4]float64
	for _, t := range times {
		gradm := [4]float64{
			integrate(block.GX, t),
			integrate(block.GY, t),
			integrate(block.GZ, t),
			t,
		}
		kt := toolapi.Vec4{
			gradm[0] - state[0],
			gradm[1] - state[1],
			gradm[2] - state[2],
			gradm[3] - state[3],
		}
		state = gradm
		events = append(events,
			toolapi.SeqEvent{Op: toolapi.SeqAdc, Phase: adc.PhaseOffset + state[3]*adc.FrequencyOffset},
			toolapi.SeqEvent{Op: toolapi.SeqFid, KT: kt},
		)
	}
	// The leading sample event belongs to time zero and carries no signal.
	return events[1:]
}

// convertSpoiler folds a block without RF or ADC into a single moment event.
func convertSpoiler(block *Block) toolapi.SeqEvent {
	var gx, gy, gz float64
	if block.GX != nil {
		gx = block.GX.Area()
	}
	if block.GY != nil {
		gy = block.GY.Area()
	}
	if block.GZ != nil {
		gz = block.GZ.Area()
	}
	return toolapi.SeqEvent{Op: toolapi.SeqFid, KT: toolapi.Vec4{gx, gy, gz, block.Duration()}}
}

// splitMoment returns the gradient moment before and after time.
func splitMoment(g *TrapGradient, time float64) (float64, float64) {
	if g == nil {
		return 0, 0
	}
	return integrateTrap(g, time)
}

// integrateTrap returns the area under the trapezoid from start to time and
// from time to the end.
func integrateTrap(g *TrapGradient, time float64) (float64, float64) {
	area := g.Area()

	// Before the gradient starts.
	if time <= g.Delay {
		return 0, area
	}

	time -= g.Delay
	// During ramp-up.
	if time < g.RiseTime {
		part := 0.5 * g.Amplitude * (time / g.RiseTime) * time
		return part, area - part
	}

	time -= g.RiseTime
	// During the flat top.
	if time < g.FlatTime {
		rampArea := 0.5 * g.Amplitude * g.RiseTime
		part := rampArea + g.Amplitude*time
		return part, area - part
	}

	time -= g.FlatTime
	// During ramp-down.
	if time < g.FallTime {
		tRev := g.FallTime - time
		missing := 0.5 * g.Amplitude * (tRev / g.FallTime) * tRev
		return area - missing, missing
	}

	// After the gradient.
	return area, 0
}
