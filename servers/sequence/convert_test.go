package sequence

import (
	"math"
	"testing"

	toolapi "github.com/mrxlab/go-toolapi"
)

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

func TestIntegrateTrap(t *testing.T) {
	g := &TrapGradient{Amplitude: 2, Delay: 1, RiseTime: 1, FlatTime: 2, FallTime: 1}
	if !almost(g.Area(), 6) {
		t.Fatalf("area = %v, want 6", g.Area())
	}

	tests := []struct {
		time   float64
		before float64
	}{
		{0.5, 0},    // before the delay
		{1.0, 0},    // exactly at the delay
		{1.5, 0.25}, // mid ramp-up
		{3.0, 3},    // mid flat top
		{4.5, 5.75}, // mid ramp-down
		{10, 6},     // after the gradient
	}
	for _, tt := range tests {
		before, after := integrateTrap(g, tt.time)
		if !almost(before, tt.before) {
			t.Errorf("t=%v: before = %v, want %v", tt.time, before, tt.before)
		}
		if !almost(before+after, 6) {
			t.Errorf("t=%v: before+after = %v, want the full area", tt.time, before+after)
		}
	}
}

func TestBlockDuration(t *testing.T) {
	block := Block{
		MinDuration: 1,
		RF:          &Pulse{Delay: 1, Duration: 2, Ringdown: 0.5},
		GZ:          &TrapGradient{Amplitude: 1, FlatTime: 4},
	}
	if d := block.Duration(); !almost(d, 4) {
		t.Errorf("duration = %v, want the gradient's 4", d)
	}
	block.MinDuration = 9
	if d := block.Duration(); !almost(d, 9) {
		t.Errorf("duration = %v, want the minimum 9", d)
	}
}

func TestEventsSpoilerBlock(t *testing.T) {
	block := Block{
		MinDuration: 5,
		GX:          &TrapGradient{Amplitude: 2, RiseTime: 1, FlatTime: 2, FallTime: 1},
	}
	events := Events([]Block{block})
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.Op != toolapi.SeqFid {
		t.Fatalf("got op %d, want Fid", ev.Op)
	}
	want := toolapi.Vec4{6, 0, 0, 5}
	if ev.KT != want {
		t.Errorf("got kt %v, want %v", ev.KT, want)
	}
}

func TestEventsRFBlock(t *testing.T) {
	block := Block{
		RF: &Pulse{Delay: 1, Duration: 2, FlipAngle: math.Pi / 2, PhaseOffset: 0.1},
		GZ: &TrapGradient{Amplitude: 1, FlatTime: 4},
	}
	events := Events([]Block{block})
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}

	// The pulse collapses to its center at t=2, the gradient moments split
	// around it.
	if events[0].Op != toolapi.SeqFid || events[0].KT != (toolapi.Vec4{0, 0, 2, 2}) {
		t.Errorf("pre-pulse event = %+v", events[0])
	}
	pulse := events[1]
	if pulse.Op != toolapi.SeqPulse || !almost(pulse.Angle, math.Pi/2) || !almost(pulse.Phase, 0.1) {
		t.Errorf("pulse event = %+v", pulse)
	}
	if events[2].Op != toolapi.SeqFid || events[2].KT != (toolapi.Vec4{0, 0, 2, 2}) {
		t.Errorf("post-pulse event = %+v", events[2])
	}
}

func TestEventsADCBlock(t *testing.T) {
	block := Block{
		ADC: &ADC{SampleCount: 2, DwellTime: 1},
		GX:  &TrapGradient{Amplitude: 1, FlatTime: 2},
	}
	events := Events([]Block{block})

	// Two samples plus the block end, as moment/sample interleave with the
	// initial zero-time sample dropped.
	if len(events) != 5 {
		t.Fatalf("got %d events, want 5", len(events))
	}
	if events[0].Op != toolapi.SeqFid || events[0].KT != (toolapi.Vec4{0.5, 0, 0, 0.5}) {
		t.Errorf("first moment = %+v", events[0])
	}

	adcCount := 0
	var sum toolapi.Vec4
	for _, ev := range events {
		switch ev.Op {
		case toolapi.SeqAdc:
			adcCount++
		case toolapi.SeqFid:
			for i := range sum {
				sum[i] += ev.KT[i]
			}
		default:
			t.Fatalf("unexpected op %d", ev.Op)
		}
	}
	if adcCount != 2 {
		t.Errorf("got %d samples, want 2", adcCount)
	}
	// The moment deltas must add up to the whole block.
	if want := (toolapi.Vec4{2, 0, 0, 2}); sum != want {
		t.Errorf("summed moments = %v, want %v", sum, want)
	}
}

func TestEventsMultipleBlocks(t *testing.T) {
	blocks := []Block{
		{RF: &Pulse{Duration: 1, FlipAngle: 1}},
		{GX: &TrapGradient{Amplitude: 1, FlatTime: 1}},
	}
	events := Events(blocks)
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}
	if events[1].Op != toolapi.SeqPulse || events[3].Op != toolapi.SeqFid {
		t.Errorf("unexpected event stream: %+v", events)
	}
}
