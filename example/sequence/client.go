package main

import (
	"fmt"
	"math"

	toolapi "github.com/mrxlab/go-toolapi"
)

// runClient converts a small demo sequence and prints the resulting events.
func runClient(addr string) error {
	output, err := toolapi.Call(addr, toolapi.ValueDict{"blocks": demoBlocks()}, func(msg string) bool {
		fmt.Println("server:", msg)
		return true
	})
	if err != nil {
		return err
	}

	events, err := toolapi.Pop[toolapi.TypedList](output, "events")
	if err != nil {
		return err
	}
	for i := 0; i < events.Len(); i++ {
		ev := events.At(i).(toolapi.SeqEvent)
		switch ev.Op {
		case toolapi.SeqPulse:
			fmt.Printf("%3d pulse angle=%.3f phase=%.3f\n", i, ev.Angle, ev.Phase)
		case toolapi.SeqFid:
			fmt.Printf("%3d fid   kt=%v\n", i, ev.KT)
		case toolapi.SeqAdc:
			fmt.Printf("%3d adc   phase=%.3f\n", i, ev.Phase)
		}
	}
	return nil
}

// demoBlocks builds a minimal excitation + readout + spoiler sequence.
func demoBlocks() toolapi.List {
	return toolapi.List{
		toolapi.Dict{
			"rf": toolapi.Dict{
				"duration":   toolapi.Float(1e-3),
				"flip_angle": toolapi.Float(math.Pi / 2),
				"shape":      toolapi.Dict{"kind": toolapi.Str("sinc")},
			},
			"gz": toolapi.Dict{
				"amplitude": toolapi.Float(1.0),
				"rise_time": toolapi.Float(1e-4),
				"flat_time": toolapi.Float(1e-3),
				"fall_time": toolapi.Float(1e-4),
			},
		},
		toolapi.Dict{
			"gx": toolapi.Dict{
				"amplitude": toolapi.Float(0.5),
				"rise_time": toolapi.Float(1e-4),
				"flat_time": toolapi.Float(3.2e-3),
				"fall_time": toolapi.Float(1e-4),
			},
			"adc": toolapi.Dict{
				"sample_count": toolapi.Int(32),
				"dwell_time":   toolapi.Float(1e-4),
				"delay":        toolapi.Float(1e-4),
			},
		},
		toolapi.Dict{
			"gx": toolapi.Dict{
				"amplitude": toolapi.Float(1.0),
				"rise_time": toolapi.Float(1e-4),
				"flat_time": toolapi.Float(5e-4),
				"fall_time": toolapi.Float(1e-4),
			},
		},
	}
}
