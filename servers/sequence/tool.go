package sequence

import (
	"errors"
	"fmt"

	toolapi "github.com/mrxlab/go-toolapi"
)

// Tool converts a block sequence received as dynamic values into the
// instantaneous event stream. The input dict holds "blocks", a list of block
// dicts; the output dict holds "events", a homogeneous list of sequence
// events. Progress is reported per converted block.
func Tool(input toolapi.ValueDict, out *toolapi.Sender) (toolapi.ValueDict, error) {
	rawBlocks, err := toolapi.Pop[toolapi.List](input, "blocks")
	if err != nil {
		return nil, fmt.Errorf("reading blocks: %w", err)
	}

	blocks := make([]Block, len(rawBlocks))
	for i, raw := range rawBlocks {
		block, err := blockFromValue(raw)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		blocks[i] = block
	}

	var events []toolapi.SeqEvent
	for i := range blocks {
		events = append(events, Events(blocks[i:i+1])...)
		if err := out.Send(fmt.Sprintf("converted block %d/%d", i+1, len(blocks))); err != nil {
			return nil, err
		}
	}

	items := make([]toolapi.Value, len(events))
	for i, ev := range events {
		items[i] = ev
	}
	list, err := toolapi.NewTypedList(toolapi.KindSeqEvent, items)
	if err != nil {
		return nil, err
	}
	return toolapi.ValueDict{"events": list}, nil
}

// blockFromValue decodes one block dict. All fields are optional except that
// rf and adc are mutually exclusive.
func blockFromValue(v toolapi.Value) (Block, error) {
	dict, ok := v.(toolapi.Dict)
	if !ok {
		return Block{}, fmt.Errorf("expected a block dict, got %s", v.Kind())
	}

	var block Block
	var err error
	if block.MinDuration, err = popFloat(dict, "min_duration", 0); err != nil {
		return Block{}, err
	}
	if raw, ok := dict["rf"]; ok {
		rf, err := pulseFromValue(raw)
		if err != nil {
			return Block{}, fmt.Errorf("rf: %w", err)
		}
		block.RF = &rf
	}
	for _, axis := range []struct {
		key  string
		dest **TrapGradient
	}{{"gx", &block.GX}, {"gy", &block.GY}, {"gz", &block.GZ}} {
		raw, ok := dict[axis.key]
		if !ok {
			continue
		}
		grad, err := gradientFromValue(raw)
		if err != nil {
			return Block{}, fmt.Errorf("%s: %w", axis.key, err)
		}
		*axis.dest = &grad
	}
	if raw, ok := dict["adc"]; ok {
		adc, err := adcFromValue(raw)
		if err != nil {
			return Block{}, fmt.Errorf("adc: %w", err)
		}
		block.ADC = &adc
	}
	if block.RF != nil && block.ADC != nil {
		return Block{}, errors.New("rf and adc cannot share a block")
	}
	return block, nil
}

func pulseFromValue(v toolapi.Value) (Pulse, error) {
	dict, ok := v.(toolapi.Dict)
	if !ok {
		return Pulse{}, fmt.Errorf("expected a pulse dict, got %s", v.Kind())
	}
	var p Pulse
	fields := []struct {
		key  string
		dest *float64
	}{
		{"delay", &p.Delay},
		{"duration", &p.Duration},
		{"ringdown", &p.Ringdown},
		{"flip_angle", &p.FlipAngle},
		{"phase_offset", &p.PhaseOffset},
		{"frequency_offset", &p.FrequencyOffset},
	}
	for _, f := range fields {
		var err error
		if *f.dest, err = popFloat(dict, f.key, 0); err != nil {
			return Pulse{}, err
		}
	}
	shape, err := shapeFromValue(dict["shape"])
	if err != nil {
		return Pulse{}, err
	}
	p.Shape = shape
	return p, nil
}

func shapeFromValue(v toolapi.Value) (PulseShape, error) {
	if v == nil {
		return PulseShape{Kind: ShapeBlock}, nil
	}
	dict, ok := v.(toolapi.Dict)
	if !ok {
		return PulseShape{}, fmt.Errorf("expected a shape dict, got %s", v.Kind())
	}
	kind, err := toolapi.Pop[toolapi.Str](toolapi.ValueDict(dict), "kind")
	if err != nil {
		return PulseShape{}, fmt.Errorf("shape: %w", err)
	}
	switch string(kind) {
	case "block":
		return PulseShape{Kind: ShapeBlock}, nil
	case "sinc":
		var s PulseShape
		s.Kind = ShapeSinc
		if s.TimeBandwidthProduct, err = popFloat(dict, "time_bandwidth_product", 4); err != nil {
			return PulseShape{}, err
		}
		if s.Apodization, err = popFloat(dict, "apodization", 0); err != nil {
			return PulseShape{}, err
		}
		return s, nil
	case "custom":
		samplesList, err := toolapi.Pop[toolapi.TypedList](toolapi.ValueDict(dict), "samples")
		if err != nil {
			return PulseShape{}, fmt.Errorf("shape samples: %w", err)
		}
		if samplesList.Elem() != toolapi.KindComplex {
			return PulseShape{}, fmt.Errorf("shape samples must be complex, got %s", samplesList.Elem())
		}
		samples := make([]complex128, samplesList.Len())
		for i := range samples {
			samples[i] = complex128(samplesList.At(i).(toolapi.Complex))
		}
		return PulseShape{Kind: ShapeCustom, Samples: samples}, nil
	}
	return PulseShape{}, fmt.Errorf("unknown pulse shape %q", kind)
}

func gradientFromValue(v toolapi.Value) (TrapGradient, error) {
	dict, ok := v.(toolapi.Dict)
	if !ok {
		return TrapGradient{}, fmt.Errorf("expected a gradient dict, got %s", v.Kind())
	}
	var g TrapGradient
	fields := []struct {
		key  string
		dest *float64
	}{
		{"amplitude", &g.Amplitude},
		{"delay", &g.Delay},
		{"rise_time", &g.RiseTime},
		{"flat_time", &g.FlatTime},
		{"fall_time", &g.FallTime},
	}
	for _, f := range fields {
		var err error
		if *f.dest, err = popFloat(dict, f.key, 0); err != nil {
			return TrapGradient{}, err
		}
	}
	return g, nil
}

func adcFromValue(v toolapi.Value) (ADC, error) {
	dict, ok := v.(toolapi.Dict)
	if !ok {
		return ADC{}, fmt.Errorf("expected an adc dict, got %s", v.Kind())
	}
	var a ADC
	samples, err := toolapi.Pop[toolapi.Int](toolapi.ValueDict(dict), "sample_count")
	if err != nil {
		return ADC{}, err
	}
	if samples < 0 {
		return ADC{}, fmt.Errorf("negative sample count %d", samples)
	}
	a.SampleCount = uint64(samples)
	fields := []struct {
		key  string
		dest *float64
	}{
		{"dwell_time", &a.DwellTime},
		{"delay", &a.Delay},
		{"phase_offset", &a.PhaseOffset},
		{"frequency_offset", &a.FrequencyOffset},
	}
	for _, f := range fields {
		if *f.dest, err = popFloat(dict, f.key, 0); err != nil {
			return ADC{}, err
		}
	}
	return a, nil
}

// popFloat pops an optional Float field, accepting Int where scripts send
// whole numbers.
func popFloat(dict toolapi.Dict, key string, def float64) (float64, error) {
	raw, ok := dict[key]
	if !ok {
		return def, nil
	}
	delete(dict, key)
	switch v := raw.(type) {
	case toolapi.Float:
		return float64(v), nil
	case toolapi.Int:
		return float64(v), nil
	}
	return 0, fmt.Errorf("field %q: expected a number, got %s", key, raw.Kind())
}
