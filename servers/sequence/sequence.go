// Package sequence hosts tools operating on MRI sequence descriptions. Its
// central operation reduces a block sequence, which captures most detail
// present at the scanner (slew rates, pulse shapes, ADC timing), to the flat
// stream of instantaneous events that simple simulation and analysis tools
// consume. Pulse durations and other dynamic effects are lost in that
// reduction.
package sequence

// Block is one building block of a sequence. Events inside a block run
// concurrently; an RF pulse and an ADC window cannot share a block.
type Block struct {
	// MinDuration is the minimum duration of the block; the block is longer
	// if its events exceed it.
	MinDuration float64
	RF          *Pulse
	GX          *TrapGradient
	GY          *TrapGradient
	GZ          *TrapGradient
	ADC         *ADC
}

// Pulse is an RF pulse. Total duration is Delay + Duration + Ringdown.
type Pulse struct {
	Delay    float64
	Duration float64
	Ringdown float64

	FlipAngle       float64
	PhaseOffset     float64
	FrequencyOffset float64

	Shape PulseShape
}

// PulseShapeKind selects the pulse shape variant.
type PulseShapeKind uint8

const (
	// ShapeBlock is a constant amplitude pulse.
	ShapeBlock PulseShapeKind = iota
	// ShapeSinc is a sinc pulse with apodization.
	ShapeSinc
	// ShapeCustom distributes the given samples evenly over the pulse.
	ShapeCustom
)

// PulseShape describes the envelope of a pulse. Different pulse types only
// differ in this.
type PulseShape struct {
	Kind PulseShapeKind

	// Sinc parameters.
	TimeBandwidthProduct float64
	Apodization          float64

	// Custom samples.
	Samples []complex128
}

// TrapGradient is a trapezoidal gradient.
type TrapGradient struct {
	Amplitude float64
	Delay     float64
	RiseTime  float64
	FlatTime  float64
	FallTime  float64
}

// ADC is an analog-to-digital conversion window taking SampleCount evenly
// spaced samples.
type ADC struct {
	SampleCount     uint64
	DwellTime       float64
	Delay           float64
	PhaseOffset     float64
	FrequencyOffset float64
}

// Area returns the gradient moment of the full trapezoid.
func (g *TrapGradient) Area() float64 {
	return g.Amplitude * (0.5*g.RiseTime + g.FlatTime + 0.5*g.FallTime)
}

// Duration returns the time from block start until the gradient has fallen.
func (g *TrapGradient) Duration() float64 {
	return g.Delay + g.RiseTime + g.FlatTime + g.FallTime
}

// TotalDuration returns the time from block start until the pulse has rung
// down.
func (p *Pulse) TotalDuration() float64 {
	return p.Delay + p.Duration + p.Ringdown
}

// Duration returns the time from block start until the last sample.
func (a *ADC) Duration() float64 {
	return a.Delay + float64(a.SampleCount)*a.DwellTime
}

// Duration returns the duration of the whole block: the longest of its
// events, or MinDuration.
func (b *Block) Duration() float64 {
	d := b.MinDuration
	if b.RF != nil {
		d = max(d, b.RF.TotalDuration())
	}
	for _, g := range []*TrapGradient{b.GX, b.GY, b.GZ} {
		if g != nil {
			d = max(d, g.Duration())
		}
	}
	if b.ADC != nil {
		d = max(d, b.ADC.Duration())
	}
	return d
}
