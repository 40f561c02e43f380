package toolapi

// The structured value types give payloads that could be expressed with Dicts
// and Lists a known shape that tools and scripts can rely on. The number of
// these types is kept deliberately low: they force both ends to agree on one
// specific structure, at the cost of some maintenance burden, so niche
// applications should prefer the dynamic collections instead of extending
// this set. The protocol core only serializes, routes and path-extracts
// them; their semantics belong to the tools.

// SeqEventOp selects the variant of a SeqEvent.
type SeqEventOp uint8

const (
	// SeqPulse is an instantaneous RF pulse with flip angle and phase.
	SeqPulse SeqEventOp = iota
	// SeqFid is free induction decay over a gradient moment and duration.
	SeqFid
	// SeqAdc is a single ADC sample with a receiver phase.
	SeqAdc
)

func (op SeqEventOp) String() string {
	switch op {
	case SeqPulse:
		return "Pulse"
	case SeqFid:
		return "Fid"
	case SeqAdc:
		return "Adc"
	}
	return "SeqEventOp(?)"
}

// SeqEvent is one instantaneous event of an MRI sequence. A sequence reduced
// to these events loses pulse durations and other dynamic detail but is very
// convenient for simple simulation and analysis tools.
//
// Which fields are meaningful depends on Op: Pulse uses Angle and Phase, Fid
// uses KT (gradient moment plus elapsed time), Adc uses Phase.
type SeqEvent struct {
	Op    SeqEventOp
	Angle float64
	Phase float64
	KT    Vec4
}

func (SeqEvent) Kind() ValueKind { return KindSeqEvent }
func (v SeqEvent) Clone() Value  { return v }
func (SeqEvent) value()          {}

// Volume is a 3D voxel volume with an affine placing it in space. The sample
// data is a flat TypedList of arbitrary (but singular) element kind, stored
// in x-fastest order.
type Volume struct {
	Shape  [3]uint64
	Affine [4][3]float64
	Data   TypedList
}

func (Volume) Kind() ValueKind { return KindVolume }

func (v Volume) Clone() Value {
	v.Data = v.Data.Clone().(TypedList)
	return v
}

func (Volume) value() {}

// PhantomTissue is one tissue compartment of a segmented phantom: a density
// map, an off-resonance map, and the scalar relaxation properties shared by
// the whole compartment.
type PhantomTissue struct {
	Density Volume
	DB0     Volume

	T1     float64
	T2     float64
	T2Dash float64
	ADC    float64
}

func (PhantomTissue) Kind() ValueKind { return KindPhantomTissue }

func (v PhantomTissue) Clone() Value {
	v.Density = v.Density.Clone().(Volume)
	v.DB0 = v.DB0.Clone().(Volume)
	return v
}

func (PhantomTissue) value() {}

// SegmentedPhantom aggregates tissue compartments with transmit and receive
// field maps. It does not follow the NIfTI standard exactly: NIfTI allows
// per-voxel T1/T2 maps, while this type caters specifically to segmented
// simulations, so converting a voxel phantom into it can be lossy.
type SegmentedPhantom struct {
	Tissues []PhantomTissue
	B1Tx    []Volume
	B1Rx    []Volume
}

func (SegmentedPhantom) Kind() ValueKind { return KindSegmentedPhantom }

func (v SegmentedPhantom) Clone() Value {
	out := SegmentedPhantom{
		Tissues: make([]PhantomTissue, len(v.Tissues)),
		B1Tx:    make([]Volume, len(v.B1Tx)),
		B1Rx:    make([]Volume, len(v.B1Rx)),
	}
	for i, t := range v.Tissues {
		out.Tissues[i] = t.Clone().(PhantomTissue)
	}
	for i, b := range v.B1Tx {
		out.B1Tx[i] = b.Clone().(Volume)
	}
	for i, b := range v.B1Rx {
		out.B1Rx[i] = b.Clone().(Volume)
	}
	return out
}

func (SegmentedPhantom) value() {}
