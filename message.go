package toolapi

import (
	"bytes"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// FrameType is the discriminant of the wire frame union. The decoder consumes
// it first and rejects unknown tags deterministically; the numeric values are
// part of the wire format.
type FrameType uint8

const (
	// FrameValues carries the tool input (client to server).
	FrameValues FrameType = iota + 1
	// FrameResult carries the tool output or its error (server to client,
	// terminal).
	FrameResult
	// FrameText carries one progress or log line (server to client).
	FrameText
	// FrameAbort requests cancellation (client to server, no payload).
	FrameAbort
)

func (t FrameType) String() string {
	switch t {
	case FrameValues:
		return "Values"
	case FrameResult:
		return "Result"
	case FrameText:
		return "TextMessage"
	case FrameAbort:
		return "Abort"
	}
	return fmt.Sprintf("FrameType(%d)", uint8(t))
}

// Frame is one complete wire message. Exactly the fields implied by Type are
// meaningful. Frames are constructed per send and consumed once per receive,
// never retained.
type Frame struct {
	Type   FrameType
	Values ValueDict   // FrameValues
	Result *ToolResult // FrameResult
	Text   string      // FrameText
}

// ToolResult is the payload of a Result frame: the tool's output dict on
// success, or its error.
type ToolResult struct {
	Values ValueDict
	Err    *ToolError
}

// The codec is MessagePack followed by zstd, shared verbatim by both ends of
// the connection. Any change to tag layout, field order or compression
// parameters is a breaking wire-format change.
var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

func encodeFrame(f *Frame) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := encodeFrameBody(enc, f); err != nil {
		return nil, &ParseError{Kind: ParseSerialize, Err: err}
	}
	return zstdEncoder.EncodeAll(buf.Bytes(), nil), nil
}

// decodeFrame rejects any non-binary WebSocket frame, then reverses the
// codec: decompress, deserialize.
func decodeFrame(messageType int, data []byte) (*Frame, error) {
	if messageType != websocket.BinaryMessage {
		return nil, &ParseError{
			Kind:     ParseWrongMessageType,
			Expected: websocket.BinaryMessage,
			Found:    messageType,
		}
	}
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, &ParseError{Kind: ParseDecompress, Err: err}
	}
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	f, err := decodeFrameBody(dec)
	if err != nil {
		return nil, &ParseError{Kind: ParseDeserialize, Err: err}
	}
	return f, nil
}

func encodeFrameBody(enc *msgpack.Encoder, f *Frame) error {
	if err := enc.EncodeUint(uint64(f.Type)); err != nil {
		return err
	}
	switch f.Type {
	case FrameValues:
		return encodeValueDict(enc, f.Values)
	case FrameResult:
		if err := enc.EncodeBool(f.Result.Err == nil); err != nil {
			return err
		}
		if f.Result.Err == nil {
			return encodeValueDict(enc, f.Result.Values)
		}
		if err := enc.EncodeUint(uint64(f.Result.Err.Aborted)); err != nil {
			return err
		}
		return enc.EncodeString(f.Result.Err.Message)
	case FrameText:
		return enc.EncodeString(f.Text)
	case FrameAbort:
		return nil
	}
	return fmt.Errorf("unknown frame type %d", f.Type)
}

func decodeFrameBody(dec *msgpack.Decoder) (*Frame, error) {
	tag, err := dec.DecodeUint64()
	if err != nil {
		return nil, err
	}
	f := &Frame{Type: FrameType(tag)}
	switch f.Type {
	case FrameValues:
		f.Values, err = decodeValueDict(dec)
		return f, err
	case FrameResult:
		ok, err := dec.DecodeBool()
		if err != nil {
			return nil, err
		}
		f.Result = &ToolResult{}
		if ok {
			f.Result.Values, err = decodeValueDict(dec)
			return f, err
		}
		aborted, err := dec.DecodeUint64()
		if err != nil {
			return nil, err
		}
		msg, err := dec.DecodeString()
		if err != nil {
			return nil, err
		}
		f.Result.Err = &ToolError{Aborted: AbortReason(aborted), Message: msg}
		return f, nil
	case FrameText:
		f.Text, err = dec.DecodeString()
		return f, err
	case FrameAbort:
		return f, nil
	}
	return nil, fmt.Errorf("unknown frame tag %d", tag)
}

func encodeValueDict(enc *msgpack.Encoder, d ValueDict) error {
	if err := enc.EncodeMapLen(len(d)); err != nil {
		return err
	}
	for k, v := range d {
		if err := enc.EncodeString(k); err != nil {
			return err
		}
		if err := encodeValue(enc, v); err != nil {
			return err
		}
	}
	return nil
}

func decodeValueDict(dec *msgpack.Decoder) (ValueDict, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, err
	}
	d := make(ValueDict, n)
	for i := 0; i < n; i++ {
		k, err := dec.DecodeString()
		if err != nil {
			return nil, err
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		d[k] = v
	}
	return d, nil
}

// encodeValue writes the kind tag followed by the body. Homogeneous
// collections write their element kind once and then a flat run of bodies;
// that is the whole point of having them.
func encodeValue(enc *msgpack.Encoder, v Value) error {
	if err := enc.EncodeUint(uint64(v.Kind())); err != nil {
		return err
	}
	return encodeValueBody(enc, v)
}

func decodeValue(dec *msgpack.Decoder) (Value, error) {
	tag, err := dec.DecodeUint64()
	if err != nil {
		return nil, err
	}
	return decodeValueBody(dec, ValueKind(tag))
}

func encodeValueBody(enc *msgpack.Encoder, v Value) error {
	switch val := v.(type) {
	case None:
		return nil
	case Bool:
		return enc.EncodeBool(bool(val))
	case Int:
		return enc.EncodeInt(int64(val))
	case Float:
		return enc.EncodeFloat64(float64(val))
	case Complex:
		if err := enc.EncodeFloat64(real(complex128(val))); err != nil {
			return err
		}
		return enc.EncodeFloat64(imag(complex128(val)))
	case Vec3:
		return encodeFloats(enc, val[:])
	case Vec4:
		return encodeFloats(enc, val[:])
	case Str:
		return enc.EncodeString(string(val))
	case SeqEvent:
		return encodeSeqEvent(enc, val)
	case Volume:
		return encodeVolume(enc, val)
	case SegmentedPhantom:
		return encodeSegmentedPhantom(enc, val)
	case PhantomTissue:
		return encodePhantomTissue(enc, val)
	case Dict:
		if err := enc.EncodeMapLen(len(val)); err != nil {
			return err
		}
		for k, elem := range val {
			if err := enc.EncodeString(k); err != nil {
				return err
			}
			if err := encodeValue(enc, elem); err != nil {
				return err
			}
		}
		return nil
	case List:
		if err := enc.EncodeArrayLen(len(val)); err != nil {
			return err
		}
		for _, elem := range val {
			if err := encodeValue(enc, elem); err != nil {
				return err
			}
		}
		return nil
	case TypedDict:
		if err := enc.EncodeUint(uint64(val.elem)); err != nil {
			return err
		}
		if err := enc.EncodeMapLen(len(val.items)); err != nil {
			return err
		}
		for k, elem := range val.items {
			if err := enc.EncodeString(k); err != nil {
				return err
			}
			if err := encodeValueBody(enc, elem); err != nil {
				return err
			}
		}
		return nil
	case TypedList:
		return encodeTypedList(enc, val)
	}
	return fmt.Errorf("unknown value kind %s", v.Kind())
}

func decodeValueBody(dec *msgpack.Decoder, kind ValueKind) (Value, error) {
	switch kind {
	case KindNone:
		return None{}, nil
	case KindBool:
		b, err := dec.DecodeBool()
		return Bool(b), err
	case KindInt:
		n, err := dec.DecodeInt64()
		return Int(n), err
	case KindFloat:
		f, err := dec.DecodeFloat64()
		return Float(f), err
	case KindComplex:
		re, err := dec.DecodeFloat64()
		if err != nil {
			return nil, err
		}
		im, err := dec.DecodeFloat64()
		return Complex(complex(re, im)), err
	case KindVec3:
		var v Vec3
		err := decodeFloats(dec, v[:])
		return v, err
	case KindVec4:
		var v Vec4
		err := decodeFloats(dec, v[:])
		return v, err
	case KindStr:
		s, err := dec.DecodeString()
		return Str(s), err
	case KindSeqEvent:
		return decodeSeqEvent(dec)
	case KindVolume:
		return decodeVolume(dec)
	case KindSegmentedPhantom:
		return decodeSegmentedPhantom(dec)
	case KindPhantomTissue:
		return decodePhantomTissue(dec)
	case KindDict:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return nil, err
		}
		d := make(Dict, n)
		for i := 0; i < n; i++ {
			k, err := dec.DecodeString()
			if err != nil {
				return nil, err
			}
			elem, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			d[k] = elem
		}
		return d, nil
	case KindList:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return nil, err
		}
		l := make(List, n)
		for i := range l {
			if l[i], err = decodeValue(dec); err != nil {
				return nil, err
			}
		}
		return l, nil
	case KindTypedDict:
		tag, err := dec.DecodeUint64()
		if err != nil {
			return nil, err
		}
		elem := ValueKind(tag)
		if elem.isCollection() {
			return nil, fmt.Errorf("typed dict with collection element kind %s", elem)
		}
		n, err := dec.DecodeMapLen()
		if err != nil {
			return nil, err
		}
		items := make(map[string]Value, n)
		for i := 0; i < n; i++ {
			k, err := dec.DecodeString()
			if err != nil {
				return nil, err
			}
			if items[k], err = decodeValueBody(dec, elem); err != nil {
				return nil, err
			}
		}
		return TypedDict{elem: elem, items: items}, nil
	case KindTypedList:
		return decodeTypedList(dec)
	}
	return nil, fmt.Errorf("unknown value tag %d", kind)
}

func encodeTypedList(enc *msgpack.Encoder, val TypedList) error {
	if err := enc.EncodeUint(uint64(val.elem)); err != nil {
		return err
	}
	if err := enc.EncodeArrayLen(len(val.items)); err != nil {
		return err
	}
	for _, elem := range val.items {
		if err := encodeValueBody(enc, elem); err != nil {
			return err
		}
	}
	return nil
}

func decodeTypedList(dec *msgpack.Decoder) (TypedList, error) {
	tag, err := dec.DecodeUint64()
	if err != nil {
		return TypedList{}, err
	}
	elem := ValueKind(tag)
	if elem.isCollection() {
		return TypedList{}, fmt.Errorf("typed list with collection element kind %s", elem)
	}
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return TypedList{}, err
	}
	items := make([]Value, n)
	for i := range items {
		if items[i], err = decodeValueBody(dec, elem); err != nil {
			return TypedList{}, err
		}
	}
	return TypedList{elem: elem, items: items}, nil
}

func encodeSeqEvent(enc *msgpack.Encoder, ev SeqEvent) error {
	if err := enc.EncodeUint(uint64(ev.Op)); err != nil {
		return err
	}
	switch ev.Op {
	case SeqPulse:
		if err := enc.EncodeFloat64(ev.Angle); err != nil {
			return err
		}
		return enc.EncodeFloat64(ev.Phase)
	case SeqFid:
		return encodeFloats(enc, ev.KT[:])
	case SeqAdc:
		return enc.EncodeFloat64(ev.Phase)
	}
	return fmt.Errorf("unknown sequence event op %d", ev.Op)
}

func decodeSeqEvent(dec *msgpack.Decoder) (SeqEvent, error) {
	tag, err := dec.DecodeUint64()
	if err != nil {
		return SeqEvent{}, err
	}
	ev := SeqEvent{Op: SeqEventOp(tag)}
	switch ev.Op {
	case SeqPulse:
		if ev.Angle, err = dec.DecodeFloat64(); err != nil {
			return SeqEvent{}, err
		}
		ev.Phase, err = dec.DecodeFloat64()
		return ev, err
	case SeqFid:
		err = decodeFloats(dec, ev.KT[:])
		return ev, err
	case SeqAdc:
		ev.Phase, err = dec.DecodeFloat64()
		return ev, err
	}
	return SeqEvent{}, fmt.Errorf("unknown sequence event tag %d", tag)
}

func encodeVolume(enc *msgpack.Encoder, vol Volume) error {
	for _, s := range vol.Shape {
		if err := enc.EncodeUint(s); err != nil {
			return err
		}
	}
	for _, row := range vol.Affine {
		if err := encodeFloats(enc, row[:]); err != nil {
			return err
		}
	}
	return encodeTypedList(enc, vol.Data)
}

func decodeVolume(dec *msgpack.Decoder) (Volume, error) {
	var vol Volume
	var err error
	for i := range vol.Shape {
		if vol.Shape[i], err = dec.DecodeUint64(); err != nil {
			return Volume{}, err
		}
	}
	for i := range vol.Affine {
		if err = decodeFloats(dec, vol.Affine[i][:]); err != nil {
			return Volume{}, err
		}
	}
	vol.Data, err = decodeTypedList(dec)
	return vol, err
}

func encodePhantomTissue(enc *msgpack.Encoder, t PhantomTissue) error {
	if err := encodeVolume(enc, t.Density); err != nil {
		return err
	}
	if err := encodeVolume(enc, t.DB0); err != nil {
		return err
	}
	return encodeFloats(enc, []float64{t.T1, t.T2, t.T2Dash, t.ADC})
}

func decodePhantomTissue(dec *msgpack.Decoder) (PhantomTissue, error) {
	var t PhantomTissue
	var err error
	if t.Density, err = decodeVolume(dec); err != nil {
		return PhantomTissue{}, err
	}
	if t.DB0, err = decodeVolume(dec); err != nil {
		return PhantomTissue{}, err
	}
	props := make([]float64, 4)
	if err = decodeFloats(dec, props); err != nil {
		return PhantomTissue{}, err
	}
	t.T1, t.T2, t.T2Dash, t.ADC = props[0], props[1], props[2], props[3]
	return t, nil
}

func encodeSegmentedPhantom(enc *msgpack.Encoder, p SegmentedPhantom) error {
	if err := enc.EncodeArrayLen(len(p.Tissues)); err != nil {
		return err
	}
	for _, t := range p.Tissues {
		if err := encodePhantomTissue(enc, t); err != nil {
			return err
		}
	}
	for _, volumes := range [][]Volume{p.B1Tx, p.B1Rx} {
		if err := enc.EncodeArrayLen(len(volumes)); err != nil {
			return err
		}
		for _, vol := range volumes {
			if err := encodeVolume(enc, vol); err != nil {
				return err
			}
		}
	}
	return nil
}

func decodeSegmentedPhantom(dec *msgpack.Decoder) (SegmentedPhantom, error) {
	var p SegmentedPhantom
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return SegmentedPhantom{}, err
	}
	p.Tissues = make([]PhantomTissue, n)
	for i := range p.Tissues {
		if p.Tissues[i], err = decodePhantomTissue(dec); err != nil {
			return SegmentedPhantom{}, err
		}
	}
	for _, volumes := range []*[]Volume{&p.B1Tx, &p.B1Rx} {
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return SegmentedPhantom{}, err
		}
		*volumes = make([]Volume, n)
		for i := range *volumes {
			if (*volumes)[i], err = decodeVolume(dec); err != nil {
				return SegmentedPhantom{}, err
			}
		}
	}
	return p, nil
}

func encodeFloats(enc *msgpack.Encoder, fs []float64) error {
	for _, f := range fs {
		if err := enc.EncodeFloat64(f); err != nil {
			return err
		}
	}
	return nil
}

func decodeFloats(dec *msgpack.Decoder, fs []float64) error {
	for i := range fs {
		f, err := dec.DecodeFloat64()
		if err != nil {
			return err
		}
		fs[i] = f
	}
	return nil
}
