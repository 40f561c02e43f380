package toolapi

import (
	"errors"
	"reflect"
	"testing"

	"github.com/gorilla/websocket"
)

func mustTypedList(t *testing.T, elem ValueKind, items ...Value) TypedList {
	t.Helper()
	if items == nil {
		items = []Value{}
	}
	list, err := NewTypedList(elem, items)
	if err != nil {
		t.Fatalf("failed to build typed list: %v", err)
	}
	return list
}

func mustTypedDict(t *testing.T, elem ValueKind, items map[string]Value) TypedDict {
	t.Helper()
	dict, err := NewTypedDict(elem, items)
	if err != nil {
		t.Fatalf("failed to build typed dict: %v", err)
	}
	return dict
}

func testVolume(t *testing.T) Volume {
	t.Helper()
	return Volume{
		Shape: [3]uint64{2, 1, 1},
		Affine: [4][3]float64{
			{1, 0, 0},
			{0, 1, 0},
			{0, 0, 1},
			{0.5, -0.5, 2},
		},
		Data: mustTypedList(t, KindFloat, Float(0.25), Float(0.75)),
	}
}

func testPhantom(t *testing.T) SegmentedPhantom {
	t.Helper()
	vol := testVolume(t)
	return SegmentedPhantom{
		Tissues: []PhantomTissue{
			{Density: vol, DB0: vol, T1: 3.6, T2: 1.8, T2Dash: 0.5, ADC: 1e-9},
		},
		B1Tx: []Volume{vol},
		B1Rx: []Volume{vol, vol},
	}
}

func TestFrameRoundTripValues(t *testing.T) {
	vol := testVolume(t)

	variants := map[string]Value{
		"none":    None{},
		"bool":    Bool(true),
		"int":     Int(-42),
		"float":   Float(3.75),
		"complex": Complex(complex(1.5, -2.5)),
		"vec3":    Vec3{1, 2, 3},
		"vec4":    Vec4{1, 2, 3, 4},
		"str":     Str("hello"),
		"pulse":   SeqEvent{Op: SeqPulse, Angle: 1.5, Phase: 0.25},
		"fid":     SeqEvent{Op: SeqFid, KT: Vec4{0.1, 0.2, 0.3, 0.4}},
		"adc":     SeqEvent{Op: SeqAdc, Phase: -0.5},
		"volume":  vol,
		"tissue":  testPhantom(t).Tissues[0],
		"phantom": testPhantom(t),
		"typed_list": mustTypedList(t, KindVec3,
			Vec3{1, 0, 0}, Vec3{0, 1, 0}, Vec3{0, 0, 1}),
		"typed_dict": mustTypedDict(t, KindInt, map[string]Value{
			"a": Int(1), "b": Int(2),
		}),
		"empty_typed_list": mustTypedList(t, KindStr),
		"nested": Dict{
			"level1": List{
				Int(1),
				Dict{
					"level3": List{Str("deep"), None{}, Float(9.5)},
				},
				mustTypedList(t, KindComplex, Complex(complex(0, 1))),
			},
		},
		"empty_list": List{},
		"empty_dict": Dict{},
	}

	for name, v := range variants {
		t.Run(name, func(t *testing.T) {
			input := ValueDict{"x": v}
			data, err := encodeFrame(&Frame{Type: FrameValues, Values: input})
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}
			f, err := decodeFrame(websocket.BinaryMessage, data)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if f.Type != FrameValues {
				t.Fatalf("got frame type %s, want Values", f.Type)
			}
			got, err := Get(f.Values["x"], "")
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			if !reflect.DeepEqual(got, v) {
				t.Errorf("round trip mismatch:\ngot  %#v\nwant %#v", got, v)
			}
		})
	}
}

func TestFrameRoundTripResult(t *testing.T) {
	success := &ToolResult{Values: ValueDict{"n": Int(42)}}
	data, err := encodeFrame(&Frame{Type: FrameResult, Result: success})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	f, err := decodeFrame(websocket.BinaryMessage, data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if f.Result == nil || f.Result.Err != nil {
		t.Fatalf("expected success result, got %+v", f.Result)
	}
	if !reflect.DeepEqual(f.Result.Values, success.Values) {
		t.Errorf("got values %#v, want %#v", f.Result.Values, success.Values)
	}

	failure := &ToolResult{Err: &ToolError{Aborted: AbortRequestedByClient}}
	data, err = encodeFrame(&Frame{Type: FrameResult, Result: failure})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	f, err = decodeFrame(websocket.BinaryMessage, data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if f.Result == nil || f.Result.Err == nil {
		t.Fatalf("expected failed result, got %+v", f.Result)
	}
	if f.Result.Err.Aborted != AbortRequestedByClient {
		t.Errorf("got abort reason %s, want RequestedByClient", f.Result.Err.Aborted)
	}
}

func TestFrameRoundTripTextAndAbort(t *testing.T) {
	data, err := encodeFrame(&Frame{Type: FrameText, Text: "progress: 50%"})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	f, err := decodeFrame(websocket.BinaryMessage, data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if f.Type != FrameText || f.Text != "progress: 50%" {
		t.Errorf("got %s %q", f.Type, f.Text)
	}

	data, err = encodeFrame(&Frame{Type: FrameAbort})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	f, err = decodeFrame(websocket.BinaryMessage, data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if f.Type != FrameAbort {
		t.Errorf("got frame type %s, want Abort", f.Type)
	}
}

func TestDecodeRejectsNonBinaryFrames(t *testing.T) {
	data, err := encodeFrame(&Frame{Type: FrameAbort})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	for _, messageType := range []int{
		websocket.TextMessage,
		websocket.PingMessage,
		websocket.PongMessage,
		websocket.CloseMessage,
	} {
		_, err := decodeFrame(messageType, data)
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("message type %d: got %v, want a parse error", messageType, err)
		}
		if parseErr.Kind != ParseWrongMessageType {
			t.Errorf("message type %d: got kind %s, want wrong message type", messageType, parseErr.Kind)
		}
		if parseErr.Expected != websocket.BinaryMessage || parseErr.Found != messageType {
			t.Errorf("message type %d: got expected=%d found=%d", messageType, parseErr.Expected, parseErr.Found)
		}
	}
}

func TestDecodeRejectsCorruptPayloads(t *testing.T) {
	// Not a zstd stream at all.
	_, err := decodeFrame(websocket.BinaryMessage, []byte{0xde, 0xad, 0xbe, 0xef})
	var parseErr *ParseError
	if !errors.As(err, &parseErr) || parseErr.Kind != ParseDecompress {
		t.Errorf("garbage bytes: got %v, want a decompression error", err)
	}

	// Valid zstd, invalid frame inside (0xc1 is never valid MessagePack).
	data := zstdEncoder.EncodeAll([]byte{0xc1}, nil)
	_, err = decodeFrame(websocket.BinaryMessage, data)
	if !errors.As(err, &parseErr) || parseErr.Kind != ParseDeserialize {
		t.Errorf("bad msgpack: got %v, want a deserialization error", err)
	}

	// Valid zstd, valid MessagePack, unknown frame tag.
	data = zstdEncoder.EncodeAll([]byte{0x63}, nil) // positive fixint 99
	_, err = decodeFrame(websocket.BinaryMessage, data)
	if !errors.As(err, &parseErr) || parseErr.Kind != ParseDeserialize {
		t.Errorf("unknown tag: got %v, want a deserialization error", err)
	}
}

func TestTypedCollectionsRejectMixedElements(t *testing.T) {
	if _, err := NewTypedList(KindInt, []Value{Int(1), Float(2)}); err == nil {
		t.Error("expected mixed typed list to be rejected")
	}
	if _, err := NewTypedList(KindList, nil); err == nil {
		t.Error("expected collection element kind to be rejected")
	}
	if _, err := NewTypedDict(KindStr, map[string]Value{"a": Int(1)}); err == nil {
		t.Error("expected mixed typed dict to be rejected")
	}
	if _, err := NewTypedDict(KindDict, nil); err == nil {
		t.Error("expected collection element kind to be rejected")
	}
}
