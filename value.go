package toolapi

import "fmt"

// ValueKind identifies the concrete variant stored in a Value. It doubles as
// the wire discriminant, so the numeric values are part of the protocol and
// must never be reordered.
type ValueKind uint8

// The Value variants. Atomic and structured kinds are leaves; Dict and List
// hold heterogeneous elements; TypedDict and TypedList hold a flat run of
// elements sharing a single kind tag.
const (
	KindNone ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindComplex
	KindVec3
	KindVec4
	KindStr
	KindSeqEvent
	KindVolume
	KindSegmentedPhantom
	KindPhantomTissue
	KindDict
	KindList
	KindTypedDict
	KindTypedList
)

func (k ValueKind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindComplex:
		return "Complex"
	case KindVec3:
		return "Vec3"
	case KindVec4:
		return "Vec4"
	case KindStr:
		return "Str"
	case KindSeqEvent:
		return "SeqEvent"
	case KindVolume:
		return "Volume"
	case KindSegmentedPhantom:
		return "SegmentedPhantom"
	case KindPhantomTissue:
		return "PhantomTissue"
	case KindDict:
		return "Dict"
	case KindList:
		return "List"
	case KindTypedDict:
		return "TypedDict"
	case KindTypedList:
		return "TypedList"
	}
	return fmt.Sprintf("ValueKind(%d)", uint8(k))
}

// isCollection reports whether values of this kind can contain other values.
// Only non-collection kinds may appear inside TypedList and TypedDict.
func (k ValueKind) isCollection() bool {
	switch k {
	case KindDict, KindList, KindTypedDict, KindTypedList:
		return true
	}
	return false
}

// Value is the dynamic payload type exchanged between tools and their
// callers. It is a closed union: the only implementations are the types in
// this package, one per ValueKind.
//
// Values are passed by ownership across the protocol boundary and are never
// shared between goroutines; Clone produces a deep copy where a private copy
// is needed.
type Value interface {
	Kind() ValueKind
	Clone() Value

	value() // seals the interface
}

// ValueDict is the top-level string-keyed bag of Values exchanged as tool
// input and output. Tools consume it destructively via Pop.
type ValueDict map[string]Value

// Clone returns a deep copy of the dict.
func (d ValueDict) Clone() ValueDict {
	out := make(ValueDict, len(d))
	for k, v := range d {
		out[k] = v.Clone()
	}
	return out
}

// None is the absent/unit value.
type None struct{}

// Bool is a boolean value.
type Bool bool

// Int is a 64-bit signed integer value.
type Int int64

// Float is a 64-bit floating point value.
type Float float64

// Complex is a complex number value.
type Complex complex128

// Vec3 is a 3-vector value.
type Vec3 [3]float64

// Vec4 is a 4-vector value.
type Vec4 [4]float64

// Str is a text string value.
type Str string

// List is an ordered collection of heterogeneous Values.
type List []Value

// Dict is a string-keyed mapping of heterogeneous Values. Insertion order is
// not significant.
type Dict map[string]Value

func (None) Kind() ValueKind    { return KindNone }
func (Bool) Kind() ValueKind    { return KindBool }
func (Int) Kind() ValueKind     { return KindInt }
func (Float) Kind() ValueKind   { return KindFloat }
func (Complex) Kind() ValueKind { return KindComplex }
func (Vec3) Kind() ValueKind    { return KindVec3 }
func (Vec4) Kind() ValueKind    { return KindVec4 }
func (Str) Kind() ValueKind     { return KindStr }
func (List) Kind() ValueKind    { return KindList }
func (Dict) Kind() ValueKind    { return KindDict }

func (v None) Clone() Value    { return v }
func (v Bool) Clone() Value    { return v }
func (v Int) Clone() Value     { return v }
func (v Float) Clone() Value   { return v }
func (v Complex) Clone() Value { return v }
func (v Vec3) Clone() Value    { return v }
func (v Vec4) Clone() Value    { return v }
func (v Str) Clone() Value     { return v }

func (v List) Clone() Value {
	out := make(List, len(v))
	for i, elem := range v {
		out[i] = elem.Clone()
	}
	return out
}

func (v Dict) Clone() Value {
	out := make(Dict, len(v))
	for k, elem := range v {
		out[k] = elem.Clone()
	}
	return out
}

func (None) value()    {}
func (Bool) value()    {}
func (Int) value()     {}
func (Float) value()   {}
func (Complex) value() {}
func (Vec3) value()    {}
func (Vec4) value()    {}
func (Str) value()     {}
func (List) value()    {}
func (Dict) value()    {}

// TypedList is a homogeneous list: every element shares the kind declared at
// construction, so the wire encoding tags the element kind once instead of
// per element. Elements are leaves; a TypedList cannot nest collections.
type TypedList struct {
	elem  ValueKind
	items []Value
}

// NewTypedList builds a homogeneous list. It fails if elem is a collection
// kind or if any item's runtime kind differs from elem. Homogeneity is
// enforced here, never at access.
func NewTypedList(elem ValueKind, items []Value) (TypedList, error) {
	if elem.isCollection() {
		return TypedList{}, fmt.Errorf("typed list cannot hold %s elements", elem)
	}
	for i, item := range items {
		if item.Kind() != elem {
			return TypedList{}, fmt.Errorf("typed list of %s: element %d is %s", elem, i, item.Kind())
		}
	}
	return TypedList{elem: elem, items: items}, nil
}

// Elem returns the declared element kind.
func (v TypedList) Elem() ValueKind { return v.elem }

// Len returns the number of elements.
func (v TypedList) Len() int { return len(v.items) }

// At returns the element at index i.
func (v TypedList) At(i int) Value { return v.items[i] }

func (TypedList) Kind() ValueKind { return KindTypedList }

func (v TypedList) Clone() Value {
	items := make([]Value, len(v.items))
	for i, item := range v.items {
		items[i] = item.Clone()
	}
	return TypedList{elem: v.elem, items: items}
}

func (TypedList) value() {}

// TypedDict is the mapping counterpart of TypedList: a string-keyed
// collection whose values all share one declared kind.
type TypedDict struct {
	elem  ValueKind
	items map[string]Value
}

// NewTypedDict builds a homogeneous mapping. The same construction-time
// constraints as NewTypedList apply.
func NewTypedDict(elem ValueKind, items map[string]Value) (TypedDict, error) {
	if elem.isCollection() {
		return TypedDict{}, fmt.Errorf("typed dict cannot hold %s elements", elem)
	}
	for k, item := range items {
		if item.Kind() != elem {
			return TypedDict{}, fmt.Errorf("typed dict of %s: key %q is %s", elem, k, item.Kind())
		}
	}
	return TypedDict{elem: elem, items: items}, nil
}

// Elem returns the declared element kind.
func (v TypedDict) Elem() ValueKind { return v.elem }

// Len returns the number of entries.
func (v TypedDict) Len() int { return len(v.items) }

// At returns the element stored under key, if present.
func (v TypedDict) At(key string) (Value, bool) {
	item, ok := v.items[key]
	return item, ok
}

func (TypedDict) Kind() ValueKind { return KindTypedDict }

func (v TypedDict) Clone() Value {
	items := make(map[string]Value, len(v.items))
	for k, item := range v.items {
		items[k] = item.Clone()
	}
	return TypedDict{elem: v.elem, items: items}
}

func (TypedDict) value() {}
