// Package smg implements symbolic memory graphs, the abstract heap
// representation used by the shape analysis.
//
// A graph is an arena of objects and values identified by integer handles.
// Field edges record which value an object's bits hold, and pointer edges
// interpret a value as an address inside an object. Values carry no type; the
// field edge that stores a value determines its size.
//
// Every graph contains the null object and the zero value. Zero represents both
// the integer 0 and the null pointer and always points to offset 0 of the null
// object.
package smg

import "fmt"

// A Value is an opaque identifier for a datum held somewhere in memory.
type Value uint32

// Zero is the value representing both integer 0 and the null pointer.
const Zero Value = 0

func (v Value) String() string {
	if v == Zero {
		return "#0"
	}
	return fmt.Sprintf("#%d", uint32(v))
}

// An ObjectID identifies an object within a graph.
type ObjectID uint32

// NullObject is the object the null pointer points to.
const NullObject ObjectID = 0

func (id ObjectID) String() string {
	if id == NullObject {
		return "null"
	}
	return fmt.Sprintf("o%d", uint32(id))
}

// TargetSpec specifies which concrete member of an object an address denotes.
// Only abstract objects distinguish between the first, last and all members;
// addresses of concrete objects always use TargetRegion.
type TargetSpec uint8

const (
	TargetRegion TargetSpec = iota
	TargetFirst
	TargetLast
	TargetAll
)

func (t TargetSpec) String() string {
	switch t {
	case TargetRegion:
		return "region"
	case TargetFirst:
		return "first"
	case TargetLast:
		return "last"
	case TargetAll:
		return "all"
	default:
		return fmt.Sprintf("TargetSpec(%d)", uint8(t))
	}
}

// ParseTargetSpec is the inverse of TargetSpec.String.
func ParseTargetSpec(s string) (TargetSpec, error) {
	switch s {
	case "region", "":
		return TargetRegion, nil
	case "first":
		return TargetFirst, nil
	case "last":
		return TargetLast, nil
	case "all":
		return TargetAll, nil
	default:
		return 0, fmt.Errorf("unknown target specifier %q", s)
	}
}

// A FieldEdge records that the bits [Offset, Offset+Size) of Object hold Value.
type FieldEdge struct {
	Object ObjectID
	Offset int64
	Size   int64
	Value  Value
}

// End returns the offset of the first bit after the field.
func (e FieldEdge) End() int64 { return e.Offset + e.Size }

func (e FieldEdge) String() string {
	return fmt.Sprintf("%s[%d,%d)->%s", e.Object, e.Offset, e.End(), e.Value)
}

// A PointerEdge interprets Value as the address Offset inside Object.
type PointerEdge struct {
	Value  Value
	Object ObjectID
	Offset int64
	Target TargetSpec
}

func (e PointerEdge) String() string {
	return fmt.Sprintf("%s->%s+%d(%s)", e.Value, e.Object, e.Offset, e.Target)
}

// A Frame is one activation record on the stack of a graph.
type Frame struct {
	Function string
	Locals   map[string]ObjectID
	// Return is the object holding the function's return value, or NullObject
	// if the function has none.
	Return ObjectID
}

// HasReturn reports whether the frame has a return-value object.
func (f *Frame) HasReturn() bool { return f.Return != NullObject }
