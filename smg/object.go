package smg

import "fmt"

// Kind classifies objects by their shape.
type Kind uint8

const (
	KindRegion Kind = iota
	KindSLL
	KindDLL
	KindOptional
	KindGeneric
	KindNull
)

func (k Kind) String() string {
	switch k {
	case KindRegion:
		return "region"
	case KindSLL:
		return "sll"
	case KindDLL:
		return "dll"
	case KindOptional:
		return "optional"
	case KindGeneric:
		return "generic"
	case KindNull:
		return "null"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// A Shape carries the kind-specific parameters of an object. The set of
// shapes is closed: Region, SLL, DLL, Optional, Generic and Null.
type Shape interface {
	isShape()
}

// Region is a plain concrete memory region.
type Region struct{}

// SLL is a singly linked list segment of at least MinLength nodes. Head is the
// offset addresses of the nodes point to and Next is the offset of the field
// linking one node to the next.
type SLL struct {
	MinLength int
	Head      int64
	Next      int64
}

// DLL is a doubly linked list segment. In addition to the fields of SLL it
// records the offset of the back link.
type DLL struct {
	MinLength int
	Head      int64
	Next      int64
	Prev      int64
}

// Optional stands for zero or one concrete object.
type Optional struct{}

// Generic is an abstraction described by a named template.
type Generic struct {
	Template  string
	MinLength int
}

// Null is the shape of the null object.
type Null struct{}

func (Region) isShape()   {}
func (SLL) isShape()      {}
func (DLL) isShape()      {}
func (Optional) isShape() {}
func (Generic) isShape()  {}
func (Null) isShape()     {}

// An Object is a memory region: a concrete variable, heap block, or an
// abstraction summarizing several such blocks.
type Object struct {
	ID ObjectID
	// Size in bits.
	Size int64
	// Valid is false once the object has been freed.
	Valid bool
	// Level is the nesting depth at which an abstraction introduced the object;
	// 0 for concrete objects.
	Level int
	Label string
	Shape Shape
}

// Kind returns the kind of o's shape.
func (o *Object) Kind() Kind {
	switch o.Shape.(type) {
	case Region, nil:
		return KindRegion
	case SLL:
		return KindSLL
	case DLL:
		return KindDLL
	case Optional:
		return KindOptional
	case Generic:
		return KindGeneric
	case Null:
		return KindNull
	default:
		panic(fmt.Sprintf("unexpected shape %T", o.Shape))
	}
}

// Abstract reports whether o summarizes a variable number of concrete objects.
func (o *Object) Abstract() bool {
	switch o.Kind() {
	case KindSLL, KindDLL, KindOptional, KindGeneric:
		return true
	default:
		return false
	}
}

// MinLength returns the minimal number of concrete objects o stands for.
func (o *Object) MinLength() int {
	switch s := o.Shape.(type) {
	case SLL:
		return s.MinLength
	case DLL:
		return s.MinLength
	case Generic:
		return s.MinLength
	case Optional, Null:
		return 0
	default:
		return 1
	}
}

// WithMinLength returns a copy of shape with its minimal length replaced. Shapes
// without a length are returned unchanged.
func WithMinLength(shape Shape, n int) Shape {
	switch s := shape.(type) {
	case SLL:
		s.MinLength = n
		return s
	case DLL:
		s.MinLength = n
		return s
	case Generic:
		s.MinLength = n
		return s
	default:
		return shape
	}
}

func (o *Object) String() string {
	name := o.ID.String()
	if o.Label != "" {
		name = fmt.Sprintf("%s(%s)", name, o.Label)
	}
	var extra string
	switch s := o.Shape.(type) {
	case SLL:
		extra = fmt.Sprintf(" min=%d head=%d next=%d", s.MinLength, s.Head, s.Next)
	case DLL:
		extra = fmt.Sprintf(" min=%d head=%d next=%d prev=%d", s.MinLength, s.Head, s.Next, s.Prev)
	case Generic:
		extra = fmt.Sprintf(" template=%s min=%d", s.Template, s.MinLength)
	}
	if !o.Valid && o.Kind() != KindNull {
		extra += " freed"
	}
	if o.Level != 0 {
		extra += fmt.Sprintf(" level=%d", o.Level)
	}
	return fmt.Sprintf("%s %s/%d%s", name, o.Kind(), o.Size, extra)
}
