// Package abstraction folds repeating structures of a memory graph into list
// segments.
//
// A Template describes one such folding. Templates are produced either by Find,
// which scans a whole graph for chains of list nodes, or by the join engine
// when it discovers that two objects can only be joined by summarizing them.
// Execute applies a template to a graph in place.
package abstraction

import (
	"fmt"

	"honnef.co/go/shape/smg"
)

// A Template describes how a chain of objects is folded into one list segment.
type Template struct {
	// Kind is smg.KindSLL or smg.KindDLL.
	Kind smg.Kind
	// Head is the offset addresses of the nodes point to.
	Head int64
	// Next is the offset of the link to the next node, NextSize its size.
	Next     int64
	NextSize int64
	// Prev is the offset of the back link. It is only meaningful for DLLs.
	Prev int64

	// Members is the chain of objects in list order. The first member becomes
	// the segment; the others are removed.
	Members []smg.ObjectID
	// MinLength is the minimal length of the resulting segment. If it is zero,
	// the sum of the members' minimal lengths is used.
	MinLength int

	// SharedPointers are offsets of pointer fields, other than the links, whose
	// targets agree across all summarized nodes.
	SharedPointers []int64
	// SharedData are offsets of data fields holding equal values in all
	// summarized nodes.
	SharedData []int64
	// Generalized are offsets of data fields whose values differ between the
	// summarized nodes. Execute replaces them with fresh values.
	Generalized []int64
}

// Root returns the object that becomes the segment.
func (t *Template) Root() smg.ObjectID { return t.Members[0] }

// Shape returns the shape of the segment produced by t given its minimal
// length.
func (t *Template) Shape(minLength int) smg.Shape {
	if t.Kind == smg.KindDLL {
		return smg.DLL{MinLength: minLength, Head: t.Head, Next: t.Next, Prev: t.Prev}
	}
	return smg.SLL{MinLength: minLength, Head: t.Head, Next: t.Next}
}

func (t *Template) String() string {
	links := fmt.Sprintf("next=%d", t.Next)
	if t.Kind == smg.KindDLL {
		links += fmt.Sprintf(" prev=%d", t.Prev)
	}
	return fmt.Sprintf("%s head=%d %s members=%v min=%d", t.Kind, t.Head, links, t.Members, t.MinLength)
}

func (t *Template) isLink(offset int64) bool {
	return offset == t.Next || (t.Kind == smg.KindDLL && offset == t.Prev)
}

func contains(offsets []int64, off int64) bool {
	for _, o := range offsets {
		if o == off {
			return true
		}
	}
	return false
}
