package join

import (
	"golang.org/x/exp/slices"

	"honnef.co/go/shape/smg"
)

// span is a half-open range of bit offsets.
type span struct{ lo, hi int64 }

// cover returns the union of the ranges of edges as sorted, disjoint and
// non-adjacent spans.
func cover(edges []smg.FieldEdge) []span {
	var out []span
	for _, e := range edges {
		out = append(out, span{e.Offset, e.End()})
	}
	return normalize(out)
}

func normalize(spans []span) []span {
	if len(spans) == 0 {
		return nil
	}
	sorted := slices.Clone(spans)
	slices.SortFunc(sorted, func(a, b span) bool { return a.lo < b.lo })
	out := []span{sorted[0]}
	for _, s := range sorted[1:] {
		last := &out[len(out)-1]
		if s.lo <= last.hi {
			if s.hi > last.hi {
				last.hi = s.hi
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

func intersect(a, b []span) []span {
	var out []span
	for i, j := 0, 0; i < len(a) && j < len(b); {
		lo, hi := a[i].lo, a[i].hi
		if b[j].lo > lo {
			lo = b[j].lo
		}
		if b[j].hi < hi {
			hi = b[j].hi
		}
		if lo < hi {
			out = append(out, span{lo, hi})
		}
		if a[i].hi < b[j].hi {
			i++
		} else {
			j++
		}
	}
	return out
}

func sameLayout(a, b []smg.FieldEdge) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Offset != b[i].Offset || a[i].Size != b[i].Size {
			return false
		}
	}
	return true
}

func hasEdge(edges []smg.FieldEdge, offset, size int64) bool {
	for _, e := range edges {
		if e.Offset == offset && e.Size == size {
			return true
		}
	}
	return false
}

// classify splits the field edges of one side into zero-valued data, null
// pointers (zero-valued edges that line up exactly with a non-null pointer on
// the other side) and everything else.
func classify(g *smg.Graph, edges []smg.FieldEdge, other *smg.Graph, otherEdges []smg.FieldEdge) (zeros, nulls, rest []smg.FieldEdge) {
	for _, e := range edges {
		if e.Value != smg.Zero {
			rest = append(rest, e)
			continue
		}
		isNull := false
		for _, o := range otherEdges {
			if o.Offset == e.Offset && o.Size == e.Size && o.Value != smg.Zero && other.IsPointer(o.Value) {
				isNull = true
				break
			}
		}
		if isNull {
			nulls = append(nulls, e)
		} else {
			zeros = append(zeros, e)
		}
	}
	return zeros, nulls, rest
}

// alignFields rewrites the field edges of obj1 in g1 and obj2 in g2 so that
// every edge on one side has a counterpart with the same offset and size on
// the other side.
//
// Zero-valued bits survive only where both sides are zero. If the zero edges
// of both sides already agree they are kept; otherwise both sides receive the
// common zero ranges as merged edges. A zero-valued edge that lines up exactly
// with a non-null pointer on the other side is kept as a null pointer. Every
// other edge without a counterpart gets one holding a fresh value.
//
// A side that loses zero bits is more specific than the other; losing zeros
// on the left composes RightEntails, on the right LeftEntails.
//
// The objects must be of equal size.
func alignFields(st Status, g1, g2 *smg.Graph, obj1, obj2 smg.ObjectID) Status {
	o1, o2 := g1.MustObject(obj1), g2.MustObject(obj2)
	if o1.Size != o2.Size {
		invariantf("aligning fields of %s and %s of different sizes", o1, o2)
	}

	e1, e2 := g1.Fields(obj1), g2.Fields(obj2)
	zeros1, nulls1, rest1 := classify(g1, e1, g2, e2)
	zeros2, nulls2, rest2 := classify(g2, e2, g1, e1)

	z1, z2 := cover(zeros1), cover(zeros2)
	common := intersect(z1, z2)
	if !slices.Equal(common, z1) {
		st = st.UpdateWith(RightEntails)
	}
	if !slices.Equal(common, z2) {
		st = st.UpdateWith(LeftEntails)
	}

	out1 := append(append([]smg.FieldEdge(nil), rest1...), nulls1...)
	out2 := append(append([]smg.FieldEdge(nil), rest2...), nulls2...)
	if slices.Equal(common, z1) && slices.Equal(common, z2) && sameLayout(zeros1, zeros2) {
		out1 = append(out1, zeros1...)
		out2 = append(out2, zeros2...)
	} else {
		for _, s := range common {
			out1 = append(out1, smg.FieldEdge{Object: obj1, Offset: s.lo, Size: s.hi - s.lo, Value: smg.Zero})
			out2 = append(out2, smg.FieldEdge{Object: obj2, Offset: s.lo, Size: s.hi - s.lo, Value: smg.Zero})
		}
	}

	var ext1, ext2 []smg.FieldEdge
	for _, e := range rest1 {
		if !hasEdge(out2, e.Offset, e.Size) {
			ext2 = append(ext2, smg.FieldEdge{Object: obj2, Offset: e.Offset, Size: e.Size, Value: g2.NewValue()})
		}
	}
	for _, e := range rest2 {
		if !hasEdge(out1, e.Offset, e.Size) {
			ext1 = append(ext1, smg.FieldEdge{Object: obj1, Offset: e.Offset, Size: e.Size, Value: g1.NewValue()})
		}
	}

	g1.SetFields(obj1, append(out1, ext1...))
	g2.SetFields(obj2, append(out2, ext2...))
	return st
}
