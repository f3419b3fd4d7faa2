package join

import "honnef.co/go/shape/smg"

// matchResult explains the outcome of matching two objects.
type matchResult uint8

const (
	matchOK matchResult = iota
	// matchShape means the objects are incompatible only in their shapes, or
	// one of them is the null object. An abstraction may still reconcile them.
	matchShape
	// matchConflict means the objects contradict the node mappings or differ
	// in size or validity.
	matchConflict
)

// matchObjects decides whether o1 and o2 may be joined into one destination
// object. It does not modify any graph or mapping.
func (j *joiner) matchObjects(st Status, o1, o2 smg.ObjectID) (Status, matchResult) {
	a, b := j.in1.MustObject(o1), j.in2.MustObject(o2)

	if a.Kind() == smg.KindNull || b.Kind() == smg.KindNull {
		return st, matchShape
	}

	d1, ok1 := j.m1.Object(o1)
	d2, ok2 := j.m2.Object(o2)
	switch {
	case ok1 && ok2 && d1 != d2:
		return st, matchConflict
	case ok1 && !ok2 && j.m2.objects.imageOfOther(d1, o2):
		return st, matchConflict
	case ok2 && !ok1 && j.m1.objects.imageOfOther(d2, o1):
		return st, matchConflict
	}

	if a.Size != b.Size || a.Valid != b.Valid {
		return st, matchConflict
	}

	st, ok := matchShapes(st, a, b)
	if !ok {
		return st, matchShape
	}

	for _, e1 := range j.in1.Fields(o1) {
		e2, ok := j.in2.Field(o2, e1.Offset, e1.Size)
		if !ok {
			continue
		}
		v1, ok1 := j.m1.Value(e1.Value)
		v2, ok2 := j.m2.Value(e2.Value)
		if ok1 && ok2 && v1 != v2 {
			return st, matchConflict
		}
	}
	return st, matchOK
}

// links returns the link parameters of list-like shapes.
func links(s smg.Shape) (head, next, prev int64, ok bool) {
	switch s := s.(type) {
	case smg.SLL:
		return s.Head, s.Next, -1, true
	case smg.DLL:
		return s.Head, s.Next, s.Prev, true
	default:
		return 0, 0, 0, false
	}
}

// entails composes the status for the case that a's shape covers b's. If
// left is false the roles of the inputs are swapped.
func entails(st Status, left bool) Status {
	if left {
		return st.UpdateWith(LeftEntails)
	}
	return st.UpdateWith(RightEntails)
}

// matchShapes compares the kind-specific parameters of a and b and composes
// the status accordingly.
func matchShapes(st Status, a, b *smg.Object) (Status, bool) {
	ka, kb := a.Kind(), b.Kind()
	switch {
	case ka == smg.KindRegion && kb == smg.KindRegion:
		return st, true

	case ka == kb && (ka == smg.KindSLL || ka == smg.KindDLL):
		ha, na, pa, _ := links(a.Shape)
		hb, nb, pb, _ := links(b.Shape)
		if ha != hb || na != nb || pa != pb {
			return st, false
		}
		return compareLengths(st, a.MinLength(), b.MinLength()), true

	case ka == smg.KindGeneric && kb == smg.KindGeneric:
		if a.Shape.(smg.Generic).Template != b.Shape.(smg.Generic).Template {
			return st, false
		}
		return compareLengths(st, a.MinLength(), b.MinLength()), true

	case ka == smg.KindOptional && kb == smg.KindOptional:
		return st, true

	case ka == smg.KindGeneric || kb == smg.KindGeneric:
		return st, false

	case ka == smg.KindRegion || kb == smg.KindRegion:
		// One side is concrete, the other a list segment or optional object.
		abs := a
		if ka == smg.KindRegion {
			abs = b
		}
		if abs.MinLength() <= 1 {
			return entails(st, abs == a), true
		}
		return st.UpdateWith(Incomparable), true

	case ka == smg.KindOptional || kb == smg.KindOptional:
		// A list segment and an optional object.
		seg := a
		if ka == smg.KindOptional {
			seg = b
		}
		if seg.MinLength() == 0 {
			return entails(st, seg == a), true
		}
		return st.UpdateWith(Incomparable), true

	default:
		// SLL against DLL.
		return st, false
	}
}

func compareLengths(st Status, la, lb int) Status {
	switch {
	case la < lb:
		return st.UpdateWith(LeftEntails)
	case la > lb:
		return st.UpdateWith(RightEntails)
	default:
		return st
	}
}

// joinShapes returns the shape of the destination object for two matched
// objects.
func joinShapes(a, b *smg.Object) smg.Shape {
	ka, kb := a.Kind(), b.Kind()
	switch {
	case ka == smg.KindRegion && kb == smg.KindRegion:
		return smg.Region{}
	case ka == smg.KindOptional && kb == smg.KindOptional,
		ka == smg.KindOptional && kb == smg.KindRegion,
		ka == smg.KindRegion && kb == smg.KindOptional:
		return smg.Optional{}
	}

	shape := a.Shape
	if !isSegment(ka) {
		shape = b.Shape
	}
	n := a.MinLength()
	if m := b.MinLength(); m < n {
		n = m
	}
	return smg.WithMinLength(shape, n)
}

func isSegment(k smg.Kind) bool {
	return k == smg.KindSLL || k == smg.KindDLL || k == smg.KindGeneric
}
