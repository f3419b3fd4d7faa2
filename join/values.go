package join

import (
	"go.uber.org/zap"

	"honnef.co/go/shape/smg"
)

// outcome is the definedness of a partial join result.
type outcome uint8

const (
	defined outcome = iota
	// recoverable: the pair could not be joined, but summarizing the
	// containing objects may still produce a sound result.
	recoverable
	// fatal: the containing join fails.
	fatal
)

func (o outcome) String() string {
	switch o {
	case defined:
		return "defined"
	case recoverable:
		return "recoverable"
	default:
		return "fatal"
	}
}

// joinValues joins v1 of the left input with v2 of the right input and
// returns the destination value.
func (j *joiner) joinValues(st Status, v1, v2 smg.Value, ldiff int) (Status, smg.Value, outcome) {
	d1, ok1 := j.m1.Value(v1)
	d2, ok2 := j.m2.Value(v2)
	if ok1 && ok2 {
		if d1 != d2 {
			j.log.Debug("values mapped apart", zap.Stringer("left", v1), zap.Stringer("right", v2))
			return st, 0, fatal
		}
		return st, d1, defined
	}

	p1, p2 := j.in1.IsPointer(v1), j.in2.IsPointer(v2)
	switch {
	case p1 && p2:
		return j.joinTargets(st, v1, v2, ldiff)
	case p1 != p2:
		return st, 0, recoverable
	}

	switch {
	case ok1:
		if j.m2.values.imageOfOther(d1, v2) {
			return st, 0, fatal
		}
		j.m2.MapValue(v2, d1)
		return st, d1, defined
	case ok2:
		if j.m1.values.imageOfOther(d2, v1) {
			return st, 0, fatal
		}
		j.m1.MapValue(v1, d2)
		return st, d2, defined
	}

	var d smg.Value
	if v1 == v2 && !j.dest.HasValue(v1) {
		d = v1
		j.dest.AddValue(d)
	} else {
		d = j.dest.NewValue()
	}
	j.m1.MapValue(v1, d)
	j.m2.MapValue(v2, d)
	return st, d, defined
}

// valueLevel returns the nesting level a value refers to: the level of its
// target, one deeper for pointers to all members of a segment, and 0 for
// non-pointers.
func valueLevel(g *smg.Graph, v smg.Value) int {
	pt, ok := g.Pointer(v)
	if !ok || pt.Object == smg.NullObject {
		return 0
	}
	lvl := g.MustObject(pt.Object).Level
	if pt.Target == smg.TargetAll {
		lvl++
	}
	return lvl
}
