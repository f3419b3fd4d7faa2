package join

import (
	"go.uber.org/zap"

	"honnef.co/go/shape/smg"
)

// joinTargets joins two pointer values by joining the objects they point to
// and mapping the address.
func (j *joiner) joinTargets(st Status, v1, v2 smg.Value, ldiff int) (Status, smg.Value, outcome) {
	pt1, _ := j.in1.Pointer(v1)
	pt2, _ := j.in2.Pointer(v2)
	if pt1.Offset != pt2.Offset {
		return st, 0, fatal
	}

	null1, null2 := pt1.Object == smg.NullObject, pt2.Object == smg.NullObject
	switch {
	case null1 && null2:
		return j.mapAddress(st, v1, v2, smg.NullObject, pt1.Offset, smg.TargetRegion)
	case null1 || null2:
		return st, 0, recoverable
	}

	st, res := j.matchObjects(st, pt1.Object, pt2.Object)
	switch res {
	case matchShape:
		return st, 0, recoverable
	case matchConflict:
		return st, 0, fatal
	}

	d, st, out := j.targetObject(st, pt1.Object, pt2.Object, ldiff)
	if out != defined {
		return st, 0, out
	}

	target, ok := destTarget(j.dest.MustObject(d), pt1.Target, pt2.Target)
	if !ok {
		return st, 0, fatal
	}
	st, dv, out := j.mapAddress(st, v1, v2, d, pt1.Offset, target)
	if out == defined {
		for i := range j.candidates {
			if c := &j.candidates[i]; c.Template.Root() == d && c.Value == smg.Zero {
				c.Value = dv
			}
		}
	}
	return st, dv, out
}

// targetObject returns the destination object for the matched objects o1 and
// o2, creating it and joining the sub-graphs below it if neither has been
// mapped yet. Mappings are registered before recursing, so that cycles end at
// the mapped object.
func (j *joiner) targetObject(st Status, o1, o2 smg.ObjectID, ldiff int) (smg.ObjectID, Status, outcome) {
	d1, ok1 := j.m1.Object(o1)
	d2, ok2 := j.m2.Object(o2)
	switch {
	case ok1 && ok2:
		return d1, st, defined
	case ok1:
		j.m2.MapObject(o2, d1)
		st, out := j.joinSubGraphs(st, o1, o2, d1, ldiff, false)
		return d1, st, out
	case ok2:
		j.m1.MapObject(o1, d2)
		st, out := j.joinSubGraphs(st, o1, o2, d2, ldiff, false)
		return d2, st, out
	}

	a, b := j.in1.MustObject(o1), j.in2.MustObject(o2)
	level, ok := j.levels.Map(a.Level, b.Level)
	if !ok {
		j.log.Debug("inconsistent levels", zap.Int("left", a.Level), zap.Int("right", b.Level))
		return 0, st, fatal
	}
	d := j.newObject(a, b, level)
	j.m1.MapObject(o1, d)
	j.m2.MapObject(o2, d)
	st, out := j.joinSubGraphs(st, o1, o2, d, ldiff, o1 == o2 && d == o1)
	return d, st, out
}

// newObject creates the destination object for a and b. If both inputs use
// the same handle and the destination does not, the handle is reused.
func (j *joiner) newObject(a, b *smg.Object, level int) smg.ObjectID {
	o := smg.Object{
		ID:    a.ID,
		Size:  a.Size,
		Valid: a.Valid,
		Level: level,
		Label: a.Label,
		Shape: joinShapes(a, b),
	}
	if a.ID == b.ID && j.dest.InsertObject(o) {
		return a.ID
	}
	return j.dest.AddObject(o)
}

// destTarget chooses the target specifier of a destination address. Concrete
// objects are always addressed as regions. For abstract objects a region
// specifier on one side is read as the first member.
func destTarget(d *smg.Object, t1, t2 smg.TargetSpec) (smg.TargetSpec, bool) {
	if !isSegment(d.Kind()) {
		return smg.TargetRegion, true
	}
	switch {
	case t1 == t2:
	case t1 == smg.TargetRegion:
		t1 = t2
	case t2 == smg.TargetRegion:
	default:
		return 0, false
	}
	if t1 == smg.TargetRegion {
		t1 = smg.TargetFirst
	}
	return t1, true
}

// mapAddress returns the destination value for the addresses v1 and v2, which
// point to objects mapped to d. Repeated calls for mapped addresses return the
// cached value.
func (j *joiner) mapAddress(st Status, v1, v2 smg.Value, d smg.ObjectID, offset int64, target smg.TargetSpec) (Status, smg.Value, outcome) {
	d1, ok1 := j.m1.Value(v1)
	d2, ok2 := j.m2.Value(v2)
	if ok1 && !j.addresses(d1, d, offset) || ok2 && !j.addresses(d2, d, offset) {
		return st, 0, fatal
	}
	switch {
	case ok1 && ok2:
		if d1 != d2 {
			return st, 0, fatal
		}
		return st, d1, defined
	case ok1:
		j.m2.MapValue(v2, d1)
		return st, d1, defined
	case ok2:
		j.m1.MapValue(v1, d2)
		return st, d2, defined
	}

	dv, ok := j.dest.FindPointer(d, offset, target)
	if !ok {
		if v1 == v2 && !j.dest.HasValue(v1) {
			dv = v1
		} else {
			dv = j.dest.NewValue()
		}
		j.dest.AddPointer(smg.PointerEdge{Value: dv, Object: d, Offset: offset, Target: target})
	}
	j.m1.MapValue(v1, dv)
	j.m2.MapValue(v2, dv)
	return st, dv, defined
}

// addresses reports whether the destination value dv points to offset inside
// d.
func (j *joiner) addresses(dv smg.Value, d smg.ObjectID, offset int64) bool {
	pt, ok := j.dest.Pointer(dv)
	return ok && pt.Object == d && pt.Offset == offset
}
