package smg

import "reflect"

// Isomorphic reports whether the parts of a and b reachable from their roots
// are identical up to renaming of object and value handles. Labels are
// ignored.
func Isomorphic(a, b *Graph) bool {
	iso := isomorphism{
		a:           a,
		b:           b,
		objects:     map[ObjectID]ObjectID{NullObject: NullObject},
		objectsBack: map[ObjectID]ObjectID{NullObject: NullObject},
		values:      map[Value]Value{Zero: Zero},
		valuesBack:  map[Value]Value{Zero: Zero},
	}

	if len(a.Globals) != len(b.Globals) || len(a.Stack) != len(b.Stack) {
		return false
	}
	for name, oa := range a.Globals {
		ob, ok := b.Globals[name]
		if !ok || !iso.object(oa, ob) {
			return false
		}
	}
	for i := range a.Stack {
		fa, fb := &a.Stack[i], &b.Stack[i]
		if fa.Function != fb.Function || len(fa.Locals) != len(fb.Locals) || fa.HasReturn() != fb.HasReturn() {
			return false
		}
		for name, oa := range fa.Locals {
			ob, ok := fb.Locals[name]
			if !ok || !iso.object(oa, ob) {
				return false
			}
		}
		if fa.HasReturn() && !iso.object(fa.Return, fb.Return) {
			return false
		}
	}
	return true
}

type isomorphism struct {
	a, b                 *Graph
	objects, objectsBack map[ObjectID]ObjectID
	values, valuesBack   map[Value]Value
}

func (iso *isomorphism) object(oa, ob ObjectID) bool {
	if m, ok := iso.objects[oa]; ok {
		return m == ob
	}
	if _, ok := iso.objectsBack[ob]; ok {
		return false
	}
	xa, xb := iso.a.Object(oa), iso.b.Object(ob)
	if xa == nil || xb == nil {
		return false
	}
	if xa.Size != xb.Size || xa.Valid != xb.Valid || xa.Level != xb.Level || !reflect.DeepEqual(xa.Shape, xb.Shape) {
		return false
	}
	iso.objects[oa] = ob
	iso.objectsBack[ob] = oa

	fa, fb := iso.a.fields[oa], iso.b.fields[ob]
	if len(fa) != len(fb) {
		return false
	}
	for i := range fa {
		if fa[i].Offset != fb[i].Offset || fa[i].Size != fb[i].Size {
			return false
		}
		if !iso.value(fa[i].Value, fb[i].Value) {
			return false
		}
	}
	return true
}

func (iso *isomorphism) value(va, vb Value) bool {
	if m, ok := iso.values[va]; ok {
		return m == vb
	}
	if _, ok := iso.valuesBack[vb]; ok {
		return false
	}
	iso.values[va] = vb
	iso.valuesBack[vb] = va

	pa, okA := iso.a.Pointer(va)
	pb, okB := iso.b.Pointer(vb)
	if okA != okB {
		return false
	}
	if !okA {
		return true
	}
	if pa.Offset != pb.Offset || pa.Target != pb.Target {
		return false
	}
	return iso.object(pa.Object, pb.Object)
}
