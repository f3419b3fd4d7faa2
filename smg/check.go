package smg

import "github.com/pkg/errors"

// Check verifies the structural invariants of g and returns the first
// violation found. A graph built only through the methods of Graph can still
// violate them, for example by adding a field edge that exceeds its object.
//
// Check is expensive and meant for verification builds and tests.
func Check(g *Graph) error {
	null := g.objects[NullObject]
	if null == nil {
		return errors.New("graph has no null object")
	}
	if _, ok := null.Shape.(Null); !ok {
		return errors.Errorf("null object has shape %T", null.Shape)
	}
	if pt, ok := g.pointers[Zero]; !ok || pt.Object != NullObject || pt.Offset != 0 {
		return errors.New("zero value does not point to the null object")
	}
	if len(g.fields[NullObject]) != 0 {
		return errors.New("null object has fields")
	}

	for id, o := range g.objects {
		if o.ID != id {
			return errors.Errorf("object %s stored under handle %s", o.ID, id)
		}
		if id != NullObject {
			if _, ok := o.Shape.(Null); ok {
				return errors.Errorf("object %s has the null shape", id)
			}
		}
		if o.Size < 0 {
			return errors.Errorf("object %s has negative size %d", id, o.Size)
		}
		if id >= g.nextObject {
			return errors.Errorf("object %s beyond allocation bound %s", id, g.nextObject)
		}
	}

	for id, edges := range g.fields {
		o := g.objects[id]
		if o == nil {
			return errors.Errorf("field edges of missing object %s", id)
		}
		for i, e := range edges {
			if e.Object != id {
				return errors.Errorf("field edge %s filed under %s", e, id)
			}
			if e.Size <= 0 || e.Offset < 0 || e.End() > o.Size {
				return errors.Errorf("field edge %s out of bounds of %s", e, o)
			}
			if _, ok := g.values[e.Value]; !ok {
				return errors.Errorf("field edge %s holds unknown value", e)
			}
			if i > 0 {
				prev := edges[i-1]
				if prev.Offset == e.Offset && prev.Size == e.Size {
					return errors.Errorf("duplicate field edges %s and %s", prev, e)
				}
				if prev.Offset > e.Offset {
					return errors.Errorf("field edges of %s out of order", id)
				}
			}
		}
	}

	for v, pt := range g.pointers {
		if pt.Value != v {
			return errors.Errorf("pointer edge %s filed under %s", pt, v)
		}
		if _, ok := g.values[v]; !ok {
			return errors.Errorf("pointer edge %s of unknown value", pt)
		}
		if _, ok := g.objects[pt.Object]; !ok {
			return errors.Errorf("dangling pointer edge %s", pt)
		}
	}
	for v := range g.values {
		if v >= g.nextValue {
			return errors.Errorf("value %s beyond allocation bound %s", v, g.nextValue)
		}
	}

	for _, name := range g.GlobalNames() {
		if err := checkRoot(g, "global "+name, g.Globals[name]); err != nil {
			return err
		}
	}
	for i := range g.Stack {
		f := &g.Stack[i]
		for _, name := range f.LocalNames() {
			if err := checkRoot(g, f.Function+"."+name, f.Locals[name]); err != nil {
				return err
			}
		}
		if f.HasReturn() {
			if err := checkRoot(g, f.Function+" return value", f.Return); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkRoot(g *Graph, what string, id ObjectID) error {
	if id == NullObject {
		return errors.Errorf("%s bound to the null object", what)
	}
	if _, ok := g.objects[id]; !ok {
		return errors.Errorf("%s bound to missing object %s", what, id)
	}
	return nil
}
