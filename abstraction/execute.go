package abstraction

import (
	"fmt"

	"honnef.co/go/shape/smg"
)

// Execute folds the members of t into a single list segment, rewriting g in
// place. Pointers to the first member are redirected to the segment's first
// node, pointers to the last member to its last node. Data fields whose values
// differ between members, or that t marks as generalized, receive fresh
// values. The link fields of the segment are taken from the first member
// (prev) and the last member (next).
//
// Execute returns an error, and leaves g unchanged, if the members do not form
// a chain of equally sized objects.
func Execute(g *smg.Graph, t Template) error {
	if t.Kind != smg.KindSLL && t.Kind != smg.KindDLL {
		return fmt.Errorf("cannot fold into a %s", t.Kind)
	}
	if len(t.Members) == 0 {
		return fmt.Errorf("template has no members")
	}
	root := g.Object(t.Root())
	if root == nil || root.ID == smg.NullObject {
		return fmt.Errorf("template root %s not in graph", t.Root())
	}

	minLength := t.MinLength
	sum := 0
	for i, id := range t.Members {
		o := g.Object(id)
		if o == nil {
			return fmt.Errorf("member %s not in graph", id)
		}
		if o.Size != root.Size || o.Valid != root.Valid {
			return fmt.Errorf("member %s is not compatible with %s", o, root)
		}
		if i+1 < len(t.Members) {
			succ, ok := follow(g, id, t.Next, t.NextSize)
			if !ok || succ.Object != t.Members[i+1] || succ.Offset != t.Head {
				return fmt.Errorf("member %s does not link to %s", id, t.Members[i+1])
			}
		}
		sum += o.MinLength()
	}
	if minLength == 0 {
		minLength = sum
	}

	last := t.Members[len(t.Members)-1]
	members := map[smg.ObjectID]bool{}
	for _, id := range t.Members {
		members[id] = true
	}

	fields := g.Fields(root.ID)
	fresh := make([]bool, len(fields))
	for i, e := range fields {
		if t.isLink(e.Offset) {
			continue
		}
		if contains(t.Generalized, e.Offset) || !uniform(g, t.Members, e) {
			if g.IsPointer(e.Value) && e.Value != smg.Zero {
				return fmt.Errorf("pointer field %s differs between members", e)
			}
			fresh[i] = true
		}
	}
	for i, e := range fields {
		switch {
		case e.Offset == t.Next && e.Size == t.NextSize:
			if lf, ok := g.Field(last, e.Offset, e.Size); ok {
				fields[i].Value = lf.Value
			}
		case fresh[i]:
			fields[i].Value = g.NewValue()
		}
	}

	for _, pt := range g.Pointers() {
		if !members[pt.Object] {
			continue
		}
		switch pt.Object {
		case root.ID:
			if pt.Target == smg.TargetRegion {
				pt.Target = smg.TargetFirst
			}
		case last:
			pt.Object = root.ID
			if pt.Target == smg.TargetRegion {
				pt.Target = smg.TargetLast
			}
		default:
			pt.Object = root.ID
			pt.Target = smg.TargetAll
		}
		g.AddPointer(pt)
	}

	for _, id := range t.Members[1:] {
		g.RemoveObject(id)
	}
	g.SetFields(root.ID, fields)
	root.Shape = t.Shape(minLength)
	return nil
}

// follow returns the pointer edge of the value held in obj's field at offset.
func follow(g *smg.Graph, obj smg.ObjectID, offset, size int64) (smg.PointerEdge, bool) {
	e, ok := g.Field(obj, offset, size)
	if !ok {
		return smg.PointerEdge{}, false
	}
	pt, ok := g.Pointer(e.Value)
	if !ok || pt.Object == smg.NullObject {
		return smg.PointerEdge{}, false
	}
	return pt, true
}

// uniform reports whether every member holds the same value as e at e's
// offset and size.
func uniform(g *smg.Graph, members []smg.ObjectID, e smg.FieldEdge) bool {
	for _, id := range members[1:] {
		f, ok := g.Field(id, e.Offset, e.Size)
		if !ok || f.Value != e.Value {
			return false
		}
	}
	return true
}
