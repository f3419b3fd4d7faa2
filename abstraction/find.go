package abstraction

import (
	"golang.org/x/exp/slices"

	"honnef.co/go/shape/smg"
)

// Options controls which chains Find reports.
type Options struct {
	// MinLength is the minimal number of concrete nodes a chain must stand
	// for to be reported.
	MinLength int
	// SLL and DLL enable the respective segment kinds.
	SLL, DLL bool
}

// DefaultOptions are the options used when no configuration is present.
var DefaultOptions = Options{MinLength: 2, SLL: true, DLL: true}

// Find returns templates for all maximal chains of list nodes in g, longest
// first. A chain consists of equally sized, valid, unbound objects linked
// through a pointer field at a common offset. Nodes after the first may only
// be pointed to by their predecessor's link (and, for doubly linked chains, by
// their successor's back link), and all pointer fields other than the links
// must agree across the chain.
func Find(g *smg.Graph, opts Options) []Template {
	roots := map[smg.ObjectID]bool{}
	for _, id := range g.Roots() {
		roots[id] = true
	}

	var out []Template
	covered := map[smg.ObjectID]bool{}
	for _, start := range chainStarts(g, roots) {
		for _, e := range g.Fields(start) {
			if covered[start] {
				break
			}
			t, ok := chainFrom(g, roots, start, e, opts)
			if !ok {
				continue
			}
			out = append(out, t)
			for _, id := range t.Members {
				covered[id] = true
			}
		}
	}
	slices.SortStableFunc(out, func(a, b Template) bool {
		return length(g, a) > length(g, b)
	})
	return out
}

// chainStarts returns candidate first nodes, excluding nodes that are the
// unique link target of another candidate node, so that chains are maximal.
func chainStarts(g *smg.Graph, roots map[smg.ObjectID]bool) []smg.ObjectID {
	var out []smg.ObjectID
	for _, id := range g.Objects() {
		if !node(g, roots, id) {
			continue
		}
		if pred, ok := uniquePredecessor(g, id); ok && node(g, roots, pred) && g.Object(pred).Size == g.Object(id).Size {
			continue
		}
		out = append(out, id)
	}
	return out
}

func node(g *smg.Graph, roots map[smg.ObjectID]bool, id smg.ObjectID) bool {
	o := g.Object(id)
	if o == nil || id == smg.NullObject || roots[id] || !o.Valid {
		return false
	}
	switch o.Kind() {
	case smg.KindRegion, smg.KindSLL, smg.KindDLL:
		return true
	default:
		return false
	}
}

// uniquePredecessor returns the only object holding pointers to id, if there
// is exactly one such object.
func uniquePredecessor(g *smg.Graph, id smg.ObjectID) (smg.ObjectID, bool) {
	var pred smg.ObjectID
	found := false
	for _, pt := range g.PointersTo(id) {
		for _, h := range g.Holders(pt.Value) {
			if h.Object == id {
				continue
			}
			if found && h.Object != pred {
				return 0, false
			}
			pred, found = h.Object, true
		}
	}
	return pred, found
}

func chainFrom(g *smg.Graph, roots map[smg.ObjectID]bool, start smg.ObjectID, link smg.FieldEdge, opts Options) (Template, bool) {
	first := g.Object(start)
	pt, ok := g.Pointer(link.Value)
	if !ok || pt.Object == smg.NullObject || pt.Object == start {
		return Template{}, false
	}
	t := Template{
		Kind:     smg.KindSLL,
		Head:     pt.Offset,
		Next:     link.Offset,
		NextSize: link.Size,
		Members:  []smg.ObjectID{start},
	}
	if !compatible(first, t) {
		return Template{}, false
	}

	seen := map[smg.ObjectID]bool{start: true}
	cur := start
	for {
		succ, ok := follow(g, cur, t.Next, t.NextSize)
		if !ok || succ.Offset != t.Head || seen[succ.Object] || !node(g, roots, succ.Object) {
			break
		}
		o := g.Object(succ.Object)
		if o.Size != first.Size || !compatible(o, t) {
			break
		}
		if len(t.Members) == 1 {
			if prev, ok := backLink(g, succ.Object, cur, t); ok && opts.DLL {
				t.Kind = smg.KindDLL
				t.Prev = prev
			}
		} else if t.Kind == smg.KindDLL {
			if prev, ok := backLink(g, succ.Object, cur, t); !ok || prev != t.Prev {
				break
			}
		}
		if !onlyLinkedFrom(g, succ.Object, cur, t) || !samePointers(g, start, succ.Object, t) {
			break
		}
		t.Members = append(t.Members, succ.Object)
		seen[succ.Object] = true
		cur = succ.Object
	}

	if len(t.Members) < 2 {
		return Template{}, false
	}
	if t.Kind == smg.KindSLL && !opts.SLL || t.Kind == smg.KindDLL && !opts.DLL {
		return Template{}, false
	}
	if length(g, t) < opts.MinLength {
		return Template{}, false
	}
	partition(g, &t)
	return t, true
}

// compatible reports whether an existing segment uses the same links as t.
func compatible(o *smg.Object, t Template) bool {
	switch s := o.Shape.(type) {
	case smg.SLL:
		return t.Kind == smg.KindSLL && s.Head == t.Head && s.Next == t.Next
	case smg.DLL:
		return s.Head == t.Head && s.Next == t.Next
	default:
		return true
	}
}

// backLink finds a field of obj, other than the forward link, pointing back to
// pred at the head offset.
func backLink(g *smg.Graph, obj, pred smg.ObjectID, t Template) (int64, bool) {
	for _, e := range g.Fields(obj) {
		if e.Offset == t.Next {
			continue
		}
		pt, ok := g.Pointer(e.Value)
		if ok && pt.Object == pred && pt.Offset == t.Head {
			return e.Offset, true
		}
	}
	return 0, false
}

// onlyLinkedFrom reports whether every field pointing to obj is pred's forward
// link or, for doubly linked chains, the back link of obj's successor.
func onlyLinkedFrom(g *smg.Graph, obj, pred smg.ObjectID, t Template) bool {
	for _, pt := range g.PointersTo(obj) {
		for _, h := range g.Holders(pt.Value) {
			switch {
			case h.Object == pred && h.Offset == t.Next:
			case t.Kind == smg.KindDLL && h.Offset == t.Prev && h.Object != pred:
				succ, ok := follow(g, obj, t.Next, t.NextSize)
				if !ok || succ.Object != h.Object {
					return false
				}
			default:
				return false
			}
		}
	}
	return true
}

// samePointers reports whether a and b hold the same pointer values in all
// fields other than the links.
func samePointers(g *smg.Graph, a, b smg.ObjectID, t Template) bool {
	for _, e := range g.Fields(a) {
		if t.isLink(e.Offset) {
			continue
		}
		f, ok := g.Field(b, e.Offset, e.Size)
		ptrA := g.IsPointer(e.Value) && e.Value != smg.Zero
		ptrB := ok && g.IsPointer(f.Value) && f.Value != smg.Zero
		if (ptrA || ptrB) && (!ok || f.Value != e.Value) {
			return false
		}
	}
	return true
}

// partition classifies the non-link fields of the chain's first member.
func partition(g *smg.Graph, t *Template) {
	for _, e := range g.Fields(t.Root()) {
		if t.isLink(e.Offset) {
			continue
		}
		switch {
		case g.IsPointer(e.Value) && e.Value != smg.Zero:
			t.SharedPointers = append(t.SharedPointers, e.Offset)
		case uniform(g, t.Members, e):
			t.SharedData = append(t.SharedData, e.Offset)
		default:
			t.Generalized = append(t.Generalized, e.Offset)
		}
	}
}

func length(g *smg.Graph, t Template) int {
	n := 0
	for _, id := range t.Members {
		n += g.Object(id).MinLength()
	}
	return n
}
