package join

import (
	"golang.org/x/exp/slices"

	"honnef.co/go/shape/abstraction"
	"honnef.co/go/shape/smg"
)

// A Candidate proposes folding a destination object into a list segment.
// Value is the destination address of the object's first node, or smg.Zero if
// the object is not addressed by any value (for example a variable).
type Candidate struct {
	Value    smg.Value
	Template abstraction.Template
}

// chain is a run of list nodes on one input side.
type chain struct {
	g     *smg.Graph
	nodes []smg.ObjectID
	// length is the minimal number of concrete nodes the chain stands for.
	length int
	prev   int64
	dll    bool
}

// discover looks for a way to summarize o1 and o2, joined into d, so that the
// failed field joins in opps become unnecessary. It succeeds if the only
// failure is a link field that is null on one side and continues a list on
// the other side, and that list ends in null after nodes that nothing but the
// list itself points to.
func (j *joiner) discover(st Status, o1, o2, d smg.ObjectID, opps []opportunity, ldiff int) (abstraction.Template, Status, bool) {
	if ldiff != 0 || len(opps) != 1 || !j.opts.ExecuteCandidates {
		return abstraction.Template{}, st, false
	}
	// Variables are never folded.
	if bound(j.in1, o1) || bound(j.in2, o2) {
		return abstraction.Template{}, st, false
	}
	link := opps[0]

	var short, long *smg.Graph
	var shortRoot, longRoot smg.ObjectID
	var longLink smg.FieldEdge
	shortIsLeft := false
	switch {
	case isNull(j.in1, link.left.Value) && isLink(j.in2, link.right.Value):
		short, shortRoot = j.in1, o1
		long, longRoot, longLink = j.in2, o2, link.right
		shortIsLeft = true
	case isNull(j.in2, link.right.Value) && isLink(j.in1, link.left.Value):
		short, shortRoot = j.in2, o2
		long, longRoot, longLink = j.in1, o1, link.left
	default:
		return abstraction.Template{}, st, false
	}

	pt, _ := long.Pointer(longLink.Value)
	head := pt.Offset
	next := longLink.Offset

	sr := short.MustObject(shortRoot)
	if h, n, _, ok := links(sr.Shape); ok && (h != head || n != next) {
		return abstraction.Template{}, st, false
	}

	c, ok := followChain(long, longRoot, head, next, longLink.Size, 2)
	if !ok {
		return abstraction.Template{}, st, false
	}
	if !j.inboundShared(j.in1, j.m1, o1, c, shortIsLeft) || !j.inboundShared(j.in2, j.m2, o2, c, !shortIsLeft) {
		return abstraction.Template{}, st, false
	}

	t := abstraction.Template{
		Kind:     smg.KindSLL,
		Head:     head,
		Next:     next,
		NextSize: longLink.Size,
		Members:  []smg.ObjectID{d},
	}
	if c.dll {
		t.Kind = smg.KindDLL
		t.Prev = c.prev
		if _, ok := sr.Shape.(smg.SLL); ok {
			return abstraction.Template{}, st, false
		}
	} else if _, ok := sr.Shape.(smg.DLL); ok {
		return abstraction.Template{}, st, false
	}

	shortLen := sr.MinLength()
	t.MinLength = shortLen
	if c.length < shortLen {
		t.MinLength = c.length
	}
	if t.MinLength == 0 && sr.Kind() != smg.KindSLL && sr.Kind() != smg.KindDLL {
		return abstraction.Template{}, st, false
	}

	// Partition the fields of the long side's root: pointers were joined and
	// agree along the chain; data fields either agree along the chain or are
	// generalized.
	for _, e := range long.Fields(longRoot) {
		if e.Offset == next || (c.dll && e.Offset == c.prev) {
			continue
		}
		if long.IsPointer(e.Value) && e.Value != smg.Zero {
			t.SharedPointers = append(t.SharedPointers, e.Offset)
			continue
		}
		if agrees(long, c.nodes, e) {
			t.SharedData = append(t.SharedData, e.Offset)
		} else {
			t.Generalized = append(t.Generalized, e.Offset)
		}
	}

	// A summary of the short side's shape that is no longer than its own
	// minimal length covers the long chain; anything else generalizes both.
	if sr.Abstract() && t.MinLength == shortLen {
		st = entails(st, shortIsLeft)
	} else {
		st = st.UpdateWith(Incomparable)
	}
	return t, st, true
}

func isNull(g *smg.Graph, v smg.Value) bool {
	pt, ok := g.Pointer(v)
	return ok && pt.Object == smg.NullObject && pt.Offset == 0
}

func isLink(g *smg.Graph, v smg.Value) bool {
	pt, ok := g.Pointer(v)
	return ok && pt.Object != smg.NullObject
}

// followChain walks the list starting at root through the link at offset
// next. Every node after root must be a valid, unbound object of root's size
// whose pointer fields, other than the links, are null or agree with root's.
// The chain must end in null and consist of at least minNodes nodes.
func followChain(g *smg.Graph, root smg.ObjectID, head, next, size int64, minNodes int) (chain, bool) {
	r := g.MustObject(root)
	roots := map[smg.ObjectID]bool{}
	for _, id := range g.Roots() {
		roots[id] = true
	}

	c := chain{g: g, nodes: []smg.ObjectID{root}, length: r.MinLength(), prev: -1}
	seen := map[smg.ObjectID]bool{root: true}
	cur := root
	for {
		e, ok := g.Field(cur, next, size)
		if !ok {
			return chain{}, false
		}
		if isNull(g, e.Value) {
			break
		}
		pt, ok := g.Pointer(e.Value)
		if !ok || pt.Offset != head || seen[pt.Object] || roots[pt.Object] {
			return chain{}, false
		}
		n := g.MustObject(pt.Object)
		if n.Size != r.Size || !n.Valid || n.Kind() == smg.KindNull || n.Kind() == smg.KindOptional || n.Kind() == smg.KindGeneric {
			return chain{}, false
		}
		if h, nx, _, ok := links(n.Shape); ok && (h != head || nx != next) {
			return chain{}, false
		}

		if len(c.nodes) == 1 {
			if off, ok := backLink(g, n.ID, cur, head, next); ok {
				c.dll, c.prev = true, off
			}
		} else if c.dll {
			if off, ok := backLink(g, n.ID, cur, head, next); !ok || off != c.prev {
				return chain{}, false
			}
		}
		if !pointerFieldsAgree(g, root, n.ID, next, c) {
			return chain{}, false
		}

		c.nodes = append(c.nodes, n.ID)
		c.length += n.MinLength()
		seen[n.ID] = true
		cur = n.ID
	}
	if len(c.nodes) < minNodes {
		return chain{}, false
	}

	// Interior nodes may only be reached through the chain's own links.
	member := map[smg.ObjectID]bool{}
	for _, id := range c.nodes {
		member[id] = true
	}
	for _, id := range c.nodes[1:] {
		for _, pt := range g.PointersTo(id) {
			for _, h := range g.Holders(pt.Value) {
				if !member[h.Object] || (h.Offset != next && !(c.dll && h.Offset == c.prev)) {
					return chain{}, false
				}
			}
		}
	}
	return c, true
}

func backLink(g *smg.Graph, obj, pred smg.ObjectID, head, next int64) (int64, bool) {
	for _, e := range g.Fields(obj) {
		if e.Offset == next {
			continue
		}
		pt, ok := g.Pointer(e.Value)
		if ok && pt.Object == pred && pt.Offset == head {
			return e.Offset, true
		}
	}
	return 0, false
}

func pointerFieldsAgree(g *smg.Graph, root, node smg.ObjectID, next int64, c chain) bool {
	for _, e := range g.Fields(node) {
		if e.Offset == next || (c.dll && e.Offset == c.prev) {
			continue
		}
		if !g.IsPointer(e.Value) || e.Value == smg.Zero {
			continue
		}
		f, ok := g.Field(root, e.Offset, e.Size)
		if !ok || f.Value != e.Value {
			return false
		}
	}
	return true
}

func agrees(g *smg.Graph, nodes []smg.ObjectID, e smg.FieldEdge) bool {
	for _, id := range nodes[1:] {
		f, ok := g.Field(id, e.Offset, e.Size)
		if !ok || f.Value != e.Value {
			return false
		}
	}
	return true
}

// inboundShared reports whether every pointer to obj in g is held by an
// object that has already been joined, or by a node of the chain c if c lives
// in g. Summary objects must be reachable uniformly from all predecessors.
func (j *joiner) inboundShared(g *smg.Graph, m *NodeMapping, obj smg.ObjectID, c chain, short bool) bool {
	member := map[smg.ObjectID]bool{}
	if !short {
		for _, id := range c.nodes {
			member[id] = true
		}
	}
	for _, pt := range g.PointersTo(obj) {
		for _, h := range g.Holders(pt.Value) {
			if _, ok := m.Object(h.Object); ok || member[h.Object] {
				continue
			}
			return false
		}
	}
	return true
}

// bound reports whether obj is bound to a global, a local or a return value.
func bound(g *smg.Graph, obj smg.ObjectID) bool {
	return slices.Contains(g.Roots(), obj)
}

// segmentAfter joins two variables whose only conflict is a link field that
// is null on one side and heads a null-terminated list on the other. The
// variables stay concrete; the list is summarized by a fresh segment of
// minimal length 0 between the destination variable d and null.
func (j *joiner) segmentAfter(st Status, o1, o2, d smg.ObjectID, opps []opportunity, ldiff int) (Status, bool) {
	if ldiff != 0 || len(opps) != 1 || !j.opts.ExecuteCandidates {
		return st, false
	}
	link := opps[0]

	var long *smg.Graph
	var m *NodeMapping
	var holder smg.ObjectID
	var e smg.FieldEdge
	switch {
	case isNull(j.in1, link.left.Value) && isLink(j.in2, link.right.Value):
		long, m, holder, e = j.in2, j.m2, o2, link.right
	case isNull(j.in2, link.right.Value) && isLink(j.in1, link.left.Value):
		long, m, holder, e = j.in1, j.m1, o1, link.left
	default:
		return st, false
	}

	pt, _ := long.Pointer(e.Value)
	first := long.MustObject(pt.Object)
	if bound(long, first.ID) || !first.Valid {
		return st, false
	}
	switch first.Kind() {
	case smg.KindRegion:
	case smg.KindSLL:
		if h, n, _, _ := links(first.Shape); h != pt.Offset || n != e.Offset {
			return st, false
		}
	default:
		return st, false
	}
	for _, p := range long.PointersTo(first.ID) {
		for _, h := range long.Holders(p.Value) {
			if h.Object != holder || h.Offset != e.Offset {
				return st, false
			}
		}
	}

	c, ok := followChain(long, first.ID, pt.Offset, e.Offset, e.Size, 1)
	if !ok || c.dll {
		return st, false
	}
	for _, id := range c.nodes {
		if _, ok := m.Object(id); ok {
			return st, false
		}
	}

	// Plan the segment's fields before touching the destination: the link
	// ends in null, zero data shared by all nodes stays zero, and any other
	// data is generalized.
	fields := long.Fields(first.ID)
	keep := make([]bool, len(fields))
	for i, f := range fields {
		switch {
		case f.Offset == e.Offset && f.Size == e.Size:
			keep[i] = true
		case f.Value != smg.Zero && long.IsPointer(f.Value):
			return st, false
		case f.Value == smg.Zero && agrees(long, c.nodes, f):
			keep[i] = true
		}
	}

	seg := j.dest.AddObject(smg.Object{
		Size:  first.Size,
		Valid: true,
		Level: first.Level,
		Label: first.Label,
		Shape: smg.SLL{MinLength: 0, Head: pt.Offset, Next: e.Offset},
	})
	for i, f := range fields {
		v := smg.Zero
		if !keep[i] {
			v = j.dest.NewValue()
		}
		j.dest.AddField(smg.FieldEdge{Object: seg, Offset: f.Offset, Size: f.Size, Value: v})
	}
	dv := j.dest.NewValue()
	j.dest.AddPointer(smg.PointerEdge{Value: dv, Object: seg, Offset: pt.Offset, Target: smg.TargetFirst})
	j.dest.AddField(smg.FieldEdge{Object: d, Offset: e.Offset, Size: e.Size, Value: dv})

	for _, id := range c.nodes {
		m.MapObject(id, seg)
	}
	m.MapValue(e.Value, dv)
	return st.UpdateWith(Incomparable), true
}
