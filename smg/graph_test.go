package smg

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// list builds a global list of n nodes of 64 bits, linked at offset 0, and
// returns the graph and the nodes.
func list(n int) (*Graph, []ObjectID) {
	g := New()
	head := g.NewRegion(64, "list")
	g.Globals["list"] = head
	nodes := make([]ObjectID, n)
	for i := range nodes {
		nodes[i] = g.NewRegion(64, "")
	}
	prev := head
	for _, id := range nodes {
		v := g.NewValue()
		g.AddPointer(PointerEdge{Value: v, Object: id})
		g.AddField(FieldEdge{Object: prev, Offset: 0, Size: 64, Value: v})
		prev = id
	}
	g.AddField(FieldEdge{Object: prev, Offset: 0, Size: 64, Value: Zero})
	return g, nodes
}

func TestNew(t *testing.T) {
	g := New()
	if err := Check(g); err != nil {
		t.Fatal(err)
	}
	pt, ok := g.Pointer(Zero)
	if !ok || pt.Object != NullObject || pt.Offset != 0 {
		t.Errorf("zero points to %v, %t", pt, ok)
	}
	if k := g.Object(NullObject).Kind(); k != KindNull {
		t.Errorf("null object has kind %s", k)
	}
	if diff := cmp.Diff([]ObjectID{NullObject}, g.Objects()); diff != "" {
		t.Errorf("objects mismatch (-want +got):\n%s", diff)
	}
}

func TestAddField(t *testing.T) {
	g := New()
	o := g.NewRegion(128, "o")
	a, b := g.NewValue(), g.NewValue()
	g.AddField(FieldEdge{Object: o, Offset: 64, Size: 64, Value: a})
	g.AddField(FieldEdge{Object: o, Offset: 0, Size: 32, Value: a})
	g.AddField(FieldEdge{Object: o, Offset: 0, Size: 64, Value: b})
	// Replaces the edge at the same offset and size.
	g.AddField(FieldEdge{Object: o, Offset: 64, Size: 64, Value: b})

	want := []FieldEdge{
		{Object: o, Offset: 0, Size: 32, Value: a},
		{Object: o, Offset: 0, Size: 64, Value: b},
		{Object: o, Offset: 64, Size: 64, Value: b},
	}
	if diff := cmp.Diff(want, g.Fields(o)); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	if got := len(g.FieldsAt(o, 0)); got != 2 {
		t.Errorf("got %d fields at offset 0, want 2", got)
	}
	if diff := cmp.Diff([]FieldEdge{want[1], want[2]}, g.Holders(b)); diff != "" {
		t.Errorf("holders mismatch (-want +got):\n%s", diff)
	}

	g.RemoveField(o, 0, 32)
	if _, ok := g.Field(o, 0, 32); ok {
		t.Error("field still present after removal")
	}
	if err := Check(g); err != nil {
		t.Error(err)
	}
}

func TestRemoveObject(t *testing.T) {
	g, nodes := list(2)
	g.RemoveObject(nodes[1])
	if g.HasObject(nodes[1]) {
		t.Fatal("object still present")
	}
	if len(g.PointersTo(nodes[1])) != 0 {
		t.Error("pointer edges into the removed object remain")
	}
	if err := Check(g); err != nil {
		t.Error(err)
	}
}

func TestReachableAndCollect(t *testing.T) {
	g, nodes := list(3)
	garbage := g.NewRegion(32, "garbage")
	g.AddField(FieldEdge{Object: garbage, Offset: 0, Size: 32, Value: g.NewValue()})

	live := g.Reachable()
	for _, id := range nodes {
		if !live.Has(int(id)) {
			t.Errorf("%s not reachable", id)
		}
	}
	if live.Has(int(garbage)) || live.Has(int(NullObject)) {
		t.Errorf("reachable set %s too large", live)
	}

	nvalues := len(g.Values())
	g.Collect()
	if g.HasObject(garbage) {
		t.Error("unreachable object survived collection")
	}
	if got := len(g.Values()); got != nvalues-1 {
		t.Errorf("got %d values after collection, want %d", got, nvalues-1)
	}
	if err := Check(g); err != nil {
		t.Error(err)
	}
}

func TestCopy(t *testing.T) {
	g, nodes := list(2)
	c := g.Copy()
	if g.String() != c.String() {
		t.Fatalf("copy differs:\n%s\n%s", g, c)
	}

	c.RemoveObject(nodes[0])
	c.Globals["other"] = nodes[1]
	c.Object(nodes[1]).Size = 8
	if !g.HasObject(nodes[0]) || len(g.Globals) != 1 || g.Object(nodes[1]).Size != 64 {
		t.Error("modifying the copy changed the original")
	}
}

func TestReserve(t *testing.T) {
	g := New()
	g.Reserve(10, 20)
	if id := g.NewRegion(8, ""); id != 10 {
		t.Errorf("got object %s, want o10", id)
	}
	if v := g.NewValue(); v != 20 {
		t.Errorf("got value %s, want #20", v)
	}
	if !g.InsertObject(Object{ID: 5, Size: 8, Valid: true}) {
		t.Error("could not insert below the bound")
	}
	if g.InsertObject(Object{ID: 5}) {
		t.Error("inserted a duplicate handle")
	}
}

func TestRoots(t *testing.T) {
	g := New()
	a, b, r := g.NewRegion(8, "a"), g.NewRegion(8, "b"), g.NewRegion(8, "r")
	g.Globals["a"] = a
	f := g.PushFrame("main")
	f.Locals["b"] = b
	f.Return = r
	if diff := cmp.Diff([]ObjectID{a, b, r}, g.Roots()); diff != "" {
		t.Errorf("roots mismatch (-want +got):\n%s", diff)
	}
}
