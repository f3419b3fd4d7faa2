package smg

import (
	"strings"
	"testing"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(g *Graph, nodes []ObjectID)
		want    string
	}{
		{"field out of bounds", func(g *Graph, nodes []ObjectID) {
			g.AddField(FieldEdge{Object: nodes[0], Offset: 32, Size: 64, Value: Zero})
		}, "out of bounds"},
		{"dangling pointer", func(g *Graph, nodes []ObjectID) {
			g.AddPointer(PointerEdge{Value: g.NewValue(), Object: 99})
		}, "dangling"},
		{"missing global", func(g *Graph, nodes []ObjectID) {
			g.Globals["x"] = 99
		}, "missing object"},
		{"global bound to null", func(g *Graph, nodes []ObjectID) {
			g.Globals["x"] = NullObject
		}, "null object"},
		{"null shape", func(g *Graph, nodes []ObjectID) {
			g.Object(nodes[0]).Shape = Null{}
		}, "null shape"},
		{"null object fields", func(g *Graph, nodes []ObjectID) {
			g.fields[NullObject] = []FieldEdge{{Object: NullObject, Offset: 0, Size: 8, Value: Zero}}
		}, "null object has fields"},
		{"value beyond bound", func(g *Graph, nodes []ObjectID) {
			g.values[1000] = struct{}{}
		}, "beyond allocation bound"},
		{"zero pointer", func(g *Graph, nodes []ObjectID) {
			g.pointers[Zero] = PointerEdge{Value: Zero, Object: nodes[0]}
		}, "zero value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, nodes := list(2)
			if err := Check(g); err != nil {
				t.Fatalf("well-formed graph rejected: %v", err)
			}
			tt.corrupt(g, nodes)
			err := Check(g)
			if err == nil {
				t.Fatal("corruption not detected")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got error %q, want it to mention %q", err, tt.want)
			}
		})
	}
}
