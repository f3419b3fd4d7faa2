package smg

import (
	"fmt"
	"strings"
)

// String returns a textual dump of g, listing bindings, objects with their
// fields and pointer edges in a stable order.
func (g *Graph) String() string {
	var sb strings.Builder
	for _, name := range g.GlobalNames() {
		fmt.Fprintf(&sb, "global %s = %s\n", name, g.Globals[name])
	}
	for i := range g.Stack {
		f := &g.Stack[i]
		fmt.Fprintf(&sb, "frame %d %s\n", i, f.Function)
		for _, name := range f.LocalNames() {
			fmt.Fprintf(&sb, "\tlocal %s = %s\n", name, f.Locals[name])
		}
		if f.HasReturn() {
			fmt.Fprintf(&sb, "\treturn = %s\n", f.Return)
		}
	}
	for _, id := range g.Objects() {
		if id == NullObject {
			continue
		}
		fmt.Fprintf(&sb, "%s\n", g.objects[id])
		for _, e := range g.fields[id] {
			fmt.Fprintf(&sb, "\t[%d,%d) %s\n", e.Offset, e.End(), e.Value)
		}
	}
	for _, pt := range g.Pointers() {
		if pt.Value == Zero {
			continue
		}
		fmt.Fprintf(&sb, "%s\n", pt)
	}
	return sb.String()
}

// Dot returns a directed graph in Graphviz format. Objects are rendered as
// records with one port per field, and pointer values held in fields as edges
// from the field to the target object.
func (g *Graph) Dot() string {
	var sb strings.Builder
	sb.WriteString("digraph{\n")
	sb.WriteString("node [shape=record]\n")

	for _, name := range g.GlobalNames() {
		fmt.Fprintf(&sb, "g_%s [label=%q shape=plaintext]\n", name, name)
		fmt.Fprintf(&sb, "g_%s -> %s\n", name, g.Globals[name])
	}
	for i := range g.Stack {
		f := &g.Stack[i]
		for _, name := range f.LocalNames() {
			fmt.Fprintf(&sb, "f%d_%s [label=%q shape=plaintext]\n", i, name, f.Function+"."+name)
			fmt.Fprintf(&sb, "f%d_%s -> %s\n", i, name, f.Locals[name])
		}
	}

	for _, id := range g.Objects() {
		o := g.objects[id]
		if id == NullObject {
			fmt.Fprintf(&sb, "%s [label=\"NULL\" shape=box]\n", id)
			continue
		}
		ports := []string{strings.ReplaceAll(o.String(), "|", "\\|")}
		for _, e := range g.fields[id] {
			ports = append(ports, fmt.Sprintf("<f%d_%d> [%d,%d) %s", e.Offset, e.Size, e.Offset, e.End(), e.Value))
		}
		fmt.Fprintf(&sb, "%s [label=\"{%s}\"]\n", id, strings.Join(ports, "|"))
		if o.Abstract() {
			fmt.Fprintf(&sb, "%s [style=dashed]\n", id)
		}
	}
	for _, id := range g.Objects() {
		for _, e := range g.fields[id] {
			pt, ok := g.pointers[e.Value]
			if !ok {
				continue
			}
			fmt.Fprintf(&sb, "%s:f%d_%d -> %s [label=%q]\n", id, e.Offset, e.Size, pt.Object, fmt.Sprintf("+%d %s", pt.Offset, pt.Target))
		}
	}

	sb.WriteString("}")
	return sb.String()
}
