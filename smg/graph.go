package smg

import (
	"fmt"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/tools/container/intsets"
)

// A Graph is a symbolic memory graph together with the program's variable
// bindings.
//
// Graphs are not safe for concurrent use.
type Graph struct {
	objects  map[ObjectID]*Object
	values   map[Value]struct{}
	fields   map[ObjectID][]FieldEdge
	pointers map[Value]PointerEdge

	nextObject ObjectID
	nextValue  Value

	// Globals maps global variable names to their objects.
	Globals map[string]ObjectID
	// Stack holds the call stack, outermost frame first.
	Stack []Frame
}

// New returns a graph containing only the null object and the zero value.
func New() *Graph {
	g := &Graph{
		objects:    map[ObjectID]*Object{},
		values:     map[Value]struct{}{},
		fields:     map[ObjectID][]FieldEdge{},
		pointers:   map[Value]PointerEdge{},
		nextObject: NullObject + 1,
		nextValue:  Zero + 1,
		Globals:    map[string]ObjectID{},
	}
	g.objects[NullObject] = &Object{ID: NullObject, Label: "null", Shape: Null{}}
	g.values[Zero] = struct{}{}
	g.pointers[Zero] = PointerEdge{Value: Zero, Object: NullObject}
	return g
}

func sorted[K constraints.Ordered, V any](m map[K]V) []K {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

// Bounds returns the smallest object and value handles that have never been
// allocated in g.
func (g *Graph) Bounds() (ObjectID, Value) { return g.nextObject, g.nextValue }

// Reserve makes sure that handles allocated in the future are at least as
// large as the given bounds. It is used to keep freshly allocated handles
// disjoint from the handles of other graphs.
func (g *Graph) Reserve(obj ObjectID, val Value) {
	if obj > g.nextObject {
		g.nextObject = obj
	}
	if val > g.nextValue {
		g.nextValue = val
	}
}

// AddObject adds a copy of o to the graph under a fresh ID and returns that ID.
func (g *Graph) AddObject(o Object) ObjectID {
	o.ID = g.nextObject
	g.nextObject++
	if o.Shape == nil {
		o.Shape = Region{}
	}
	g.objects[o.ID] = &o
	return o.ID
}

// InsertObject adds a copy of o under o.ID. It reports false if the ID is
// already in use.
func (g *Graph) InsertObject(o Object) bool {
	if _, ok := g.objects[o.ID]; ok {
		return false
	}
	if o.Shape == nil {
		o.Shape = Region{}
	}
	g.objects[o.ID] = &o
	if o.ID >= g.nextObject {
		g.nextObject = o.ID + 1
	}
	return true
}

// NewRegion adds a valid concrete region of the given size in bits.
func (g *Graph) NewRegion(size int64, label string) ObjectID {
	return g.AddObject(Object{Size: size, Valid: true, Label: label, Shape: Region{}})
}

// Object returns the object with the given ID, or nil. The returned object may
// be modified in place.
func (g *Graph) Object(id ObjectID) *Object { return g.objects[id] }

// HasObject reports whether id denotes an object of g.
func (g *Graph) HasObject(id ObjectID) bool {
	_, ok := g.objects[id]
	return ok
}

// Objects returns the IDs of all objects, including the null object, in
// ascending order.
func (g *Graph) Objects() []ObjectID { return sorted(g.objects) }

// RemoveObject removes an object, its field edges and all pointer edges
// pointing into it. Values remain in the graph.
func (g *Graph) RemoveObject(id ObjectID) {
	if id == NullObject {
		panic("cannot remove the null object")
	}
	delete(g.objects, id)
	delete(g.fields, id)
	for v, pt := range g.pointers {
		if pt.Object == id {
			delete(g.pointers, v)
		}
	}
}

// NewValue allocates a fresh value.
func (g *Graph) NewValue() Value {
	v := g.nextValue
	g.nextValue++
	g.values[v] = struct{}{}
	return v
}

// AddValue adds v to the graph. Adding an existing value is a no-op.
func (g *Graph) AddValue(v Value) {
	g.values[v] = struct{}{}
	if v >= g.nextValue {
		g.nextValue = v + 1
	}
}

// HasValue reports whether v is a value of g.
func (g *Graph) HasValue(v Value) bool {
	_, ok := g.values[v]
	return ok
}

// Values returns all values in ascending order.
func (g *Graph) Values() []Value { return sorted(g.values) }

// RemoveValue removes a value and its pointer edge. The zero value cannot be
// removed.
func (g *Graph) RemoveValue(v Value) {
	if v == Zero {
		panic("cannot remove the zero value")
	}
	delete(g.values, v)
	delete(g.pointers, v)
}

// AddField adds a field edge, replacing any edge of the same object at the same
// offset and size. The edge's value is added to the graph if necessary.
func (g *Graph) AddField(e FieldEdge) {
	g.AddValue(e.Value)
	edges := g.fields[e.Object]
	i, found := fieldIndex(edges, e.Offset, e.Size)
	if found {
		edges[i] = e
		return
	}
	edges = append(edges, FieldEdge{})
	copy(edges[i+1:], edges[i:])
	edges[i] = e
	g.fields[e.Object] = edges
}

func fieldIndex(edges []FieldEdge, offset, size int64) (int, bool) {
	for i, e := range edges {
		if e.Offset == offset && e.Size == size {
			return i, true
		}
		if e.Offset > offset || (e.Offset == offset && e.Size > size) {
			return i, false
		}
	}
	return len(edges), false
}

// RemoveField removes the field edge of obj at the given offset and size, if
// any.
func (g *Graph) RemoveField(obj ObjectID, offset, size int64) {
	edges := g.fields[obj]
	if i, ok := fieldIndex(edges, offset, size); ok {
		g.fields[obj] = append(edges[:i], edges[i+1:]...)
	}
}

// Field returns the field edge of obj at the given offset and size.
func (g *Graph) Field(obj ObjectID, offset, size int64) (FieldEdge, bool) {
	edges := g.fields[obj]
	if i, ok := fieldIndex(edges, offset, size); ok {
		return edges[i], true
	}
	return FieldEdge{}, false
}

// FieldsAt returns all field edges of obj starting at offset.
func (g *Graph) FieldsAt(obj ObjectID, offset int64) []FieldEdge {
	var out []FieldEdge
	for _, e := range g.fields[obj] {
		if e.Offset == offset {
			out = append(out, e)
		}
	}
	return out
}

// Fields returns a copy of the field edges of obj, ordered by offset and size.
func (g *Graph) Fields(obj ObjectID) []FieldEdge {
	return append([]FieldEdge(nil), g.fields[obj]...)
}

// SetFields replaces all field edges of obj.
func (g *Graph) SetFields(obj ObjectID, edges []FieldEdge) {
	delete(g.fields, obj)
	for _, e := range edges {
		e.Object = obj
		g.AddField(e)
	}
}

// AddPointer adds a pointer edge, replacing the previous edge of the same
// value.
func (g *Graph) AddPointer(e PointerEdge) {
	if e.Value == Zero && (e.Object != NullObject || e.Offset != 0) {
		panic("the zero value must point to the null object")
	}
	g.AddValue(e.Value)
	g.pointers[e.Value] = e
}

// Pointer returns the pointer edge of v.
func (g *Graph) Pointer(v Value) (PointerEdge, bool) {
	e, ok := g.pointers[v]
	return e, ok
}

// IsPointer reports whether v has a pointer edge. The zero value is a pointer.
func (g *Graph) IsPointer(v Value) bool {
	_, ok := g.pointers[v]
	return ok
}

// Pointers returns all pointer edges ordered by value.
func (g *Graph) Pointers() []PointerEdge {
	out := make([]PointerEdge, 0, len(g.pointers))
	for _, v := range sorted(g.pointers) {
		out = append(out, g.pointers[v])
	}
	return out
}

// PointersTo returns the pointer edges targeting obj, ordered by value.
func (g *Graph) PointersTo(obj ObjectID) []PointerEdge {
	var out []PointerEdge
	for _, e := range g.Pointers() {
		if e.Object == obj {
			out = append(out, e)
		}
	}
	return out
}

// FindPointer returns the value of an existing pointer edge with the given
// target, offset and specifier.
func (g *Graph) FindPointer(obj ObjectID, offset int64, target TargetSpec) (Value, bool) {
	for _, e := range g.Pointers() {
		if e.Object == obj && e.Offset == offset && e.Target == target {
			return e.Value, true
		}
	}
	return 0, false
}

// Holders returns the field edges, across all objects, that hold v.
func (g *Graph) Holders(v Value) []FieldEdge {
	var out []FieldEdge
	for _, id := range sorted(g.fields) {
		for _, e := range g.fields[id] {
			if e.Value == v {
				out = append(out, e)
			}
		}
	}
	return out
}

// GlobalNames returns the names of all globals in ascending order.
func (g *Graph) GlobalNames() []string { return sorted(g.Globals) }

// PushFrame appends a new innermost frame and returns it.
func (g *Graph) PushFrame(function string) *Frame {
	g.Stack = append(g.Stack, Frame{Function: function, Locals: map[string]ObjectID{}})
	return &g.Stack[len(g.Stack)-1]
}

// LocalNames returns the names of a frame's locals in ascending order.
func (f *Frame) LocalNames() []string { return sorted(f.Locals) }

// Roots returns the objects bound to globals, locals and return values.
func (g *Graph) Roots() []ObjectID {
	var out []ObjectID
	for _, name := range g.GlobalNames() {
		out = append(out, g.Globals[name])
	}
	for i := range g.Stack {
		f := &g.Stack[i]
		for _, name := range f.LocalNames() {
			out = append(out, f.Locals[name])
		}
		if f.HasReturn() {
			out = append(out, f.Return)
		}
	}
	return out
}

// Reachable returns the set of objects reachable from the roots by following
// pointer values held in fields. The null object is never included.
func (g *Graph) Reachable() *intsets.Sparse {
	var seen intsets.Sparse
	var stack []ObjectID
	for _, id := range g.Roots() {
		if seen.Insert(int(id)) {
			stack = append(stack, id)
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.fields[id] {
			pt, ok := g.pointers[e.Value]
			if !ok || pt.Object == NullObject {
				continue
			}
			if seen.Insert(int(pt.Object)) {
				stack = append(stack, pt.Object)
			}
		}
	}
	seen.Remove(int(NullObject))
	return &seen
}

// Collect removes objects that are not reachable from the roots and values
// that are no longer held by any field.
func (g *Graph) Collect() {
	live := g.Reachable()
	for _, id := range g.Objects() {
		if id != NullObject && !live.Has(int(id)) {
			g.RemoveObject(id)
		}
	}
	var held intsets.Sparse
	for _, edges := range g.fields {
		for _, e := range edges {
			held.Insert(int(e.Value))
		}
	}
	for _, v := range g.Values() {
		if v != Zero && !held.Has(int(v)) {
			g.RemoveValue(v)
		}
	}
}

// Copy returns a deep copy of g. Handles are preserved.
func (g *Graph) Copy() *Graph {
	out := &Graph{
		objects:    make(map[ObjectID]*Object, len(g.objects)),
		values:     make(map[Value]struct{}, len(g.values)),
		fields:     make(map[ObjectID][]FieldEdge, len(g.fields)),
		pointers:   make(map[Value]PointerEdge, len(g.pointers)),
		nextObject: g.nextObject,
		nextValue:  g.nextValue,
		Globals:    make(map[string]ObjectID, len(g.Globals)),
		Stack:      make([]Frame, len(g.Stack)),
	}
	for id, o := range g.objects {
		oc := *o
		out.objects[id] = &oc
	}
	for v := range g.values {
		out.values[v] = struct{}{}
	}
	for id, edges := range g.fields {
		out.fields[id] = append([]FieldEdge(nil), edges...)
	}
	for v, e := range g.pointers {
		out.pointers[v] = e
	}
	for name, id := range g.Globals {
		out.Globals[name] = id
	}
	for i, f := range g.Stack {
		locals := make(map[string]ObjectID, len(f.Locals))
		for name, id := range f.Locals {
			locals[name] = id
		}
		out.Stack[i] = Frame{Function: f.Function, Locals: locals, Return: f.Return}
	}
	return out
}

// MustObject is like Object but panics if the object does not exist.
func (g *Graph) MustObject(id ObjectID) *Object {
	o := g.objects[id]
	if o == nil {
		panic(fmt.Sprintf("object %s not in graph", id))
	}
	return o
}
