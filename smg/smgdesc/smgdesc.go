// Package smgdesc reads heap graphs from a TOML description.
//
// A description lists named objects with their fields, the pointer values
// they hold, and the variables bound to them:
//
//	[[object]]
//	name = "n1"
//	size = 64
//	fields = [{offset = 0, size = 64, target = "n2"}]
//
//	[[object]]
//	name = "n2"
//	size = 64
//	fields = [{offset = 0, size = 64, value = "zero"}]
//
//	[globals]
//	list = "head"
//
// A field holds either a named value, or, with target, the address of another
// object. Values named "zero" or "null" denote smg.Zero. Target addresses
// default to offset 0 and the region specifier; other addresses are declared
// in [[pointer]] tables. The null object is always present under the name
// "null".
package smgdesc

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"honnef.co/go/shape/smg"
)

// Description is the decoded form of a heap graph description.
type Description struct {
	Objects  []Object          `toml:"object"`
	Pointers []Pointer         `toml:"pointer"`
	Globals  map[string]string `toml:"globals"`
	Frames   []Frame           `toml:"frame"`
}

type Object struct {
	Name  string `toml:"name"`
	Size  int64  `toml:"size"`
	Valid *bool  `toml:"valid"`
	Level int    `toml:"level"`
	// Kind is one of region (the default), sll, dll, optional and generic.
	Kind      string  `toml:"kind"`
	MinLength int     `toml:"min_length"`
	Head      int64   `toml:"head"`
	Next      int64   `toml:"next"`
	Prev      int64   `toml:"prev"`
	Template  string  `toml:"template"`
	Fields    []Field `toml:"fields"`
}

type Field struct {
	Offset int64  `toml:"offset"`
	Size   int64  `toml:"size"`
	Value  string `toml:"value"`
	Target string `toml:"target"`
}

type Pointer struct {
	Value  string `toml:"value"`
	Target string `toml:"target"`
	Offset int64  `toml:"offset"`
	Spec   string `toml:"spec"`
}

type Frame struct {
	Function string            `toml:"function"`
	Locals   map[string]string `toml:"locals"`
	Return   string            `toml:"return"`
}

// Graph is a graph built from a description, together with the handles of its
// named elements.
type Graph struct {
	*smg.Graph
	objects map[string]smg.ObjectID
	values  map[string]smg.Value
}

// Obj returns the handle of the named object. It panics if there is no such
// object.
func (g *Graph) Obj(name string) smg.ObjectID {
	id, ok := g.objects[name]
	if !ok {
		panic(fmt.Sprintf("no object named %q", name))
	}
	return id
}

// Val returns the handle of the named value. Addresses created by a field's
// target are named "&" followed by the object's name.
func (g *Graph) Val(name string) smg.Value {
	v, ok := g.values[name]
	if !ok {
		panic(fmt.Sprintf("no value named %q", name))
	}
	return v
}

// Names maps object handles back to their names.
func (g *Graph) Names() map[smg.ObjectID]string {
	out := make(map[smg.ObjectID]string, len(g.objects))
	for name, id := range g.objects {
		out[id] = name
	}
	return out
}

// Parse decodes and builds a description.
func Parse(src string) (*Graph, error) {
	var d Description
	if _, err := toml.Decode(src, &d); err != nil {
		return nil, err
	}
	return Build(&d)
}

// MustParse is like Parse but panics on error. It is meant for tests.
func MustParse(src string) *Graph {
	g, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return g
}

// Build creates the graph described by d. Objects and values are allocated in
// the order in which they are declared.
func Build(d *Description) (*Graph, error) {
	g := &Graph{
		Graph:   smg.New(),
		objects: map[string]smg.ObjectID{"null": smg.NullObject},
		values:  map[string]smg.Value{"zero": smg.Zero, "null": smg.Zero},
	}

	for _, od := range d.Objects {
		if od.Name == "" {
			return nil, fmt.Errorf("object without a name")
		}
		if _, ok := g.objects[od.Name]; ok {
			return nil, fmt.Errorf("object %q declared twice", od.Name)
		}
		shape, err := od.shape()
		if err != nil {
			return nil, fmt.Errorf("object %q: %v", od.Name, err)
		}
		valid := true
		if od.Valid != nil {
			valid = *od.Valid
		}
		g.objects[od.Name] = g.AddObject(smg.Object{
			Size:  od.Size,
			Valid: valid,
			Level: od.Level,
			Label: od.Name,
			Shape: shape,
		})
	}

	for _, pd := range d.Pointers {
		if pd.Value == "" {
			return nil, fmt.Errorf("pointer without a value")
		}
		if _, ok := g.values[pd.Value]; ok {
			return nil, fmt.Errorf("value %q declared twice", pd.Value)
		}
		obj, ok := g.objects[pd.Target]
		if !ok {
			return nil, fmt.Errorf("pointer %q: unknown object %q", pd.Value, pd.Target)
		}
		spec := smg.TargetRegion
		if pd.Spec != "" {
			var err error
			spec, err = smg.ParseTargetSpec(pd.Spec)
			if err != nil {
				return nil, fmt.Errorf("pointer %q: %v", pd.Value, err)
			}
		}
		v := g.NewValue()
		g.AddPointer(smg.PointerEdge{Value: v, Object: obj, Offset: pd.Offset, Target: spec})
		g.values[pd.Value] = v
	}

	for _, od := range d.Objects {
		id := g.objects[od.Name]
		for _, fd := range od.Fields {
			v, err := g.fieldValue(fd)
			if err != nil {
				return nil, fmt.Errorf("object %q, field at %d: %v", od.Name, fd.Offset, err)
			}
			if _, ok := g.Field(id, fd.Offset, fd.Size); ok {
				return nil, fmt.Errorf("object %q: duplicate field at %d", od.Name, fd.Offset)
			}
			g.AddField(smg.FieldEdge{Object: id, Offset: fd.Offset, Size: fd.Size, Value: v})
		}
	}

	for name, obj := range d.Globals {
		id, err := g.root(obj)
		if err != nil {
			return nil, fmt.Errorf("global %q: %v", name, err)
		}
		g.Globals[name] = id
	}
	for _, fd := range d.Frames {
		f := g.PushFrame(fd.Function)
		for name, obj := range fd.Locals {
			id, err := g.root(obj)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %v", fd.Function, name, err)
			}
			f.Locals[name] = id
		}
		if fd.Return != "" {
			id, err := g.root(fd.Return)
			if err != nil {
				return nil, fmt.Errorf("return value of %s: %v", fd.Function, err)
			}
			f.Return = id
		}
	}

	if err := smg.Check(g.Graph); err != nil {
		return nil, err
	}
	return g, nil
}

func (od *Object) shape() (smg.Shape, error) {
	switch od.Kind {
	case "", "region":
		return smg.Region{}, nil
	case "sll":
		return smg.SLL{MinLength: od.MinLength, Head: od.Head, Next: od.Next}, nil
	case "dll":
		return smg.DLL{MinLength: od.MinLength, Head: od.Head, Next: od.Next, Prev: od.Prev}, nil
	case "optional":
		return smg.Optional{}, nil
	case "generic":
		return smg.Generic{Template: od.Template, MinLength: od.MinLength}, nil
	default:
		return nil, fmt.Errorf("unknown kind %q", od.Kind)
	}
}

func (g *Graph) fieldValue(fd Field) (smg.Value, error) {
	switch {
	case fd.Value != "" && fd.Target != "":
		return 0, fmt.Errorf("field has both a value and a target")
	case fd.Target != "":
		obj, ok := g.objects[fd.Target]
		if !ok {
			return 0, fmt.Errorf("unknown object %q", fd.Target)
		}
		if obj == smg.NullObject {
			return smg.Zero, nil
		}
		name := "&" + fd.Target
		if v, ok := g.values[name]; ok {
			return v, nil
		}
		v := g.NewValue()
		g.AddPointer(smg.PointerEdge{Value: v, Object: obj})
		g.values[name] = v
		return v, nil
	case fd.Value != "":
		if v, ok := g.values[fd.Value]; ok {
			return v, nil
		}
		v := g.NewValue()
		g.values[fd.Value] = v
		return v, nil
	default:
		return 0, fmt.Errorf("field has neither a value nor a target")
	}
}

func (g *Graph) root(name string) (smg.ObjectID, error) {
	id, ok := g.objects[name]
	if !ok {
		return 0, fmt.Errorf("unknown object %q", name)
	}
	if id == smg.NullObject {
		return 0, fmt.Errorf("variables cannot be bound to null")
	}
	return id, nil
}
