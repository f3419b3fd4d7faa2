package join

import (
	"fmt"

	"honnef.co/go/shape/smg"
)

// mapping maps elements of an input graph to elements of the destination
// graph. Several inputs may share an image.
type mapping[K comparable] struct {
	fwd  map[K]K
	back map[K][]K
}

func newMapping[K comparable](pairs ...K) mapping[K] {
	m := mapping[K]{fwd: map[K]K{}, back: map[K][]K{}}
	for i := 0; i+1 < len(pairs); i += 2 {
		m.set(pairs[i], pairs[i+1])
	}
	return m
}

func (m mapping[K]) get(src K) (K, bool) {
	dst, ok := m.fwd[src]
	return dst, ok
}

func (m mapping[K]) set(src, dst K) {
	if old, ok := m.fwd[src]; ok {
		if old == dst {
			return
		}
		invariantf("%v already mapped to %v, cannot remap to %v", src, old, dst)
	}
	m.fwd[src] = dst
	m.back[dst] = append(m.back[dst], src)
}

// imageOfOther reports whether dst is the image of an element other than src.
func (m mapping[K]) imageOfOther(dst, src K) bool {
	for _, s := range m.back[dst] {
		if s != src {
			return true
		}
	}
	return false
}

// A NodeMapping records which destination object or value each object or
// value of one input graph has been unified into. Once an element is mapped,
// its image never changes.
type NodeMapping struct {
	objects mapping[smg.ObjectID]
	values  mapping[smg.Value]
}

// NewNodeMapping returns a mapping in which only the null object and the zero
// value are mapped, to themselves.
func NewNodeMapping() *NodeMapping {
	return &NodeMapping{
		objects: newMapping(smg.NullObject, smg.NullObject),
		values:  newMapping(smg.Zero, smg.Zero),
	}
}

// Object returns the image of an object.
func (m *NodeMapping) Object(id smg.ObjectID) (smg.ObjectID, bool) { return m.objects.get(id) }

// Value returns the image of a value.
func (m *NodeMapping) Value(v smg.Value) (smg.Value, bool) { return m.values.get(v) }

// MapObject records that src maps to dst. Remapping src to a different image
// is an invariant violation.
func (m *NodeMapping) MapObject(src, dst smg.ObjectID) { m.objects.set(src, dst) }

// MapValue records that src maps to dst.
func (m *NodeMapping) MapValue(src, dst smg.Value) { m.values.set(src, dst) }

// A LevelMapping maps pairs of nesting levels of the two inputs to a level of
// the destination. It only accepts pairs that preserve the relative order of
// all pairs recorded so far.
type LevelMapping struct {
	pairs map[[2]int]int
}

// NewLevelMapping returns a mapping containing (0, 0) -> 0.
func NewLevelMapping() *LevelMapping {
	return &LevelMapping{pairs: map[[2]int]int{{0, 0}: 0}}
}

func sign(x int) int {
	switch {
	case x < 0:
		return -1
	case x > 0:
		return 1
	default:
		return 0
	}
}

// Map returns the destination level of (l1, l2), extending the mapping if
// necessary. It reports false if l1 and l2 relate differently to the levels of
// some recorded pair, in which case the mapping is not extended.
func (lm *LevelMapping) Map(l1, l2 int) (int, bool) {
	if d, ok := lm.pairs[[2]int{l1, l2}]; ok {
		return d, true
	}
	for p := range lm.pairs {
		if sign(l1-p[0]) != sign(l2-p[1]) {
			return 0, false
		}
	}
	d := l1
	if l2 > d {
		d = l2
	}
	lm.pairs[[2]int{l1, l2}] = d
	return d, true
}

func (lm *LevelMapping) String() string { return fmt.Sprint(lm.pairs) }
