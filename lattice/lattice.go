// Package lattice provides helpers for small, finite join-semilattices described
// by tables.
package lattice

import (
	"fmt"
	"log"
	"strings"
)

const debugging = false

func debugf(f string, args ...any) {
	if debugging {
		log.Printf(f, args...)
	}
}

// Join defines the [∨] operation for a [join-semilattice]. It must implement a commutative, associative and
// idempotent binary operation that returns the least upper bound of two elements of S.
//
// [∨]: https://en.wikipedia.org/wiki/Join_and_meet
// [join-semilattice]: https://en.wikipedia.org/wiki/Semilattice
type Join[S comparable] func(S, S) S

// BinaryTable returns a binary operator based on the provided mapping.
// For missing pairs of values, the default value will be returned.
func BinaryTable[S comparable](default_ S, m map[[2]S]S) func(S, S) S {
	return func(a, b S) S {
		if d, ok := m[[2]S{a, b}]; ok {
			return d
		} else if d, ok := m[[2]S{b, a}]; ok {
			return d
		} else {
			return default_
		}
	}
}

// JoinTable returns a [Join] function for a bounded lattice based on the provided mapping. Pairs involving bottom,
// pairs involving top and pairs of identical elements are handled implicitly; all other missing pairs join to top.
func JoinTable[S comparable](bottom, top S, m map[[2]S]S) Join[S] {
	table := BinaryTable(top, m)
	return func(a, b S) S {
		var out S
		switch {
		case a == top || b == top:
			out = top
		case a == bottom:
			out = b
		case b == bottom:
			out = a
		case a == b:
			out = a
		default:
			out = table(a, b)
		}
		debugf("join(%v, %v) = %v", a, b, out)
		return out
	}
}

// Leq reports whether x ≤ y in the order induced by fn, that is whether x ∨ y = y.
func Leq[S comparable](fn Join[S], x, y S) bool {
	return fn(x, y) == y
}

// CheckLaws verifies that fn is commutative, associative and idempotent over states, and that bottom is its
// identity. It returns a description of the first violated law.
func CheckLaws[S comparable](fn Join[S], states []S, bottom S) error {
	for _, x := range states {
		if fn(x, x) != x {
			return fmt.Errorf("not idempotent: %v ∨ %v = %v", x, x, fn(x, x))
		}
		if fn(x, bottom) != x || fn(bottom, x) != x {
			return fmt.Errorf("%v is not the identity for %v", bottom, x)
		}
		for _, y := range states {
			if fn(x, y) != fn(y, x) {
				return fmt.Errorf("not commutative: %v ∨ %v = %v, %v ∨ %v = %v", x, y, fn(x, y), y, x, fn(y, x))
			}
			for _, z := range states {
				if l, r := fn(fn(x, y), z), fn(x, fn(y, z)); l != r {
					return fmt.Errorf("not associative: (%v ∨ %v) ∨ %v = %v, %v ∨ (%v ∨ %v) = %v", x, y, z, l, x, y, z, r)
				}
			}
		}
	}
	return nil
}

// Dot returns a directed graph in [Graphviz] format that represents the finite join-semilattice ⟨S, ≤⟩.
// Vertices represent elements in S and edges represent the ≤ relation between elements.
// We map from ⟨S, ∨⟩ to ⟨S, ≤⟩ by computing x ∨ y for all elements in [S]², where x ≤ y iff x ∨ y == y.
//
// The resulting graph can be filtered through [tred] to compute the transitive reduction of the graph, the
// visualisation of which corresponds to the Hasse diagram of the semilattice.
//
// [Graphviz]: https://graphviz.org/
// [tred]: https://graphviz.org/docs/cli/tred/
func Dot[S comparable](fn Join[S], states []S) string {
	var sb strings.Builder
	sb.WriteString("digraph{\n")
	sb.WriteString("rankdir=\"BT\"\n")

	for i, v := range states {
		if vs, ok := any(v).(fmt.Stringer); ok {
			fmt.Fprintf(&sb, "n%d [label=%q]\n", i, vs)
		} else {
			fmt.Fprintf(&sb, "n%d [label=%q]\n", i, fmt.Sprintf("%v", v))
		}
	}

	for dx, x := range states {
		for dy, y := range states {
			if dx == dy {
				continue
			}

			if Leq(fn, x, y) {
				fmt.Fprintf(&sb, "n%d -> n%d\n", dx, dy)
			}
		}
	}

	sb.WriteString("}")
	return sb.String()
}
