package join

import (
	"fmt"

	"honnef.co/go/shape/lattice"
)

// Status describes how the result of a join relates to its two inputs in
// terms of precision. Every status describes a sound result; they only differ
// in how tightly the result bounds the inputs.
type Status uint8

const (
	// Equal: the result is exactly as precise as both inputs.
	Equal Status = iota
	// LeftEntails: the left input already covers the right one. The result is
	// as precise as the left input and strictly generalizes the right input.
	LeftEntails
	// RightEntails is the mirror of LeftEntails.
	RightEntails
	// Incomparable: the result strictly generalizes both inputs, or the inputs
	// are unordered.
	Incomparable
)

// Statuses lists all statuses in ascending order.
var Statuses = []Status{Equal, LeftEntails, RightEntails, Incomparable}

var compose = lattice.JoinTable(Equal, Incomparable, map[[2]Status]Status{
	{LeftEntails, RightEntails}: Incomparable,
})

// UpdateWith composes s with the status of a sub-decision. Equal is the
// identity, Incomparable is absorbing, and LeftEntails composed with
// RightEntails yields Incomparable.
func (s Status) UpdateWith(o Status) Status { return compose(s, o) }

// Leq reports whether s is at most as imprecise as o.
func (s Status) Leq(o Status) bool { return lattice.Leq(compose, s, o) }

// StatusDot renders the order of the statuses as a Graphviz digraph, with
// edges pointing from a status to the ones above it.
func StatusDot() string { return lattice.Dot(compose, Statuses) }

// Swap returns the status with the roles of the inputs exchanged.
func (s Status) Swap() Status {
	switch s {
	case LeftEntails:
		return RightEntails
	case RightEntails:
		return LeftEntails
	default:
		return s
	}
}

func (s Status) String() string {
	switch s {
	case Equal:
		return "equal"
	case LeftEntails:
		return "left-entails"
	case RightEntails:
		return "right-entails"
	case Incomparable:
		return "incomparable"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown join status %q", s)
}
