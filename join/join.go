// Package join merges two symbolic memory graphs reached at the same program
// point into one graph that over-approximates both.
//
// The join walks both inputs in lock-step, starting at the variables, and
// builds the destination graph on the way. Two node mappings record which
// destination element every input element has been unified into; they are
// consulted before recursing, so the walk terminates on cyclic structures.
// While walking, the join composes a Status describing how the result relates
// to its inputs in precision.
//
// A join either succeeds (Result.Defined) or reports that the inputs must be
// kept apart. The error return of Joiner.Join is reserved for violations of
// the graph model's invariants, which indicate a bug in the caller or in this
// package.
package join

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"honnef.co/go/shape/abstraction"
	"honnef.co/go/shape/smg"
)

// Options configures a Joiner.
type Options struct {
	// Verify runs smg.Check on the destination graph after each step.
	Verify bool
	// ExecuteCandidates enables the discovery of list segments that reconcile
	// fields which could not be joined directly.
	ExecuteCandidates bool
	// Abstract runs abstraction.Find on the joined graph and folds the chains
	// it reports.
	Abstract    bool
	Abstraction abstraction.Options
	// Logger receives debug output. If nil, nothing is logged.
	Logger *zap.Logger
	// MergeContext combines the contexts of the two input states. If nil, the
	// context of the left state is used.
	MergeContext func(a, b any) any
}

// DefaultOptions are the options used when no configuration is present.
var DefaultOptions = Options{
	ExecuteCandidates: true,
	Abstraction:       abstraction.DefaultOptions,
}

// A State is a heap graph together with analysis-specific data that the join
// passes through without interpreting it.
type State struct {
	Graph   *smg.Graph
	Context any
}

// Result is the outcome of a join.
type Result struct {
	// Defined reports whether the inputs could be joined. If it is false, the
	// caller must keep both inputs.
	Defined bool
	Status  Status
	State   *State
	// Candidates lists the segments that were discovered while joining and
	// folded into the result.
	Candidates []Candidate
	// Abstracted lists the chains folded after the join.
	Abstracted []abstraction.Template
	// Reason explains why the join is not defined.
	Reason string
}

// An InvariantError reports that a graph violated an invariant of the memory
// model.
type InvariantError struct {
	// Step is the join step after which the violation was detected.
	Step string
	Err  error
}

func (e *InvariantError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("invariant violated: %v", e.Err)
	}
	return fmt.Sprintf("invariant violated after %s: %v", e.Step, e.Err)
}

func (e *InvariantError) Unwrap() error { return e.Err }

func invariantf(format string, args ...any) {
	panic(&InvariantError{Err: errors.Errorf(format, args...)})
}

// A Joiner joins states. It holds no per-join data and may be used
// concurrently.
type Joiner struct {
	opts Options
	log  *zap.Logger
}

// New returns a Joiner using opts.
func New(opts Options) *Joiner {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Joiner{opts: opts, log: log}
}

// joiner holds the state of a single join.
type joiner struct {
	opts Options
	log  *zap.Logger

	in1, in2 *smg.Graph
	dest     *smg.Graph
	m1, m2   *NodeMapping
	levels   *LevelMapping

	candidates []Candidate
	// done records root pairs whose sub-graphs have been joined.
	done map[[2]smg.ObjectID]bool
}

// Join joins a and b. Neither input is modified.
func (jn *Joiner) Join(a, b *State) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*InvariantError)
			if !ok {
				panic(r)
			}
			res, err = Result{}, ie
		}
	}()

	j := &joiner{
		opts:   jn.opts,
		log:    jn.log,
		in1:    a.Graph.Copy(),
		in2:    b.Graph.Copy(),
		dest:   smg.New(),
		m1:     NewNodeMapping(),
		m2:     NewNodeMapping(),
		levels: NewLevelMapping(),
		done:   map[[2]smg.ObjectID]bool{},
	}
	obj1, val1 := j.in1.Bounds()
	obj2, val2 := j.in2.Bounds()
	if obj2 > obj1 {
		obj1 = obj2
	}
	if val2 > val1 {
		val1 = val2
	}
	j.dest.Reserve(obj1, val1)
	j.verifyInput("copying the left input", j.in1)
	j.verifyInput("copying the right input", j.in2)

	st, reason := j.joinStates()
	if reason != "" {
		j.log.Debug("states not joinable", zap.String("reason", reason))
		return Result{Reason: reason}, nil
	}

	for _, c := range j.candidates {
		root := c.Template.Root()
		if !j.dest.HasObject(root) {
			continue
		}
		j.dest.AddField(smg.FieldEdge{Object: root, Offset: c.Template.Next, Size: c.Template.NextSize, Value: smg.Zero})
		if err := abstraction.Execute(j.dest, c.Template); err != nil {
			reason := fmt.Sprintf("could not fold %s: %v", &c.Template, err)
			j.log.Debug("states not joinable", zap.String("reason", reason))
			return Result{Reason: reason}, nil
		}
		j.log.Debug("folded candidate", zap.Stringer("value", c.Value), zap.Stringer("template", &c.Template))
		res.Candidates = append(res.Candidates, c)
		j.verify("candidate execution")
	}

	if j.opts.Abstract {
		res.Abstracted = j.abstract()
	}

	j.dest.Collect()
	j.verify("join")

	ctx := a.Context
	if j.opts.MergeContext != nil {
		ctx = j.opts.MergeContext(a.Context, b.Context)
	}
	res.Defined = true
	res.Status = st
	res.State = &State{Graph: j.dest, Context: ctx}
	return res, nil
}

// joinStates mirrors the variables of both inputs into the destination graph
// and joins the sub-graphs below them. It returns a non-empty reason if the
// inputs cannot be joined.
func (j *joiner) joinStates() (Status, string) {
	st := Equal

	names := append(j.in1.GlobalNames(), j.in2.GlobalNames()...)
	slices.Sort(names)
	names = slices.Compact(names)

	var pairs [][3]smg.ObjectID
	for _, name := range names {
		o1, ok1 := j.in1.Globals[name]
		o2, ok2 := j.in2.Globals[name]
		if !ok1 || !ok2 {
			return st, fmt.Sprintf("global %q is not declared in both states", name)
		}
		d, nst, ok := j.mirror(st, o1, o2)
		if !ok {
			return st, fmt.Sprintf("global %q: objects do not match", name)
		}
		st = nst
		j.dest.Globals[name] = d
		pairs = append(pairs, [3]smg.ObjectID{o1, o2, d})
	}

	if len(j.in1.Stack) != len(j.in2.Stack) {
		return st, fmt.Sprintf("stack depths differ: %d and %d", len(j.in1.Stack), len(j.in2.Stack))
	}
	for i := range j.in1.Stack {
		f1, f2 := &j.in1.Stack[i], &j.in2.Stack[i]
		if f1.Function != f2.Function {
			return st, fmt.Sprintf("frame %d: functions %q and %q differ", i, f1.Function, f2.Function)
		}
		locals := f1.LocalNames()
		if !slices.Equal(locals, f2.LocalNames()) {
			return st, fmt.Sprintf("frame %d (%s): locals differ", i, f1.Function)
		}
		if f1.HasReturn() != f2.HasReturn() {
			return st, fmt.Sprintf("frame %d (%s): return values differ", i, f1.Function)
		}

		df := j.dest.PushFrame(f1.Function)
		for _, name := range locals {
			d, nst, ok := j.mirror(st, f1.Locals[name], f2.Locals[name])
			if !ok {
				return st, fmt.Sprintf("local %q of %s: objects do not match", name, f1.Function)
			}
			st = nst
			df.Locals[name] = d
			pairs = append(pairs, [3]smg.ObjectID{f1.Locals[name], f2.Locals[name], d})
		}
		if f1.HasReturn() {
			d, nst, ok := j.mirror(st, f1.Return, f2.Return)
			if !ok {
				return st, fmt.Sprintf("return value of %s: objects do not match", f1.Function)
			}
			st = nst
			df.Return = d
			pairs = append(pairs, [3]smg.ObjectID{f1.Return, f2.Return, d})
		}
	}
	j.verify("variable mirroring")

	for _, p := range pairs {
		o1, o2, d := p[0], p[1], p[2]
		if j.done[[2]smg.ObjectID{o1, o2}] {
			continue
		}
		j.done[[2]smg.ObjectID{o1, o2}] = true
		nst, out := j.joinSubGraphs(st, o1, o2, d, 0, o1 == o2 && d == o1)
		if out != defined {
			return st, fmt.Sprintf("sub-graphs of %s and %s cannot be joined", o1, o2)
		}
		st = nst
	}
	j.verify("sub-graph join")
	return st, ""
}

// mirror creates or finds the destination object for the variable objects o1
// and o2 and maps both to it. It does not join their fields.
func (j *joiner) mirror(st Status, o1, o2 smg.ObjectID) (smg.ObjectID, Status, bool) {
	st, res := j.matchObjects(st, o1, o2)
	if res != matchOK {
		return 0, st, false
	}
	d1, ok1 := j.m1.Object(o1)
	d2, ok2 := j.m2.Object(o2)
	switch {
	case ok1 && ok2:
		return d1, st, true
	case ok1:
		j.m2.MapObject(o2, d1)
		return d1, st, true
	case ok2:
		j.m1.MapObject(o1, d2)
		return d2, st, true
	}

	a, b := j.in1.MustObject(o1), j.in2.MustObject(o2)
	level, ok := j.levels.Map(a.Level, b.Level)
	if !ok {
		return 0, st, false
	}
	d := j.newObject(a, b, level)
	j.m1.MapObject(o1, d)
	j.m2.MapObject(o2, d)
	return d, st, true
}

// abstract folds the chains that abstraction.Find reports in the destination
// graph, longest first, until none are left.
func (j *joiner) abstract() []abstraction.Template {
	var out []abstraction.Template
	for limit := len(j.dest.Objects()); limit > 0; limit-- {
		ts := abstraction.Find(j.dest, j.opts.Abstraction)
		if len(ts) == 0 {
			break
		}
		t := ts[0]
		if err := abstraction.Execute(j.dest, t); err != nil {
			j.log.Debug("could not fold chain", zap.Stringer("template", &t), zap.Error(err))
			break
		}
		j.log.Debug("folded chain", zap.Stringer("template", &t))
		out = append(out, t)
		j.verify("abstraction")
	}
	return out
}

// verify checks all graphs of the join if verification is enabled. Field
// alignment modifies the inputs, so they are checked too.
func (j *joiner) verify(step string) {
	if !j.opts.Verify {
		return
	}
	j.verifyInput(step, j.in1)
	j.verifyInput(step, j.in2)
	if err := smg.Check(j.dest); err != nil {
		panic(&InvariantError{Step: step, Err: errors.Wrap(err, "destination graph")})
	}
}

func (j *joiner) verifyInput(step string, g *smg.Graph) {
	if !j.opts.Verify {
		return
	}
	if err := smg.Check(g); err != nil {
		panic(&InvariantError{Step: step, Err: errors.Wrap(err, "input graph")})
	}
}
