package join

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"honnef.co/go/shape/smg"
	"honnef.co/go/shape/smg/smgdesc"
)

func testOptions() Options {
	opts := DefaultOptions
	opts.Verify = true
	return opts
}

// expectations parses "key: value" lines of an archive comment. Lines without
// a colon are prose.
func expectations(comment []byte) map[string]string {
	out := map[string]string{}
	sc := bufio.NewScanner(bytes.NewReader(comment))
	for sc.Scan() {
		k, v, ok := strings.Cut(sc.Text(), ":")
		if !ok || strings.ContainsRune(k, ' ') {
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	return out
}

func TestFixtures(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		file := file
		t.Run(strings.TrimSuffix(filepath.Base(file), ".txtar"), func(t *testing.T) {
			ar, err := txtar.ParseFile(file)
			require.NoError(t, err)
			parts := map[string]string{}
			for _, f := range ar.Files {
				parts[f.Name] = string(f.Data)
			}
			want := expectations(ar.Comment)

			left, err := smgdesc.Parse(parts["left.toml"])
			require.NoError(t, err, "left.toml")
			right, err := smgdesc.Parse(parts["right.toml"])
			require.NoError(t, err, "right.toml")

			opts := testOptions()
			opts.Abstract = want["abstract"] == "true"
			j := New(opts)

			var wantStatus Status
			if s, ok := want["status"]; ok {
				wantStatus, err = ParseStatus(s)
				require.NoError(t, err)
			}

			for _, swapped := range []bool{false, true} {
				a, b := left.Graph, right.Graph
				expected := wantStatus
				if swapped {
					a, b = b, a
					expected = expected.Swap()
				}
				res, err := j.Join(&State{Graph: a}, &State{Graph: b})
				require.NoError(t, err)
				require.Equal(t, want["defined"] == "true", res.Defined, "swapped=%t: %s", swapped, res.Reason)
				if !res.Defined {
					assert.NotEmpty(t, res.Reason)
					continue
				}
				assert.Equal(t, expected, res.Status, "swapped=%t", swapped)
				require.NoError(t, smg.Check(res.State.Graph))

				if src, ok := parts["want.toml"]; ok {
					exp, err := smgdesc.Parse(src)
					require.NoError(t, err, "want.toml")
					assert.True(t, smg.Isomorphic(res.State.Graph, exp.Graph),
						"swapped=%t\ngot:\n%s\nwant:\n%s", swapped, res.State.Graph, exp.Graph)
				}
			}
		})
	}
}

func TestJoinDoesNotModifyInputs(t *testing.T) {
	left := smgdesc.MustParse(listOf(2))
	right := smgdesc.MustParse(listOf(3))
	before1, before2 := left.Graph.String(), right.Graph.String()

	res, err := New(testOptions()).Join(&State{Graph: left.Graph}, &State{Graph: right.Graph})
	require.NoError(t, err)
	require.True(t, res.Defined, res.Reason)
	assert.Equal(t, before1, left.Graph.String())
	assert.Equal(t, before2, right.Graph.String())
}

func TestReflexivity(t *testing.T) {
	for n := 1; n <= 4; n++ {
		g := smgdesc.MustParse(listOf(n))
		res, err := New(testOptions()).Join(&State{Graph: g.Graph}, &State{Graph: g.Graph.Copy()})
		require.NoError(t, err)
		require.True(t, res.Defined, res.Reason)
		assert.Equal(t, Equal, res.Status, "n=%d", n)
		assert.True(t, smg.Isomorphic(g.Graph, res.State.Graph), "n=%d\n%s", n, res.State.Graph)
		assert.Empty(t, res.Candidates)
	}
}

func TestDeterminism(t *testing.T) {
	left := smgdesc.MustParse(listOf(2))
	right := smgdesc.MustParse(listOf(4))
	j := New(testOptions())

	r1, err := j.Join(&State{Graph: left.Graph}, &State{Graph: right.Graph})
	require.NoError(t, err)
	r2, err := j.Join(&State{Graph: left.Graph}, &State{Graph: right.Graph})
	require.NoError(t, err)

	require.True(t, r1.Defined, r1.Reason)
	require.True(t, r2.Defined, r2.Reason)
	assert.Equal(t, r1.Status, r2.Status)
	assert.True(t, smg.Isomorphic(r1.State.Graph, r2.State.Graph))
	assert.Equal(t, r1.State.Graph.String(), r2.State.Graph.String())
}

func TestCycleTermination(t *testing.T) {
	const src = `
[[object]]
name = "a"
size = 64
fields = [{offset = 0, size = 64, target = "b"}]

[[object]]
name = "b"
size = 64
fields = [{offset = 0, size = 64, target = "a"}]

[globals]
x = "a"
`
	g := smgdesc.MustParse(src)
	res, err := New(testOptions()).Join(&State{Graph: g.Graph}, &State{Graph: g.Graph.Copy()})
	require.NoError(t, err)
	require.True(t, res.Defined, res.Reason)

	d := res.State.Graph
	x := d.Globals["x"]
	next := func(obj smg.ObjectID) smg.ObjectID {
		e, ok := d.Field(obj, 0, 64)
		require.True(t, ok)
		pt, ok := d.Pointer(e.Value)
		require.True(t, ok)
		return pt.Object
	}
	b := next(x)
	assert.NotEqual(t, x, b)
	assert.Equal(t, x, next(b), "back pointer must resolve to the global's object")
	assert.Len(t, d.Objects(), 3)
}

func TestScenarioB(t *testing.T) {
	left := smgdesc.MustParse(listOf(2))
	right := smgdesc.MustParse(listOf(2))

	opts := testOptions()
	opts.Abstract = true
	res, err := New(opts).Join(&State{Graph: left.Graph}, &State{Graph: right.Graph})
	require.NoError(t, err)
	require.True(t, res.Defined, res.Reason)
	assert.Equal(t, Equal, res.Status)
	require.Len(t, res.Abstracted, 1)

	d := res.State.Graph
	head, ok := d.Field(d.Globals["list"], 0, 64)
	require.True(t, ok)
	pt, ok := d.Pointer(head.Value)
	require.True(t, ok)
	seg := d.Object(pt.Object)
	assert.Equal(t, smg.SLL{MinLength: 2, Head: 0, Next: 0}, seg.Shape)
	assert.Equal(t, smg.TargetFirst, pt.Target)

	// Only the list variable and the segment are left, and nothing points to
	// a concrete node anymore.
	assert.Len(t, d.Objects(), 3)
	for _, p := range d.Pointers() {
		if p.Object == smg.NullObject {
			continue
		}
		assert.Equal(t, seg.ID, p.Object)
	}
}

func TestCandidates(t *testing.T) {
	left := smgdesc.MustParse(listOf(2))
	right := smgdesc.MustParse(listOf(3))

	res, err := New(testOptions()).Join(&State{Graph: left.Graph}, &State{Graph: right.Graph})
	require.NoError(t, err)
	require.True(t, res.Defined, res.Reason)
	assert.Equal(t, Incomparable, res.Status)
	require.Len(t, res.Candidates, 1)

	c := res.Candidates[0]
	assert.Equal(t, smg.KindSLL, c.Template.Kind)
	assert.Equal(t, 1, c.Template.MinLength)
	pt, ok := res.State.Graph.Pointer(c.Value)
	require.True(t, ok, "candidate value %s is not an address", c.Value)
	assert.Equal(t, c.Template.Root(), pt.Object)

	opts := testOptions()
	opts.ExecuteCandidates = false
	res, err = New(opts).Join(&State{Graph: left.Graph}, &State{Graph: right.Graph})
	require.NoError(t, err)
	assert.False(t, res.Defined)
}

func TestVariableStaysConcrete(t *testing.T) {
	empty := smgdesc.MustParse(`
[[object]]
name = "list"
size = 64
fields = [{offset = 0, size = 64, value = "zero"}]

[globals]
list = "list"
`)
	full := smgdesc.MustParse(listOf(2))

	for _, swapped := range []bool{false, true} {
		a, b := empty.Graph, full.Graph
		if swapped {
			a, b = b, a
		}
		res, err := New(testOptions()).Join(&State{Graph: a}, &State{Graph: b})
		require.NoError(t, err)
		require.True(t, res.Defined, res.Reason)
		assert.Equal(t, Incomparable, res.Status)
		assert.Empty(t, res.Candidates)

		d := res.State.Graph
		list := d.Object(d.Globals["list"])
		assert.Equal(t, smg.KindRegion, list.Kind(), "swapped=%t: the variable was folded", swapped)

		head, ok := d.Field(list.ID, 0, 64)
		require.True(t, ok)
		pt, ok := d.Pointer(head.Value)
		require.True(t, ok)
		assert.Equal(t, smg.TargetFirst, pt.Target)
		assert.Equal(t, smg.SLL{MinLength: 0, Head: 0, Next: 0}, d.Object(pt.Object).Shape)
		assert.Len(t, d.Objects(), 3)
	}

	opts := testOptions()
	opts.ExecuteCandidates = false
	res, err := New(opts).Join(&State{Graph: empty.Graph}, &State{Graph: full.Graph})
	require.NoError(t, err)
	assert.False(t, res.Defined)
}

func TestMismatchedGlobals(t *testing.T) {
	left := smgdesc.MustParse(`
[[object]]
name = "x"
size = 32

[[object]]
name = "y"
size = 32

[globals]
x = "x"
extra = "y"
`)
	right := smgdesc.MustParse(`
[[object]]
name = "x"
size = 32

[globals]
x = "x"
`)
	res, err := New(testOptions()).Join(&State{Graph: left.Graph}, &State{Graph: right.Graph})
	require.NoError(t, err)
	assert.False(t, res.Defined)
	assert.Contains(t, res.Reason, "extra")
	assert.Nil(t, res.State)
}

func TestInvariantError(t *testing.T) {
	g := smgdesc.MustParse(listOf(1))
	bad := g.Graph.Copy()
	// A field reaching past the end of its object.
	bad.AddField(smg.FieldEdge{Object: bad.Globals["list"], Offset: 32, Size: 64, Value: bad.NewValue()})

	res, err := New(testOptions()).Join(&State{Graph: g.Graph}, &State{Graph: bad})
	require.Error(t, err)
	assert.False(t, res.Defined)
	var ie *InvariantError
	require.True(t, errors.As(err, &ie))
	assert.Contains(t, ie.Step, "right input")

	// Without verification the malformed field goes unnoticed.
	opts := testOptions()
	opts.Verify = false
	_, err = New(opts).Join(&State{Graph: g.Graph}, &State{Graph: bad})
	assert.NoError(t, err)
}

func TestMergeContext(t *testing.T) {
	g := smgdesc.MustParse(listOf(1))
	opts := testOptions()

	res, err := New(opts).Join(&State{Graph: g.Graph, Context: "a"}, &State{Graph: g.Graph, Context: "b"})
	require.NoError(t, err)
	assert.Equal(t, "a", res.State.Context)

	opts.MergeContext = func(a, b any) any { return a.(string) + b.(string) }
	res, err = New(opts).Join(&State{Graph: g.Graph, Context: "a"}, &State{Graph: g.Graph, Context: "b"})
	require.NoError(t, err)
	assert.Equal(t, "ab", res.State.Context)
}

// listOf describes a global list of n nodes of 64 bits, linked at offset 0.
func listOf(n int) string {
	var sb strings.Builder
	sb.WriteString("[globals]\nlist = \"list\"\n\n")
	sb.WriteString("[[object]]\nname = \"list\"\nsize = 64\nfields = [{offset = 0, size = 64, target = \"n1\"}]\n\n")
	for i := 1; i <= n; i++ {
		next := `value = "zero"`
		if i < n {
			next = fmt.Sprintf("target = \"n%d\"", i+1)
		}
		fmt.Fprintf(&sb, "[[object]]\nname = \"n%d\"\nsize = 64\nfields = [{offset = 0, size = 64, %s}]\n\n", i, next)
	}
	return sb.String()
}
