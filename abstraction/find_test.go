package abstraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"honnef.co/go/shape/smg"
	"honnef.co/go/shape/smg/smgdesc"
)

// singly is a list of three nodes with a data field at offset 64. The last
// node's data differs from the others.
const singly = `
[globals]
list = "list"

[[object]]
name = "list"
size = 64
fields = [{offset = 0, size = 64, target = "n1"}]

[[object]]
name = "n1"
size = 128
fields = [{offset = 0, size = 64, target = "n2"}, {offset = 64, size = 64, value = "a"}]

[[object]]
name = "n2"
size = 128
fields = [{offset = 0, size = 64, target = "n3"}, {offset = 64, size = 64, value = "a"}]

[[object]]
name = "n3"
size = 128
fields = [{offset = 0, size = 64, value = "zero"}, {offset = 64, size = 64, value = "b"}]
`

// doubly is a list of three nodes with forward links at offset 0 and back
// links at offset 64.
const doubly = `
[globals]
list = "list"

[[object]]
name = "list"
size = 64
fields = [{offset = 0, size = 64, target = "n1"}]

[[object]]
name = "n1"
size = 128
fields = [{offset = 0, size = 64, target = "n2"}, {offset = 64, size = 64, value = "zero"}]

[[object]]
name = "n2"
size = 128
fields = [{offset = 0, size = 64, target = "n3"}, {offset = 64, size = 64, target = "n1"}]

[[object]]
name = "n3"
size = 128
fields = [{offset = 0, size = 64, value = "zero"}, {offset = 64, size = 64, target = "n2"}]
`

func TestFindSLL(t *testing.T) {
	g := smgdesc.MustParse(singly)
	ts := Find(g.Graph, DefaultOptions)
	require.Len(t, ts, 1)

	tmpl := ts[0]
	assert.Equal(t, smg.KindSLL, tmpl.Kind)
	assert.Equal(t, []smg.ObjectID{g.Obj("n1"), g.Obj("n2"), g.Obj("n3")}, tmpl.Members)
	assert.Equal(t, int64(0), tmpl.Head)
	assert.Equal(t, int64(0), tmpl.Next)
	assert.Equal(t, int64(64), tmpl.NextSize)
	assert.Equal(t, []int64{64}, tmpl.Generalized)
	assert.Empty(t, tmpl.SharedData)
	assert.Empty(t, tmpl.SharedPointers)
}

func TestFindDLL(t *testing.T) {
	g := smgdesc.MustParse(doubly)
	ts := Find(g.Graph, DefaultOptions)
	require.Len(t, ts, 1)
	assert.Equal(t, smg.KindDLL, ts[0].Kind)
	assert.Equal(t, int64(64), ts[0].Prev)
	assert.Len(t, ts[0].Members, 3)

	// Read as singly linked, the back links are foreign pointers into the
	// chain.
	opts := DefaultOptions
	opts.DLL = false
	assert.Empty(t, Find(g.Graph, opts))
}

func TestFindOptions(t *testing.T) {
	g := smgdesc.MustParse(singly)

	opts := DefaultOptions
	opts.MinLength = 4
	assert.Empty(t, Find(g.Graph, opts), "chain is too short")

	opts = DefaultOptions
	opts.SLL = false
	assert.Empty(t, Find(g.Graph, opts), "singly linked lists disabled")
}

func TestFindSharedNode(t *testing.T) {
	// x points into the middle of the list, so n1 cannot be folded with the
	// rest.
	g := smgdesc.MustParse(singly + `
[[object]]
name = "x"
size = 64
fields = [{offset = 0, size = 64, target = "n2"}]
`)
	g.Globals["x"] = g.Obj("x")

	ts := Find(g.Graph, DefaultOptions)
	require.Len(t, ts, 1)
	assert.Equal(t, []smg.ObjectID{g.Obj("n2"), g.Obj("n3")}, ts[0].Members)
}

func TestFindLongestFirst(t *testing.T) {
	g := smgdesc.MustParse(`
[globals]
a = "a"
b = "b"

[[object]]
name = "a"
size = 64
fields = [{offset = 0, size = 64, target = "a1"}]

[[object]]
name = "a1"
size = 64
fields = [{offset = 0, size = 64, target = "a2"}]

[[object]]
name = "a2"
size = 64
fields = [{offset = 0, size = 64, value = "zero"}]

[[object]]
name = "b"
size = 64
fields = [{offset = 0, size = 64, target = "b1"}]

[[object]]
name = "b1"
size = 64
fields = [{offset = 0, size = 64, target = "b2"}]

[[object]]
name = "b2"
size = 64
fields = [{offset = 0, size = 64, target = "b3"}]

[[object]]
name = "b3"
size = 64
fields = [{offset = 0, size = 64, value = "zero"}]
`)
	ts := Find(g.Graph, DefaultOptions)
	require.Len(t, ts, 2)
	assert.Equal(t, g.Obj("b1"), ts[0].Root())
	assert.Len(t, ts[0].Members, 3)
	assert.Equal(t, g.Obj("a1"), ts[1].Root())
	assert.Len(t, ts[1].Members, 2)
}

func TestFindIgnoresRoots(t *testing.T) {
	g := smgdesc.MustParse(singly)
	g.Globals["n2"] = g.Obj("n2")
	// n2 is a variable now; only n3 is left after it, which is too short.
	assert.Empty(t, Find(g.Graph, DefaultOptions))
}
