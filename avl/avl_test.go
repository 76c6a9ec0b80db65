package avl

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yarin78/morphy-sub004/entity"
	"github.com/Yarin78/morphy-sub004/storage"
)

// view exposes a memory backend directly, without a transaction in between.
type view struct{ b *storage.Memory }

func (v view) Node(id int32) (storage.Node, bool, error) { return v.b.Get(id) }
func (v view) Meta() (storage.Metadata, error) { return v.b.Metadata() }
func (v view) PutNode(n storage.Node) error { return v.b.Put(n) }
func (v view) SetMeta(m storage.Metadata) error { return v.b.SetMetadata(m) }

func newTree() (*Tree[entity.GameTag], view) {
	codec := entity.GameTagCodec{}
	return New[entity.GameTag](codec, codec.Size()), view{storage.NewMemory(codec.Size())}
}

func tag(name string) entity.GameTag { return entity.GameTagKey(name) }

func insertAll(t *testing.T, tr *Tree[entity.GameTag], v view, names ...string) []int32 {
	t.Helper()
	ids := make([]int32, len(names))
	for i, name := range names {
		id, err := tr.Insert(v, tag(name))
		require.NoError(t, err)
		ids[i] = id
	}
	return ids
}

func names(t *testing.T, it *Iterator[entity.GameTag]) []string {
	t.Helper()
	var out []string
	for it.Next() {
		out = append(out, it.Value().Name)
	}
	require.NoError(t, it.Err())
	return out
}

func meta(t *testing.T, v view) storage.Metadata {
	t.Helper()
	m, err := v.Meta()
	require.NoError(t, err)
	return m
}

func TestInsertKeepsOrderAndBalance(t *testing.T) {
	tr, v := newTree()
	for _, name := range []string{"e", "f", "b", "d", "a", "c"} {
		insertAll(t, tr, v, name)
		require.NoError(t, tr.Validate(v), "after inserting %q", name)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, names(t, tr.Ascending(v, nil)))
	assert.Equal(t, int32(6), meta(t, v).LiveCount)
}

func TestDeleteNodeWithTwoChildren(t *testing.T) {
	tr, v := newTree()
	ids := insertAll(t, tr, v, "b", "a", "d", "c", "e", "f", "g")
	require.NoError(t, tr.Validate(v))

	ok, err := tr.Delete(v, ids[2])
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, tr.Validate(v))
	assert.Equal(t, []string{"a", "b", "c", "e", "f", "g"}, names(t, tr.Ascending(v, nil)))

	n, found, err := v.Node(ids[2])
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, n.Deleted)
	assert.Equal(t, ids[2], meta(t, v).FirstFree)
}

func TestDeleteTwice(t *testing.T) {
	tr, v := newTree()
	ids := insertAll(t, tr, v, "a", "b", "c")

	ok, err := tr.Delete(v, ids[1])
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tr.Delete(v, ids[1])
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = tr.Delete(v, 99)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, tr.Validate(v))
}

func TestFreedIdsAreReused(t *testing.T) {
	tr, v := newTree()
	ids := insertAll(t, tr, v, "a", "b", "c", "d")

	_, err := tr.Delete(v, ids[1])
	require.NoError(t, err)
	_, err = tr.Delete(v, ids[3])
	require.NoError(t, err)

	again := insertAll(t, tr, v, "x", "y", "z")
	assert.Equal(t, []int32{ids[3], ids[1], 4}, again)
	assert.Equal(t, int32(5), meta(t, v).Capacity)
	require.NoError(t, tr.Validate(v))
}

func TestInsertThenDeleteEverything(t *testing.T) {
	tr, v := newTree()
	const n = 200
	var ids []int32
	for i := range n {
		ids = append(ids, insertAll(t, tr, v, fmt.Sprintf("k%03d", i))...)
	}

	rng := rand.New(rand.NewSource(7))
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	for i, id := range ids {
		ok, err := tr.Delete(v, id)
		require.NoError(t, err)
		require.True(t, ok)
		if i%17 == 0 {
			require.NoError(t, tr.Validate(v))
		}
	}

	m := meta(t, v)
	assert.Equal(t, storage.None, m.Root)
	assert.Equal(t, int32(0), m.LiveCount)
	assert.Equal(t, int32(n), m.Capacity)
	require.NoError(t, tr.Validate(v))
}

func TestRandomOperations(t *testing.T) {
	tr, v := newTree()
	rng := rand.New(rand.NewSource(42))
	live := map[int32]string{}

	for i := range 2000 {
		if len(live) > 0 && rng.Intn(3) == 0 {
			var victim int32
			for id := range live {
				victim = id
				break
			}
			ok, err := tr.Delete(v, victim)
			require.NoError(t, err)
			require.True(t, ok)
			delete(live, victim)
		} else {
			// A small alphabet makes equal keys common.
			name := fmt.Sprintf("%c%c", 'a'+rng.Intn(6), 'a'+rng.Intn(6))
			id, err := tr.Insert(v, tag(name))
			require.NoError(t, err)
			live[id] = name
		}
		if i%50 == 0 {
			require.NoError(t, tr.Validate(v))
		}
	}
	require.NoError(t, tr.Validate(v))

	var want []string
	for _, name := range live {
		want = append(want, name)
	}
	slices.Sort(want)
	assert.Equal(t, want, names(t, tr.Ascending(v, nil)))
	assert.Equal(t, int32(len(live)), meta(t, v).LiveCount)
}

func TestEqualKeys(t *testing.T) {
	tr, v := newTree()
	ids := insertAll(t, tr, v, "m", "x", "a", "x", "x", "z", "x", "b", "x")
	require.NoError(t, tr.Validate(v))

	all, err := tr.FindAll(v, tag("x"), 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	two, err := tr.FindAll(v, tag("x"), 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)

	// Every copy must be reachable for delete, wherever rotations put it.
	for _, i := range []int{4, 1, 8, 3, 6} {
		ok, err := tr.Delete(v, ids[i])
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, tr.Validate(v))
	}
	_, found, err := tr.Find(v, tag("x"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, []string{"a", "b", "m", "z"}, names(t, tr.Ascending(v, nil)))
}

func TestMoveKeepsID(t *testing.T) {
	tr, v := newTree()
	ids := insertAll(t, tr, v, "d", "b", "f", "a", "c", "e", "g")

	require.NoError(t, tr.Move(v, ids[1], tag("h")))
	require.NoError(t, tr.Validate(v))
	assert.Equal(t, []string{"a", "c", "d", "e", "f", "g", "h"}, names(t, tr.Ascending(v, nil)))

	e, found, err := tr.Find(v, tag("h"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ids[1], e.ID)
	assert.Equal(t, int32(7), meta(t, v).LiveCount)
}

func TestRewriteInPlace(t *testing.T) {
	tr, v := newTree()
	ids := insertAll(t, tr, v, "a", "b")

	updated := tag("b")
	updated.Count = 12
	require.NoError(t, tr.Rewrite(v, ids[1], updated))

	e, found, err := tr.Find(v, tag("b"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int32(12), e.Count)
	assert.Equal(t, ids[1], e.ID)
}

func TestSeek(t *testing.T) {
	tr, v := newTree()
	insertAll(t, tr, v, "e", "f", "b", "d", "a", "c")

	from := tag("c")
	assert.Equal(t, []string{"c", "d", "e", "f"}, names(t, tr.Ascending(v, &from)))
	assert.Equal(t, []string{"c", "b", "a"}, names(t, tr.Descending(v, &from)))

	between := tag("cc")
	assert.Equal(t, []string{"d", "e", "f"}, names(t, tr.Ascending(v, &between)))
	assert.Equal(t, []string{"c", "b", "a"}, names(t, tr.Descending(v, &between)))

	past := tag("zz")
	assert.Empty(t, names(t, tr.Ascending(v, &past)))
	assert.Equal(t, []string{"f", "e", "d", "c", "b", "a"}, names(t, tr.Descending(v, nil)))
}

func TestIteratorFailsAfterModification(t *testing.T) {
	tr, v := newTree()
	insertAll(t, tr, v, "a", "b", "c")

	it := tr.Ascending(v, nil)
	require.True(t, it.Next())

	m := meta(t, v)
	m.Version++
	require.NoError(t, v.SetMeta(m))

	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), ErrConcurrentModification)

	it.Reset()
	assert.Equal(t, []string{"a", "b", "c"}, names(t, it))
}

func TestCyclicLinksAreReported(t *testing.T) {
	tr, v := newTree()
	insertAll(t, tr, v, "b", "a")

	// Point a back at b, making b its own grandchild.
	m := meta(t, v)
	a, _, err := v.Node(1)
	require.NoError(t, err)
	a.Left = m.Root
	require.NoError(t, v.PutNode(a))

	assert.ErrorIs(t, tr.Validate(v), ErrCorrupt)

	it := tr.Ascending(v, nil)
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), ErrCorrupt)

	_, err = tr.Insert(v, tag("0"))
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestValidateDetectsBadBalance(t *testing.T) {
	tr, v := newTree()
	insertAll(t, tr, v, "b", "a", "c")

	n, _, err := v.Node(meta(t, v).Root)
	require.NoError(t, err)
	n.Balance = 1
	require.NoError(t, v.PutNode(n))

	assert.ErrorIs(t, tr.Validate(v), ErrCorrupt)
}

func TestValidateDetectsWrongCount(t *testing.T) {
	tr, v := newTree()
	insertAll(t, tr, v, "b", "a", "c")

	m := meta(t, v)
	m.LiveCount = 5
	require.NoError(t, v.SetMeta(m))

	assert.ErrorIs(t, tr.Validate(v), ErrCorrupt)
}

func TestValidateDetectsBadOrder(t *testing.T) {
	tr, v := newTree()
	ids := insertAll(t, tr, v, "b", "a", "c")

	n, _, err := v.Node(ids[1])
	require.NoError(t, err)
	n.Payload = tr.Encode(tag("q"))
	require.NoError(t, v.PutNode(n))

	assert.ErrorIs(t, tr.Validate(v), ErrCorrupt)
}
