package avl

import (
	"fmt"

	"github.com/Yarin78/morphy-sub004/storage"
)

// Iterator walks the tree in key order, one node per call to Next. It is bound to
// the store version it was created at and stops with ErrConcurrentModification
// once any change has been committed.
type Iterator[E any] struct {
	tree *Tree[E]
	r    Reader
	desc bool
	from *E

	version uint64
	limit   int
	pushes  int
	stack   []int32

	id    int32
	value E
	err   error
}

// Ascending returns an iterator over the tree in ascending key order, starting at
// the first entity not less than *from, or at the smallest entity if from is nil.
func (t *Tree[E]) Ascending(r Reader, from *E) *Iterator[E] {
	it := &Iterator[E]{tree: t, r: r, from: from}
	it.Reset()
	return it
}

// Descending is the mirror of Ascending, starting at the last entity not greater
// than *from.
func (t *Tree[E]) Descending(r Reader, from *E) *Iterator[E] {
	it := &Iterator[E]{tree: t, r: r, from: from, desc: true}
	it.Reset()
	return it
}

// Reset rewinds the iterator to its starting position and binds it to the current
// store version.
func (it *Iterator[E]) Reset() {
	it.stack = it.stack[:0]
	it.pushes = 0
	it.err = nil
	it.id = storage.None
	var zero E
	it.value = zero

	meta, err := it.r.Meta()
	if err != nil {
		it.err = err
		return
	}
	it.version = meta.Version
	it.limit = int(meta.Capacity)
	it.err = it.seek(meta.Root)
}

// seek fills the stack with the path to the starting node.
func (it *Iterator[E]) seek(cur int32) error {
	for steps := 0; cur != storage.None; steps++ {
		if steps > it.limit {
			return errCycle(cur)
		}
		if it.from == nil {
			if err := it.push(cur); err != nil {
				return err
			}
			n, err := it.tree.live(it.r, cur)
			if err != nil {
				return err
			}
			cur = child(n, it.desc)
			continue
		}

		n, e, err := it.tree.entityAt(it.r, cur)
		if err != nil {
			return err
		}
		c := it.tree.codec.Compare(e, *it.from)
		if (!it.desc && c >= 0) || (it.desc && c <= 0) {
			if err := it.push(cur); err != nil {
				return err
			}
			cur = child(n, it.desc)
		} else {
			cur = child(n, !it.desc)
		}
	}
	return nil
}

// pushEdge pushes the near edge of the subtree rooted at cur.
func (it *Iterator[E]) pushEdge(cur int32) error {
	for cur != storage.None {
		if err := it.push(cur); err != nil {
			return err
		}
		n, err := it.tree.live(it.r, cur)
		if err != nil {
			return err
		}
		cur = child(n, it.desc)
	}
	return nil
}

func (it *Iterator[E]) push(id int32) error {
	if it.pushes++; it.pushes > it.limit {
		return errCycle(id)
	}
	it.stack = append(it.stack, id)
	return nil
}

// Next advances to the next entity and reports whether there is one. After it
// returns false, Err tells whether the walk ended or failed.
func (it *Iterator[E]) Next() bool {
	if it.err != nil {
		return false
	}
	meta, err := it.r.Meta()
	if err != nil {
		it.err = err
		return false
	}
	if meta.Version != it.version {
		it.err = fmt.Errorf("%w: version %d, iterator created at %d", ErrConcurrentModification, meta.Version, it.version)
		return false
	}
	if len(it.stack) == 0 {
		return false
	}

	id := it.stack[len(it.stack)-1]
	it.stack = it.stack[:len(it.stack)-1]
	n, e, err := it.tree.entityAt(it.r, id)
	if err != nil {
		it.err = err
		return false
	}
	if err := it.pushEdge(child(n, !it.desc)); err != nil {
		it.err = err
		return false
	}
	it.id, it.value = id, e
	return true
}

// Value returns the entity Next moved to.
func (it *Iterator[E]) Value() E { return it.value }

// ID returns the slot id of the current entity.
func (it *Iterator[E]) ID() int32 { return it.id }

func (it *Iterator[E]) Err() error { return it.err }

// Find returns the first entity in key order that compares equal to key.
func (t *Tree[E]) Find(r Reader, key E) (E, bool, error) {
	it := t.Ascending(r, &key)
	if it.Next() && t.codec.Compare(it.Value(), key) == 0 {
		return it.Value(), true, nil
	}
	var zero E
	return zero, false, it.Err()
}

// FindAll returns up to limit entities comparing equal to key, in tree order. A
// limit below one means no limit.
func (t *Tree[E]) FindAll(r Reader, key E, limit int) ([]E, error) {
	var out []E
	it := t.Ascending(r, &key)
	for it.Next() {
		if t.codec.Compare(it.Value(), key) != 0 {
			break
		}
		out = append(out, it.Value())
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, it.Err()
}
