package avl

import (
	"fmt"

	"github.com/Yarin78/morphy-sub004/storage"
)

// Insert adds e under a fresh id and returns the id. Freed ids are reused before
// the capacity grows.
func (t *Tree[E]) Insert(w Writer, e E) (int32, error) {
	meta, err := w.Meta()
	if err != nil {
		return storage.None, err
	}
	p, err := t.insertPath(w, meta, e)
	if err != nil {
		return storage.None, err
	}

	id, meta, err := t.allocate(w, meta)
	if err != nil {
		return storage.None, err
	}
	if err := w.PutNode(storage.Live(id, storage.None, storage.None, 0, t.Encode(e))); err != nil {
		return storage.None, err
	}
	meta.LiveCount++

	meta, err = t.attach(w, meta, p, id)
	if err != nil {
		return storage.None, err
	}
	return id, w.SetMeta(meta)
}

// allocate pops the free list, or extends the store by one slot when it is empty.
func (t *Tree[E]) allocate(r Reader, meta storage.Metadata) (int32, storage.Metadata, error) {
	if meta.FirstFree == storage.None {
		id := meta.Capacity
		meta.Capacity++
		return id, meta, nil
	}

	id := meta.FirstFree
	n, ok, err := r.Node(id)
	if err != nil {
		return storage.None, meta, err
	}
	if !ok || !n.Deleted {
		return storage.None, meta, fmt.Errorf("%w: free list head %d is not a deleted node", ErrCorrupt, id)
	}
	meta.FirstFree = n.NextFree
	return id, meta, nil
}

// attach links the already written leaf id below the end of p and rebalances.
func (t *Tree[E]) attach(w Writer, meta storage.Metadata, p path, id int32) (storage.Metadata, error) {
	meta, err := t.replaceChild(w, meta, p, id)
	if err != nil {
		return meta, err
	}
	return t.retraceInsert(w, meta, p)
}

// retraceInsert walks back up after a leaf was added below the end of p. It stops
// as soon as a subtree's height is unchanged, or after the single rotation that
// restores it.
func (t *Tree[E]) retraceInsert(w Writer, meta storage.Metadata, p path) (storage.Metadata, error) {
	for i := len(p) - 1; i >= 0; i-- {
		s := p[i]
		x, err := t.live(w, s.id)
		if err != nil {
			return meta, err
		}

		grow := int8(-1)
		if s.right {
			grow = 1
		}
		switch x.Balance + grow {
		case 0:
			x.Balance = 0
			return meta, w.PutNode(x)
		case 1, -1:
			x.Balance += grow
			if err := w.PutNode(x); err != nil {
				return meta, err
			}
			continue
		}

		root, err := t.rebalance(w, x, x.Balance+grow)
		if err != nil {
			return meta, err
		}
		return t.replaceChild(w, meta, p[:i], root.ID)
	}
	return meta, nil
}
