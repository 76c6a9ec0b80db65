package avl

import (
	"fmt"

	"github.com/Yarin78/morphy-sub004/storage"
)

// Delete removes the entity with id from the tree and puts its slot on the free
// list. It reports false if id is not a live node.
func (t *Tree[E]) Delete(w Writer, id int32) (bool, error) {
	meta, err := w.Meta()
	if err != nil {
		return false, err
	}
	n, ok, err := w.Node(id)
	if err != nil || !ok || n.Deleted {
		return false, err
	}

	meta, err = t.unlink(w, meta, n)
	if err != nil {
		return false, err
	}
	if err := w.PutNode(storage.Tombstone(id, meta.FirstFree)); err != nil {
		return false, err
	}
	meta.FirstFree = id
	meta.LiveCount--
	return true, w.SetMeta(meta)
}

// Move gives the live node id a new entity whose key differs from the old one.
// The node leaves its place in the tree and is inserted again under the same id.
func (t *Tree[E]) Move(w Writer, id int32, e E) error {
	meta, err := w.Meta()
	if err != nil {
		return err
	}
	n, err := t.live(w, id)
	if err != nil {
		return err
	}

	meta, err = t.unlink(w, meta, n)
	if err != nil {
		return err
	}
	p, err := t.insertPath(w, meta, e)
	if err != nil {
		return err
	}
	if err := w.PutNode(storage.Live(id, storage.None, storage.None, 0, t.Encode(e))); err != nil {
		return err
	}
	meta, err = t.attach(w, meta, p, id)
	if err != nil {
		return err
	}
	return w.SetMeta(meta)
}

// Rewrite replaces the payload of node id in place. The new entity must compare
// equal to the old one.
func (t *Tree[E]) Rewrite(w Writer, id int32, e E) error {
	n, err := t.live(w, id)
	if err != nil {
		return err
	}
	n.Payload = t.Encode(e)
	return w.PutNode(n)
}

// unlink takes n out of the tree structure and rebalances. The slot itself is left
// for the caller to reuse or free.
func (t *Tree[E]) unlink(w Writer, meta storage.Metadata, n storage.Node) (storage.Metadata, error) {
	key, err := t.Decode(n)
	if err != nil {
		return meta, err
	}
	p, found, err := t.pathTo(w, meta, n.ID, key)
	if err != nil {
		return meta, err
	}
	if !found {
		return meta, fmt.Errorf("%w: live node %d is not reachable from the root", ErrCorrupt, n.ID)
	}

	if n.Left == storage.None || n.Right == storage.None {
		only := n.Left
		if only == storage.None {
			only = n.Right
		}
		meta, err = t.replaceChild(w, meta, p, only)
		if err != nil {
			return meta, err
		}
		return t.retraceDelete(w, meta, p)
	}

	// Two children: the in-order successor s takes n's place. The slot that
	// really disappears is s's old position, which has no left child.
	at := len(p)
	p = append(p, step{id: n.ID, right: true})
	cur := n.Right
	for {
		c, err := t.live(w, cur)
		if err != nil {
			return meta, err
		}
		if c.Left == storage.None {
			break
		}
		if len(p) > int(meta.Capacity) {
			return meta, errCycle(cur)
		}
		p = append(p, step{id: cur})
		cur = c.Left
	}

	s, err := t.live(w, cur)
	if err != nil {
		return meta, err
	}
	s.Left = n.Left
	s.Balance = n.Balance
	if cur != n.Right {
		// s sat deeper in n's right subtree; its parent adopts s's right child.
		sp, err := t.live(w, p[len(p)-1].id)
		if err != nil {
			return meta, err
		}
		sp.Left = s.Right
		if err := w.PutNode(sp); err != nil {
			return meta, err
		}
		s.Right = n.Right
	}
	// When s was n's own right child it keeps its right subtree and the retrace
	// starts at s, which now stands where n stood.
	if err := w.PutNode(s); err != nil {
		return meta, err
	}
	p[at].id = s.ID
	meta, err = t.replaceChild(w, meta, p[:at], s.ID)
	if err != nil {
		return meta, err
	}
	return t.retraceDelete(w, meta, p)
}

// retraceDelete walks back up after the subtree below the end of p lost one level
// of height. It continues while subtrees keep shrinking.
func (t *Tree[E]) retraceDelete(w Writer, meta storage.Metadata, p path) (storage.Metadata, error) {
	for i := len(p) - 1; i >= 0; i-- {
		s := p[i]
		x, err := t.live(w, s.id)
		if err != nil {
			return meta, err
		}

		b := x.Balance + 1
		if s.right {
			b = x.Balance - 1
		}
		switch b {
		case -1, 1:
			x.Balance = b
			return meta, w.PutNode(x)
		case 0:
			x.Balance = 0
			if err := w.PutNode(x); err != nil {
				return meta, err
			}
			continue
		}

		root, err := t.rebalance(w, x, b)
		if err != nil {
			return meta, err
		}
		meta, err = t.replaceChild(w, meta, p[:i], root.ID)
		if err != nil {
			return meta, err
		}
		if root.Balance != 0 {
			return meta, nil
		}
	}
	return meta, nil
}
