package avl

import "github.com/Yarin78/morphy-sub004/storage"

// step is one ancestor on a tree path and the side the walk left it by.
type step struct {
	id    int32
	right bool
}

// path is the chain of ancestors from the root down to, but not including, the
// node an operation is about.
type path []step

// insertPath walks from the root to the empty slot e belongs in.
func (t *Tree[E]) insertPath(r Reader, meta storage.Metadata, e E) (path, error) {
	var p path
	cur := meta.Root
	for cur != storage.None {
		if len(p) > int(meta.Capacity) {
			return nil, errCycle(cur)
		}
		n, ne, err := t.entityAt(r, cur)
		if err != nil {
			return nil, err
		}
		right := t.codec.Compare(e, ne) >= 0
		p = append(p, step{id: cur, right: right})
		cur = child(n, right)
	}
	return p, nil
}

// pathTo finds the ancestors of node id, whose entity is key. Nodes that compare
// equal to key may sit in either subtree of each other, so the walk backtracks
// through every equal node until it meets id.
func (t *Tree[E]) pathTo(r Reader, meta storage.Metadata, id int32, key E) (path, bool, error) {
	type frame struct {
		id    int32
		depth int
		right bool
	}

	var p path
	stack := []frame{{id: meta.Root}}
	visited := 0
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.id == storage.None {
			continue
		}
		if visited++; visited > int(meta.Capacity) {
			return nil, false, errCycle(f.id)
		}

		p = p[:f.depth]
		if f.depth > 0 {
			p[f.depth-1].right = f.right
		}
		if f.id == id {
			return p, true, nil
		}

		n, ne, err := t.entityAt(r, f.id)
		if err != nil {
			return nil, false, err
		}
		p = append(p, step{id: f.id})
		next := f.depth + 1
		switch c := t.codec.Compare(key, ne); {
		case c < 0:
			stack = append(stack, frame{id: n.Left, depth: next})
		case c > 0:
			stack = append(stack, frame{id: n.Right, depth: next, right: true})
		default:
			stack = append(stack,
				frame{id: n.Left, depth: next},
				frame{id: n.Right, depth: next, right: true})
		}
	}
	return nil, false, nil
}

// replaceChild points the last step of p at id, or makes id the root when p is
// empty.
func (t *Tree[E]) replaceChild(w Writer, meta storage.Metadata, p path, id int32) (storage.Metadata, error) {
	if len(p) == 0 {
		meta.Root = id
		return meta, nil
	}
	last := p[len(p)-1]
	parent, err := t.live(w, last.id)
	if err != nil {
		return meta, err
	}
	setChild(&parent, last.right, id)
	return meta, w.PutNode(parent)
}
