package avl

import "github.com/Yarin78/morphy-sub004/storage"

// The rotations take the pivot x by value together with its effective balance,
// which during rebalancing is ±2 and not what is stored. New balance factors are
// derived from the old ones alone:
//
//	left:  x' = x - 1 - max(z, 0)    z' = z - 1 + min(x', 0)
//	right: x' = x + 1 - min(z, 0)    z' = z + 1 + max(x', 0)
//
// The double rotations are compositions, which gives the usual case table.

// rotateLeft lifts x's right child z above x and returns z.
func (t *Tree[E]) rotateLeft(w Writer, x storage.Node, xb int8) (storage.Node, error) {
	z, err := t.live(w, x.Right)
	if err != nil {
		return z, err
	}
	x.Right = z.Left
	z.Left = x.ID
	x.Balance = xb - 1 - max(z.Balance, 0)
	z.Balance = z.Balance - 1 + min(x.Balance, 0)
	return z, t.putPair(w, x, z)
}

// rotateRight lifts x's left child z above x and returns z.
func (t *Tree[E]) rotateRight(w Writer, x storage.Node, xb int8) (storage.Node, error) {
	z, err := t.live(w, x.Left)
	if err != nil {
		return z, err
	}
	x.Left = z.Right
	z.Right = x.ID
	x.Balance = xb + 1 - min(z.Balance, 0)
	z.Balance = z.Balance + 1 + max(x.Balance, 0)
	return z, t.putPair(w, x, z)
}

// rotateRightLeft handles a right-heavy x whose right child leans left.
func (t *Tree[E]) rotateRightLeft(w Writer, x storage.Node, xb int8) (storage.Node, error) {
	z, err := t.live(w, x.Right)
	if err != nil {
		return z, err
	}
	y, err := t.rotateRight(w, z, z.Balance)
	if err != nil {
		return y, err
	}
	x.Right = y.ID
	return t.rotateLeft(w, x, xb)
}

// rotateLeftRight handles a left-heavy x whose left child leans right.
func (t *Tree[E]) rotateLeftRight(w Writer, x storage.Node, xb int8) (storage.Node, error) {
	z, err := t.live(w, x.Left)
	if err != nil {
		return z, err
	}
	y, err := t.rotateLeft(w, z, z.Balance)
	if err != nil {
		return y, err
	}
	x.Left = y.ID
	return t.rotateRight(w, x, xb)
}

// rebalance rotates x, whose effective balance xb is ±2, and returns the new
// subtree root.
func (t *Tree[E]) rebalance(w Writer, x storage.Node, xb int8) (storage.Node, error) {
	if xb > 0 {
		z, err := t.live(w, x.Right)
		if err != nil {
			return z, err
		}
		if z.Balance >= 0 {
			return t.rotateLeft(w, x, xb)
		}
		return t.rotateRightLeft(w, x, xb)
	}
	z, err := t.live(w, x.Left)
	if err != nil {
		return z, err
	}
	if z.Balance <= 0 {
		return t.rotateRight(w, x, xb)
	}
	return t.rotateLeftRight(w, x, xb)
}

func (t *Tree[E]) putPair(w Writer, a, b storage.Node) error {
	if err := w.PutNode(a); err != nil {
		return err
	}
	return w.PutNode(b)
}
