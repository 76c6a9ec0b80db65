package avl

import (
	"fmt"

	"github.com/Yarin78/morphy-sub004/storage"
)

// Validate walks the whole tree and the free list and returns ErrCorrupt with
// details on the first inconsistency: a node reached twice, bad ordering, a wrong
// or out-of-range balance factor, a live count that does not match, or a free list
// that is cyclic or holds live nodes.
func (t *Tree[E]) Validate(r Reader) error {
	meta, err := r.Meta()
	if err != nil {
		return err
	}

	nodes := make(map[int32]storage.Node)
	heights := make(map[int32]int)
	height := func(id int32) int {
		if id == storage.None {
			return 0
		}
		return heights[id]
	}

	type frame struct {
		id       int32
		expanded bool
	}
	var stack []frame
	if meta.Root != storage.None {
		stack = append(stack, frame{id: meta.Root})
	}
	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		if !f.expanded {
			if _, ok := nodes[f.id]; ok {
				return fmt.Errorf("%w: node %d is reachable twice", ErrCorrupt, f.id)
			}
			n, err := t.live(r, f.id)
			if err != nil {
				return err
			}
			nodes[f.id] = n
			f.expanded = true
			for _, c := range []int32{n.Left, n.Right} {
				if c != storage.None {
					stack = append(stack, frame{id: c})
				}
			}
			continue
		}

		stack = stack[:len(stack)-1]
		n := nodes[f.id]
		hl, hr := height(n.Left), height(n.Right)
		if bal := hr - hl; bal < -1 || bal > 1 {
			return fmt.Errorf("%w: node %d is out of balance (%d)", ErrCorrupt, n.ID, bal)
		} else if int8(bal) != n.Balance {
			return fmt.Errorf("%w: node %d stores balance %d, actual %d", ErrCorrupt, n.ID, n.Balance, bal)
		}
		heights[n.ID] = 1 + max(hl, hr)
	}

	if got := len(nodes); got != int(meta.LiveCount) {
		return fmt.Errorf("%w: live count is %d, tree holds %d nodes", ErrCorrupt, meta.LiveCount, got)
	}
	if err := t.validateOrder(meta.Root, nodes); err != nil {
		return err
	}
	return validateFreeList(r, meta, nodes)
}

// validateOrder checks that the in-order sequence never decreases. nodes holds
// every reachable node, already checked to form a tree.
func (t *Tree[E]) validateOrder(root int32, nodes map[int32]storage.Node) error {
	var stack []int32
	var prev E
	prevID, cur := storage.None, root
	for cur != storage.None || len(stack) > 0 {
		for cur != storage.None {
			stack = append(stack, cur)
			cur = nodes[cur].Left
		}
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		e, err := t.Decode(nodes[id])
		if err != nil {
			return err
		}
		if prevID != storage.None && t.codec.Compare(prev, e) > 0 {
			return fmt.Errorf("%w: node %d sorts before its predecessor %d", ErrCorrupt, id, prevID)
		}
		prev, prevID = e, id
		cur = nodes[id].Right
	}
	return nil
}

func validateFreeList(r Reader, meta storage.Metadata, live map[int32]storage.Node) error {
	seen := make(map[int32]bool)
	for cur := meta.FirstFree; cur != storage.None; {
		if seen[cur] {
			return fmt.Errorf("%w: free list revisits node %d", ErrCorrupt, cur)
		}
		if _, ok := live[cur]; ok {
			return fmt.Errorf("%w: live node %d is on the free list", ErrCorrupt, cur)
		}
		seen[cur] = true

		n, ok, err := r.Node(cur)
		if err != nil {
			return err
		}
		if !ok || !n.Deleted {
			return fmt.Errorf("%w: free list entry %d is not a deleted node", ErrCorrupt, cur)
		}
		cur = n.NextFree
	}
	if total := len(seen) + len(live); total > int(meta.Capacity) {
		return fmt.Errorf("%w: %d slots in use, capacity is %d", ErrCorrupt, total, meta.Capacity)
	}
	return nil
}
