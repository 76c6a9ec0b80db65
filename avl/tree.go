// Package avl implements the balanced index over storage slots: an AVL tree whose
// nodes live in fixed-size records addressed by entity id.
//
// The tree holds no state of its own besides the codec. Every operation receives
// the node view it works on, which is either a read-only view of a backend or a
// transaction that stages writes until commit. All algorithms are iterative and
// carry the ancestor path explicitly, so a corrupt file with cyclic links produces
// ErrCorrupt instead of an endless loop.
//
// Entities whose keys compare equal are accepted and always routed to the right
// subtree on insert. Rotations keep the in-order sequence, so equal keys form one
// contiguous run in key order, though any of them may end up on either side of
// another.
package avl

import (
	"fmt"

	"github.com/Yarin78/morphy-sub004/entity"
	"github.com/Yarin78/morphy-sub004/storage"
)

// Reader is the node view read operations need.
type Reader interface {
	Node(id int32) (storage.Node, bool, error)
	Meta() (storage.Metadata, error)
}

// Writer is the node view mutations need.
type Writer interface {
	Reader
	PutNode(n storage.Node) error
	SetMeta(m storage.Metadata) error
}

type Tree[E any] struct {
	codec       entity.Codec[E]
	payloadSize int
}

// New returns a tree storing entities with codec in records of payloadSize bytes.
// payloadSize is the size recorded in the store and may differ from codec.Size().
func New[E any](codec entity.Codec[E], payloadSize int) *Tree[E] {
	return &Tree[E]{codec: codec, payloadSize: payloadSize}
}

func (t *Tree[E]) Codec() entity.Codec[E] { return t.codec }

// Encode serializes e into a record payload. When the store's payload is wider
// than the codec the tail is zero; when it is narrower the codec's extra fields
// are cut off.
func (t *Tree[E]) Encode(e E) []byte {
	size := t.codec.Size()
	buf := make([]byte, max(size, t.payloadSize))
	t.codec.Marshal(e, buf[:size])
	return buf[:t.payloadSize]
}

// Decode reads the entity held by a live node.
func (t *Tree[E]) Decode(n storage.Node) (E, error) {
	size := t.codec.Size()
	src := n.Payload
	if len(src) < size {
		src = make([]byte, size)
		copy(src, n.Payload)
	}
	e, err := t.codec.Unmarshal(n.ID, src[:size])
	if err != nil {
		return e, fmt.Errorf("failed to decode node %d: %w", n.ID, err)
	}
	return e, nil
}

// live loads a node that the tree links to. Anything but a live node there means
// the structure is broken.
func (t *Tree[E]) live(r Reader, id int32) (storage.Node, error) {
	n, ok, err := r.Node(id)
	if err != nil {
		return n, err
	}
	if !ok {
		return n, fmt.Errorf("%w: link to missing node %d", ErrCorrupt, id)
	}
	if n.Deleted {
		return n, fmt.Errorf("%w: link to deleted node %d", ErrCorrupt, id)
	}
	return n, nil
}

// entityAt loads and decodes a linked node.
func (t *Tree[E]) entityAt(r Reader, id int32) (storage.Node, E, error) {
	n, err := t.live(r, id)
	if err != nil {
		var zero E
		return n, zero, err
	}
	e, err := t.Decode(n)
	return n, e, err
}

func child(n storage.Node, right bool) int32 {
	if right {
		return n.Right
	}
	return n.Left
}

func setChild(n *storage.Node, right bool, id int32) {
	if right {
		n.Right = id
	} else {
		n.Left = id
	}
}
