package storage

import "fmt"

// None marks an absent child, an empty tree or the end of the free list.
const None int32 = -1

// Node is one slot of the store. A live node carries tree links, its balance
// factor and the entity payload; a deleted node only threads the free list.
type Node struct {
	ID      int32
	Deleted bool

	// live nodes
	Left    int32
	Right   int32
	Balance int8
	Payload []byte

	// deleted nodes
	NextFree int32
}

// Live builds a live node.
func Live(id, left, right int32, balance int8, payload []byte) Node {
	return Node{ID: id, Left: left, Right: right, Balance: balance, Payload: payload, NextFree: None}
}

// Tombstone builds a deleted node pointing at the next free slot.
func Tombstone(id, nextFree int32) Node {
	return Node{ID: id, Deleted: true, Left: None, Right: None, NextFree: nextFree}
}

// Clone returns a copy that does not share the payload buffer.
func (n Node) Clone() Node {
	if n.Payload != nil {
		n.Payload = append([]byte(nil), n.Payload...)
	}
	return n
}

func (n Node) String() string {
	if n.Deleted {
		return fmt.Sprintf("node %d (deleted, next free %d)", n.ID, n.NextFree)
	}
	return fmt.Sprintf("node %d (left %d, right %d, balance %d)", n.ID, n.Left, n.Right, n.Balance)
}

// Metadata describes the whole store. Version is not persisted: it belongs to the
// open handle and moves on every committed mutation.
type Metadata struct {
	Capacity    int32
	Root        int32
	LiveCount   int32
	FirstFree   int32
	PayloadSize int32
	HeaderSize  int32
	Version     uint64
}

// emptyMetadata is the metadata of a store with no slots.
func emptyMetadata(payloadSize int) Metadata {
	return Metadata{Root: None, FirstFree: None, PayloadSize: int32(payloadSize)}
}
