package storage

// Backend is raw slot storage. Get never fails for an id outside the store; it
// reports the slot as absent instead.
type Backend interface {
	Get(id int32) (Node, bool, error)
	// GetRange returns the live nodes with start <= id < end, in id order.
	GetRange(start, end int32) ([]Node, error)
	// Put writes a node, growing the capacity if the id is past the end.
	Put(n Node) error
	Capacity() (int32, error)
	SetCapacity(capacity int32) error
	Metadata() (Metadata, error)
	// SetMetadata replaces the metadata. Capacity never shrinks.
	SetMetadata(m Metadata) error
	Close() error
}
