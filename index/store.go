// Package index is the public face of an entity index: a keyed record store that
// gives every entity a stable id and keeps all of them ordered by the codec's key.
//
// Every mutating call on Store runs as its own transaction. Use Begin or Update
// for edits that must land together.
package index

import (
	"errors"
	"iter"
	log "log/slog"

	"github.com/Yarin78/morphy-sub004/avl"
	"github.com/Yarin78/morphy-sub004/entity"
	"github.com/Yarin78/morphy-sub004/storage"
	"github.com/Yarin78/morphy-sub004/transaction"
)

var (
	// ErrDuplicateKey is returned by unique key lookups when more than one entity
	// has the key.
	ErrDuplicateKey = errors.New("more than one entity has this key")

	// ErrNotFound is returned by updates that address an entity which does not exist.
	ErrNotFound = errors.New("entity not found")
)

// Store is an entity index over one storage backend. It is not safe for concurrent
// use; callers serialize access.
type Store[E any] struct {
	backend storage.Backend
	tree    *avl.Tree[E]
	codec   entity.Codec[E]
	path    string
}

// Create makes a new index file at path. It fails if the file exists.
func Create[E any](path string, codec entity.Codec[E], opts ...storage.Option) (*Store[E], error) {
	f, err := storage.CreateFile(path, codec.Size(), opts...)
	if err != nil {
		return nil, err
	}
	s, err := New(f, codec)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.path = path
	return s, nil
}

// Open opens an existing index file. The file keeps its own payload size, which
// may belong to an older or newer version of codec.
func Open[E any](path string, codec entity.Codec[E], opts ...storage.Option) (*Store[E], error) {
	f, err := storage.OpenFile(path, opts...)
	if err != nil {
		return nil, err
	}
	s, err := New(f, codec)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.path = path
	return s, nil
}

// OpenInMemory loads the index file at path into memory. Changes are never written
// back.
func OpenInMemory[E any](path string, codec entity.Codec[E]) (*Store[E], error) {
	m, err := storage.LoadMemory(path)
	if err != nil {
		return nil, err
	}
	return New(m, codec)
}

// CreateInMemory returns an empty index that lives in memory only.
func CreateInMemory[E any](codec entity.Codec[E]) *Store[E] {
	s, _ := New[E](storage.NewMemory(codec.Size()), codec)
	return s
}

// New wraps an existing backend.
func New[E any](b storage.Backend, codec entity.Codec[E]) (*Store[E], error) {
	meta, err := b.Metadata()
	if err != nil {
		return nil, err
	}
	if meta.PayloadSize != int32(codec.Size()) {
		log.Debug("index payload size differs from codec", "stored", meta.PayloadSize, "codec", codec.Size())
	}
	return &Store[E]{
		backend: b,
		tree:    avl.New(codec, int(meta.PayloadSize)),
		codec:   codec,
	}, nil
}

// Path is the index file, or "" for an in-memory store.
func (s *Store[E]) Path() string { return s.path }

func (s *Store[E]) Codec() entity.Codec[E] { return s.codec }

func (s *Store[E]) Metadata() (storage.Metadata, error) { return s.backend.Metadata() }

// Count returns the number of live entities.
func (s *Store[E]) Count() (int, error) {
	meta, err := s.backend.Metadata()
	if err != nil {
		return 0, err
	}
	return int(meta.LiveCount), nil
}

// Add inserts e and returns the id it was stored under. The id carried by e is
// ignored.
func (s *Store[E]) Add(e E) (int32, error) {
	var id int32
	err := s.apply(func(tx *Txn[E]) error {
		var err error
		id, err = tx.Add(e)
		return err
	})
	if err != nil {
		return storage.None, err
	}
	return id, nil
}

// Get returns the entity with id. A deleted or unknown id is not an error.
func (s *Store[E]) Get(id int32) (E, bool, error) {
	return get(s.tree, s.view(), id)
}

// GetByKey returns the one entity with key. It fails with ErrDuplicateKey if the
// key is shared.
func (s *Store[E]) GetByKey(key E) (E, bool, error) {
	return getUnique(s.tree, s.view(), key)
}

// GetAny returns the first entity in key order with key.
func (s *Store[E]) GetAny(key E) (E, bool, error) {
	return s.tree.Find(s.view(), key)
}

// GetAll returns every entity with key.
func (s *Store[E]) GetAll(key E) ([]E, error) {
	return s.tree.FindAll(s.view(), key, 0)
}

// PutByID replaces the entity stored under id. If the key is unchanged the record
// is rewritten in place, otherwise the node moves to its new position and keeps
// the id.
func (s *Store[E]) PutByID(id int32, e E) error {
	return s.apply(func(tx *Txn[E]) error { return tx.PutByID(id, e) })
}

// PutByKey replaces the one entity whose key equals e's.
func (s *Store[E]) PutByKey(e E) error {
	return s.apply(func(tx *Txn[E]) error { return tx.PutByKey(e) })
}

// Delete removes the entity with id and reports whether there was one.
func (s *Store[E]) Delete(id int32) (bool, error) {
	var ok bool
	err := s.apply(func(tx *Txn[E]) error {
		var err error
		ok, err = tx.Delete(id)
		return err
	})
	return ok, err
}

// DeleteByKey removes the one entity with key. It fails with ErrDuplicateKey if
// the key is shared.
func (s *Store[E]) DeleteByKey(key E) (bool, error) {
	var ok bool
	err := s.apply(func(tx *Txn[E]) error {
		var err error
		ok, err = tx.DeleteByKey(key)
		return err
	})
	return ok, err
}

// StreamAll yields every live entity in id order. It reads the store in batches
// and does not go through the tree.
func (s *Store[E]) StreamAll() iter.Seq2[E, error] {
	return func(yield func(E, error) bool) {
		var zero E
		capacity, err := s.backend.Capacity()
		if err != nil {
			yield(zero, err)
			return
		}
		for start := int32(0); start < capacity; start += streamBatch {
			nodes, err := s.backend.GetRange(start, start+streamBatch)
			if err != nil {
				yield(zero, err)
				return
			}
			for _, n := range nodes {
				e, err := s.tree.Decode(n)
				if !yield(e, err) || err != nil {
					return
				}
			}
		}
	}
}

const streamBatch = 256

// Stats summarizes the store for diagnostics.
type Stats struct {
	Path        string `json:"path,omitempty"`
	Live        int32  `json:"live"`
	Capacity    int32  `json:"capacity"`
	Free        int32  `json:"free"`
	PayloadSize int32  `json:"payloadSize"`
	Bytes       int64  `json:"bytes"`

	Cache *storage.CacheStats `json:"cache,omitempty"`
}

func (s *Store[E]) Stats() (Stats, error) {
	meta, err := s.backend.Metadata()
	if err != nil {
		return Stats{}, err
	}
	st := Stats{
		Path:        s.path,
		Live:        meta.LiveCount,
		Capacity:    meta.Capacity,
		Free:        meta.Capacity - meta.LiveCount,
		PayloadSize: meta.PayloadSize,
	}
	if f, ok := s.backend.(*storage.File); ok {
		if st.Bytes, err = f.Size(); err != nil {
			return Stats{}, err
		}
		cs := f.CacheStats()
		st.Cache = &cs
	} else {
		st.Bytes = int64(meta.Capacity) * int64(storage.RecordPrefixSize+meta.PayloadSize)
	}
	return st, nil
}

// Ascending iterates in key order from the first entity not less than *from, or
// from the start if from is nil.
func (s *Store[E]) Ascending(from *E) *avl.Iterator[E] {
	return s.tree.Ascending(s.view(), from)
}

// Descending iterates in reverse key order from the last entity not greater than
// *from, or from the end if from is nil.
func (s *Store[E]) Descending(from *E) *avl.Iterator[E] {
	return s.tree.Descending(s.view(), from)
}

// ValidateStructure checks the whole tree and returns avl.ErrCorrupt describing
// the first problem found.
func (s *Store[E]) ValidateStructure() error {
	return s.tree.Validate(s.view())
}

// Flush pushes buffered state to disk for file-backed stores.
func (s *Store[E]) Flush() error {
	if f, ok := s.backend.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close releases the backend. Every later call fails with storage.ErrClosed.
func (s *Store[E]) Close() error {
	return s.backend.Close()
}

// apply runs fn as a single transaction and commits it.
func (s *Store[E]) apply(fn func(tx *Txn[E]) error) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store[E]) view() view { return view{s.backend} }

// view reads straight from the backend.
type view struct{ b storage.Backend }

func (v view) Node(id int32) (storage.Node, bool, error) { return v.b.Get(id) }
func (v view) Meta() (storage.Metadata, error) { return v.b.Metadata() }

func get[E any](tree *avl.Tree[E], r avl.Reader, id int32) (E, bool, error) {
	var zero E
	n, ok, err := r.Node(id)
	if err != nil || !ok || n.Deleted {
		return zero, false, err
	}
	e, err := tree.Decode(n)
	if err != nil {
		return zero, false, err
	}
	return e, true, nil
}

func getUnique[E any](tree *avl.Tree[E], r avl.Reader, key E) (E, bool, error) {
	var zero E
	all, err := tree.FindAll(r, key, 2)
	if err != nil {
		return zero, false, err
	}
	switch len(all) {
	case 0:
		return zero, false, nil
	case 1:
		return all[0], true, nil
	}
	return zero, false, ErrDuplicateKey
}

var _ avl.Reader = view{}
var _ avl.Writer = (*transaction.Transaction)(nil)
