package storage

import (
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"os"

	"github.com/Yarin78/morphy-sub004/cache"
)

// File is a Backend over a single index file.
type File struct {
	path   string
	f      *os.File
	meta   Metadata
	stride int64
	nodes  *cache.Cache[int32, Node]
	dirty  bool
	closed bool
}

// CreateFile creates a new, empty index file. It fails if path already exists.
func CreateFile(path string, payloadSize int, opts ...Option) (*File, error) {
	o := buildOptions(opts)
	if payloadSize < 0 || o.headerExtension < 0 {
		return nil, fmt.Errorf("failed to create index file: invalid sizes")
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create index file: %w", err)
	}

	meta := emptyMetadata(payloadSize)
	meta.HeaderSize = BaseHeaderSize + o.headerExtension
	b := make([]byte, meta.HeaderSize)
	copy(b, headerFromMetadata(meta).encode())
	if _, err := f.WriteAt(b, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	log.Debug("created index file", "path", path, "payloadSize", payloadSize)
	return newFile(path, f, meta, o), nil
}

// OpenFile opens an existing index file. The record stride comes from the payload
// size stored in its header.
func OpenFile(path string, opts ...Option) (*File, error) {
	o := buildOptions(opts)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}

	meta, err := readHeader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	log.Debug("opened index file", "path", path, "capacity", meta.Capacity, "live", meta.LiveCount, "payloadSize", meta.PayloadSize)
	return newFile(path, f, meta, o), nil
}

func newFile(path string, f *os.File, meta Metadata, o options) *File {
	return &File{
		path:   path,
		f:      f,
		meta:   meta,
		stride: int64(RecordPrefixSize) + int64(meta.PayloadSize),
		nodes:  cache.New[int32, Node](o.cacheSize),
	}
}

func readHeader(f *os.File) (Metadata, error) {
	b := make([]byte, BaseHeaderSize)
	if _, err := f.ReadAt(b, 0); err != nil {
		if errors.Is(err, io.EOF) {
			return Metadata{}, ErrTruncated
		}
		return Metadata{}, err
	}
	h, err := decodeHeader(b)
	if err != nil {
		return Metadata{}, err
	}

	meta := Metadata{
		Capacity:    h.capacity,
		Root:        h.root,
		LiveCount:   h.liveCount,
		FirstFree:   h.firstFree,
		PayloadSize: h.payloadSize,
		HeaderSize:  BaseHeaderSize + h.extension,
	}

	st, err := f.Stat()
	if err != nil {
		return Metadata{}, err
	}
	want := int64(meta.HeaderSize) + int64(meta.Capacity)*(int64(RecordPrefixSize)+int64(meta.PayloadSize))
	if st.Size() < want {
		return Metadata{}, fmt.Errorf("%w: %d bytes, header needs %d", ErrTruncated, st.Size(), want)
	}
	return meta, nil
}

func (f *File) offset(id int32) int64 {
	return int64(f.meta.HeaderSize) + int64(id)*f.stride
}

func (f *File) Get(id int32) (Node, bool, error) {
	if f.closed {
		return Node{}, false, ErrClosed
	}
	if id < 0 || id >= f.meta.Capacity {
		return Node{}, false, nil
	}
	if n, ok := f.nodes.Get(id); ok {
		return n.Clone(), true, nil
	}

	b := make([]byte, f.stride)
	if _, err := f.f.ReadAt(b, f.offset(id)); err != nil {
		return Node{}, false, fmt.Errorf("failed to read node %d: %w", id, err)
	}
	n, err := decodeRecord(id, b)
	if err != nil {
		return Node{}, false, err
	}
	f.nodes.Put(id, n)
	return n.Clone(), true, nil
}

func (f *File) GetRange(start, end int32) ([]Node, error) {
	if f.closed {
		return nil, ErrClosed
	}
	start = max(start, 0)
	end = min(end, f.meta.Capacity)
	if start >= end {
		return nil, nil
	}

	b := make([]byte, int64(end-start)*f.stride)
	if _, err := f.f.ReadAt(b, f.offset(start)); err != nil {
		return nil, fmt.Errorf("failed to read nodes %d..%d: %w", start, end, err)
	}
	var out []Node
	for id := start; id < end; id++ {
		rec := b[int64(id-start)*f.stride : int64(id-start+1)*f.stride]
		n, err := decodeRecord(id, rec)
		if err != nil {
			return nil, err
		}
		if !n.Deleted {
			out = append(out, n)
		}
	}
	return out, nil
}

// Put writes a node. Rewriting a slot as deleted only touches the structural
// prefix, so the old payload bytes stay on disk until the id is reused.
func (f *File) Put(n Node) error {
	if f.closed {
		return ErrClosed
	}
	if n.ID < 0 {
		return fmt.Errorf("failed to put node: invalid id %d", n.ID)
	}
	if !n.Deleted && len(n.Payload) != int(f.meta.PayloadSize) {
		return fmt.Errorf("failed to put node %d: payload is %d bytes, file expects %d", n.ID, len(n.Payload), f.meta.PayloadSize)
	}

	// Slots skipped over would read back as zeroed live records.
	for id := f.meta.Capacity; id < n.ID; id++ {
		if err := f.Put(Tombstone(id, None)); err != nil {
			return err
		}
	}

	rec := encodeRecord(n, int(f.stride))
	if n.Deleted && n.ID < f.meta.Capacity {
		rec = rec[:RecordPrefixSize]
	}
	if _, err := f.f.WriteAt(rec, f.offset(n.ID)); err != nil {
		f.nodes.Remove(n.ID)
		return fmt.Errorf("failed to write node %d: %w", n.ID, err)
	}
	// Writes refresh cached slots but never evict what readers keep warm.
	f.nodes.Update(n.ID, n.Clone())

	if n.ID >= f.meta.Capacity {
		f.meta.Capacity = n.ID + 1
		f.dirty = true
	}
	return nil
}

func (f *File) Capacity() (int32, error) {
	if f.closed {
		return 0, ErrClosed
	}
	return f.meta.Capacity, nil
}

// SetCapacity grows the file. New slots are written as deleted records that are
// not on the free list.
func (f *File) SetCapacity(capacity int32) error {
	if f.closed {
		return ErrClosed
	}
	for id := f.meta.Capacity; id < capacity; id++ {
		if err := f.Put(Tombstone(id, None)); err != nil {
			return err
		}
	}
	return f.writeHeader()
}

func (f *File) Metadata() (Metadata, error) {
	if f.closed {
		return Metadata{}, ErrClosed
	}
	return f.meta, nil
}

// SetMetadata replaces the metadata and rewrites the header. The payload size and
// header size are properties of the file and are kept.
func (f *File) SetMetadata(m Metadata) error {
	if f.closed {
		return ErrClosed
	}
	m.Capacity = max(m.Capacity, f.meta.Capacity)
	m.PayloadSize = f.meta.PayloadSize
	m.HeaderSize = f.meta.HeaderSize
	f.meta = m
	return f.writeHeader()
}

// writeHeader rewrites the fixed header fields only; extension bytes are left as
// they are.
func (f *File) writeHeader() error {
	if _, err := f.f.WriteAt(headerFromMetadata(f.meta).encode(), 0); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	f.dirty = false
	return nil
}

// Flush writes the header if needed and syncs the file to disk.
func (f *File) Flush() error {
	if f.closed {
		return ErrClosed
	}
	if f.dirty {
		if err := f.writeHeader(); err != nil {
			return err
		}
	}
	return f.f.Sync()
}

func (f *File) Path() string { return f.path }

// CacheStats describes the node cache of an open file.
type CacheStats struct {
	Size    int    `json:"size"`
	MaxSize int    `json:"maxSize"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

func (f *File) CacheStats() CacheStats {
	hits, misses := f.nodes.Stats()
	return CacheStats{Size: f.nodes.Len(), MaxSize: f.nodes.MaxSize(), Hits: hits, Misses: misses}
}

// Size returns the current size of the file in bytes.
func (f *File) Size() (int64, error) {
	if f.closed {
		return 0, ErrClosed
	}
	st, err := f.f.Stat()
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

func (f *File) Close() error {
	if f.closed {
		return ErrClosed
	}
	err := f.Flush()
	if cerr := f.f.Close(); err == nil {
		err = cerr
	}
	f.closed = true
	f.nodes.Clear()
	log.Debug("closed index file", "path", f.path)
	if err != nil {
		return fmt.Errorf("failed to close %s: %w", f.path, err)
	}
	return nil
}

// LoadMemory reads every slot of an index file into a Memory backend and closes
// the file again. Later writes never reach the file.
func LoadMemory(path string) (*Memory, error) {
	f, err := OpenFile(path, WithCacheSize(1))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m := NewMemory(int(f.meta.PayloadSize))
	for id := int32(0); id < f.meta.Capacity; id++ {
		n, _, err := f.Get(id)
		if err != nil {
			return nil, err
		}
		m.nodes[id] = n
	}
	m.meta = f.meta
	m.meta.Version = 0
	return m, nil
}
