package storage

import (
	"fmt"
	"sort"
)

// Memory is a Backend that keeps every slot in a map. Nothing survives Close.
type Memory struct {
	nodes  map[int32]Node
	meta   Metadata
	closed bool
}

func NewMemory(payloadSize int) *Memory {
	return &Memory{
		nodes: make(map[int32]Node),
		meta:  emptyMetadata(payloadSize),
	}
}

func (m *Memory) Get(id int32) (Node, bool, error) {
	if m.closed {
		return Node{}, false, ErrClosed
	}
	n, ok := m.nodes[id]
	if !ok {
		return Node{}, false, nil
	}
	return n.Clone(), true, nil
}

func (m *Memory) GetRange(start, end int32) ([]Node, error) {
	if m.closed {
		return nil, ErrClosed
	}
	start = max(start, 0)
	end = min(end, m.meta.Capacity)
	var out []Node
	if int(end-start) <= len(m.nodes) {
		for id := start; id < end; id++ {
			if n, ok := m.nodes[id]; ok && !n.Deleted {
				out = append(out, n.Clone())
			}
		}
		return out, nil
	}
	for id, n := range m.nodes {
		if id >= start && id < end && !n.Deleted {
			out = append(out, n.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Put(n Node) error {
	if m.closed {
		return ErrClosed
	}
	if n.ID < 0 {
		return fmt.Errorf("failed to put node: invalid id %d", n.ID)
	}
	if !n.Deleted && len(n.Payload) != int(m.meta.PayloadSize) {
		return fmt.Errorf("failed to put node %d: payload is %d bytes, store expects %d", n.ID, len(n.Payload), m.meta.PayloadSize)
	}
	m.nodes[n.ID] = n.Clone()
	if n.ID >= m.meta.Capacity {
		m.meta.Capacity = n.ID + 1
	}
	return nil
}

func (m *Memory) Capacity() (int32, error) {
	if m.closed {
		return 0, ErrClosed
	}
	return m.meta.Capacity, nil
}

func (m *Memory) SetCapacity(capacity int32) error {
	if m.closed {
		return ErrClosed
	}
	m.meta.Capacity = max(m.meta.Capacity, capacity)
	return nil
}

func (m *Memory) Metadata() (Metadata, error) {
	if m.closed {
		return Metadata{}, ErrClosed
	}
	return m.meta, nil
}

func (m *Memory) SetMetadata(meta Metadata) error {
	if m.closed {
		return ErrClosed
	}
	meta.Capacity = max(meta.Capacity, m.meta.Capacity)
	meta.PayloadSize = m.meta.PayloadSize
	meta.HeaderSize = m.meta.HeaderSize
	m.meta = meta
	return nil
}

func (m *Memory) Close() error {
	if m.closed {
		return ErrClosed
	}
	m.closed = true
	m.nodes = nil
	return nil
}
