package storage

import (
	"encoding/binary"
	"fmt"
)

const (
	// Magic is the sanity constant stored in every header.
	Magic int32 = 0x4D524831

	// BaseHeaderSize is the size of the fixed header fields.
	BaseHeaderSize = 28

	// RecordPrefixSize is left child, right child and the flag byte.
	RecordPrefixSize = 9

	flagDeleted = 0x80
	balanceMask = 0x03
)

// header is the on-disk layout. Field order is part of the format.
type header struct {
	capacity    int32
	root        int32
	magic       int32
	payloadSize int32
	firstFree   int32
	liveCount   int32
	extension   int32
}

func (h header) encode() []byte {
	b := make([]byte, BaseHeaderSize)
	for i, v := range []int32{h.capacity, h.root, h.magic, h.payloadSize, h.firstFree, h.liveCount, h.extension} {
		binary.LittleEndian.PutUint32(b[i*4:], uint32(v))
	}
	return b
}

func decodeHeader(b []byte) (header, error) {
	f := func(i int) int32 { return int32(binary.LittleEndian.Uint32(b[i*4:])) }
	h := header{
		capacity:    f(0),
		root:        f(1),
		magic:       f(2),
		payloadSize: f(3),
		firstFree:   f(4),
		liveCount:   f(5),
		extension:   f(6),
	}
	if h.magic != Magic {
		return h, ErrBadMagic
	}
	if h.capacity < 0 || h.payloadSize < 0 || h.extension < 0 || h.liveCount < 0 {
		return h, fmt.Errorf("%w: negative header field", ErrBadRecord)
	}
	return h, nil
}

func headerFromMetadata(m Metadata) header {
	return header{
		capacity:    m.Capacity,
		root:        m.Root,
		magic:       Magic,
		payloadSize: m.PayloadSize,
		firstFree:   m.FirstFree,
		liveCount:   m.LiveCount,
		extension:   m.HeaderSize - BaseHeaderSize,
	}
}

// encodeRecord lays out a full record of stride bytes.
func encodeRecord(n Node, stride int) []byte {
	b := make([]byte, stride)
	if n.Deleted {
		left := None
		binary.LittleEndian.PutUint32(b[0:], uint32(left))
		binary.LittleEndian.PutUint32(b[4:], uint32(n.NextFree))
		b[8] = flagDeleted
		return b
	}
	binary.LittleEndian.PutUint32(b[0:], uint32(n.Left))
	binary.LittleEndian.PutUint32(b[4:], uint32(n.Right))
	b[8] = byte(n.Balance+1) & balanceMask
	copy(b[RecordPrefixSize:], n.Payload)
	return b
}

func decodeRecord(id int32, b []byte) (Node, error) {
	left := int32(binary.LittleEndian.Uint32(b[0:]))
	right := int32(binary.LittleEndian.Uint32(b[4:]))
	flags := b[8]
	if flags&flagDeleted != 0 {
		return Tombstone(id, right), nil
	}
	if flags&^balanceMask != 0 || flags&balanceMask == balanceMask {
		return Node{}, fmt.Errorf("%w: node %d has flags %#x", ErrBadRecord, id, flags)
	}
	payload := make([]byte, len(b)-RecordPrefixSize)
	copy(payload, b[RecordPrefixSize:])
	return Live(id, left, right, int8(flags&balanceMask)-1, payload), nil
}
