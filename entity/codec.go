// Package entity holds the chess-database records kept in the index files and the
// fixed-length binary codecs that store them.
package entity

import "encoding/binary"

// Codec converts entities of one kind to and from their fixed-length record payload
// and defines the order the index keeps them in.
//
// Marshal must fill exactly Size() bytes of dst. Unmarshal always receives Size()
// bytes; fields the stored record did not have arrive as zero bytes.
type Codec[E any] interface {
	Size() int
	Marshal(e E, dst []byte)
	Unmarshal(id int32, src []byte) (E, error)
	Compare(a, b E) int
	ID(e E) int32
}

// Refs is the trailer shared by every entity kind: how many games reference the
// entity and the first of them in the game→entity block index.
type Refs struct {
	Count       int32 `json:"count"`
	FirstGameID int32 `json:"firstGameId"`
}

const refsSize = 8

func putRefs(dst []byte, r Refs) {
	putInt32(dst[0:4], r.Count)
	putInt32(dst[4:8], r.FirstGameID)
}

func getRefs(src []byte) Refs {
	return Refs{Count: getInt32(src[0:4]), FirstGameID: getInt32(src[4:8])}
}

func putInt32(dst []byte, v int32) {
	binary.LittleEndian.PutUint32(dst, uint32(v))
}

func getInt32(src []byte) int32 {
	return int32(binary.LittleEndian.Uint32(src))
}

func compareInt[T ~int32 | ~int | ~uint8](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
