package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payload(size int, fill byte) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = fill
	}
	return b
}

// backends runs fn against a fresh memory and a fresh file backend.
func backends(t *testing.T, payloadSize int, fn func(t *testing.T, b Backend)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemory(payloadSize))
	})
	t.Run("file", func(t *testing.T) {
		f, err := CreateFile(filepath.Join(t.TempDir(), "test.idx"), payloadSize)
		require.NoError(t, err)
		fn(t, f)
	})
}

func TestPutGrowsCapacity(t *testing.T) {
	backends(t, 4, func(t *testing.T, b Backend) {
		defer b.Close()

		require.NoError(t, b.Put(Live(0, None, None, 0, payload(4, 1))))
		require.NoError(t, b.Put(Live(1, 0, None, -1, payload(4, 2))))

		capacity, err := b.Capacity()
		require.NoError(t, err)
		assert.Equal(t, int32(2), capacity)

		n, ok, err := b.Get(1)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, int32(0), n.Left)
		assert.Equal(t, None, n.Right)
		assert.Equal(t, int8(-1), n.Balance)
		assert.Equal(t, payload(4, 2), n.Payload)
	})
}

func TestPutPastEndLeavesGapsDeleted(t *testing.T) {
	backends(t, 4, func(t *testing.T, b Backend) {
		defer b.Close()

		require.NoError(t, b.Put(Live(5, None, None, 0, payload(4, 9))))

		capacity, err := b.Capacity()
		require.NoError(t, err)
		assert.Equal(t, int32(6), capacity)

		nodes, err := b.GetRange(0, 10)
		require.NoError(t, err)
		require.Len(t, nodes, 1)
		assert.Equal(t, int32(5), nodes[0].ID)
	})
}

func TestPutPastEndSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gap.idx")
	f, err := CreateFile(path, 4)
	require.NoError(t, err)
	require.NoError(t, f.Put(Live(3, None, None, 0, payload(4, 7))))
	require.NoError(t, f.Close())

	f, err = OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	nodes, err := f.GetRange(0, 4)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, payload(4, 7), nodes[0].Payload)

	for id := int32(0); id < 3; id++ {
		n, _, err := f.Get(id)
		require.NoError(t, err)
		assert.True(t, n.Deleted, "slot %d", id)
	}
}

func TestFileCacheKeepsReadNodes(t *testing.T) {
	f, err := CreateFile(filepath.Join(t.TempDir(), "cache.idx"), 4, WithCacheSize(2))
	require.NoError(t, err)
	defer f.Close()

	for id := int32(0); id < 3; id++ {
		require.NoError(t, f.Put(Live(id, None, None, 0, payload(4, byte(id)))))
	}
	assert.Equal(t, CacheStats{MaxSize: 2}, f.CacheStats())

	_, _, err = f.Get(0)
	require.NoError(t, err)
	_, _, err = f.Get(0)
	require.NoError(t, err)
	assert.Equal(t, CacheStats{Size: 1, MaxSize: 2, Hits: 1, Misses: 1}, f.CacheStats())

	// A write to a cached slot is seen by the next read.
	require.NoError(t, f.Put(Live(0, None, None, 0, payload(4, 9))))
	n, _, err := f.Get(0)
	require.NoError(t, err)
	assert.Equal(t, payload(4, 9), n.Payload)
	assert.Equal(t, uint64(2), f.CacheStats().Hits)
}

func TestGetOutOfRangeIsAbsent(t *testing.T) {
	backends(t, 4, func(t *testing.T, b Backend) {
		defer b.Close()

		_, ok, err := b.Get(5)
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = b.Get(-3)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestGetRangeSkipsDeleted(t *testing.T) {
	backends(t, 2, func(t *testing.T, b Backend) {
		defer b.Close()

		for id := int32(0); id < 5; id++ {
			require.NoError(t, b.Put(Live(id, None, None, 0, payload(2, byte(id)))))
		}
		require.NoError(t, b.Put(Tombstone(2, None)))

		nodes, err := b.GetRange(1, 10)
		require.NoError(t, err)
		var ids []int32
		for _, n := range nodes {
			ids = append(ids, n.ID)
		}
		assert.Equal(t, []int32{1, 3, 4}, ids)

		n, ok, err := b.Get(2)
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, n.Deleted)
	})
}

func TestWrongPayloadSizeIsRejected(t *testing.T) {
	backends(t, 4, func(t *testing.T, b Backend) {
		defer b.Close()
		assert.Error(t, b.Put(Live(0, None, None, 0, payload(3, 0))))
	})
}

func TestOperationsAfterCloseFail(t *testing.T) {
	backends(t, 4, func(t *testing.T, b Backend) {
		require.NoError(t, b.Close())

		_, _, err := b.Get(0)
		assert.ErrorIs(t, err, ErrClosed)
		assert.ErrorIs(t, b.Put(Live(0, None, None, 0, payload(4, 0))), ErrClosed)
		_, err = b.Metadata()
		assert.ErrorIs(t, err, ErrClosed)
		_, err = b.GetRange(0, 1)
		assert.ErrorIs(t, err, ErrClosed)
		assert.ErrorIs(t, b.Close(), ErrClosed)
	})
}

func TestSetMetadataNeverShrinksCapacity(t *testing.T) {
	backends(t, 4, func(t *testing.T, b Backend) {
		defer b.Close()

		require.NoError(t, b.SetCapacity(3))
		require.NoError(t, b.SetMetadata(Metadata{Capacity: 1, Root: None, FirstFree: None, Version: 4}))

		m, err := b.Metadata()
		require.NoError(t, err)
		assert.Equal(t, int32(3), m.Capacity)
		assert.Equal(t, int32(4), m.PayloadSize)
		assert.Equal(t, uint64(4), m.Version)
	})
}

func TestFileReopenKeepsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "players.idx")
	f, err := CreateFile(path, 3)
	require.NoError(t, err)

	require.NoError(t, f.Put(Live(0, None, 1, 1, []byte("abc"))))
	require.NoError(t, f.Put(Live(1, None, None, 0, []byte("def"))))
	require.NoError(t, f.Put(Tombstone(2, None)))
	require.NoError(t, f.SetMetadata(Metadata{Root: 0, LiveCount: 2, FirstFree: 2}))
	require.NoError(t, f.Close())

	f, err = OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	m, err := f.Metadata()
	require.NoError(t, err)
	assert.Equal(t, Metadata{Capacity: 3, Root: 0, LiveCount: 2, FirstFree: 2, PayloadSize: 3, HeaderSize: BaseHeaderSize}, m)

	n, ok, err := f.Get(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Live(0, None, 1, 1, []byte("abc")), n)

	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(BaseHeaderSize+3*(RecordPrefixSize+3)), size)
}

func TestCreateRefusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.idx")
	f, err := CreateFile(path, 1)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = CreateFile(path, 1)
	assert.ErrorIs(t, err, os.ErrExist)
}

func TestHeaderExtensionShiftsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ext.idx")
	f, err := CreateFile(path, 2, WithHeaderExtension(12))
	require.NoError(t, err)
	require.NoError(t, f.Put(Live(0, None, None, 0, []byte("ok"))))
	require.NoError(t, f.SetMetadata(Metadata{Root: 0, LiveCount: 1, FirstFree: None}))
	require.NoError(t, f.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, raw, BaseHeaderSize+12+RecordPrefixSize+2)
	assert.Equal(t, []byte("ok"), raw[BaseHeaderSize+12+RecordPrefixSize:])

	// a newer writer put something in the extension; it must survive our writes
	raw[BaseHeaderSize] = 0x5A
	require.NoError(t, os.WriteFile(path, raw, 0644))

	f, err = OpenFile(path)
	require.NoError(t, err)
	n, ok, err := f.Get(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("ok"), n.Payload)
	require.NoError(t, f.SetMetadata(Metadata{Root: 0, LiveCount: 1, FirstFree: None}))
	require.NoError(t, f.Close())

	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, byte(0x5A), raw[BaseHeaderSize])
}

func TestTombstoneKeepsPayloadBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.idx")
	f, err := CreateFile(path, 4)
	require.NoError(t, err)
	require.NoError(t, f.Put(Live(0, None, None, 0, []byte("kept"))))
	require.NoError(t, f.Put(Tombstone(0, None)))
	require.NoError(t, f.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("kept"), raw[BaseHeaderSize+RecordPrefixSize:])
}

func TestOpenRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	short := filepath.Join(dir, "short.idx")
	require.NoError(t, os.WriteFile(short, []byte{1, 2, 3}, 0644))
	_, err := OpenFile(short)
	assert.ErrorIs(t, err, ErrTruncated)

	bad := filepath.Join(dir, "bad.idx")
	h := headerFromMetadata(emptyMetadata(4))
	h.magic = 42
	require.NoError(t, os.WriteFile(bad, h.encode(), 0644))
	_, err = OpenFile(bad)
	assert.ErrorIs(t, err, ErrBadMagic)

	cut := filepath.Join(dir, "cut.idx")
	m := emptyMetadata(4)
	m.Capacity = 10
	m.HeaderSize = BaseHeaderSize
	require.NoError(t, os.WriteFile(cut, headerFromMetadata(m).encode(), 0644))
	_, err = OpenFile(cut)
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = OpenFile(filepath.Join(dir, "missing.idx"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCorruptFlagByte(t *testing.T) {
	_, err := decodeRecord(0, []byte{0, 0, 0, 0, 0, 0, 0, 0, 0x03})
	assert.ErrorIs(t, err, ErrBadRecord)

	n, err := decodeRecord(4, encodeRecord(Tombstone(4, 9), RecordPrefixSize))
	require.NoError(t, err)
	assert.Equal(t, Tombstone(4, 9), n)
}

func TestLoadMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.idx")
	f, err := CreateFile(path, 2)
	require.NoError(t, err)
	require.NoError(t, f.Put(Live(0, None, None, 0, []byte("aa"))))
	require.NoError(t, f.Put(Tombstone(1, None)))
	require.NoError(t, f.SetMetadata(Metadata{Root: 0, LiveCount: 1, FirstFree: 1}))
	require.NoError(t, f.Close())

	m, err := LoadMemory(path)
	require.NoError(t, err)
	meta, err := m.Metadata()
	require.NoError(t, err)
	assert.Equal(t, int32(2), meta.Capacity)
	assert.Equal(t, int32(1), meta.FirstFree)

	n, ok, err := m.Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, n.Deleted)

	// writes stay in memory
	require.NoError(t, m.Put(Live(1, None, None, 0, []byte("bb"))))
	f, err = OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	n, _, err = f.Get(1)
	require.NoError(t, err)
	assert.True(t, n.Deleted)
}
