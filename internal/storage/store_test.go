package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	return map[string]Backend{
		"file":   NewFileBackend(t.TempDir()),
		"memory": NewMemBackend(),
	}
}

func TestBackend_CreateOpenExists(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ok, err := b.Exists("users")
			require.NoError(t, err)
			assert.False(t, ok)

			_, err = b.Open("users")
			require.ErrorIs(t, err, ErrStoreNotFound)

			st, err := b.Create("users")
			require.NoError(t, err)
			ids, err := st.BlockIDs()
			require.NoError(t, err)
			assert.Empty(t, ids)

			ok, err = b.Exists("users")
			require.NoError(t, err)
			assert.True(t, ok)

			_, err = b.Create("users")
			require.ErrorIs(t, err, ErrStoreExists)

			_, err = b.Exists("../escape")
			require.Error(t, err)

			// index files are named table$index
			st, err = b.Create("users$by_name")
			require.NoError(t, err)
			require.NoError(t, st.Close())
			ok, err = b.Exists("users$by_name")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestBlockStore_AppendGetPut(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			st, err := b.Create("t")
			require.NoError(t, err)

			id, buf, err := st.AppendNew()
			require.NoError(t, err)
			assert.Equal(t, BlockID(1), id)
			assert.Len(t, buf, BlockSize)

			p, err := NewSlottedPage(buf, id, true)
			require.NoError(t, err)
			_, err = p.Add([]byte("hello"))
			require.NoError(t, err)
			require.NoError(t, st.Put(id, p.Bytes()))

			id2, _, err := st.AppendNew()
			require.NoError(t, err)
			assert.Equal(t, BlockID(2), id2)

			got, err := st.Get(1)
			require.NoError(t, err)
			p2, err := NewSlottedPage(got, 1, false)
			require.NoError(t, err)
			rec, err := p2.Get(1)
			require.NoError(t, err)
			assert.Equal(t, []byte("hello"), rec)

			_, err = st.Get(3)
			require.ErrorIs(t, err, ErrBlockNotFound)
			_, err = st.Get(0)
			require.ErrorIs(t, err, ErrBlockNotFound)
			require.ErrorIs(t, st.Put(1, make([]byte, 3)), ErrWrongSize)

			ids, err := st.BlockIDs()
			require.NoError(t, err)
			assert.Equal(t, []BlockID{1, 2}, ids)
		})
	}
}

func TestBlockStore_ReopenSeesBlocks(t *testing.T) {
	dir := t.TempDir()
	b := NewFileBackend(dir)
	st, err := b.Create("orders")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, _, err := st.AppendNew()
		require.NoError(t, err)
	}
	require.NoError(t, st.Close())

	_, err = st.Get(1)
	require.ErrorIs(t, err, ErrStoreClosed)

	// a fresh backend recounts from the segment files
	st2, err := NewFileBackend(dir).Open("orders")
	require.NoError(t, err)
	ids, err := st2.BlockIDs()
	require.NoError(t, err)
	assert.Equal(t, []BlockID{1, 2, 3}, ids)

	_, err = os.Stat(filepath.Join(dir, "orders.db"))
	require.NoError(t, err)
}

func TestBlockStore_HandlesShareBlockCount(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			a, err := b.Create("shared")
			require.NoError(t, err)
			other, err := b.Open("shared")
			require.NoError(t, err)

			_, _, err = a.AppendNew()
			require.NoError(t, err)

			ids, err := other.BlockIDs()
			require.NoError(t, err)
			assert.Equal(t, []BlockID{1}, ids)
		})
	}
}

func TestBlockStore_Drop(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			st, err := b.Create("gone")
			require.NoError(t, err)
			_, _, err = st.AppendNew()
			require.NoError(t, err)

			require.NoError(t, st.Drop())
			require.ErrorIs(t, st.Drop(), ErrStoreDropped)
			_, err = st.Get(1)
			require.ErrorIs(t, err, ErrStoreDropped)

			ok, err := b.Exists("gone")
			require.NoError(t, err)
			assert.False(t, ok)

			// the name can be reused
			st2, err := b.Create("gone")
			require.NoError(t, err)
			ids, err := st2.BlockIDs()
			require.NoError(t, err)
			assert.Empty(t, ids)
		})
	}
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend(Memory, "")
	require.NoError(t, err)
	assert.IsType(t, &MemBackend{}, b)

	b, err = NewBackend(File, t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, b)

	_, err = NewBackend(File, "")
	require.Error(t, err)

	mode, err := GetStorageMode("memory")
	require.NoError(t, err)
	assert.Equal(t, Memory, mode)
	_, err = GetStorageMode("tape")
	require.Error(t, err)
}

func TestSegmentsAcrossBoundary(t *testing.T) {
	sm := NewStorageManager()
	seg, off := sm.locate(1)
	assert.Equal(t, int32(0), seg)
	assert.Equal(t, int64(0), off)

	seg, off = sm.locate(BlockID(MaxBlockPerSegment + 1))
	assert.Equal(t, int32(1), seg)
	assert.Equal(t, int64(0), off)

	assert.Equal(t, "base", SegFileName("base", 0))
	assert.Equal(t, "base.2", SegFileName("base", 2))
}
