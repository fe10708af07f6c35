package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/heapsql/internal/storage"
)

func TestFile_CreateAllocatesFirstBlock(t *testing.T) {
	f := NewFile("f", storage.NewMemBackend())
	require.NoError(t, f.Create())

	ids, err := f.BlockIDs()
	require.NoError(t, err)
	assert.Equal(t, []storage.BlockID{1}, ids)

	p, err := f.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 0, p.NumRecords())
	assert.Equal(t, storage.BlockSize-storage.SlotHeaderSize, p.FreeSpace())
}

func TestFile_GetOutOfRange(t *testing.T) {
	f := NewFile("f", storage.NewMemBackend())
	require.NoError(t, f.Create())

	for _, id := range []storage.BlockID{0, 2, 99} {
		_, err := f.Get(id)
		require.ErrorIs(t, err, storage.ErrRelation, "block %d", id)
	}
}

func TestFile_GetNewAndPut(t *testing.T) {
	f := NewFile("f", storage.NewMemBackend())
	require.NoError(t, f.Create())

	p, err := f.GetNew()
	require.NoError(t, err)
	assert.Equal(t, storage.BlockID(2), p.BlockID())

	rid, err := p.Add([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, f.Put(p))

	again, err := f.Get(2)
	require.NoError(t, err)
	got, err := again.Get(rid)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	last, err := f.Last()
	require.NoError(t, err)
	assert.Equal(t, storage.BlockID(2), last)
}

func TestFile_CreateIfNotExistsReopens(t *testing.T) {
	dir := t.TempDir()
	f := NewFile("f", storage.NewFileBackend(dir))
	require.NoError(t, f.CreateIfNotExists())
	_, err := f.GetNew()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	g := NewFile("f", storage.NewFileBackend(dir))
	require.NoError(t, g.CreateIfNotExists())
	ids, err := g.BlockIDs()
	require.NoError(t, err)
	assert.Equal(t, []storage.BlockID{1, 2}, ids)

	require.ErrorIs(t, NewFile("f", storage.NewFileBackend(dir)).Create(), storage.ErrStoreExists)
}

func TestFile_AutoOpens(t *testing.T) {
	b := storage.NewMemBackend()
	require.NoError(t, NewFile("f", b).Create())

	f := NewFile("f", b)
	_, err := f.Get(1)
	require.NoError(t, err)
}

func TestFile_SecondHandleSeesGrowth(t *testing.T) {
	b := storage.NewMemBackend()
	a := NewFile("f", b)
	require.NoError(t, a.Create())
	other := NewFile("f", b)
	require.NoError(t, other.Open())

	_, err := a.GetNew()
	require.NoError(t, err)

	_, err = other.Get(2)
	require.NoError(t, err)
}

func TestFile_DropIsTerminal(t *testing.T) {
	b := storage.NewMemBackend()
	f := NewFile("f", b)
	require.NoError(t, f.Create())
	require.NoError(t, f.Drop())

	ok, err := b.Exists("f")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.Get(1)
	require.ErrorIs(t, err, ErrFileDropped)
	_, err = f.GetNew()
	require.ErrorIs(t, err, ErrFileDropped)
	require.ErrorIs(t, f.Open(), ErrFileDropped)
	require.ErrorIs(t, f.Drop(), ErrFileDropped)
}
