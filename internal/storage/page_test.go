package storage

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	slot1Data = []byte("data string of slot 1")
	slot2Data = []byte("data string of slot 2")
	longData  = bytes.Repeat([]byte("long longggggggggg "), 20)
)

func newPage(t *testing.T) *SlottedPage {
	t.Helper()
	buf := make([]byte, BlockSize)

	p, err := NewSlottedPage(buf, 1, true)
	require.NoError(t, err)

	assert.Equal(t, 0, p.NumRecords())
	assert.Equal(t, BlockSize-SlotHeaderSize, p.FreeSpace())

	id, err := p.Add(slot1Data)
	require.NoError(t, err)
	assert.Equal(t, RecordID(1), id)

	id, err = p.Add(slot2Data)
	require.NoError(t, err)
	assert.Equal(t, RecordID(2), id)

	assert.Equal(t, 2, p.NumRecords())
	assert.Equal(t, BlockSize-3*SlotHeaderSize-len(slot1Data)-len(slot2Data), p.FreeSpace())
	require.NotEmpty(t, p.DebugString())
	return p
}

// assertCompact checks that live records tile [endFree+1, BlockSize) exactly.
func assertCompact(t *testing.T, p *SlottedPage) {
	t.Helper()
	used := 0
	for _, h := range p.SlotHeaders() {
		if h.Tombstone() {
			assert.Zero(t, h.Offset)
			continue
		}
		assert.Greater(t, int(h.Offset), int(p.endFree))
		assert.LessOrEqual(t, int(h.Offset)+int(h.Size), BlockSize)
		used += int(h.Size)
	}
	assert.Equal(t, BlockSize-1-int(p.endFree), used)
	assert.Equal(t, int(p.endFree)+1-SlotHeaderSize*(p.NumRecords()+1), p.FreeSpace())
}

func TestNewSlottedPage_WrongSize(t *testing.T) {
	_, err := NewSlottedPage(make([]byte, 10), 1, true)
	require.ErrorIs(t, err, ErrWrongSize)
}

func TestNewSlottedPage_ReloadHeader(t *testing.T) {
	p := newPage(t)

	again, err := NewSlottedPage(p.Bytes(), 1, false)
	require.NoError(t, err)
	assert.Equal(t, 2, again.NumRecords())
	assert.Equal(t, p.FreeSpace(), again.FreeSpace())

	got, err := again.Get(2)
	require.NoError(t, err)
	assert.Equal(t, slot2Data, got)
}

func TestNewSlottedPage_ZeroBlockIsCorrupt(t *testing.T) {
	_, err := NewSlottedPage(make([]byte, BlockSize), 1, false)
	require.ErrorIs(t, err, ErrCorruption)
}

func TestSlottedPage_GetReturnsCopy(t *testing.T) {
	p := newPage(t)
	got, err := p.Get(1)
	require.NoError(t, err)
	got[0] = 'X'

	again, err := p.Get(1)
	require.NoError(t, err)
	assert.Equal(t, slot1Data, again)
}

func TestSlottedPage_BadIDs(t *testing.T) {
	p := newPage(t)

	for _, id := range []RecordID{0, 3, 100} {
		_, err := p.Get(id)
		require.ErrorIs(t, err, ErrRelation, "id %d", id)
		require.ErrorIs(t, p.Put(id, []byte("x")), ErrRelation)
		require.ErrorIs(t, p.Del(id), ErrRelation)
	}
}

func TestSlottedPage_RejectsEmptyAndHugePayloads(t *testing.T) {
	p := newPage(t)

	_, err := p.Add(nil)
	require.ErrorIs(t, err, ErrRelation)
	_, err = p.Add(make([]byte, MaxRecordSize+1))
	require.ErrorIs(t, err, ErrRelation)
	require.ErrorIs(t, p.Put(1, []byte{}), ErrRelation)
}

func TestSlottedPage_MaxRecordFitsEmptyPage(t *testing.T) {
	p, err := NewSlottedPage(make([]byte, BlockSize), 1, true)
	require.NoError(t, err)

	require.True(t, p.HasRoom(MaxRecordSize))
	_, err = p.Add(bytes.Repeat([]byte{7}, MaxRecordSize))
	require.NoError(t, err)
	assert.Equal(t, 0, p.FreeSpace())
	assert.False(t, p.HasRoom(1))
	assertCompact(t, p)
}

func TestSlottedPage_DeleteCompacts(t *testing.T) {
	p := newPage(t)
	_, err := p.Add([]byte("third"))
	require.NoError(t, err)

	before := p.FreeSpace()
	require.NoError(t, p.Del(1))
	assert.Equal(t, before+len(slot1Data), p.FreeSpace())
	assertCompact(t, p)

	_, err = p.Get(1)
	require.ErrorIs(t, err, ErrRelation)
	require.ErrorIs(t, p.Del(1), ErrRelation)

	got, err := p.Get(2)
	require.NoError(t, err)
	assert.Equal(t, slot2Data, got)
	got, err = p.Get(3)
	require.NoError(t, err)
	assert.Equal(t, []byte("third"), got)

	assert.Equal(t, []RecordID{2, 3}, p.IDs())
}

func TestSlottedPage_IDsAreNeverReused(t *testing.T) {
	p := newPage(t)
	require.NoError(t, p.Del(2))

	id, err := p.Add([]byte("after delete"))
	require.NoError(t, err)
	assert.Equal(t, RecordID(3), id)
	assert.Equal(t, []RecordID{1, 3}, p.IDs())
}

func TestSlottedPage_PutGrowShrink(t *testing.T) {
	p := newPage(t)
	_, err := p.Add([]byte("tail"))
	require.NoError(t, err)

	// grow the first record, which sits above the others
	require.NoError(t, p.Put(1, longData))
	assertCompact(t, p)

	got, err := p.Get(1)
	require.NoError(t, err)
	assert.Equal(t, longData, got)
	got, err = p.Get(2)
	require.NoError(t, err)
	assert.Equal(t, slot2Data, got)
	got, err = p.Get(3)
	require.NoError(t, err)
	assert.Equal(t, []byte("tail"), got)

	// shrink it back
	free := p.FreeSpace()
	require.NoError(t, p.Put(1, []byte("tiny")))
	assert.Equal(t, free+len(longData)-4, p.FreeSpace())
	assertCompact(t, p)

	got, err = p.Get(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("tiny"), got)
	got, err = p.Get(3)
	require.NoError(t, err)
	assert.Equal(t, []byte("tail"), got)

	// same size
	require.NoError(t, p.Put(3, []byte("TAIL")))
	got, err = p.Get(3)
	require.NoError(t, err)
	assert.Equal(t, []byte("TAIL"), got)
	assertCompact(t, p)
}

func TestSlottedPage_PutGrowNoRoom(t *testing.T) {
	p, err := NewSlottedPage(make([]byte, BlockSize), 1, true)
	require.NoError(t, err)
	_, err = p.Add(make([]byte, 2000))
	require.NoError(t, err)
	_, err = p.Add(bytes.Repeat([]byte{1}, 2000))
	require.NoError(t, err)
	require.Equal(t, 84, p.FreeSpace())

	err = p.Put(1, make([]byte, 2100))
	require.ErrorIs(t, err, ErrNoRoom)

	// failed growth leaves the page untouched
	got, err := p.Get(2)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{1}, 2000), got)
	assert.Equal(t, 84, p.FreeSpace())

	require.NoError(t, p.Put(1, make([]byte, 2084)))
	assert.Equal(t, 0, p.FreeSpace())
	assertCompact(t, p)

	_, err = p.Add([]byte("x"))
	require.True(t, errors.Is(err, ErrNoRoom))
}

func TestSlottedPage_HasRoomAgreesWithAdd(t *testing.T) {
	p, err := NewSlottedPage(make([]byte, BlockSize), 1, true)
	require.NoError(t, err)

	sizes := []int{1, 17, 100, 333, 5, 1000}
	for i := 0; ; i++ {
		size := sizes[i%len(sizes)]
		room := p.HasRoom(size)
		_, err := p.Add(make([]byte, size))
		if room {
			require.NoError(t, err)
			assertCompact(t, p)
			continue
		}
		require.ErrorIs(t, err, ErrNoRoom)
		if !p.HasRoom(1) {
			break
		}
	}
	assert.GreaterOrEqual(t, p.FreeSpace(), 0)
}

func TestSlottedPage_InterleavedMutations(t *testing.T) {
	p, err := NewSlottedPage(make([]byte, BlockSize), 1, true)
	require.NoError(t, err)

	want := map[RecordID][]byte{}
	for i := 0; i < 40; i++ {
		data := bytes.Repeat([]byte{byte('a' + i%26)}, 10+i)
		id, err := p.Add(data)
		require.NoError(t, err)
		want[id] = data
	}
	for id := RecordID(1); id <= 40; id += 3 {
		require.NoError(t, p.Del(id))
		delete(want, id)
	}
	for id := RecordID(2); id <= 40; id += 3 {
		data := bytes.Repeat([]byte{'Z'}, int(id)%7+1)
		require.NoError(t, p.Put(id, data))
		want[id] = data
	}
	assertCompact(t, p)

	for _, id := range p.IDs() {
		got, err := p.Get(id)
		require.NoError(t, err)
		assert.Equal(t, want[id], got, "record %d", id)
	}
	assert.Len(t, p.IDs(), len(want))
}
