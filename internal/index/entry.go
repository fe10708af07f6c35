package index

import (
	"bytes"
	"sort"

	"github.com/tuannm99/heapsql/internal/alias/bx"
	"github.com/tuannm99/heapsql/internal/heap"
	"github.com/tuannm99/heapsql/internal/storage"
)

// entryOverhead is the fixed part of one entry:
// 2 bytes key length + 4 bytes BlockID + 2 bytes RecordID.
const entryOverhead = 2 + 4 + 2

// MaxKeySize is the largest encoded key one entry can carry.
const MaxKeySize = storage.MaxRecordSize - entryOverhead

// Entry maps an encoded key to the row it came from.
type Entry struct {
	Key    []byte
	Handle heap.Handle
}

// EncodeEntry lays out [key len u16][key][BlockID u32][RecordID u16].
func EncodeEntry(e Entry) ([]byte, error) {
	if len(e.Key) > MaxKeySize {
		return nil, ErrKeyTooLarge
	}
	w := bx.NewWriter(entryOverhead + len(e.Key))
	w.U16(uint16(len(e.Key)))
	w.Raw(e.Key)
	w.U32(uint32(e.Handle.BlockID))
	w.U16(uint16(e.Handle.RecordID))
	return w.Bytes(), nil
}

func DecodeEntry(b []byte) (Entry, error) {
	r := bx.NewReader(b)
	n, err := r.U16()
	if err != nil {
		return Entry{}, err
	}
	key, err := r.Bytes(int(n))
	if err != nil {
		return Entry{}, err
	}
	block, err := r.U32()
	if err != nil {
		return Entry{}, err
	}
	rec, err := r.U16()
	if err != nil {
		return Entry{}, err
	}
	if r.Len() != 0 {
		return Entry{}, storage.ErrCorruption
	}
	return Entry{
		Key:    key,
		Handle: heap.Handle{BlockID: storage.BlockID(block), RecordID: storage.RecordID(rec)},
	}, nil
}

// sortEntries orders by key, then handle.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if c := bytes.Compare(entries[i].Key, entries[j].Key); c != 0 {
			return c < 0
		}
		// deterministic tie-breaker
		return entries[i].Handle.Less(entries[j].Handle)
	})
}

// lowerBound returns the first position whose key is >= target.
func lowerBound(entries []Entry, target []byte) int {
	lo, hi := 0, len(entries)
	for lo < hi {
		mid := (lo + hi) / 2
		if bytes.Compare(entries[mid].Key, target) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// firstDuplicate returns the index of the first entry sharing its key with
// the one before it, or -1. entries must be sorted.
func firstDuplicate(entries []Entry) int {
	for i := 1; i < len(entries); i++ {
		if bytes.Equal(entries[i-1].Key, entries[i].Key) {
			return i
		}
	}
	return -1
}
