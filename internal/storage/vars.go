package storage

import (
	"errors"
	"fmt"
)

const (
	OneKB = 1 << 10
	OneGB = 1 << 30

	BlockSize      = 4 * OneKB // 4,096 bytes, shared by every page
	SlotHeaderSize = 4         // size u16 + offset u16

	// MaxRecordSize is the largest payload an empty page can admit: the page
	// header slot plus the record's own slot header are the only overhead.
	MaxRecordSize = BlockSize - 2*SlotHeaderSize

	SegmentSize        = 1 * OneGB
	MaxBlockPerSegment = SegmentSize / BlockSize
)

const (
	FileMode0644 = 0o644
	FileMode0755 = 0o755
)

// BlockID addresses a block inside one relation, starting at 1.
type BlockID uint32

// RecordID addresses a slot inside one page, starting at 1. Slot 0 is the header.
type RecordID uint16

type StorageMode int

const (
	File   StorageMode = iota + 1 // segment files under a work directory
	Memory                        // process-local, for tests and scratch sessions
)

func (s StorageMode) String() string {
	switch s {
	case File:
		return "file"
	case Memory:
		return "memory"
	default:
		return "unknown"
	}
}

func GetStorageMode(s string) (StorageMode, error) {
	switch s {
	case "file", "":
		return File, nil
	case "memory":
		return Memory, nil
	default:
		return 0, fmt.Errorf("invalid storage mode: %s", s)
	}
}

var (
	// ErrNoRoom means a page cannot admit a record at the requested size.
	ErrNoRoom = errors.New("storage: not enough room in block")

	// ErrRelation marks storage-level contract violations. Use Relationf to
	// build one and errors.Is(err, ErrRelation) to test for it.
	ErrRelation = errors.New("relation error")

	ErrWrongSize     = errors.New("storage: buffer size != BlockSize")
	ErrCorruption    = errors.New("storage: corrupt slot or record bounds")
	ErrBlockNotFound = errors.New("storage: block not found")
	ErrStoreExists   = errors.New("storage: store already exists")
	ErrStoreNotFound = errors.New("storage: store not found")
	ErrStoreDropped  = errors.New("storage: store has been dropped")
	ErrStoreClosed   = errors.New("storage: store is closed")
)

// Relationf formats a relation error that still matches ErrRelation.
func Relationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRelation, fmt.Sprintf(format, args...))
}
