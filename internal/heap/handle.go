package heap

import (
	"fmt"

	"github.com/tuannm99/heapsql/internal/storage"
)

// Handle is a row's identity inside a heap file: the block and the slot in it.
// Handles are never reused, even after the row is deleted.
type Handle struct {
	BlockID  storage.BlockID
	RecordID storage.RecordID
}

func (h Handle) String() string {
	return fmt.Sprintf("(%d,%d)", h.BlockID, h.RecordID)
}

// Less orders handles by block, then slot.
func (h Handle) Less(o Handle) bool {
	if h.BlockID != o.BlockID {
		return h.BlockID < o.BlockID
	}
	return h.RecordID < o.RecordID
}
