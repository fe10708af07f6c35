package storage

import (
	"fmt"
	"strings"
)

// BlockStore is the raw block storage behind one relation. Blocks are
// numbered from 1 and every block is exactly BlockSize bytes.
type BlockStore interface {
	Get(id BlockID) ([]byte, error)
	Put(id BlockID, block []byte) error
	// AppendNew allocates the next block id, zero-filled.
	AppendNew() (BlockID, []byte, error)
	BlockIDs() ([]BlockID, error)
	// Drop releases the storage; the store is unusable afterwards.
	Drop() error
	Close() error
}

// Backend names and creates block stores.
type Backend interface {
	Exists(name string) (bool, error)
	Create(name string) (BlockStore, error)
	Open(name string) (BlockStore, error)
}

// NewBackend selects a backend implementation for mode.
func NewBackend(mode StorageMode, workdir string) (Backend, error) {
	switch mode {
	case File:
		if workdir == "" {
			return nil, fmt.Errorf("storage: file mode needs a workdir")
		}
		return NewFileBackend(workdir), nil
	case Memory:
		return NewMemBackend(), nil
	default:
		return nil, fmt.Errorf("storage: unsupported storage mode %v", mode)
	}
}

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("storage: invalid store name %q", name)
	}
	return nil
}

func blockRange(ids []BlockID, last BlockID) []BlockID {
	for i := BlockID(1); i <= last; i++ {
		ids = append(ids, i)
	}
	return ids
}
