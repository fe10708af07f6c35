package index

import (
	"github.com/tuannm99/heapsql/internal/heap"
	"github.com/tuannm99/heapsql/internal/storage"
)

// dropFile removes the index file if present. Dropping twice is fine.
func dropFile(backend storage.Backend, name string) error {
	ok, err := backend.Exists(name)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return heap.NewFile(name, backend).Drop()
}
