package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tuannm99/heapsql/internal/alias/util"
)

type FileSet interface {
	OpenSegment(segNo int32) (*os.File, error)
	Segments() ([]int32, error)
}

var _ FileSet = (*LocalFileSet)(nil)

// LocalFileSet represents a local directory + base file name.
// Segments are stored as: Base, Base.1, Base.2, ...
type LocalFileSet struct {
	Dir  string
	Base string
}

func (lfs LocalFileSet) OpenSegment(segNo int32) (*os.File, error) {
	path := filepath.Join(lfs.Dir, SegFileName(lfs.Base, segNo))
	if err := os.MkdirAll(lfs.Dir, FileMode0755); err != nil {
		return nil, err
	}
	// RDWR | CREATE (no truncate)
	return os.OpenFile(path, os.O_RDWR|os.O_CREATE, FileMode0644)
}

func (lfs LocalFileSet) Segments() ([]int32, error) {
	return listSegmentsLocal(lfs)
}

// StorageManager maps a logical BlockID -> (segment, offset).
// Block n lives at byte (n-1)*BlockSize of the concatenated segments.
type StorageManager struct{}

func NewStorageManager() *StorageManager {
	return &StorageManager{}
}

func (sm *StorageManager) locate(id BlockID) (segNo int32, offset int64) {
	idx := int64(id) - 1
	segNo = int32(idx / MaxBlockPerSegment)
	offset = (idx % MaxBlockPerSegment) * BlockSize
	return segNo, offset
}

// ReadBlock reads exactly one block into dst. A short file zero-fills the rest,
// which higher layers treat as an uninitialized block.
func (sm *StorageManager) ReadBlock(fs FileSet, id BlockID, dst []byte) error {
	if len(dst) != BlockSize {
		return ErrWrongSize
	}
	if id == 0 {
		return fmt.Errorf("%w: block 0", ErrBlockNotFound)
	}
	segNo, off := sm.locate(id)
	f, err := fs.OpenSegment(segNo)
	if err != nil {
		return err
	}
	defer util.CloseFunc(f)

	n, err := f.ReadAt(dst, off)
	if err != nil && err != io.EOF {
		return err
	}
	clear(dst[n:])
	return nil
}

// WriteBlock writes exactly one block from src at the location of id.
func (sm *StorageManager) WriteBlock(fs FileSet, id BlockID, src []byte) error {
	if len(src) != BlockSize {
		return ErrWrongSize
	}
	if id == 0 {
		return fmt.Errorf("%w: block 0", ErrBlockNotFound)
	}
	segNo, off := sm.locate(id)
	f, err := fs.OpenSegment(segNo)
	if err != nil {
		return err
	}
	defer util.CloseFunc(f)

	n, err := f.WriteAt(src, off)
	if err != nil {
		return err
	}
	if n != BlockSize {
		return io.ErrShortWrite
	}
	return nil
}

// CountBlocks computes the number of whole blocks stored across all segments.
func (sm *StorageManager) CountBlocks(fs FileSet) (BlockID, error) {
	segs, err := fs.Segments()
	if err != nil {
		return 0, err
	}

	var total int64
	for _, segNo := range segs {
		f, err := fs.OpenSegment(segNo)
		if err != nil {
			return 0, err
		}
		info, statErr := f.Stat()
		_ = f.Close()
		if statErr != nil {
			return 0, statErr
		}
		total += info.Size() / BlockSize
	}
	return BlockID(total), nil
}
