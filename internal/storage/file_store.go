package storage

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
)

const fileExt = ".db"

var _ Backend = (*FileBackend)(nil)

// FileBackend keeps one segmented file set per relation under Dir. Handles
// opened on the same name share their block count.
type FileBackend struct {
	Dir string
	sm  *StorageManager

	mu    sync.Mutex
	state map[string]*fileState
}

type fileState struct {
	last    BlockID
	dropped bool
}

func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{Dir: dir, sm: NewStorageManager(), state: make(map[string]*fileState)}
}

func (b *FileBackend) fileSet(name string) LocalFileSet {
	return LocalFileSet{Dir: b.Dir, Base: name + fileExt}
}

func (b *FileBackend) Exists(name string) (bool, error) {
	if err := validName(name); err != nil {
		return false, err
	}
	segs, err := listSegmentsLocal(b.fileSet(name))
	if err != nil {
		return false, err
	}
	return len(segs) > 0, nil
}

func (b *FileBackend) Create(name string) (BlockStore, error) {
	ok, err := b.Exists(name)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, fmt.Errorf("%w: %s", ErrStoreExists, name)
	}

	fs := b.fileSet(name)
	if err := os.MkdirAll(b.Dir, FileMode0755); err != nil {
		return nil, err
	}
	f, err := fs.OpenSegment(0)
	if err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	slog.Debug("storage: created file set", "dir", fs.Dir, "base", fs.Base)

	st := &fileState{}
	b.mu.Lock()
	b.state[name] = st
	b.mu.Unlock()
	return &fileStore{b: b, name: name, fs: fs, st: st}, nil
}

func (b *FileBackend) Open(name string) (BlockStore, error) {
	ok, err := b.Exists(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	fs := b.fileSet(name)
	st, ok := b.state[name]
	if !ok {
		last, err := b.sm.CountBlocks(fs)
		if err != nil {
			return nil, err
		}
		st = &fileState{last: last}
		b.state[name] = st
	}
	return &fileStore{b: b, name: name, fs: fs, st: st}, nil
}

// fileStore opens segment files per call, so it holds no descriptors between
// operations.
type fileStore struct {
	b      *FileBackend
	name   string
	fs     LocalFileSet
	st     *fileState
	closed bool
}

func (s *fileStore) usable() error {
	if s.st.dropped {
		return ErrStoreDropped
	}
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

func (s *fileStore) checkID(id BlockID) error {
	if id == 0 || id > s.st.last {
		return fmt.Errorf("%w: %s block %d (last %d)", ErrBlockNotFound, s.fs.Base, id, s.st.last)
	}
	return nil
}

func (s *fileStore) Get(id BlockID) ([]byte, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	if err := s.checkID(id); err != nil {
		return nil, err
	}
	buf := make([]byte, BlockSize)
	if err := s.b.sm.ReadBlock(s.fs, id, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *fileStore) Put(id BlockID, block []byte) error {
	if err := s.usable(); err != nil {
		return err
	}
	if err := s.checkID(id); err != nil {
		return err
	}
	return s.b.sm.WriteBlock(s.fs, id, block)
}

func (s *fileStore) AppendNew() (BlockID, []byte, error) {
	if err := s.usable(); err != nil {
		return 0, nil, err
	}
	id := s.st.last + 1
	buf := make([]byte, BlockSize)
	if err := s.b.sm.WriteBlock(s.fs, id, buf); err != nil {
		return 0, nil, err
	}
	s.st.last = id
	return id, buf, nil
}

func (s *fileStore) BlockIDs() ([]BlockID, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	return blockRange(make([]BlockID, 0, s.st.last), s.st.last), nil
}

func (s *fileStore) Drop() error {
	if s.st.dropped {
		return ErrStoreDropped
	}
	if err := RemoveAllSegments(s.fs); err != nil {
		return err
	}
	s.st.dropped = true
	s.st.last = 0

	s.b.mu.Lock()
	if s.b.state[s.name] == s.st {
		delete(s.b.state, s.name)
	}
	s.b.mu.Unlock()
	slog.Debug("storage: dropped file set", "dir", s.fs.Dir, "base", s.fs.Base)
	return nil
}

func (s *fileStore) Close() error {
	s.closed = true
	return nil
}
