package storage

import (
	"fmt"
	"sync"
)

var _ Backend = (*MemBackend)(nil)

// MemBackend keeps block images in process memory. Stores survive Close and
// reopen for the lifetime of the backend.
type MemBackend struct {
	mu     sync.Mutex
	stores map[string]*memBlocks
}

type memBlocks struct {
	blocks  [][]byte // blocks[i] is block i+1
	dropped bool
}

func NewMemBackend() *MemBackend {
	return &MemBackend{stores: make(map[string]*memBlocks)}
}

func (b *MemBackend) Exists(name string) (bool, error) {
	if err := validName(name); err != nil {
		return false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.stores[name]
	return ok, nil
}

func (b *MemBackend) Create(name string) (BlockStore, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.stores[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrStoreExists, name)
	}
	data := &memBlocks{}
	b.stores[name] = data
	return &memStore{b: b, name: name, data: data}, nil
}

func (b *MemBackend) Open(name string) (BlockStore, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.stores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, name)
	}
	return &memStore{b: b, name: name, data: data}, nil
}

type memStore struct {
	b      *MemBackend
	name   string
	data   *memBlocks
	closed bool
}

func (s *memStore) usable() error {
	if s.data.dropped {
		return ErrStoreDropped
	}
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

func (s *memStore) checkID(id BlockID) error {
	if id == 0 || int(id) > len(s.data.blocks) {
		return fmt.Errorf("%w: %s block %d (last %d)", ErrBlockNotFound, s.name, id, len(s.data.blocks))
	}
	return nil
}

func (s *memStore) Get(id BlockID) ([]byte, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.usable(); err != nil {
		return nil, err
	}
	if err := s.checkID(id); err != nil {
		return nil, err
	}
	return append([]byte(nil), s.data.blocks[id-1]...), nil
}

func (s *memStore) Put(id BlockID, block []byte) error {
	if len(block) != BlockSize {
		return ErrWrongSize
	}
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	if err := s.checkID(id); err != nil {
		return err
	}
	copy(s.data.blocks[id-1], block)
	return nil
}

func (s *memStore) AppendNew() (BlockID, []byte, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.usable(); err != nil {
		return 0, nil, err
	}
	s.data.blocks = append(s.data.blocks, make([]byte, BlockSize))
	return BlockID(len(s.data.blocks)), make([]byte, BlockSize), nil
}

func (s *memStore) BlockIDs() ([]BlockID, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.usable(); err != nil {
		return nil, err
	}
	last := BlockID(len(s.data.blocks))
	return blockRange(make([]BlockID, 0, last), last), nil
}

func (s *memStore) Drop() error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if s.data.dropped {
		return ErrStoreDropped
	}
	if cur, ok := s.b.stores[s.name]; ok && cur == s.data {
		delete(s.b.stores, s.name)
	}
	s.data.blocks = nil
	s.data.dropped = true
	return nil
}

func (s *memStore) Close() error {
	s.closed = true
	return nil
}
