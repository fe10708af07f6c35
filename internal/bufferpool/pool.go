package bufferpool

import (
	"sync"

	"github.com/tuannm99/heapsql/internal/storage"
)

var DefaultCapacity = 128

type Replacer interface {
	RecordAccess(frameID int)
	SetEvictable(frameID int, evictable bool)
	Evict() (frameID int, ok bool)
	Remove(frameID int)
	Reset()
	Size() int
}

// Frame holds one cached block image.
type Frame struct {
	BlockID storage.BlockID
	Data    []byte
}

// Stats counts cache traffic since the pool was created.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

var _ storage.BlockStore = (*Pool)(nil)

// Pool is a write-through block cache in front of one BlockStore. Callers
// always receive copies, so nothing is pinned and every frame is evictable.
type Pool struct {
	inner storage.BlockStore

	mu         sync.Mutex
	frames     []*Frame                // len == capacity, nil == free slot
	blockTable map[storage.BlockID]int // BlockID -> frame index
	stats      Stats

	replacementPolicy Replacer
}

func NewPool(inner storage.BlockStore, capacity int) *Pool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Pool{
		inner:             inner,
		frames:            make([]*Frame, capacity),
		blockTable:        make(map[storage.BlockID]int),
		replacementPolicy: newClockAdapter(capacity),
	}
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Pool) Get(id storage.BlockID) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// 1) HIT
	if idx, ok := p.blockTable[id]; ok {
		if f := p.frames[idx]; f != nil {
			p.stats.Hits++
			p.replacementPolicy.RecordAccess(idx)
			return append([]byte(nil), f.Data...), nil
		}
		// mapping without a frame: drop it and reload
		delete(p.blockTable, id)
	}

	// 2) MISS
	p.stats.Misses++
	data, err := p.inner.Get(id)
	if err != nil {
		return nil, err
	}
	p.install(id, data)
	return append([]byte(nil), data...), nil
}

// Put writes through to the inner store, then refreshes the cached image.
func (p *Pool) Put(id storage.BlockID, block []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.inner.Put(id, block); err != nil {
		return err
	}
	p.install(id, append([]byte(nil), block...))
	return nil
}

func (p *Pool) AppendNew() (storage.BlockID, []byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, data, err := p.inner.AppendNew()
	if err != nil {
		return 0, nil, err
	}
	p.install(id, append([]byte(nil), data...))
	return id, data, nil
}

func (p *Pool) BlockIDs() ([]storage.BlockID, error) {
	return p.inner.BlockIDs()
}

func (p *Pool) Drop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.inner.Drop(); err != nil {
		return err
	}
	p.reset()
	return nil
}

func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reset()
	return p.inner.Close()
}

// install caches data (owned by the pool from here on) under id.
// Caller holds p.mu.
func (p *Pool) install(id storage.BlockID, data []byte) {
	if idx, ok := p.blockTable[id]; ok && p.frames[idx] != nil {
		p.frames[idx].Data = data
		p.replacementPolicy.RecordAccess(idx)
		return
	}

	idx := -1
	for i, f := range p.frames {
		if f == nil {
			idx = i
			break
		}
	}
	if idx == -1 {
		victim, ok := p.replacementPolicy.Evict()
		if !ok {
			// every frame is evictable, so this only happens with a broken replacer
			return
		}
		if f := p.frames[victim]; f != nil {
			delete(p.blockTable, f.BlockID)
		}
		p.stats.Evictions++
		idx = victim
	}

	p.frames[idx] = &Frame{BlockID: id, Data: data}
	p.blockTable[id] = idx
	p.replacementPolicy.RecordAccess(idx)
	p.replacementPolicy.SetEvictable(idx, true)
}

// Caller holds p.mu.
func (p *Pool) reset() {
	clear(p.frames)
	clear(p.blockTable)
	p.replacementPolicy.Reset()
}
