package bufferpool

import (
	"sync"

	"github.com/tuannm99/heapsql/internal/lock"
	"github.com/tuannm99/heapsql/internal/storage"
)

var _ storage.Backend = (*Backend)(nil)

// Backend wraps another backend so that every store it hands out is served
// through a Pool. All handles on one name share the same pool, which keeps
// cached images coherent between them. A pool is released when its last
// handle closes.
type Backend struct {
	inner    storage.Backend
	capacity int

	mu    sync.Mutex
	pools map[string]*sharedPool
}

type sharedPool struct {
	pool *Pool
	refs *lock.RefCount
}

func NewBackend(inner storage.Backend, capacity int) *Backend {
	return &Backend{inner: inner, capacity: capacity, pools: make(map[string]*sharedPool)}
}

func (b *Backend) Exists(name string) (bool, error) {
	return b.inner.Exists(name)
}

func (b *Backend) Create(name string) (storage.BlockStore, error) {
	st, err := b.inner.Create(name)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attach(name, st), nil
}

func (b *Backend) Open(name string) (storage.BlockStore, error) {
	b.mu.Lock()
	if sp, ok := b.pools[name]; ok {
		sp.refs.Inc()
		b.mu.Unlock()
		return &handle{b: b, name: name, pool: sp.pool}, nil
	}
	b.mu.Unlock()

	st, err := b.inner.Open(name)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if sp, ok := b.pools[name]; ok {
		// lost a race with another opener
		_ = st.Close()
		sp.refs.Inc()
		return &handle{b: b, name: name, pool: sp.pool}, nil
	}
	return b.attach(name, st), nil
}

// attach wraps st in a fresh pool registered under name. Caller holds b.mu.
func (b *Backend) attach(name string, st storage.BlockStore) *handle {
	p := NewPool(st, b.capacity)
	b.pools[name] = &sharedPool{pool: p, refs: lock.NewRefCount()}
	return &handle{b: b, name: name, pool: p}
}

// release drops one reference to pool and closes it after the last one.
func (b *Backend) release(name string, pool *Pool) error {
	b.mu.Lock()
	sp, ok := b.pools[name]
	if !ok || sp.pool != pool || !sp.refs.Dec() {
		b.mu.Unlock()
		return nil
	}
	delete(b.pools, name)
	b.mu.Unlock()
	return pool.Close()
}

// Pool returns the shared pool for name, if one is live.
func (b *Backend) Pool(name string) (*Pool, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sp, ok := b.pools[name]
	if !ok {
		return nil, false
	}
	return sp.pool, true
}

type handle struct {
	b      *Backend
	name   string
	pool   *Pool
	closed bool
}

func (h *handle) usable() error {
	if h.closed {
		return storage.ErrStoreClosed
	}
	return nil
}

func (h *handle) Get(id storage.BlockID) ([]byte, error) {
	if err := h.usable(); err != nil {
		return nil, err
	}
	return h.pool.Get(id)
}

func (h *handle) Put(id storage.BlockID, block []byte) error {
	if err := h.usable(); err != nil {
		return err
	}
	return h.pool.Put(id, block)
}

func (h *handle) AppendNew() (storage.BlockID, []byte, error) {
	if err := h.usable(); err != nil {
		return 0, nil, err
	}
	return h.pool.AppendNew()
}

func (h *handle) BlockIDs() ([]storage.BlockID, error) {
	if err := h.usable(); err != nil {
		return nil, err
	}
	return h.pool.BlockIDs()
}

func (h *handle) Drop() error {
	if err := h.usable(); err != nil {
		return err
	}
	if err := h.pool.Drop(); err != nil {
		return err
	}
	h.closed = true
	h.b.mu.Lock()
	if sp, ok := h.b.pools[h.name]; ok && sp.pool == h.pool {
		delete(h.b.pools, h.name)
	}
	h.b.mu.Unlock()
	return nil
}

// Close detaches this handle. The shared pool stays warm while other handles
// hold it.
func (h *handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return h.b.release(h.name, h.pool)
}
