package heap

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tuannm99/heapsql/internal/storage"
)

var ErrFileDropped = errors.New("heap: file has been dropped")

// File is a named sequence of slotted pages numbered 1..Last. Blocks are
// allocated only at the end and never reused.
type File struct {
	Name    string
	backend storage.Backend

	store   storage.BlockStore
	last    storage.BlockID
	dropped bool
}

func NewFile(name string, backend storage.Backend) *File {
	return &File{Name: name, backend: backend}
}

func (f *File) usable() error {
	if f.dropped {
		return fmt.Errorf("%w: %s", ErrFileDropped, f.Name)
	}
	return nil
}

// Create makes the backing store and allocates block 1 as an empty page.
func (f *File) Create() error {
	if err := f.usable(); err != nil {
		return err
	}
	st, err := f.backend.Create(f.Name)
	if err != nil {
		return err
	}
	f.store = st
	f.last = 0
	if _, err := f.GetNew(); err != nil {
		return err
	}
	slog.Debug("heap: created file", "name", f.Name)
	return nil
}

// CreateIfNotExists opens an existing file, or creates it.
func (f *File) CreateIfNotExists() error {
	if err := f.usable(); err != nil {
		return err
	}
	ok, err := f.backend.Exists(f.Name)
	if err != nil {
		return err
	}
	if ok {
		return f.Open()
	}
	return f.Create()
}

// Open attaches to the backing store. Opening an open file is a no-op.
func (f *File) Open() error {
	if err := f.usable(); err != nil {
		return err
	}
	if f.store != nil {
		return nil
	}
	st, err := f.backend.Open(f.Name)
	if err != nil {
		return err
	}
	f.store = st
	if err := f.refresh(); err != nil {
		f.store = nil
		_ = st.Close()
		return err
	}
	return nil
}

// refresh reloads Last from the store, which other handles may have grown.
func (f *File) refresh() error {
	ids, err := f.store.BlockIDs()
	if err != nil {
		return err
	}
	f.last = 0
	if n := len(ids); n > 0 {
		f.last = ids[n-1]
	}
	return nil
}

func (f *File) checkBlock(id storage.BlockID) error {
	if id != 0 && id > f.last {
		if err := f.refresh(); err != nil {
			return err
		}
	}
	if id == 0 || id > f.last {
		return storage.Relationf("block %d is outside %s (last %d)", id, f.Name, f.last)
	}
	return nil
}

func (f *File) Close() error {
	if f.store == nil {
		return nil
	}
	err := f.store.Close()
	f.store = nil
	return err
}

// Drop releases the storage. The File is unusable afterwards.
func (f *File) Drop() error {
	if err := f.open(); err != nil {
		return err
	}
	if err := f.store.Drop(); err != nil {
		return err
	}
	_ = f.store.Close()
	f.store = nil
	f.last = 0
	f.dropped = true
	slog.Debug("heap: dropped file", "name", f.Name)
	return nil
}

// open is the auto-open used by every block operation.
func (f *File) open() error {
	if err := f.usable(); err != nil {
		return err
	}
	if f.store == nil {
		return f.Open()
	}
	return nil
}

func (f *File) Get(id storage.BlockID) (*storage.SlottedPage, error) {
	if err := f.open(); err != nil {
		return nil, err
	}
	if err := f.checkBlock(id); err != nil {
		return nil, err
	}
	buf, err := f.store.Get(id)
	if err != nil {
		return nil, err
	}
	return storage.NewSlottedPage(buf, id, false)
}

// GetNew allocates the next block as an empty page and writes it through.
func (f *File) GetNew() (*storage.SlottedPage, error) {
	if err := f.open(); err != nil {
		return nil, err
	}
	id, buf, err := f.store.AppendNew()
	if err != nil {
		return nil, err
	}
	p, err := storage.NewSlottedPage(buf, id, true)
	if err != nil {
		return nil, err
	}
	if err := f.store.Put(id, p.Bytes()); err != nil {
		return nil, err
	}
	f.last = id
	slog.Debug("heap: allocated block", "file", f.Name, "block", id)
	return p, nil
}

func (f *File) Put(p *storage.SlottedPage) error {
	if err := f.open(); err != nil {
		return err
	}
	if err := f.checkBlock(p.BlockID()); err != nil {
		return err
	}
	return f.store.Put(p.BlockID(), p.Bytes())
}

// BlockIDs returns 1..Last.
func (f *File) BlockIDs() ([]storage.BlockID, error) {
	if err := f.open(); err != nil {
		return nil, err
	}
	if err := f.refresh(); err != nil {
		return nil, err
	}
	ids := make([]storage.BlockID, 0, f.last)
	for i := storage.BlockID(1); i <= f.last; i++ {
		ids = append(ids, i)
	}
	return ids, nil
}

func (f *File) Last() (storage.BlockID, error) {
	if err := f.open(); err != nil {
		return 0, err
	}
	if err := f.refresh(); err != nil {
		return 0, err
	}
	return f.last, nil
}
