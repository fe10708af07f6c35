package index

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tuannm99/heapsql/internal/alias/util"
	"github.com/tuannm99/heapsql/internal/catalog"
	"github.com/tuannm99/heapsql/internal/heap"
	"github.com/tuannm99/heapsql/internal/record"
	"github.com/tuannm99/heapsql/internal/storage"
)

var _ Provider = (*SortedProvider)(nil)

// SortedProvider stores every index as a heap file of entries sorted by key.
// The file is built once by Create; later table writes do not maintain it.
type SortedProvider struct {
	cat *catalog.Catalog
}

func NewSortedProvider(cat *catalog.Catalog) *SortedProvider {
	return &SortedProvider{cat: cat}
}

func (p *SortedProvider) Index(info catalog.IndexInfo) (Index, error) {
	typ, err := NormalizeType(info.Type)
	if err != nil {
		return nil, err
	}
	info.Type = typ
	return &SortedIndex{
		info: info,
		cat:  p.cat,
		file: heap.NewFile(FileName(info.Table, info.Name), p.cat.Backend()),
	}, nil
}

var _ Index = (*SortedIndex)(nil)

type SortedIndex struct {
	info catalog.IndexInfo
	cat  *catalog.Catalog
	file *heap.File
}

func (ix *SortedIndex) Info() catalog.IndexInfo { return ix.info }

// table opens the indexed table. The returned release closes user tables
// only; bootstrap tables belong to the catalog.
func (ix *SortedIndex) table() (*heap.Table, func(), error) {
	tbl, err := ix.cat.GetTable(ix.info.Table)
	if err != nil {
		return nil, nil, err
	}
	if catalog.IsSystemTable(ix.info.Table) {
		return tbl, func() {}, nil
	}
	return tbl, func() { util.CloseFunc(tbl) }, nil
}

func (ix *SortedIndex) keySchema(table record.Schema) (record.Schema, error) {
	cols := make([]record.Column, 0, len(ix.info.Columns))
	for _, name := range ix.info.Columns {
		col, ok := table.Column(name)
		if !ok {
			return record.Schema{}, fmt.Errorf("%w: %s.%s", ErrBadColumn, ix.info.Table, name)
		}
		cols = append(cols, col)
	}
	return record.NewSchema(cols...), nil
}

// Create scans the table, sorts (key, handle) pairs and writes them out.
// Unique indexes fail with ErrDuplicateKey before anything is written.
func (ix *SortedIndex) Create() error {
	tbl, release, err := ix.table()
	if err != nil {
		return err
	}
	defer release()
	ks, err := ix.keySchema(tbl.Schema)
	if err != nil {
		return err
	}

	var entries []Entry
	err = tbl.Scan(func(h heap.Handle, row record.Row) error {
		key, err := record.EncodeRow(ks, row)
		if err != nil {
			return err
		}
		entries = append(entries, Entry{Key: key, Handle: h})
		return nil
	})
	if err != nil {
		return fmt.Errorf("index %s: scan %s: %w", ix.info.Name, ix.info.Table, err)
	}

	sortEntries(entries)
	if ix.info.Unique {
		if i := firstDuplicate(entries); i >= 0 {
			dup, _ := record.DecodeRow(ks, entries[i].Key)
			return fmt.Errorf("%w: %s on %s, key %v", ErrDuplicateKey, ix.info.Name, ix.info.Table, dup.Values(ks))
		}
	}

	if err := ix.file.Create(); err != nil {
		return err
	}
	if err := ix.write(entries); err != nil {
		// leave nothing half-built behind
		if dropErr := ix.file.Drop(); dropErr != nil {
			err = errors.Join(err, dropErr)
		}
		return err
	}
	slog.Debug("index: built", "index", ix.info.Name, "table", ix.info.Table, "entries", len(entries))
	return ix.file.Close()
}

func (ix *SortedIndex) write(entries []Entry) error {
	p, err := ix.file.Get(1)
	if err != nil {
		return err
	}
	for _, e := range entries {
		data, err := EncodeEntry(e)
		if err != nil {
			return err
		}
		_, err = p.Add(data)
		if errors.Is(err, storage.ErrNoRoom) {
			if err := ix.file.Put(p); err != nil {
				return err
			}
			if p, err = ix.file.GetNew(); err != nil {
				return err
			}
			_, err = p.Add(data)
		}
		if err != nil {
			return err
		}
	}
	return ix.file.Put(p)
}

func (ix *SortedIndex) Drop() error {
	return dropFile(ix.cat.Backend(), ix.file.Name)
}

// Entries reads the index back in key order.
func (ix *SortedIndex) Entries() ([]Entry, error) {
	ids, err := ix.file.BlockIDs()
	if err != nil {
		return nil, err
	}
	defer util.CloseFunc(ix.file)
	var out []Entry
	for _, bid := range ids {
		p, err := ix.file.Get(bid)
		if err != nil {
			return nil, err
		}
		for _, rid := range p.IDs() {
			data, err := p.Get(rid)
			if err != nil {
				return nil, err
			}
			e, err := DecodeEntry(data)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
	}
	return out, nil
}

// Lookup returns the handles whose key columns equal key.
func (ix *SortedIndex) Lookup(key record.Row) ([]heap.Handle, error) {
	tbl, release, err := ix.table()
	if err != nil {
		return nil, err
	}
	defer release()
	ks, err := ix.keySchema(tbl.Schema)
	if err != nil {
		return nil, err
	}
	target, err := record.EncodeRow(ks, key)
	if err != nil {
		return nil, err
	}

	entries, err := ix.Entries()
	if err != nil {
		return nil, err
	}
	var out []heap.Handle
	for i := lowerBound(entries, target); i < len(entries); i++ {
		if string(entries[i].Key) != string(target) {
			break
		}
		out = append(out, entries[i].Handle)
	}
	return out, nil
}
