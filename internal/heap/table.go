package heap

import (
	"errors"
	"fmt"

	"github.com/tuannm99/heapsql/internal/record"
	"github.com/tuannm99/heapsql/internal/storage"
)

var ErrUpdateUnsupported = errors.New("heap: update is not supported")

// Table is a heap file plus the schema of the rows stored in it.
type Table struct {
	Name   string
	Schema record.Schema
	File   *File
}

func NewTable(name string, schema record.Schema, backend storage.Backend) *Table {
	return &Table{
		Name:   name,
		Schema: schema,
		File:   NewFile(name, backend),
	}
}

func (t *Table) Create() error            { return t.File.Create() }
func (t *Table) CreateIfNotExists() error { return t.File.CreateIfNotExists() }
func (t *Table) Drop() error              { return t.File.Drop() }
func (t *Table) Open() error              { return t.File.Open() }
func (t *Table) Close() error             { return t.File.Close() }

// Validate checks that row has a value of the right type for every column and
// returns just those columns. Extra columns are ignored.
func (t *Table) Validate(row record.Row) (record.Row, error) {
	out := make(record.Row, len(t.Schema.Cols))
	for _, col := range t.Schema.Cols {
		v, ok := row[col.Name]
		if !ok {
			return nil, storage.Relationf("don't know how to handle NULLs, defaults, etc. yet (column %s)", col.Name)
		}
		if v.Type != col.Type {
			return nil, storage.Relationf("column %s expects %s, got %s", col.Name, col.Type, v.Type)
		}
		out[col.Name] = v
	}
	return out, nil
}

func (t *Table) Marshal(row record.Row) ([]byte, error) {
	data, err := record.EncodeRow(t.Schema, row)
	if err != nil {
		return nil, err
	}
	if len(data) > storage.MaxRecordSize {
		return nil, storage.Relationf("row too big to marshal (%d bytes)", len(data))
	}
	return data, nil
}

func (t *Table) Unmarshal(data []byte) (record.Row, error) {
	return record.DecodeRow(t.Schema, data)
}

// Insert always appends to the last block; when it is full a new block is
// allocated and the row goes there.
func (t *Table) Insert(row record.Row) (Handle, error) {
	full, err := t.Validate(row)
	if err != nil {
		return Handle{}, err
	}
	data, err := t.Marshal(full)
	if err != nil {
		return Handle{}, err
	}
	return t.append(data)
}

func (t *Table) append(data []byte) (Handle, error) {
	last, err := t.File.Last()
	if err != nil {
		return Handle{}, err
	}

	var p *storage.SlottedPage
	if last == 0 {
		p, err = t.File.GetNew()
	} else {
		p, err = t.File.Get(last)
	}
	if err != nil {
		return Handle{}, err
	}

	id, err := p.Add(data)
	if errors.Is(err, storage.ErrNoRoom) {
		if p, err = t.File.GetNew(); err != nil {
			return Handle{}, err
		}
		id, err = p.Add(data)
	}
	if err != nil {
		return Handle{}, err
	}

	if err := t.File.Put(p); err != nil {
		return Handle{}, err
	}
	return Handle{BlockID: p.BlockID(), RecordID: id}, nil
}

func (t *Table) Update(Handle, record.Row) error {
	return ErrUpdateUnsupported
}

// Delete tombstones the row's slot. The handle is never handed out again.
func (t *Table) Delete(h Handle) error {
	p, err := t.File.Get(h.BlockID)
	if err != nil {
		return err
	}
	if err := p.Del(h.RecordID); err != nil {
		return err
	}
	return t.File.Put(p)
}

// Scan decodes rows block by block, slot by slot.
func (t *Table) Scan(fn func(h Handle, row record.Row) error) error {
	ids, err := t.File.BlockIDs()
	if err != nil {
		return err
	}
	for _, bid := range ids {
		p, err := t.File.Get(bid)
		if err != nil {
			return err
		}
		hp := NewHeapPage(p, t.Schema)
		err = hp.Rows(func(rid storage.RecordID, row record.Row) error {
			return fn(Handle{BlockID: bid, RecordID: rid}, row)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) Select(where record.Row) ([]Handle, error) {
	for name := range where {
		if t.Schema.Index(name) < 0 {
			return nil, storage.Relationf("unknown column %s in %s", name, t.Name)
		}
	}

	var out []Handle
	err := t.Scan(func(h Handle, row record.Row) error {
		if row.Matches(where) {
			out = append(out, h)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Table) Project(h Handle, columns ...string) (record.Row, error) {
	p, err := t.File.Get(h.BlockID)
	if err != nil {
		return nil, err
	}
	hp := NewHeapPage(p, t.Schema)
	row, err := hp.ReadRow(h.RecordID)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return row, nil
	}

	out, err := row.Project(columns...)
	if err != nil {
		return nil, storage.Relationf("%s: %v", t.Name, err)
	}
	return out, nil
}

// Rows collects every live row, in handle order.
func (t *Table) Rows() ([]record.Row, error) {
	var out []record.Row
	err := t.Scan(func(_ Handle, row record.Row) error {
		out = append(out, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", t.Name, err)
	}
	return out, nil
}
