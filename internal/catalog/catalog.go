package catalog

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/tuannm99/heapsql/internal/heap"
	"github.com/tuannm99/heapsql/internal/record"
	"github.com/tuannm99/heapsql/internal/storage"
)

var (
	ErrTableNotFound = errors.New("catalog: table not found")
	ErrIndexNotFound = errors.New("catalog: index not found")
)

const DefaultSchemaCacheSize = 1024

type options struct {
	schemaCacheSize int64
}

type Option func(*options)

// WithSchemaCacheSize bounds how many user schemas stay cached.
func WithSchemaCacheSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.schemaCacheSize = int64(n)
		}
	}
}

// Catalog owns the three bootstrap tables. User schemas live only in
// _columns; the cache in front of it is a pure accelerator.
type Catalog struct {
	backend storage.Backend

	Tables  *heap.Table
	Columns *heap.Table
	Indices *heap.Table

	schemas *ristretto.Cache[string, record.Schema]
}

// New opens the catalog on backend, creating the bootstrap tables on first
// use. Calling it again on the same storage changes nothing.
func New(backend storage.Backend, opts ...Option) (*Catalog, error) {
	o := options{schemaCacheSize: DefaultSchemaCacheSize}
	for _, fn := range opts {
		fn(&o)
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, record.Schema]{
		NumCounters:        o.schemaCacheSize * 10,
		MaxCost:            o.schemaCacheSize,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: schema cache: %w", err)
	}

	c := &Catalog{backend: backend, schemas: cache}
	owned := make([]*heap.Table, 0, len(bootstrapOrder))
	for _, b := range bootstrapOrder {
		t := heap.NewTable(b.name, b.schema, backend)
		if err := t.CreateIfNotExists(); err != nil {
			for _, o := range owned {
				_ = o.Close()
			}
			cache.Close()
			return nil, fmt.Errorf("catalog: bootstrap %s: %w", b.name, err)
		}
		owned = append(owned, t)
		slog.Debug("catalog: bootstrap table ready", "table", b.name)
	}
	c.Tables, c.Columns, c.Indices = owned[0], owned[1], owned[2]
	return c, nil
}

func (c *Catalog) Backend() storage.Backend { return c.backend }

func (c *Catalog) Close() error {
	var errs []error
	for _, t := range []*heap.Table{c.Tables, c.Columns, c.Indices} {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.schemas.Close()
	return errors.Join(errs...)
}

func (c *Catalog) system(name string) *heap.Table {
	switch name {
	case TablesTable:
		return c.Tables
	case ColumnsTable:
		return c.Columns
	case IndicesTable:
		return c.Indices
	default:
		return nil
	}
}

// TableExists reports whether name is registered in _tables (or is a
// bootstrap table).
func (c *Catalog) TableExists(name string) (bool, error) {
	if IsSystemTable(name) {
		return true, nil
	}
	hs, err := c.Tables.Select(TableRow(name))
	if err != nil {
		return false, err
	}
	return len(hs) > 0, nil
}

// ListTables returns the registered user tables in creation order.
func (c *Catalog) ListTables() ([]string, error) {
	rows, err := c.Tables.Rows()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if name := r["table_name"].S; !IsSystemTable(name) {
			out = append(out, name)
		}
	}
	return out, nil
}

// GetColumns reads name's schema from _columns, in insertion order.
func (c *Catalog) GetColumns(name string) (record.Schema, error) {
	if s, ok := systemSchema(name); ok {
		return s, nil
	}
	if s, ok := c.schemas.Get(name); ok {
		return s, nil
	}

	var cols []record.Column
	err := c.Columns.Scan(func(_ heap.Handle, row record.Row) error {
		if row["table_name"].S != name {
			return nil
		}
		dt, err := record.ParseDataType(row["data_type"].S)
		if err != nil {
			return fmt.Errorf("catalog: %s.%s: %w", name, row["column_name"].S, err)
		}
		cols = append(cols, record.Column{Name: row["column_name"].S, Type: dt})
		return nil
	})
	if err != nil {
		return record.Schema{}, err
	}

	if len(cols) == 0 {
		ok, err := c.TableExists(name)
		if err != nil {
			return record.Schema{}, err
		}
		if !ok {
			return record.Schema{}, fmt.Errorf("%w: %s", ErrTableNotFound, name)
		}
		return record.Schema{}, nil
	}

	s := record.NewSchema(cols...)
	c.schemas.Set(name, s, 1)
	c.schemas.Wait()
	return s, nil
}

// InvalidateSchema forgets the cached schema of name.
func (c *Catalog) InvalidateSchema(name string) {
	c.schemas.Del(name)
}

// GetTable returns a handle on name. Bootstrap tables return the instance the
// catalog owns; user tables are built from their _columns rows.
func (c *Catalog) GetTable(name string) (*heap.Table, error) {
	if t := c.system(name); t != nil {
		return t, nil
	}
	ok, err := c.TableExists(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	s, err := c.GetColumns(name)
	if err != nil {
		return nil, err
	}
	return heap.NewTable(name, s, c.backend), nil
}
