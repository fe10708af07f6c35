package heap

import "github.com/tuannm99/heapsql/internal/record"

// Relation is the row-level contract every stored table honours.
type Relation interface {
	Create() error
	CreateIfNotExists() error
	Drop() error
	Open() error
	Close() error

	Insert(row record.Row) (Handle, error)
	Update(h Handle, values record.Row) error
	Delete(h Handle) error
	// Select returns the handles of rows matching every entry of where.
	// A nil where matches all rows.
	Select(where record.Row) ([]Handle, error)
	// Project returns the full row, or only the named columns.
	Project(h Handle, columns ...string) (record.Row, error)
}

var _ Relation = (*Table)(nil)
