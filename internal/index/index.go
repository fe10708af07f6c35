package index

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tuannm99/heapsql/internal/catalog"
)

var (
	ErrUnsupportedType = errors.New("index: unsupported index type")
	ErrDuplicateKey    = errors.New("index: duplicate key in unique index")
	ErrBadColumn       = errors.New("index: key column not in table")
	ErrKeyTooLarge     = errors.New("index: key does not fit in a block")
)

// Index is the physical side of a catalogued index. Only its lifecycle is
// driven by DDL.
type Index interface {
	Create() error
	Drop() error
}

// Provider builds the physical index for a catalogued one.
type Provider interface {
	Index(info catalog.IndexInfo) (Index, error)
}

// NormalizeType upper-cases typ and defaults an empty type to BTREE.
func NormalizeType(typ string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(typ))
	switch t {
	case "":
		return catalog.IndexTypeBTree, nil
	case catalog.IndexTypeBTree, catalog.IndexTypeHash:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, typ)
	}
}

// IsUnique reports whether indexes of typ reject duplicate keys.
func IsUnique(typ string) bool {
	return strings.EqualFold(typ, catalog.IndexTypeBTree)
}

// FileSep joins table and index in an index file name. Identifiers never
// contain it, so no user table can share a file with an index.
const FileSep = "$"

// FileName is the heap file holding the entries of one index.
func FileName(table, index string) string {
	return table + FileSep + index
}

// ReservedName reports whether name could collide with an index file.
func ReservedName(name string) bool {
	return strings.Contains(name, FileSep)
}
