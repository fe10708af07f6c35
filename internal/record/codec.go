package record

import (
	"errors"
	"fmt"
	"math"

	"github.com/tuannm99/heapsql/internal/alias/bx"
	"github.com/tuannm99/heapsql/internal/storage"
)

var (
	ErrSchemaMismatch  = errors.New("rowcodec: schema/values mismatch")
	ErrBadBuffer       = errors.New("rowcodec: buffer underflow/overflow")
	ErrVarTooLong      = errors.New("rowcodec: variable length exceeds u16")
	ErrUnsupportedType = errors.New("rowcodec: unsupported type")
)

// relation wraps a codec sentinel so it also matches storage.ErrRelation.
func relation(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s", storage.ErrRelation, sentinel, fmt.Sprintf(format, args...))
}

// EncodeRow lays the row out in schema order, with no null map:
//
//	INT     4 bytes LE, two's complement
//	TEXT    u16 length (LE) + UTF-8 bytes
//	BOOLEAN 1 byte, 0 or 1
func EncodeRow(s Schema, row Row) ([]byte, error) {
	w := bx.NewWriter(16 * len(s.Cols))
	for _, col := range s.Cols {
		v, ok := row[col.Name]
		if !ok {
			return nil, relation(ErrMissingColumn, "don't know how to handle missing column %s", col.Name)
		}
		if v.Type != col.Type {
			return nil, relation(ErrSchemaMismatch, "column %s is %s, got %s", col.Name, col.Type, v.Type)
		}

		switch col.Type {
		case TypeInt:
			w.I32(v.N)
		case TypeText:
			if len(v.S) > math.MaxUint16 {
				return nil, relation(ErrVarTooLong, "column %s is %d bytes", col.Name, len(v.S))
			}
			w.U16(uint16(len(v.S)))
			w.Raw([]byte(v.S))
		case TypeBoolean:
			var b byte
			if v.B {
				b = 1
			}
			w.Byte(b)
		default:
			return nil, relation(ErrUnsupportedType, "column %s", col.Name)
		}
	}
	return w.Bytes(), nil
}

// DecodeRow is the inverse of EncodeRow. Leftover bytes are an error.
func DecodeRow(s Schema, buf []byte) (Row, error) {
	r := bx.NewReader(buf)
	row := make(Row, len(s.Cols))

	for _, col := range s.Cols {
		switch col.Type {
		case TypeInt:
			n, err := r.I32()
			if err != nil {
				return nil, relation(ErrBadBuffer, "column %s", col.Name)
			}
			row[col.Name] = Int(n)

		case TypeText:
			n, err := r.U16()
			if err != nil {
				return nil, relation(ErrBadBuffer, "column %s length", col.Name)
			}
			b, err := r.Bytes(int(n))
			if err != nil {
				return nil, relation(ErrBadBuffer, "column %s wants %d bytes", col.Name, n)
			}
			row[col.Name] = Text(string(b))

		case TypeBoolean:
			b, err := r.Byte()
			if err != nil {
				return nil, relation(ErrBadBuffer, "column %s", col.Name)
			}
			row[col.Name] = Bool(b != 0)

		default:
			return nil, relation(ErrUnsupportedType, "column %s", col.Name)
		}
	}

	if r.Len() != 0 {
		return nil, relation(ErrBadBuffer, "%d trailing bytes", r.Len())
	}
	return row, nil
}
