package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DataType is the declared type of a column.
type DataType uint8

const (
	TypeInvalid DataType = iota
	TypeInt              // 32-bit signed
	TypeText             // UTF-8, at most 65535 bytes encoded
	TypeBoolean
)

func (t DataType) String() string {
	switch t {
	case TypeInt:
		return "INT"
	case TypeText:
		return "TEXT"
	case TypeBoolean:
		return "BOOLEAN"
	default:
		return fmt.Sprintf("DataType(%d)", uint8(t))
	}
}

// ParseDataType accepts type names case-insensitively. INTEGER and BOOL are
// aliases.
func ParseDataType(s string) (DataType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INT", "INTEGER":
		return TypeInt, nil
	case "TEXT":
		return TypeText, nil
	case "BOOLEAN", "BOOL":
		return TypeBoolean, nil
	default:
		return TypeInvalid, fmt.Errorf("%w: %q", ErrUnsupportedType, s)
	}
}

func (t DataType) MarshalText() ([]byte, error) {
	if t == TypeInvalid || t > TypeBoolean {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedType, uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *DataType) UnmarshalText(b []byte) error {
	v, err := ParseDataType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Value is one typed column value. Exactly the field matching Type is
// meaningful. There is no NULL.
type Value struct {
	Type DataType
	N    int32
	S    string
	B    bool
}

func Int(n int32) Value   { return Value{Type: TypeInt, N: n} }
func Text(s string) Value { return Value{Type: TypeText, S: s} }
func Bool(b bool) Value   { return Value{Type: TypeBoolean, B: b} }

// String renders INT bare, TEXT double-quoted and BOOLEAN as true/false.
func (v Value) String() string {
	switch v.Type {
	case TypeInt:
		return strconv.FormatInt(int64(v.N), 10)
	case TypeText:
		return `"` + v.S + `"`
	case TypeBoolean:
		return strconv.FormatBool(v.B)
	default:
		return "?"
	}
}

func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case TypeInt:
		return v.N == o.N
	case TypeText:
		return v.S == o.S
	case TypeBoolean:
		return v.B == o.B
	default:
		return false
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case TypeInt:
		return json.Marshal(v.N)
	case TypeText:
		return json.Marshal(v.S)
	case TypeBoolean:
		return json.Marshal(v.B)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedType, uint8(v.Type))
	}
}

// UnmarshalJSON infers the tag from the JSON kind: number -> INT,
// string -> TEXT, bool -> BOOLEAN.
func (v *Value) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return fmt.Errorf("record: value cannot be null")
	}
	switch s[0] {
	case '"':
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*v = Text(str)
	case 't', 'f':
		var bv bool
		if err := json.Unmarshal(b, &bv); err != nil {
			return err
		}
		*v = Bool(bv)
	default:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return fmt.Errorf("record: %s is not a 32-bit integer", s)
		}
		*v = Int(int32(n))
	}
	return nil
}
