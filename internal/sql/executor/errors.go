package executor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tuannm99/heapsql/internal/storage"
)

var (
	ErrSystemTable     = errors.New("executor: system table")
	ErrTableExists     = errors.New("executor: table already exists")
	ErrIndexExists     = errors.New("executor: index already exists")
	ErrColumnNotFound  = errors.New("executor: column not found")
	ErrDuplicateColumn = errors.New("executor: duplicate key column")
	ErrReservedName    = errors.New("executor: reserved name")
	ErrUnsupportedType = errors.New("executor: unsupported data type")
)

// ExecError is the only error type Execute returns. Err carries the cause,
// matchable with errors.Is.
type ExecError struct {
	Msg string
	Err error
}

func (e *ExecError) Error() string {
	var b strings.Builder
	if e.Err != nil && errors.Is(e.Err, storage.ErrRelation) {
		b.WriteString("DbRelationError: ")
	}
	b.WriteString(e.Msg)
	if e.Err != nil {
		if e.Msg != "" {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ExecError) Unwrap() error { return e.Err }

func execErrorf(cause error, format string, args ...any) *ExecError {
	return &ExecError{Msg: fmt.Sprintf(format, args...), Err: cause}
}

// asExecError wraps err unless it already is an ExecError.
func asExecError(err error) error {
	if err == nil {
		return nil
	}
	var ee *ExecError
	if errors.As(err, &ee) {
		return err
	}
	return &ExecError{Err: err}
}
