package executor

import (
	"fmt"
	"strings"

	"github.com/tuannm99/heapsql/internal/record"
)

// Result is the generic statement result returned to the caller.
type Result struct {
	ColumnNames      []string          `json:"column_names,omitempty"`
	ColumnAttributes []record.DataType `json:"column_attributes,omitempty"`
	Rows             []record.Row      `json:"rows,omitempty"`
	Message          string            `json:"message"`
}

func messageResult(format string, args ...any) *Result {
	return &Result{Message: fmt.Sprintf(format, args...)}
}

// rowsResult builds a tabular result over the columns of s.
func rowsResult(s record.Schema, rows []record.Row) *Result {
	return &Result{
		ColumnNames:      s.Names(),
		ColumnAttributes: s.Types(),
		Rows:             rows,
		Message:          fmt.Sprintf("successfully returned %d rows", len(rows)),
	}
}

// String renders the column names, a separator, one line per row and the
// message.
func (r *Result) String() string {
	var b strings.Builder
	if r.ColumnNames != nil {
		for _, name := range r.ColumnNames {
			b.WriteString(name)
			b.WriteByte(' ')
		}
		b.WriteString("\n+")
		for range r.ColumnNames {
			b.WriteString("----------+")
		}
		b.WriteByte('\n')
		for _, row := range r.Rows {
			for _, name := range r.ColumnNames {
				if v, ok := row[name]; ok {
					b.WriteString(v.String())
				}
				b.WriteByte(' ')
			}
			b.WriteByte('\n')
		}
	}
	b.WriteString(r.Message)
	return b.String()
}
