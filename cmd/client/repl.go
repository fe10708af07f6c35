package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/tuannm99/heapsql/internal/sql/executor"
)

const (
	prompt     = "heapsql> "
	contPrompt = "   ...> "
)

// statementComplete reports whether buf holds a ';' outside single quotes.
func statementComplete(buf string) bool {
	inQuote := false
	escaped := false

	for _, r := range buf {
		if escaped {
			escaped = false
			continue
		}
		switch {
		case r == '\\':
			escaped = true
		case r == '\'':
			inQuote = !inQuote
		case r == ';' && !inQuote:
			return true
		}
	}
	return false
}

func compactOneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// metaSQL expands a backslash command into SQL. ok is false for commands
// that are not shortcuts.
func metaSQL(line string) (sql string, ok bool) {
	f := strings.Fields(line)
	switch {
	case len(f) == 1 && f[0] == `\dt`:
		return "SHOW TABLES", true
	case len(f) == 2 && f[0] == `\d`:
		return "SHOW COLUMNS FROM " + f[1], true
	case len(f) == 2 && f[0] == `\di`:
		return "SHOW INDEX FROM " + f[1], true
	default:
		return "", false
	}
}

const helpText = `meta commands:
  \q | quit | exit       quit
  \dt                    list tables
  \d <table>             list columns of a table
  \di <table>            list indexes of a table
  \help                  show help

sql:
  end statements with ';'
  multiline input is buffered until ';'`

// printResult renders res as an aligned table followed by its message.
func printResult(w io.Writer, res *executor.Result) {
	cols := res.ColumnNames
	if len(cols) == 0 {
		fmt.Fprintln(w, res.Message)
		return
	}

	cells := make([][]string, len(res.Rows))
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = len(c)
	}
	for r, row := range res.Rows {
		cells[r] = make([]string, len(cols))
		for i, c := range cols {
			s := "NULL"
			if v, ok := row[c]; ok {
				s = v.String()
			}
			cells[r][i] = s
			widths[i] = max(widths[i], len(s))
		}
	}

	printRow := func(values []string) {
		for i := range cols {
			if i > 0 {
				fmt.Fprint(w, " | ")
			}
			fmt.Fprintf(w, "%-*s", widths[i], values[i])
		}
		fmt.Fprintln(w)
	}

	printRow(cols)
	for i := range cols {
		if i > 0 {
			fmt.Fprint(w, "-+-")
		}
		fmt.Fprint(w, strings.Repeat("-", widths[i]))
	}
	fmt.Fprintln(w)
	for _, row := range cells {
		printRow(row)
	}
	fmt.Fprintln(w, res.Message)
}
