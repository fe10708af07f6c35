package parser

import (
	"fmt"
	"strings"
	"unicode"
)

// parseIdent validates an identifier (table/column/index name).
// Rules (simple):
//   - must be exactly one token (no spaces)
//   - first char: letter or '_'
//   - rest: letter/digit/'_'
func parseIdent(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("missing identifier")
	}

	parts := strings.Fields(s)
	if len(parts) != 1 {
		return "", fmt.Errorf("invalid identifier %q", s)
	}
	id := parts[0]

	for i, r := range id {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return "", fmt.Errorf("invalid identifier %q", id)
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return "", fmt.Errorf("invalid identifier %q", id)
		}
	}

	return id, nil
}

// Parse parses a single SQL statement into an AST. The trailing ';' is
// optional.
func Parse(sql string) (Statement, error) {
	s := strings.TrimSpace(sql)
	s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	if s == "" {
		return nil, fmt.Errorf("empty statement")
	}

	// collapse whitespace so keyword prefixes match regardless of layout
	s = strings.Join(strings.Fields(s), " ")
	up := strings.ToUpper(s)

	switch {
	case strings.HasPrefix(up, "CREATE TABLE "):
		return parseCreateTable(s)
	case strings.HasPrefix(up, "CREATE INDEX "):
		return parseCreateIndex(s)
	case strings.HasPrefix(up, "DROP TABLE "):
		return parseDropTable(s)
	case strings.HasPrefix(up, "DROP INDEX "):
		return parseDropIndex(s)
	case up == "SHOW TABLES":
		return &ShowTablesStmt{}, nil
	case strings.HasPrefix(up, "SHOW COLUMNS FROM "):
		name, err := parseIdent(s[len("SHOW COLUMNS FROM "):])
		if err != nil {
			return nil, fmt.Errorf("invalid SHOW COLUMNS syntax: %w", err)
		}
		return &ShowColumnsStmt{TableName: name}, nil
	case strings.HasPrefix(up, "SHOW INDEX FROM "):
		name, err := parseIdent(s[len("SHOW INDEX FROM "):])
		if err != nil {
			return nil, fmt.Errorf("invalid SHOW INDEX syntax: %w", err)
		}
		return &ShowIndexStmt{TableName: name}, nil
	}

	verb := strings.Fields(up)[0]
	switch verb {
	case "INSERT", "SELECT", "UPDATE", "DELETE":
		return &OtherStmt{Verb: verb, SQL: s}, nil
	default:
		return nil, fmt.Errorf("unsupported statement: %q", sql)
	}
}

func parseCreateTable(sql string) (Statement, error) {
	// "CREATE TABLE [IF NOT EXISTS] users (id INT, name TEXT)"
	rest := strings.TrimSpace(sql[len("CREATE TABLE "):])
	stmt := &CreateTableStmt{}
	if strings.HasPrefix(strings.ToUpper(rest), "IF NOT EXISTS ") {
		stmt.IfNotExists = true
		rest = strings.TrimSpace(rest[len("IF NOT EXISTS "):])
	}

	namePart, defPart, trailing, err := splitParens(rest)
	if err != nil {
		return nil, fmt.Errorf("invalid CREATE TABLE syntax: %w", err)
	}
	if trailing != "" {
		return nil, fmt.Errorf("invalid CREATE TABLE syntax: unexpected %q", trailing)
	}

	if stmt.TableName, err = parseIdent(namePart); err != nil {
		return nil, fmt.Errorf("invalid CREATE TABLE syntax: %w", err)
	}
	if defPart == "" {
		return nil, fmt.Errorf("invalid CREATE TABLE syntax: empty column list")
	}

	for _, def := range strings.Split(defPart, ",") {
		def = strings.TrimSpace(def)
		toks := strings.Fields(def)
		if len(toks) != 2 {
			return nil, fmt.Errorf("invalid column def: %q", def)
		}

		colName, err := parseIdent(toks[0])
		if err != nil {
			return nil, fmt.Errorf("invalid column name: %w", err)
		}
		stmt.Columns = append(stmt.Columns, ColumnDef{
			Name: colName,
			Type: strings.ToUpper(toks[1]),
		})
	}
	return stmt, nil
}

func parseCreateIndex(sql string) (Statement, error) {
	// "CREATE INDEX fx ON foo [USING BTREE] (a, b) [USING BTREE]"
	rest := strings.TrimSpace(sql[len("CREATE INDEX "):])
	head, colPart, trailing, err := splitParens(rest)
	if err != nil {
		return nil, fmt.Errorf("invalid CREATE INDEX syntax: %w", err)
	}

	toks := strings.Fields(head)
	if len(toks) < 3 || !strings.EqualFold(toks[1], "ON") {
		return nil, fmt.Errorf("invalid CREATE INDEX syntax: want <index> ON <table>")
	}
	stmt := &CreateIndexStmt{}
	if stmt.IndexName, err = parseIdent(toks[0]); err != nil {
		return nil, fmt.Errorf("invalid index name: %w", err)
	}
	if stmt.TableName, err = parseIdent(toks[2]); err != nil {
		return nil, fmt.Errorf("invalid table name: %w", err)
	}

	usingHead, err := parseUsing(toks[3:])
	if err != nil {
		return nil, err
	}
	usingTail, err := parseUsing(strings.Fields(trailing))
	if err != nil {
		return nil, err
	}
	if usingHead != "" && usingTail != "" {
		return nil, fmt.Errorf("invalid CREATE INDEX syntax: USING given twice")
	}
	stmt.IndexType = usingHead + usingTail

	if colPart == "" {
		return nil, fmt.Errorf("invalid CREATE INDEX syntax: empty column list")
	}
	for _, c := range strings.Split(colPart, ",") {
		col, err := parseIdent(c)
		if err != nil {
			return nil, fmt.Errorf("invalid index column: %w", err)
		}
		stmt.Columns = append(stmt.Columns, col)
	}
	return stmt, nil
}

// parseUsing accepts nothing or "USING <type>".
func parseUsing(toks []string) (string, error) {
	switch {
	case len(toks) == 0:
		return "", nil
	case len(toks) == 2 && strings.EqualFold(toks[0], "USING"):
		return strings.ToUpper(toks[1]), nil
	default:
		return "", fmt.Errorf("invalid index type clause %q", strings.Join(toks, " "))
	}
}

func parseDropTable(sql string) (Statement, error) {
	rest := strings.TrimSpace(sql[len("DROP TABLE "):])
	name, err := parseIdent(rest)
	if err != nil {
		return nil, fmt.Errorf("invalid DROP TABLE syntax: %w", err)
	}
	return &DropTableStmt{TableName: name}, nil
}

func parseDropIndex(sql string) (Statement, error) {
	// "DROP INDEX fx FROM foo" or "DROP INDEX fx ON foo"
	toks := strings.Fields(sql[len("DROP INDEX "):])
	if len(toks) != 3 || !(strings.EqualFold(toks[1], "FROM") || strings.EqualFold(toks[1], "ON")) {
		return nil, fmt.Errorf("invalid DROP INDEX syntax: want <index> FROM <table>")
	}
	index, err := parseIdent(toks[0])
	if err != nil {
		return nil, fmt.Errorf("invalid index name: %w", err)
	}
	table, err := parseIdent(toks[2])
	if err != nil {
		return nil, fmt.Errorf("invalid table name: %w", err)
	}
	return &DropIndexStmt{TableName: table, IndexName: index}, nil
}

// splitParens splits "head (inner) trailing" around the first parenthesised
// group.
func splitParens(s string) (head, inner, trailing string, err error) {
	open := strings.Index(s, "(")
	if open < 0 {
		return "", "", "", fmt.Errorf("missing '('")
	}
	closing := strings.Index(s[open:], ")")
	if closing < 0 {
		return "", "", "", fmt.Errorf("missing ')'")
	}
	closing += open
	return strings.TrimSpace(s[:open]),
		strings.TrimSpace(s[open+1 : closing]),
		strings.TrimSpace(s[closing+1:]),
		nil
}
