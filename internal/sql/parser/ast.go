package parser

import (
	"fmt"
	"strings"
)

// Statement is the root interface for all SQL statements.
type Statement interface {
	stmtNode()
	String() string
}

// ----- CREATE TABLE -----
type ColumnDef struct {
	Name string
	Type string // "INT", "TEXT", as written
}

type CreateTableStmt struct {
	TableName   string
	Columns     []ColumnDef
	IfNotExists bool
}

func (*CreateTableStmt) stmtNode() {}

func (s *CreateTableStmt) String() string {
	defs := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		defs[i] = c.Name + " " + c.Type
	}
	ine := ""
	if s.IfNotExists {
		ine = "IF NOT EXISTS "
	}
	return fmt.Sprintf("CREATE TABLE %s%s (%s)", ine, s.TableName, strings.Join(defs, ", "))
}

// ----- CREATE INDEX -----
type CreateIndexStmt struct {
	TableName string
	IndexName string
	IndexType string // empty means the default type
	Columns   []string
}

func (*CreateIndexStmt) stmtNode() {}

func (s *CreateIndexStmt) String() string {
	using := ""
	if s.IndexType != "" {
		using = " USING " + s.IndexType
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s%s (%s)", s.IndexName, s.TableName, using, strings.Join(s.Columns, ", "))
}

// ----- DROP -----
type DropTableStmt struct {
	TableName string
}

func (*DropTableStmt) stmtNode() {}

func (s *DropTableStmt) String() string { return "DROP TABLE " + s.TableName }

type DropIndexStmt struct {
	TableName string
	IndexName string
}

func (*DropIndexStmt) stmtNode() {}

func (s *DropIndexStmt) String() string {
	return fmt.Sprintf("DROP INDEX %s FROM %s", s.IndexName, s.TableName)
}

// ----- SHOW -----
type ShowTablesStmt struct{}

func (*ShowTablesStmt) stmtNode() {}

func (*ShowTablesStmt) String() string { return "SHOW TABLES" }

type ShowColumnsStmt struct {
	TableName string
}

func (*ShowColumnsStmt) stmtNode() {}

func (s *ShowColumnsStmt) String() string { return "SHOW COLUMNS FROM " + s.TableName }

type ShowIndexStmt struct {
	TableName string
}

func (*ShowIndexStmt) stmtNode() {}

func (s *ShowIndexStmt) String() string { return "SHOW INDEX FROM " + s.TableName }

// ----- everything else -----

// OtherStmt is a recognised statement the engine does not execute yet
// (INSERT, SELECT, UPDATE, DELETE).
type OtherStmt struct {
	Verb string
	SQL  string
}

func (*OtherStmt) stmtNode() {}

func (s *OtherStmt) String() string { return s.SQL }
