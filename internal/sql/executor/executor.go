package executor

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tuannm99/heapsql/internal/alias/util"
	"github.com/tuannm99/heapsql/internal/catalog"
	"github.com/tuannm99/heapsql/internal/heap"
	"github.com/tuannm99/heapsql/internal/index"
	"github.com/tuannm99/heapsql/internal/record"
	"github.com/tuannm99/heapsql/internal/sql/parser"
)

// Executor runs DDL and SHOW statements against a catalog, keeping catalog
// rows and physical storage in step.
type Executor struct {
	cat     *catalog.Catalog
	indexes index.Provider

	// for unit-test: inject catalog insert behavior
	insertRowFn func(rel *heap.Table, row record.Row) (heap.Handle, error)
}

func New(cat *catalog.Catalog, indexes index.Provider) *Executor {
	return &Executor{
		cat:         cat,
		indexes:     indexes,
		insertRowFn: insertRow,
	}
}

func insertRow(rel *heap.Table, row record.Row) (heap.Handle, error) {
	return rel.Insert(row)
}

func (e *Executor) Catalog() *catalog.Catalog { return e.cat }

// ExecSQL is the top-level entry: SQL string -> Result.
func (e *Executor) ExecSQL(sql string) (*Result, error) {
	stmt, err := parser.Parse(sql)
	if err != nil {
		return nil, &ExecError{Msg: "parse", Err: err}
	}
	return e.Execute(stmt)
}

// Execute runs one statement. Every error is an *ExecError.
func (e *Executor) Execute(stmt parser.Statement) (*Result, error) {
	id := uuid.NewString()
	start := time.Now()

	res, err := e.execute(id, stmt)
	if err != nil {
		slog.Info("executor: statement failed", "stmt_id", id, "stmt", stmt.String(), "err", err)
		return nil, asExecError(err)
	}
	slog.Debug("executor: statement done", "stmt_id", id, "stmt", stmt.String(), "elapsed", time.Since(start))
	return res, nil
}

func (e *Executor) execute(id string, stmt parser.Statement) (*Result, error) {
	switch s := stmt.(type) {
	case *parser.CreateTableStmt:
		return e.createTable(id, s)
	case *parser.CreateIndexStmt:
		return e.createIndex(id, s)
	case *parser.DropTableStmt:
		return e.dropTable(s)
	case *parser.DropIndexStmt:
		return e.dropIndex(s)
	case *parser.ShowTablesStmt:
		return e.showTables()
	case *parser.ShowColumnsStmt:
		return e.showColumns(s)
	case *parser.ShowIndexStmt:
		return e.showIndex(s)
	case *parser.OtherStmt:
		return messageResult("not implemented"), nil
	default:
		return nil, execErrorf(nil, "unrecognized statement %T", stmt)
	}
}

// columnType maps a declared type to a storable one. User tables accept INT
// and TEXT only.
func columnType(name string) (record.DataType, error) {
	dt, err := record.ParseDataType(name)
	if err != nil || (dt != record.TypeInt && dt != record.TypeText) {
		return record.TypeInvalid, execErrorf(ErrUnsupportedType, "unrecognized data type %s", name)
	}
	return dt, nil
}

func (e *Executor) createTable(id string, s *parser.CreateTableStmt) (*Result, error) {
	if catalog.IsSystemTable(s.TableName) {
		return nil, execErrorf(ErrSystemTable, "cannot create %s", s.TableName)
	}
	if index.ReservedName(s.TableName) {
		return nil, execErrorf(ErrReservedName, "table name %s contains %q", s.TableName, index.FileSep)
	}

	cols := make([]record.Column, 0, len(s.Columns))
	for _, def := range s.Columns {
		dt, err := columnType(def.Type)
		if err != nil {
			return nil, err
		}
		cols = append(cols, record.Column{Name: def.Name, Type: dt})
	}
	schema := record.NewSchema(cols...)
	if err := schema.Validate(); err != nil {
		return nil, execErrorf(err, "invalid column list for %s", s.TableName)
	}

	exists, err := e.cat.TableExists(s.TableName)
	if err != nil {
		return nil, err
	}
	if exists {
		if s.IfNotExists {
			return messageResult("table %s already exists", s.TableName), nil
		}
		return nil, execErrorf(ErrTableExists, "%s", s.TableName)
	}

	undo := &undoLog{stmtID: id}
	fail := func(err error) (*Result, error) {
		return nil, execErrorf(undo.rollback(err), "create table %s rolled back", s.TableName)
	}

	if err := undo.insert(e, e.cat.Tables, catalog.TableRow(s.TableName)); err != nil {
		return fail(err)
	}
	for _, col := range cols {
		if err := undo.insert(e, e.cat.Columns, catalog.ColumnRow(s.TableName, col)); err != nil {
			return fail(err)
		}
	}

	backend := e.cat.Backend()
	existed, err := backend.Exists(s.TableName)
	if err != nil {
		return fail(err)
	}
	if !existed {
		undo.push("drop file "+s.TableName, func() error {
			ok, err := backend.Exists(s.TableName)
			if err != nil || !ok {
				return err
			}
			return heap.NewFile(s.TableName, backend).Drop()
		})
	}

	// closed before any rollback so the undo step can drop the file
	tbl := heap.NewTable(s.TableName, schema, backend)
	err = tbl.CreateIfNotExists()
	util.CloseFunc(tbl)
	if err != nil {
		return fail(err)
	}
	return messageResult("created %s", s.TableName), nil
}

func (e *Executor) createIndex(id string, s *parser.CreateIndexStmt) (*Result, error) {
	if catalog.IsSystemTable(s.TableName) {
		return nil, execErrorf(ErrSystemTable, "cannot index %s", s.TableName)
	}
	if index.ReservedName(s.IndexName) {
		return nil, execErrorf(ErrReservedName, "index name %s contains %q", s.IndexName, index.FileSep)
	}
	schema, err := e.cat.GetColumns(s.TableName)
	if err != nil {
		return nil, execErrorf(err, "create index %s", s.IndexName)
	}
	seen := make(map[string]struct{}, len(s.Columns))
	for _, col := range s.Columns {
		if schema.Index(col) < 0 {
			return nil, execErrorf(ErrColumnNotFound, "column %s does not exist in %s", col, s.TableName)
		}
		if _, dup := seen[col]; dup {
			return nil, execErrorf(ErrDuplicateColumn, "column %s listed twice in %s", col, s.IndexName)
		}
		seen[col] = struct{}{}
	}
	if _, err := e.cat.GetIndex(s.TableName, s.IndexName); err == nil {
		return nil, execErrorf(ErrIndexExists, "%s on %s", s.IndexName, s.TableName)
	} else if !errors.Is(err, catalog.ErrIndexNotFound) {
		return nil, err
	}
	typ, err := index.NormalizeType(s.IndexType)
	if err != nil {
		return nil, execErrorf(err, "create index %s", s.IndexName)
	}

	info := catalog.IndexInfo{
		Table:   s.TableName,
		Name:    s.IndexName,
		Type:    typ,
		Unique:  index.IsUnique(typ),
		Columns: s.Columns,
	}
	ix, err := e.indexes.Index(info)
	if err != nil {
		return nil, execErrorf(err, "create index %s", s.IndexName)
	}

	undo := &undoLog{stmtID: id}
	for _, row := range catalog.IndexRows(info) {
		if err := undo.insert(e, e.cat.Indices, row); err != nil {
			return nil, execErrorf(undo.rollback(err), "create index %s rolled back", s.IndexName)
		}
	}
	if err := ix.Create(); err != nil {
		return nil, execErrorf(undo.rollback(err), "create index %s rolled back", s.IndexName)
	}
	return messageResult("created index %s", s.IndexName), nil
}

func (e *Executor) dropTable(s *parser.DropTableStmt) (*Result, error) {
	if catalog.IsSystemTable(s.TableName) {
		return nil, execErrorf(ErrSystemTable, "cannot drop a schema table")
	}
	tbl, err := e.cat.GetTable(s.TableName)
	if err != nil {
		return nil, execErrorf(err, "drop table")
	}

	infos, err := e.cat.ListIndexes(s.TableName)
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if err := e.dropIndexInfo(info); err != nil {
			return nil, err
		}
	}

	exists, err := e.cat.Backend().Exists(s.TableName)
	if err != nil {
		return nil, err
	}
	if exists {
		if err := tbl.Drop(); err != nil {
			return nil, fmt.Errorf("drop %s file: %w", s.TableName, err)
		}
	}

	if err := deleteWhere(e.cat.Columns, record.Row{"table_name": record.Text(s.TableName)}); err != nil {
		return nil, err
	}
	if err := deleteWhere(e.cat.Tables, catalog.TableRow(s.TableName)); err != nil {
		return nil, err
	}
	e.cat.InvalidateSchema(s.TableName)
	return messageResult("dropped %s", s.TableName), nil
}

func (e *Executor) dropIndex(s *parser.DropIndexStmt) (*Result, error) {
	exists, err := e.cat.TableExists(s.TableName)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, execErrorf(catalog.ErrTableNotFound, "drop index %s", s.IndexName)
	}
	info, err := e.cat.GetIndex(s.TableName, s.IndexName)
	if err != nil {
		return nil, execErrorf(err, "drop index")
	}
	if err := e.dropIndexInfo(info); err != nil {
		return nil, err
	}
	return messageResult("dropped index %s", s.IndexName), nil
}

// dropIndexInfo drops the physical index, then its _indices rows.
func (e *Executor) dropIndexInfo(info catalog.IndexInfo) error {
	ix, err := e.indexes.Index(info)
	if err != nil {
		return err
	}
	if err := ix.Drop(); err != nil {
		return fmt.Errorf("drop index %s: %w", info.Name, err)
	}
	hs, err := e.cat.IndexHandles(info.Table, info.Name)
	if err != nil {
		return err
	}
	for _, h := range hs {
		if err := e.cat.Indices.Delete(h); err != nil {
			return err
		}
	}
	return nil
}

func deleteWhere(rel *heap.Table, where record.Row) error {
	hs, err := rel.Select(where)
	if err != nil {
		return err
	}
	for _, h := range hs {
		if err := rel.Delete(h); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) showTables() (*Result, error) {
	names, err := e.cat.ListTables()
	if err != nil {
		return nil, err
	}
	rows := make([]record.Row, 0, len(names))
	for _, n := range names {
		rows = append(rows, catalog.TableRow(n))
	}
	return rowsResult(e.cat.Tables.Schema, rows), nil
}

func (e *Executor) showColumns(s *parser.ShowColumnsStmt) (*Result, error) {
	return e.showWhere(e.cat.Columns, s.TableName)
}

func (e *Executor) showIndex(s *parser.ShowIndexStmt) (*Result, error) {
	return e.showWhere(e.cat.Indices, s.TableName)
}

// showWhere lists the rows of a catalog table that belong to table.
func (e *Executor) showWhere(rel *heap.Table, table string) (*Result, error) {
	hs, err := rel.Select(record.Row{"table_name": record.Text(table)})
	if err != nil {
		return nil, err
	}
	rows := make([]record.Row, 0, len(hs))
	for _, h := range hs {
		row, err := rel.Project(h)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rowsResult(rel.Schema, rows), nil
}
