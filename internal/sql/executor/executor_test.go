package executor

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/heapsql/internal/catalog"
	"github.com/tuannm99/heapsql/internal/heap"
	"github.com/tuannm99/heapsql/internal/index"
	"github.com/tuannm99/heapsql/internal/record"
	"github.com/tuannm99/heapsql/internal/sql/parser"
	"github.com/tuannm99/heapsql/internal/storage"
)

func newTestExecutor(t *testing.T) (*Executor, storage.Backend) {
	t.Helper()
	b := storage.NewMemBackend()
	cat, err := catalog.New(b)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })
	return New(cat, index.NewSortedProvider(cat)), b
}

func mustExec(t *testing.T, e *Executor, sql string) *Result {
	t.Helper()
	res, err := e.ExecSQL(sql)
	require.NoError(t, err, sql)
	return res
}

func catalogCounts(t *testing.T, e *Executor) (tables, columns, indices int) {
	t.Helper()
	count := func(rel *heap.Table) int {
		hs, err := rel.Select(nil)
		require.NoError(t, err)
		return len(hs)
	}
	return count(e.cat.Tables), count(e.cat.Columns), count(e.cat.Indices)
}

func TestCreateTable_ShowColumns(t *testing.T) {
	e, b := newTestExecutor(t)

	res := mustExec(t, e, "CREATE TABLE foo (a INT, b TEXT)")
	assert.Equal(t, "created foo", res.Message)

	ok, err := b.Exists("foo")
	require.NoError(t, err)
	assert.True(t, ok)

	res = mustExec(t, e, "SHOW COLUMNS FROM foo")
	assert.Equal(t, []string{"table_name", "column_name", "data_type"}, res.ColumnNames)
	assert.Equal(t, []record.Row{
		{"table_name": record.Text("foo"), "column_name": record.Text("a"), "data_type": record.Text("INT")},
		{"table_name": record.Text("foo"), "column_name": record.Text("b"), "data_type": record.Text("TEXT")},
	}, res.Rows)
	assert.Equal(t, "successfully returned 2 rows", res.Message)
}

func TestCreateTable_RowsRoundTrip(t *testing.T) {
	e, _ := newTestExecutor(t)
	mustExec(t, e, "CREATE TABLE foo (a INT, b TEXT)")

	tbl, err := e.cat.GetTable("foo")
	require.NoError(t, err)
	h, err := tbl.Insert(record.Row{"a": record.Int(12), "b": record.Text("Hello!")})
	require.NoError(t, err)

	hs, err := tbl.Select(nil)
	require.NoError(t, err)
	require.Equal(t, []heap.Handle{h}, hs)
	row, err := tbl.Project(h)
	require.NoError(t, err)
	assert.Equal(t, record.Row{"a": record.Int(12), "b": record.Text("Hello!")}, row)

	var last heap.Handle
	for i := 0; i < 1000; i++ {
		last, err = tbl.Insert(record.Row{"a": record.Int(int32(i)), "b": record.Text(fmt.Sprint("row ", i))})
		require.NoError(t, err)
	}
	require.NoError(t, tbl.Delete(last))
	hs, err = tbl.Select(nil)
	require.NoError(t, err)
	assert.Len(t, hs, 1000)
}

func TestCreateTable_Rejections(t *testing.T) {
	e, _ := newTestExecutor(t)
	mustExec(t, e, "CREATE TABLE foo (a INT)")

	tests := []struct {
		sql  string
		want error
	}{
		{"CREATE TABLE foo (b INT)", ErrTableExists},
		{"CREATE TABLE _tables (a INT)", ErrSystemTable},
		{"CREATE TABLE bar (a INT, a TEXT)", record.ErrDuplicateColumn},
		{"CREATE TABLE bar (a DOUBLE)", ErrUnsupportedType},
		{"CREATE TABLE bar (a BOOLEAN)", ErrUnsupportedType},
	}
	for _, tt := range tests {
		_, err := e.ExecSQL(tt.sql)
		require.Error(t, err, tt.sql)
		var ee *ExecError
		require.True(t, errors.As(err, &ee), tt.sql)
		require.ErrorIs(t, err, tt.want, tt.sql)
	}

	tables, columns, _ := catalogCounts(t, e)
	assert.Equal(t, 1, tables)
	assert.Equal(t, 1, columns)

	res := mustExec(t, e, "CREATE TABLE IF NOT EXISTS foo (b INT)")
	assert.Contains(t, res.Message, "already exists")
	tables, columns, _ = catalogCounts(t, e)
	assert.Equal(t, 1, tables)
	assert.Equal(t, 1, columns)
}

func TestCreateTable_RollbackOnColumnInsertFailure(t *testing.T) {
	for k := 1; k <= 3; k++ {
		t.Run(fmt.Sprintf("fail_column_%d", k), func(t *testing.T) {
			e, b := newTestExecutor(t)
			mustExec(t, e, "CREATE TABLE keep (x INT)")
			beforeT, beforeC, beforeI := catalogCounts(t, e)

			injected := errors.New("injected failure")
			n := 0
			e.insertRowFn = func(rel *heap.Table, row record.Row) (heap.Handle, error) {
				if rel.Name == catalog.ColumnsTable {
					n++
					if n == k {
						return heap.Handle{}, injected
					}
				}
				return rel.Insert(row)
			}

			_, err := e.ExecSQL("CREATE TABLE foo (a INT, b TEXT, c INT)")
			require.ErrorIs(t, err, injected)

			afterT, afterC, afterI := catalogCounts(t, e)
			assert.Equal(t, beforeT, afterT)
			assert.Equal(t, beforeC, afterC)
			assert.Equal(t, beforeI, afterI)

			ok, err := b.Exists("foo")
			require.NoError(t, err)
			assert.False(t, ok)

			exists, err := e.cat.TableExists("foo")
			require.NoError(t, err)
			assert.False(t, exists)

			// the statement can be retried once the fault is gone
			e.insertRowFn = insertRow
			mustExec(t, e, "CREATE TABLE foo (a INT, b TEXT, c INT)")
		})
	}
}

func TestCreateIndex_MissingColumnWritesNothing(t *testing.T) {
	e, b := newTestExecutor(t)
	mustExec(t, e, "CREATE TABLE foo (a INT, b TEXT)")

	_, err := e.ExecSQL("CREATE INDEX fx ON foo (a, nope)")
	require.ErrorIs(t, err, ErrColumnNotFound)

	_, _, indices := catalogCounts(t, e)
	assert.Zero(t, indices)
	ok, err := b.Exists(index.FileName("foo", "fx"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateIndex_Rejections(t *testing.T) {
	e, _ := newTestExecutor(t)
	mustExec(t, e, "CREATE TABLE foo (a INT, b TEXT)")
	mustExec(t, e, "CREATE INDEX fx ON foo (a)")

	_, err := e.ExecSQL("CREATE INDEX fx ON foo (b)")
	require.ErrorIs(t, err, ErrIndexExists)

	_, err = e.ExecSQL("CREATE INDEX fy ON nope (a)")
	require.ErrorIs(t, err, catalog.ErrTableNotFound)

	_, err = e.ExecSQL("CREATE INDEX fz ON foo USING GIST (a)")
	require.ErrorIs(t, err, index.ErrUnsupportedType)

	_, err = e.ExecSQL("CREATE INDEX fs ON _columns (table_name)")
	require.ErrorIs(t, err, ErrSystemTable)
}

func TestCreateIndex_ShowIndex(t *testing.T) {
	e, b := newTestExecutor(t)
	mustExec(t, e, "CREATE TABLE foo (a INT, b TEXT)")
	mustExec(t, e, "CREATE INDEX fx ON foo (b, a)")
	mustExec(t, e, "CREATE INDEX fh ON foo USING HASH (a)")

	ok, err := b.Exists(index.FileName("foo", "fx"))
	require.NoError(t, err)
	assert.True(t, ok)

	res := mustExec(t, e, "SHOW INDEX FROM foo")
	assert.Equal(t, []string{"table_name", "index_name", "column_name", "seq_in_index", "index_type", "is_unique"}, res.ColumnNames)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, record.Row{
		"table_name":   record.Text("foo"),
		"index_name":   record.Text("fx"),
		"column_name":  record.Text("a"),
		"seq_in_index": record.Int(2),
		"index_type":   record.Text("BTREE"),
		"is_unique":    record.Bool(true),
	}, res.Rows[1])
	assert.Equal(t, record.Bool(false), res.Rows[2]["is_unique"])
}

func TestCreateIndex_RollbackOnDuplicateKey(t *testing.T) {
	e, b := newTestExecutor(t)
	mustExec(t, e, "CREATE TABLE foo (a INT, b TEXT)")

	tbl, err := e.cat.GetTable("foo")
	require.NoError(t, err)
	for _, a := range []int32{1, 2, 1} {
		_, err := tbl.Insert(record.Row{"a": record.Int(a), "b": record.Text("x")})
		require.NoError(t, err)
	}

	_, err = e.ExecSQL("CREATE INDEX fx ON foo (a)")
	require.ErrorIs(t, err, index.ErrDuplicateKey)

	_, _, indices := catalogCounts(t, e)
	assert.Zero(t, indices)
	ok, err := b.Exists(index.FileName("foo", "fx"))
	require.NoError(t, err)
	assert.False(t, ok)

	// non-unique index over the same column is fine
	mustExec(t, e, "CREATE INDEX fx ON foo USING HASH (a)")
}

func TestCreateIndex_DuplicateKeyColumn(t *testing.T) {
	e, b := newTestExecutor(t)
	mustExec(t, e, "CREATE TABLE foo (a INT, b TEXT)")

	for _, sql := range []string{
		"CREATE INDEX fx ON foo (a, a)",
		"CREATE INDEX fx ON foo USING HASH (a, b, a)",
	} {
		_, err := e.ExecSQL(sql)
		require.ErrorIs(t, err, ErrDuplicateColumn, sql)
	}

	_, _, indices := catalogCounts(t, e)
	assert.Zero(t, indices)
	ok, err := b.Exists(index.FileName("foo", "fx"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateTable_DoesNotShareIndexFile(t *testing.T) {
	e, b := newTestExecutor(t)
	mustExec(t, e, "CREATE TABLE foo (a INT)")
	mustExec(t, e, "CREATE INDEX ix ON foo (a)")
	ixFile := index.FileName("foo", "ix")

	// identifiers that look like index files are ordinary tables
	mustExec(t, e, "CREATE TABLE foo__idx__ix (x INT)")
	mustExec(t, e, "DROP TABLE foo__idx__ix")

	ok, err := b.Exists(ixFile)
	require.NoError(t, err)
	assert.True(t, ok)
	res := mustExec(t, e, "SHOW INDEX FROM foo")
	assert.Len(t, res.Rows, 1)

	// the real index file name never reaches the catalog
	tables, columns, indices := catalogCounts(t, e)
	_, err = e.Execute(&parser.CreateTableStmt{
		TableName: ixFile,
		Columns:   []parser.ColumnDef{{Name: "x", Type: "INT"}},
	})
	require.ErrorIs(t, err, ErrReservedName)
	_, err = e.ExecSQL("CREATE TABLE " + ixFile + " (x INT)")
	require.Error(t, err)

	t2, c2, i2 := catalogCounts(t, e)
	assert.Equal(t, []int{tables, columns, indices}, []int{t2, c2, i2})
	ok, err = b.Exists(ixFile)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = e.Execute(&parser.CreateIndexStmt{TableName: "foo", IndexName: "a" + index.FileSep + "b", Columns: []string{"a"}})
	require.ErrorIs(t, err, ErrReservedName)
}

func TestCreateIndex_NamesAcrossTablesDoNotCollide(t *testing.T) {
	e, b := newTestExecutor(t)
	mustExec(t, e, "CREATE TABLE a (k INT)")
	mustExec(t, e, "CREATE TABLE a__idx__b (k INT)")

	insert := func(table string, keys ...int32) {
		tbl, err := e.cat.GetTable(table)
		require.NoError(t, err)
		defer func() { require.NoError(t, tbl.Close()) }()
		for _, k := range keys {
			_, err := tbl.Insert(record.Row{"k": record.Int(k)})
			require.NoError(t, err)
		}
	}
	insert("a", 1)
	insert("a__idx__b", 2, 3)

	mustExec(t, e, "CREATE INDEX b__idx__c ON a (k)")
	mustExec(t, e, "CREATE INDEX c ON a__idx__b (k)")

	first, second := index.FileName("a", "b__idx__c"), index.FileName("a__idx__b", "c")
	require.NotEqual(t, first, second)
	for _, name := range []string{first, second} {
		ok, err := b.Exists(name)
		require.NoError(t, err)
		assert.True(t, ok, name)
	}

	entries := func(table, name string) int {
		info, err := e.cat.GetIndex(table, name)
		require.NoError(t, err)
		ix, err := e.indexes.Index(info)
		require.NoError(t, err)
		es, err := ix.(*index.SortedIndex).Entries()
		require.NoError(t, err)
		return len(es)
	}
	assert.Equal(t, 1, entries("a", "b__idx__c"))
	assert.Equal(t, 2, entries("a__idx__b", "c"))
}

func TestDropTable_DropsIndexesFirst(t *testing.T) {
	e, b := newTestExecutor(t)
	mustExec(t, e, "CREATE TABLE foo (a INT, b TEXT)")
	mustExec(t, e, "CREATE TABLE other (a INT)")
	mustExec(t, e, "CREATE INDEX fx ON foo (a)")
	mustExec(t, e, "CREATE INDEX ox ON other (a)")

	res := mustExec(t, e, "DROP TABLE foo")
	assert.Equal(t, "dropped foo", res.Message)

	for _, name := range []string{"foo", index.FileName("foo", "fx")} {
		ok, err := b.Exists(name)
		require.NoError(t, err)
		assert.False(t, ok, name)
	}

	tables, columns, indices := catalogCounts(t, e)
	assert.Equal(t, 1, tables)
	assert.Equal(t, 1, columns)
	assert.Equal(t, 1, indices)

	_, err := e.cat.GetColumns("foo")
	require.ErrorIs(t, err, catalog.ErrTableNotFound)

	// the name is free again
	mustExec(t, e, "CREATE TABLE foo (z TEXT)")
	res = mustExec(t, e, "SHOW COLUMNS FROM foo")
	require.Len(t, res.Rows, 1)
	assert.Equal(t, record.Text("z"), res.Rows[0]["column_name"])
}

func TestDropTable_Rejections(t *testing.T) {
	e, _ := newTestExecutor(t)

	_, err := e.ExecSQL("DROP TABLE nope")
	require.ErrorIs(t, err, catalog.ErrTableNotFound)

	_, err = e.ExecSQL("DROP TABLE _indices")
	require.ErrorIs(t, err, ErrSystemTable)
}

func TestDropIndex(t *testing.T) {
	e, b := newTestExecutor(t)
	mustExec(t, e, "CREATE TABLE foo (a INT, b TEXT)")
	mustExec(t, e, "CREATE INDEX fx ON foo (a, b)")
	mustExec(t, e, "CREATE INDEX fy ON foo (b)")

	res := mustExec(t, e, "DROP INDEX fx FROM foo")
	assert.Equal(t, "dropped index fx", res.Message)

	ok, err := b.Exists(index.FileName("foo", "fx"))
	require.NoError(t, err)
	assert.False(t, ok)

	res = mustExec(t, e, "SHOW INDEX FROM foo")
	require.Len(t, res.Rows, 1)
	assert.Equal(t, record.Text("fy"), res.Rows[0]["index_name"])

	_, err = e.ExecSQL("DROP INDEX fx FROM foo")
	require.ErrorIs(t, err, catalog.ErrIndexNotFound)
	_, err = e.ExecSQL("DROP INDEX fx FROM nope")
	require.ErrorIs(t, err, catalog.ErrTableNotFound)
}

func TestShowTables_HidesSystemTables(t *testing.T) {
	e, _ := newTestExecutor(t)

	res := mustExec(t, e, "SHOW TABLES")
	assert.Empty(t, res.Rows)
	assert.Equal(t, "successfully returned 0 rows", res.Message)

	mustExec(t, e, "CREATE TABLE foo (a INT)")
	mustExec(t, e, "CREATE TABLE bar (a INT)")
	res = mustExec(t, e, "SHOW TABLES")
	require.Len(t, res.Rows, 2)
	for _, row := range res.Rows {
		assert.False(t, catalog.IsSystemTable(row["table_name"].S))
	}
	assert.Equal(t, record.Text("foo"), res.Rows[0]["table_name"])
}

func TestNotImplemented(t *testing.T) {
	e, _ := newTestExecutor(t)
	for _, sql := range []string{"INSERT INTO foo VALUES (1)", "SELECT * FROM foo", "DELETE FROM foo", "UPDATE foo SET a = 1"} {
		res := mustExec(t, e, sql)
		assert.Equal(t, "not implemented", res.Message)
	}
}

func TestExecError_RelationPrefix(t *testing.T) {
	var err error = &ExecError{Msg: "insert", Err: storage.Relationf("row too big")}
	assert.True(t, strings.HasPrefix(err.Error(), "DbRelationError: "))
	assert.ErrorIs(t, err, storage.ErrRelation)

	plain := &ExecError{Msg: "oops"}
	assert.Equal(t, "oops", plain.Error())

	e, _ := newTestExecutor(t)
	_, err = e.ExecSQL("FROB")
	var ee *ExecError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "parse", ee.Msg)
}

func TestResult_String(t *testing.T) {
	r := &Result{
		ColumnNames:      []string{"a", "b"},
		ColumnAttributes: []record.DataType{record.TypeInt, record.TypeText},
		Rows:             []record.Row{{"a": record.Int(12), "b": record.Text("Hello!")}},
		Message:          "successfully returned 1 rows",
	}
	assert.Equal(t, "a b \n+----------+----------+\n12 \"Hello!\" \nsuccessfully returned 1 rows", r.String())

	assert.Equal(t, "created foo", messageResult("created foo").String())
}
