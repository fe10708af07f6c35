package catalog

import "github.com/tuannm99/heapsql/internal/record"

// Bootstrap relations. They describe every other table and never describe
// themselves.
const (
	TablesTable  = "_tables"
	ColumnsTable = "_columns"
	IndicesTable = "_indices"
)

// Index types accepted by CREATE INDEX.
const (
	IndexTypeBTree = "BTREE"
	IndexTypeHash  = "HASH"
)

var (
	tablesSchema = record.NewSchema(
		record.Column{Name: "table_name", Type: record.TypeText},
	)
	columnsSchema = record.NewSchema(
		record.Column{Name: "table_name", Type: record.TypeText},
		record.Column{Name: "column_name", Type: record.TypeText},
		record.Column{Name: "data_type", Type: record.TypeText},
	)
	indicesSchema = record.NewSchema(
		record.Column{Name: "table_name", Type: record.TypeText},
		record.Column{Name: "index_name", Type: record.TypeText},
		record.Column{Name: "column_name", Type: record.TypeText},
		record.Column{Name: "seq_in_index", Type: record.TypeInt},
		record.Column{Name: "index_type", Type: record.TypeText},
		record.Column{Name: "is_unique", Type: record.TypeBoolean},
	)
)

// bootstrapOrder is the creation order on first start.
var bootstrapOrder = []struct {
	name   string
	schema record.Schema
}{
	{TablesTable, tablesSchema},
	{ColumnsTable, columnsSchema},
	{IndicesTable, indicesSchema},
}

func IsSystemTable(name string) bool {
	switch name {
	case TablesTable, ColumnsTable, IndicesTable:
		return true
	default:
		return false
	}
}

func systemSchema(name string) (record.Schema, bool) {
	for _, b := range bootstrapOrder {
		if b.name == name {
			return b.schema, true
		}
	}
	return record.Schema{}, false
}

// TableRow is the _tables row registering name.
func TableRow(name string) record.Row {
	return record.Row{"table_name": record.Text(name)}
}

// ColumnRow is the _columns row describing one column of table.
func ColumnRow(table string, col record.Column) record.Row {
	return record.Row{
		"table_name":  record.Text(table),
		"column_name": record.Text(col.Name),
		"data_type":   record.Text(col.Type.String()),
	}
}

// IndexRows are the _indices rows for info, seq_in_index counting from 1.
func IndexRows(info IndexInfo) []record.Row {
	rows := make([]record.Row, 0, len(info.Columns))
	for i, col := range info.Columns {
		rows = append(rows, record.Row{
			"table_name":   record.Text(info.Table),
			"index_name":   record.Text(info.Name),
			"column_name":  record.Text(col),
			"seq_in_index": record.Int(int32(i + 1)),
			"index_type":   record.Text(info.Type),
			"is_unique":    record.Bool(info.Unique),
		})
	}
	return rows
}
