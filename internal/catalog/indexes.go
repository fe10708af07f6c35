package catalog

import (
	"fmt"
	"sort"

	"github.com/tuannm99/heapsql/internal/heap"
	"github.com/tuannm99/heapsql/internal/record"
)

// IndexInfo is one index reassembled from its _indices rows.
type IndexInfo struct {
	Table   string
	Name    string
	Type    string
	Unique  bool
	Columns []string // key columns in seq_in_index order
}

// ListIndexes returns the indexes of table in the order they were created.
func (c *Catalog) ListIndexes(table string) ([]IndexInfo, error) {
	type keyed struct {
		seq int32
		col string
	}
	var (
		order []string
		infos = map[string]*IndexInfo{}
		cols  = map[string][]keyed{}
	)

	err := c.Indices.Scan(func(_ heap.Handle, row record.Row) error {
		if row["table_name"].S != table {
			return nil
		}
		name := row["index_name"].S
		if _, ok := infos[name]; !ok {
			order = append(order, name)
			infos[name] = &IndexInfo{
				Table:  table,
				Name:   name,
				Type:   row["index_type"].S,
				Unique: row["is_unique"].B,
			}
		}
		cols[name] = append(cols[name], keyed{seq: row["seq_in_index"].N, col: row["column_name"].S})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: list indexes of %s: %w", table, err)
	}

	out := make([]IndexInfo, 0, len(order))
	for _, name := range order {
		ks := cols[name]
		sort.SliceStable(ks, func(i, j int) bool { return ks[i].seq < ks[j].seq })
		info := infos[name]
		for _, k := range ks {
			info.Columns = append(info.Columns, k.col)
		}
		out = append(out, *info)
	}
	return out, nil
}

func (c *Catalog) GetIndex(table, name string) (IndexInfo, error) {
	infos, err := c.ListIndexes(table)
	if err != nil {
		return IndexInfo{}, err
	}
	for _, info := range infos {
		if info.Name == name {
			return info, nil
		}
	}
	return IndexInfo{}, fmt.Errorf("%w: %s on %s", ErrIndexNotFound, name, table)
}

// IndexHandles returns the _indices rows of one index.
func (c *Catalog) IndexHandles(table, name string) ([]heap.Handle, error) {
	return c.Indices.Select(record.Row{
		"table_name": record.Text(table),
		"index_name": record.Text(name),
	})
}
