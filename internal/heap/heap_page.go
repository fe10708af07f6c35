package heap

import (
	"github.com/tuannm99/heapsql/internal/record"
	"github.com/tuannm99/heapsql/internal/storage"
)

// HeapPage = SlottedPage + Schema, a row-level wrapper that works on
// record.Row instead of raw bytes.
type HeapPage struct {
	Page   *storage.SlottedPage
	Schema record.Schema
}

func NewHeapPage(p *storage.SlottedPage, s record.Schema) HeapPage {
	return HeapPage{Page: p, Schema: s}
}

func (hp *HeapPage) ReadRow(id storage.RecordID) (record.Row, error) {
	data, err := hp.Page.Get(id)
	if err != nil {
		return nil, err
	}
	return record.DecodeRow(hp.Schema, data)
}

// Rows decodes every live record in slot order.
func (hp *HeapPage) Rows(fn func(id storage.RecordID, row record.Row) error) error {
	for _, id := range hp.Page.IDs() {
		row, err := hp.ReadRow(id)
		if err != nil {
			return err
		}
		if err := fn(id, row); err != nil {
			return err
		}
	}
	return nil
}
