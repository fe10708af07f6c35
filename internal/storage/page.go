package storage

import (
	"github.com/tuannm99/heapsql/internal/alias/bx"
)

// +------------------+ 0
// | slot 0: header   |  (record count, end_free)
// | slot 1..n        |  (size, offset) per record
// +------------------+ <-- SlotHeaderSize*(n+1)
// |                  |
// |   Free space     |
// |                  |
// +------------------+ <-- end_free+1
// |  Record data     |
// |  (grows down)    |
// +------------------+ BlockSize (4096)
//
// A deleted record keeps its slot as a tombstone (size=0, offset=0) and its id is
// never handed out again. Deletes and resizes compact the record region so the
// free space is always one contiguous span.
type SlottedPage struct {
	Buf []byte // fixed-size 4KB

	id         BlockID
	numRecords uint16
	endFree    uint16
}

// NewSlottedPage wraps buf. With isNew the page header is initialized, otherwise
// it is read back from the buffer and sanity checked.
func NewSlottedPage(buf []byte, id BlockID, isNew bool) (*SlottedPage, error) {
	if len(buf) != BlockSize {
		return nil, ErrWrongSize
	}
	p := &SlottedPage{Buf: buf, id: id}
	if isNew {
		p.init()
		return p, nil
	}

	p.numRecords = bx.U16At(buf, 0)
	p.endFree = bx.U16At(buf, 2)
	if int(p.endFree) >= BlockSize || p.slotTableEnd() > int(p.endFree)+1 {
		return nil, ErrCorruption
	}
	return p, nil
}

func (p *SlottedPage) init() {
	clear(p.Buf)
	p.numRecords = 0
	p.endFree = BlockSize - 1
	p.putPageHeader()
}

func (p *SlottedPage) BlockID() BlockID { return p.id }

func (p *SlottedPage) Bytes() []byte { return p.Buf }

func (p *SlottedPage) NumRecords() int { return int(p.numRecords) }

// FreeSpace is the size of the contiguous span between the slot table and the
// record region.
func (p *SlottedPage) FreeSpace() int {
	return int(p.endFree) + 1 - p.slotTableEnd()
}

// HasRoom reports whether Add would accept a record of size bytes, counting the
// slot header the new record needs.
func (p *SlottedPage) HasRoom(size int) bool {
	return size >= 0 && p.FreeSpace() >= size+SlotHeaderSize
}

func (p *SlottedPage) slotTableEnd() int {
	return SlotHeaderSize * (int(p.numRecords) + 1)
}

// ---- header accessors ----

func (p *SlottedPage) putPageHeader() {
	bx.PutU16At(p.Buf, 0, p.numRecords)
	bx.PutU16At(p.Buf, 2, p.endFree)
}

func (p *SlottedPage) checkID(id RecordID) error {
	if id == 0 || uint16(id) > p.numRecords {
		return Relationf("record id %d is not a record in block %d", id, p.id)
	}
	return nil
}

func (p *SlottedPage) header(id RecordID) (size, loc uint16, err error) {
	if err := p.checkID(id); err != nil {
		return 0, 0, err
	}
	off := SlotHeaderSize * int(id)
	return bx.U16At(p.Buf, off), bx.U16At(p.Buf, off+2), nil
}

func (p *SlottedPage) putHeader(id RecordID, size, loc uint16) error {
	if err := p.checkID(id); err != nil {
		return err
	}
	off := SlotHeaderSize * int(id)
	bx.PutU16At(p.Buf, off, size)
	bx.PutU16At(p.Buf, off+2, loc)
	return nil
}

func (p *SlottedPage) liveHeader(id RecordID) (size, loc uint16, err error) {
	size, loc, err = p.header(id)
	if err != nil {
		return 0, 0, err
	}
	if size == 0 {
		return 0, 0, Relationf("record id %d in block %d has been deleted", id, p.id)
	}
	// record must sit inside the record region
	if int(loc) <= int(p.endFree) || int(loc)+int(size) > BlockSize {
		return 0, 0, ErrCorruption
	}
	return size, loc, nil
}

func checkPayload(data []byte) error {
	if len(data) == 0 {
		return Relationf("empty record")
	}
	if len(data) > MaxRecordSize {
		return Relationf("record of %d bytes exceeds block capacity %d", len(data), MaxRecordSize)
	}
	return nil
}

// ---- records ----

// Add stores data as a new record and returns its id.
func (p *SlottedPage) Add(data []byte) (RecordID, error) {
	if err := checkPayload(data); err != nil {
		return 0, err
	}
	if !p.HasRoom(len(data)) {
		return 0, ErrNoRoom
	}

	p.numRecords++
	id := RecordID(p.numRecords)
	size := uint16(len(data))
	p.endFree -= size
	loc := p.endFree + 1

	copy(p.Buf[loc:int(loc)+len(data)], data)
	p.putPageHeader()
	if err := p.putHeader(id, size, loc); err != nil {
		return 0, err
	}
	return id, nil
}

// Get returns a copy of the record payload.
func (p *SlottedPage) Get(id RecordID) ([]byte, error) {
	size, loc, err := p.liveHeader(id)
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	copy(out, p.Buf[loc:int(loc)+int(size)])
	return out, nil
}

// Put replaces the payload of a live record. Growth shifts the records below it
// to make room; shrinking compacts the freed bytes back into the free span.
func (p *SlottedPage) Put(id RecordID, data []byte) error {
	size, loc, err := p.liveHeader(id)
	if err != nil {
		return err
	}
	if err := checkPayload(data); err != nil {
		return err
	}

	newSize := len(data)
	delta := newSize - int(size)
	switch {
	case delta > 0:
		if p.FreeSpace() < delta {
			return ErrNoRoom
		}
		p.slide(loc, -delta)
		newLoc := int(loc) - delta
		copy(p.Buf[newLoc:newLoc+newSize], data)
		return p.putHeader(id, uint16(newSize), uint16(newLoc))

	case delta < 0:
		// keep the record flush with the end of its old span, then close the gap
		newLoc := int(loc) - delta
		copy(p.Buf[newLoc:newLoc+newSize], data)
		p.slide(loc, -delta)
		return p.putHeader(id, uint16(newSize), uint16(newLoc))

	default:
		copy(p.Buf[loc:int(loc)+newSize], data)
		return nil
	}
}

// Del tombstones the record and compacts its bytes away.
func (p *SlottedPage) Del(id RecordID) error {
	size, loc, err := p.liveHeader(id)
	if err != nil {
		return err
	}
	if err := p.putHeader(id, 0, 0); err != nil {
		return err
	}
	p.slide(loc, int(size))
	return nil
}

// IDs returns the live record ids in ascending order.
func (p *SlottedPage) IDs() []RecordID {
	out := make([]RecordID, 0, p.numRecords)
	for i := uint16(1); i <= p.numRecords; i++ {
		size := bx.U16At(p.Buf, SlotHeaderSize*int(i))
		if size != 0 {
			out = append(out, RecordID(i))
		}
	}
	return out
}

// slide moves the record bytes between the free boundary and start by shift
// (negative = towards the slot table) and repatches every live slot located at
// or below start. The free span stays contiguous.
func (p *SlottedPage) slide(start uint16, shift int) {
	if shift == 0 {
		return
	}
	from := int(p.endFree) + 1
	n := int(start) - from
	copy(p.Buf[from+shift:from+shift+n], p.Buf[from:from+n])
	if shift > 0 {
		clear(p.Buf[from : from+shift])
	}

	for i := uint16(1); i <= p.numRecords; i++ {
		off := SlotHeaderSize * int(i)
		size := bx.U16At(p.Buf, off)
		loc := bx.U16At(p.Buf, off+2)
		if size == 0 || loc > start {
			continue
		}
		bx.PutU16At(p.Buf, off+2, uint16(int(loc)+shift))
	}

	p.endFree = uint16(int(p.endFree) + shift)
	p.putPageHeader()
}
