package storage

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"unicode"
	"unicode/utf8"

	"github.com/davecgh/go-spew/spew"

	"github.com/tuannm99/heapsql/internal/alias/bx"
)

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Fprintf(format string, a ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, a...)
}

func (e *errWriter) Fprintln(a ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintln(e.w, a...)
}

// SlotHeader is the decoded (size, offset) pair of one slot.
type SlotHeader struct {
	ID     RecordID
	Size   uint16
	Offset uint16
}

func (s SlotHeader) Tombstone() bool { return s.Size == 0 }

// SlotHeaders decodes every slot, tombstones included.
func (p *SlottedPage) SlotHeaders() []SlotHeader {
	out := make([]SlotHeader, 0, p.numRecords)
	for i := uint16(1); i <= p.numRecords; i++ {
		off := SlotHeaderSize * int(i)
		out = append(out, SlotHeader{
			ID:     RecordID(i),
			Size:   bx.U16At(p.Buf, off),
			Offset: bx.U16At(p.Buf, off+2),
		})
	}
	return out
}

func utf8Preview(b []byte) string {
	if !utf8.Valid(b) {
		return ""
	}
	var buf bytes.Buffer
	for _, r := range string(b) {
		if unicode.IsPrint(r) && r != '\n' && r != '\r' && r != '\t' {
			buf.WriteRune(r)
		} else {
			buf.WriteByte('.')
		}
	}
	return buf.String()
}

// ASCII preview: printable -> itself, else '.'
func asciiPreview(b []byte) string {
	var buf bytes.Buffer
	for _, c := range b {
		r := rune(c)
		if unicode.IsPrint(r) && r != '\n' && r != '\r' && r != '\t' {
			buf.WriteRune(r)
		} else {
			buf.WriteByte('.')
		}
	}
	return buf.String()
}

var slotDumper = spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true}

// Debug prints the page header, the slot table and record previews to w.
func (p *SlottedPage) Debug(w io.Writer) error {
	ew := &errWriter{w: w}

	ew.Fprintf("=== Block Debug ===\n")
	ew.Fprintf("block=%d numRecords=%d endFree=%d freeSpace=%d\n",
		p.id, p.numRecords, p.endFree, p.FreeSpace())

	ew.Fprintln("\n-- Slots --")
	headers := p.SlotHeaders()
	if len(headers) == 0 {
		ew.Fprintln("(none)")
	} else {
		ew.Fprintf("%s", slotDumper.Sdump(headers))
	}

	ew.Fprintln("\n-- Records (preview) --")
	const maxPreview = 32
	for _, h := range headers {
		if ew.err != nil {
			break
		}
		if h.Tombstone() {
			ew.Fprintf("[%d] <deleted>\n", h.ID)
			continue
		}
		data, err := p.Get(h.ID)
		if err != nil {
			ew.Fprintf("[%d] (read) %v\n", h.ID, err)
			continue
		}
		preview := data
		if len(preview) > maxPreview {
			preview = preview[:maxPreview]
		}
		ew.Fprintf("[%d] len=%d preview(hex)=%s\n", h.ID, len(data), hex.EncodeToString(preview))
		if s := utf8Preview(preview); s != "" {
			ew.Fprintf("     preview(utf8)=\"%s\"\n", s)
		} else {
			ew.Fprintf("     preview(ascii)=\"%s\"\n", asciiPreview(preview))
		}
	}

	ew.Fprintf("\n-- FreeSpace --\nrange: [%d .. %d] size=%d bytes\n",
		p.slotTableEnd(), p.endFree, p.FreeSpace())
	ew.Fprintln("=== End Block Debug ===")
	return ew.err
}

func (p *SlottedPage) DebugString() string {
	var b bytes.Buffer
	if err := p.Debug(&b); err != nil {
		_, _ = b.WriteString("\n<debug write error: " + err.Error() + ">\n")
	}
	return b.String()
}
