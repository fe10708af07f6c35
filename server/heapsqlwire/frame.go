package heapsqlwire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MaxFrameSize limits memory usage on malformed or hostile input.
const MaxFrameSize = 8 << 20

const headerSize = 4

var (
	ErrEmptyFrame    = errors.New("heapsqlwire: empty frame")
	ErrFrameTooLarge = errors.New("heapsqlwire: frame too large")
)

// ReadFrame reads one frame: a big-endian uint32 length, then that many bytes
// of JSON decoded into v.
func ReadFrame(r io.Reader, v any) error {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	switch {
	case n == 0:
		return ErrEmptyFrame
	case n > MaxFrameSize:
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, MaxFrameSize)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("heapsqlwire: short frame: %w", err)
	}
	if err := json.Unmarshal(buf, v); err != nil {
		return fmt.Errorf("heapsqlwire: bad json: %w", err)
	}
	return nil
}

// WriteFrame encodes v and writes header and body in a single Write.
func WriteFrame(w io.Writer, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("heapsqlwire: marshal: %w", err)
	}
	if len(body) > MaxFrameSize {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(body), MaxFrameSize)
	}

	frame := make([]byte, headerSize, headerSize+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	frame = append(frame, body...)
	_, err = w.Write(frame)
	return err
}
