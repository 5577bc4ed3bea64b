package binary

import (
	"errors"
	"io"
)

// Writer writes fixed-width fields to an io.WriterAt, tracking its own
// position.
type Writer struct {
	w   io.WriterAt
	pos int64
}

// NewWriter creates a writer positioned at offset 0.
func NewWriter(w io.WriterAt) *Writer {
	return &Writer{w: w}
}

// At returns a new writer positioned at the given offset.
// The new writer shares the underlying io.WriterAt but has independent position.
func (w *Writer) At(offset int64) *Writer {
	return &Writer{w: w.w, pos: offset}
}

// Pos returns the current write position.
func (w *Writer) Pos() int64 {
	return w.pos
}

// WriteBytes writes the given bytes at the current position.
func (w *Writer) WriteBytes(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	n, err := w.w.WriteAt(data, w.pos)
	w.pos += int64(n)
	return err
}

// WriteUint8 writes an unsigned 8-bit integer.
func (w *Writer) WriteUint8(v uint8) error {
	return w.WriteBytes([]byte{v})
}

// WriteUint16 writes an unsigned 16-bit integer.
func (w *Writer) WriteUint16(v uint16) error {
	return w.WriteBytes(Order.AppendUint16(nil, v))
}

// WriteUint32 writes an unsigned 32-bit integer.
func (w *Writer) WriteUint32(v uint32) error {
	return w.WriteBytes(Order.AppendUint32(nil, v))
}

// WriteUint64 writes an unsigned 64-bit integer.
func (w *Writer) WriteUint64(v uint64) error {
	return w.WriteBytes(Order.AppendUint64(nil, v))
}

// ErrTooLong is returned when a length-prefixed field does not fit its prefix.
var ErrTooLong = errors.New("field too long for length prefix")

// WriteString writes s prefixed by its uint16 length.
func (w *Writer) WriteString(s string) error {
	if len(s) > 0xFFFF {
		return ErrTooLong
	}
	if err := w.WriteUint16(uint16(len(s))); err != nil {
		return err
	}
	return w.WriteBytes([]byte(s))
}

// WriteBlob writes b prefixed by its uint32 length.
func (w *Writer) WriteBlob(b []byte) error {
	if uint64(len(b)) > 0xFFFFFFFF {
		return ErrTooLong
	}
	if err := w.WriteUint32(uint32(len(b))); err != nil {
		return err
	}
	return w.WriteBytes(b)
}

// WriteZeros writes n zero bytes.
func (w *Writer) WriteZeros(n int) error {
	if n <= 0 {
		return nil
	}
	return w.WriteBytes(make([]byte, n))
}

// Buffer is an in-memory io.WriterAt that grows to fit every write.
type Buffer struct {
	buf []byte
}

// NewBuffer creates a Buffer with the given initial capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{buf: make([]byte, 0, capacity)}
}

// WriteAt implements io.WriterAt. Gaps left by writes past the end are
// zero-filled.
func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("binary: negative offset")
	}
	end := int(off) + len(p)
	if end > len(b.buf) {
		if end > cap(b.buf) {
			grown := make([]byte, end, max(end, 2*cap(b.buf)))
			copy(grown, b.buf)
			b.buf = grown
		} else {
			old := len(b.buf)
			b.buf = b.buf[:end]
			clear(b.buf[old:])
		}
	}
	copy(b.buf[off:], p)
	return len(p), nil
}

// Bytes returns the written bytes. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte {
	return b.buf
}

// Len returns the number of bytes written.
func (b *Buffer) Len() int {
	return len(b.buf)
}
