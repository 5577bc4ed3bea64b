package binary

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestWriterFixedWidth(t *testing.T) {
	buf := NewBuffer(0)
	w := NewWriter(buf)

	if err := w.WriteUint8(0x42); err != nil {
		t.Fatalf("WriteUint8 failed: %v", err)
	}
	if err := w.WriteUint16(0x0102); err != nil {
		t.Fatalf("WriteUint16 failed: %v", err)
	}
	if err := w.WriteUint32(0x01020304); err != nil {
		t.Fatalf("WriteUint32 failed: %v", err)
	}
	if err := w.WriteUint64(0x0102030405060708); err != nil {
		t.Fatalf("WriteUint64 failed: %v", err)
	}

	want := []byte{
		0x42,
		0x02, 0x01,
		0x04, 0x03, 0x02, 0x01,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("got %x, want %x", buf.Bytes(), want)
	}
	if w.Pos() != int64(len(want)) {
		t.Errorf("expected position %d, got %d", len(want), w.Pos())
	}
}

func TestWriterRoundTrip(t *testing.T) {
	buf := NewBuffer(16)
	w := NewWriter(buf)
	if err := w.WriteString("tiered"); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteBlob([]byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteZeros(2); err != nil {
		t.Fatal(err)
	}

	r := NewReader(bytes.NewReader(buf.Bytes()))
	s, err := r.ReadString()
	if err != nil || s != "tiered" {
		t.Errorf("ReadString = %q, %v", s, err)
	}
	b, err := r.ReadBlob()
	if err != nil || !bytes.Equal(b, []byte{1, 2, 3}) {
		t.Errorf("ReadBlob = %x, %v", b, err)
	}
	z, err := r.ReadBytes(2)
	if err != nil || !bytes.Equal(z, []byte{0, 0}) {
		t.Errorf("zeros = %x, %v", z, err)
	}
}

func TestWriterStringTooLong(t *testing.T) {
	w := NewWriter(NewBuffer(0))
	if err := w.WriteString(strings.Repeat("x", 0x10000)); !errors.Is(err, ErrTooLong) {
		t.Errorf("expected ErrTooLong, got %v", err)
	}
}

func TestBufferWriteAtGap(t *testing.T) {
	buf := NewBuffer(2)
	w := NewWriter(buf)

	// Patch a field after writing past it, as header writers do for sizes.
	if err := w.At(4).WriteUint16(0xBEEF); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteUint16(0x0001); err != nil {
		t.Fatal(err)
	}

	want := []byte{0x01, 0x00, 0x00, 0x00, 0xEF, 0xBE}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("got %x, want %x", buf.Bytes(), want)
	}
	if buf.Len() != 6 {
		t.Errorf("Len = %d", buf.Len())
	}

	if _, err := buf.WriteAt([]byte{1}, -1); err == nil {
		t.Error("negative offset should fail")
	}
}
