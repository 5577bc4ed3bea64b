package operator

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/robert-malhotra/go-stepio/internal/dtype"
	"github.com/robert-malhotra/go-stepio/internal/status"
)

// DeflateName identifies the zlib codec.
const DeflateName = "deflate"

// Deflate compresses blocks with zlib. Params: level (-2..9, default 6).
type Deflate struct {
	base
	level int
}

// NewDeflate creates a zlib codec.
func NewDeflate(params Params) (*Deflate, error) {
	level, err := params.Int("level", 6)
	if err != nil {
		return nil, err
	}
	if level < zlib.HuffmanOnly || level > zlib.BestCompression {
		return nil, fmt.Errorf("deflate level %d: %w", level, status.ErrInvalidArgument)
	}
	return &Deflate{base: base{name: DeflateName, params: params}, level: level}, nil
}

func (f *Deflate) IsDataTypeValid(typ dtype.Type) bool {
	return typ.Valid()
}

// Bound leaves room for stored blocks, the final empty block, the zlib
// framing and huffman-only expansion.
func (f *Deflate) Bound(n int) int {
	return headerBound(f.name, f.params) + n + n>>3 + n>>6 + 64
}

func (f *Deflate) Compress(in []byte, dims []uint64, elemSize int, typ dtype.Type, out []byte, params Params, info Info) (int, error) {
	if err := checkType(f, typ); err != nil {
		return 0, err
	}
	p := f.params.merge(params)
	level, err := p.Int("level", f.level)
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return 0, fmt.Errorf("deflate level %d: %v: %w", level, err, status.ErrInvalidArgument)
	}
	if _, err := zw.Write(in); err != nil {
		return 0, fmt.Errorf("zlib compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("zlib compress: %w", err)
	}

	n, err := writeFrame(out, Header{
		Codec:    f.name,
		Type:     typ,
		ElemSize: elemSize,
		Dims:     dims,
		RawSize:  uint64(len(in)),
		Params:   p,
	}, buf.Bytes())
	if err != nil {
		return 0, err
	}
	info.set("raw_size", len(in))
	info.set("compressed_size", buf.Len())
	return n, nil
}

func (f *Deflate) Decompress(in []byte, out []byte, dims []uint64, typ dtype.Type, params Params) (int, error) {
	h, payload, err := openFrame(f.name, in, dims, typ)
	if err != nil {
		return 0, err
	}
	if err := checkOut(f.name, out, h.RawSize); err != nil {
		return 0, err
	}

	r, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("zlib reader: %v: %w", err, status.ErrCorruptInput)
	}
	defer r.Close()

	n, err := io.ReadFull(r, out[:h.RawSize])
	if err != nil {
		return 0, fmt.Errorf("zlib decompress: %v: %w", err, status.ErrCorruptInput)
	}
	// The stream must end exactly at the recorded size, and reading its end
	// verifies the adler32 trailer.
	extra, err := r.Read(make([]byte, 1))
	if extra != 0 {
		return 0, fmt.Errorf("zlib decompress: more than %d bytes: %w", h.RawSize, status.ErrCorruptInput)
	}
	if err != io.EOF {
		return 0, fmt.Errorf("zlib decompress: stream end: %v: %w", err, status.ErrCorruptInput)
	}
	return n, nil
}
