package operator

import (
	"fmt"

	"github.com/robert-malhotra/go-stepio/internal/binary"
	"github.com/robert-malhotra/go-stepio/internal/dtype"
	"github.com/robert-malhotra/go-stepio/internal/status"
)

// ChecksumName identifies the Fletcher-32 codec.
const ChecksumName = "checksum"

// Checksum appends a Fletcher-32 checksum to the block and verifies it on
// the way back.
type Checksum struct {
	base
}

// NewChecksum creates a Fletcher-32 codec. It takes no params.
func NewChecksum(params Params) *Checksum {
	return &Checksum{base: base{name: ChecksumName, params: params}}
}

func (f *Checksum) IsDataTypeValid(typ dtype.Type) bool {
	return typ.Valid()
}

func (f *Checksum) Bound(n int) int {
	return headerBound(f.name, f.params) + n + 4
}

func (f *Checksum) Compress(in []byte, dims []uint64, elemSize int, typ dtype.Type, out []byte, params Params, info Info) (int, error) {
	if err := checkType(f, typ); err != nil {
		return 0, err
	}
	sum := binary.Fletcher32(in)
	payload := binary.Order.AppendUint32(append(make([]byte, 0, len(in)+4), in...), sum)

	n, err := writeFrame(out, Header{
		Codec:    f.name,
		Type:     typ,
		ElemSize: elemSize,
		Dims:     dims,
		RawSize:  uint64(len(in)),
		Params:   f.params.merge(params),
	}, payload)
	if err != nil {
		return 0, err
	}
	info.set("fletcher32", fmt.Sprintf("%08x", sum))
	return n, nil
}

// Decompress verifies the checksum stored as the last 4 bytes of the
// payload and returns the data without it.
func (f *Checksum) Decompress(in []byte, out []byte, dims []uint64, typ dtype.Type, params Params) (int, error) {
	h, payload, err := openFrame(f.name, in, dims, typ)
	if err != nil {
		return 0, err
	}
	if uint64(len(payload)) != h.RawSize+4 {
		return 0, corrupt("fletcher32: payload %d bytes, raw size %d", len(payload), h.RawSize)
	}
	data := payload[:h.RawSize]
	stored := binary.Order.Uint32(payload[h.RawSize:])
	if !binary.VerifyFletcher32(data, stored) {
		return 0, fmt.Errorf("fletcher32: checksum mismatch (stored=0x%08x, computed=0x%08x): %w",
			stored, binary.Fletcher32(data), status.ErrCorruptInput)
	}
	if err := checkOut(f.name, out, h.RawSize); err != nil {
		return 0, err
	}
	return copy(out, data), nil
}
