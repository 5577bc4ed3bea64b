package operator

import (
	"fmt"

	"github.com/robert-malhotra/go-stepio/internal/dtype"
	"github.com/robert-malhotra/go-stepio/internal/status"
)

// ShuffleName identifies the byte shuffle codec.
const ShuffleName = "shuffle"

// Shuffle rearranges bytes so that byte i of every element is stored
// together: [all byte 0s][all byte 1s]...[all byte N-1s]. Trailing bytes
// that do not form a whole element are kept in place.
type Shuffle struct {
	base
}

// NewShuffle creates a byte shuffle codec. It takes no params.
func NewShuffle(params Params) *Shuffle {
	return &Shuffle{base: base{name: ShuffleName, params: params}}
}

func (f *Shuffle) IsDataTypeValid(typ dtype.Type) bool {
	return typ.Valid()
}

func (f *Shuffle) Bound(n int) int {
	return headerBound(f.name, f.params) + n
}

func (f *Shuffle) Compress(in []byte, dims []uint64, elemSize int, typ dtype.Type, out []byte, params Params, info Info) (int, error) {
	if err := checkType(f, typ); err != nil {
		return 0, err
	}
	if elemSize <= 0 {
		return 0, fmt.Errorf("shuffle element size %d: %w", elemSize, status.ErrInvalidArgument)
	}
	n, err := writeFrame(out, Header{
		Codec:    f.name,
		Type:     typ,
		ElemSize: elemSize,
		Dims:     dims,
		RawSize:  uint64(len(in)),
		Params:   f.params.merge(params),
	}, shuffle(in, elemSize))
	if err != nil {
		return 0, err
	}
	info.set("raw_size", len(in))
	return n, nil
}

func (f *Shuffle) Decompress(in []byte, out []byte, dims []uint64, typ dtype.Type, params Params) (int, error) {
	h, payload, err := openFrame(f.name, in, dims, typ)
	if err != nil {
		return 0, err
	}
	if uint64(len(payload)) != h.RawSize || h.ElemSize == 0 {
		return 0, corrupt("shuffle: payload %d bytes, raw size %d", len(payload), h.RawSize)
	}
	if err := checkOut(f.name, out, h.RawSize); err != nil {
		return 0, err
	}
	unshuffle(out[:h.RawSize], payload, h.ElemSize)
	return int(h.RawSize), nil
}

func shuffle(input []byte, elemSize int) []byte {
	output := make([]byte, len(input))
	numElems := len(input) / elemSize
	for i := 0; i < numElems; i++ {
		for j := 0; j < elemSize; j++ {
			output[j*numElems+i] = input[i*elemSize+j]
		}
	}
	copy(output[numElems*elemSize:], input[numElems*elemSize:])
	return output
}

// unshuffle gathers bytes from grouped positions back into elements.
func unshuffle(output, input []byte, elemSize int) {
	numElems := len(input) / elemSize
	for i := 0; i < numElems; i++ {
		for j := 0; j < elemSize; j++ {
			output[i*elemSize+j] = input[j*numElems+i]
		}
	}
	copy(output[numElems*elemSize:], input[numElems*elemSize:])
}
