package operator

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"github.com/goccy/go-json"
	"github.com/zeebo/xxh3"

	"github.com/robert-malhotra/go-stepio/internal/binary"
	"github.com/robert-malhotra/go-stepio/internal/dtype"
	"github.com/robert-malhotra/go-stepio/internal/selection"
	"github.com/robert-malhotra/go-stepio/internal/status"
)

// Frame layout, all integers little endian:
//
//	magic      [4]byte "SPOF"
//	version    uint8
//	codec      uint16 length + bytes
//	type       uint8
//	elemSize   uint16
//	rank       uint8
//	dims       rank x uint64
//	rawSize    uint64  bytes of the block before compression
//	tierIndex  uint16
//	tierCount  uint16
//	params     uint32 length + JSON object
//	payload    uint64 length + bytes
//	checksum   uint64  xxh3 of payload
const (
	frameMagic   = "SPOF"
	frameVersion = 1
)

// fixedHeaderSize is the header size without codec name, dims and params.
const fixedHeaderSize = 4 + 1 + 2 + 1 + 2 + 1 + 8 + 2 + 2 + 4 + 8 + 8

// Header is the self-description carried by every frame.
type Header struct {
	Codec       string
	Type        dtype.Type
	ElemSize    int
	Dims        []uint64
	RawSize     uint64
	TierIndex   int
	TierCount   int
	Params      Params
	PayloadSize uint64
	Checksum    uint64
}

// headerBound is the largest header a codec named name writes with params.
func headerBound(name string, params Params) int {
	js, _ := json.Marshal(params)
	return fixedHeaderSize + len(name) + 8*selection.MaxRank + len(js)
}

// writeFrame serializes h and payload into out.
func writeFrame(out []byte, h Header, payload []byte) (int, error) {
	if len(h.Dims) > selection.MaxRank {
		return 0, fmt.Errorf("%s: rank %d: %w", h.Codec, len(h.Dims), status.ErrInvalidArgument)
	}
	params, err := json.Marshal(h.Params)
	if err != nil {
		return 0, fmt.Errorf("%s: encoding params: %w", h.Codec, err)
	}

	buf := binary.NewBuffer(fixedHeaderSize + len(h.Codec) + 8*len(h.Dims) + len(params) + len(payload))
	w := binary.NewWriter(buf)
	err = errors.Join(
		w.WriteBytes([]byte(frameMagic)),
		w.WriteUint8(frameVersion),
		w.WriteString(h.Codec),
		w.WriteUint8(uint8(h.Type)),
		w.WriteUint16(uint16(h.ElemSize)),
		w.WriteUint8(uint8(len(h.Dims))),
	)
	for _, d := range h.Dims {
		err = errors.Join(err, w.WriteUint64(d))
	}
	err = errors.Join(err,
		w.WriteUint64(h.RawSize),
		w.WriteUint16(uint16(h.TierIndex)),
		w.WriteUint16(uint16(h.TierCount)),
		w.WriteBlob(params),
		w.WriteUint64(uint64(len(payload))),
		w.WriteBytes(payload),
		w.WriteUint64(xxh3.Hash(payload)),
	)
	if err != nil {
		return 0, fmt.Errorf("%s: writing frame: %w", h.Codec, err)
	}

	if buf.Len() > len(out) {
		return 0, fmt.Errorf("%s: frame needs %d bytes, output holds %d: %w",
			h.Codec, buf.Len(), len(out), status.ErrInvalidArgument)
	}
	return copy(out, buf.Bytes()), nil
}

func corrupt(format string, args ...interface{}) error {
	return fmt.Errorf("frame: "+format+": %w", append(args, status.ErrCorruptInput)...)
}

// ReadHeader parses the header of a frame without verifying its payload.
func ReadHeader(frame []byte) (Header, error) {
	h, _, err := readFrame(frame, false)
	return h, err
}

// readFrame parses a frame and, when verify is set, checks the payload
// against its checksum. Every length is checked against the bytes actually
// present before anything is allocated.
func readFrame(frame []byte, verify bool) (Header, []byte, error) {
	var h Header
	r := binary.NewReader(bytes.NewReader(frame))
	remaining := func() uint64 { return uint64(int64(len(frame)) - r.Pos()) }

	magic, err := r.ReadBytes(len(frameMagic))
	if err != nil || string(magic) != frameMagic {
		return h, nil, corrupt("bad magic")
	}
	version, err := r.ReadUint8()
	if err != nil || version != frameVersion {
		return h, nil, corrupt("unsupported version %d", version)
	}
	if h.Codec, err = r.ReadString(); err != nil {
		return h, nil, corrupt("codec name: %v", err)
	}

	typ, err1 := r.ReadUint8()
	elemSize, err2 := r.ReadUint16()
	rank, err3 := r.ReadUint8()
	if err := errors.Join(err1, err2, err3); err != nil {
		return h, nil, corrupt("%s: truncated header", h.Codec)
	}
	if rank > selection.MaxRank {
		return h, nil, corrupt("%s: rank %d", h.Codec, rank)
	}
	h.Type, h.ElemSize = dtype.Type(typ), int(elemSize)
	h.Dims = make([]uint64, rank)
	for i := range h.Dims {
		if h.Dims[i], err = r.ReadUint64(); err != nil {
			return h, nil, corrupt("%s: truncated dims", h.Codec)
		}
	}

	raw, err1 := r.ReadUint64()
	tierIndex, err2 := r.ReadUint16()
	tierCount, err3 := r.ReadUint16()
	paramLen, err4 := r.ReadUint32()
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		return h, nil, corrupt("%s: truncated header", h.Codec)
	}
	h.RawSize, h.TierIndex, h.TierCount = raw, int(tierIndex), int(tierCount)

	if uint64(paramLen) > remaining() {
		return h, nil, corrupt("%s: params length %d exceeds frame", h.Codec, paramLen)
	}
	if paramLen > 0 {
		js, _ := r.ReadBytes(int(paramLen))
		if err := json.Unmarshal(js, &h.Params); err != nil {
			return h, nil, corrupt("%s: params: %v", h.Codec, err)
		}
	}

	if h.PayloadSize, err = r.ReadUint64(); err != nil {
		return h, nil, corrupt("%s: truncated header", h.Codec)
	}
	if h.PayloadSize > remaining() || remaining()-h.PayloadSize < 8 {
		return h, nil, corrupt("%s: payload of %d bytes exceeds frame", h.Codec, h.PayloadSize)
	}
	payload := frame[r.Pos() : r.Pos()+int64(h.PayloadSize)]
	r.Skip(int64(h.PayloadSize))
	h.Checksum, _ = r.ReadUint64()

	if verify && xxh3.Hash(payload) != h.Checksum {
		return h, nil, corrupt("%s: payload checksum mismatch", h.Codec)
	}
	return h, payload, nil
}

// openFrame reads a frame addressed to codec and checks it describes a block
// of dims elements of typ.
func openFrame(codec string, in []byte, dims []uint64, typ dtype.Type) (Header, []byte, error) {
	h, payload, err := readFrame(in, true)
	if err != nil {
		return h, nil, err
	}
	switch {
	case h.Codec != codec:
		return h, nil, corrupt("written by %q, decoding with %q", h.Codec, codec)
	case h.Type != typ:
		return h, nil, corrupt("%s: holds %v, want %v", codec, h.Type, typ)
	case !slices.Equal(h.Dims, dims):
		return h, nil, corrupt("%s: holds dims %v, want %v", codec, h.Dims, dims)
	}
	return h, payload, nil
}

// checkOut verifies the decompression target can hold the block.
func checkOut(codec string, out []byte, raw uint64) error {
	if uint64(len(out)) < raw {
		return fmt.Errorf("%s: output holds %d bytes, block needs %d: %w",
			codec, len(out), raw, status.ErrInvalidArgument)
	}
	return nil
}
