package operator

import (
	"fmt"

	"github.com/robert-malhotra/go-stepio/internal/dtype"
	"github.com/robert-malhotra/go-stepio/internal/status"
)

// TieredName identifies the multi-tier codec.
const TieredName = "tiered"

// TierSession is the state of a multi-tier transform: the tier the next
// call works on and the per-tier byte buffers. Operators that share a
// session share that state, which lets one logical stream span several
// operator instances. Interleaving the tiers of two streams on one session
// hands each stream the other's buffers. A session is not safe for
// concurrent use.
type TierSession struct {
	current int
	tiers   int
	rawSize uint64
	buffers [][]byte
}

// NewTierSession returns a session positioned at tier 0.
func NewTierSession() *TierSession {
	return &TierSession{}
}

// CurrentTier returns the tier the next Compress or Decompress call handles.
func (s *TierSession) CurrentTier() int {
	return s.current
}

// Reset discards all buffered tiers and returns to tier 0. Call it between
// independent compress or decompress sequences.
func (s *TierSession) Reset() {
	*s = TierSession{}
}

func (s *TierSession) advance() {
	s.current = (s.current + 1) % s.tiers
}

// Tiered splits each block into tier_count parts and emits one part per
// call. The first call of a cycle partitions its input and buffers every
// tier in the session; the following tier_count-1 calls emit the buffered
// tiers and ignore their own input. Decompress buffers tiers the same way
// and returns 0 until the last tier arrives, then writes the whole block.
//
// Because the buffered tiers belong to the session, a Compress call for a
// different block issued mid-cycle on the same session emits tiers of the
// block that started the cycle.
//
// A call that fails abandons the cycle: the session returns to tier 0 with
// nothing buffered.
type Tiered struct {
	base
	tiers   int
	session *TierSession
}

// NewTiered creates a multi-tier codec. Params: tier_count (>= 1, default
// 1). A nil session gives the operator a private one.
func NewTiered(params Params, session *TierSession) (*Tiered, error) {
	tiers, err := params.Int("tier_count", 1)
	if err != nil {
		return nil, err
	}
	if tiers < 1 || tiers > 0xFFFF {
		return nil, fmt.Errorf("tier_count %d: %w", tiers, status.ErrInvalidArgument)
	}
	if session == nil {
		session = NewTierSession()
	}
	return &Tiered{
		base:    base{name: TieredName, params: params},
		tiers:   tiers,
		session: session,
	}, nil
}

// Tiers returns the number of tiers per block.
func (f *Tiered) Tiers() int {
	return f.tiers
}

// Session returns the session holding the operator's tier state.
func (f *Tiered) Session() *TierSession {
	return f.session
}

func (f *Tiered) IsDataTypeValid(typ dtype.Type) bool {
	return typ == dtype.Float32 || typ == dtype.Float64
}

// Bound covers the largest tier, which carries the division remainder.
func (f *Tiered) Bound(n int) int {
	return headerBound(f.name, f.params) + n/f.tiers + n%f.tiers
}

// join points the session at this operator's tier count, starting over when
// a cycle of a different length was in progress.
func (f *Tiered) join() {
	if f.session.tiers != f.tiers {
		f.session.Reset()
		f.session.tiers = f.tiers
	}
}

func (f *Tiered) Compress(in []byte, dims []uint64, elemSize int, typ dtype.Type, out []byte, params Params, info Info) (n int, err error) {
	if err := checkType(f, typ); err != nil {
		return 0, err
	}
	f.join()
	s := f.session
	defer f.abandonOnError(&err)

	if s.current == 0 {
		s.rawSize = uint64(len(in))
		s.buffers = partition(in, f.tiers)
	}
	tier := s.current

	n, err = writeFrame(out, Header{
		Codec:     f.name,
		Type:      typ,
		ElemSize:  elemSize,
		Dims:      dims,
		RawSize:   s.rawSize,
		TierIndex: tier,
		TierCount: f.tiers,
		Params:    f.params.merge(params),
	}, s.buffers[tier])
	if err != nil {
		return 0, err
	}
	info.set("tier", tier)
	info.set("tier_count", f.tiers)

	s.advance()
	if s.current == 0 {
		s.buffers = nil
	}
	return n, nil
}

func (f *Tiered) Decompress(in []byte, out []byte, dims []uint64, typ dtype.Type, params Params) (n int, err error) {
	defer f.abandonOnError(&err)
	h, payload, err := openFrame(f.name, in, dims, typ)
	if err != nil {
		return 0, err
	}
	if h.TierCount != f.tiers {
		return 0, corrupt("tiered: frame has %d tiers, operator %d", h.TierCount, f.tiers)
	}
	f.join()
	s := f.session
	if h.TierIndex != s.current {
		return 0, corrupt("tiered: frame holds tier %d, session expects tier %d", h.TierIndex, s.current)
	}

	if s.current == 0 {
		s.rawSize = h.RawSize
		s.buffers = make([][]byte, f.tiers)
	} else if h.RawSize != s.rawSize {
		return 0, corrupt("tiered: tier %d belongs to a %d byte block, cycle started with %d",
			h.TierIndex, h.RawSize, s.rawSize)
	}
	s.buffers[s.current] = append([]byte(nil), payload...)

	last := s.current == f.tiers-1
	s.advance()
	if !last {
		return 0, nil
	}

	buffers := s.buffers
	s.buffers = nil
	var total uint64
	for _, b := range buffers {
		total += uint64(len(b))
	}
	if total != s.rawSize {
		return 0, corrupt("tiered: tiers hold %d bytes, block has %d", total, s.rawSize)
	}
	if err := checkOut(f.name, out, total); err != nil {
		return 0, err
	}
	for _, b := range buffers {
		n += copy(out[n:], b)
	}
	return n, nil
}

// abandonOnError drops a partly processed cycle so that a failed block does
// not leave the session expecting one of its tiers.
func (f *Tiered) abandonOnError(err *error) {
	if *err != nil {
		f.session.Reset()
	}
}

// partition splits in into tiers contiguous parts of len(in)/tiers bytes;
// the last part also carries the remainder.
func partition(in []byte, tiers int) [][]byte {
	parts := make([][]byte, tiers)
	size := len(in) / tiers
	for t := range parts {
		end := (t + 1) * size
		if t == tiers-1 {
			end = len(in)
		}
		parts[t] = append([]byte(nil), in[t*size:end]...)
	}
	return parts
}
