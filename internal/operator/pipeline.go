package operator

import (
	"fmt"
	"math"

	"github.com/robert-malhotra/go-stepio/internal/dtype"
	"github.com/robert-malhotra/go-stepio/internal/shape"
	"github.com/robert-malhotra/go-stepio/internal/status"
)

// Spec names an operator and its construction params.
type Spec struct {
	Name   string `json:"name"`
	Params Params `json:"params,omitempty"`
}

// tiered is implemented by operators that emit several frames per block.
type tiered interface {
	Tiers() int
	Session() *TierSession
}

// Pipeline applies a sequence of operators to blocks of one variable.
// Encoding runs the operators in order, decoding in reverse order.
type Pipeline struct {
	ops   []Operator
	specs []Spec
}

// NewPipeline creates a pipeline from operator specs. Options are passed to
// every constructor.
func NewPipeline(specs []Spec, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		ops:   make([]Operator, 0, len(specs)),
		specs: append([]Spec(nil), specs...),
	}
	for i, s := range specs {
		op, err := New(s.Name, s.Params, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating operator %d: %w", i, err)
		}
		p.ops = append(p.ops, op)
	}
	return p, nil
}

// Specs returns the operator specs the pipeline was built from.
func (p *Pipeline) Specs() []Spec {
	return append([]Spec(nil), p.specs...)
}

// Empty returns true if the pipeline has no operators.
func (p *Pipeline) Empty() bool {
	return len(p.ops) == 0
}

// Len returns the number of operators in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.ops)
}

// Validate reports whether every operator accepts typ.
func (p *Pipeline) Validate(typ dtype.Type) error {
	for _, op := range p.ops {
		if err := checkType(op, typ); err != nil {
			return err
		}
	}
	return nil
}

// Encode transforms one block into its stored frames. Without operators the
// block is returned as the only frame. A multi-tier operator turns each
// frame into one frame per tier; every later operator encodes each of those
// separately.
func (p *Pipeline) Encode(block []byte, dims []uint64, typ dtype.Type) (_ [][]byte, err error) {
	defer p.abandonOnError(&err)
	frames := [][]byte{block}
	for _, op := range p.ops {
		repeat := 1
		if t, ok := op.(tiered); ok {
			repeat = t.Tiers()
		}

		next := make([][]byte, 0, len(frames)*repeat)
		for _, in := range frames {
			for r := 0; r < repeat; r++ {
				out := make([]byte, op.Bound(len(in)))
				n, err := op.Compress(in, dims, typ.Size(), typ, out, nil, nil)
				if err != nil {
					return nil, fmt.Errorf("%s compress: %w", op.Name(), err)
				}
				next = append(next, out[:n])
			}
		}
		frames = next
	}
	return frames, nil
}

// Decode reverses Encode and returns the original block.
func (p *Pipeline) Decode(frames [][]byte, dims []uint64, typ dtype.Type) (_ []byte, err error) {
	defer p.abandonOnError(&err)
	limit := p.sizeLimit(dims, typ)
	for i := len(p.ops) - 1; i >= 0; i-- {
		op := p.ops[i]
		group := 1
		if t, ok := op.(tiered); ok {
			group = t.Tiers()
		}
		if len(frames)%group != 0 {
			return nil, fmt.Errorf("%s decode: %d frames for %d tiers: %w",
				op.Name(), len(frames), group, status.ErrCorruptInput)
		}

		next := make([][]byte, 0, len(frames)/group)
		for _, in := range frames {
			h, err := ReadHeader(in)
			if err != nil {
				return nil, fmt.Errorf("%s decode: %w", op.Name(), err)
			}
			if h.RawSize > limit {
				return nil, fmt.Errorf("%s decode: frame claims %d bytes, block of %v %v allows %d: %w",
					op.Name(), h.RawSize, dims, typ, limit, status.ErrCorruptInput)
			}
			out := make([]byte, h.RawSize)
			n, err := op.Decompress(in, out, dims, typ, nil)
			if err != nil {
				return nil, fmt.Errorf("%s decode: %w", op.Name(), err)
			}
			// Multi-tier operators report 0 until the last tier of a block.
			if group == 1 || n > 0 {
				next = append(next, out[:n])
			}
		}
		frames = next
	}

	if len(frames) != 1 {
		return nil, fmt.Errorf("decode left %d frames: %w", len(frames), status.ErrCorruptInput)
	}
	return frames[0], nil
}

// abandonOnError resets the sessions of multi-tier stages after a failed
// block, so the next block starts a fresh cycle.
func (p *Pipeline) abandonOnError(err *error) {
	if *err == nil {
		return
	}
	for _, op := range p.ops {
		if t, ok := op.(tiered); ok {
			t.Session().Reset()
		}
	}
}

// sizeLimit is the largest intermediate size any stage can produce for a
// block of dims elements of typ.
func (p *Pipeline) sizeLimit(dims []uint64, typ dtype.Type) uint64 {
	n, ok := shape.Product(dims)
	if ok {
		n, ok = shape.Mul(n, uint64(typ.Size()))
	}
	if !ok || n > math.MaxInt/4 {
		return math.MaxInt / 4
	}
	size, limit := int(n), n
	for _, op := range p.ops {
		size = op.Bound(size)
		limit = max(limit, uint64(size))
	}
	return limit
}
